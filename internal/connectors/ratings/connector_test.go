package ratings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/profrank/internal/core/domain"
)

// pageFixture is one canned search response.
type pageFixture struct {
	ids       []int64
	endCursor string
	hasNext   bool
}

// fakeSearchServer answers by search term and cursor.
func fakeSearchServer(t *testing.T, pages map[string]pageFixture) (*httptest.Server, *[]graphQLRequest) {
	t.Helper()
	var seen []graphQLRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		seen = append(seen, req)

		fx, ok := pages[req.Variables.Query.Text+"|"+req.Variables.Cursor]
		if !ok {
			fx = pageFixture{}
		}

		edges := make([]map[string]any, 0, len(fx.ids))
		for _, id := range fx.ids {
			edges = append(edges, map[string]any{
				"cursor": "x",
				"node": map[string]any{
					"id":                    "VGVhY2hlci0x",
					"legacyId":              id,
					"firstName":             "Ada",
					"lastName":              "Lovelace",
					"department":            "Computer Science",
					"avgRating":             4.5,
					"avgDifficulty":         2.0,
					"wouldTakeAgainPercent": nil,
					"numRatings":            12,
					"teacherRatingTags":     []map[string]any{{"tagName": "Caring", "tagCount": 3}},
					"courseCodes":           []map[string]any{{"courseName": "CS101", "courseCount": 7}},
					"ratings": map[string]any{
						"edges": []map[string]any{{
							"node": map[string]any{
								"id":               "UmF0aW5nLTE=",
								"comment":          "Great",
								"class":            "CS101",
								"date":             "2024-01-15 18:30:00 +0000 UTC",
								"helpfulRating":    5,
								"difficultyRating": 2,
								"wouldTakeAgain":   1,
								"ratingTags":       "Caring--Clear grading",
								"thumbsUpTotal":    2,
								"thumbsDownTotal":  0,
							},
						}},
					},
				},
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"search": map[string]any{
					"teachers": map[string]any{
						"edges":       edges,
						"pageInfo":    map[string]any{"hasNextPage": fx.hasNext, "endCursor": fx.endCursor},
						"resultCount": len(fx.ids),
					},
				},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func testSettings(endpoint string, terms ...string) domain.SourceSettings {
	s := domain.DefaultSettings().Source
	s.Endpoint = endpoint
	s.SearchTerms = terms
	s.RequestInterval = 0
	s.Timeout = 5 * time.Second
	return s
}

func TestSchoolNodeID(t *testing.T) {
	assert.Equal(t, "U2Nob29sLTg3Nw==", SchoolNodeID(877))
}

func TestSource_WalksTermsAndPages(t *testing.T) {
	srv, seen := fakeSearchServer(t, map[string]pageFixture{
		"a|":   {ids: []int64{1, 2}, endCursor: "c1", hasNext: true},
		"a|c1": {ids: []int64{3}},
		"b|":   {ids: []int64{2, 4}},
	})
	src := NewSource(testSettings(srv.URL, "a", "b"))
	ctx := context.Background()

	var ids []int64
	cursor := ""
	pages := 0
	for {
		page, err := src.FetchPage(ctx, cursor)
		require.NoError(t, err)
		pages++
		for _, r := range page.Records {
			ids = append(ids, *r.LegacyID)
		}
		if !page.HasNext() {
			break
		}
		cursor = page.NextCursor
	}

	assert.Equal(t, 3, pages)
	assert.Equal(t, []int64{1, 2, 3, 2, 4}, ids)
	require.Len(t, *seen, 3)
	assert.Equal(t, "c1", (*seen)[1].Variables.Cursor)
	assert.Equal(t, "b", (*seen)[2].Variables.Query.Text)
	assert.Equal(t, SchoolNodeID(877), (*seen)[0].Variables.Query.SchoolID)
	assert.Equal(t, 20, (*seen)[0].Variables.Count)
	assert.Equal(t, 20, (*seen)[0].Variables.RatingsCount)
}

func TestSource_MapsFields(t *testing.T) {
	srv, _ := fakeSearchServer(t, map[string]pageFixture{"a|": {ids: []int64{42}}})
	src := NewSource(testSettings(srv.URL, "a"))

	page, err := src.FetchPage(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.False(t, page.HasNext())

	r := page.Records[0]
	assert.Equal(t, int64(42), *r.LegacyID)
	assert.Equal(t, "Computer Science", *r.Department)
	assert.InDelta(t, 4.5, *r.AvgRating, 1e-9)
	assert.Nil(t, r.WouldTakeAgainPercent, "null stays missing")
	assert.Equal(t, 12, *r.NumRatings)
	require.Len(t, r.Tags, 1)
	assert.Equal(t, "Caring", *r.Tags[0].Name)
	require.Len(t, r.Courses, 1)
	assert.Equal(t, 7, *r.Courses[0].Count)

	require.Len(t, r.Reviews, 1)
	rev := r.Reviews[0]
	assert.Equal(t, "UmF0aW5nLTE=", *rev.ID)
	assert.InDelta(t, 5.0, *rev.Quality, 1e-9)
	assert.Equal(t, 1, *rev.WouldTakeAgain)
	assert.Equal(t, "Caring--Clear grading", *rev.RatingTags)
}

func TestSource_SendsHeaders(t *testing.T) {
	var auth, ctype, origin string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		ctype = r.Header.Get("Content-Type")
		origin = r.Header.Get("Origin")
		_, _ = w.Write([]byte(`{"data":{"search":{"teachers":{"edges":[],"pageInfo":{"hasNextPage":false,"endCursor":""}}}}}`))
	}))
	defer srv.Close()

	src := NewSource(testSettings(srv.URL, "a"))
	_, err := src.FetchPage(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "Basic dGVzdDp0ZXN0", auth)
	assert.Equal(t, "application/json", ctype)
	assert.Equal(t, srv.URL, origin)
}

func TestSource_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, 500, apiErr.StatusCode)
				assert.Equal(t, "boom", apiErr.Message)
			},
		},
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			check: func(t *testing.T, err error) {
				assert.True(t, IsUnauthorized(err))
			},
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set(HeaderRetryAfter, "0")
				w.WriteHeader(http.StatusTooManyRequests)
			},
			check: func(t *testing.T, err error) {
				assert.True(t, IsRateLimited(err))
			},
		},
		{
			name: "graphql errors",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"errors":[{"message":"bad school"}]}`))
			},
			check: func(t *testing.T, err error) {
				var gqlErr *GraphQLError
				require.ErrorAs(t, err, &gqlErr)
				assert.Equal(t, []string{"bad school"}, gqlErr.Messages)
			},
		},
		{
			name: "missing data",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"data":{"search":null}}`))
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMissingData)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			},
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "decode response")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			src := NewSource(testSettings(srv.URL, "a"))
			page, err := src.FetchPage(context.Background(), "")

			require.Error(t, err)
			assert.Nil(t, page, "failures never masquerade as empty pages")
			assert.ErrorIs(t, err, domain.ErrTransport)
			tt.check(t, err)
		})
	}
}

func TestSource_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewSource(testSettings(srv.URL, "a"), WithBreaker(2, time.Minute))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := src.FetchPage(ctx, "")
		require.Error(t, err)
	}
	assert.Equal(t, "open", src.BreakerState())

	_, err := src.FetchPage(ctx, "")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, int32(2), hits.Load(), "open breaker short-circuits")
}

func TestSource_CursorEdgeCases(t *testing.T) {
	src := NewSource(testSettings("http://127.0.0.1:1", "a"))

	_, err := src.FetchPage(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidCursor)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.NotErrorIs(t, err, domain.ErrTransport, "a bad cursor never succeeds on retry")

	page, err := src.FetchPage(context.Background(), Cursor{Term: 5}.Encode())
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.False(t, page.HasNext())
}

func TestSource_ContextCancelled(t *testing.T) {
	srv, _ := fakeSearchServer(t, nil)
	src := NewSource(testSettings(srv.URL, "a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.FetchPage(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "closed", src.BreakerState())
}

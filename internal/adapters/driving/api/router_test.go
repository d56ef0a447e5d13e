package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/profrank/internal/core/domain"
	"github.com/custodia-labs/profrank/internal/core/ports/driving"
)

// --- Mocks ---

type mockQueryService struct {
	rankingReq driving.RankingRequest
	codes      []string
	deptName   string
	err        error
}

func (m *mockQueryService) GetStats(_ context.Context) (*domain.Stats, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Stats{TotalInstructors: 2, AvgQuality: domain.Unknown()}, nil
}

func (m *mockQueryService) GetRankings(_ context.Context, req driving.RankingRequest) ([]domain.RankedInstructor, error) {
	m.rankingReq = req
	if m.err != nil {
		return nil, m.err
	}
	return []domain.RankedInstructor{
		{Rank: 1, Instructor: domain.Instructor{ID: 7, FirstName: "Ada", Quality: domain.Known(4.5), Difficulty: domain.Unknown()}},
	}, nil
}

func (m *mockQueryService) GetDepartments(_ context.Context) ([]domain.DepartmentSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []domain.DepartmentSummary{{Name: "History", InstructorCount: 3}}, nil
}

func (m *mockQueryService) GetDepartmentDetail(_ context.Context, name string) (*domain.DepartmentDetail, error) {
	m.deptName = name
	if m.err != nil {
		return nil, m.err
	}
	d := &domain.DepartmentDetail{}
	d.Name = name
	return d, nil
}

func (m *mockQueryService) GetScheduleMatches(_ context.Context, codes []string) (map[string][]domain.Instructor, error) {
	m.codes = codes
	if m.err != nil {
		return nil, m.err
	}
	return map[string][]domain.Instructor{"CS101": {{ID: 1}}, "ZZZ999": {}}, nil
}

func (m *mockQueryService) GetInstructorReviews(_ context.Context, id int64) ([]domain.Review, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []domain.Review{{ID: "r1", InstructorID: id}}, nil
}

type mockRefreshService struct {
	req driving.RefreshRequest
	out *driving.RefreshOutcome
	err error
}

func (m *mockRefreshService) Refresh(_ context.Context, req driving.RefreshRequest) (*driving.RefreshOutcome, error) {
	m.req = req
	return m.out, m.err
}

func (m *mockRefreshService) Status(_ context.Context) (*driving.RefreshReport, error) {
	return &driving.RefreshReport{State: domain.RefreshIdle, Stale: true}, m.err
}

// --- Helpers ---

func serve(t *testing.T, q *mockQueryService, r *mockRefreshService, method, target, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	NewRouter(NewHandler(q, r)).ServeHTTP(rec, req)

	var resp Response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

// --- Tests ---

func TestRankings(t *testing.T) {
	q := &mockQueryService{}
	rec, resp := serve(t, q, &mockRefreshService{}, http.MethodGet,
		"/api/rankings?department=History&sort_by=difficulty&order=desc&limit=10", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, driving.RankingRequest{
		Department: "History",
		MinRatings: driving.DefaultMinRatings,
		SortBy:     domain.SortDifficulty,
		Order:      domain.OrderDesc,
		Limit:      10,
	}, q.rankingReq)

	body := rec.Body.String()
	assert.Contains(t, body, `"quality":4.5`)
	assert.Contains(t, body, `"difficulty":null`, "unknown metrics are null, never 0")
	assert.Contains(t, body, `"total":1`)
}

func TestRankings_ExplicitZeroMinRatings(t *testing.T) {
	q := &mockQueryService{}
	rec, _ := serve(t, q, &mockRefreshService{}, http.MethodGet, "/api/rankings?min_ratings=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, q.rankingReq.MinRatings)
}

func TestRankings_BadParam(t *testing.T) {
	rec, resp := serve(t, &mockQueryService{}, &mockRefreshService{}, http.MethodGet, "/api/rankings?min_ratings=lots", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeValidation, resp.Error.Code)
	assert.Equal(t, "min_ratings", resp.Error.Details["param"])
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"query error", domain.NewQueryError("sort_by", "bad"), http.StatusBadRequest, CodeValidation},
		{"not found", fmt.Errorf("department %q: %w", "X", domain.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{"storage", fmt.Errorf("%w: disk full", domain.ErrStorage), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := serve(t, &mockQueryService{err: tt.err}, &mockRefreshService{}, http.MethodGet, "/api/departments/X", "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestDepartment_PathName(t *testing.T) {
	q := &mockQueryService{}
	rec, _ := serve(t, q, &mockRefreshService{}, http.MethodGet, "/api/departments/Computer%20Science", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Computer Science", q.deptName)
}

func TestDepartments(t *testing.T) {
	rec, _ := serve(t, &mockQueryService{}, &mockRefreshService{}, http.MethodGet, "/api/departments", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"History"`)
}

func TestSchedule(t *testing.T) {
	q := &mockQueryService{}
	rec, _ := serve(t, q, &mockRefreshService{}, http.MethodPost, "/api/schedule", `{"courses":["cs101","ZZZ999"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"cs101", "ZZZ999"}, q.codes)
	assert.Contains(t, rec.Body.String(), `"ZZZ999":[]`)
}

func TestSchedule_BadBody(t *testing.T) {
	rec, _ := serve(t, &mockQueryService{}, &mockRefreshService{}, http.MethodPost, "/api/schedule", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReviews(t *testing.T) {
	rec, _ := serve(t, &mockQueryService{}, &mockRefreshService{}, http.MethodGet, "/api/instructors/42/reviews", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"instructor_id":42`)

	rec, _ = serve(t, &mockQueryService{}, &mockRefreshService{}, http.MethodGet, "/api/instructors/abc/reviews", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStats(t *testing.T) {
	rec, _ := serve(t, &mockQueryService{}, &mockRefreshService{}, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"avg_quality":null`)
}

func TestRefresh(t *testing.T) {
	tests := []struct {
		name   string
		target string
		out    *driving.RefreshOutcome
		want   driving.RefreshRequest
		status int
	}{
		{"fresh", "/api/refresh", &driving.RefreshOutcome{Status: driving.RefreshFresh}, driving.RefreshRequest{}, http.StatusOK},
		{"forced start", "/api/refresh?force=true", &driving.RefreshOutcome{Status: driving.RefreshStarted}, driving.RefreshRequest{Force: true}, http.StatusAccepted},
		{"joined", "/api/refresh?force=1", &driving.RefreshOutcome{Status: driving.RefreshInProgress, Coalesced: true}, driving.RefreshRequest{Force: true}, http.StatusAccepted},
		{"waited", "/api/refresh?wait=true", &driving.RefreshOutcome{Status: driving.RefreshCompleted}, driving.RefreshRequest{Wait: true}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &mockRefreshService{out: tt.out}
			rec, _ := serve(t, &mockQueryService{}, r, http.MethodPost, tt.target, "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.want, r.req)
		})
	}
}

func TestRefresh_SourceFailure(t *testing.T) {
	r := &mockRefreshService{err: fmt.Errorf("fetch page: %w", domain.ErrTransport)}
	rec, resp := serve(t, &mockQueryService{}, r, http.MethodPost, "/api/refresh?wait=true", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeSource, resp.Error.Code)
}

func TestRefresh_BadFlag(t *testing.T) {
	rec, _ := serve(t, &mockQueryService{}, &mockRefreshService{}, http.MethodPost, "/api/refresh?force=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshStatus(t *testing.T) {
	rec, _ := serve(t, &mockQueryService{}, &mockRefreshService{}, http.MethodGet, "/api/refresh/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"stale":true`)
}

func TestHealthAndMetrics(t *testing.T) {
	rec, _ := serve(t, &mockQueryService{}, &mockRefreshService{}, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mrec := httptest.NewRecorder()
	NewRouter(NewHandler(&mockQueryService{}, &mockRefreshService{})).ServeHTTP(mrec, req)
	assert.Equal(t, http.StatusOK, mrec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	rec, _ := serve(t, &mockQueryService{}, &mockRefreshService{}, http.MethodGet, "/api/schedule", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

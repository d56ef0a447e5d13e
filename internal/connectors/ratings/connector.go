package ratings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/custodia-labs/profrank/internal/core/domain"
	"github.com/custodia-labs/profrank/internal/core/ports/driven"
	"github.com/custodia-labs/profrank/internal/logger"
	"github.com/custodia-labs/profrank/internal/metrics"
)

// Ensure Source implements the interface.
var _ driven.SourceAdapter = (*Source)(nil)

const (
	// DefaultFailureThreshold is the consecutive failures that open the breaker.
	DefaultFailureThreshold = 5

	// DefaultBreakerCooldown is how long the breaker stays open.
	DefaultBreakerCooldown = 30 * time.Second
)

// Source pages through an institution's instructors by walking each
// configured search term to exhaustion.
type Source struct {
	settings domain.SourceSettings
	terms    []string
	schoolID string
	client   *Client
	breaker  *gobreaker.CircuitBreaker[*teacherConnection]
	log      zerolog.Logger
}

// Option configures a Source.
type Option func(*sourceOptions)

type sourceOptions struct {
	httpClient       *http.Client
	failureThreshold uint32
	cooldown         time.Duration
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *sourceOptions) { o.httpClient = c }
}

// WithBreaker overrides the circuit breaker's trip threshold and cooldown.
func WithBreaker(failureThreshold uint32, cooldown time.Duration) Option {
	return func(o *sourceOptions) {
		o.failureThreshold = failureThreshold
		o.cooldown = cooldown
	}
}

// NewSource creates a source adapter from settings.
func NewSource(settings domain.SourceSettings, opts ...Option) *Source {
	o := sourceOptions{
		failureThreshold: DefaultFailureThreshold,
		cooldown:         DefaultBreakerCooldown,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		timeout := settings.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		o.httpClient = &http.Client{Timeout: timeout}
	}

	terms := settings.SearchTerms
	if len(terms) == 0 {
		terms = []string{""}
	}

	log := logger.With("source")

	return &Source{
		settings: settings,
		terms:    terms,
		schoolID: SchoolNodeID(settings.SchoolID),
		client:   NewClient(settings.Endpoint, settings.AuthToken, o.httpClient, NewRateLimiter(settings.RequestInterval)),
		breaker:  newBreaker(o.failureThreshold, o.cooldown, log),
		log:      log,
	}
}

// newBreaker builds the circuit breaker guarding the source.
func newBreaker(threshold uint32, cooldown time.Duration, log zerolog.Logger) *gobreaker.CircuitBreaker[*teacherConnection] {
	return gobreaker.NewCircuitBreaker[*teacherConnection](gobreaker.Settings{
		Name:        "ratings-source",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up says nothing about the source's health
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SourceBreakerState.Set(float64(to))
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
}

// FetchPage returns the page at cursor.
func (s *Source) FetchPage(ctx context.Context, cursor string) (*domain.RawPage, error) {
	// 1. Locate position
	pos, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if pos.Term >= len(s.terms) {
		return &domain.RawPage{}, nil
	}

	// 2. Fetch through the breaker
	vars := searchVariable{
		Count:  s.settings.PageSize,
		Cursor: pos.After,
		Query: searchQuery{
			Text:     s.terms[pos.Term],
			SchoolID: s.schoolID,
		},
		RatingsCount: s.settings.ReviewsPerInstructor,
	}

	conn, err := s.breaker.Execute(func() (*teacherConnection, error) {
		return s.client.Search(ctx, vars)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordSourceRequest("breaker_open", 0)
		}
		return nil, fmt.Errorf("%w: term %q: %w", domain.ErrTransport, s.terms[pos.Term], err)
	}

	// 3. Convert
	page := &domain.RawPage{Records: make([]domain.RawInstructor, 0, len(conn.Edges))}
	for i := range conn.Edges {
		page.Records = append(page.Records, conn.Edges[i].Node.toRaw())
	}

	// 4. Next position: continue this term, else start the next one
	switch {
	case conn.PageInfo.HasNextPage && conn.PageInfo.EndCursor != "":
		page.NextCursor = Cursor{Term: pos.Term, After: conn.PageInfo.EndCursor}.Encode()
	case pos.Term+1 < len(s.terms):
		page.NextCursor = Cursor{Term: pos.Term + 1}.Encode()
	}

	s.log.Debug().
		Str("term", s.terms[pos.Term]).
		Int("records", len(page.Records)).
		Int("result_count", conn.ResultCount).
		Bool("has_next", page.HasNext()).
		Msg("fetched page")

	return page, nil
}

// BreakerState returns the circuit breaker's state name.
func (s *Source) BreakerState() string {
	return s.breaker.State().String()
}

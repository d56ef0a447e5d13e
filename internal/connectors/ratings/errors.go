package ratings

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Ratings source errors.
var (
	// ErrInvalidCursor indicates the cursor format is invalid.
	ErrInvalidCursor = errors.New("ratings: invalid cursor format")

	// ErrMissingData indicates a response without the expected payload.
	ErrMissingData = errors.New("ratings: response has no search data")
)

// RateLimitError represents a throttled request with the time it may resume.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("ratings: rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// APIError represents a non-2xx HTTP response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ratings: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// GraphQLError represents errors reported in a GraphQL response body.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "ratings: graphql: " + strings.Join(e.Messages, "; ")
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}
	return false
}

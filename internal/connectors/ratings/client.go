package ratings

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/custodia-labs/profrank/internal/metrics"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is sent with every request; the source rejects
	// unidentified clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 512
)

// Client posts GraphQL queries to the review source.
type Client struct {
	http        *http.Client
	endpoint    string
	authToken   string
	origin      string
	rateLimiter *RateLimiter
}

// NewClient creates a client for endpoint. A nil httpClient gets one with
// DefaultTimeout.
func NewClient(endpoint, authToken string, httpClient *http.Client, limiter *RateLimiter) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if limiter == nil {
		limiter = NewRateLimiter(0)
	}

	origin := ""
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		origin = u.Scheme + "://" + u.Host
	}

	return &Client{
		http:        httpClient,
		endpoint:    endpoint,
		authToken:   authToken,
		origin:      origin,
		rateLimiter: limiter,
	}
}

// RateLimiter returns the client's limiter.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// Search runs one page of the teacher search.
func (c *Client) Search(ctx context.Context, vars searchVariable) (*teacherConnection, error) {
	// 1. Wait for a request slot
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	// 2. Build request
	body, err := json.Marshal(graphQLRequest{Query: teacherSearchQuery, Variables: vars})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", DefaultUserAgent)
	if c.authToken != "" {
		req.Header.Set("Authorization", c.authToken)
	}
	if c.origin != "" {
		req.Header.Set("Origin", c.origin)
		req.Header.Set("Referer", c.origin+"/")
	}

	// 3. Round trip
	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordSourceRequest("network", elapsed)
		return nil, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	// 4. Status
	if err := c.rateLimiter.CheckRateLimit(resp); err != nil {
		metrics.RecordSourceRequest("rate_limited", elapsed)
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RecordSourceRequest("http_error", elapsed)
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
			URL:        c.endpoint,
		}
	}

	// 5. Decode
	var out graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.RecordSourceRequest("decode", elapsed)
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if out.Data == nil || out.Data.Search == nil || out.Data.Search.Teachers == nil {
		metrics.RecordSourceRequest("decode", elapsed)
		if len(out.Errors) > 0 {
			gqlErr := &GraphQLError{}
			for _, e := range out.Errors {
				gqlErr.Messages = append(gqlErr.Messages, e.Message)
			}
			return nil, gqlErr
		}
		return nil, ErrMissingData
	}

	metrics.RecordSourceRequest("ok", elapsed)
	return out.Data.Search.Teachers, nil
}

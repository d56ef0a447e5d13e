package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/custodia-labs/profrank/internal/core/domain"
	"github.com/custodia-labs/profrank/internal/logger"
)

// Error codes.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeSource     = "SOURCE_ERROR"
	CodeInternal   = "INTERNAL_ERROR"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Status   string    `json:"status"`
	Data     any       `json:"data"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
}

// Metadata describes how the response was produced.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms"`
}

// APIError is a machine-readable failure.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// respondJSON writes a success envelope.
func respondJSON(w http.ResponseWriter, status int, data any, start time.Time) {
	write(w, status, &Response{
		Status: "success",
		Data:   data,
		Metadata: Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// respondError maps err onto a status code and writes an error envelope.
func respondError(w http.ResponseWriter, err error, start time.Time) {
	status, apiErr := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("api: %v", err)
	}

	write(w, status, &Response{
		Status: "error",
		Metadata: Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
		Error: apiErr,
	})
}

// classify picks the status and public error for err.
func classify(err error) (int, *APIError) {
	var qe *domain.QueryError
	switch {
	case errors.As(err, &qe):
		return http.StatusBadRequest, &APIError{
			Code:    CodeValidation,
			Message: qe.Error(),
			Details: map[string]any{"param": qe.Param, "reason": qe.Reason},
		}
	case errors.Is(err, domain.ErrInvalidQuery), errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, &APIError{Code: CodeValidation, Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, &APIError{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, domain.ErrTransport):
		return http.StatusBadGateway, &APIError{Code: CodeSource, Message: "review source unavailable"}
	default:
		return http.StatusInternalServerError, &APIError{Code: CodeInternal, Message: "internal error"}
	}
}

func write(w http.ResponseWriter, status int, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		logger.Error("api: failed to marshal response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logger.Debug("api: failed to write response: %v", err)
	}
}

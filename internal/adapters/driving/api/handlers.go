package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/custodia-labs/profrank/internal/core/domain"
	"github.com/custodia-labs/profrank/internal/core/ports/driving"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// Handler serves the JSON endpoints.
type Handler struct {
	query   driving.QueryService
	refresh driving.RefreshService
}

// NewHandler creates a handler over the driving ports.
func NewHandler(query driving.QueryService, refresh driving.RefreshService) *Handler {
	return &Handler{query: query, refresh: refresh}
}

// ==================== Read Endpoints ====================

// RankingsResponse is the body of GET /api/rankings.
type RankingsResponse struct {
	Instructors []domain.RankedInstructor `json:"instructors"`
	Total       int                       `json:"total"`
}

// Rankings handles GET /api/rankings.
func (h *Handler) Rankings(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	req := driving.RankingRequest{
		Department: q.Get("department"),
		SortBy:     domain.SortKey(q.Get("sort_by")),
		Order:      domain.SortOrder(q.Get("order")),
	}

	var err error
	if req.MinRatings, err = intParam(q.Get("min_ratings"), "min_ratings", driving.DefaultMinRatings); err != nil {
		respondError(w, err, start)
		return
	}
	if req.Limit, err = intParam(q.Get("limit"), "limit", 0); err != nil {
		respondError(w, err, start)
		return
	}

	ranked, err := h.query.GetRankings(r.Context(), req)
	if err != nil {
		respondError(w, err, start)
		return
	}
	respondJSON(w, http.StatusOK, RankingsResponse{Instructors: ranked, Total: len(ranked)}, start)
}

// Departments handles GET /api/departments.
func (h *Handler) Departments(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	depts, err := h.query.GetDepartments(r.Context())
	if err != nil {
		respondError(w, err, start)
		return
	}
	respondJSON(w, http.StatusOK, depts, start)
}

// Department handles GET /api/departments/{name}.
func (h *Handler) Department(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	detail, err := h.query.GetDepartmentDetail(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, err, start)
		return
	}
	respondJSON(w, http.StatusOK, detail, start)
}

// Stats handles GET /api/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	stats, err := h.query.GetStats(r.Context())
	if err != nil {
		respondError(w, err, start)
		return
	}
	respondJSON(w, http.StatusOK, stats, start)
}

// ScheduleRequest is the body of POST /api/schedule.
type ScheduleRequest struct {
	Courses []string `json:"courses"`
}

// Schedule handles POST /api/schedule.
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req ScheduleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, domain.NewQueryError("body", "expected {\"courses\": [...]}"), start)
		return
	}

	matches, err := h.query.GetScheduleMatches(r.Context(), req.Courses)
	if err != nil {
		respondError(w, err, start)
		return
	}
	respondJSON(w, http.StatusOK, matches, start)
}

// Reviews handles GET /api/instructors/{id}/reviews.
func (h *Handler) Reviews(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, domain.NewQueryError("id", "must be an integer"), start)
		return
	}

	reviews, err := h.query.GetInstructorReviews(r.Context(), id)
	if err != nil {
		respondError(w, err, start)
		return
	}
	respondJSON(w, http.StatusOK, reviews, start)
}

// ==================== Refresh Endpoints ====================

// Refresh handles POST /api/refresh?force=&wait=.
// A cycle started or joined without waiting answers 202.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	force, err := boolParam(q.Get("force"), "force")
	if err != nil {
		respondError(w, err, start)
		return
	}
	wait, err := boolParam(q.Get("wait"), "wait")
	if err != nil {
		respondError(w, err, start)
		return
	}

	out, err := h.refresh.Refresh(r.Context(), driving.RefreshRequest{Force: force, Wait: wait})
	if err != nil {
		respondError(w, err, start)
		return
	}

	status := http.StatusOK
	if out.Status == driving.RefreshStarted || out.Status == driving.RefreshInProgress {
		status = http.StatusAccepted
	}
	respondJSON(w, status, out, start)
}

// RefreshStatus handles GET /api/refresh/status.
func (h *Handler) RefreshStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	report, err := h.refresh.Status(r.Context())
	if err != nil {
		respondError(w, err, start)
		return
	}
	respondJSON(w, http.StatusOK, report, start)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, time.Now())
}

// ==================== Helpers ====================

func intParam(raw, name string, def int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, domain.NewQueryError(name, "must be an integer")
	}
	return v, nil
}

func boolParam(raw, name string) (bool, error) {
	if strings.TrimSpace(raw) == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, domain.NewQueryError(name, "must be true or false")
	}
	return v, nil
}

package mcp

import (
	"context"

	"github.com/custodia-labs/profrank/internal/core/domain"
	"github.com/custodia-labs/profrank/internal/core/ports/driving"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	ranked   []domain.RankedInstructor
	depts    []domain.DepartmentSummary
	detail   *domain.DepartmentDetail
	matches  map[string][]domain.Instructor
	stats    *domain.Stats
	reviews  []domain.Review
	err      error
	lastReq  driving.RankingRequest
	lastName string
	lastID   int64
}

func (m *mockQueryService) GetStats(_ context.Context) (*domain.Stats, error) {
	return m.stats, m.err
}

func (m *mockQueryService) GetRankings(_ context.Context, req driving.RankingRequest) ([]domain.RankedInstructor, error) {
	m.lastReq = req
	return m.ranked, m.err
}

func (m *mockQueryService) GetDepartments(_ context.Context) ([]domain.DepartmentSummary, error) {
	return m.depts, m.err
}

func (m *mockQueryService) GetDepartmentDetail(_ context.Context, name string) (*domain.DepartmentDetail, error) {
	m.lastName = name
	return m.detail, m.err
}

func (m *mockQueryService) GetScheduleMatches(_ context.Context, _ []string) (map[string][]domain.Instructor, error) {
	return m.matches, m.err
}

func (m *mockQueryService) GetInstructorReviews(_ context.Context, id int64) ([]domain.Review, error) {
	m.lastID = id
	return m.reviews, m.err
}

// mockRefreshService is a mock implementation of driving.RefreshService.
type mockRefreshService struct {
	report *driving.RefreshReport
	err    error
}

func (m *mockRefreshService) Refresh(_ context.Context, _ driving.RefreshRequest) (*driving.RefreshOutcome, error) {
	return &driving.RefreshOutcome{Status: driving.RefreshFresh}, m.err
}

func (m *mockRefreshService) Status(_ context.Context) (*driving.RefreshReport, error) {
	return m.report, m.err
}

package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/profrank/internal/core/domain"
	"github.com/custodia-labs/profrank/internal/core/ports/driven"
	"github.com/custodia-labs/profrank/internal/core/ports/driving"
	"github.com/custodia-labs/profrank/internal/metrics"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// Stats thresholds.
const (
	statsMinRatings          = 5
	hardestDeptMinReviews    = 100
	hardestInstructorMinRevs = 50
)

// StateReporter exposes the freshness controller's state.
type StateReporter interface {
	State() domain.RefreshState
}

// QueryService answers read requests from the cache and scoring snapshots.
// It never touches the source.
type QueryService struct {
	store      driven.CacheStore
	normaliser driven.Normaliser
	scoring    *ScoringEngine
	refresh    StateReporter
	validate   *validator.Validate
}

// NewQueryService creates a query service. refresh may be nil.
func NewQueryService(
	store driven.CacheStore,
	normaliser driven.Normaliser,
	scoring *ScoringEngine,
	refresh StateReporter,
) *QueryService {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return strings.ToLower(fld.Name)
		}
		return name
	})

	return &QueryService{
		store:      store,
		normaliser: normaliser,
		scoring:    scoring,
		refresh:    refresh,
		validate:   v,
	}
}

// GetRankings returns filtered, sorted and ranked instructors.
func (s *QueryService) GetRankings(ctx context.Context, req driving.RankingRequest) (result []domain.RankedInstructor, err error) {
	defer observe("rankings", time.Now(), &err)

	// 1. Validate
	if err := s.check(req); err != nil {
		return nil, err
	}
	key := req.SortBy
	if key == "" {
		key = domain.SortComposite
	}

	// 2. Filter
	filter := domain.InstructorFilter{MinRatings: req.MinRatings}
	if dept := strings.TrimSpace(req.Department); dept != "" {
		filter.Department = s.normaliser.CanonicalDepartment(dept)
	}
	instructors, err := s.store.ListInstructors(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list instructors: %w", err)
	}

	// 3. Sort, truncate, rank
	sortInstructors(instructors, key, req.Order.Ascending(key))
	if req.Limit > 0 && len(instructors) > req.Limit {
		instructors = instructors[:req.Limit]
	}
	return assignRanks(instructors), nil
}

// GetDepartments returns every department rollup, by name.
func (s *QueryService) GetDepartments(ctx context.Context) (result []domain.DepartmentSummary, err error) {
	defer observe("departments", time.Now(), &err)

	agg, err := s.scoring.Aggregates(ctx)
	if err != nil {
		return nil, err
	}

	result = make([]domain.DepartmentSummary, 0, len(agg.Names))
	for _, name := range agg.Names {
		result = append(result, agg.Departments[name].DepartmentSummary)
	}
	return result, nil
}

// GetDepartmentDetail returns one department with its full breakdown.
func (s *QueryService) GetDepartmentDetail(ctx context.Context, name string) (result *domain.DepartmentDetail, err error) {
	defer observe("department_detail", time.Now(), &err)

	if strings.TrimSpace(name) == "" {
		return nil, domain.NewQueryError("department", "must not be empty")
	}

	agg, err := s.scoring.Aggregates(ctx)
	if err != nil {
		return nil, err
	}

	canonical := s.normaliser.CanonicalDepartment(name)
	detail, ok := agg.Departments[canonical]
	if !ok {
		return nil, fmt.Errorf("department %q: %w", canonical, domain.ErrNotFound)
	}
	out := *detail
	return &out, nil
}

// GetScheduleMatches maps each course code to the instructors teaching it,
// best composite first. Unmatched codes map to an empty slice.
func (s *QueryService) GetScheduleMatches(ctx context.Context, codes []string) (result map[string][]domain.Instructor, err error) {
	defer observe("schedule", time.Now(), &err)

	// 1. Validate and canonicalise
	if err := s.check(driving.ScheduleRequest{Codes: codes}); err != nil {
		return nil, err
	}

	canonical := make([]string, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, raw := range codes {
		code := s.normaliser.CanonicalCourse(raw)
		if code == "" {
			return nil, domain.NewQueryError("codes", fmt.Sprintf("%q is not a course code", raw))
		}
		if !seen[code] {
			seen[code] = true
			canonical = append(canonical, code)
		}
	}

	// 2. Match each code independently
	result = make(map[string][]domain.Instructor, len(canonical))
	for _, code := range canonical {
		matches, err := s.store.ListInstructors(ctx, domain.InstructorFilter{CourseCode: code})
		if err != nil {
			return nil, fmt.Errorf("match %s: %w", code, err)
		}
		if matches == nil {
			matches = []domain.Instructor{}
		}
		sortByComposite(matches)
		result[code] = matches
	}
	return result, nil
}

// GetInstructorReviews returns an instructor's cached reviews, newest first.
func (s *QueryService) GetInstructorReviews(ctx context.Context, instructorID int64) (result []domain.Review, err error) {
	defer observe("reviews", time.Now(), &err)

	if instructorID <= 0 {
		return nil, domain.NewQueryError("id", "must be positive")
	}
	if _, err := s.store.GetInstructor(ctx, instructorID); err != nil {
		return nil, fmt.Errorf("instructor %d: %w", instructorID, err)
	}

	reviews, err := s.store.ListReviews(ctx, instructorID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	return reviews, nil
}

// GetStats returns the global headline view.
func (s *QueryService) GetStats(ctx context.Context) (result *domain.Stats, err error) {
	defer observe("stats", time.Now(), &err)

	agg, err := s.scoring.Aggregates(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count cache: %w", err)
	}

	stats := &domain.Stats{
		TotalInstructors: len(agg.Instructors),
		TotalReviews:     counts.Reviews,
		RefreshState:     domain.RefreshIdle,
	}
	if s.refresh != nil {
		stats.RefreshState = s.refresh.State()
	}

	meta, err := s.store.GetIngestionMetadata(ctx)
	switch {
	case err == nil:
		stats.LastRefresh = meta.LastRefresh
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("get ingestion metadata: %w", err)
	}

	var quality mean
	type deptAcc struct {
		difficulty mean
		reviews    int
	}
	depts := make(map[string]*deptAcc)

	for i := range agg.Instructors {
		in := &agg.Instructors[i]
		if in.RatingCount > 0 {
			stats.RatedInstructors++
		}
		if in.RatingCount < statsMinRatings {
			continue
		}
		quality.add(in.Quality)

		if in.Department != domain.UnknownDepartment {
			acc := depts[in.Department]
			if acc == nil {
				acc = &deptAcc{}
				depts[in.Department] = acc
			}
			acc.reviews += in.RatingCount
			if in.Difficulty.Known {
				acc.difficulty.add(in.Difficulty)
			}
		}

		if in.RatingCount >= hardestInstructorMinRevs && in.Difficulty.Known {
			h := stats.HardestInstructor
			if h == nil || in.Difficulty.Value > h.Difficulty || (in.Difficulty.Value == h.Difficulty && in.ID < h.ID) {
				stats.HardestInstructor = &domain.StatsInstructor{
					ID:          in.ID,
					Name:        in.Name(),
					Department:  in.Department,
					Difficulty:  in.Difficulty.Value,
					RatingCount: in.RatingCount,
				}
			}
		}
	}
	stats.AvgQuality = quality.value()

	for name, acc := range depts {
		diff := acc.difficulty.value()
		if acc.reviews < hardestDeptMinReviews || !diff.Known {
			continue
		}
		avg := diff.Value
		h := stats.HardestDepartment
		if h == nil || avg > h.AvgDifficulty || (avg == h.AvgDifficulty && name < h.Name) {
			stats.HardestDepartment = &domain.StatsDepartment{Name: name, AvgDifficulty: avg, TotalReviews: acc.reviews}
		}
	}

	return stats, nil
}

// check validates a request struct, reporting the first failure as a
// QueryError.
func (s *QueryService) check(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.NewQueryError("request", err.Error())
	}

	fe := verrs[0]
	field := fe.Field()
	var reason string
	switch fe.Tag() {
	case "gte":
		reason = "must be at least " + fe.Param()
	case "oneof":
		reason = fmt.Sprintf("%q is not one of %s", fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		reason = "needs at least " + fe.Param()
	case "max":
		reason = "allows at most " + fe.Param()
	case "required":
		reason = "must not be empty"
	default:
		reason = "failed " + fe.Tag()
	}
	return domain.NewQueryError(field, reason)
}

// observe records a query's latency and outcome.
func observe(op string, start time.Time, err *error) {
	metrics.RecordQuery(op, time.Since(start), *err)
}

// sortInstructors orders by key. Unknown metrics sort last in either
// direction; ties fall back to ID ascending.
func sortInstructors(list []domain.Instructor, key domain.SortKey, ascending bool) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := &list[i], &list[j]

		if key == domain.SortName {
			an := strings.ToLower(a.LastName + " " + a.FirstName)
			bn := strings.ToLower(b.LastName + " " + b.FirstName)
			if an != bn {
				return (an < bn) == ascending
			}
			return a.ID < b.ID
		}

		av, bv := sortValue(a, key), sortValue(b, key)
		switch {
		case av.Known != bv.Known:
			return av.Known
		case av.Known && av.Value != bv.Value:
			return (av.Value < bv.Value) == ascending
		default:
			return a.ID < b.ID
		}
	})
}

// sortValue extracts the sort metric.
func sortValue(in *domain.Instructor, key domain.SortKey) domain.Metric {
	switch key {
	case domain.SortQuality:
		return in.Quality
	case domain.SortDifficulty:
		return in.Difficulty
	case domain.SortWouldTakeAgain:
		return in.WouldTakeAgain
	case domain.SortRatingCount:
		return domain.Known(float64(in.RatingCount))
	default:
		return domain.Known(in.Composite)
	}
}

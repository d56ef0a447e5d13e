package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/profrank/internal/core/domain"
	"github.com/custodia-labs/profrank/internal/core/ports/driven"
	"github.com/custodia-labs/profrank/internal/logger"
	"github.com/custodia-labs/profrank/internal/metrics"
)

// Composite score weights. They sum to 1.
const (
	WeightQuality        = 0.40
	WeightWouldTakeAgain = 0.35
	WeightEase           = 0.25

	// NeutralScore replaces an unknown metric's normalised value.
	NeutralScore = 0.5
)

// Score computes the composite score of three aggregate metrics:
//
//	0.40*quality/5 + 0.35*wouldTakeAgain/100 + 0.25*(1 - difficulty/5)
//
// An unknown metric contributes NeutralScore for its term. Each term is
// clamped to [0,1], so the result is too.
func Score(quality, difficulty, wouldTakeAgain domain.Metric) float64 {
	q := normalised(quality, 5)
	w := normalised(wouldTakeAgain, 100)
	d := normalised(difficulty, 5)
	if difficulty.Known {
		d = 1 - d
	}
	return WeightQuality*q + WeightWouldTakeAgain*w + WeightEase*d
}

// normalised maps a metric onto [0,1].
func normalised(m domain.Metric, scale float64) float64 {
	if !m.Known {
		return NeutralScore
	}
	return math.Max(0, math.Min(1, m.Value/scale))
}

// Aggregates is a derived snapshot of department rollups. It is rebuilt
// lazily from the cache and discarded whenever instructors change.
type Aggregates struct {
	// Departments maps canonical name to detail.
	Departments map[string]*domain.DepartmentDetail

	// Names lists departments alphabetically.
	Names []string

	// Instructors is every cached instructor, by ID.
	Instructors []domain.Instructor

	// BuiltAt is when the snapshot was taken.
	BuiltAt time.Time
}

// ScoringEngine keeps composite scores in step with metrics and serves
// aggregate snapshots.
type ScoringEngine struct {
	store    driven.CacheStore
	settings domain.QuerySettings

	group      singleflight.Group
	mu         sync.RWMutex
	snapshot   *Aggregates
	generation uint64
}

// NewScoringEngine creates a scoring engine over the cache.
func NewScoringEngine(store driven.CacheStore, settings domain.QuerySettings) *ScoringEngine {
	return &ScoringEngine{
		store:    store,
		settings: settings,
	}
}

// Apply sets an instructor's cached composite from its metrics.
func (e *ScoringEngine) Apply(instr *domain.Instructor) {
	instr.Composite = Score(instr.Quality, instr.Difficulty, instr.WouldTakeAgain)
}

// Recompute rescans the cache and rewrites composites that drifted from
// their metrics. Returns the number rewritten.
func (e *ScoringEngine) Recompute(ctx context.Context) (int, error) {
	instructors, err := e.store.ListInstructors(ctx, domain.InstructorFilter{})
	if err != nil {
		return 0, fmt.Errorf("list instructors: %w", err)
	}

	drifted := make(map[int64]float64)
	for i := range instructors {
		want := Score(instructors[i].Quality, instructors[i].Difficulty, instructors[i].WouldTakeAgain)
		if math.Abs(instructors[i].Composite-want) > 1e-9 {
			drifted[instructors[i].ID] = want
		}
	}

	if len(drifted) > 0 {
		if err := e.store.UpdateComposites(ctx, drifted); err != nil {
			return 0, fmt.Errorf("update composites: %w", err)
		}
		logger.Info("rescored %d instructors", len(drifted))
	}

	e.Invalidate()
	return len(drifted), nil
}

// Invalidate discards the aggregate snapshot.
func (e *ScoringEngine) Invalidate() {
	e.mu.Lock()
	e.generation++
	e.snapshot = nil
	e.mu.Unlock()
}

// Aggregates returns the current snapshot, rebuilding it if needed.
// Concurrent rebuilds share one cache scan.
func (e *ScoringEngine) Aggregates(ctx context.Context) (*Aggregates, error) {
	e.mu.RLock()
	snap, gen := e.snapshot, e.generation
	e.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	v, err, _ := e.group.Do(fmt.Sprintf("aggregates-%d", gen), func() (any, error) {
		// Shared by every waiter, so detached from any one caller's cancellation
		built, err := e.build(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		e.mu.Lock()
		// A page committed mid-build; serve this snapshot but don't keep it
		if e.generation == gen {
			e.snapshot = built
		}
		e.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Aggregates), nil
}

// build scans the cache and computes every department rollup.
func (e *ScoringEngine) build(ctx context.Context) (*Aggregates, error) {
	instructors, err := e.store.ListInstructors(ctx, domain.InstructorFilter{})
	if err != nil {
		return nil, fmt.Errorf("list instructors: %w", err)
	}
	metrics.AggregateRebuilds.Inc()

	byDept := make(map[string][]*domain.Instructor)
	for i := range instructors {
		d := instructors[i].Department
		byDept[d] = append(byDept[d], &instructors[i])
	}

	agg := &Aggregates{
		Departments: make(map[string]*domain.DepartmentDetail, len(byDept)),
		Names:       make([]string, 0, len(byDept)),
		Instructors: instructors,
		BuiltAt:     time.Now(),
	}
	for name, members := range byDept {
		agg.Departments[name] = e.department(name, members)
		agg.Names = append(agg.Names, name)
	}
	sort.Strings(agg.Names)

	return agg, nil
}

// department computes one department's rollup.
func (e *ScoringEngine) department(name string, members []*domain.Instructor) *domain.DepartmentDetail {
	var quality, difficulty, wta mean
	tags := make(map[string]int)
	courses := make(map[string]int)

	d := &domain.DepartmentDetail{}
	d.Name = name
	d.InstructorCount = len(members)

	for _, m := range members {
		d.TotalReviews += m.RatingCount
		if m.RatingCount > 0 {
			d.RatedCount++
			quality.add(m.Quality)
			difficulty.add(m.Difficulty)
			wta.add(m.WouldTakeAgain)
		}
		for _, t := range m.Tags {
			tags[t.Name] += t.Count
		}
		for _, c := range m.Courses {
			courses[c.Name] += c.Count
		}
	}

	d.AvgQuality = quality.value()
	d.AvgDifficulty = difficulty.value()
	d.AvgWouldTakeAgain = wta.value()
	d.Tags = rankCounts(tags)
	d.Courses = rankCounts(courses)
	d.TopTags = d.Tags[:min(len(d.Tags), e.settings.TopN)]
	d.TopInstructors = topInstructors(members, e.settings.DepartmentTopMinRatings, e.settings.TopN)
	return d
}

// mean accumulates an average over known metrics only.
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v domain.Metric) {
	if v.Known {
		m.sum += v.Value
		m.n++
	}
}

func (m *mean) value() domain.Metric {
	if m.n == 0 {
		return domain.Unknown()
	}
	return domain.Known(m.sum / float64(m.n))
}

// rankCounts orders summed counts by count descending, then name.
func rankCounts(totals map[string]int) []domain.Count {
	out := make([]domain.Count, 0, len(totals))
	for name, count := range totals {
		out = append(out, domain.Count{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// topInstructors ranks members with at least minRatings reviews by
// composite descending, ID ascending, keeping n.
func topInstructors(members []*domain.Instructor, minRatings, n int) []domain.RankedInstructor {
	eligible := make([]domain.Instructor, 0, len(members))
	for _, m := range members {
		if m.RatingCount >= minRatings {
			eligible = append(eligible, *m)
		}
	}
	sortByComposite(eligible)

	if len(eligible) > n {
		eligible = eligible[:n]
	}
	return assignRanks(eligible)
}

// sortByComposite orders best first with ID as the tie-break.
func sortByComposite(list []domain.Instructor) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Composite != list[j].Composite {
			return list[i].Composite > list[j].Composite
		}
		return list[i].ID < list[j].ID
	})
}

// assignRanks numbers a sorted list 1..n.
func assignRanks(list []domain.Instructor) []domain.RankedInstructor {
	ranked := make([]domain.RankedInstructor, len(list))
	for i := range list {
		ranked[i] = domain.RankedInstructor{Rank: i + 1, Instructor: list[i]}
	}
	return ranked
}

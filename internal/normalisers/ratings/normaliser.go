package ratings

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/custodia-labs/profrank/internal/core/domain"
	"github.com/custodia-labs/profrank/internal/core/ports/driven"
	"github.com/custodia-labs/profrank/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Metric ranges accepted from the source.
const (
	minRating  = 1.0
	maxRating  = 5.0
	maxPercent = 100.0
)

// Normaliser maps ratings-site records onto canonical instructors and reviews.
type Normaliser struct {
	log zerolog.Logger
}

// New creates a new ratings normaliser.
func New() *Normaliser {
	return &Normaliser{log: logger.With("normaliser")}
}

// CanonicalDepartment implements driven.Normaliser.
func (n *Normaliser) CanonicalDepartment(name string) string {
	return CanonicalDepartment(name)
}

// CanonicalCourse implements driven.Normaliser.
func (n *Normaliser) CanonicalCourse(code string) string {
	return CanonicalCourse(code)
}

// Normalise converts one page. Malformed records and reviews are skipped
// and reported as warnings; the error return is reserved for a nil page.
func (n *Normaliser) Normalise(_ context.Context, page *domain.RawPage) (*domain.NormalisedBatch, error) {
	if page == nil {
		return nil, domain.ErrInvalidInput
	}

	batch := &domain.NormalisedBatch{
		Items: make([]domain.InstructorBundle, 0, len(page.Records)),
	}
	seen := make(map[int64]bool, len(page.Records))

	for i := range page.Records {
		rec := &page.Records[i]
		ref := recordRef(rec, i)

		instr, err := normaliseInstructor(rec)
		if err != nil {
			n.warn(batch, ref, err)
			continue
		}
		if seen[instr.ID] {
			continue
		}
		seen[instr.ID] = true

		bundle := domain.InstructorBundle{Instructor: *instr}
		for j := range rec.Reviews {
			review, err := normaliseReview(instr.ID, &rec.Reviews[j])
			if err != nil {
				n.warn(batch, fmt.Sprintf("%s review #%d", ref, j), err)
				continue
			}
			bundle.Reviews = append(bundle.Reviews, *review)
		}

		batch.Items = append(batch.Items, bundle)
	}

	return batch, nil
}

// warn records and logs a skipped record.
func (n *Normaliser) warn(batch *domain.NormalisedBatch, ref string, err error) {
	batch.Warnings = append(batch.Warnings, domain.NormalisationWarning{Ref: ref, Reason: err.Error()})
	n.log.Warn().Str("record", ref).Err(err).Msg("skipping malformed record")
}

// recordRef identifies a raw record as well as possible.
func recordRef(rec *domain.RawInstructor, index int) string {
	if rec.LegacyID != nil {
		return fmt.Sprintf("instructor %d", *rec.LegacyID)
	}
	if rec.NodeID != "" {
		return "instructor " + rec.NodeID
	}
	return fmt.Sprintf("record #%d", index)
}

// malformed builds a normalisation error.
func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrNormalisation, fmt.Sprintf(format, args...))
}

// normaliseInstructor validates and maps one raw record.
func normaliseInstructor(rec *domain.RawInstructor) (*domain.Instructor, error) {
	// 1. Identity
	if rec.LegacyID == nil || *rec.LegacyID <= 0 {
		return nil, malformed("missing instructor id")
	}

	first, last := trimmed(rec.FirstName), trimmed(rec.LastName)
	if first == "" && last == "" {
		return nil, malformed("missing name")
	}

	// 2. Metrics
	quality, err := ratingMetric("quality", rec.AvgRating)
	if err != nil {
		return nil, err
	}
	difficulty, err := ratingMetric("difficulty", rec.AvgDifficulty)
	if err != nil {
		return nil, err
	}
	wta, err := percentMetric(rec.WouldTakeAgainPercent)
	if err != nil {
		return nil, err
	}

	ratingCount := 0
	if rec.NumRatings != nil {
		if *rec.NumRatings < 0 {
			return nil, malformed("negative rating count %d", *rec.NumRatings)
		}
		ratingCount = *rec.NumRatings
	}

	// 3. Multisets
	tags := mergeCounts(rec.Tags, strings.TrimSpace)
	courses := mergeCounts(rec.Courses, CanonicalCourse)

	// 4. Department
	rawDept := trimmed(rec.Department)
	dept := resolveSubDepartment(CanonicalDepartment(rawDept), courses)

	return &domain.Instructor{
		ID:             *rec.LegacyID,
		NodeID:         rec.NodeID,
		FirstName:      first,
		LastName:       last,
		Department:     dept,
		RawDepartment:  rawDept,
		Quality:        quality,
		Difficulty:     difficulty,
		WouldTakeAgain: wta,
		RatingCount:    ratingCount,
		Tags:           tags,
		Courses:        courses,
	}, nil
}

// ratingMetric maps a 1-5 average. The source reports 0 for "no ratings".
func ratingMetric(name string, v *float64) (domain.Metric, error) {
	if v == nil || *v == 0 {
		return domain.Unknown(), nil
	}
	if *v < minRating || *v > maxRating {
		return domain.Unknown(), malformed("%s %v out of range [1,5]", name, *v)
	}
	return domain.Known(*v), nil
}

// percentMetric maps a 0-100 percentage. The source reports -1 for unknown.
func percentMetric(v *float64) (domain.Metric, error) {
	if v == nil || *v < 0 {
		return domain.Unknown(), nil
	}
	if *v > maxPercent {
		return domain.Unknown(), malformed("would-take-again %v out of range [0,100]", *v)
	}
	return domain.Known(*v), nil
}

// mergeCounts drops empty names and non-positive counts, merges duplicate
// names after canonicalisation, and sorts by count descending then name.
func mergeCounts(raw []domain.RawCount, canonical func(string) string) []domain.Count {
	totals := make(map[string]int)
	for _, rc := range raw {
		if rc.Name == nil || rc.Count == nil || *rc.Count <= 0 {
			continue
		}
		name := canonical(*rc.Name)
		if name == "" {
			continue
		}
		totals[name] += *rc.Count
	}

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

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

package file

import (
	"path/filepath"
	"time"

	"github.com/custodia-labs/profrank/internal/core/domain"
	"github.com/custodia-labs/profrank/internal/core/ports/driven"
)

// Configuration keys.
const (
	KeyDataDir                 = "data_dir"
	KeySourceEndpoint          = "source.endpoint"
	KeySourceAuthToken         = "source.auth_token"
	KeySourceSchoolID          = "source.school_id"
	KeySourcePageSize          = "source.page_size"
	KeySourceReviews           = "source.reviews_per_instructor"
	KeySourceSearchTerms       = "source.search_terms"
	KeySourceRequestInterval   = "source.request_interval"
	KeySourceTimeout           = "source.timeout"
	KeyRefreshMaxAge           = "refresh.max_age"
	KeyRefreshRetryAttempts    = "refresh.retry_attempts"
	KeyRefreshRetryDelay       = "refresh.retry_delay"
	KeyRefreshCheckInterval    = "refresh.check_interval"
	KeyQueryTopN               = "query.top_n"
	KeyQueryDepartmentMinRated = "query.department_top_min_ratings"
	KeyLogLevel                = "log.level"
	KeyLogFormat               = "log.format"
	KeyServerAddr              = "server.addr"
)

// LoadSettings materialises typed settings from a config store.
// Missing or unparsable keys keep their defaults.
func LoadSettings(store driven.ConfigStore) domain.Settings {
	s := domain.DefaultSettings()

	s.DataDir = stringOr(store, KeyDataDir, filepath.Join(filepath.Dir(store.Path()), "data"))

	s.Source.Endpoint = stringOr(store, KeySourceEndpoint, s.Source.Endpoint)
	s.Source.AuthToken = stringOr(store, KeySourceAuthToken, s.Source.AuthToken)
	s.Source.SchoolID = positiveIntOr(store, KeySourceSchoolID, s.Source.SchoolID)
	s.Source.PageSize = positiveIntOr(store, KeySourcePageSize, s.Source.PageSize)
	s.Source.ReviewsPerInstructor = nonNegativeIntOr(store, KeySourceReviews, s.Source.ReviewsPerInstructor)
	if terms := store.GetStringSlice(KeySourceSearchTerms); len(terms) > 0 {
		s.Source.SearchTerms = terms
	}
	s.Source.RequestInterval = durationOr(store, KeySourceRequestInterval, s.Source.RequestInterval)
	s.Source.Timeout = durationOr(store, KeySourceTimeout, s.Source.Timeout)

	s.Refresh.MaxAge = durationOr(store, KeyRefreshMaxAge, s.Refresh.MaxAge)
	s.Refresh.RetryAttempts = positiveIntOr(store, KeyRefreshRetryAttempts, s.Refresh.RetryAttempts)
	s.Refresh.RetryDelay = durationOr(store, KeyRefreshRetryDelay, s.Refresh.RetryDelay)
	s.Refresh.CheckInterval = durationOr(store, KeyRefreshCheckInterval, s.Refresh.CheckInterval)

	s.Query.TopN = positiveIntOr(store, KeyQueryTopN, s.Query.TopN)
	s.Query.DepartmentTopMinRatings = nonNegativeIntOr(store, KeyQueryDepartmentMinRated, s.Query.DepartmentTopMinRatings)

	s.Log.Level = stringOr(store, KeyLogLevel, s.Log.Level)
	s.Log.Format = stringOr(store, KeyLogFormat, s.Log.Format)

	s.Server.Addr = stringOr(store, KeyServerAddr, s.Server.Addr)

	return s
}

func stringOr(store driven.ConfigStore, key, fallback string) string {
	if v := store.GetString(key); v != "" {
		return v
	}
	return fallback
}

func positiveIntOr(store driven.ConfigStore, key string, fallback int) int {
	if v := store.GetInt(key); v > 0 {
		return v
	}
	return fallback
}

func nonNegativeIntOr(store driven.ConfigStore, key string, fallback int) int {
	if _, ok := store.Get(key); !ok {
		return fallback
	}
	if v := store.GetInt(key); v >= 0 {
		return v
	}
	return fallback
}

func durationOr(store driven.ConfigStore, key string, fallback time.Duration) time.Duration {
	if v := store.GetDuration(key); v > 0 {
		return v
	}
	return fallback
}

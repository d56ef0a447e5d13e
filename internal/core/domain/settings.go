package domain

import "time"

// SourceSettings configures the review source connection.
type SourceSettings struct {
	// Endpoint is the GraphQL URL.
	Endpoint string

	// AuthToken is sent verbatim as the Authorization header.
	AuthToken string

	// SchoolID is the institution's numeric identifier.
	SchoolID int

	// PageSize is the number of instructors per request.
	PageSize int

	// ReviewsPerInstructor is how many recent reviews travel with each
	// instructor record.
	ReviewsPerInstructor int

	// SearchTerms are the search prefixes walked to enumerate the
	// institution, since the source caps results per query.
	SearchTerms []string

	// RequestInterval is the minimum spacing between requests.
	RequestInterval time.Duration

	// Timeout bounds a single HTTP request.
	Timeout time.Duration
}

// RefreshSettings configures the freshness controller.
type RefreshSettings struct {
	// MaxAge is how long a cache stays fresh.
	MaxAge time.Duration

	// RetryAttempts is the number of fetch attempts per page.
	RetryAttempts int

	// RetryDelay is the base delay between attempts.
	RetryDelay time.Duration

	// CheckInterval is how often the background scheduler checks freshness.
	CheckInterval time.Duration
}

// QuerySettings configures derived views.
type QuerySettings struct {
	// TopN caps top-instructor and top-tag lists.
	TopN int

	// DepartmentTopMinRatings is the minimum review count for an
	// instructor to appear in a department's top list.
	DepartmentTopMinRatings int
}

// LogSettings configures the logger.
type LogSettings struct {
	Level  string
	Format string
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Addr string
}

// Settings is the complete application configuration.
type Settings struct {
	DataDir string
	Source  SourceSettings
	Refresh RefreshSettings
	Query   QuerySettings
	Log     LogSettings
	Server  ServerSettings
}

// DefaultSearchTerms are the single-letter prefixes a..z.
func DefaultSearchTerms() []string {
	terms := make([]string, 0, 26)
	for c := 'a'; c <= 'z'; c++ {
		terms = append(terms, string(c))
	}
	return terms
}

// DefaultSettings returns sensible defaults.
func DefaultSettings() Settings {
	return Settings{
		Source: SourceSettings{
			Endpoint:             "https://www.ratemyprofessors.com/graphql",
			AuthToken:            "Basic dGVzdDp0ZXN0",
			SchoolID:             877,
			PageSize:             20,
			ReviewsPerInstructor: 20,
			SearchTerms:          DefaultSearchTerms(),
			RequestInterval:      100 * time.Millisecond,
			Timeout:              30 * time.Second,
		},
		Refresh: RefreshSettings{
			MaxAge:        7 * 24 * time.Hour,
			RetryAttempts: 3,
			RetryDelay:    time.Second,
			CheckInterval: time.Hour,
		},
		Query: QuerySettings{
			TopN:                    5,
			DepartmentTopMinRatings: 3,
		},
		Log: LogSettings{
			Level:  "info",
			Format: "console",
		},
		Server: ServerSettings{
			Addr: "127.0.0.1:8080",
		},
	}
}

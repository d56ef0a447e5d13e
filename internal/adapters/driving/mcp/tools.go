package mcp

import (
	"context"
	"sort"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/profrank/internal/core/domain"
	"github.com/custodia-labs/profrank/internal/core/ports/driving"
)

// defaultRankingLimit caps get_rankings when the caller sets no limit.
const defaultRankingLimit = 25

// ==================== Tool Schemas ====================

// RankingsInput is the input schema for the get_rankings tool.
type RankingsInput struct {
	Department string `json:"department,omitempty" jsonschema:"department name to filter by"`
	MinRatings *int   `json:"min_ratings,omitempty" jsonschema:"minimum number of reviews (default 5)"`
	SortBy     string `json:"sort_by,omitempty" jsonschema:"composite, quality, difficulty, would_take_again, rating_count or name"`
	Order      string `json:"order,omitempty" jsonschema:"asc or desc; difficulty and name default to asc"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of results (default 25)"`
}

// RankingsOutput is the output schema for the get_rankings tool.
type RankingsOutput struct {
	Instructors []InstructorOutput `json:"instructors"`
	Count       int                `json:"count"`
}

// InstructorOutput is one instructor. Missing metrics are null.
type InstructorOutput struct {
	Rank           int      `json:"rank,omitempty"`
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Department     string   `json:"department"`
	Quality        *float64 `json:"quality"`
	Difficulty     *float64 `json:"difficulty"`
	WouldTakeAgain *float64 `json:"would_take_again"`
	RatingCount    int      `json:"rating_count"`
	Composite      float64  `json:"composite_score"`
	TopTags        []string `json:"top_tags,omitempty"`
}

// DepartmentInput is the input schema for the get_department tool.
type DepartmentInput struct {
	Name string `json:"name" jsonschema:"department name"`
}

// DepartmentOutput is the output schema for the get_department tool.
type DepartmentOutput struct {
	Name              string             `json:"name"`
	InstructorCount   int                `json:"instructor_count"`
	RatedCount        int                `json:"rated_count"`
	TotalReviews      int                `json:"total_reviews"`
	AvgQuality        *float64           `json:"avg_quality"`
	AvgDifficulty     *float64           `json:"avg_difficulty"`
	AvgWouldTakeAgain *float64           `json:"avg_would_take_again"`
	TopTags           []domain.Count     `json:"top_tags"`
	TopCourses        []domain.Count     `json:"top_courses"`
	TopInstructors    []InstructorOutput `json:"top_instructors"`
}

// ScheduleInput is the input schema for the match_schedule tool.
type ScheduleInput struct {
	Courses []string `json:"courses" jsonschema:"course codes such as CS101, 1 to 20 of them"`
}

// ScheduleOutput is the output schema for the match_schedule tool.
type ScheduleOutput struct {
	Matches []CourseMatch `json:"matches"`
}

// CourseMatch lists the instructors teaching one course, best first.
type CourseMatch struct {
	Course      string             `json:"course"`
	Instructors []InstructorOutput `json:"instructors"`
}

// StatsInput is the input schema for the get_stats tool.
type StatsInput struct{}

// StatsOutput is the output schema for the get_stats tool.
type StatsOutput struct {
	TotalInstructors  int                     `json:"total_instructors"`
	RatedInstructors  int                     `json:"rated_instructors"`
	TotalReviews      int                     `json:"total_reviews"`
	AvgQuality        *float64                `json:"avg_quality"`
	HardestDepartment *domain.StatsDepartment `json:"hardest_department,omitempty"`
	HardestInstructor *domain.StatsInstructor `json:"hardest_instructor,omitempty"`
	LastRefresh       string                  `json:"last_refresh,omitempty"`
	RefreshState      string                  `json:"refresh_state"`
	Stale             *bool                   `json:"stale,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_rankings",
		Description: "Rank instructors by composite score or a single metric, optionally within one department",
	}, s.handleRankings)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_department",
		Description: "Summarise one department: averages, common tags, popular courses and top instructors",
	}, s.handleDepartment)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "match_schedule",
		Description: "List the instructors teaching each course code, best composite score first",
	}, s.handleSchedule)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_stats",
		Description: "Headline numbers for the cached review data and its freshness",
	}, s.handleStats)
}

// ==================== Tool Handlers ====================

// handleRankings handles the get_rankings tool invocation.
func (s *Server) handleRankings(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RankingsInput,
) (*mcp.CallToolResult, RankingsOutput, error) {
	req := driving.RankingRequest{
		Department: input.Department,
		MinRatings: driving.DefaultMinRatings,
		SortBy:     domain.SortKey(input.SortBy),
		Order:      domain.SortOrder(input.Order),
		Limit:      input.Limit,
	}
	if input.MinRatings != nil {
		req.MinRatings = *input.MinRatings
	}
	if req.Limit <= 0 {
		req.Limit = defaultRankingLimit
	}

	ranked, err := s.ports.Query.GetRankings(ctx, req)
	if err != nil {
		return nil, RankingsOutput{}, err
	}

	output := RankingsOutput{
		Instructors: make([]InstructorOutput, len(ranked)),
		Count:       len(ranked),
	}
	for i := range ranked {
		output.Instructors[i] = toInstructorOutput(&ranked[i].Instructor, ranked[i].Rank)
	}
	return nil, output, nil
}

// handleDepartment handles the get_department tool invocation.
func (s *Server) handleDepartment(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DepartmentInput,
) (*mcp.CallToolResult, DepartmentOutput, error) {
	d, err := s.ports.Query.GetDepartmentDetail(ctx, input.Name)
	if err != nil {
		return nil, DepartmentOutput{}, err
	}

	output := DepartmentOutput{
		Name:              d.Name,
		InstructorCount:   d.InstructorCount,
		RatedCount:        d.RatedCount,
		TotalReviews:      d.TotalReviews,
		AvgQuality:        d.AvgQuality.Ptr(),
		AvgDifficulty:     d.AvgDifficulty.Ptr(),
		AvgWouldTakeAgain: d.AvgWouldTakeAgain.Ptr(),
		TopTags:           d.TopTags,
		TopCourses:        d.Courses[:min(len(d.Courses), 10)],
		TopInstructors:    make([]InstructorOutput, len(d.TopInstructors)),
	}
	for i := range d.TopInstructors {
		output.TopInstructors[i] = toInstructorOutput(&d.TopInstructors[i].Instructor, d.TopInstructors[i].Rank)
	}
	return nil, output, nil
}

// handleSchedule handles the match_schedule tool invocation.
func (s *Server) handleSchedule(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ScheduleInput,
) (*mcp.CallToolResult, ScheduleOutput, error) {
	matches, err := s.ports.Query.GetScheduleMatches(ctx, input.Courses)
	if err != nil {
		return nil, ScheduleOutput{}, err
	}

	codes := make([]string, 0, len(matches))
	for code := range matches {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	output := ScheduleOutput{Matches: make([]CourseMatch, len(codes))}
	for i, code := range codes {
		list := matches[code]
		cm := CourseMatch{Course: code, Instructors: make([]InstructorOutput, len(list))}
		for j := range list {
			cm.Instructors[j] = toInstructorOutput(&list[j], j+1)
		}
		output.Matches[i] = cm
	}
	return nil, output, nil
}

// handleStats handles the get_stats tool invocation.
func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatsInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	stats, err := s.ports.Query.GetStats(ctx)
	if err != nil {
		return nil, StatsOutput{}, err
	}

	output := StatsOutput{
		TotalInstructors:  stats.TotalInstructors,
		RatedInstructors:  stats.RatedInstructors,
		TotalReviews:      stats.TotalReviews,
		AvgQuality:        stats.AvgQuality.Ptr(),
		HardestDepartment: stats.HardestDepartment,
		HardestInstructor: stats.HardestInstructor,
		RefreshState:      string(stats.RefreshState),
	}
	if !stats.LastRefresh.IsZero() {
		output.LastRefresh = stats.LastRefresh.Format(time.RFC3339)
	}

	if s.ports.Refresh != nil {
		report, err := s.ports.Refresh.Status(ctx)
		if err != nil {
			return nil, StatsOutput{}, err
		}
		output.Stale = &report.Stale
	}
	return nil, output, nil
}

// toInstructorOutput flattens an instructor for tool output.
func toInstructorOutput(in *domain.Instructor, rank int) InstructorOutput {
	out := InstructorOutput{
		Rank:           rank,
		ID:             in.ID,
		Name:           in.Name(),
		Department:     in.Department,
		Quality:        in.Quality.Ptr(),
		Difficulty:     in.Difficulty.Ptr(),
		WouldTakeAgain: in.WouldTakeAgain.Ptr(),
		RatingCount:    in.RatingCount,
		Composite:      in.Composite,
	}
	for i := 0; i < len(in.Tags) && i < 3; i++ {
		out.TopTags = append(out.TopTags, in.Tags[i].Name)
	}
	return out
}

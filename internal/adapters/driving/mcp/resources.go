package mcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for profrank resources.
	uriScheme = "profrank://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "departments",
		Name:        "departments",
		Description: "Every department with its instructor count and averages",
		MIMEType:    "application/json",
	}, s.handleDepartmentsResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "refresh",
		Name:        "refresh-status",
		Description: "Cache freshness and recent ingestion runs",
		MIMEType:    "application/json",
	}, s.handleRefreshResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "instructors/{instructorId}/reviews",
		Name:        "instructor-reviews",
		Description: "Cached reviews for one instructor, newest first",
		MIMEType:    "application/json",
	}, s.handleReviewsResource)
}

// handleDepartmentsResource returns every department summary.
func (s *Server) handleDepartmentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	depts, err := s.ports.Query.GetDepartments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing departments: %w", err)
	}
	return jsonResource(req.Params.URI, depts)
}

// handleRefreshResource returns the freshness report.
func (s *Server) handleRefreshResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Refresh == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	report, err := s.ports.Refresh.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh status: %w", err)
	}
	return jsonResource(req.Params.URI, report)
}

// handleReviewsResource returns one instructor's reviews.
func (s *Server) handleReviewsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id, ok := extractInstructorID(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	reviews, err := s.ports.Query.GetInstructorReviews(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	return jsonResource(req.Params.URI, reviews)
}

// jsonResource encodes v as a single JSON resource.
func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractInstructorID parses profrank://instructors/{id}/reviews.
func extractInstructorID(uri string) (int64, bool) {
	const prefix = uriScheme + "instructors/"
	const suffix = "/reviews"

	if !strings.HasPrefix(uri, prefix) || !strings.HasSuffix(uri, suffix) {
		return 0, false
	}

	raw := strings.TrimSuffix(strings.TrimPrefix(uri, prefix), suffix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

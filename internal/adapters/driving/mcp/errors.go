// Package mcp provides an MCP (Model Context Protocol) server adapter for
// profrank. It lets AI assistants rank instructors, inspect departments and
// match a schedule against the local review cache.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")

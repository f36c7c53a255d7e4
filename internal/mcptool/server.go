// Package mcptool exposes the track search as a Model Context Protocol tool
// over the streamable HTTP transport.
package mcptool

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/justestif/spotify-search-tool/internal/search"
	"github.com/justestif/spotify-search-tool/internal/session"
)

const (
	// ToolName is the MCP name of the search tool.
	ToolName = "search_tracks"

	// EndpointPath is where the streamable HTTP transport is mounted.
	EndpointPath = "/mcp"
)

// Searcher runs a track search for a session.
type Searcher interface {
	Search(ctx context.Context, sessionID, query string) (*search.Result, error)
}

// Server wraps an MCP server exposing search_tracks.
type Server struct {
	mcp      *server.MCPServer
	searcher Searcher
	sessions *session.Store
}

// New creates the MCP server and registers the search tool.
func New(searcher Searcher, sessions *session.Store, version string) *Server {
	s := &Server{
		mcp: server.NewMCPServer(
			"spotify-search",
			version,
			server.WithToolCapabilities(false),
		),
		searcher: searcher,
		sessions: sessions,
	}

	tool := mcp.NewTool(ToolName,
		mcp.WithDescription("Search for tracks on Spotify. Returns top 5 matching tracks."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query for tracks"),
		),
	)
	s.mcp.AddTool(tool, s.handleSearch)

	return s
}

// Handler returns the streamable HTTP handler. The caller's session is
// resolved from the request the same way the REST surface does it.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp,
		server.WithEndpointPath(EndpointPath),
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return session.NewContext(ctx, s.sessions.Resolve(r))
		}),
	)
}

// handleSearch runs search_tracks. Failures are reported as tool errors
// carrying the same messages as the REST endpoint.
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := session.FromContext(ctx)
	if !ok {
		id = s.sessions.SharedKey()
	}

	result, err := s.searcher.Search(ctx, id, request.GetString("query", ""))
	if err != nil {
		return mcp.NewToolResultError(search.Message(err)), nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(search.MessageUpstream), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

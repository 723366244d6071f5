// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the compiled taxonomy to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wmo-im/codelists/internal/apperr"
	"github.com/wmo-im/codelists/internal/index"
	"github.com/wmo-im/codelists/internal/topicservice"
)

const formatURI = "codelists://document-format"

// Server wraps the MCP server with taxonomy tools.
type Server struct {
	mcp     *server.MCPServer
	svc     *topicservice.Service
	rebuild index.RebuildFunc
}

// New creates a new MCP server. The compile tool is only registered when
// rebuild is non-nil.
func New(svc *topicservice.Service, rebuild index.RebuildFunc) *Server {
	s := &Server{svc: svc, rebuild: rebuild}

	s.mcp = server.NewMCPServer(
		"codelists",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_topics",
		mcp.WithDescription("Full-text search through taxonomy node names and descriptions."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchTopics)

	s.mcp.AddTool(mcp.NewTool("read_topic",
		mcp.WithDescription("Read the generated Turtle document of a taxonomy node."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Node path (e.g. topic-hierarchy/ocean)")),
	), s.readTopic)

	s.mcp.AddTool(mcp.NewTool("get_topic",
		mcp.WithDescription("Return a node with its members and recent registry activity as JSON."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Node path")),
	), s.getTopic)

	s.mcp.AddTool(mcp.NewTool("list_children",
		mcp.WithDescription("List the direct members of a node in source order. "+
			"An empty path lists the root."),
		mcp.WithString("path", mcp.Description("Node path (empty for the root)")),
	), s.listChildren)

	s.mcp.AddTool(mcp.NewTool("sync_status",
		mcp.WithDescription("Summarize the latest registry classification of every document."),
		mcp.WithNumber("limit", mcp.Description("Number of recent ledger entries to include")),
	), s.syncStatus)

	s.mcp.AddTool(mcp.NewTool("get_document_format",
		mcp.WithDescription("Returns the description of the CSV source layout and the generated documents."),
	), s.getDocumentFormat)

	if rebuild != nil {
		s.mcp.AddTool(mcp.NewTool("compile",
			mcp.WithDescription("Regenerate the output tree from the CSV sources."),
		), s.compile)
	}

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Document Format",
			mcp.WithResourceDescription("CSV source layout and generated SKOS document shapes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchTopics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) readTopic(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.svc.Document(ctx, strings.TrimSuffix(strings.Trim(path, "/"), ".ttl"))
	if err != nil {
		return failure(path, err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getTopic(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	topic, err := s.svc.GetTopic(ctx, strings.Trim(path, "/"))
	if err != nil {
		return failure(path, err), nil
	}
	return jsonResult(topic)
}

func (s *Server) listChildren(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := strings.Trim(req.GetString("path", ""), "/")
	items, err := s.svc.Children(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no members"), nil
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = it.Path + " (" + it.Role + ")"
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) syncStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.svc.SyncStatus(ctx, req.GetInt("limit", 10))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(status)
}

func (s *Server) compile(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.rebuild(ctx, "mcp"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("compiled"), nil
}

func (s *Server) getDocumentFormat(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormat), nil
}

func (s *Server) readFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     DocumentFormat,
		},
	}, nil
}

func failure(path string, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path))
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

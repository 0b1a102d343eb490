package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rotisserie/eris"

	"github.com/kalambet/rootcause/internal/pipeline"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Sessions *Sessions
	Status   StatusSource
	Stats    DashboardSource // optional; if nil, dataset_stats returns an error
	Version  string
}

// NewMCPServer creates an MCP server exposing the root cause assistant.
// All ask_root_cause calls without a session_id share one conversation.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"rootcause",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("rootcause answers questions about customer-service escalations from an interaction log, an escalation audit and an operations report."),
		server.WithRecovery(),
	)

	defaultSession := deps.Sessions.CreatePinned()

	s.AddTool(
		mcp.NewTool("ask_root_cause",
			mcp.WithDescription("Ask a root cause question. Mentioning escalation, root cause, failure, sentiment or customer feedback pulls matching interaction notes into the context."),
			mcp.WithString("query", mcp.Description("The question to ask"), mcp.Required()),
			mcp.WithString("session_id", mcp.Description("Optional conversation to continue; defaults to this server's session")),
		),
		mcpAskRootCause(deps, defaultSession),
	)

	s.AddTool(
		mcp.NewTool("suggested_questions",
			mcp.WithDescription("List the canned starter questions."),
		),
		mcpSuggestedQuestions(),
	)

	s.AddTool(
		mcp.NewTool("dataset_stats",
			mcp.WithDescription("Return record count, average sentiment and per-department response times as JSON."),
			mcp.WithNumber("top", mcp.Description("Maximum number of department and industry rows (default all)")),
		),
		mcpDatasetStats(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"rootcause://sources",
			"Evidence Sources",
			mcp.WithResourceDescription("Load status of the interaction log, audit report, operations report and reasoning service"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceSources(deps),
	)

	return s
}

func mcpAskRootCause(deps MCPDeps, defaultSession string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil || strings.TrimSpace(query) == "" {
			return mcpError("query is required"), nil
		}

		id := req.GetString("session_id", "")
		if id == "" {
			id = defaultSession
		}

		ans, found, err := deps.Sessions.Ask(ctx, id, query)
		if !found {
			return mcpError(fmt.Sprintf("session %q not found", id)), nil
		}
		if err != nil {
			return mcpError(err.Error()), nil
		}

		res := mcpText(ans.Text)
		res.IsError = ans.Kind != pipeline.KindOK
		return res, nil
	}
}

func mcpSuggestedQuestions() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var sb strings.Builder
		for i, q := range pipeline.SuggestedQuestions() {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, q)
		}
		return mcpText(sb.String()), nil
	}
}

func mcpDatasetStats(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Stats == nil {
			return mcpError("stats warehouse is not configured"), nil
		}
		d, err := deps.Stats.Dashboard(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to compute stats: %v", err)), nil
		}
		b, err := json.MarshalIndent(d.Top(req.GetInt("top", 0)), "", "  ")
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal stats: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceSources(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Status.Status())
		if err != nil {
			return nil, eris.Wrap(err, "failed to marshal status")
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

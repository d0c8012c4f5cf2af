// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hylla/shopfloor/internal/adapters/server/common"
	"github.com/hylla/shopfloor/internal/app"
	"github.com/hylla/shopfloor/internal/render"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Service is the production surface exposed as MCP tools.
type Service interface {
	common.RunService
	common.BoardService
	OrderReport(context.Context, string) (app.OrderReport, error)
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing board and stage tools.
func NewHandler(cfg Config, svc Service) (*Handler, error) {
	if svc == nil {
		return nil, fmt.Errorf("production service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerReadTools(mcpSrv, svc)
	registerStageTools(mcpSrv, svc)
	registerBoardTools(mcpSrv, svc)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "shopfloor"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerReadTools registers run, report, dashboard, and activity lookups.
func registerReadTools(srv *mcpserver.MCPServer, svc Service) {
	srv.AddTool(
		mcp.NewTool(
			"shopfloor.dashboard",
			mcp.WithDescription("Return production counters: active orders, running stages, overdue runs."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			dashboard, err := svc.Dashboard(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("dashboard", dashboard)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"shopfloor.list_runs",
			mcp.WithDescription("List production runs, newest first."),
			mcp.WithString("order_id", mcp.Description("Only runs of this order")),
			mcp.WithBoolean("published_only", mcp.Description("Only runs visible on the board")),
			mcp.WithBoolean("include_archived", mcp.Description("Include runs of archived orders")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			runs, err := svc.ListRuns(ctx, app.RunFilter{
				OrderID:         req.GetString("order_id", ""),
				PublishedOnly:   req.GetBool("published_only", false),
				IncludeArchived: req.GetBool("include_archived", false),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_runs", map[string]any{"runs": runs})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"shopfloor.get_run",
			mcp.WithDescription("Return one production run with its items and stages."),
			mcp.WithString("run_id", mcp.Required(), mcp.Description("Run identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			runID, err := req.RequireString("run_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			run, err := svc.GetRun(ctx, runID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("get_run", run)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"shopfloor.stage_events",
			mcp.WithDescription("List the newest stage activity entries of one run."),
			mcp.WithString("run_id", mcp.Required(), mcp.Description("Run identifier")),
			mcp.WithNumber("limit", mcp.Description("Maximum entries (default 50)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			runID, err := req.RequireString("run_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			events, err := svc.ListStageEvents(ctx, runID, req.GetInt("limit", 0))
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("stage_events", map[string]any{"events": events})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"shopfloor.order_report",
			mcp.WithDescription("Summarize one order's production progress."),
			mcp.WithString("order_id", mcp.Required(), mcp.Description("Order identifier")),
			mcp.WithString("format", mcp.Description("json or markdown"), mcp.Enum("json", "markdown")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			orderID, err := req.RequireString("order_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			report, err := svc.OrderReport(ctx, orderID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			if req.GetString("format", "json") == "markdown" {
				return mcp.NewToolResultText(render.OrderReportMarkdown(report)), nil
			}
			return jsonResult("order_report", report)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"shopfloor.stage_templates",
			mcp.WithDescription("List the stage templates available when adding stages."),
		),
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return jsonResult("stage_templates", map[string]any{"templates": svc.StageTemplates()})
		},
	)
}

// jsonResult encodes one structured tool result.
func jsonResult(tool string, payload any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", tool, err)
	}
	return result, nil
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	if err == nil {
		return mcp.NewToolResultError("internal_error: unknown error")
	}
	return mcp.NewToolResultError(common.Classify(err).Code + ": " + err.Error())
}

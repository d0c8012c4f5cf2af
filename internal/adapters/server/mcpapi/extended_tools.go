package mcpapi

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hylla/shopfloor/internal/adapters/server/common"
	"github.com/hylla/shopfloor/internal/app"
)

// stageRefFromRequest reads the required stage address arguments.
func stageRefFromRequest(req mcp.CallToolRequest) (app.StageRef, error) {
	runID, err := req.RequireString("run_id")
	if err != nil {
		return app.StageRef{}, err
	}
	itemID, err := req.RequireString("item_id")
	if err != nil {
		return app.StageRef{}, err
	}
	stageID, err := req.RequireString("stage_id")
	if err != nil {
		return app.StageRef{}, err
	}
	return app.StageRef{RunID: runID, ItemID: itemID, StageID: stageID}, nil
}

// stageRefOptions declares the stage address arguments.
func stageRefOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run identifier")),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("Order item identifier within the run")),
		mcp.WithString("stage_id", mcp.Required(), mcp.Description("Stage identifier")),
	}
}

// registerStageTools registers timer, status, and checklist commands.
func registerStageTools(srv *mcpserver.MCPServer, svc Service) {
	stageOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Run one stage command: start or pause the timer, reset it, complete, or advance the status."),
		mcp.WithString("command", mcp.Required(), mcp.Description("Stage command"), mcp.Enum(common.StageCommands()...)),
	}, stageRefOptions()...)
	srv.AddTool(
		mcp.NewTool("shopfloor.stage_command", stageOpts...),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			ref, err := stageRefFromRequest(req)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			command, err := req.RequireString("command")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			stage, err := svc.StageCommand(ctx, ref, command)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("stage_command", stage)
		},
	)

	checklistOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Edit a stage checklist. toggle, rename, and remove need check_id; add and rename need text."),
		mcp.WithString("op", mcp.Required(), mcp.Description("Checklist operation"), mcp.Enum(
			common.ChecklistAdd,
			common.ChecklistToggle,
			common.ChecklistRename,
			common.ChecklistRemove,
			common.ChecklistMarkAll,
		)),
		mcp.WithString("check_id", mcp.Description("Checklist item identifier")),
		mcp.WithString("text", mcp.Description("Checklist item text")),
		mcp.WithBoolean("done", mcp.Description("Target state for mark_all (default true)")),
	}, stageRefOptions()...)
	srv.AddTool(
		mcp.NewTool("shopfloor.checklist", checklistOpts...),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			ref, err := stageRefFromRequest(req)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			op, err := req.RequireString("op")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			stage, err := svc.ChecklistCommand(ctx, common.ChecklistRequest{
				Stage:  ref,
				Op:     op,
				ItemID: req.GetString("check_id", ""),
				Text:   req.GetString("text", ""),
				Done:   req.GetBool("done", true),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("checklist", stage)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"shopfloor.publish_run",
			mcp.WithDescription("Publish or unpublish one production run on the board."),
			mcp.WithString("run_id", mcp.Required(), mcp.Description("Run identifier")),
			mcp.WithBoolean("published", mcp.Description("Target state (default true)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			runID, err := req.RequireString("run_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			publish := svc.PublishRun
			if !req.GetBool("published", true) {
				publish = svc.UnpublishRun
			}
			run, err := publish(ctx, runID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("publish_run", run)
		},
	)
}

// registerBoardTools registers the kanban board query and card moves.
func registerBoardTools(srv *mcpserver.MCPServer, svc Service) {
	srv.AddTool(
		mcp.NewTool(
			"shopfloor.board",
			mcp.WithDescription("Return the kanban board: cards of published runs grouped into status lanes per item."),
			mcp.WithString("query", mcp.Description("Case and accent insensitive search over client, product, stage, and ids")),
			mcp.WithBoolean("overdue_only", mcp.Description("Only cards past their SLA")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			board, err := svc.Board(ctx, app.CardFilter{
				Query:       req.GetString("query", ""),
				OverdueOnly: req.GetBool("overdue_only", false),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("board", board)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"shopfloor.move_card",
			mcp.WithDescription("Move one card into a status lane of the same run item."),
			mcp.WithString("card_key", mcp.Required(), mcp.Description("Card key run::item::stage")),
			mcp.WithString("lane_key", mcp.Required(), mcp.Description("Lane key run::item::status")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			cardKey, err := req.RequireString("card_key")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			laneKey, err := req.RequireString("lane_key")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			stage, err := svc.MoveCard(ctx, common.MoveCardRequest{CardKey: cardKey, LaneKey: laneKey})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("move_card", stage)
		},
	)
}

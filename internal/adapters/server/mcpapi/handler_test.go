package mcpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hylla/shopfloor/internal/adapters/server/common"
	"github.com/hylla/shopfloor/internal/adapters/storage/sqlite"
	"github.com/hylla/shopfloor/internal/app"
	"github.com/hylla/shopfloor/internal/domain"
)

// jsonRPCResponse models minimal JSON-RPC response fields used in MCP adapter tests.
type jsonRPCResponse struct {
	ID     float64        `json:"id"`
	Result map[string]any `json:"result"`
}

// fixture holds one MCP test server over a seeded production service.
type fixture struct {
	server *httptest.Server
	ref    app.StageRef
	run    domain.ProductionRun
}

// newFixture seeds one published run with a cutting stage and serves the MCP handler.
func newFixture(t *testing.T) fixture {
	t.Helper()
	repo, err := sqlite.Open(filepath.Join(t.TempDir(), "shopfloor.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	n := 0
	svc := app.NewService(repo, func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}, func() time.Time { return now }, app.ServiceConfig{})
	adapter := common.NewAppServiceAdapter(svc)

	ctx := context.Background()
	sla := now.Add(72 * time.Hour)
	order, err := adapter.CreateOrder(ctx, app.CreateOrderInput{
		ClientName:  "Escola Aurora",
		SLADeadline: &sla,
		Lines:       []app.OrderLineInput{{ProductName: "Polo Shirt", QuantityBySize: domain.SizeQuantities{"M": 25}}},
	})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	run, err := adapter.CreateRunFromOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("CreateRunFromOrder() error = %v", err)
	}
	stage, err := adapter.AddStage(ctx, common.AddStageRequest{
		Template:      "cutting",
		AddStageInput: app.AddStageInput{RunID: run.ID, ItemID: run.Items[0].ID},
	})
	if err != nil {
		t.Fatalf("AddStage() error = %v", err)
	}
	if run, err = adapter.PublishRun(ctx, run.ID); err != nil {
		t.Fatalf("PublishRun() error = %v", err)
	}

	handler, err := NewHandler(Config{}, adapter)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	return fixture{
		server: server,
		ref:    app.StageRef{RunID: run.ID, ItemID: run.Items[0].ID, StageID: stage.ID},
		run:    run,
	}
}

// callTool invokes one tool and returns its first text block and error flag.
func (f fixture) callTool(t *testing.T, name string, args map[string]any) (string, bool) {
	t.Helper()
	_, resp := postJSONRPC(t, f.server.Client(), f.server.URL, map[string]any{
		"jsonrpc": "2.0",
		"id":      7,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      name,
			"arguments": args,
		},
	})
	contentRaw, ok := resp.Result["content"].([]any)
	if !ok || len(contentRaw) == 0 {
		t.Fatalf("content missing in tool result: %#v", resp.Result)
	}
	first, _ := contentRaw[0].(map[string]any)
	text, _ := first["text"].(string)
	isError, _ := resp.Result["isError"].(bool)
	return text, isError
}

// stageArgs returns the stage address arguments plus extras.
func (f fixture) stageArgs(extra map[string]any) map[string]any {
	args := map[string]any{
		"run_id":   f.ref.RunID,
		"item_id":  f.ref.ItemID,
		"stage_id": f.ref.StageID,
	}
	for k, v := range extra {
		args[k] = v
	}
	return args
}

// postJSONRPC sends one JSON-RPC payload and decodes the response body.
func postJSONRPC(t *testing.T, client *http.Client, url string, payload any) (*http.Response, jsonRPCResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	var decoded jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if err := resp.Body.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return resp, decoded
}

// initializeRequest builds a deterministic MCP initialize request payload.
func initializeRequest() map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
			"clientInfo": map[string]any{
				"name":    "shopfloor-test",
				"version": "1.0.0",
			},
		},
	}
}

// TestNewHandlerRequiresService verifies a nil service is rejected.
func TestNewHandlerRequiresService(t *testing.T) {
	if _, err := NewHandler(Config{}, nil); err == nil {
		t.Fatalf("NewHandler(nil) error = nil, want error")
	}
}

// TestHandlerUsesStatelessTransport verifies MCP transport does not issue session ids.
func TestHandlerUsesStatelessTransport(t *testing.T) {
	f := newFixture(t)
	resp, decoded := postJSONRPC(t, f.server.Client(), f.server.URL, initializeRequest())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if decoded.ID != 1 {
		t.Fatalf("id = %v, want 1", decoded.ID)
	}
	if got := resp.Header.Get("Mcp-Session-Id"); got != "" {
		t.Fatalf("Mcp-Session-Id header = %q, want empty (stateless transport)", got)
	}
}

// TestHandlerRegistersTools verifies tool discovery lists the production tools.
func TestHandlerRegistersTools(t *testing.T) {
	f := newFixture(t)
	_, toolsResp := postJSONRPC(t, f.server.Client(), f.server.URL, map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/list",
	})
	toolsRaw, ok := toolsResp.Result["tools"].([]any)
	if !ok {
		t.Fatalf("tools list payload missing tools: %#v", toolsResp.Result)
	}
	toolNames := make([]string, 0, len(toolsRaw))
	for _, toolRaw := range toolsRaw {
		toolMap, ok := toolRaw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := toolMap["name"].(string)
		toolNames = append(toolNames, name)
	}
	for _, required := range []string{
		"shopfloor.board",
		"shopfloor.move_card",
		"shopfloor.stage_command",
		"shopfloor.checklist",
		"shopfloor.get_run",
		"shopfloor.dashboard",
		"shopfloor.order_report",
	} {
		if !slices.Contains(toolNames, required) {
			t.Fatalf("tool list missing %s: %#v", required, toolNames)
		}
	}
}

// TestStageToolsDriveTimerAndChecklist verifies stage commands and checklist edits through MCP.
func TestStageToolsDriveTimerAndChecklist(t *testing.T) {
	f := newFixture(t)

	text, isError := f.callTool(t, "shopfloor.stage_command", f.stageArgs(map[string]any{"command": "start"}))
	if isError {
		t.Fatalf("stage_command(start) error = %s", text)
	}
	var stage domain.Stage
	if err := json.Unmarshal([]byte(text), &stage); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if stage.Status != domain.StatusInProgress || !stage.Timer.Running {
		t.Fatalf("expected running in_progress stage, got %#v", stage)
	}

	text, isError = f.callTool(t, "shopfloor.stage_command", f.stageArgs(map[string]any{"command": "start"}))
	if !isError || !strings.HasPrefix(text, "invalid_state:") {
		t.Fatalf("second start = %q (error=%v), want invalid_state", text, isError)
	}
	text, isError = f.callTool(t, "shopfloor.stage_command", f.stageArgs(map[string]any{"command": "complete"}))
	if !isError || !strings.HasPrefix(text, "validation:") {
		t.Fatalf("complete with open checklist = %q (error=%v), want validation", text, isError)
	}

	text, isError = f.callTool(t, "shopfloor.checklist", f.stageArgs(map[string]any{"op": "mark_all"}))
	if isError {
		t.Fatalf("checklist(mark_all) error = %s", text)
	}
	text, isError = f.callTool(t, "shopfloor.stage_command", f.stageArgs(map[string]any{"command": "complete"}))
	if isError {
		t.Fatalf("stage_command(complete) error = %s", text)
	}
	if err := json.Unmarshal([]byte(text), &stage); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if stage.Status != domain.StatusDone || stage.Timer.Running || stage.CompletedAt == nil {
		t.Fatalf("expected paused done stage, got %#v", stage)
	}

	text, isError = f.callTool(t, "shopfloor.stage_command", map[string]any{"run_id": f.ref.RunID, "command": "start"})
	if !isError || !strings.Contains(text, "item_id") {
		t.Fatalf("missing item_id = %q (error=%v), want required-argument error", text, isError)
	}
}

// TestBoardToolsMoveCards verifies board listing and lane moves, including cross-run rejection.
func TestBoardToolsMoveCards(t *testing.T) {
	f := newFixture(t)

	text, isError := f.callTool(t, "shopfloor.board", map[string]any{"query": "aurora"})
	if isError {
		t.Fatalf("board error = %s", text)
	}
	var board app.BoardView
	if err := json.Unmarshal([]byte(text), &board); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(board.Cards) != 1 || board.Cards[0].SLABadge != "D-3" {
		t.Fatalf("unexpected board cards %#v", board.Cards)
	}
	card := board.Cards[0]

	lane := app.LaneRef{RunID: card.RunID, ItemID: card.ItemID, Status: domain.StatusInProgress}.Key()
	text, isError = f.callTool(t, "shopfloor.move_card", map[string]any{"card_key": card.Key, "lane_key": lane})
	if isError {
		t.Fatalf("move_card error = %s", text)
	}
	var stage domain.Stage
	if err := json.Unmarshal([]byte(text), &stage); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if stage.Status != domain.StatusInProgress {
		t.Fatalf("status = %q, want in_progress", stage.Status)
	}

	foreign := app.LaneRef{RunID: "other-run", ItemID: card.ItemID, Status: domain.StatusToDo}.Key()
	text, isError = f.callTool(t, "shopfloor.move_card", map[string]any{"card_key": card.Key, "lane_key": foreign})
	if !isError || !strings.HasPrefix(text, "cross_run_move:") {
		t.Fatalf("foreign move = %q (error=%v), want cross_run_move", text, isError)
	}
	text, isError = f.callTool(t, "shopfloor.move_card", map[string]any{"card_key": "bogus", "lane_key": lane})
	if !isError || !strings.HasPrefix(text, "invalid_request:") {
		t.Fatalf("bogus key = %q (error=%v), want invalid_request", text, isError)
	}
}

// TestReadToolsReturnReports verifies run lookup, reports, and not-found mapping.
func TestReadToolsReturnReports(t *testing.T) {
	f := newFixture(t)

	text, isError := f.callTool(t, "shopfloor.get_run", map[string]any{"run_id": "missing"})
	if !isError || !strings.HasPrefix(text, "not_found:") {
		t.Fatalf("get_run(missing) = %q (error=%v), want not_found", text, isError)
	}

	text, isError = f.callTool(t, "shopfloor.order_report", map[string]any{"order_id": f.run.OrderID, "format": "markdown"})
	if isError {
		t.Fatalf("order_report error = %s", text)
	}
	if !strings.Contains(text, "# Order "+f.run.OrderID) || !strings.Contains(text, "| Cutting |") {
		t.Fatalf("unexpected markdown report:\n%s", text)
	}

	text, isError = f.callTool(t, "shopfloor.dashboard", map[string]any{})
	if isError {
		t.Fatalf("dashboard error = %s", text)
	}
	var dashboard app.Dashboard
	if err := json.Unmarshal([]byte(text), &dashboard); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if dashboard.PublishedRuns != 1 || dashboard.UnitsInProduction != 25 {
		t.Fatalf("unexpected dashboard %#v", dashboard)
	}
}

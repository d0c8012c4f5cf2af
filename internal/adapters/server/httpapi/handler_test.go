package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hylla/shopfloor/internal/adapters/server/common"
	"github.com/hylla/shopfloor/internal/adapters/storage/sqlite"
	"github.com/hylla/shopfloor/internal/adapters/storage/userfile"
	"github.com/hylla/shopfloor/internal/app"
	"github.com/hylla/shopfloor/internal/auth"
	"github.com/hylla/shopfloor/internal/domain"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "secret123"
)

// apiFixture serves the API over real storage and auth services.
type apiFixture struct {
	server *httptest.Server
	auth   *auth.Service
	admin  string
	viewer string
}

// newAPIFixture wires sqlite, the user file store, and a seeded admin plus viewer.
func newAPIFixture(t *testing.T) apiFixture {
	t.Helper()
	dir := t.TempDir()
	repo, err := sqlite.Open(filepath.Join(dir, "shopfloor.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	users, err := userfile.Open(filepath.Join(dir, "users.json"))
	if err != nil {
		t.Fatalf("userfile.Open() error = %v", err)
	}

	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	n := 0
	idGen := func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	svc := app.NewService(repo, idGen, clock, app.ServiceConfig{})
	authSvc, err := auth.NewService(users, idGen, clock, auth.Config{
		Secret:     []byte("test-secret"),
		BcryptCost: bcrypt.MinCost,
	})
	if err != nil {
		t.Fatalf("auth.NewService() error = %v", err)
	}

	ctx := context.Background()
	if _, _, err := authSvc.SeedAdminIfEmpty(ctx, auth.SeedAdmin{Email: adminEmail, Password: adminPassword}); err != nil {
		t.Fatalf("SeedAdminIfEmpty() error = %v", err)
	}
	viewer, err := authSvc.CreateUser(ctx, auth.CreateUserInput{
		Name:     "Viewer",
		Email:    "viewer@example.com",
		Role:     domain.RoleViewer,
		Password: "viewer123",
	})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	adminToken, _, err := authSvc.IssueToken(auth.SeedAdminID)
	if err != nil {
		t.Fatalf("IssueToken(admin) error = %v", err)
	}
	viewerToken, _, err := authSvc.IssueToken(viewer.ID)
	if err != nil {
		t.Fatalf("IssueToken(viewer) error = %v", err)
	}

	handler := NewHandler(Config{}, common.NewAppServiceAdapter(svc), authSvc)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return apiFixture{server: server, auth: authSvc, admin: adminToken, viewer: viewerToken}
}

// do sends one request with an optional bearer token and JSON body.
func (f apiFixture) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.server.Client().Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return resp, raw
}

// decodeBody decodes one JSON response body into the requested type.
func decodeBody[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v", raw, err)
	}
	return out
}

// expectError asserts one error envelope status and code.
func expectError(t *testing.T, resp *http.Response, raw []byte, wantStatus int, wantCode string) APIError {
	t.Helper()
	if resp.StatusCode != wantStatus {
		t.Fatalf("status = %d, want %d (body %s)", resp.StatusCode, wantStatus, raw)
	}
	env := decodeBody[ErrorEnvelope](t, raw)
	if env.Error.Code != wantCode {
		t.Fatalf("error code = %q, want %q", env.Error.Code, wantCode)
	}
	return env.Error
}

// TestLoginSetsSessionCookie verifies login issues a usable cookie and logout clears it.
func TestLoginSetsSessionCookie(t *testing.T) {
	f := newAPIFixture(t)

	resp, raw := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ADMIN@example.com", "password": adminPassword})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200 (body %s)", resp.StatusCode, raw)
	}
	session := decodeBody[auth.Session](t, raw)
	if session.Token == "" || session.User.ID != auth.SeedAdminID || session.User.PasswordHash != "" {
		t.Fatalf("unexpected session %#v", session)
	}
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly || cookie.Value != session.Token {
		t.Fatalf("expected HttpOnly session cookie, got %#v", cookie)
	}
	if cookie.MaxAge != int(auth.DefaultTokenTTL/time.Second) {
		t.Fatalf("cookie MaxAge = %d, want %d", cookie.MaxAge, int(auth.DefaultTokenTTL/time.Second))
	}

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/auth/me", nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.AddCookie(cookie)
	meResp, err := f.server.Client().Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer meResp.Body.Close()
	if meResp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d, want 200", meResp.StatusCode)
	}

	resp, _ = f.do(t, http.MethodPost, "/auth/logout", "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status = %d, want 204", resp.StatusCode)
	}
	cleared := false
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("expected logout to clear the session cookie")
	}
}

// TestAuthFailuresAreOpaque verifies bad credentials and missing tokens return 401.
func TestAuthFailuresAreOpaque(t *testing.T) {
	f := newAPIFixture(t)

	resp, raw := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": adminEmail, "password": "wrong"})
	apiErr := expectError(t, resp, raw, http.StatusUnauthorized, "unauthorized")
	if apiErr.Message != "invalid credentials" {
		t.Fatalf("message = %q, want invalid credentials", apiErr.Message)
	}

	resp, raw = f.do(t, http.MethodGet, "/board", "", nil)
	apiErr = expectError(t, resp, raw, http.StatusUnauthorized, "unauthorized")
	if apiErr.Message != "unauthorized" {
		t.Fatalf("message = %q, want unauthorized", apiErr.Message)
	}

	resp, raw = f.do(t, http.MethodGet, "/board", "not-a-token", nil)
	expectError(t, resp, raw, http.StatusUnauthorized, "unauthorized")

	resp, raw = f.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": adminEmail, "password": adminPassword, "extra": true})
	expectError(t, resp, raw, http.StatusBadRequest, "invalid_request")
}

// TestPermissionsGateRoutes verifies role bundles limit which routes a user reaches.
func TestPermissionsGateRoutes(t *testing.T) {
	f := newAPIFixture(t)

	resp, raw := f.do(t, http.MethodGet, "/board", f.viewer, nil)
	apiErr := expectError(t, resp, raw, http.StatusForbidden, "forbidden")
	if apiErr.Context["required"] == nil {
		t.Fatalf("expected required permissions in context, got %#v", apiErr.Context)
	}
	resp, raw = f.do(t, http.MethodGet, "/users", f.viewer, nil)
	expectError(t, resp, raw, http.StatusForbidden, "forbidden")

	resp, raw = f.do(t, http.MethodGet, "/dashboard", f.viewer, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard status = %d, want 200 (body %s)", resp.StatusCode, raw)
	}
	resp, raw = f.do(t, http.MethodGet, "/nowhere", f.viewer, nil)
	expectError(t, resp, raw, http.StatusNotFound, "not_found")
}

// TestUserAdministration verifies user CRUD mapping, including conflicts and protected users.
func TestUserAdministration(t *testing.T) {
	f := newAPIFixture(t)

	resp, raw := f.do(t, http.MethodPost, "/users", f.admin, map[string]any{
		"name":     "Floor Lead",
		"email":    "lead@example.com",
		"role":     "production",
		"password": "lead1234",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201 (body %s)", resp.StatusCode, raw)
	}
	created := decodeBody[domain.User](t, raw)
	if !created.Can(domain.PermKanban) || created.Can(domain.PermConfig) {
		t.Fatalf("unexpected permissions %#v", created.Permissions)
	}

	resp, raw = f.do(t, http.MethodPost, "/users", f.admin, map[string]any{
		"name":     "Dup",
		"email":    "LEAD@example.com",
		"role":     "viewer",
		"password": "lead1234",
	})
	expectError(t, resp, raw, http.StatusConflict, "conflict")

	resp, raw = f.do(t, http.MethodPost, "/users", f.admin, map[string]any{
		"name":     "Short",
		"email":    "short@example.com",
		"role":     "viewer",
		"password": "abc",
	})
	expectError(t, resp, raw, http.StatusUnprocessableEntity, "validation")

	resp, raw = f.do(t, http.MethodDelete, "/users/"+auth.SeedAdminID, f.admin, nil)
	expectError(t, resp, raw, http.StatusBadRequest, "invalid_request")

	resp, _ = f.do(t, http.MethodDelete, "/users/"+created.ID, f.admin, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}
	resp, raw = f.do(t, http.MethodGet, "/users/"+created.ID, f.admin, nil)
	expectError(t, resp, raw, http.StatusNotFound, "not_found")
}

// TestProductionFlow drives an order through runs, stages, the board, and reports.
func TestProductionFlow(t *testing.T) {
	f := newAPIFixture(t)

	resp, raw := f.do(t, http.MethodPost, "/orders", f.admin, map[string]any{
		"client_name":  "Escola Aurora",
		"sla_deadline": "2026-02-24T12:00:00Z",
		"lines": []map[string]any{{
			"product_name":     "Polo Shirt",
			"color_name":       "Navy",
			"quantity_by_size": map[string]int{"P": 10, "M": 25},
		}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create order status = %d (body %s)", resp.StatusCode, raw)
	}
	order := decodeBody[domain.Order](t, raw)

	resp, raw = f.do(t, http.MethodPost, "/runs", f.admin, map[string]string{"order_id": order.ID})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create run status = %d (body %s)", resp.StatusCode, raw)
	}
	run := decodeBody[domain.ProductionRun](t, raw)
	itemID := run.Items[0].ID

	resp, raw = f.do(t, http.MethodPost, "/runs/"+run.ID+"/items/"+itemID+"/stages", f.admin, map[string]string{"template": "cutting"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add stage status = %d (body %s)", resp.StatusCode, raw)
	}
	stage := decodeBody[domain.Stage](t, raw)
	stagePath := "/runs/" + run.ID + "/items/" + itemID + "/stages/" + stage.ID

	resp, raw = f.do(t, http.MethodPost, "/runs/"+run.ID+"/items/"+itemID+"/stages", f.admin, map[string]string{"template": "welding"})
	expectError(t, resp, raw, http.StatusBadRequest, "invalid_request")

	resp, raw = f.do(t, http.MethodGet, "/board", f.admin, nil)
	if board := decodeBody[app.BoardView](t, raw); len(board.Cards) != 0 {
		t.Fatalf("draft run should not be on the board, got %d cards", len(board.Cards))
	}
	if resp, raw = f.do(t, http.MethodPost, "/runs/"+run.ID+"/publish", f.admin, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("publish status = %d (body %s)", resp.StatusCode, raw)
	}

	resp, raw = f.do(t, http.MethodGet, "/board?q=AURORA", f.admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("board status = %d (body %s)", resp.StatusCode, raw)
	}
	board := decodeBody[app.BoardView](t, raw)
	if len(board.Cards) != 1 || board.Cards[0].SLABadge != "D-3" || board.Cards[0].ChecklistTotal != 2 {
		t.Fatalf("unexpected board %#v", board.Cards)
	}
	card := board.Cards[0]

	lane := app.LaneRef{RunID: run.ID, ItemID: itemID, Status: domain.StatusInProgress}.Key()
	resp, raw = f.do(t, http.MethodPost, "/board/move", f.admin, common.MoveCardRequest{CardKey: card.Key, LaneKey: lane})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("move status = %d (body %s)", resp.StatusCode, raw)
	}
	foreign := app.LaneRef{RunID: "run-other", ItemID: itemID, Status: domain.StatusDone}.Key()
	resp, raw = f.do(t, http.MethodPost, "/board/move", f.admin, common.MoveCardRequest{CardKey: card.Key, LaneKey: foreign})
	expectError(t, resp, raw, http.StatusConflict, "cross_run_move")

	resp, raw = f.do(t, http.MethodPost, stagePath+"/start", f.admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d (body %s)", resp.StatusCode, raw)
	}
	resp, raw = f.do(t, http.MethodPost, stagePath+"/start", f.admin, nil)
	expectError(t, resp, raw, http.StatusConflict, "invalid_state")
	resp, raw = f.do(t, http.MethodPost, stagePath+"/complete", f.admin, nil)
	expectError(t, resp, raw, http.StatusUnprocessableEntity, "validation")

	resp, raw = f.do(t, http.MethodPost, stagePath+"/checklist/mark-all", f.admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark-all status = %d (body %s)", resp.StatusCode, raw)
	}
	resp, raw = f.do(t, http.MethodPost, stagePath+"/complete", f.admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete status = %d (body %s)", resp.StatusCode, raw)
	}
	done := decodeBody[domain.Stage](t, raw)
	if done.Status != domain.StatusDone || done.Timer.Running {
		t.Fatalf("expected paused done stage, got %#v", done)
	}

	resp, raw = f.do(t, http.MethodGet, "/orders/"+order.ID+"/report?format=markdown", f.viewer, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("report status = %d (body %s)", resp.StatusCode, raw)
	}
	if got := resp.Header.Get("Content-Type"); !strings.HasPrefix(got, "text/markdown") {
		t.Fatalf("content type = %q, want text/markdown", got)
	}
	if !strings.Contains(string(raw), "# Order "+order.ID) || !strings.Contains(string(raw), "Stages done:** 1/1") {
		t.Fatalf("unexpected report:\n%s", raw)
	}

	resp, raw = f.do(t, http.MethodGet, "/runs/"+run.ID+"/events?limit=abc", f.admin, nil)
	expectError(t, resp, raw, http.StatusBadRequest, "invalid_request")
	resp, raw = f.do(t, http.MethodGet, "/runs/"+run.ID+"/events", f.admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events status = %d (body %s)", resp.StatusCode, raw)
	}
	events := decodeBody[struct {
		Events []domain.StageEvent `json:"events"`
	}](t, raw)
	if len(events.Events) == 0 || events.Events[0].Operation != domain.StageOpComplete {
		t.Fatalf("unexpected events %#v", events.Events)
	}
}

// TestOrderStatusAndSnapshot verifies status parsing and snapshot round trips over HTTP.
func TestOrderStatusAndSnapshot(t *testing.T) {
	f := newAPIFixture(t)

	resp, raw := f.do(t, http.MethodPost, "/orders", f.admin, map[string]any{
		"client_name": "Walk-in",
		"lines":       []map[string]any{{"product_name": "Cap", "quantity_by_size": map[string]int{"UN": 12}}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create order status = %d (body %s)", resp.StatusCode, raw)
	}
	order := decodeBody[domain.Order](t, raw)

	resp, raw = f.do(t, http.MethodPatch, "/orders/"+order.ID+"/status", f.admin, map[string]string{"status": "teleported"})
	expectError(t, resp, raw, http.StatusBadRequest, "invalid_request")
	resp, raw = f.do(t, http.MethodPatch, "/orders/"+order.ID+"/status", f.admin, map[string]string{"status": "in_production"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status update = %d (body %s)", resp.StatusCode, raw)
	}

	resp, raw = f.do(t, http.MethodGet, "/snapshot", f.admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d (body %s)", resp.StatusCode, raw)
	}
	snap := decodeBody[app.Snapshot](t, raw)
	if len(snap.Orders) != 1 || snap.Orders[0].Status != domain.OrderInProduction {
		t.Fatalf("unexpected snapshot orders %#v", snap.Orders)
	}

	resp, raw = f.do(t, http.MethodPost, "/snapshot", f.admin, snap)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import status = %d (body %s)", resp.StatusCode, raw)
	}
	counts := decodeBody[map[string]int](t, raw)
	if counts["orders"] != 1 {
		t.Fatalf("import counts = %#v", counts)
	}
}

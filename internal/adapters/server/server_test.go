package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"

	"github.com/hylla/shopfloor/internal/adapters/server/common"
	"github.com/hylla/shopfloor/internal/adapters/storage/sqlite"
	"github.com/hylla/shopfloor/internal/adapters/storage/userfile"
	"github.com/hylla/shopfloor/internal/app"
	"github.com/hylla/shopfloor/internal/auth"
	"github.com/hylla/shopfloor/internal/domain"
	"github.com/hylla/shopfloor/internal/metrics"
)

// failingPinger simulates unreachable storage.
type failingPinger struct{}

// Ping always fails.
func (failingPinger) Ping(context.Context) error {
	return errors.New("database is locked")
}

// testDeps wires real services over temp storage plus tokens for two roles.
func testDeps(t *testing.T) (Dependencies, string, string, *bytes.Buffer) {
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
	recorder := metrics.NewPrometheusRecorder(nil)
	svc := app.NewService(repo, idGen, clock, app.ServiceConfig{Recorder: recorder})
	authSvc, err := auth.NewService(users, idGen, clock, auth.Config{Secret: []byte("test-secret"), BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("auth.NewService() error = %v", err)
	}
	ctx := context.Background()
	if _, _, err := authSvc.SeedAdminIfEmpty(ctx, auth.SeedAdmin{Email: "admin@example.com", Password: "secret123"}); err != nil {
		t.Fatalf("SeedAdminIfEmpty() error = %v", err)
	}
	viewer, err := authSvc.CreateUser(ctx, auth.CreateUserInput{Name: "Viewer", Email: "viewer@example.com", Role: domain.RoleViewer, Password: "viewer123"})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	adminToken, _, err := authSvc.IssueToken(auth.SeedAdminID)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	viewerToken, _, err := authSvc.IssueToken(viewer.ID)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	var logs bytes.Buffer
	logger := log.NewWithOptions(&logs, log.Options{Level: log.DebugLevel})
	return Dependencies{
		Production: common.NewAppServiceAdapter(svc),
		Auth:       authSvc,
		Storage:    repo,
		Metrics:    recorder,
		Logger:     logger,
	}, adminToken, viewerToken, &logs
}

// request executes one request against handler in-process.
func request(handler http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json, text/event-stream")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// TestNormalizeConfig verifies defaults and endpoint collision checks.
func TestNormalizeConfig(t *testing.T) {
	cfg, err := normalizeConfig(Config{APIEndpoint: "api/v2/", MCPEndpoint: " "})
	if err != nil {
		t.Fatalf("normalizeConfig() error = %v", err)
	}
	if cfg.HTTPBind != defaultBindAddress || cfg.APIEndpoint != "/api/v2" || cfg.MCPEndpoint != "/mcp" || cfg.MetricsEndpoint != "/metrics" {
		t.Fatalf("unexpected normalized config %#v", cfg)
	}
	if cfg.ServerName != "shopfloor" || cfg.ShutdownTimeout != defaultShutdownTimeout {
		t.Fatalf("unexpected defaults %#v", cfg)
	}
	if _, err := normalizeConfig(Config{APIEndpoint: "/mcp"}); err == nil {
		t.Fatalf("normalizeConfig(api=/mcp) error = nil, want collision")
	}
	if _, err := normalizeConfig(Config{MetricsEndpoint: "/healthz"}); err == nil {
		t.Fatalf("normalizeConfig(metrics=/healthz) error = nil, want collision")
	}
}

// TestNewHandlerRequiresDependencies verifies missing services are rejected.
func TestNewHandlerRequiresDependencies(t *testing.T) {
	if _, _, err := NewHandler(Config{}, Dependencies{}); err == nil {
		t.Fatalf("NewHandler() error = nil, want missing production error")
	}
	deps, _, _, _ := testDeps(t)
	deps.Auth = nil
	if _, _, err := NewHandler(Config{}, deps); err == nil {
		t.Fatalf("NewHandler() error = nil, want missing auth error")
	}
}

// TestHandlerRoutesHealthAPIAndMetrics verifies the composed router.
func TestHandlerRoutesHealthAPIAndMetrics(t *testing.T) {
	deps, admin, _, logs := testDeps(t)
	handler, _, err := NewHandler(Config{}, deps)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	if rec := request(handler, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", rec.Code)
	}
	if rec := request(handler, http.MethodGet, "/readyz", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("readyz status = %d, want 200", rec.Code)
	}
	if rec := request(handler, http.MethodGet, "/api/v1/auth/me", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("me without token status = %d, want 401", rec.Code)
	}
	rec := request(handler, http.MethodGet, "/api/v1/dashboard", admin, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	rec = request(handler, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `shopfloor_http_requests_total{code="200",method="GET",route="/api/v1/dashboard"}`) {
		t.Fatalf("metrics missing dashboard request counter:\n%s", body)
	}
	if !strings.Contains(logs.String(), "http request") {
		t.Fatalf("expected access log lines, got %q", logs.String())
	}
}

// TestReadinessReportsStorageFailure verifies readyz fails while storage is down.
func TestReadinessReportsStorageFailure(t *testing.T) {
	deps, _, _, _ := testDeps(t)
	deps.Storage = failingPinger{}
	handler, _, err := NewHandler(Config{}, deps)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	if rec := request(handler, http.MethodGet, "/readyz", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d, want 503", rec.Code)
	}
	if rec := request(handler, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", rec.Code)
	}
}

// TestMCPEndpointRequiresKanbanPermission verifies MCP calls are authenticated and gated.
func TestMCPEndpointRequiresKanbanPermission(t *testing.T) {
	deps, admin, viewer, _ := testDeps(t)
	handler, _, err := NewHandler(Config{}, deps)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	initialize := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","clientInfo":{"name":"test","version":"1"}}}`

	if rec := request(handler, http.MethodPost, "/mcp", "", initialize); rec.Code != http.StatusUnauthorized {
		t.Fatalf("mcp without token status = %d, want 401", rec.Code)
	}
	if rec := request(handler, http.MethodPost, "/mcp", viewer, initialize); rec.Code != http.StatusForbidden {
		t.Fatalf("mcp as viewer status = %d, want 403", rec.Code)
	}
	rec := request(handler, http.MethodPost, "/mcp", admin, initialize)
	if rec.Code != http.StatusOK {
		t.Fatalf("mcp as admin status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"serverInfo"`) {
		t.Fatalf("initialize response missing serverInfo: %s", rec.Body.String())
	}
}

// TestServeShutsDownOnCancel verifies graceful shutdown leaves no goroutines behind.
func TestServeShutsDownOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, listener, http.HandlerFunc(writeHealthStatus), time.Second)
	}()

	transport := &http.Transport{}
	client := &http.Client{Transport: transport, Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + listener.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	transport.CloseIdleConnections()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve() did not return after cancel")
	}
}

// TestRunReportsListenFailure verifies bind errors surface instead of hanging.
func TestRunReportsListenFailure(t *testing.T) {
	deps, _, _, _ := testDeps(t)
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer occupied.Close()

	err = Run(context.Background(), Config{HTTPBind: occupied.Addr().String()}, deps)
	if err == nil || !strings.Contains(err.Error(), "listen") {
		t.Fatalf("Run() error = %v, want listen failure", err)
	}
}

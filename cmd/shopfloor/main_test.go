package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/google/uuid"

	serveradapter "github.com/hylla/shopfloor/internal/adapters/server"
	"github.com/hylla/shopfloor/internal/adapters/storage/sqlite"
	"github.com/hylla/shopfloor/internal/app"
	"github.com/hylla/shopfloor/internal/config"
	"github.com/hylla/shopfloor/internal/domain"
)

// TestMain sets deterministic environment defaults for CLI tests.
func TestMain(m *testing.M) {
	_ = os.Setenv("SHOPFLOOR_DEV_MODE", "false")
	os.Exit(m.Run())
}

// cliEnv isolates one CLI invocation set under a temp dir.
type cliEnv struct {
	dir  string
	args []string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg-config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "xdg-data"))
	for _, key := range []string{"JWT_SECRET", "SHOPFLOOR_JWT_SECRET", "SEED_ADMIN_PASSWORD", "SHOPFLOOR_BACKUP_ENABLED", "SHOPFLOOR_CONFIG", "PORT"} {
		t.Setenv(key, "")
	}
	return cliEnv{
		dir: dir,
		args: []string{
			"--config", filepath.Join(dir, "config.toml"),
			"--db", filepath.Join(dir, "shopfloor.db"),
			"--users", filepath.Join(dir, "users.json"),
		},
	}
}

// run executes one command with the isolated storage flags.
func (e cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), append(args, e.args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

// seedProduction creates one order with a published run directly in the database.
func seedProduction(t *testing.T, dbPath string) domain.Order {
	t.Helper()
	repo, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	defer repo.Close()
	svc := app.NewService(repo, uuid.NewString, nil, app.ServiceConfig{})
	ctx := context.Background()
	sla := time.Now().Add(72 * time.Hour)
	order, err := svc.CreateOrder(ctx, app.CreateOrderInput{
		ClientName:  "Escola Aurora",
		SLADeadline: &sla,
		Lines:       []app.OrderLineInput{{ProductName: "Polo Shirt", QuantityBySize: domain.SizeQuantities{"M": 25}}},
	})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	run, err := svc.CreateRunFromOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("CreateRunFromOrder() error = %v", err)
	}
	if _, err := svc.AddStageFromTemplate(ctx, run.ID, run.Items[0].ID, "cutting"); err != nil {
		t.Fatalf("AddStageFromTemplate() error = %v", err)
	}
	if _, err := svc.Publish(ctx, run.ID); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	return order
}

func TestRunVersion(t *testing.T) {
	env := newCLIEnv(t)
	stdout, _, err := env.run(t, "--version")
	if err != nil {
		t.Fatalf("run(--version) error = %v", err)
	}
	if !strings.Contains(stdout, version) {
		t.Fatalf("expected version %q in output, got %q", version, stdout)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	env := newCLIEnv(t)
	if _, _, err := env.run(t, "launch"); err == nil {
		t.Fatal("run(launch) error = nil, want error")
	}
}

func TestRunPathsCommand(t *testing.T) {
	env := newCLIEnv(t)
	stdout, _, err := env.run(t, "paths")
	if err != nil {
		t.Fatalf("run(paths) error = %v", err)
	}
	for _, want := range []string{
		"app: shopfloor",
		"dev_mode: false",
		"db: " + filepath.Join(env.dir, "shopfloor.db"),
		"users: " + filepath.Join(env.dir, "users.json"),
		"config: " + filepath.Join(env.dir, "config.toml"),
	} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in paths output, got %q", want, stdout)
		}
	}
}

func TestRunRejectsInvalidLoggingLevelFromConfig(t *testing.T) {
	env := newCLIEnv(t)
	if err := os.WriteFile(filepath.Join(env.dir, "config.toml"), []byte("[logging]\nlevel = \"loud\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	_, _, err := env.run(t, "board")
	if err == nil || !strings.Contains(err.Error(), "logging.level") {
		t.Fatalf("expected logging level error, got %v", err)
	}
}

func TestRunExportImportRoundTrip(t *testing.T) {
	env := newCLIEnv(t)
	order := seedProduction(t, filepath.Join(env.dir, "shopfloor.db"))

	outPath := filepath.Join(env.dir, "exports", "snapshot.yaml")
	if _, _, err := env.run(t, "export", "--out", outPath); err != nil {
		t.Fatalf("run(export) error = %v", err)
	}
	content, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(content), "client_name: Escola Aurora") {
		t.Fatalf("expected yaml snapshot with client name, got %q", string(content))
	}

	stdout, _, err := env.run(t, "export", "--format", "json")
	if err != nil {
		t.Fatalf("run(export json) error = %v", err)
	}
	if !strings.Contains(stdout, `"version": "shopfloor.snapshot.v1"`) {
		t.Fatalf("expected json snapshot on stdout, got %q", stdout)
	}

	target := filepath.Join(env.dir, "restored.db")
	var stderr bytes.Buffer
	args := []string{"import", "--in", outPath, "--db", target, "--users", filepath.Join(env.dir, "users.json"), "--config", filepath.Join(env.dir, "config.toml")}
	if err := run(context.Background(), args, &bytes.Buffer{}, &stderr); err != nil {
		t.Fatalf("run(import) error = %v (stderr %s)", err, stderr.String())
	}
	repo, err := sqlite.Open(target)
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	defer repo.Close()
	restored, err := app.NewService(repo, uuid.NewString, nil, app.ServiceConfig{}).GetOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("GetOrder() error = %v", err)
	}
	if restored.Status != domain.OrderInProduction {
		t.Fatalf("restored order status = %q, want %q", restored.Status, domain.OrderInProduction)
	}
}

func TestRunImportErrors(t *testing.T) {
	env := newCLIEnv(t)
	if _, _, err := env.run(t, "import"); err == nil || !strings.Contains(err.Error(), "--in") {
		t.Fatalf("expected missing --in error, got %v", err)
	}
	bad := filepath.Join(env.dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, _, err := env.run(t, "import", "--in", bad); err == nil {
		t.Fatal("run(import bad) error = nil, want error")
	}
	if _, _, err := env.run(t, "export", "--format", "xml"); err == nil {
		t.Fatal("run(export xml) error = nil, want error")
	}
}

func TestRunBoardDashboardAndReport(t *testing.T) {
	env := newCLIEnv(t)
	order := seedProduction(t, filepath.Join(env.dir, "shopfloor.db"))

	stdout, _, err := env.run(t, "board")
	if err != nil {
		t.Fatalf("run(board) error = %v", err)
	}
	if !strings.Contains(stdout, "Escola Aurora") || !strings.Contains(stdout, "Cutting") {
		t.Fatalf("expected board to show client and stage, got %q", stdout)
	}

	stdout, _, err = env.run(t, "board", "--query", "nobody")
	if err != nil {
		t.Fatalf("run(board --query) error = %v", err)
	}
	if !strings.Contains(stdout, "no published work") {
		t.Fatalf("expected empty board, got %q", stdout)
	}

	if _, _, err := env.run(t, "dashboard"); err != nil {
		t.Fatalf("run(dashboard) error = %v", err)
	}

	stdout, _, err = env.run(t, "report", order.ID, "--raw")
	if err != nil {
		t.Fatalf("run(report) error = %v", err)
	}
	if !strings.Contains(stdout, "Stages done:** 0/1") {
		t.Fatalf("expected markdown report, got %q", stdout)
	}
	if _, _, err := env.run(t, "report", "PED-missing"); err == nil {
		t.Fatal("run(report missing) error = nil, want error")
	}
}

func TestRunUsersCommands(t *testing.T) {
	env := newCLIEnv(t)
	if _, _, err := env.run(t, "users", "seed"); err == nil {
		t.Fatal("run(users seed) without password error = nil, want error")
	}

	t.Setenv("SEED_ADMIN_PASSWORD", "secret123")
	t.Setenv("SEED_ADMIN_EMAIL", "owner@example.com")
	stdout, _, err := env.run(t, "users", "seed")
	if err != nil {
		t.Fatalf("run(users seed) error = %v", err)
	}
	if !strings.Contains(stdout, "seeded admin owner@example.com") {
		t.Fatalf("unexpected seed output %q", stdout)
	}
	stdout, _, err = env.run(t, "users", "seed")
	if err != nil {
		t.Fatalf("run(users seed again) error = %v", err)
	}
	if !strings.Contains(stdout, "nothing seeded") {
		t.Fatalf("expected second seed to be a no-op, got %q", stdout)
	}

	if _, _, err := env.run(t, "users", "add", "--name", "Ana Costa", "--email", "ana@example.com", "--role", "production", "--password", "ana12345"); err != nil {
		t.Fatalf("run(users add) error = %v", err)
	}
	if _, _, err := env.run(t, "users", "add", "--name", "Dup", "--email", "ana@example.com", "--password", "dup12345"); err == nil {
		t.Fatal("run(users add duplicate) error = nil, want error")
	}
	stdout, _, err = env.run(t, "users", "list")
	if err != nil {
		t.Fatalf("run(users list) error = %v", err)
	}
	for _, want := range []string{"owner@example.com", "ana@example.com", "production"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in users list, got %q", want, stdout)
		}
	}
}

func TestRunServeRequiresSecret(t *testing.T) {
	env := newCLIEnv(t)
	called := false
	orig := serveCommandRunner
	t.Cleanup(func() { serveCommandRunner = orig })
	serveCommandRunner = func(context.Context, serveradapter.Config, serveradapter.Dependencies) error {
		called = true
		return nil
	}
	_, _, err := env.run(t, "serve", "--no-watch")
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected secret error, got %v", err)
	}
	if called {
		t.Fatal("expected server not to start without a secret")
	}
}

func TestRunServeWiresDependencies(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("JWT_SECRET", "a-very-long-test-secret")
	t.Setenv("SEED_ADMIN_PASSWORD", "secret123")
	t.Setenv("SHOPFLOOR_BACKUP_ENABLED", "true")

	var (
		gotCfg  serveradapter.Config
		gotDeps serveradapter.Dependencies
	)
	orig := serveCommandRunner
	t.Cleanup(func() { serveCommandRunner = orig })
	serveCommandRunner = func(_ context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
		gotCfg = cfg
		gotDeps = deps
		return nil
	}

	if _, stderr, err := env.run(t, "serve", "--no-watch", "--bind", "127.0.0.1:0"); err != nil {
		t.Fatalf("run(serve) error = %v (stderr %s)", err, stderr)
	}
	if gotCfg.HTTPBind != "127.0.0.1:0" || gotCfg.APIEndpoint != "/api/v1" || gotCfg.MCPEndpoint != "/mcp" {
		t.Fatalf("unexpected server config %#v", gotCfg)
	}
	if gotCfg.ServerVersion != version || gotCfg.RequestTimeout != 30*time.Second {
		t.Fatalf("unexpected server metadata %#v", gotCfg)
	}
	if gotDeps.Production == nil || gotDeps.Auth == nil || gotDeps.Storage == nil || gotDeps.Metrics == nil || gotDeps.Logger == nil {
		t.Fatalf("expected every dependency wired, got %#v", gotDeps)
	}
	if err := gotDeps.Storage.Ping(context.Background()); err == nil {
		t.Fatal("expected storage to be closed after serve returns")
	}

	stdout, _, err := env.run(t, "users", "list")
	if err != nil {
		t.Fatalf("run(users list) error = %v", err)
	}
	if !strings.Contains(stdout, "admin@shopfloor.local") {
		t.Fatalf("expected seeded admin in users list, got %q", stdout)
	}
}

func TestStageTemplatesMapsConfig(t *testing.T) {
	got := stageTemplates([]config.TemplateConfig{{ID: "dtf", Name: "DTF Print", Kind: " Outsourced ", Checklist: []string{"Film printed"}}})
	if len(got) != 1 || got[0].Kind != domain.StageKindOutsourced || got[0].Checklist[0] != "Film printed" {
		t.Fatalf("unexpected templates %#v", got)
	}
	if stageTemplates(nil) != nil {
		t.Fatal("expected nil templates to keep the built-in catalog")
	}
}

func TestRuntimeLoggerCanMuteConsoleSink(t *testing.T) {
	var console bytes.Buffer
	cfg := config.LoggingConfig{Level: "info"}
	logger, err := newRuntimeLogger(&console, "shopfloor", false, "", cfg, func() time.Time {
		return time.Date(2026, 2, 23, 12, 0, 0, 0, time.UTC)
	})
	if err != nil {
		t.Fatalf("newRuntimeLogger() error = %v", err)
	}

	logger.Info("before")
	logger.SetConsoleEnabled(false)
	logger.Info("during")
	logger.SetConsoleEnabled(true)
	logger.Info("after")
	logger.Debug("hidden")
	logger.SetLevel(charmLog.DebugLevel)
	logger.Debug("visible")

	out := console.String()
	for _, want := range []string{"before", "after", "visible"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected console log to include %q, got %q", want, out)
		}
	}
	for _, unwanted := range []string{"during", "hidden"} {
		if strings.Contains(out, unwanted) {
			t.Fatalf("expected console log to omit %q, got %q", unwanted, out)
		}
	}
}

func TestRuntimeLoggerDevFileSink(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")
	var console bytes.Buffer
	logger, err := newRuntimeLogger(&console, "shop floor", true, logDir, config.LoggingConfig{Level: "info", DevFile: true}, func() time.Time {
		return time.Date(2026, 2, 23, 12, 0, 0, 0, time.UTC)
	})
	if err != nil {
		t.Fatalf("newRuntimeLogger() error = %v", err)
	}
	wantPath := filepath.Join(logDir, "shop-floor-20260223.log")
	if logger.DevLogPath() != wantPath {
		t.Fatalf("DevLogPath() = %q, want %q", logger.DevLogPath(), wantPath)
	}
	logger.Info("file event", "run", "OP-1")
	logger.Component().Info("component event")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	content, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(content), `msg="file event"`) || !strings.Contains(string(content), "run=OP-1") {
		t.Fatalf("expected logfmt file event, got %q", string(content))
	}
	if !strings.Contains(string(content), "component event") || !strings.Contains(console.String(), "component event") {
		t.Fatalf("expected component logs on both sinks, file %q console %q", string(content), console.String())
	}
}

func TestSanitizeLogFileStem(t *testing.T) {
	cases := map[string]string{"": "shopfloor", " a/b:c ": "a-b-c", "--": "shopfloor"}
	for in, want := range cases {
		if got := sanitizeLogFileStem(in); got != want {
			t.Fatalf("sanitizeLogFileStem(%q) = %q, want %q", in, got, want)
		}
	}
}

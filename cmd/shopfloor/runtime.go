package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hylla/shopfloor/internal/adapters/storage/sqlite"
	"github.com/hylla/shopfloor/internal/adapters/storage/userfile"
	"github.com/hylla/shopfloor/internal/app"
	"github.com/hylla/shopfloor/internal/auth"
	"github.com/hylla/shopfloor/internal/config"
	"github.com/hylla/shopfloor/internal/domain"
	"github.com/hylla/shopfloor/internal/metrics"
	"github.com/hylla/shopfloor/internal/platform"
)

// resolvedConfig is the config plus the locations it was read from.
type resolvedConfig struct {
	paths         platform.Paths
	configPath    string
	cfg           config.Config
	defaults      config.Config
	dbOverride    string
	usersOverride string
}

// resolveConfig applies defaults, the .env file, the TOML file, env vars, then flags.
func resolveConfig(opts *globalOptions) (resolvedConfig, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{AppName: opts.appName, DevMode: opts.devMode})
	if err != nil {
		return resolvedConfig{}, err
	}
	if err := config.LoadDotEnv(paths.EnvPath); err != nil {
		return resolvedConfig{}, err
	}

	configPath := strings.TrimSpace(opts.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("SHOPFLOOR_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	defaults := config.Default(config.DefaultPaths{
		DBPath:    paths.DBPath,
		UsersPath: paths.UsersPath,
		BackupDir: paths.BackupDir,
	})
	rc := resolvedConfig{
		paths:         paths,
		configPath:    configPath,
		defaults:      defaults,
		dbOverride:    strings.TrimSpace(opts.dbPath),
		usersOverride: strings.TrimSpace(opts.usersPath),
	}
	cfg, err := rc.load()
	if err != nil {
		return resolvedConfig{}, err
	}
	rc.cfg = cfg
	return rc, nil
}

// load reads the config file and overlays environment and flag overrides.
// It is also the reload function for the config watcher.
func (rc resolvedConfig) load() (config.Config, error) {
	cfg, err := config.Load(rc.configPath, rc.defaults)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config %q: %w", rc.configPath, err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return config.Config{}, fmt.Errorf("apply environment: %w", err)
	}
	if rc.dbOverride != "" {
		cfg.Database.Path = rc.dbOverride
	}
	if rc.usersOverride != "" {
		cfg.Users.Path = rc.usersOverride
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// runtime is the opened storage and services one command works against.
type runtime struct {
	resolvedConfig
	logger   *runtimeLogger
	repo     *sqlite.Repository
	users    *userfile.Store
	recorder *metrics.PrometheusRecorder
	svc      *app.Service
}

// openRuntime resolves config, configures logging, and opens the production store.
func openRuntime(opts *globalOptions, command string, stderr io.Writer) (*runtime, error) {
	rc, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}
	logger, err := newRuntimeLogger(stderr, opts.appName, opts.devMode, rc.paths.LogDir, rc.cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}

	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", rc.configPath, "data_dir", rc.paths.DataDir, "db_path", rc.cfg.Database.Path)
	logger.Info("configuration loaded", "config_path", rc.configPath, "db_path", rc.cfg.Database.Path, "log_level", rc.cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	logger.Info("opening sqlite repository", "db_path", rc.cfg.Database.Path)
	repo, err := sqlite.Open(rc.cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", rc.cfg.Database.Path, "err", err)
		_ = logger.Close()
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	logger.Info("sqlite repository ready", "db_path", rc.cfg.Database.Path, "migrations", "ensured")

	recorder := metrics.NewPrometheusRecorder(nil)
	svc := app.NewService(repo, uuid.NewString, nil, app.ServiceConfig{
		StageTemplates: stageTemplates(rc.cfg.StageTemplates),
		Recorder:       recorder,
	})
	logger.Debug("application service initialized", "stage_templates", len(svc.StageTemplates()))

	return &runtime{
		resolvedConfig: rc,
		logger:         logger,
		repo:           repo,
		recorder:       recorder,
		svc:            svc,
	}, nil
}

// Close releases storage and the dev log sink.
func (rt *runtime) Close() {
	if rt == nil {
		return
	}
	if err := rt.repo.Close(); err != nil {
		rt.logger.Warn("sqlite close failed", "db_path", rt.cfg.Database.Path, "err", err)
	}
	_ = rt.logger.Close()
}

// openAuth opens the users file and the auth service. requireSecret is set by serve,
// which issues tokens; offline user commands sign nothing and get a throwaway secret.
func (rt *runtime) openAuth(requireSecret bool) (*auth.Service, error) {
	secret := []byte(strings.TrimSpace(rt.cfg.Auth.Secret))
	if requireSecret {
		if err := rt.cfg.ValidateSecret(); err != nil {
			return nil, err
		}
	} else if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate secret: %w", err)
		}
	}

	users, err := userfile.Open(rt.cfg.Users.Path)
	if err != nil {
		return nil, fmt.Errorf("open users file: %w", err)
	}
	rt.users = users
	svc, err := auth.NewService(users, uuid.NewString, nil, auth.Config{
		Secret:          secret,
		TokenTTL:        rt.cfg.TokenTTL(),
		BcryptCost:      rt.cfg.Auth.BcryptCost,
		ProtectedEmails: rt.cfg.Auth.ProtectedEmails,
	})
	if err != nil {
		return nil, fmt.Errorf("configure auth: %w", err)
	}
	rt.logger.Debug("users store ready", "users_path", users.Path())
	return svc, nil
}

// seedAdmin creates the configured administrator when the users file is empty.
func (rt *runtime) seedAdmin(ctx context.Context, authSvc *auth.Service) error {
	seed := rt.cfg.SeedAdmin
	if strings.TrimSpace(seed.Password) == "" {
		rt.logger.Debug("seed admin skipped", "reason", "no password configured")
		return nil
	}
	user, created, err := authSvc.SeedAdminIfEmpty(ctx, auth.SeedAdmin{
		Name:     seed.Name,
		Email:    seed.Email,
		Password: seed.Password,
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		rt.logger.Info("seed admin created", "email", user.Email)
	}
	return nil
}

// stageTemplates maps configured templates onto the service catalog.
// An empty list keeps the built-in catalog.
func stageTemplates(in []config.TemplateConfig) []app.StageTemplate {
	if len(in) == 0 {
		return nil
	}
	out := make([]app.StageTemplate, 0, len(in))
	for _, tpl := range in {
		out = append(out, app.StageTemplate{
			ID:                 tpl.ID,
			Name:               tpl.Name,
			Kind:               domain.StageKind(strings.ToLower(strings.TrimSpace(tpl.Kind))),
			PlannedDurationMin: tpl.PlannedDurationMin,
			Checklist:          append([]string(nil), tpl.Checklist...),
		})
	}
	return out
}

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	serveradapter "github.com/hylla/shopfloor/internal/adapters/server"
	servercommon "github.com/hylla/shopfloor/internal/adapters/server/common"
	"github.com/hylla/shopfloor/internal/backup"
	"github.com/hylla/shopfloor/internal/config"
)

// serveCommandRunner starts the HTTP+MCP serve flow. Tests replace it.
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

// serveOptions holds serve-only flag overrides.
type serveOptions struct {
	bind       string
	noBackups  bool
	noWatching bool
}

func newServeCommand(opts *globalOptions, stderr io.Writer) *cobra.Command {
	var so serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API, MCP endpoint, and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(opts, "serve", stderr)
			if err != nil {
				return err
			}
			defer rt.Close()
			rt.logger.Info("command flow start", "command", "serve")
			return commandError(rt.logger, "serve", runServe(cmd.Context(), rt, so))
		},
	}
	cmd.Flags().StringVar(&so.bind, "bind", "", "listen address, overriding server.bind")
	cmd.Flags().BoolVar(&so.noBackups, "no-backups", false, "disable scheduled snapshot backups")
	cmd.Flags().BoolVar(&so.noWatching, "no-watch", false, "do not reload the config file on change")
	return cmd
}

// runServe runs the server, the backup scheduler, and the config watcher until ctx ends
// or one of them fails.
func runServe(ctx context.Context, rt *runtime, so serveOptions) error {
	authSvc, err := rt.openAuth(true)
	if err != nil {
		return err
	}
	if err := rt.seedAdmin(ctx, authSvc); err != nil {
		return err
	}

	serverCfg := serverConfig(rt.cfg)
	if so.bind != "" {
		serverCfg.HTTPBind = so.bind
	}
	deps := serveradapter.Dependencies{
		Production: servercommon.NewAppServiceAdapter(rt.svc),
		Auth:       authSvc,
		Storage:    rt.repo,
		Metrics:    rt.recorder,
		Logger:     rt.logger.Component(),
	}

	var scheduler *backup.Scheduler
	if rt.cfg.Backup.Enabled && !so.noBackups {
		if scheduler, err = newBackupScheduler(rt); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The server owns the process lifetime; its exit stops the helpers.
		defer cancel()
		return serveCommandRunner(gctx, serverCfg, deps)
	})

	if scheduler != nil {
		g.Go(func() error {
			return scheduler.Run(gctx)
		})
	}

	if !so.noWatching {
		g.Go(func() error {
			return config.Watch(gctx, rt.configPath, config.WatchOptions{
				Reload: rt.load,
				OnChange: func(next config.Config) {
					rt.logger.SetLevel(next.LogLevel())
					rt.logger.Info("config reloaded", "config_path", rt.configPath, "log_level", next.Logging.Level)
				},
				OnError: func(err error) {
					rt.logger.Warn("config reload failed", "config_path", rt.configPath, "err", err)
				},
			})
		})
	}
	return g.Wait()
}

// serverConfig maps file config onto the server adapter.
func serverConfig(cfg config.Config) serveradapter.Config {
	return serveradapter.Config{
		HTTPBind:        cfg.Server.Bind,
		APIEndpoint:     cfg.Server.APIEndpoint,
		MCPEndpoint:     cfg.Server.MCPEndpoint,
		MetricsEndpoint: cfg.Server.MetricsEndpoint,
		ServerName:      "shopfloor",
		ServerVersion:   version,
		SecureCookies:   cfg.Server.SecureCookies,
		RequestTimeout:  cfg.RequestTimeout(),
		ShutdownTimeout: cfg.ShutdownTimeout(),
	}
}

// newBackupScheduler builds the periodic snapshot writer from config.
func newBackupScheduler(rt *runtime) (*backup.Scheduler, error) {
	format, err := backup.ParseFormat(rt.cfg.Backup.Format)
	if err != nil {
		return nil, err
	}
	writer, err := backup.NewWriter(rt.svc, backup.WriterConfig{
		Dir:    rt.cfg.Backup.Dir,
		Keep:   rt.cfg.Backup.Keep,
		Format: format,
	}, nil, rt.logger.Component())
	if err != nil {
		return nil, fmt.Errorf("configure backups: %w", err)
	}
	return backup.NewScheduler(writer, rt.cfg.BackupInterval())
}

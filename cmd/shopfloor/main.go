package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

// version is stamped at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		stop()
		os.Exit(1)
	}
}

// run builds the command tree and executes args against it.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// globalOptions are the persistent flags every command shares.
type globalOptions struct {
	configPath string
	dbPath     string
	usersPath  string
	appName    string
	devMode    bool
}

// newRootCommand wires every subcommand under one root.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{appName: "shopfloor", devMode: version == "dev"}
	if envDev, ok := parseBoolEnv("SHOPFLOOR_DEV_MODE"); ok {
		opts.devMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("SHOPFLOOR_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}

	root := &cobra.Command{
		Use:           "shopfloor",
		Short:         "Production tracking for a garment workshop",
		Long:          "shopfloor tracks orders through production runs, stage timers, checklists, and a kanban board.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.usersPath, "users", "", "path to users JSON file")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", opts.devMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(opts, stdout),
		newServeCommand(opts, stderr),
		newExportCommand(opts, stdout, stderr),
		newImportCommand(opts, stderr),
		newBoardCommand(opts, stdout, stderr),
		newDashboardCommand(opts, stdout, stderr),
		newReportCommand(opts, stdout, stderr),
		newUsersCommand(opts, stdout, stderr),
	)
	return root
}

// parseBoolEnv reads one boolean environment variable.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return value, true
}

// commandError wraps a failure with the command that produced it.
func commandError(logger *runtimeLogger, command string, err error) error {
	if err == nil {
		logger.Info("command flow complete", "command", command)
		return nil
	}
	logger.Error("command flow failed", "command", command, "err", err)
	return fmt.Errorf("run %s command: %w", command, err)
}

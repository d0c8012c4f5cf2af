package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newPathsCommand(opts *globalOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data locations",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			rc, err := resolveConfig(opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", rc.configPath)
			_, _ = fmt.Fprintf(stdout, "env: %s\n", rc.paths.EnvPath)
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", rc.paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", rc.cfg.Database.Path)
			_, _ = fmt.Fprintf(stdout, "users: %s\n", rc.cfg.Users.Path)
			_, _ = fmt.Fprintf(stdout, "backups: %s\n", rc.cfg.Backup.Dir)
			_, _ = fmt.Fprintf(stdout, "logs: %s\n", rc.paths.LogDir)
			return nil
		},
	}
}

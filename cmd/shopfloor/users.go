package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/hylla/shopfloor/internal/auth"
	"github.com/hylla/shopfloor/internal/domain"
)

func newUsersCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage operator accounts offline",
	}
	cmd.AddCommand(
		newUsersSeedCommand(opts, stdout, stderr),
		newUsersListCommand(opts, stdout, stderr),
		newUsersAddCommand(opts, stdout, stderr),
	)
	return cmd
}

// withAuth opens the runtime plus the auth service for one users subcommand.
func withAuth(ctx context.Context, opts *globalOptions, command string, stderr io.Writer, fn func(*runtime, *auth.Service) error) error {
	rt, err := openRuntime(opts, command, stderr)
	if err != nil {
		return err
	}
	defer rt.Close()
	authSvc, err := rt.openAuth(false)
	if err != nil {
		return commandError(rt.logger, command, err)
	}
	rt.logger.Info("command flow start", "command", command)
	return commandError(rt.logger, command, fn(rt, authSvc))
}

func newUsersSeedCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the configured administrator when no user exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAuth(cmd.Context(), opts, "users seed", stderr, func(rt *runtime, authSvc *auth.Service) error {
				seed := rt.cfg.SeedAdmin
				if strings.TrimSpace(seed.Password) == "" {
					return fmt.Errorf("seed admin password is not configured; set SEED_ADMIN_PASSWORD")
				}
				user, created, err := authSvc.SeedAdminIfEmpty(cmd.Context(), auth.SeedAdmin{
					Name:     seed.Name,
					Email:    seed.Email,
					Password: seed.Password,
				})
				if err != nil {
					return err
				}
				if !created {
					_, _ = fmt.Fprintln(stdout, "users already exist; nothing seeded")
					return nil
				}
				_, _ = fmt.Fprintf(stdout, "seeded admin %s\n", user.Email)
				return nil
			})
		},
	}
}

func newUsersListCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List operator accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAuth(cmd.Context(), opts, "users list", stderr, func(_ *runtime, authSvc *auth.Service) error {
				users, err := authSvc.ListUsers(cmd.Context(), query)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(stdout, usersTable(users))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by name or email")
	return cmd
}

func newUsersAddCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var in auth.CreateUserInput
	var role string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an operator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in.Role = domain.Role(strings.ToLower(strings.TrimSpace(role)))
			return withAuth(cmd.Context(), opts, "users add", stderr, func(_ *runtime, authSvc *auth.Service) error {
				user, err := authSvc.CreateUser(cmd.Context(), in)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "created %s %s (%s)\n", user.ID, user.Email, user.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "login email")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "contact phone")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleViewer), "admin, production, sales, or viewer")
	cmd.Flags().StringVar(&in.Password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// usersTable renders accounts as a bordered table.
func usersTable(users []domain.User) string {
	if len(users) == 0 {
		return "(no users)"
	}
	rows := make([][]string, 0, len(users))
	for _, user := range users {
		rows = append(rows, []string{user.ID, user.Name, user.Email, string(user.Role), string(user.Status)})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "EMAIL", "ROLE", "STATUS").
		Rows(rows...).
		String()
}

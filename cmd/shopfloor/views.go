package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hylla/shopfloor/internal/app"
	"github.com/hylla/shopfloor/internal/render"
)

// defaultRenderWidth is the terminal width assumed for board and report output.
const defaultRenderWidth = 120

func newBoardCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var (
		filter app.CardFilter
		width  int
	)
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Print the kanban board of published runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(opts, "board", stderr)
			if err != nil {
				return err
			}
			defer rt.Close()
			view, err := rt.svc.Board(cmd.Context(), filter)
			if err != nil {
				return commandError(rt.logger, "board", err)
			}
			_, _ = fmt.Fprintln(stdout, render.Board(view, width))
			return nil
		},
	}
	cmd.Flags().StringVarP(&filter.Query, "query", "q", "", "filter by run, client, stage, product, or color")
	cmd.Flags().BoolVar(&filter.OverdueOnly, "overdue", false, "only show runs past their SLA deadline")
	cmd.Flags().IntVar(&width, "width", defaultRenderWidth, "render width in columns")
	return cmd
}

func newDashboardCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Print production totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(opts, "dashboard", stderr)
			if err != nil {
				return err
			}
			defer rt.Close()
			d, err := rt.svc.Dashboard(cmd.Context())
			if err != nil {
				return commandError(rt.logger, "dashboard", err)
			}
			_, _ = fmt.Fprintln(stdout, render.Dashboard(d))
			return nil
		},
	}
}

func newReportCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var (
		raw   bool
		style string
		width int
	)
	cmd := &cobra.Command{
		Use:   "report <order-id>",
		Short: "Print the production report for one order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(opts, "report", stderr)
			if err != nil {
				return err
			}
			defer rt.Close()
			report, err := rt.svc.OrderReport(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return commandError(rt.logger, "report", err)
			}
			markdown := render.OrderReportMarkdown(report)
			if raw {
				_, _ = io.WriteString(stdout, markdown)
				return nil
			}
			renderer := render.MarkdownRenderer{Style: style}
			_, _ = fmt.Fprintln(stdout, renderer.Render(markdown, width))
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without terminal styling")
	cmd.Flags().StringVar(&style, "style", "dark", "glamour style: dark, light, notty, or ascii")
	cmd.Flags().IntVar(&width, "width", defaultRenderWidth, "wrap width in columns")
	return cmd
}

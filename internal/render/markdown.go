// Package render turns board and report read models into terminal and markdown text.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/hylla/shopfloor/internal/app"
	"github.com/hylla/shopfloor/internal/domain"
)

// OrderReportMarkdown renders an order report as a markdown document.
func OrderReportMarkdown(report app.OrderReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Order %s\n\n", report.OrderID)
	fmt.Fprintf(&b, "- **Client:** %s\n", orDash(report.ClientName))
	fmt.Fprintf(&b, "- **Status:** %s\n", report.Status)
	if report.SLADeadline != nil {
		sla := report.SLADeadline.UTC().Format("2006-01-02 15:04")
		if report.Overdue {
			sla += " (overdue)"
		}
		fmt.Fprintf(&b, "- **SLA:** %s\n", sla)
	}
	if report.Archived {
		b.WriteString("- **Archived:** yes\n")
	}
	fmt.Fprintf(&b, "- **Runs:** %s\n", orDash(strings.Join(report.RunIDs, ", ")))
	fmt.Fprintf(&b, "- **Stages done:** %d/%d\n", report.DoneStages, report.StageCount)
	fmt.Fprintf(&b, "- **Units:** %d produced of %d planned\n", report.ProducedUnits, report.PlannedUnits)
	fmt.Fprintf(&b, "- **Checklist:** %d/%d\n", report.ChecklistDone, report.ChecklistTotal)
	fmt.Fprintf(&b, "- **Time spent:** %s\n", domain.FormatClock(report.Elapsed()))

	for _, item := range report.Items {
		title := item.ProductName
		if item.ColorName != "" {
			title += " / " + item.ColorName
		}
		fmt.Fprintf(&b, "\n## %s\n\n", title)
		fmt.Fprintf(&b, "Planned: %s (%d units)\n\n", formatSizes(item.PlannedBySize), item.PlannedUnits)
		if len(item.Stages) == 0 {
			b.WriteString("_No stages yet._\n")
			continue
		}
		b.WriteString("| Stage | Kind | Status | Produced | Time | Checklist |\n")
		b.WriteString("| --- | --- | --- | --- | --- | --- |\n")
		for _, stage := range item.Stages {
			fmt.Fprintf(&b, "| %s | %s | %s | %d/%d | %s | %d/%d |\n",
				escapeCell(stage.Name),
				stage.Kind,
				stage.StatusLabel,
				stage.ProducedUnits, stage.PlannedUnits,
				domain.FormatClock(time.Duration(stage.ElapsedMs)*time.Millisecond),
				stage.ChecklistDone, stage.ChecklistTotal,
			)
		}
	}
	return b.String()
}

// MarkdownRenderer renders markdown for terminals and recreates the renderer when wrap width changes.
type MarkdownRenderer struct {
	Style    string
	width    int
	renderer *glamour.TermRenderer
}

// Render converts markdown into ANSI-styled terminal text. On renderer failure the input is returned.
func (r *MarkdownRenderer) Render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}
	wrapWidth := max(width, 24)
	if r.renderer == nil || r.width != wrapWidth {
		style := r.Style
		if style == "" {
			style = "dark"
		}
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}
	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n")
}

func formatSizes(q domain.SizeQuantities) string {
	sizes := q.Sizes()
	if len(sizes) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(sizes))
	for _, size := range sizes {
		parts = append(parts, fmt.Sprintf("%s %d", size, q[size]))
	}
	return strings.Join(parts, ", ")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hylla/shopfloor/internal/app"
)

var (
	accent  = lipgloss.Color("62")
	dim     = lipgloss.Color("241")
	muted   = lipgloss.Color("245")
	warning = lipgloss.Color("203")
	running = lipgloss.Color("42")
)

// Board renders each item group as a row of lane columns.
func Board(view app.BoardView, width int) string {
	if len(view.Groups) == 0 {
		return lipgloss.NewStyle().Foreground(muted).Render("(no published work)")
	}
	groupTitle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	overdueTitle := groupTitle.Foreground(warning)
	subStyle := lipgloss.NewStyle().Foreground(muted)

	blocks := make([]string, 0, len(view.Groups))
	for _, group := range view.Groups {
		title := fmt.Sprintf("%s · %s", group.ClientName, group.ProductName)
		if group.ColorName != "" {
			title += " / " + group.ColorName
		}
		if group.SLABadge != "" {
			title += "  [" + group.SLABadge + "]"
		}
		titleStyle := groupTitle
		if group.Overdue {
			titleStyle = overdueTitle
		}
		header := lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render(title),
			subStyle.Render(fmt.Sprintf("run %s · order %s", group.RunID, group.OrderID)),
		)
		blocks = append(blocks, lipgloss.JoinVertical(lipgloss.Left, header, lanesRow(group.Lanes, width)))
	}
	return strings.Join(blocks, "\n\n")
}

func lanesRow(lanes []app.Lane, width int) string {
	if len(lanes) == 0 {
		return ""
	}
	colWidth := max(18, width/len(lanes)-3)
	colStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(0, 1).
		MarginRight(1).
		Width(colWidth)
	colTitle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))

	columns := make([]string, 0, len(lanes))
	for _, lane := range lanes {
		lines := []string{colTitle.Render(fmt.Sprintf("%s (%d)", lane.Label, len(lane.Cards)))}
		if len(lane.Cards) == 0 {
			lines = append(lines, emptyStyle.Render("(empty)"))
		}
		for _, card := range lane.Cards {
			lines = append(lines, cardLines(card)...)
		}
		columns = append(columns, colStyle.Render(strings.Join(lines, "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

func cardLines(card app.Card) []string {
	name := lipgloss.NewStyle().Bold(true)
	sub := lipgloss.NewStyle().Foreground(muted)
	clock := sub
	if card.Running {
		clock = lipgloss.NewStyle().Foreground(running)
	}
	if card.Overdue {
		name = name.Foreground(warning)
	}
	lines := []string{
		name.Render(card.StageName),
		clock.Render(card.ElapsedClock) + sub.Render(fmt.Sprintf(" · %d/%d un", card.ProducedTotal, card.PlannedTotal)),
	}
	if card.ChecklistTotal > 0 {
		lines = append(lines, sub.Render(fmt.Sprintf("checklist %d/%d", card.ChecklistDone, card.ChecklistTotal)))
	}
	return lines
}

// Dashboard renders the dashboard counters as a compact two-column table.
func Dashboard(d app.Dashboard) string {
	label := lipgloss.NewStyle().Foreground(muted).Width(24)
	value := lipgloss.NewStyle().Bold(true)
	rows := []struct {
		name string
		n    int
	}{
		{"Active orders", d.ActiveOrders},
		{"Published runs", d.PublishedRuns},
		{"Draft runs", d.DraftRuns},
		{"Running stages", d.RunningStages},
		{"Stages in flight", d.StagesInFlight},
		{"Done in last 7 days", d.StagesDoneLastWeek},
		{"Overdue runs", d.OverdueRuns},
		{"Due within 24h", d.RunsDueSoon},
		{"Open outsourced", d.OpenOutsourced},
		{"Units in production", d.UnitsInProduction},
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, label.Render(row.name)+value.Render(fmt.Sprint(row.n)))
	}
	return strings.Join(lines, "\n")
}

package app

import (
	"context"
	"time"

	"github.com/hylla/shopfloor/internal/domain"
)

const (
	recentWindow = 7 * 24 * time.Hour
	dueSoonLimit = 24 * time.Hour
)

// Dashboard summarizes current production load.
type Dashboard struct {
	GeneratedAt        time.Time `json:"generated_at"`
	ActiveOrders       int       `json:"active_orders"`
	PublishedRuns      int       `json:"published_runs"`
	DraftRuns          int       `json:"draft_runs"`
	RunningStages      int       `json:"running_stages"`
	StagesInFlight     int       `json:"stages_in_flight"`
	StagesDoneLastWeek int       `json:"stages_done_last_week"`
	OverdueRuns        int       `json:"overdue_runs"`
	RunsDueSoon        int       `json:"runs_due_soon"`
	OpenOutsourced     int       `json:"open_outsourced"`
	UnitsInProduction  int       `json:"units_in_production"`
}

// Dashboard computes counters over non-archived orders and their runs.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	orders, err := s.repo.ListOrders(ctx, false)
	if err != nil {
		return Dashboard{}, err
	}
	runs, err := s.repo.ListRuns(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	archived, err := s.archivedOrderIDs(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	return BuildDashboard(orders, runs, archived, s.clock()), nil
}

// BuildDashboard folds orders and runs into dashboard counters.
func BuildDashboard(orders []domain.Order, runs []domain.ProductionRun, archivedOrders map[string]struct{}, now time.Time) Dashboard {
	out := Dashboard{GeneratedAt: now.UTC()}
	for _, order := range orders {
		if order.Active() {
			out.ActiveOrders++
		}
	}
	for _, run := range runs {
		if _, ok := archivedOrders[run.OrderID]; ok {
			continue
		}
		if !run.Published {
			out.DraftRuns++
			continue
		}
		out.PublishedRuns++
		if run.Overdue(now) {
			out.OverdueRuns++
		} else if run.SLADeadline != nil && run.SLADeadline.Sub(now) <= dueSoonLimit {
			out.RunsDueSoon++
		}
		for _, item := range run.Items {
			itemDone := len(item.Stages) > 0
			for _, stage := range item.Stages {
				if stage.Timer.Running {
					out.RunningStages++
				}
				if stage.Status.InFlight() {
					out.StagesInFlight++
					if stage.Kind == domain.StageKindOutsourced {
						out.OpenOutsourced++
					}
				}
				if stage.Status != domain.StatusDone {
					itemDone = false
				} else if stage.CompletedAt != nil && now.Sub(*stage.CompletedAt) <= recentWindow {
					out.StagesDoneLastWeek++
				}
			}
			if !itemDone {
				out.UnitsInProduction += item.PlannedTotal()
			}
		}
	}
	return out
}

package app

import (
	"context"
	"time"

	"github.com/hylla/shopfloor/internal/domain"
)

// StageReport is one stage row of an order report.
type StageReport struct {
	RunID          string             `json:"run_id"`
	StageID        string             `json:"stage_id"`
	Name           string             `json:"name"`
	Kind           domain.StageKind   `json:"kind"`
	Status         domain.StageStatus `json:"status"`
	StatusLabel    string             `json:"status_label"`
	PlannedUnits   int                `json:"planned_units"`
	ProducedUnits  int                `json:"produced_units"`
	ElapsedMs      int64              `json:"elapsed_ms"`
	ChecklistDone  int                `json:"checklist_done"`
	ChecklistTotal int                `json:"checklist_total"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
}

// ItemReport aggregates one order item across its stages.
type ItemReport struct {
	ItemID        string                `json:"item_id"`
	ProductName   string                `json:"product_name"`
	ProductRef    string                `json:"product_ref"`
	ColorName     string                `json:"color_name"`
	PlannedBySize domain.SizeQuantities `json:"planned_by_size"`
	PlannedUnits  int                   `json:"planned_units"`
	Stages        []StageReport         `json:"stages"`
}

// OrderReport is the per-order production summary.
type OrderReport struct {
	GeneratedAt    time.Time          `json:"generated_at"`
	OrderID        string             `json:"order_id"`
	ClientName     string             `json:"client_name"`
	Status         domain.OrderStatus `json:"status"`
	SLADeadline    *time.Time         `json:"sla_deadline,omitempty"`
	Archived       bool               `json:"archived"`
	Overdue        bool               `json:"overdue"`
	RunIDs         []string           `json:"run_ids"`
	Items          []ItemReport       `json:"items"`
	ItemCount      int                `json:"item_count"`
	StageCount     int                `json:"stage_count"`
	DoneStages     int                `json:"done_stages"`
	PlannedUnits   int                `json:"planned_units"`
	ProducedUnits  int                `json:"produced_units"`
	ElapsedMs      int64              `json:"elapsed_ms"`
	ChecklistDone  int                `json:"checklist_done"`
	ChecklistTotal int                `json:"checklist_total"`
}

// Elapsed returns the summed stage time of the report.
func (r OrderReport) Elapsed() time.Duration {
	return time.Duration(r.ElapsedMs) * time.Millisecond
}

// OrderReport builds the production summary for one order, archived or not.
func (s *Service) OrderReport(ctx context.Context, orderID string) (OrderReport, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return OrderReport{}, err
	}
	runs, err := s.ListRuns(ctx, RunFilter{OrderID: order.ID, IncludeArchived: true})
	if err != nil {
		return OrderReport{}, err
	}
	return BuildOrderReport(order, runs, s.clock()), nil
}

// BuildOrderReport folds an order's runs into an OrderReport.
func BuildOrderReport(order domain.Order, runs []domain.ProductionRun, now time.Time) OrderReport {
	report := OrderReport{
		GeneratedAt:  now.UTC(),
		OrderID:      order.ID,
		ClientName:   order.ClientName,
		Status:       order.Status,
		SLADeadline:  order.SLADeadline,
		Archived:     order.Archived(),
		Overdue:      order.SLADeadline != nil && order.SLADeadline.Before(now) && order.Status != domain.OrderDelivered,
		RunIDs:       make([]string, 0, len(runs)),
		Items:        make([]ItemReport, 0),
		PlannedUnits: order.TotalUnits(),
	}
	for _, run := range runs {
		report.RunIDs = append(report.RunIDs, run.ID)
		for _, item := range run.Items {
			itemReport := ItemReport{
				ItemID:        item.ID,
				ProductName:   item.ProductName,
				ProductRef:    item.ProductRef,
				ColorName:     item.ColorName,
				PlannedBySize: item.PlannedBySize.Clone(),
				PlannedUnits:  item.PlannedTotal(),
				Stages:        make([]StageReport, 0, len(item.Stages)),
			}
			for _, stage := range item.Stages {
				done, total := stage.Checklist.Progress()
				elapsed := stage.Elapsed(now).Milliseconds()
				itemReport.Stages = append(itemReport.Stages, StageReport{
					RunID:          run.ID,
					StageID:        stage.ID,
					Name:           stage.Name,
					Kind:           stage.Kind,
					Status:         stage.Status,
					StatusLabel:    stage.Status.Label(),
					PlannedUnits:   stage.PlannedBySize.Total(),
					ProducedUnits:  stage.ProducedBySize.Total(),
					ElapsedMs:      elapsed,
					ChecklistDone:  done,
					ChecklistTotal: total,
					CompletedAt:    stage.CompletedAt,
				})
				report.StageCount++
				if stage.Status == domain.StatusDone {
					report.DoneStages++
				}
				report.ProducedUnits += stage.ProducedBySize.Total()
				report.ElapsedMs += elapsed
				report.ChecklistDone += done
				report.ChecklistTotal += total
			}
			report.Items = append(report.Items, itemReport)
		}
	}
	report.ItemCount = len(report.Items)
	return report
}

package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hylla/shopfloor/internal/domain"
)

// CreateRunFromOrder creates a draft run with one item per order line and no stages.
func (s *Service) CreateRunFromOrder(ctx context.Context, orderID string) (domain.ProductionRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.repo.GetOrder(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return domain.ProductionRun{}, err
	}
	now := s.clock()
	run, err := domain.NewRunFromOrder(s.newCode("OP-"), order, func() string { return s.idGen() }, now)
	if err != nil {
		return domain.ProductionRun{}, err
	}
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return domain.ProductionRun{}, err
	}
	if order.Status == domain.OrderPreProduction {
		if err := order.SetStatus(domain.OrderInProduction, now); err != nil {
			return domain.ProductionRun{}, err
		}
		if err := s.repo.UpdateOrder(ctx, order); err != nil {
			return domain.ProductionRun{}, err
		}
	}
	return run, nil
}

// AddStageInput holds input values for add stage operations.
type AddStageInput struct {
	RunID              string                     `json:"run_id"`
	ItemID             string                     `json:"item_id"`
	Name               string                     `json:"name"`
	Kind               domain.StageKind           `json:"kind"`
	PlannedDurationMin int                        `json:"planned_duration_min"`
	PlannedBySize      domain.SizeQuantities      `json:"planned_by_size"`
	Deadline           *time.Time                 `json:"deadline"`
	Checklist          []string                   `json:"checklist"`
	Outsourcing        *domain.OutsourcingDetails `json:"outsourcing"`
}

// AddStage appends a named stage to one item. Planned quantities default to the item's.
func (s *Service) AddStage(ctx context.Context, in AddStageInput) (domain.Stage, error) {
	var stage domain.Stage
	_, err := s.writeRun(ctx, in.RunID, func(run *domain.ProductionRun, now time.Time) (*domain.StageEvent, error) {
		if err := s.checkRunWritable(ctx, *run, false); err != nil {
			return nil, err
		}
		item, err := run.Item(in.ItemID)
		if err != nil {
			return nil, err
		}
		planned := in.PlannedBySize
		if len(planned) == 0 {
			planned = item.PlannedBySize.Clone()
		}
		checklist := make(domain.Checklist, 0, len(in.Checklist))
		for _, text := range in.Checklist {
			checklist = append(checklist, domain.ChecklistItem{ID: s.idGen(), Text: text})
		}
		stage, err = domain.NewStage(domain.StageInput{
			ID:                 s.idGen(),
			Name:               in.Name,
			Kind:               in.Kind,
			PlannedDurationMin: in.PlannedDurationMin,
			PlannedBySize:      planned,
			Deadline:           in.Deadline,
			Checklist:          checklist,
			Outsourcing:        in.Outsourcing,
		}, now)
		if err != nil {
			return nil, err
		}
		if err := run.AddStage(item.ID, stage, now); err != nil {
			return nil, err
		}
		ref := StageRef{RunID: run.ID, ItemID: item.ID, StageID: stage.ID}
		return stageEvent(ref, domain.StageOpCreate, "", stage.Status, map[string]string{"name": stage.Name}, now), nil
	})
	if err != nil {
		return domain.Stage{}, err
	}
	return stage, nil
}

// AddStageFromTemplate appends a stage built from a configured template.
func (s *Service) AddStageFromTemplate(ctx context.Context, runID, itemID, templateKey string) (domain.Stage, error) {
	tpl, err := s.template(templateKey)
	if err != nil {
		return domain.Stage{}, err
	}
	return s.AddStage(ctx, AddStageInput{
		RunID:              runID,
		ItemID:             itemID,
		Name:               tpl.Name,
		Kind:               tpl.Kind,
		PlannedDurationMin: tpl.PlannedDurationMin,
		Checklist:          tpl.Checklist,
	})
}

// UpdateStage replaces a stage's editable details.
func (s *Service) UpdateStage(ctx context.Context, ref StageRef, details domain.StageDetails) (domain.Stage, error) {
	return s.mutateStage(ctx, ref, func(stage *domain.Stage, now time.Time) (stageChange, error) {
		if err := stage.UpdateDetails(details, now); err != nil {
			return stageChange{}, err
		}
		return stageChange{op: domain.StageOpUpdate}, nil
	})
}

// RemoveStage deletes a stage. A published run that loses its last stage is unpublished.
func (s *Service) RemoveStage(ctx context.Context, ref StageRef) (domain.ProductionRun, error) {
	return s.writeRun(ctx, ref.RunID, func(run *domain.ProductionRun, now time.Time) (*domain.StageEvent, error) {
		if err := s.checkRunWritable(ctx, *run, false); err != nil {
			return nil, err
		}
		stage, err := run.Stage(ref.ItemID, ref.StageID)
		if err != nil {
			return nil, err
		}
		removed := *stage
		if err := run.RemoveStage(ref.ItemID, ref.StageID, now); err != nil {
			return nil, err
		}
		if run.Published && run.StageCount() == 0 {
			run.Unpublish(now)
		}
		return stageEvent(ref, domain.StageOpRemove, removed.Status, "", map[string]string{"name": removed.Name}, now), nil
	})
}

// Publish exposes a run to the board. It fails with ErrValidation when no item has a stage.
func (s *Service) Publish(ctx context.Context, runID string) (domain.ProductionRun, error) {
	wasPublished := false
	run, err := s.mutateRun(ctx, runID, func(run *domain.ProductionRun, now time.Time) error {
		wasPublished = run.Published
		return run.Publish(now)
	})
	if err != nil {
		return domain.ProductionRun{}, err
	}
	if !wasPublished {
		s.recorder.IncRunPublished()
	}
	return run, nil
}

// Unpublish hides a run from the board.
func (s *Service) Unpublish(ctx context.Context, runID string) (domain.ProductionRun, error) {
	return s.mutateRun(ctx, runID, func(run *domain.ProductionRun, now time.Time) error {
		run.Unpublish(now)
		return nil
	})
}

// DeleteRun deletes a run with its items, stages, and activity.
func (s *Service) DeleteRun(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.repo.GetRun(ctx, runID); err != nil {
		return err
	}
	return s.repo.DeleteRun(ctx, runID)
}

// GetRun returns one run.
func (s *Service) GetRun(ctx context.Context, runID string) (domain.ProductionRun, error) {
	return s.repo.GetRun(ctx, strings.TrimSpace(runID))
}

// RunFilter defines filtering criteria for run queries.
type RunFilter struct {
	OrderID         string
	PublishedOnly   bool
	IncludeArchived bool
}

// ListRuns lists runs, newest first.
func (s *Service) ListRuns(ctx context.Context, filter RunFilter) ([]domain.ProductionRun, error) {
	runs, err := s.repo.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	archived, err := s.archivedOrderIDs(ctx)
	if err != nil {
		return nil, err
	}
	orderID := strings.TrimSpace(filter.OrderID)
	out := make([]domain.ProductionRun, 0, len(runs))
	for _, run := range runs {
		if orderID != "" && run.OrderID != orderID {
			continue
		}
		if filter.PublishedOnly && !run.Published {
			continue
		}
		if _, ok := archived[run.OrderID]; ok && !filter.IncludeArchived {
			continue
		}
		out = append(out, run)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// archivedOrderIDs returns the set of archived order ids.
func (s *Service) archivedOrderIDs(ctx context.Context) (map[string]struct{}, error) {
	orders, err := s.repo.ListOrders(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := map[string]struct{}{}
	for _, order := range orders {
		if order.Archived() {
			out[order.ID] = struct{}{}
		}
	}
	return out, nil
}

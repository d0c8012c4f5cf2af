package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// OrderItem is a product/color line inside a production run. It owns its stages.
type OrderItem struct {
	ID            string         `json:"id"`
	OrderLineID   string         `json:"order_line_id,omitempty"`
	ProductID     string         `json:"product_id,omitempty"`
	ProductName   string         `json:"product_name"`
	ProductRef    string         `json:"product_ref"`
	ProductType   ProductType    `json:"product_type,omitempty"`
	ColorName     string         `json:"color_name"`
	PlannedBySize SizeQuantities `json:"planned_by_size"`
	Stages        []Stage        `json:"stages"`
}

// PlannedTotal sums planned units across sizes.
func (i OrderItem) PlannedTotal() int {
	return i.PlannedBySize.Total()
}

// Stage returns a pointer to the stage with id.
func (i *OrderItem) Stage(id string) (*Stage, error) {
	id = strings.TrimSpace(id)
	for idx := range i.Stages {
		if i.Stages[idx].ID == id {
			return &i.Stages[idx], nil
		}
	}
	return nil, fmt.Errorf("%w: stage %q", ErrNotFound, id)
}

// ProductionRun (OP) aggregates the items and stages produced for one order.
type ProductionRun struct {
	ID          string      `json:"id"`
	OrderID     string      `json:"order_id"`
	ClientName  string      `json:"client_name"`
	SLADeadline *time.Time  `json:"sla_deadline,omitempty"`
	Published   bool        `json:"published"`
	PublishedAt *time.Time  `json:"published_at,omitempty"`
	Items       []OrderItem `json:"items"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewRunFromOrder creates a draft run seeded with one item per order line and no stages.
func NewRunFromOrder(id string, order Order, itemID func() string, now time.Time) (ProductionRun, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return ProductionRun{}, ErrInvalidID
	}
	if strings.TrimSpace(order.ID) == "" {
		return ProductionRun{}, fmt.Errorf("%w: order id is required", ErrInvalidID)
	}
	if len(order.Lines) == 0 {
		return ProductionRun{}, fmt.Errorf("%w: order %s has no lines", ErrValidation, order.ID)
	}
	items := make([]OrderItem, 0, len(order.Lines))
	for _, line := range order.Lines {
		itemIDValue := strings.TrimSpace(itemID())
		if itemIDValue == "" {
			return ProductionRun{}, ErrInvalidID
		}
		items = append(items, OrderItem{
			ID:            itemIDValue,
			OrderLineID:   line.ID,
			ProductID:     line.ProductID,
			ProductName:   line.ProductName,
			ProductRef:    line.ProductRef,
			ProductType:   line.ProductType,
			ColorName:     line.ColorName,
			PlannedBySize: line.QuantityBySize.Clone(),
			Stages:        []Stage{},
		})
	}
	return ProductionRun{
		ID:          id,
		OrderID:     order.ID,
		ClientName:  order.ClientName,
		SLADeadline: normalizeTS(order.SLADeadline),
		Items:       items,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

// Item returns a pointer to the item with id.
func (r *ProductionRun) Item(id string) (*OrderItem, error) {
	id = strings.TrimSpace(id)
	for idx := range r.Items {
		if r.Items[idx].ID == id {
			return &r.Items[idx], nil
		}
	}
	return nil, fmt.Errorf("%w: item %q in run %s", ErrNotFound, id, r.ID)
}

// Stage resolves one stage through its owning item.
func (r *ProductionRun) Stage(itemID, stageID string) (*Stage, error) {
	item, err := r.Item(itemID)
	if err != nil {
		return nil, err
	}
	return item.Stage(stageID)
}

// AddStage appends a stage to an item.
func (r *ProductionRun) AddStage(itemID string, stage Stage, now time.Time) error {
	item, err := r.Item(itemID)
	if err != nil {
		return err
	}
	for _, existing := range r.Items {
		for _, st := range existing.Stages {
			if st.ID == stage.ID {
				return fmt.Errorf("%w: duplicate stage id %q", ErrValidation, stage.ID)
			}
		}
	}
	item.Stages = append(item.Stages, stage)
	r.UpdatedAt = now.UTC()
	return nil
}

// RemoveStage deletes a stage from an item.
func (r *ProductionRun) RemoveStage(itemID, stageID string, now time.Time) error {
	item, err := r.Item(itemID)
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(item.Stages, func(s Stage) bool { return s.ID == stageID })
	if idx < 0 {
		return fmt.Errorf("%w: stage %q", ErrNotFound, stageID)
	}
	item.Stages = slices.Delete(item.Stages, idx, idx+1)
	r.UpdatedAt = now.UTC()
	return nil
}

// StageCount counts stages across all items.
func (r ProductionRun) StageCount() int {
	n := 0
	for _, item := range r.Items {
		n += len(item.Stages)
	}
	return n
}

// Publish exposes the run to the board. It requires at least one stage anywhere in the run.
func (r *ProductionRun) Publish(now time.Time) error {
	if r.StageCount() == 0 {
		return fmt.Errorf("%w: run %s has no stages", ErrValidation, r.ID)
	}
	if r.Published {
		return nil
	}
	ts := now.UTC()
	r.Published = true
	r.PublishedAt = &ts
	r.UpdatedAt = ts
	return nil
}

// Unpublish hides the run from the board.
func (r *ProductionRun) Unpublish(now time.Time) {
	r.Published = false
	r.PublishedAt = nil
	r.UpdatedAt = now.UTC()
}

// Touch bumps UpdatedAt.
func (r *ProductionRun) Touch(now time.Time) {
	r.UpdatedAt = now.UTC()
}

// Overdue reports whether the SLA deadline passed before now.
func (r ProductionRun) Overdue(now time.Time) bool {
	return r.SLADeadline != nil && r.SLADeadline.Before(now)
}

// Validate checks ids, ownership, and nested stage invariants.
func (r ProductionRun) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrInvalidID
	}
	if strings.TrimSpace(r.OrderID) == "" {
		return fmt.Errorf("%w: run %s has no order id", ErrInvalidID, r.ID)
	}
	seenItems := map[string]struct{}{}
	seenStages := map[string]struct{}{}
	for i, item := range r.Items {
		if strings.TrimSpace(item.ID) == "" {
			return fmt.Errorf("items[%d]: %w", i, ErrInvalidID)
		}
		if _, ok := seenItems[item.ID]; ok {
			return fmt.Errorf("%w: duplicate item id %q", ErrValidation, item.ID)
		}
		seenItems[item.ID] = struct{}{}
		for j, stage := range item.Stages {
			if err := stage.Validate(); err != nil {
				return fmt.Errorf("items[%d].stages[%d]: %w", i, j, err)
			}
			if _, ok := seenStages[stage.ID]; ok {
				return fmt.Errorf("%w: duplicate stage id %q", ErrValidation, stage.ID)
			}
			seenStages[stage.ID] = struct{}{}
		}
	}
	if r.Published && r.StageCount() == 0 {
		return fmt.Errorf("%w: published run %s has no stages", ErrValidation, r.ID)
	}
	return nil
}

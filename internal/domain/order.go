package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// OrderStatus tracks the commercial lifecycle of an order.
type OrderStatus string

const (
	OrderPreProduction OrderStatus = "pre_production"
	OrderInProduction  OrderStatus = "in_production"
	OrderCompleted     OrderStatus = "completed"
	OrderDelivered     OrderStatus = "delivered"
)

var validOrderStatuses = []OrderStatus{OrderPreProduction, OrderInProduction, OrderCompleted, OrderDelivered}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	return slices.Contains(validOrderStatuses, s)
}

// OrderLine is one product/color line of a customer order.
type OrderLine struct {
	ID             string         `json:"id"`
	ProductID      string         `json:"product_id,omitempty"`
	ProductName    string         `json:"product_name"`
	ProductRef     string         `json:"product_ref"`
	ProductType    ProductType    `json:"product_type,omitempty"`
	ColorName      string         `json:"color_name"`
	QuantityBySize SizeQuantities `json:"quantity_by_size"`
}

// Order is a customer order that seeds production runs.
type Order struct {
	ID          string      `json:"id"`
	ClientID    string      `json:"client_id,omitempty"`
	ClientName  string      `json:"client_name"`
	SLADeadline *time.Time  `json:"sla_deadline,omitempty"`
	Status      OrderStatus `json:"status"`
	Notes       string      `json:"notes,omitempty"`
	Lines       []OrderLine `json:"lines"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	ArchivedAt  *time.Time  `json:"archived_at,omitempty"`
}

// OrderInput holds values for NewOrder.
type OrderInput struct {
	ID          string
	ClientID    string
	ClientName  string
	SLADeadline *time.Time
	Notes       string
	Lines       []OrderLine
}

// NewOrder validates lines and creates a pre-production order.
func NewOrder(in OrderInput, now time.Time) (Order, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.ClientID = strings.TrimSpace(in.ClientID)
	in.ClientName = strings.TrimSpace(in.ClientName)
	if in.ID == "" {
		return Order{}, ErrInvalidID
	}
	if in.ClientName == "" {
		return Order{}, fmt.Errorf("%w: client name is required", ErrInvalidName)
	}
	lines, err := normalizeOrderLines(in.Lines)
	if err != nil {
		return Order{}, err
	}
	return Order{
		ID:          in.ID,
		ClientID:    in.ClientID,
		ClientName:  in.ClientName,
		SLADeadline: normalizeTS(in.SLADeadline),
		Status:      OrderPreProduction,
		Notes:       strings.TrimSpace(in.Notes),
		Lines:       lines,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

// SetStatus changes the order status.
func (o *Order) SetStatus(status OrderStatus, now time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("%w: order status %q", ErrInvalidStatus, status)
	}
	o.Status = status
	o.UpdatedAt = now.UTC()
	return nil
}

// Archive hides the order and its runs from the active board.
func (o *Order) Archive(now time.Time) {
	ts := now.UTC()
	o.ArchivedAt = &ts
	o.UpdatedAt = ts
}

// Restore clears the archive flag.
func (o *Order) Restore(now time.Time) {
	o.ArchivedAt = nil
	o.UpdatedAt = now.UTC()
}

// Archived reports whether the order is archived.
func (o Order) Archived() bool {
	return o.ArchivedAt != nil
}

// Active reports whether the order still needs attention.
func (o Order) Active() bool {
	return o.Status != OrderDelivered && !o.Archived()
}

// TotalUnits sums all line quantities.
func (o Order) TotalUnits() int {
	total := 0
	for _, line := range o.Lines {
		total += line.QuantityBySize.Total()
	}
	return total
}

// References reports whether any line points at productID.
func (o Order) References(productID string) bool {
	return slices.ContainsFunc(o.Lines, func(line OrderLine) bool { return line.ProductID == productID })
}

func normalizeOrderLines(in []OrderLine) ([]OrderLine, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: order needs at least one line", ErrValidation)
	}
	out := make([]OrderLine, 0, len(in))
	seen := map[string]struct{}{}
	for i, line := range in {
		line.ID = strings.TrimSpace(line.ID)
		line.ProductID = strings.TrimSpace(line.ProductID)
		line.ProductName = strings.TrimSpace(line.ProductName)
		line.ProductRef = strings.TrimSpace(line.ProductRef)
		line.ColorName = strings.TrimSpace(line.ColorName)
		if line.ID == "" {
			return nil, fmt.Errorf("lines[%d]: %w", i, ErrInvalidID)
		}
		if _, ok := seen[line.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate line id %q", ErrValidation, line.ID)
		}
		seen[line.ID] = struct{}{}
		if line.ProductName == "" {
			return nil, fmt.Errorf("lines[%d]: %w", i, ErrInvalidName)
		}
		qty, err := normalizeSizeQuantities(line.QuantityBySize)
		if err != nil {
			return nil, fmt.Errorf("lines[%d]: %w", i, err)
		}
		if qty.Total() == 0 {
			return nil, fmt.Errorf("lines[%d]: %w: at least one unit is required", i, ErrInvalidQuantity)
		}
		line.QuantityBySize = qty
		out = append(out, line)
	}
	return out, nil
}

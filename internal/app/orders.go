package app

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/hylla/shopfloor/internal/domain"
)

// OrderLineInput holds input values for one order line.
type OrderLineInput struct {
	ProductID      string                `json:"product_id"`
	ProductName    string                `json:"product_name"`
	ProductRef     string                `json:"product_ref"`
	ColorName      string                `json:"color_name"`
	QuantityBySize domain.SizeQuantities `json:"quantity_by_size"`
}

// CreateOrderInput holds input values for create order operations.
type CreateOrderInput struct {
	ClientID    string           `json:"client_id"`
	ClientName  string           `json:"client_name"`
	SLADeadline *time.Time       `json:"sla_deadline"`
	Notes       string           `json:"notes"`
	Lines       []OrderLineInput `json:"lines"`
}

// CreateOrder creates an order, resolving client and product references.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clientName := strings.TrimSpace(in.ClientName)
	clientID := strings.TrimSpace(in.ClientID)
	if clientID != "" {
		client, err := s.repo.GetClient(ctx, clientID)
		if err != nil {
			return domain.Order{}, fmt.Errorf("resolve client %q: %w", clientID, err)
		}
		clientName = client.Name
	}

	lines := make([]domain.OrderLine, 0, len(in.Lines))
	for i, lineIn := range in.Lines {
		line, err := s.resolveOrderLine(ctx, lineIn)
		if err != nil {
			return domain.Order{}, fmt.Errorf("lines[%d]: %w", i, err)
		}
		line.ID = s.idGen()
		lines = append(lines, line)
	}

	order, err := domain.NewOrder(domain.OrderInput{
		ID:          s.newCode("PED-"),
		ClientID:    clientID,
		ClientName:  clientName,
		SLADeadline: in.SLADeadline,
		Notes:       in.Notes,
		Lines:       lines,
	}, s.clock())
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// resolveOrderLine fills product fields from the catalog and checks the size grid.
func (s *Service) resolveOrderLine(ctx context.Context, in OrderLineInput) (domain.OrderLine, error) {
	line := domain.OrderLine{
		ProductID:      strings.TrimSpace(in.ProductID),
		ProductName:    in.ProductName,
		ProductRef:     in.ProductRef,
		ColorName:      in.ColorName,
		QuantityBySize: in.QuantityBySize.Clone(),
	}
	if line.ProductID == "" {
		return line, nil
	}
	product, err := s.repo.GetProduct(ctx, line.ProductID)
	if err != nil {
		return domain.OrderLine{}, fmt.Errorf("resolve product %q: %w", line.ProductID, err)
	}
	line.ProductName = product.Name
	line.ProductRef = product.Ref
	line.ProductType = product.Type
	if product.Type == domain.ProductGiveaway {
		line.QuantityBySize = domain.SizeQuantities{domain.UnitSize: in.QuantityBySize.Total()}
		return line, nil
	}
	if len(product.Sizes) > 0 {
		for size := range line.QuantityBySize {
			if !slices.Contains(product.Sizes, strings.ToUpper(strings.TrimSpace(size))) {
				return domain.OrderLine{}, fmt.Errorf("%w: size %q is not offered for %s", domain.ErrInvalidQuantity, size, product.Name)
			}
		}
	}
	return line, nil
}

// GetOrder returns one order.
func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// ListOrders lists orders, newest first.
func (s *Service) ListOrders(ctx context.Context, includeArchived bool) ([]domain.Order, error) {
	orders, err := s.repo.ListOrders(ctx, includeArchived)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// SetOrderStatus changes an order's commercial status.
func (s *Service) SetOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	return s.mutateOrder(ctx, id, func(order *domain.Order, now time.Time) error {
		return order.SetStatus(status, now)
	})
}

// ArchiveOrder hides the order's runs from the active board.
func (s *Service) ArchiveOrder(ctx context.Context, id string) (domain.Order, error) {
	return s.mutateOrder(ctx, id, func(order *domain.Order, now time.Time) error {
		order.Archive(now)
		return nil
	})
}

// RestoreOrder makes an archived order active again.
func (s *Service) RestoreOrder(ctx context.Context, id string) (domain.Order, error) {
	return s.mutateOrder(ctx, id, func(order *domain.Order, now time.Time) error {
		order.Restore(now)
		return nil
	})
}

// DeleteOrder deletes an order that no production run references.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.repo.GetOrder(ctx, id); err != nil {
		return err
	}
	runs, err := s.repo.ListRuns(ctx)
	if err != nil {
		return err
	}
	for _, run := range runs {
		if run.OrderID == id {
			return fmt.Errorf("%w: order %s has production run %s", domain.ErrInUse, id, run.ID)
		}
	}
	return s.repo.DeleteOrder(ctx, id)
}

func (s *Service) mutateOrder(ctx context.Context, id string, fn func(*domain.Order, time.Time) error) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if err := fn(&order, s.clock()); err != nil {
		return domain.Order{}, err
	}
	if err := s.repo.UpdateOrder(ctx, order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

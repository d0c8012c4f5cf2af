package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hylla/shopfloor/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "shopfloor.snapshot.v1"

// Snapshot is the portable backup document of catalog, order, and run state.
type Snapshot struct {
	Version    string                 `json:"version"`
	ExportedAt time.Time              `json:"exported_at"`
	Clients    []domain.Client        `json:"clients"`
	Products   []domain.Product       `json:"products"`
	Orders     []domain.Order         `json:"orders"`
	Runs       []domain.ProductionRun `json:"runs"`
}

// ExportSnapshot handles export snapshot.
func (s *Service) ExportSnapshot(ctx context.Context, includeArchived bool) (Snapshot, error) {
	clients, err := s.repo.ListClients(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	orders, err := s.repo.ListOrders(ctx, includeArchived)
	if err != nil {
		return Snapshot{}, err
	}
	runs, err := s.repo.ListRuns(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	kept := make(map[string]struct{}, len(orders))
	for _, order := range orders {
		kept[order.ID] = struct{}{}
	}
	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock().UTC(),
		Clients:    clients,
		Products:   products,
		Orders:     orders,
		Runs:       make([]domain.ProductionRun, 0, len(runs)),
	}
	for _, run := range runs {
		if _, ok := kept[run.OrderID]; ok {
			snap.Runs = append(snap.Runs, run)
		}
	}
	snap.sort()
	return snap, nil
}

// ImportSnapshot validates a snapshot and upserts every record by id.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	snap.sort()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, client := range snap.Clients {
		if err := upsert(ctx, client.ID, s.repo.GetClient, s.repo.UpdateClient, s.repo.CreateClient, client); err != nil {
			return fmt.Errorf("import client %s: %w", client.ID, err)
		}
	}
	for _, product := range snap.Products {
		if err := upsert(ctx, product.ID, s.repo.GetProduct, s.repo.UpdateProduct, s.repo.CreateProduct, product); err != nil {
			return fmt.Errorf("import product %s: %w", product.ID, err)
		}
	}
	for _, order := range snap.Orders {
		if err := upsert(ctx, order.ID, s.repo.GetOrder, s.repo.UpdateOrder, s.repo.CreateOrder, order); err != nil {
			return fmt.Errorf("import order %s: %w", order.ID, err)
		}
	}
	for _, run := range snap.Runs {
		if err := upsert(ctx, run.ID, s.repo.GetRun, s.repo.UpdateRun, s.repo.CreateRun, run); err != nil {
			return fmt.Errorf("import run %s: %w", run.ID, err)
		}
	}
	return nil
}

// upsert updates an existing record or creates a missing one.
func upsert[T any](ctx context.Context, id string, get func(context.Context, string) (T, error), update, create func(context.Context, T) error, value T) error {
	if _, err := get(ctx, id); err == nil {
		return update(ctx, value)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return create(ctx, value)
}

// Validate checks version, unique ids, references, and stage invariants.
func (s *Snapshot) Validate() error {
	if strings.TrimSpace(s.Version) != SnapshotVersion {
		return fmt.Errorf("%w: unsupported snapshot version %q", domain.ErrValidation, s.Version)
	}

	clientIDs := map[string]struct{}{}
	for i, client := range s.Clients {
		id := strings.TrimSpace(client.ID)
		if id == "" {
			return fmt.Errorf("%w: clients[%d].id is required", domain.ErrValidation, i)
		}
		if strings.TrimSpace(client.Name) == "" {
			return fmt.Errorf("%w: clients[%d].name is required", domain.ErrValidation, i)
		}
		if _, ok := clientIDs[id]; ok {
			return fmt.Errorf("%w: duplicate client id %q", domain.ErrValidation, id)
		}
		clientIDs[id] = struct{}{}
	}

	productIDs := map[string]struct{}{}
	for i, product := range s.Products {
		id := strings.TrimSpace(product.ID)
		if id == "" {
			return fmt.Errorf("%w: products[%d].id is required", domain.ErrValidation, i)
		}
		if strings.TrimSpace(product.Name) == "" {
			return fmt.Errorf("%w: products[%d].name is required", domain.ErrValidation, i)
		}
		if _, ok := productIDs[id]; ok {
			return fmt.Errorf("%w: duplicate product id %q", domain.ErrValidation, id)
		}
		productIDs[id] = struct{}{}
	}

	orderIDs := map[string]struct{}{}
	for i, order := range s.Orders {
		id := strings.TrimSpace(order.ID)
		if id == "" {
			return fmt.Errorf("%w: orders[%d].id is required", domain.ErrValidation, i)
		}
		if _, ok := orderIDs[id]; ok {
			return fmt.Errorf("%w: duplicate order id %q", domain.ErrValidation, id)
		}
		if !order.Status.Valid() {
			return fmt.Errorf("%w: orders[%d].status %q", domain.ErrValidation, i, order.Status)
		}
		if order.ClientID != "" {
			if _, ok := clientIDs[order.ClientID]; !ok {
				return fmt.Errorf("%w: orders[%d] references unknown client %q", domain.ErrValidation, i, order.ClientID)
			}
		}
		for j, line := range order.Lines {
			if line.ProductID == "" {
				continue
			}
			if _, ok := productIDs[line.ProductID]; !ok {
				return fmt.Errorf("%w: orders[%d].lines[%d] references unknown product %q", domain.ErrValidation, i, j, line.ProductID)
			}
		}
		orderIDs[id] = struct{}{}
	}

	runIDs := map[string]struct{}{}
	for i, run := range s.Runs {
		if err := run.Validate(); err != nil {
			return fmt.Errorf("runs[%d]: %w", i, errors.Join(domain.ErrValidation, err))
		}
		if _, ok := runIDs[run.ID]; ok {
			return fmt.Errorf("%w: duplicate run id %q", domain.ErrValidation, run.ID)
		}
		if _, ok := orderIDs[run.OrderID]; !ok {
			return fmt.Errorf("%w: runs[%d] references unknown order %q", domain.ErrValidation, i, run.OrderID)
		}
		runIDs[run.ID] = struct{}{}
	}
	return nil
}

// sort orders every collection deterministically.
func (s *Snapshot) sort() {
	sort.Slice(s.Clients, func(i, j int) bool {
		return s.Clients[i].ID < s.Clients[j].ID
	})
	sort.Slice(s.Products, func(i, j int) bool {
		return s.Products[i].ID < s.Products[j].ID
	})
	sort.Slice(s.Orders, func(i, j int) bool {
		a := s.Orders[i]
		b := s.Orders[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	sort.Slice(s.Runs, func(i, j int) bool {
		a := s.Runs[i]
		b := s.Runs[j]
		if a.OrderID == b.OrderID {
			return a.ID < b.ID
		}
		return a.OrderID < b.OrderID
	})
}

package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hylla/shopfloor/internal/domain"
)

// CreateClient creates client.
func (s *Service) CreateClient(ctx context.Context, in domain.ClientInput) (domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, err := domain.NewClient(s.idGen(), in, s.clock())
	if err != nil {
		return domain.Client{}, err
	}
	if err := s.repo.CreateClient(ctx, client); err != nil {
		return domain.Client{}, err
	}
	return client, nil
}

// UpdateClient updates client.
func (s *Service) UpdateClient(ctx context.Context, id string, in domain.ClientInput) (domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, err := s.repo.GetClient(ctx, id)
	if err != nil {
		return domain.Client{}, err
	}
	if err := client.Update(in, s.clock()); err != nil {
		return domain.Client{}, err
	}
	if err := s.repo.UpdateClient(ctx, client); err != nil {
		return domain.Client{}, err
	}
	return client, nil
}

// GetClient returns one client.
func (s *Service) GetClient(ctx context.Context, id string) (domain.Client, error) {
	return s.repo.GetClient(ctx, id)
}

// ListClients lists clients by name, optionally filtered by a name/document query.
func (s *Service) ListClients(ctx context.Context, query string) ([]domain.Client, error) {
	clients, err := s.repo.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	query = foldText(query)
	out := make([]domain.Client, 0, len(clients))
	for _, c := range clients {
		if query != "" && !containsFolded(query, c.Name, c.Document, c.ContactName, c.Email) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// DeleteClient deletes a client that no order references.
func (s *Service) DeleteClient(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.repo.GetClient(ctx, id); err != nil {
		return err
	}
	orders, err := s.repo.ListOrders(ctx, true)
	if err != nil {
		return err
	}
	for _, order := range orders {
		if order.ClientID == id {
			return fmt.Errorf("%w: client %s is used by order %s", domain.ErrInUse, id, order.ID)
		}
	}
	return s.repo.DeleteClient(ctx, id)
}

// CreateProduct creates product.
func (s *Service) CreateProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, err := domain.NewProduct(s.idGen(), in, s.clock())
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// UpdateProduct updates product.
func (s *Service) UpdateProduct(ctx context.Context, id string, in domain.ProductInput) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if err := product.Update(in, s.clock()); err != nil {
		return domain.Product{}, err
	}
	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// GetProduct returns one product.
func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// ListProducts lists products by name, optionally filtered by a name/ref query.
func (s *Service) ListProducts(ctx context.Context, query string) ([]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	query = foldText(query)
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if query != "" && !containsFolded(query, p.Name, p.Ref) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// DeleteProduct deletes a product that no order line references.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.repo.GetProduct(ctx, id); err != nil {
		return err
	}
	orders, err := s.repo.ListOrders(ctx, true)
	if err != nil {
		return err
	}
	for _, order := range orders {
		if order.References(id) {
			return fmt.Errorf("%w: product %s is used by order %s", domain.ErrInUse, id, order.ID)
		}
	}
	return s.repo.DeleteProduct(ctx, id)
}

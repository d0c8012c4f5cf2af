package domain

import (
	"fmt"
	"strings"
	"time"
)

// ProductType distinguishes sized garments from unit-counted giveaways.
type ProductType string

const (
	ProductUniform  ProductType = "uniform"
	ProductGiveaway ProductType = "giveaway"
)

// Address is a postal address.
type Address struct {
	PostalCode string `json:"postal_code,omitempty"`
	Street     string `json:"street,omitempty"`
	Number     string `json:"number,omitempty"`
	District   string `json:"district,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
}

// Client is a customer.
type Client struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Document    string    `json:"document,omitempty"`
	ContactName string    `json:"contact_name,omitempty"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Address     Address   `json:"address"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ClientInput holds editable client fields.
type ClientInput struct {
	Name        string
	Document    string
	ContactName string
	Email       string
	Phone       string
	Address     Address
}

// NewClient creates a client.
func NewClient(id string, in ClientInput, now time.Time) (Client, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Client{}, ErrInvalidID
	}
	c := Client{ID: id, CreatedAt: now.UTC()}
	if err := c.Update(in, now); err != nil {
		return Client{}, err
	}
	return c, nil
}

// Update replaces editable fields.
func (c *Client) Update(in ClientInput, now time.Time) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return ErrInvalidName
	}
	c.Name = name
	c.Document = strings.TrimSpace(in.Document)
	c.ContactName = strings.TrimSpace(in.ContactName)
	c.Email = strings.ToLower(strings.TrimSpace(in.Email))
	c.Phone = strings.TrimSpace(in.Phone)
	c.Address = in.Address
	c.UpdatedAt = now.UTC()
	return nil
}

// Product is a catalog item that order lines reference.
type Product struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Ref       string      `json:"ref"`
	Type      ProductType `json:"type"`
	Sizes     []string    `json:"sizes,omitempty"`
	Colors    []string    `json:"colors,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ProductInput holds editable product fields.
type ProductInput struct {
	Name   string
	Ref    string
	Type   ProductType
	Sizes  []string
	Colors []string
}

// NewProduct creates a product.
func NewProduct(id string, in ProductInput, now time.Time) (Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Product{}, ErrInvalidID
	}
	p := Product{ID: id, CreatedAt: now.UTC()}
	if err := p.Update(in, now); err != nil {
		return Product{}, err
	}
	return p, nil
}

// Update replaces editable fields.
func (p *Product) Update(in ProductInput, now time.Time) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return ErrInvalidName
	}
	if in.Type == "" {
		in.Type = ProductUniform
	}
	if in.Type != ProductUniform && in.Type != ProductGiveaway {
		return fmt.Errorf("%w: product type %q", ErrValidation, in.Type)
	}
	sizes := normalizeLabels(in.Sizes, strings.ToUpper)
	if in.Type == ProductGiveaway {
		sizes = nil
	}
	p.Name = name
	p.Ref = strings.TrimSpace(in.Ref)
	p.Type = in.Type
	p.Sizes = sizes
	p.Colors = normalizeLabels(in.Colors, strings.TrimSpace)
	p.UpdatedAt = now.UTC()
	return nil
}

// normalizeLabels trims, maps, and de-duplicates labels in input order.
func normalizeLabels(in []string, mapFn func(string) string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, raw := range in {
		label := mapFn(strings.TrimSpace(raw))
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}

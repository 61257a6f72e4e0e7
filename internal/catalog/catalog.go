package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/TemirB/storefront-checkout/internal/domain"
)

var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	products map[string]domain.Product
	order    []string
}

func New(products []domain.Product) (*Catalog, error) {
	c := &Catalog{
		products: make(map[string]domain.Product, len(products)),
		order:    make([]string, 0, len(products)),
	}
	for i, p := range products {
		p.ID = strings.TrimSpace(p.ID)
		switch {
		case p.ID == "":
			return nil, fmt.Errorf("%w: product #%d has empty id", ErrInvalidCatalog, i)
		case p.Price <= 0:
			return nil, fmt.Errorf("%w: product %q has non-positive price %d", ErrInvalidCatalog, p.ID, p.Price)
		}
		if _, dup := c.products[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate product id %q", ErrInvalidCatalog, p.ID)
		}
		c.products[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c, nil
}

// Default is the built-in demo catalog.
func Default() *Catalog {
	c, err := New([]domain.Product{
		{ID: "npe", Name: "Nodding Plant Extra", Price: 1299},
		{ID: "fern", Name: "Boston Fern", Price: 1599},
		{ID: "cactus", Name: "Barrel Cactus", Price: 899},
		{ID: "monstera", Name: "Monstera Deliciosa", Price: 3499},
		{ID: "bonsai", Name: "Juniper Bonsai", Price: 5999},
		{ID: "succulent-set", Name: "Succulent Set", Price: 2199},
	})
	if err != nil {
		panic(err)
	}
	return c
}

type file struct {
	Products []domain.Product `yaml:"products"`
}

// Load reads a YAML catalog:
//
//	products:
//	  - id: npe
//	    name: Nodding Plant Extra
//	    price: 1299
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if len(f.Products) == 0 {
		return nil, fmt.Errorf("%w: no products", ErrInvalidCatalog)
	}
	return New(f.Products)
}

func (c *Catalog) Lookup(id string) (domain.Product, bool) {
	p, ok := c.products[id]
	return p, ok
}

// List returns products in definition order.
func (c *Catalog) List() []domain.Product {
	out := make([]domain.Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.products[id])
	}
	return out
}

func (c *Catalog) Len() int { return len(c.order) }

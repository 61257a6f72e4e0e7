package cache

import (
	"github.com/TemirB/storefront-checkout/internal/domain"

	lru "github.com/hashicorp/golang-lru/v2"
)

//go:generate mockgen -source internal/cache/cache.go -destination=internal/cache/cache_mock_test.go -package=cache

type source interface {
	Recent(limit int) []domain.Order
}

// Cache keeps recently created or looked up orders by id in front of the
// order store.
type Cache struct {
	size int
	lru  *lru.Cache[string, domain.Order]
}

func New(size int) (*Cache, error) {
	c, err := lru.New[string, domain.Order](size)
	if err != nil {
		return nil, err
	}
	return &Cache{
		size: size,
		lru:  c,
	}, nil
}

// Warm loads the newest orders, oldest first so the newest end up most recent.
func (c *Cache) Warm(src source) {
	recent := src.Recent(c.size)
	for i := len(recent) - 1; i >= 0; i-- {
		o := recent[i]
		c.Set(&o)
	}
}

func (c *Cache) Get(id string) (*domain.Order, bool) {
	order, ok := c.lru.Get(id)
	if !ok {
		return nil, false
	}
	return &order, true
}

func (c *Cache) Set(order *domain.Order) {
	c.lru.Add(order.ID, *order)
}

func (c *Cache) Len() int { return c.lru.Len() }

package domain

import "time"

type Product struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Price int64  `json:"price" yaml:"price"` // minor currency units
}

type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CheckoutRequest struct {
	Cart []CartLine
	// Provider is the caller's choice; anything that is not a known provider
	// means "pick one".
	Provider string
}

// OrderLine is a cart line priced from the catalog at checkout time.
type OrderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

func (l OrderLine) Total() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

type Order struct {
	ID        string      `json:"order_id"`
	Total     int64       `json:"total"`
	Lines     []OrderLine `json:"lines"`
	Provider  Provider    `json:"provider"`
	CreatedAt time.Time   `json:"created_at"`
}

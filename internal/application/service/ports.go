package service

import (
	"context"

	"github.com/TemirB/storefront-checkout/internal/domain"
)

//go:generate mockgen -source internal/application/service/ports.go -destination=internal/application/service/ports_mock_test.go -package=service

// Charger runs a single simulated payment attempt.
type Charger interface {
	Charge(amount int64, provider domain.Provider) domain.ChargeResult
}

// Publisher announces confirmed orders. It must not block the checkout.
type Publisher interface {
	PublishOrder(ctx context.Context, order *domain.Order)
}

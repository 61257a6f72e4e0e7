package service

import (
	"time"

	"github.com/TemirB/storefront-checkout/internal/domain"
)

type LookupSource string

const (
	SourceCache LookupSource = "cache"
	SourceStore LookupSource = "store"
)

type LookupStats struct {
	Source  LookupSource
	CacheMs float64
	StoreMs float64
}

// CheckoutStats describes how a checkout went. Reserved and Outcome stay on
// the server side: the client only sees the uniform rejection.
type CheckoutStats struct {
	Provider   domain.Provider
	Reserved   bool
	Outcome    domain.ChargeOutcome
	PaymentMs  float64
	ValidateMs float64
	TotalMs    float64
}

func convertToMs(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}

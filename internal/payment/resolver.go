package payment

import (
	"strings"

	"github.com/TemirB/storefront-checkout/internal/config"
	"github.com/TemirB/storefront-checkout/internal/domain"
)

var defaults = map[domain.Provider]domain.ProviderConfig{
	domain.ProviderSwiftPay:  {Provider: domain.ProviderSwiftPay, MinLatencyMS: 100, MaxLatencyMS: 400, FailureRate: 0.05},
	domain.ProviderPayLane:   {Provider: domain.ProviderPayLane, MinLatencyMS: 300, MaxLatencyMS: 1200, FailureRate: 0.10},
	domain.ProviderCoinVault: {Provider: domain.ProviderCoinVault, MinLatencyMS: 800, MaxLatencyMS: 2500, FailureRate: 0.20},
}

// Default returns the built-in profile of p. Unknown providers get a zero
// profile.
func Default(p domain.Provider) domain.ProviderConfig {
	if cfg, ok := defaults[p]; ok {
		return cfg
	}
	return domain.ProviderConfig{Provider: p}
}

// Resolver builds provider profiles from defaults and key-value overrides.
// Values are not validated here; the simulator clamps them when used.
type Resolver struct {
	env config.Lookup
}

func NewResolver(env config.Lookup) *Resolver {
	return &Resolver{env: env}
}

func (r *Resolver) Resolve(p domain.Provider) domain.ProviderConfig {
	cfg := Default(p)
	cfg.MinLatencyMS = r.env.Int64(OverrideKey(p, "MIN_LATENCY_MS"), cfg.MinLatencyMS)
	cfg.MaxLatencyMS = r.env.Int64(OverrideKey(p, "MAX_LATENCY_MS"), cfg.MaxLatencyMS)
	cfg.FailureRate = r.env.Float64(OverrideKey(p, "FAILURE_RATE"), cfg.FailureRate)
	return cfg
}

// All resolves every known provider.
func (r *Resolver) All() []domain.ProviderConfig {
	out := make([]domain.ProviderConfig, 0, len(domain.Providers))
	for _, p := range domain.Providers {
		out = append(out, r.Resolve(p))
	}
	return out
}

// OverrideKey names an override, e.g. PAYMENT_SWIFTPAY_FAILURE_RATE.
func OverrideKey(p domain.Provider, field string) string {
	return "PAYMENT_" + strings.ToUpper(string(p)) + "_" + field
}

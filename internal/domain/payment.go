package domain

import (
	"strings"
	"time"
)

type Provider string

const (
	ProviderSwiftPay  Provider = "swiftpay"
	ProviderPayLane   Provider = "paylane"
	ProviderCoinVault Provider = "coinvault"
)

// Providers is the fixed provider set in selection order.
var Providers = []Provider{ProviderSwiftPay, ProviderPayLane, ProviderCoinVault}

func ParseProvider(s string) (Provider, bool) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Providers {
		if p == known {
			return p, true
		}
	}
	return "", false
}

type ProviderConfig struct {
	Provider     Provider `json:"provider"`
	MinLatencyMS int64    `json:"min_latency_ms"`
	MaxLatencyMS int64    `json:"max_latency_ms"`
	FailureRate  float64  `json:"failure_rate"`
}

type ChargeOutcome string

const (
	ChargeSuccess ChargeOutcome = "success"
	ChargeFailed  ChargeOutcome = "failed"
)

type ChargeResult struct {
	Provider Provider
	Outcome  ChargeOutcome
	// Planned is the drawn latency, Latency the measured wall-clock time.
	Planned time.Duration
	Latency time.Duration
}

func (r ChargeResult) OK() bool { return r.Outcome == ChargeSuccess }

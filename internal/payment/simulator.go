package payment

import (
	"time"

	"github.com/TemirB/storefront-checkout/internal/domain"
	"github.com/TemirB/storefront-checkout/internal/random"
)

// Clock is the time source of the simulator. Sleep is the only place a
// checkout blocks.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	<-t.C
}

type ConfigResolver interface {
	Resolve(p domain.Provider) domain.ProviderConfig
}

type Simulator struct {
	resolver ConfigResolver
	rng      random.Source
	clock    Clock
}

func NewSimulator(resolver ConfigResolver, rng random.Source, clock Clock) *Simulator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Simulator{
		resolver: resolver,
		rng:      rng,
		clock:    clock,
	}
}

// Charge runs one simulated payment attempt. amount plays no part in the
// outcome. A decline is a normal result, not an error.
func (s *Simulator) Charge(amount int64, provider domain.Provider) domain.ChargeResult {
	cfg := s.resolver.Resolve(provider)

	planned := s.drawLatency(cfg)

	start := s.clock.Now()
	s.clock.Sleep(planned)
	elapsed := s.clock.Now().Sub(start)

	outcome := domain.ChargeSuccess
	if s.rng.Float64() < clampRate(cfg.FailureRate) {
		outcome = domain.ChargeFailed
	}

	return domain.ChargeResult{
		Provider: provider,
		Outcome:  outcome,
		Planned:  planned,
		Latency:  elapsed,
	}
}

// drawLatency picks uniformly from [min, max] inclusive; max below min
// collapses to min.
func (s *Simulator) drawLatency(cfg domain.ProviderConfig) time.Duration {
	lo, hi := cfg.MinLatencyMS, cfg.MaxLatencyMS
	if lo < 0 {
		lo = 0
	}
	if hi < lo {
		hi = lo
	}
	ms := lo + int64(s.rng.Intn(int(hi-lo+1)))
	return time.Duration(ms) * time.Millisecond
}

func clampRate(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}

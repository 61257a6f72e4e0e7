package observability

type Metrics interface {
	ObserveCheckout(provider, result string, durMs float64)
	ObserveCharge(provider string, ok bool, latencyMs float64)
	ObserveHTTP(method, route string, status int, durMs float64)
	IncCacheHit()
	IncCacheMiss()
}

// Checkout results as reported to Metrics.
const (
	ResultConfirmed = "confirmed"
	ResultRejected  = "rejected"
	ResultInvalid   = "invalid"
	ResultError     = "error"
)

type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) ObserveCheckout(string, string, float64)  {}
func (Noop) ObserveCharge(string, bool, float64)      {}
func (Noop) ObserveHTTP(string, string, int, float64) {}
func (Noop) IncCacheHit()                             {}
func (Noop) IncCacheMiss()                            {}

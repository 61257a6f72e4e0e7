package observability

import "sync"

type observe struct {
	Kind     string  `json:"kind"`
	Provider string  `json:"provider,omitempty"`
	Result   string  `json:"result,omitempty"`
	Method   string  `json:"method,omitempty"`
	Route    string  `json:"route,omitempty"`
	Status   int     `json:"status,omitempty"`
	Dur      float64 `json:"dur_ms"`
}

// Inmem keeps the last max observations plus running totals.
type Inmem struct {
	mu     sync.Mutex
	last   []*observe
	max    int
	totals struct {
		checkouts  map[string]int
		charges    map[string]chargeTotals
		cacheHits  int
		cacheMiss  int
		httpByCode map[int]int
	}
}

type chargeTotals struct {
	OK     int `json:"ok"`
	Failed int `json:"failed"`
}

type Snapshot struct {
	Checkouts map[string]int          `json:"checkouts"`
	Charges   map[string]chargeTotals `json:"charges"`
	HTTP      map[int]int             `json:"http"`
	CacheHits int                     `json:"cache_hits"`
	CacheMiss int                     `json:"cache_miss"`
	Last      []observe               `json:"last"`
}

func NewInmem(max int) *Inmem {
	return &Inmem{
		max: max,
	}
}

func (m *Inmem) push(v *observe) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushLocked(v)
}

func (m *Inmem) pushLocked(v *observe) {
	m.last = append(m.last, v)
	if len(m.last) > m.max {
		m.last = m.last[len(m.last)-m.max:]
	}
}

func (m *Inmem) ObserveCheckout(provider, result string, durMs float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.totals.checkouts == nil {
		m.totals.checkouts = map[string]int{}
	}
	m.totals.checkouts[result]++
	m.pushLocked(&observe{Kind: "checkout", Provider: provider, Result: result, Dur: durMs})
}

func (m *Inmem) ObserveCharge(provider string, ok bool, latencyMs float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.totals.charges == nil {
		m.totals.charges = map[string]chargeTotals{}
	}
	t := m.totals.charges[provider]
	result := "ok"
	if ok {
		t.OK++
	} else {
		t.Failed++
		result = "failed"
	}
	m.totals.charges[provider] = t
	m.pushLocked(&observe{Kind: "charge", Provider: provider, Result: result, Dur: latencyMs})
}

func (m *Inmem) ObserveHTTP(method, route string, status int, durMs float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.totals.httpByCode == nil {
		m.totals.httpByCode = map[int]int{}
	}
	m.totals.httpByCode[status]++
	m.pushLocked(&observe{Kind: "http", Method: method, Route: route, Status: status, Dur: durMs})
}

func (m *Inmem) IncCacheHit() {
	m.mu.Lock()
	m.totals.cacheHits++
	m.mu.Unlock()
}

func (m *Inmem) IncCacheMiss() {
	m.mu.Lock()
	m.totals.cacheMiss++
	m.mu.Unlock()
}

// Snapshot copies the current state.
func (m *Inmem) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Checkouts: make(map[string]int, len(m.totals.checkouts)),
		Charges:   make(map[string]chargeTotals, len(m.totals.charges)),
		HTTP:      make(map[int]int, len(m.totals.httpByCode)),
		CacheHits: m.totals.cacheHits,
		CacheMiss: m.totals.cacheMiss,
		Last:      make([]observe, 0, len(m.last)),
	}
	for k, v := range m.totals.checkouts {
		s.Checkouts[k] = v
	}
	for k, v := range m.totals.charges {
		s.Charges[k] = v
	}
	for k, v := range m.totals.httpByCode {
		s.HTTP[k] = v
	}
	for _, o := range m.last {
		s.Last = append(s.Last, *o)
	}
	return s
}

package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/TemirB/storefront-checkout/internal/domain"
	"github.com/TemirB/storefront-checkout/internal/pkg/pool"
	"github.com/TemirB/storefront-checkout/internal/random"
)

type Config struct {
	Target       string
	Rate         int
	Duration     time.Duration
	Workers      int
	InvalidRatio float64
}

// Summary is what a run produced. Status 0 counts transport errors.
type Summary struct {
	Sent     int64         `json:"sent"`
	Dropped  int64         `json:"dropped"`
	ByStatus map[int]int64 `json:"by_status"`
	Elapsed  time.Duration `json:"elapsed"`
}

func (s Summary) String() string {
	codes := make([]int, 0, len(s.ByStatus))
	for c := range s.ByStatus {
		codes = append(codes, c)
	}
	sort.Ints(codes)

	var b strings.Builder
	fmt.Fprintf(&b, "sent=%d dropped=%d elapsed=%s", s.Sent, s.Dropped, s.Elapsed.Round(time.Millisecond))
	for _, c := range codes {
		fmt.Fprintf(&b, " %d=%d", c, s.ByStatus[c])
	}
	return b.String()
}

type Generator struct {
	cfg    Config
	client *http.Client
	rng    random.Source
	logger *zap.Logger

	sent    atomic.Int64
	dropped atomic.Int64

	mu       sync.Mutex
	byStatus map[int]int64
}

func New(cfg Config, client *http.Client, rng random.Source, logger *zap.Logger) *Generator {
	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if rng == nil {
		rng = random.New(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Target = strings.TrimRight(cfg.Target, "/")
	return &Generator{
		cfg:      cfg,
		client:   client,
		rng:      rng,
		logger:   logger,
		byStatus: map[int]int64{},
	}
}

// Run fires checkouts at the configured rate until Duration elapses or ctx
// is done, then waits for in-flight requests.
func (g *Generator) Run(ctx context.Context) (Summary, error) {
	products, err := g.fetchProducts(ctx)
	if err != nil {
		return Summary{}, err
	}
	if len(products) == 0 {
		return Summary{}, errors.New("loadgen: catalog is empty")
	}

	g.logger.Info("load started",
		zap.String("target", g.cfg.Target),
		zap.Int("rate", g.cfg.Rate),
		zap.Duration("duration", g.cfg.Duration),
		zap.Int("workers", g.cfg.Workers),
	)

	start := time.Now()
	p := pool.New(g.cfg.Workers, g.cfg.Workers*4)

	ticker := time.NewTicker(time.Second / time.Duration(g.cfg.Rate))
	defer ticker.Stop()

	var done <-chan time.Time
	if g.cfg.Duration > 0 {
		timer := time.NewTimer(g.cfg.Duration)
		defer timer.Stop()
		done = timer.C
	}

loop:
	for {
		select {
		case <-ticker.C:
			req := g.nextRequest(products)
			if !p.TrySubmit(func() { g.fire(ctx, req) }) {
				g.dropped.Add(1)
			}
		case <-done:
			break loop
		case <-ctx.Done():
			break loop
		}
	}

	p.Close()
	p.Wait()
	g.client.CloseIdleConnections()

	sum := g.summary(time.Since(start))
	g.logger.Info("load finished", zap.Stringer("summary", sum))
	return sum, nil
}

func (g *Generator) fetchProducts(ctx context.Context) ([]domain.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.Target+"/api/products", nil)
	if err != nil {
		return nil, fmt.Errorf("loadgen: build products request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("loadgen: fetch products: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("loadgen: fetch products: status %d", resp.StatusCode)
	}
	var products []domain.Product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, fmt.Errorf("loadgen: decode products: %w", err)
	}
	return products, nil
}

type checkoutBody struct {
	Cart     []domain.CartLine `json:"cart"`
	Provider string            `json:"provider,omitempty"`
}

// nextRequest builds a random cart of one to three lines. A share of carts
// is broken on purpose: empty, unknown product or zero quantity.
func (g *Generator) nextRequest(products []domain.Product) checkoutBody {
	var body checkoutBody
	if g.rng.Intn(2) == 1 {
		body.Provider = string(domain.Providers[g.rng.Intn(len(domain.Providers))])
	}

	lines := 1 + g.rng.Intn(3)
	body.Cart = make([]domain.CartLine, 0, lines)
	for i := 0; i < lines; i++ {
		p := products[g.rng.Intn(len(products))]
		body.Cart = append(body.Cart, domain.CartLine{ProductID: p.ID, Quantity: 1 + g.rng.Intn(3)})
	}

	if g.rng.Float64() < g.cfg.InvalidRatio {
		switch g.rng.Intn(3) {
		case 0:
			body.Cart = body.Cart[:0]
		case 1:
			body.Cart[0].ProductID = "no-such-product"
		default:
			body.Cart[0].Quantity = 0
		}
	}
	return body
}

func (g *Generator) fire(ctx context.Context, body checkoutBody) {
	g.sent.Add(1)

	payload, err := json.Marshal(body)
	if err != nil {
		g.record(0)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Target+"/api/checkout", bytes.NewReader(payload))
	if err != nil {
		g.record(0)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			g.logger.Debug("checkout request failed", zap.Error(err))
		}
		g.record(0)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	g.record(resp.StatusCode)
}

func (g *Generator) record(status int) {
	g.mu.Lock()
	g.byStatus[status]++
	g.mu.Unlock()
}

func (g *Generator) summary(elapsed time.Duration) Summary {
	g.mu.Lock()
	defer g.mu.Unlock()
	by := make(map[int]int64, len(g.byStatus))
	for k, v := range g.byStatus {
		by[k] = v
	}
	return Summary{
		Sent:     g.sent.Load(),
		Dropped:  g.dropped.Load(),
		ByStatus: by,
		Elapsed:  elapsed,
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TemirB/storefront-checkout/internal/domain"
	"github.com/TemirB/storefront-checkout/internal/observability"
	"github.com/TemirB/storefront-checkout/internal/random"
)

// ReservationRate is the chance that the simulated stock reservation succeeds.
const ReservationRate = 0.8

type Catalog interface {
	Lookup(id string) (domain.Product, bool)
	List() []domain.Product
}

type OrderStore interface {
	Append(order domain.Order)
	Find(id string) (domain.Order, bool)
}

type Cache interface {
	Set(*domain.Order)
	Get(string) (*domain.Order, bool)
}

type ProviderResolver interface {
	All() []domain.ProviderConfig
}

type Deps struct {
	Catalog   Catalog
	Orders    OrderStore
	Cache     Cache
	Charger   Charger
	Providers ProviderResolver
	Publisher Publisher
	Random    random.Source
	Logger    *zap.Logger
	Metrics   observability.Metrics
	Tracer    observability.Tracer

	// NewID and Now default to uuid.NewString and time.Now.
	NewID func() string
	Now   func() time.Time
}

type Service struct {
	catalog   Catalog
	orders    OrderStore
	cache     Cache
	charger   Charger
	providers ProviderResolver
	publisher Publisher
	rng       random.Source
	logger    *zap.Logger
	metrics   observability.Metrics
	tracer    observability.Tracer
	newID     func() string
	now       func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		catalog:   d.Catalog,
		orders:    d.Orders,
		cache:     d.Cache,
		charger:   d.Charger,
		providers: d.Providers,
		publisher: d.Publisher,
		rng:       d.Random,
		logger:    d.Logger,
		metrics:   d.Metrics,
		tracer:    d.Tracer,
		newID:     d.NewID,
		now:       d.Now,
	}
	if s.rng == nil {
		s.rng = random.New(0)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = observability.NewNoop()
	}
	if s.tracer == nil {
		s.tracer = observability.NoopTracer{}
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (*domain.Order, error) {
	o, _, err := s.CheckoutWithStats(ctx, req)
	return o, err
}

// CheckoutWithStats validates the cart, simulates the stock reservation and
// the payment, and records an order only when both succeeded. Errors are
// ErrInvalidCart, ErrPaymentFailed or ErrInternal.
func (s *Service) CheckoutWithStats(ctx context.Context, req domain.CheckoutRequest) (order *domain.Order, st CheckoutStats, err error) {
	start := time.Now()
	ctx, span := s.tracer.StartSpan(ctx, "checkout", "process checkout")

	defer func() {
		if r := recover(); r != nil {
			order = nil
			err = fmt.Errorf("%w: panic: %v", domain.ErrInternal, r)
		}
		st.TotalMs = convertToMs(start)

		result := observability.ResultConfirmed
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrInvalidCart):
			result = observability.ResultInvalid
		case errors.Is(err, domain.ErrPaymentFailed):
			result = observability.ResultRejected
		default:
			result = observability.ResultError
			if !errors.Is(err, domain.ErrInternal) {
				err = fmt.Errorf("%w: %v", domain.ErrInternal, err)
			}
			s.tracer.CaptureException(ctx, err)
			s.logger.Error("checkout failed", zap.Error(err), zap.String("provider", string(st.Provider)))
		}
		span.SetTag("checkout.result", result)
		span.Finish()
		s.metrics.ObserveCheckout(string(st.Provider), result, st.TotalMs)
	}()

	tValidate := time.Now()
	lines, total, err := s.validate(ctx, req.Cart)
	st.ValidateMs = convertToMs(tValidate)
	if err != nil {
		s.logger.Warn("checkout rejected: invalid cart", zap.Error(err))
		return nil, st, err
	}

	st.Reserved = s.reserve(ctx)

	st.Provider = s.selectProvider(req.Provider)
	charge := s.charge(ctx, total, st.Provider)
	st.Outcome = charge.Outcome
	st.PaymentMs = observability.Ms(charge.Latency)

	span.SetTag("inventory.reserved", strconv.FormatBool(st.Reserved))
	span.SetTag("payment.provider", string(st.Provider))
	span.SetTag("payment.outcome", string(charge.Outcome))
	span.SetData("cart.total", total)

	if !st.Reserved || !charge.OK() {
		s.logger.Info("checkout rejected",
			zap.String("provider", string(st.Provider)),
			zap.Bool("reserved", st.Reserved),
			zap.String("outcome", string(charge.Outcome)),
			zap.Int64("total", total),
			zap.Float64("latency_ms", st.PaymentMs),
		)
		return nil, st, domain.ErrPaymentFailed
	}

	o := domain.Order{
		ID:        s.newID(),
		Total:     total,
		Lines:     lines,
		Provider:  st.Provider,
		CreatedAt: s.now(),
	}
	s.orders.Append(o)
	s.afterCommit(ctx, &o)

	s.logger.Info("order confirmed",
		zap.String("order_id", o.ID),
		zap.String("provider", string(o.Provider)),
		zap.Int64("total", o.Total),
		zap.Float64("latency_ms", st.PaymentMs),
	)
	return &o, st, nil
}

// validate prices the cart from the catalog. Client prices never get here.
func (s *Service) validate(ctx context.Context, cart []domain.CartLine) ([]domain.OrderLine, int64, error) {
	_, span := s.tracer.StartSpan(ctx, "cart.validate", "validate cart")
	defer span.Finish()
	span.SetData("cart.lines", len(cart))

	if len(cart) == 0 {
		return nil, 0, fmt.Errorf("%w: cart is empty", domain.ErrInvalidCart)
	}

	lines := make([]domain.OrderLine, 0, len(cart))
	var total int64
	for _, l := range cart {
		p, ok := s.catalog.Lookup(l.ProductID)
		if !ok {
			return nil, 0, fmt.Errorf("%w: unknown product %q", domain.ErrInvalidCart, l.ProductID)
		}
		if l.Quantity <= 0 {
			return nil, 0, fmt.Errorf("%w: quantity for %q must be positive", domain.ErrInvalidCart, l.ProductID)
		}
		line := domain.OrderLine{ProductID: p.ID, Quantity: l.Quantity, UnitPrice: p.Price}
		if int64(l.Quantity) > math.MaxInt64/p.Price || total > math.MaxInt64-line.Total() {
			return nil, 0, fmt.Errorf("%w: cart total overflows", domain.ErrInvalidCart)
		}
		total += line.Total()
		lines = append(lines, line)
	}
	return lines, total, nil
}

func (s *Service) reserve(ctx context.Context) bool {
	_, span := s.tracer.StartSpan(ctx, "inventory.reserve", "reserve stock")
	defer span.Finish()

	ok := s.rng.Float64() < ReservationRate
	span.SetTag("inventory.reserved", strconv.FormatBool(ok))
	return ok
}

func (s *Service) selectProvider(requested string) domain.Provider {
	if p, ok := domain.ParseProvider(requested); ok {
		return p
	}
	return domain.Providers[s.rng.Intn(len(domain.Providers))]
}

func (s *Service) charge(ctx context.Context, amount int64, provider domain.Provider) domain.ChargeResult {
	_, span := s.tracer.StartSpan(ctx, "payment.charge", string(provider))
	defer span.Finish()

	res := s.charger.Charge(amount, provider)

	span.SetTag("payment.provider", string(provider))
	span.SetTag("payment.outcome", string(res.Outcome))
	span.SetData("payment.latency_ms", observability.Ms(res.Latency))
	s.metrics.ObserveCharge(string(provider), res.OK(), observability.Ms(res.Latency))
	return res
}

// afterCommit runs the side effects of a stored order. They are best
// effort: the order is already confirmed.
func (s *Service) afterCommit(ctx context.Context, o *domain.Order) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("post-commit step panicked", zap.String("order_id", o.ID), zap.Any("panic", r))
		}
	}()
	if s.cache != nil {
		s.cache.Set(o)
	}
	if s.publisher != nil {
		s.publisher.PublishOrder(ctx, o)
	}
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	o, _, err := s.GetOrderWithStats(ctx, id)
	return o, err
}

func (s *Service) GetOrderWithStats(ctx context.Context, id string) (*domain.Order, LookupStats, error) {
	var st LookupStats

	tCacheStart := time.Now()
	if s.cache != nil {
		if order, ok := s.cache.Get(id); ok {
			st.Source = SourceCache
			st.CacheMs = convertToMs(tCacheStart)
			s.metrics.IncCacheHit()

			s.logger.Debug("Order fetched from cache",
				zap.String("order_id", id),
				zap.Float64("cache_ms", st.CacheMs),
			)
			return order, st, nil
		}
	}

	s.metrics.IncCacheMiss()
	st.CacheMs = convertToMs(tCacheStart)

	tStoreStart := time.Now()
	order, ok := s.orders.Find(id)
	if !ok {
		s.logger.Debug("Can't find order", zap.String("order_id", id))
		return nil, st, fmt.Errorf("order %q: %w", id, domain.ErrNotFound)
	}
	st.Source = SourceStore
	st.StoreMs = convertToMs(tStoreStart)

	if s.cache != nil {
		s.cache.Set(&order)
	}

	s.logger.Debug("Order fetched from store",
		zap.String("order_id", id),
		zap.Float64("cache_ms", st.CacheMs),
		zap.Float64("store_ms", st.StoreMs),
	)
	return &order, st, nil
}

// Providers returns the profiles currently in effect. No side effects.
func (s *Service) Providers() []domain.ProviderConfig {
	return s.providers.All()
}

func (s *Service) Products() []domain.Product {
	return s.catalog.List()
}

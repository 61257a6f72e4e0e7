package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/TemirB/storefront-checkout/internal/application/service"
	"github.com/TemirB/storefront-checkout/internal/domain"
	"github.com/TemirB/storefront-checkout/internal/observability"
)

//go:generate mockgen -source internal/httpapi/httpapi.go -destination=internal/httpapi/httpapi_mock_test.go -package=httpapi

type CheckoutService interface {
	CheckoutWithStats(ctx context.Context, req domain.CheckoutRequest) (*domain.Order, service.CheckoutStats, error)
	GetOrderWithStats(ctx context.Context, id string) (*domain.Order, service.LookupStats, error)
	Providers() []domain.ProviderConfig
	Products() []domain.Product
}

// snapshotter is implemented by metrics sinks that can report totals.
type snapshotter interface {
	Snapshot() observability.Snapshot
}

type Server struct {
	service CheckoutService
	router  chi.Router
	logger  *zap.Logger
	metrics observability.Metrics
	webDir  string
}

func New(svc CheckoutService, logger *zap.Logger, metrics observability.Metrics, webDir string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNoop()
	}
	s := &Server{
		service: svc,
		router:  chi.NewRouter(),
		logger:  logger,
		metrics: metrics,
		webDir:  webDir,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(
		middleware.RequestID,
		middleware.RealIP,
		AccessLog(s.logger),
		ServerTimingApp(s.metrics),
		middleware.Recoverer,
	)

	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/checkout", s.checkout)
		r.Get("/payment-providers", s.providers)
		r.Get("/products", s.products)
		r.Get("/orders/{order_id}", s.getOrder)
		r.Get("/stats", s.stats)
	})

	if st, err := os.Stat(s.webDir); err == nil && st.IsDir() {
		s.router.Handle("/*", http.FileServer(http.Dir(s.webDir)))
	} else if s.webDir != "" {
		s.logger.Info("static dir not found, serving API only", zap.String("dir", s.webDir))
	}
}

// checkoutLine accepts the price the storefront page sends along; it is
// never read.
type checkoutLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     *int64 `json:"price,omitempty"`
}

type checkoutRequest struct {
	Cart     []checkoutLine `json:"cart"`
	Provider string         `json:"provider,omitempty"`
}

type checkoutResponse struct {
	OrderID  string          `json:"order_id"`
	Provider domain.Provider `json:"provider"`
	Total    int64           `json:"total"`
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var body checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("Error while decoding JSON", zap.Error(err))
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	req := domain.CheckoutRequest{
		Cart:     make([]domain.CartLine, 0, len(body.Cart)),
		Provider: body.Provider,
	}
	for _, l := range body.Cart {
		req.Cart = append(req.Cart, domain.CartLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	order, st, err := s.service.CheckoutWithStats(r.Context(), req)

	observability.AppendServerTiming(w, "validate", st.ValidateMs, "")
	if st.Provider != "" {
		observability.AppendServerTiming(w, "payment", st.PaymentMs, string(st.Provider))
	}

	if err != nil {
		status := httpStatus(err)
		writeError(w, status, publicMessage(err, status))
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{
		OrderID:  order.ID,
		Provider: order.Provider,
		Total:    order.Total,
	})
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "order_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "order id required")
		return
	}

	order, st, err := s.service.GetOrderWithStats(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no order with this id")
			return
		}
		s.logger.Error("order lookup failed", zap.String("order_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	observability.AppendServerTiming(w, "cache", st.CacheMs, "")
	observability.AppendServerTiming(w, "store", st.StoreMs, "")
	w.Header().Set("X-Source", string(st.Source))
	observability.SetIfPos(w, "X-Cache-Time", st.CacheMs)
	observability.SetIfPos(w, "X-Store-Time", st.StoreMs)

	writeJSON(w, http.StatusOK, order)
}

func (s *Server) providers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Providers())
}

func (s *Server) products(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Products())
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.metrics.(snapshotter)
	if !ok {
		writeError(w, http.StatusNotFound, "stats are disabled")
		return
	}
	writeJSON(w, http.StatusOK, snap.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown", zap.Error(err))
		}
	}()

	s.logger.Info("http server listening", zap.String("addr", addr))
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Handler() http.Handler { return s.router }

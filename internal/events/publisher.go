package events

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/TemirB/storefront-checkout/internal/domain"
	"github.com/TemirB/storefront-checkout/internal/pkg/pool"
)

//go:generate mockgen -source internal/events/publisher.go -destination=internal/events/publisher_mock_test.go -package=events

const TypeOrderConfirmed = "order.confirmed"

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type Breaker interface {
	Allow() error
	Success()
	Failure()
}

// OrderEvent is the message value published for every confirmed order.
type OrderEvent struct {
	Type       string             `json:"type"`
	OrderID    string             `json:"order_id"`
	Provider   domain.Provider    `json:"provider"`
	Total      int64              `json:"total"`
	Lines      []domain.OrderLine `json:"lines"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// Publisher sends order events in the background. Publishing never blocks
// or fails a checkout: a full queue or an open breaker drops the event.
type Publisher struct {
	writer  Writer
	breaker Breaker
	pool    *pool.Pool
	timeout time.Duration
	logger  *zap.Logger
}

func NewPublisher(writer Writer, brk Breaker, workers int, timeout time.Duration, logger *zap.Logger) *Publisher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Publisher{
		writer:  writer,
		breaker: brk,
		pool:    pool.New(workers, workers*64),
		timeout: timeout,
		logger:  logger,
	}
}

// NewKafkaWriter builds the production writer for topic.
func NewKafkaWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafkago.RequireOne,
	}
}

func (p *Publisher) PublishOrder(_ context.Context, order *domain.Order) {
	value, err := json.Marshal(OrderEvent{
		Type:       TypeOrderConfirmed,
		OrderID:    order.ID,
		Provider:   order.Provider,
		Total:      order.Total,
		Lines:      order.Lines,
		OccurredAt: order.CreatedAt,
	})
	if err != nil {
		p.logger.Error("order event marshal failed", zap.String("order_id", order.ID), zap.Error(err))
		return
	}
	msg := kafkago.Message{Key: []byte(order.ID), Value: value}

	if !p.pool.TrySubmit(func() { p.write(msg) }) {
		p.logger.Warn("order event dropped: publish queue full or closed",
			zap.String("order_id", order.ID),
		)
	}
}

func (p *Publisher) write(msg kafkago.Message) {
	if err := p.breaker.Allow(); err != nil {
		p.logger.Warn("order event dropped: circuit breaker is open",
			zap.String("order_id", string(msg.Key)),
			zap.Error(err),
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	start := time.Now()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.breaker.Failure()
		p.logger.Error("order event publish failed",
			zap.String("order_id", string(msg.Key)),
			zap.Error(err),
		)
		return
	}
	p.breaker.Success()
	p.logger.Debug("order event published",
		zap.String("order_id", string(msg.Key)),
		zap.Int("value_bytes", len(msg.Value)),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// Close drains queued events and closes the writer.
func (p *Publisher) Close() error {
	p.pool.Close()
	p.pool.Wait()
	return p.writer.Close()
}

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrder(context.Context, *domain.Order) {}
func (NopPublisher) Close() error                                { return nil }

package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/TemirB/storefront-checkout/internal/domain"
)

var ErrBadEvent = errors.New("bad order event")

type MessageHandler interface {
	Handle(ctx context.Context, msg kafkago.Message) error
}

type Reader interface {
	Config() kafkago.ReaderConfig
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewReader joins groupID and starts at the tail of the topic, so only events
// produced after the reader starts are seen.
func NewReader(brokers []string, topic, groupID string) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafkago.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
	})
}

// Consumer fetches, handles and commits one message at a time so offsets
// are committed in order.
type Consumer struct {
	handler MessageHandler
	reader  Reader
	logger  *zap.Logger
}

func NewConsumer(handler MessageHandler, reader Reader, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		handler: handler,
		reader:  reader,
		logger:  logger,
	}
}

// Run returns nil once ctx is done. The reader is closed on return.
func (c *Consumer) Run(ctx context.Context) error {
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.logger.Warn("reader close", zap.Error(err))
		}
	}()

	rc := c.reader.Config()
	c.logger.Info("Starting order event consumer",
		zap.Strings("brokers", rc.Brokers),
		zap.String("group", rc.GroupID),
		zap.String("topic", rc.Topic),
	)

	for {
		if ctx.Err() != nil {
			return nil
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return nil
			}
			if isBenignFetchTimeout(err) {
				c.logger.Debug("fetch timeout (idle), backing off", zap.Error(err))
				sleepWithContext(ctx, time.Second)
				continue
			}
			c.logger.Warn("FetchMessage error, backing off", zap.Error(err))
			sleepWithContext(ctx, 500*time.Millisecond)
			continue
		}

		if err := c.handler.Handle(ctx, msg); err != nil {
			c.logger.Error("handler failed; message will not be committed", zap.Error(err),
				zap.String("topic", msg.Topic), zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset))
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("commit failed",
				zap.Error(err),
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			sleepWithContext(ctx, 200*time.Millisecond)
			continue
		}
		c.logger.Debug("message committed",
			zap.String("topic", msg.Topic), zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset))
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func isBenignFetchTimeout(err error) bool {
	s := err.Error()
	return strings.Contains(s, "Request Timed Out") ||
		strings.Contains(s, "no messages received from kafka within the allocated time")
}

// Tally counts confirmed order events per provider.
type Tally struct {
	mu         sync.Mutex
	total      int
	byProvider map[domain.Provider]int
	seen       map[string]struct{}
	logger     *zap.Logger
}

func NewTally(logger *zap.Logger) *Tally {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tally{
		byProvider: map[domain.Provider]int{},
		seen:       map[string]struct{}{},
		logger:     logger,
	}
}

// Handle ignores redeliveries of an order id it has already counted.
func (t *Tally) Handle(_ context.Context, msg kafkago.Message) error {
	var ev OrderEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		t.logger.Error("bad json format",
			zap.Error(err),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
		return fmt.Errorf("%w: %v", ErrBadEvent, err)
	}
	if ev.Type != TypeOrderConfirmed || ev.OrderID == "" {
		t.logger.Error("unexpected event",
			zap.String("type", ev.Type),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
		return fmt.Errorf("%w: type %q, order id %q", ErrBadEvent, ev.Type, ev.OrderID)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, dup := t.seen[ev.OrderID]; dup {
		return nil
	}
	t.seen[ev.OrderID] = struct{}{}
	t.total++
	t.byProvider[ev.Provider]++
	return nil
}

type TallySnapshot struct {
	Total      int                     `json:"total"`
	ByProvider map[domain.Provider]int `json:"by_provider"`
}

func (t *Tally) Snapshot() TallySnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	by := make(map[domain.Provider]int, len(t.byProvider))
	for k, v := range t.byProvider {
		by[k] = v
	}
	return TallySnapshot{Total: t.total, ByProvider: by}
}

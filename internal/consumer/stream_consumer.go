package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	rediscommon "github.com/samalpartha/CareCircle-sub001/internal/common/redis"
	"github.com/samalpartha/CareCircle-sub001/internal/config"
	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Intake receives decoded producer records
type Intake interface {
	IngestAlert(ctx context.Context, a *models.Alert) (*models.QueueItem, error)
	IngestTask(ctx context.Context, t *models.Task) (*models.QueueItem, error)
}

// Metrics counts consumed stream messages
type Metrics struct {
	mu sync.RWMutex

	MessagesProcessed int64
	MessagesSucceeded int64
	MessagesFailed    int64
	MessagesSkipped   int64 // suppressed duplicates and rejected records
	ErrorsParse       int64
}

// Snapshot returns a copy of the counters
func (m *Metrics) Snapshot() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Metrics{
		MessagesProcessed: m.MessagesProcessed,
		MessagesSucceeded: m.MessagesSucceeded,
		MessagesFailed:    m.MessagesFailed,
		MessagesSkipped:   m.MessagesSkipped,
		ErrorsParse:       m.ErrorsParse,
	}
}

func (m *Metrics) add(field *int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*field++
}

// StreamConsumer reads alerts and tasks from Redis streams into the engine
type StreamConsumer struct {
	config      *config.Config
	redisClient *redis.Client
	intake      Intake
	logger      *zap.Logger
	metrics     *Metrics

	// block is how long one XREADGROUP waits per stream
	block time.Duration
}

// NewStreamConsumer creates a stream consumer
func NewStreamConsumer(cfg *config.Config, redisClient *redis.Client, intake Intake, logger *zap.Logger) *StreamConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamConsumer{
		config:      cfg,
		redisClient: redisClient,
		intake:      intake,
		logger:      logger,
		metrics:     &Metrics{},
		block:       time.Second,
	}
}

func (c *StreamConsumer) Metrics() Metrics {
	return c.metrics.Snapshot()
}

func (c *StreamConsumer) streams() []string {
	return []string{c.config.CareOps.Streams.Alerts, c.config.CareOps.Streams.Tasks}
}

// Start creates the consumer groups and consumes until ctx is cancelled.
// Read failures back off exponentially from 1s to 30s.
func (c *StreamConsumer) Start(ctx context.Context) error {
	group := c.config.CareOps.Streams.ConsumerGroup
	for _, stream := range c.streams() {
		if err := rediscommon.CreateConsumerGroup(ctx, c.redisClient, stream, group); err != nil {
			return fmt.Errorf("failed to create consumer group for %s: %w", stream, err)
		}
	}

	c.logger.Info("Stream consumer started",
		zap.String("consumer_group", group),
		zap.String("consumer_name", c.config.CareOps.Streams.ConsumerName),
		zap.Strings("streams", c.streams()),
	)

	backoffDuration := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if err := c.ConsumeOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.logger.Error("Failed to consume stream",
					zap.Error(err),
					zap.Duration("backoff", backoffDuration),
				)
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(backoffDuration):
					backoffDuration *= 2
					if backoffDuration > maxBackoff {
						backoffDuration = maxBackoff
					}
				}
			} else {
				backoffDuration = time.Second
			}
		}
	}
}

// ConsumeOnce reads one batch from every stream. A message that fails to
// process is logged and acknowledged; only read errors are returned.
func (c *StreamConsumer) ConsumeOnce(ctx context.Context) error {
	s := c.config.CareOps.Streams
	for _, stream := range c.streams() {
		messages, err := rediscommon.ReadFromStream(ctx, c.redisClient, stream, s.ConsumerGroup, s.ConsumerName, s.BatchSize, c.block)
		if err != nil {
			return fmt.Errorf("failed to read from stream %s: %w", stream, err)
		}

		ids := make([]string, 0, len(messages))
		for _, msg := range messages {
			c.metrics.add(&c.metrics.MessagesProcessed)
			if err := c.processMessage(ctx, msg); err != nil {
				c.metrics.add(&c.metrics.MessagesFailed)
				c.logger.Error("Failed to process message",
					zap.String("stream", msg.Stream),
					zap.String("stream_id", msg.ID),
					zap.Error(err),
				)
			}
			ids = append(ids, msg.ID)
		}
		if err := rediscommon.Ack(ctx, c.redisClient, stream, s.ConsumerGroup, ids...); err != nil {
			return fmt.Errorf("failed to ack %s: %w", stream, err)
		}
	}
	return nil
}

func (c *StreamConsumer) processMessage(ctx context.Context, msg rediscommon.StreamMessage) error {
	raw, ok := msg.Values["data"].(string)
	if !ok {
		c.metrics.add(&c.metrics.ErrorsParse)
		return fmt.Errorf("missing data field in message")
	}

	var (
		item *models.QueueItem
		err  error
	)
	switch msg.Stream {
	case c.config.CareOps.Streams.Alerts:
		var a models.Alert
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			c.metrics.add(&c.metrics.ErrorsParse)
			return fmt.Errorf("failed to unmarshal alert: %w", err)
		}
		item, err = c.intake.IngestAlert(ctx, &a)
	case c.config.CareOps.Streams.Tasks:
		var t models.Task
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			c.metrics.add(&c.metrics.ErrorsParse)
			return fmt.Errorf("failed to unmarshal task: %w", err)
		}
		item, err = c.intake.IngestTask(ctx, &t)
	default:
		return fmt.Errorf("unexpected stream %s", msg.Stream)
	}

	if err != nil {
		// a bad record will not get better on redelivery
		if errors.Is(err, models.ErrValidation) || errors.Is(err, models.ErrDuplicateRecord) {
			c.metrics.add(&c.metrics.MessagesSkipped)
			c.logger.Warn("Skipped stream record",
				zap.String("stream_id", msg.ID),
				zap.Error(err),
			)
			return nil
		}
		return err
	}

	if item == nil {
		c.metrics.add(&c.metrics.MessagesSkipped)
		c.logger.Debug("Stream record suppressed", zap.String("stream_id", msg.ID))
		return nil
	}
	c.metrics.add(&c.metrics.MessagesSucceeded)
	c.logger.Debug("Stream record queued",
		zap.String("stream_id", msg.ID),
		zap.String("item_id", item.ID),
		zap.Int("priority", item.Priority),
	)
	return nil
}

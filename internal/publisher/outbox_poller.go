// Package publisher relays order events from the transactional outbox to Kafka.
package publisher

import (
	"context"
	"errors"
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/repository"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/circuitbreaker"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
)

const (
	ResultPublished   = "published"
	ResultFailed      = "failed"
	ResultMarkFailed  = "mark_failed"
	ResultBreakerOpen = "breaker_open"

	defaultBatchSize = 100
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Recorder interface {
	RecordOutbox(result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordOutbox(string) {}

type Options struct {
	Interval  time.Duration
	BatchSize int
	Breaker   circuitbreaker.Settings
	Recorder  Recorder
}

type OutboxPoller struct {
	interval  time.Duration
	batchSize int
	repo      repository.OutboxRepository
	writer    MessageWriter
	breaker   *gobreaker.CircuitBreaker[struct{}]
	recorder  Recorder
	log       *logger.Logger
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
	}
}

func NewOutboxPoller(repo repository.OutboxRepository, writer MessageWriter, log *logger.Logger, opts Options) *OutboxPoller {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Breaker == (circuitbreaker.Settings{}) {
		opts.Breaker = circuitbreaker.DefaultSettings()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	log = log.With("component", "outbox_poller")
	return &OutboxPoller{
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
		repo:      repo,
		writer:    writer,
		breaker:   circuitbreaker.New[struct{}]("outbox-kafka", opts.Breaker, log),
		recorder:  opts.Recorder,
		log:       log,
	}
}

// Run polls until ctx is cancelled.
func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// processUnpublishedEvents publishes one batch in outbox order. The batch
// stops at the first failed write so events for an order never overtake
// each other; the failed event is retried on the next tick.
func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		p.log.Error("failed to fetch outbox events", "error", err)
		return
	}

	for _, event := range events {
		_, err := p.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, p.publishToKafka(ctx, event)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			p.recorder.RecordOutbox(ResultBreakerOpen)
			p.log.Debug("breaker open, deferring outbox batch", "event_id", event.ID)
			return
		}
		if err != nil {
			p.recorder.RecordOutbox(ResultFailed)
			p.log.Warn("failed to publish event", "event_id", event.ID, "event_type", event.EventType, "error", err)
			return
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			// the event will be sent again; consumers dedupe on event id
			p.recorder.RecordOutbox(ResultMarkFailed)
			p.log.Error("failed to mark event as processed", "event_id", event.ID, "error", err)
			return
		}
		p.recorder.RecordOutbox(ResultPublished)
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id keeps per-order ordering
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
		Time: event.CreatedAt,
	}
	return p.writer.WriteMessages(ctx, msg)
}

// LogWriter stands in for Kafka when no brokers are configured: messages are
// written to the log and reported as delivered.
type LogWriter struct {
	Log *logger.Logger
}

func (w LogWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		eventType := ""
		for _, h := range m.Headers {
			if h.Key == "event_type" {
				eventType = string(h.Value)
			}
		}
		w.Log.Info("order event", "key", string(m.Key), "event_type", eventType, "payload", string(m.Value))
	}
	return nil
}

func (LogWriter) Close() error { return nil }

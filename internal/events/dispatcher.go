// Package events moves booking notifications onto Kafka and turns delivery
// problems into operator alerts.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/pawprint-grooming/service-booking/internal/application"
	"github.com/pawprint-grooming/service-booking/internal/domain/alert"
	"github.com/pawprint-grooming/service-booking/internal/platform/kafka"
	"github.com/pawprint-grooming/service-booking/internal/platform/metrics"
)

// EventSource is the CloudEvents source of everything this service emits.
const EventSource = "service-booking"

// Publisher writes a CloudEvent to a topic.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, ce kafka.CloudEvent) error
}

// AlertSink records operator alerts.
type AlertSink interface {
	Raise(ctx context.Context, kind alert.Kind, bookingCode, message string) error
}

// DispatcherConfig tunes the background delivery.
type DispatcherConfig struct {
	QueueSize       int
	Workers         int
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	PublishTimeout  time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = 200 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 5 * time.Second
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 10 * time.Second
	}
	return c
}

// AsyncDispatcher is an application.Notifier backed by a bounded queue and a
// worker pool. Each notification is retried with exponential backoff; a
// notification that cannot be delivered raises an alert instead.
type AsyncDispatcher struct {
	publisher Publisher
	alerts    AlertSink
	cfg       DispatcherConfig
	metrics   *metrics.BookingMetrics
	logger    *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan application.Notification
	wg     sync.WaitGroup
}

var _ application.Notifier = (*AsyncDispatcher)(nil)

func NewAsyncDispatcher(publisher Publisher, alerts AlertSink, cfg DispatcherConfig, m *metrics.BookingMetrics, logger *zap.Logger) *AsyncDispatcher {
	cfg = cfg.withDefaults()
	return &AsyncDispatcher{
		publisher: publisher,
		alerts:    alerts,
		cfg:       cfg,
		metrics:   m,
		logger:    logger,
		queue:     make(chan application.Notification, cfg.QueueSize),
	}
}

// Start launches the workers. They run until Close drains the queue.
func (d *AsyncDispatcher) Start() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Enqueue never blocks. When the queue is full the notification is dropped
// and an alert is raised.
func (d *AsyncDispatcher) Enqueue(ctx context.Context, n application.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn("dispatcher closed, dropping notification", zap.String("event_type", n.Type))
		return
	}

	select {
	case d.queue <- n:
	default:
		d.metrics.ObserveNotification(n.Type, "dropped")
		d.logger.Error("notification queue full", zap.String("event_type", n.Type), zap.String("booking_code", n.BookingCode))
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.raise(context.WithoutCancel(ctx), alert.KindNotificationDropped, n,
				fmt.Sprintf("%s not sent: notification queue full", n.Type))
		}()
	}
}

// Close stops accepting notifications and waits for queued ones to finish.
func (d *AsyncDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *AsyncDispatcher) worker() {
	defer d.wg.Done()
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *AsyncDispatcher) deliver(n application.Notification) {
	ce, err := kafka.NewCloudEvent(EventSource, n.Type, n.Data)
	if err != nil {
		d.logger.Error("failed to build cloud event", zap.String("event_type", n.Type), zap.Error(err))
		d.metrics.ObserveNotification(n.Type, "failed")
		d.raise(context.Background(), alert.KindNotificationFailed, n, err.Error())
		return
	}
	ce.Subject = n.BookingCode

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = d.cfg.InitialInterval
	policy.MaxInterval = d.cfg.MaxInterval
	policy.MaxElapsedTime = 0

	attempts := 0
	op := func() error {
		attempts++
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.PublishTimeout)
		defer cancel()
		return d.publisher.PublishEvent(ctx, n.Topic, ce)
	}
	notify := func(err error, wait time.Duration) {
		d.logger.Warn("notification publish failed, retrying",
			zap.String("event_type", n.Type),
			zap.String("booking_code", n.BookingCode),
			zap.Int("attempt", attempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(op, backoff.WithMaxRetries(policy, d.cfg.MaxRetries), notify); err != nil {
		d.metrics.ObserveNotification(n.Type, "failed")
		d.logger.Error("notification undelivered after retries",
			zap.String("event_type", n.Type),
			zap.String("booking_code", n.BookingCode),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		d.raise(context.Background(), alert.KindNotificationFailed, n,
			fmt.Sprintf("%s not sent after %d attempts: %v", n.Type, attempts, err))
		return
	}

	d.metrics.ObserveNotification(n.Type, "delivered")
}

func (d *AsyncDispatcher) raise(ctx context.Context, kind alert.Kind, n application.Notification, message string) {
	if d.alerts == nil {
		return
	}
	if err := d.alerts.Raise(ctx, kind, n.BookingCode, message); err != nil {
		d.logger.Error("failed to raise alert", zap.String("kind", string(kind)), zap.Error(err))
	}
}

package events

import (
	"context"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/pawprint-grooming/service-booking/internal/domain/alert"
	"github.com/pawprint-grooming/service-booking/internal/platform/kafka"
)

// Inbound topic and event type published by the notification service.
const (
	TopicNotificationEvents = "notification.events"
	NotificationFailed      = "notification.failed"
)

// NotificationFailedEvent reports that the notification service gave up on a message.
type NotificationFailedEvent struct {
	BookingCode string `json:"booking_code"`
	EventType   string `json:"event_type"`
	Channel     string `json:"channel"`
	Reason      string `json:"reason"`
}

// NotificationFailureConsumer listens to notification events and raises an
// operator alert for every failed delivery.
type NotificationFailureConsumer struct {
	consumer *kafka.Consumer
	alerts   AlertSink
	logger   *zap.Logger
}

// NewNotificationFailureConsumer creates a new NotificationFailureConsumer.
func NewNotificationFailureConsumer(
	brokers []string,
	groupID string,
	alerts AlertSink,
	logger *zap.Logger,
) *NotificationFailureConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, TopicNotificationEvents, logger)
	return &NotificationFailureConsumer{
		consumer: consumer,
		alerts:   alerts,
		logger:   logger,
	}
}

// Start begins consuming notification events. This blocks until the context is cancelled.
func (c *NotificationFailureConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *NotificationFailureConsumer) Close() error {
	return c.consumer.Close()
}

func (c *NotificationFailureConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from notification topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case NotificationFailed:
		return c.handleNotificationFailed(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled notification event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *NotificationFailureConsumer) handleNotificationFailed(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt NotificationFailedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse NotificationFailedEvent data",
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	c.logger.Info("processing notification failure",
		zap.String("booking_code", evt.BookingCode),
		zap.String("channel", evt.Channel),
	)

	msg := fmt.Sprintf("%s via %s could not be delivered: %s", evt.EventType, evt.Channel, evt.Reason)
	if err := c.alerts.Raise(ctx, alert.KindNotificationUndeliverable, evt.BookingCode, msg); err != nil {
		c.logger.Error("failed to raise alert for notification failure",
			zap.String("booking_code", evt.BookingCode),
			zap.Error(err),
		)
		return err
	}
	return nil
}

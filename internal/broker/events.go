package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ntalhaozcandev/basic-ecom-backend/internal/models"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/util"
)

// EventPublisher publishes order lifecycle events. A nil producer turns every
// publish into a no-op, which is how the service runs without Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{
		producer: producer,
		logger:   util.GetLogger(),
	}
}

// NewBaseEvent fills the common event fields
func NewBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func (ep *EventPublisher) publish(ctx context.Context, orderID string, event interface{}) {
	if ep.producer == nil {
		return
	}
	key := fmt.Sprintf("order-%s", orderID)
	if err := ep.producer.PublishEvent(ctx, key, event); err != nil {
		// Event delivery is best-effort; the order record is the source of truth.
		ep.logger.Error("Failed to publish event",
			zap.String("order_id", orderID),
			zap.Error(err))
	}
}

// PublishOrderCreated publishes an OrderCreated event
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) {
	ep.publish(ctx, event.OrderID, event)
}

// PublishOrderPaid publishes an OrderPaid event
func (ep *EventPublisher) PublishOrderPaid(ctx context.Context, event *models.OrderPaidEvent) {
	ep.publish(ctx, event.OrderID, event)
}

// PublishPaymentFailed publishes a PaymentFailed event
func (ep *EventPublisher) PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) {
	ep.publish(ctx, event.OrderID, event)
}

// PublishRefundProcessed publishes a RefundProcessed event
func (ep *EventPublisher) PublishRefundProcessed(ctx context.Context, event *models.RefundProcessedEvent) {
	ep.publish(ctx, event.OrderID, event)
}

// PublishShipmentCreated publishes a ShipmentCreated event
func (ep *EventPublisher) PublishShipmentCreated(ctx context.Context, event *models.ShipmentCreatedEvent) {
	ep.publish(ctx, event.OrderID, event)
}

// PublishShipmentCancelled publishes a ShipmentCancelled event
func (ep *EventPublisher) PublishShipmentCancelled(ctx context.Context, event *models.ShipmentCancelledEvent) {
	ep.publish(ctx, event.OrderID, event)
}

// PublishOrderExpired publishes an OrderExpired event
func (ep *EventPublisher) PublishOrderExpired(ctx context.Context, event *models.OrderExpiredEvent) {
	ep.publish(ctx, event.OrderID, event)
}

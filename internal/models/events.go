package models

import "time"

// Event types published to the order-events topic
const (
	EventTypeOrderCreated      = "ORDER_CREATED"
	EventTypeOrderPaid         = "ORDER_PAID"
	EventTypeOrderExpired      = "ORDER_EXPIRED"
	EventTypePaymentFailed     = "PAYMENT_FAILED"
	EventTypeRefundProcessed   = "REFUND_PROCESSED"
	EventTypeShipmentCreated   = "SHIPMENT_CREATED"
	EventTypeShipmentCancelled = "SHIPMENT_CANCELLED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when a checkout produces an order
type OrderCreatedEvent struct {
	BaseEvent
	OrderID string      `json:"order_id"`
	UserID  string      `json:"user_id"`
	Total   int64       `json:"total"`
	Items   []OrderItem `json:"items"`
}

// OrderPaidEvent published when a payment intent is confirmed
type OrderPaidEvent struct {
	BaseEvent
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Processor     string `json:"processor"`
}

// PaymentFailedEvent published when a confirmation attempt is declined
type PaymentFailedEvent struct {
	BaseEvent
	OrderID   string `json:"order_id,omitempty"`
	IntentID  string `json:"payment_intent_id"`
	ErrorCode string `json:"error_code"`
}

// RefundProcessedEvent published when a refund is recorded
type RefundProcessedEvent struct {
	BaseEvent
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	RefundID      string `json:"refund_id"`
	Amount        int64  `json:"amount"`
	FullyRefunded bool   `json:"fully_refunded"`
}

// ShipmentCreatedEvent published when a label is issued
type ShipmentCreatedEvent struct {
	BaseEvent
	OrderID        string `json:"order_id"`
	ShipmentID     string `json:"shipment_id"`
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
}

// ShipmentCancelledEvent published when a shipment is cancelled before pickup
type ShipmentCancelledEvent struct {
	BaseEvent
	OrderID    string `json:"order_id"`
	ShipmentID string `json:"shipment_id"`
	Refund     int64  `json:"refund"`
}

// OrderExpiredEvent published when the expiry worker cancels a stale pending order
type OrderExpiredEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
}

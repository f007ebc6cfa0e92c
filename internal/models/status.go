package models

import "fmt"

// OrderStatus is the order lifecycle state
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCanceled  OrderStatus = "canceled"
)

// orderTransitions is the legal order status transition table.
// Forward-only, except shipped -> paid which happens when a shipment is cancelled.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPaid, OrderStatusCanceled},
	OrderStatusPaid:    {OrderStatusShipped, OrderStatusCanceled},
	OrderStatusShipped: {OrderStatusCompleted, OrderStatusPaid},
}

// Valid reports whether s is a known order status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusCompleted, OrderStatusCanceled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the transition s -> next is legal
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentStatus is the order payment state
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// IntentStatus is the payment intent state
type IntentStatus string

const (
	IntentStatusRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentStatusSucceeded             IntentStatus = "succeeded"
)

// ShipmentStatus is the carrier tracking state
type ShipmentStatus string

const (
	ShipmentStatusLabelCreated   ShipmentStatus = "Label Created"
	ShipmentStatusPickedUp       ShipmentStatus = "Picked Up"
	ShipmentStatusInTransit      ShipmentStatus = "In Transit"
	ShipmentStatusAtFacility     ShipmentStatus = "Arrived at Facility"
	ShipmentStatusOutForDelivery ShipmentStatus = "Out for Delivery"
	ShipmentStatusDelivered      ShipmentStatus = "Delivered"
	ShipmentStatusCancelled      ShipmentStatus = "Cancelled"
)

// TrackingProgression is the fixed forward order of tracking statuses
var TrackingProgression = []ShipmentStatus{
	ShipmentStatusLabelCreated,
	ShipmentStatusPickedUp,
	ShipmentStatusInTransit,
	ShipmentStatusAtFacility,
	ShipmentStatusOutForDelivery,
	ShipmentStatusDelivered,
}

// Rank returns the position of s in the tracking progression, or -1 for Cancelled
func (s ShipmentStatus) Rank() int {
	for i, st := range TrackingProgression {
		if st == s {
			return i
		}
	}
	return -1
}

// Cancellable reports whether a shipment in state s can still be cancelled
func (s ShipmentStatus) Cancellable() bool {
	return s == ShipmentStatusLabelCreated
}

// ParseOrderStatus validates a raw status string
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown order status: %q", raw)
	}
	return s, nil
}

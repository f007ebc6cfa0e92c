package models

import "time"

// All monetary amounts are cents-normalized int64.

// Product represents a catalog product. The workflow engine only reads it at
// checkout and performs a conditional stock decrement; catalog CRUD lives elsewhere.
type Product struct {
	ID       string `db:"id" json:"id"`
	Title    string `db:"title" json:"title"`
	Price    int64  `db:"price" json:"price"`
	Stock    int    `db:"stock" json:"stock"`
	IsActive bool   `db:"is_active" json:"is_active"`
}

// CartItem is a (product, quantity) pair in a user's cart
type CartItem struct {
	ProductID string `db:"product_id" json:"product_id"`
	Quantity  int    `db:"quantity" json:"quantity"`
}

// Cart is the per-user mutable item list. It is cleared, not deleted, on checkout.
type Cart struct {
	UserID    string     `db:"user_id" json:"user_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// OrderItem is a snapshot line item, fixed at checkout time
type OrderItem struct {
	ProductID string `db:"product_id" json:"product_id"`
	Title     string `db:"title" json:"title"`
	UnitPrice int64  `db:"unit_price" json:"unit_price"`
	Quantity  int    `db:"quantity" json:"quantity"`
	Subtotal  int64  `db:"subtotal" json:"subtotal"`
}

// PaymentInfo is the single active payment record on an order
type PaymentInfo struct {
	TransactionID string    `json:"transaction_id"`
	Processor     string    `json:"processor"`
	PaymentMethod string    `json:"payment_method"`
	Amount        int64     `json:"amount"`
	ProcessingFee int64     `json:"processing_fee"`
	NetAmount     int64     `json:"net_amount"`
	PaidAt        time.Time `json:"paid_at"`
}

// Refund is an append-only refund record
type Refund struct {
	RefundID    string    `json:"refund_id"`
	Amount      int64     `json:"amount"`
	Reason      string    `json:"reason"`
	ProcessedAt time.Time `json:"processed_at"`
}

// CarrierRef identifies the carrier/service a shipment was booked with
type CarrierRef struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Service string `json:"service"`
}

// ShippingInfo is the single active shipment reference on an order
type ShippingInfo struct {
	ShipmentID        string         `json:"shipment_id"`
	TrackingNumber    string         `json:"tracking_number"`
	Carrier           CarrierRef     `json:"carrier"`
	ShippingCost      int64          `json:"shipping_cost"`
	LabelURL          string         `json:"label_url"`
	EstimatedDelivery string         `json:"estimated_delivery_date"`
	Status            ShipmentStatus `json:"status"`
	CreatedAt         time.Time      `json:"created_at"`
	CancelledAt       *time.Time     `json:"cancelled_at,omitempty"`
}

// Payment history actions
const (
	PaymentActionIntentCreated   = "intent_created"
	PaymentActionConfirmed       = "payment_confirmed"
	PaymentActionFailed          = "payment_failed"
	PaymentActionRefundProcessed = "refund_processed"
)

// PaymentEvent is one entry in an order's payment history
type PaymentEvent struct {
	Action        string    `json:"action"`
	IntentID      string    `json:"payment_intent_id,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Amount        int64     `json:"amount,omitempty"`
	ErrorCode     string    `json:"error_code,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Shipping history actions
const (
	ShippingActionLabelCreated  = "label_created"
	ShippingActionStatusUpdated = "status_updated"
	ShippingActionCancelled     = "shipment_cancelled"
)

// ShippingEvent is one entry in an order's shipping history
type ShippingEvent struct {
	Action         string         `json:"action"`
	ShipmentID     string         `json:"shipment_id,omitempty"`
	TrackingNumber string         `json:"tracking_number"`
	Status         ShipmentStatus `json:"status"`
	Location       string         `json:"location,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Address is a shipping or billing address
type Address struct {
	FullName   string `json:"full_name,omitempty"`
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// Order is the durable result of a checkout. Items are an immutable snapshot;
// the payment and shipping simulators write into it after authorization checks.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Items           []OrderItem     `json:"items"`
	Total           int64           `json:"total"`
	Status          OrderStatus     `json:"status"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	ShippingAddress Address         `json:"shipping_address"`
	BillingAddress  Address         `json:"billing_address"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	IntentID        string          `json:"payment_intent_id,omitempty"`
	PaymentInfo     *PaymentInfo    `json:"payment_info,omitempty"`
	Refunds         []Refund        `json:"refunds,omitempty"`
	ShippingInfo    *ShippingInfo   `json:"shipping_info,omitempty"`
	PaymentHistory  []PaymentEvent  `json:"payment_history,omitempty"`
	ShippingHistory []ShippingEvent `json:"shipping_history,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// SetItems replaces the order's line items, recomputing each subtotal and the
// order total. Item mutation goes through here so total = sum(subtotals) holds
// structurally rather than by caller discipline.
func (o *Order) SetItems(items []OrderItem) {
	o.Items = items
	o.recalc()
}

func (o *Order) recalc() {
	var total int64
	for i := range o.Items {
		o.Items[i].Subtotal = o.Items[i].UnitPrice * int64(o.Items[i].Quantity)
		total += o.Items[i].Subtotal
	}
	o.Total = total
}

// TotalRefunded sums the append-only refund list
func (o *Order) TotalRefunded() int64 {
	var sum int64
	for _, r := range o.Refunds {
		sum += r.Amount
	}
	return sum
}

// RemainingBalance is the refundable balance left on the payment
func (o *Order) RemainingBalance() int64 {
	if o.PaymentInfo == nil {
		return 0
	}
	return o.PaymentInfo.Amount - o.TotalRefunded()
}

// PaymentIntent is a payment authorization awaiting confirmation (simulator-internal)
type PaymentIntent struct {
	ID            string            `json:"id"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Status        IntentStatus      `json:"status"`
	ClientSecret  string            `json:"client_secret,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	LastError     *GatewayError     `json:"last_payment_error,omitempty"`
	TransactionID string            `json:"transaction_id,omitempty"`
	CreatedAt     time.Time         `json:"created"`
}

// Transaction is a successfully confirmed payment, the unit refunds reference
type Transaction struct {
	ID            string            `json:"id"`
	IntentID      string            `json:"payment_intent_id"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	NetAmount     int64             `json:"net_amount"`
	ProcessingFee int64             `json:"processing_fee"`
	Processor     string            `json:"processor"`
	PaymentMethod string            `json:"payment_method"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created"`
}

// GatewayError is a stable machine-readable simulated gateway error
type GatewayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Shipment is the carrier-side shipment record (simulator-internal)
type Shipment struct {
	ID                string          `json:"id"`
	OrderID           string          `json:"order_id"`
	TrackingNumber    string          `json:"tracking_number"`
	Carrier           CarrierRef      `json:"carrier"`
	Cost              int64           `json:"cost"`
	LabelURL          string          `json:"label_url"`
	EstimatedDelivery string          `json:"estimated_delivery_date"`
	Status            ShipmentStatus  `json:"status"`
	Events            []ShippingEvent `json:"events"`
	CreatedAt         time.Time       `json:"created_at"`
}

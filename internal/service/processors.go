package service

import (
	"time"

	"github.com/ntalhaozcandev/basic-ecom-backend/internal/models"
)

// Processor models a simulated payment gateway: its fee schedule, how often
// it approves, and how long it takes.
type Processor struct {
	Name        string
	FeeRate     float64
	FixedFee    int64 // cents
	SuccessRate float64
	AvgLatency  time.Duration
}

// Processors is the supported processor table
var Processors = map[string]Processor{
	"STRIPE":     {Name: "Stripe", FeeRate: 0.029, FixedFee: 30, SuccessRate: 0.95, AvgLatency: 2000 * time.Millisecond},
	"PAYPAL":     {Name: "PayPal", FeeRate: 0.0349, FixedFee: 49, SuccessRate: 0.93, AvgLatency: 3000 * time.Millisecond},
	"APPLE_PAY":  {Name: "Apple Pay", FeeRate: 0.029, FixedFee: 30, SuccessRate: 0.97, AvgLatency: 1500 * time.Millisecond},
	"GOOGLE_PAY": {Name: "Google Pay", FeeRate: 0.029, FixedFee: 30, SuccessRate: 0.96, AvgLatency: 1800 * time.Millisecond},
}

// MinIntentAmount is the smallest chargeable amount in cents
const MinIntentAmount int64 = 50

// RefundSuccessRate is the simulated refund approval probability
const RefundSuccessRate = 0.95

// paymentErrorCatalog is the pool a failed confirmation draws its error from
var paymentErrorCatalog = []models.GatewayError{
	{Code: "card_declined", Message: "Your card was declined."},
	{Code: "insufficient_funds", Message: "Your card has insufficient funds."},
	{Code: "expired_card", Message: "Your card has expired."},
	{Code: "incorrect_cvc", Message: "Your card's security code is incorrect."},
	{Code: "processing_error", Message: "An error occurred while processing your card."},
	{Code: "network_error", Message: "Network error occurred. Please try again."},
}

// gatewayError looks up a catalog entry by code
func gatewayError(code string) models.GatewayError {
	for _, e := range paymentErrorCatalog {
		if e.Code == code {
			return e
		}
	}
	return models.GatewayError{Code: code, Message: "Payment failed."}
}

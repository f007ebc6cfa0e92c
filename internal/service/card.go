package service

import (
	"regexp"
	"strings"
	"time"

	"github.com/ntalhaozcandev/basic-ecom-backend/internal/models"
)

// PaymentMethodData is the payment method supplied on confirmation
type PaymentMethodData struct {
	Type           string          `json:"type" binding:"required"`
	Card           *CardData       `json:"card,omitempty"`
	BillingDetails *BillingDetails `json:"billing_details,omitempty"`
}

// CardData carries raw card fields for the card method type
type CardData struct {
	Number   string `json:"number"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
	CVC      string `json:"cvc"`
}

// BillingDetails is optional billing metadata
type BillingDetails struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Designated test numbers, each mapped to a fixed decline code. These decline
// deterministically, before the success-rate draw.
var declineCards = map[string]string{
	"4000000000000002": "card_declined",
	"4000000000000069": "expired_card",
	"4000000000000127": "incorrect_cvc",
	"4000000000000119": "processing_error",
}

var cvcPattern = regexp.MustCompile(`^\d{3,4}$`)

// validatePaymentMethod checks the payment method, returning a gateway error
// for card declines and validation-style gateway errors for malformed input.
// now is the injected clock reading used for expiry.
func validatePaymentMethod(method PaymentMethodData, now time.Time) *models.GatewayError {
	if method.Type == "" {
		return &models.GatewayError{Code: "invalid_request", Message: "Payment method type is required"}
	}

	if method.Type == "card" {
		card := method.Card
		if card == nil || card.Number == "" || card.ExpMonth == 0 || card.ExpYear == 0 || card.CVC == "" {
			return &models.GatewayError{Code: "incomplete_card", Message: "Incomplete card details"}
		}

		number := strings.ReplaceAll(card.Number, " ", "")
		if code, ok := declineCards[number]; ok {
			e := gatewayError(code)
			return &e
		}
		if !luhnValid(number) {
			return &models.GatewayError{Code: "invalid_number", Message: "Invalid card number"}
		}

		year, month := now.Year(), int(now.Month())
		if card.ExpYear < year || (card.ExpYear == year && card.ExpMonth < month) {
			e := gatewayError("expired_card")
			return &e
		}
		if !cvcPattern.MatchString(card.CVC) {
			return &models.GatewayError{Code: "invalid_cvc", Message: "Invalid CVC"}
		}
	}

	if method.BillingDetails != nil && method.BillingDetails.Email == "" {
		return &models.GatewayError{Code: "invalid_request", Message: "Billing details email is required"}
	}

	return nil
}

// luhnValid runs the Luhn checksum over a digits-only card number
func luhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

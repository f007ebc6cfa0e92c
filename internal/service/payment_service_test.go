package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntalhaozcandev/basic-ecom-backend/internal/auth"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/broker"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/errs"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/inventory"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/models"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/store"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/util"
)

func validCard() PaymentMethodData {
	return PaymentMethodData{
		Type: "card",
		Card: &CardData{Number: "4242424242424242", ExpMonth: 12, ExpYear: 2030, CVC: "123"},
	}
}

func declineCard(number string) PaymentMethodData {
	return PaymentMethodData{
		Type: "card",
		Card: &CardData{Number: number, ExpMonth: 12, ExpYear: 2030, CVC: "123"},
	}
}

// paymentFixture wires a paid-for order plus a payment service using rng
func paymentFixture(t *testing.T, rng util.Rand) (*PaymentService, *store.Memory, *models.Order) {
	t.Helper()
	m := newTestStore()
	clock := util.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	events := broker.NewEventPublisher(nil)

	ledger := inventory.NewLedger(m, nil)
	orders := NewOrderService(m, m, m, ledger, events, clock)
	carts := NewCartService(m, m)

	ctx := context.Background()
	_, err := carts.AddItem(ctx, "u1", "p1", 3)
	require.NoError(t, err)
	order, err := orders.Checkout(ctx, "u1", checkoutReq())
	require.NoError(t, err)

	svc := NewPaymentService(m, m, events, rng, clock, util.NopSleeper{})
	return svc, m, order
}

func TestCreateIntentAmountTooLow(t *testing.T) {
	svc, _, _ := paymentFixture(t, util.FixedRand{F: 0})

	_, err := svc.CreateIntent(context.Background(), userIdentity, &CreateIntentRequest{Amount: 49})
	assert.Equal(t, errs.CodeAmountTooLow, errs.CodeOf(err))
}

func TestCreateIntentAmountMustMatchOrder(t *testing.T) {
	svc, _, order := paymentFixture(t, util.FixedRand{F: 0})

	_, err := svc.CreateIntent(context.Background(), userIdentity, &CreateIntentRequest{
		Amount:  order.Total + 1,
		OrderID: order.ID,
	})
	assert.Equal(t, errs.CodeAmountMismatch, errs.CodeOf(err))

	// other users cannot pay for the order
	_, err = svc.CreateIntent(context.Background(), auth.Identity{UserID: "u2", Role: auth.RoleUser}, &CreateIntentRequest{
		Amount:  order.Total,
		OrderID: order.ID,
	})
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))
}

func TestCreateIntentLinksOrder(t *testing.T) {
	svc, m, order := paymentFixture(t, util.FixedRand{F: 0})
	ctx := context.Background()

	intent, err := svc.CreateIntent(ctx, userIdentity, &CreateIntentRequest{
		Amount:  order.Total,
		OrderID: order.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusRequiresPaymentMethod, intent.Status)
	assert.Equal(t, order.ID, intent.Metadata["order_id"])

	got, err := m.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, intent.ID, got.IntentID)
	require.Len(t, got.PaymentHistory, 1)
	assert.Equal(t, models.PaymentActionIntentCreated, got.PaymentHistory[0].Action)
}

func TestConfirmIntentSuccess(t *testing.T) {
	svc, m, order := paymentFixture(t, util.FixedRand{F: 0})
	ctx := context.Background()

	intent, err := svc.CreateIntent(ctx, userIdentity, &CreateIntentRequest{
		Amount:  order.Total,
		OrderID: order.ID,
	})
	require.NoError(t, err)

	result, err := svc.ConfirmIntent(ctx, userIdentity, intent.ID, validCard(), "STRIPE")
	require.NoError(t, err)

	// STRIPE fee: round(3000 * 0.029) + 30 = 117
	assert.Equal(t, int64(3000), result.Transaction.Amount)
	assert.Equal(t, int64(117), result.Transaction.ProcessingFee)
	assert.Equal(t, int64(2883), result.Transaction.NetAmount)
	assert.Equal(t, models.IntentStatusSucceeded, result.Intent.Status)

	got, err := m.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, got.Status)
	assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)
	require.NotNil(t, got.PaymentInfo)
	assert.Equal(t, result.Transaction.ID, got.PaymentInfo.TransactionID)
}

func TestConfirmIntentIsIdempotent(t *testing.T) {
	svc, _, order := paymentFixture(t, util.FixedRand{F: 0})
	ctx := context.Background()

	intent, err := svc.CreateIntent(ctx, userIdentity, &CreateIntentRequest{
		Amount:  order.Total,
		OrderID: order.ID,
	})
	require.NoError(t, err)

	_, err = svc.ConfirmIntent(ctx, userIdentity, intent.ID, validCard(), "STRIPE")
	require.NoError(t, err)

	_, err = svc.ConfirmIntent(ctx, userIdentity, intent.ID, validCard(), "STRIPE")
	assert.Equal(t, errs.CodeAlreadyConfirmed, errs.CodeOf(err))
}

func TestConfirmIntentDeclineCardIsDeterministic(t *testing.T) {
	// a winning success draw must not rescue a designated decline card
	svc, m, order := paymentFixture(t, util.FixedRand{F: 0})
	ctx := context.Background()

	intent, err := svc.CreateIntent(ctx, userIdentity, &CreateIntentRequest{
		Amount:  order.Total,
		OrderID: order.ID,
	})
	require.NoError(t, err)

	_, err = svc.ConfirmIntent(ctx, userIdentity, intent.ID, declineCard("4000000000000002"), "STRIPE")
	require.Error(t, err)
	assert.Equal(t, errs.KindGateway, errs.KindOf(err))
	assert.Equal(t, "card_declined", errs.CodeOf(err))

	// decline is persisted on the intent and the order history
	got, err := svc.GetIntent(ctx, userIdentity, intent.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "card_declined", got.LastError.Code)
	assert.Equal(t, models.IntentStatusRequiresPaymentMethod, got.Status)

	o, err := m.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusUnpaid, o.PaymentStatus)
	last := o.PaymentHistory[len(o.PaymentHistory)-1]
	assert.Equal(t, models.PaymentActionFailed, last.Action)
	assert.Equal(t, "card_declined", last.ErrorCode)
}

func TestConfirmIntentRandomDecline(t *testing.T) {
	svc, _, order := paymentFixture(t, util.FixedRand{F: 0.99, N: 1})
	ctx := context.Background()

	intent, err := svc.CreateIntent(ctx, userIdentity, &CreateIntentRequest{
		Amount:  order.Total,
		OrderID: order.ID,
	})
	require.NoError(t, err)

	_, err = svc.ConfirmIntent(ctx, userIdentity, intent.ID, validCard(), "STRIPE")
	require.Error(t, err)
	assert.Equal(t, errs.KindGateway, errs.KindOf(err))
	assert.Equal(t, "insufficient_funds", errs.CodeOf(err))

	// the intent stays confirmable after a random decline
	got, err := svc.GetIntent(ctx, userIdentity, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusRequiresPaymentMethod, got.Status)
}

func TestConfirmIntentUnknownProcessor(t *testing.T) {
	svc, _, _ := paymentFixture(t, util.FixedRand{F: 0})

	_, err := svc.ConfirmIntent(context.Background(), userIdentity, "pi_x", validCard(), "SQUARE")
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestValidatePaymentMethod(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.Nil(t, validatePaymentMethod(validCard(), now))

	expired := validCard()
	expired.Card.ExpYear = 2024
	ge := validatePaymentMethod(expired, now)
	require.NotNil(t, ge)
	assert.Equal(t, "expired_card", ge.Code)

	badLuhn := validCard()
	badLuhn.Card.Number = "4242424242424241"
	ge = validatePaymentMethod(badLuhn, now)
	require.NotNil(t, ge)
	assert.Equal(t, "invalid_number", ge.Code)

	badCVC := validCard()
	badCVC.Card.CVC = "12"
	ge = validatePaymentMethod(badCVC, now)
	require.NotNil(t, ge)
	assert.Equal(t, "invalid_cvc", ge.Code)

	// decline number wins even with spaces
	spaced := validCard()
	spaced.Card.Number = "4000 0000 0000 0002"
	ge = validatePaymentMethod(spaced, now)
	require.NotNil(t, ge)
	assert.Equal(t, "card_declined", ge.Code)
}

func TestLuhn(t *testing.T) {
	assert.True(t, luhnValid("4242424242424242"))
	assert.True(t, luhnValid("4000000000000002"))
	assert.False(t, luhnValid("4242424242424241"))
	assert.False(t, luhnValid("42424242abc42424"))
}

func confirmOrder(t *testing.T, svc *PaymentService, order *models.Order) *models.Transaction {
	t.Helper()
	ctx := context.Background()
	intent, err := svc.CreateIntent(ctx, userIdentity, &CreateIntentRequest{
		Amount:  order.Total,
		OrderID: order.ID,
	})
	require.NoError(t, err)
	result, err := svc.ConfirmIntent(ctx, userIdentity, intent.ID, validCard(), "STRIPE")
	require.NoError(t, err)
	return result.Transaction
}

func TestProcessRefundPartialThenFull(t *testing.T) {
	svc, m, order := paymentFixture(t, util.FixedRand{F: 0})
	ctx := context.Background()
	txn := confirmOrder(t, svc, order) // 3000 paid

	part := int64(1800)
	refund, err := svc.ProcessRefund(ctx, userIdentity, txn.ID, &part, "damaged item")
	require.NoError(t, err)
	assert.Equal(t, int64(1800), refund.Amount)

	got, _ := m.GetOrder(ctx, order.ID)
	assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)
	assert.Equal(t, int64(1200), got.RemainingBalance())

	// no amount defaults to the remaining balance
	refund, err = svc.ProcessRefund(ctx, userIdentity, txn.ID, nil, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), refund.Amount)

	got, _ = m.GetOrder(ctx, order.ID)
	assert.Equal(t, models.PaymentStatusRefunded, got.PaymentStatus)
	assert.Equal(t, models.OrderStatusCanceled, got.Status)

	_, err = svc.ProcessRefund(ctx, userIdentity, txn.ID, nil, "")
	assert.Equal(t, errs.CodeAlreadyRefunded, errs.CodeOf(err))
}

func TestProcessRefundCannotExceedBalance(t *testing.T) {
	svc, _, order := paymentFixture(t, util.FixedRand{F: 0})
	ctx := context.Background()
	txn := confirmOrder(t, svc, order) // 3000 paid

	part := int64(1800)
	_, err := svc.ProcessRefund(ctx, userIdentity, txn.ID, &part, "")
	require.NoError(t, err)

	over := int64(1500) // 1800 + 1500 > 3000
	_, err = svc.ProcessRefund(ctx, userIdentity, txn.ID, &over, "")
	assert.Equal(t, errs.CodeRefundExceedsBalance, errs.CodeOf(err))

	exact := int64(1200)
	_, err = svc.ProcessRefund(ctx, userIdentity, txn.ID, &exact, "")
	assert.NoError(t, err)
}

func TestProcessRefundValidatesBeforeDraw(t *testing.T) {
	svc, m, order := paymentFixture(t, util.FixedRand{F: 0})
	ctx := context.Background()
	txn := confirmOrder(t, svc, order) // 3000 paid

	_, err := svc.ProcessRefund(ctx, userIdentity, txn.ID, nil, "")
	require.NoError(t, err)

	// a losing draw on an exhausted balance must still surface the conflict,
	// not a retryable gateway failure
	svc.rand = util.FixedRand{F: 0.99}
	_, err = svc.ProcessRefund(ctx, userIdentity, txn.ID, nil, "")
	assert.Equal(t, errs.CodeAlreadyRefunded, errs.CodeOf(err))
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))

	got, _ := m.GetOrder(ctx, order.ID)
	assert.Len(t, got.Refunds, 1)
}

func TestProcessRefundGatewayFailureLeavesBalance(t *testing.T) {
	svc, m, order := paymentFixture(t, util.FixedRand{F: 0})
	ctx := context.Background()
	txn := confirmOrder(t, svc, order) // 3000 paid

	svc.rand = util.FixedRand{F: 0.99}
	_, err := svc.ProcessRefund(ctx, userIdentity, txn.ID, nil, "")
	assert.Equal(t, errs.KindGateway, errs.KindOf(err))
	assert.Equal(t, "processing_error", errs.CodeOf(err))

	got, _ := m.GetOrder(ctx, order.ID)
	assert.Empty(t, got.Refunds)
	assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)
	assert.Equal(t, int64(3000), got.RemainingBalance())
}

func TestProcessRefundRequiresPaidOrder(t *testing.T) {
	svc, _, _ := paymentFixture(t, util.FixedRand{F: 0})

	_, err := svc.ProcessRefund(context.Background(), userIdentity, "txn_missing", nil, "")
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestGetTransactionOwnership(t *testing.T) {
	svc, _, order := paymentFixture(t, util.FixedRand{F: 0})
	ctx := context.Background()
	txn := confirmOrder(t, svc, order)

	_, err := svc.GetTransaction(ctx, userIdentity, txn.ID)
	assert.NoError(t, err)

	_, err = svc.GetTransaction(ctx, auth.Identity{UserID: "u2", Role: auth.RoleUser}, txn.ID)
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))

	_, err = svc.GetTransaction(ctx, adminIdentity, txn.ID)
	assert.NoError(t, err)
}

func TestPaymentHistoryPagination(t *testing.T) {
	svc, _, order := paymentFixture(t, util.FixedRand{F: 0})
	ctx := context.Background()
	confirmOrder(t, svc, order)

	orders, pagination, err := svc.History(ctx, userIdentity, 1, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 1, pagination.Total)
	assert.Equal(t, 1, pagination.Pages)

	orders, pagination, err = svc.History(ctx, userIdentity, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, 1, pagination.Total)
}

package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ntalhaozcandev/basic-ecom-backend/internal/auth"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/broker"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/errs"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/models"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/store"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/util"
)

// PaymentService simulates a payment gateway: intents, confirmation with card
// validation and a success-rate draw, fees, and refund accounting. It holds
// only configuration; all mutable state lives behind the repositories.
type PaymentService struct {
	orders   store.OrderRepo
	payments store.PaymentRepo
	events   *broker.EventPublisher
	rand     util.Rand
	clock    util.Clock
	sleep    util.Sleeper
	logger   *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	orders store.OrderRepo,
	payments store.PaymentRepo,
	events *broker.EventPublisher,
	rand util.Rand,
	clock util.Clock,
	sleep util.Sleeper,
) *PaymentService {
	return &PaymentService{
		orders:   orders,
		payments: payments,
		events:   events,
		rand:     rand,
		clock:    clock,
		sleep:    sleep,
		logger:   util.GetLogger(),
	}
}

func newToken(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// CreateIntentRequest carries the fields for intent creation
type CreateIntentRequest struct {
	Amount   int64             `json:"amount" binding:"required"`
	Currency string            `json:"currency"`
	OrderID  string            `json:"order_id"`
	Metadata map[string]string `json:"metadata"`
}

// CreateIntent produces an intent in requires_payment_method state. When the
// request references an order, the order must belong to the requester and the
// amount must match its total; the order is linked and the event recorded.
func (s *PaymentService) CreateIntent(ctx context.Context, requester auth.Identity, req *CreateIntentRequest) (*models.PaymentIntent, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.CreateIntent")
	defer span.End()

	s.sleep.Sleep(ctx, 500*time.Millisecond, 1000*time.Millisecond)

	if req.Amount < MinIntentAmount {
		return nil, errs.Conflict(errs.CodeAmountTooLow, "amount must be at least $0.50")
	}

	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = "usd"
	}

	if req.OrderID != "" {
		order, err := s.orders.GetOrder(ctx, req.OrderID)
		if err != nil {
			return nil, err
		}
		if !requester.CanAccess(order.UserID) {
			return nil, errs.Forbidden("unauthorized for this order")
		}
		if req.Amount != order.Total {
			return nil, errs.Conflict(errs.CodeAmountMismatch, "amount must match order total")
		}
	}

	metadata := make(map[string]string, len(req.Metadata)+3)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["user_id"] = requester.UserID
	if requester.Email != "" {
		metadata["user_email"] = requester.Email
	}
	if req.OrderID != "" {
		metadata["order_id"] = req.OrderID
	}

	intent := &models.PaymentIntent{
		ID:           newToken("pi"),
		Amount:       req.Amount,
		Currency:     currency,
		Status:       models.IntentStatusRequiresPaymentMethod,
		ClientSecret: newToken("pi_secret"),
		Metadata:     metadata,
		CreatedAt:    s.clock.Now(),
	}

	if err := s.payments.SaveIntent(ctx, intent); err != nil {
		return nil, errs.Internal(err)
	}

	if req.OrderID != "" {
		_, err := s.orders.Mutate(ctx, req.OrderID, func(o *models.Order) error {
			o.IntentID = intent.ID
			o.PaymentHistory = append(o.PaymentHistory, models.PaymentEvent{
				Action:    models.PaymentActionIntentCreated,
				IntentID:  intent.ID,
				Amount:    intent.Amount,
				Timestamp: s.clock.Now(),
			})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	util.PaymentIntentsTotal.Inc()
	return intent, nil
}

// ConfirmResult is the outcome of a successful confirmation
type ConfirmResult struct {
	Intent      *models.PaymentIntent `json:"payment_intent"`
	Transaction *models.Transaction   `json:"transaction"`
}

// ConfirmIntent validates the payment method, draws the processor's simulated
// outcome and, on success, creates the transaction and marks the linked order
// paid. Confirmation is idempotent per intent: an already-succeeded intent is
// rejected under the record lock, so no second transaction or fee can occur.
func (s *PaymentService) ConfirmIntent(ctx context.Context, requester auth.Identity, intentID string, method PaymentMethodData, processorCode string) (*ConfirmResult, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.ConfirmIntent")
	defer span.End()

	start := time.Now()
	defer func() {
		util.PaymentProcessingLatency.Observe(time.Since(start).Seconds())
	}()

	if processorCode == "" {
		processorCode = "STRIPE"
	}
	processorCode = strings.ToUpper(processorCode)
	proc, ok := Processors[processorCode]
	if !ok {
		return nil, errs.Validation("unknown processor: %s", processorCode)
	}

	s.sleep.Sleep(ctx, proc.AvgLatency/2, proc.AvgLatency*3/2)

	intent, err := s.payments.GetIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if owner := intent.Metadata["user_id"]; !requester.CanAccess(owner) {
		return nil, errs.Forbidden("unauthorized for this payment intent")
	}

	orderID := intent.Metadata["order_id"]
	if orderID == "" {
		// Orders link intents at creation; fall back to the reverse index for
		// intents whose metadata predates the link.
		if linked, err := s.orders.GetOrderByIntentID(ctx, intentID); err == nil {
			orderID = linked.ID
		}
	}
	if orderID != "" {
		order, err := s.orders.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if order.PaymentStatus == models.PaymentStatusPaid {
			return nil, errs.Conflict(errs.CodeAlreadyConfirmed, "payment intent already confirmed")
		}
	}

	var (
		alreadyConfirmed bool
		declined         *models.GatewayError
		txn              *models.Transaction
	)

	updated, err := s.payments.MutateIntent(ctx, intentID, func(in *models.PaymentIntent) error {
		if in.Status == models.IntentStatusSucceeded {
			alreadyConfirmed = true
			return nil
		}

		// Designated decline cards and malformed methods fail before the
		// success-rate draw, so they decline deterministically.
		if ge := validatePaymentMethod(method, s.clock.Now()); ge != nil {
			declined = ge
			in.LastError = ge
			return nil
		}

		if s.rand.Float64() >= proc.SuccessRate {
			e := paymentErrorCatalog[s.rand.Intn(len(paymentErrorCatalog))]
			declined = &e
			in.LastError = &e
			return nil
		}

		fee := int64(math.Round(float64(in.Amount)*proc.FeeRate)) + proc.FixedFee
		txn = &models.Transaction{
			ID:            newToken("txn"),
			IntentID:      in.ID,
			Amount:        in.Amount,
			Currency:      in.Currency,
			NetAmount:     in.Amount - fee,
			ProcessingFee: fee,
			Processor:     processorCode,
			PaymentMethod: method.Type,
			Metadata:      in.Metadata,
			CreatedAt:     s.clock.Now(),
		}
		in.Status = models.IntentStatusSucceeded
		in.TransactionID = txn.ID
		in.LastError = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	if alreadyConfirmed {
		return nil, errs.Conflict(errs.CodeAlreadyConfirmed, "payment intent already confirmed")
	}

	if declined != nil {
		util.PaymentConfirmsTotal.WithLabelValues(processorCode, "failure").Inc()
		s.recordPaymentFailure(ctx, orderID, intentID, declined)
		return nil, errs.Gateway(declined.Code, declined.Message)
	}

	if err := s.payments.SaveTransaction(ctx, txn); err != nil {
		return nil, errs.Internal(err)
	}

	if orderID != "" {
		_, err = s.orders.Mutate(ctx, orderID, func(o *models.Order) error {
			if o.PaymentStatus == models.PaymentStatusPaid {
				return errs.Conflict(errs.CodeAlreadyConfirmed, "order already paid")
			}
			o.PaymentStatus = models.PaymentStatusPaid
			if o.Status.CanTransitionTo(models.OrderStatusPaid) {
				o.Status = models.OrderStatusPaid
			}
			o.PaymentInfo = &models.PaymentInfo{
				TransactionID: txn.ID,
				Processor:     processorCode,
				PaymentMethod: method.Type,
				Amount:        txn.Amount,
				ProcessingFee: txn.ProcessingFee,
				NetAmount:     txn.NetAmount,
				PaidAt:        s.clock.Now(),
			}
			o.PaymentHistory = append(o.PaymentHistory, models.PaymentEvent{
				Action:        models.PaymentActionConfirmed,
				IntentID:      intentID,
				TransactionID: txn.ID,
				Amount:        txn.Amount,
				Timestamp:     s.clock.Now(),
			})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	util.PaymentConfirmsTotal.WithLabelValues(processorCode, "success").Inc()
	s.logger.Info("Payment confirmed",
		zap.String("intent_id", intentID),
		zap.String("transaction_id", txn.ID),
		zap.Int64("amount", txn.Amount))

	s.events.PublishOrderPaid(ctx, &models.OrderPaidEvent{
		BaseEvent:     broker.NewBaseEvent(models.EventTypeOrderPaid),
		OrderID:       orderID,
		TransactionID: txn.ID,
		Amount:        txn.Amount,
		Processor:     processorCode,
	})

	return &ConfirmResult{Intent: updated, Transaction: txn}, nil
}

func (s *PaymentService) recordPaymentFailure(ctx context.Context, orderID, intentID string, ge *models.GatewayError) {
	if orderID != "" {
		_, err := s.orders.Mutate(ctx, orderID, func(o *models.Order) error {
			o.PaymentHistory = append(o.PaymentHistory, models.PaymentEvent{
				Action:    models.PaymentActionFailed,
				IntentID:  intentID,
				ErrorCode: ge.Code,
				Timestamp: s.clock.Now(),
			})
			return nil
		})
		if err != nil {
			s.logger.Error("Failed to record payment failure", zap.Error(err))
		}
	}

	s.events.PublishPaymentFailed(ctx, &models.PaymentFailedEvent{
		BaseEvent: broker.NewBaseEvent(models.EventTypePaymentFailed),
		OrderID:   orderID,
		IntentID:  intentID,
		ErrorCode: ge.Code,
	})
}

// ProcessPayment is the compound create-and-confirm operation
func (s *PaymentService) ProcessPayment(ctx context.Context, requester auth.Identity, req *CreateIntentRequest, method PaymentMethodData, processorCode string) (*ConfirmResult, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.ProcessPayment")
	defer span.End()

	if req.OrderID != "" {
		order, err := s.orders.GetOrder(ctx, req.OrderID)
		if err != nil {
			return nil, err
		}
		if order.PaymentStatus == models.PaymentStatusPaid {
			return nil, errs.Conflict(errs.CodeAlreadyConfirmed, "order already paid")
		}
	}

	intent, err := s.CreateIntent(ctx, requester, req)
	if err != nil {
		return nil, err
	}
	return s.ConfirmIntent(ctx, requester, intent.ID, method, processorCode)
}

// ProcessRefund refunds part or all of a paid transaction. The balance
// invariant (sum of refunds never exceeds the paid amount) is evaluated
// against the latest persisted refund total under the order record lock, so
// concurrent refund attempts cannot both pass it.
func (s *PaymentService) ProcessRefund(ctx context.Context, requester auth.Identity, transactionID string, amount *int64, reason string) (*models.Refund, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.ProcessRefund")
	defer span.End()

	if reason == "" {
		reason = "requested_by_customer"
	}

	order, err := s.orders.GetOrderByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !requester.CanAccess(order.UserID) {
		return nil, errs.Forbidden("unauthorized for this order")
	}

	s.sleep.Sleep(ctx, 1000*time.Millisecond, 2000*time.Millisecond)

	var (
		refund        models.Refund
		fullyRefunded bool
	)
	_, err = s.orders.Mutate(ctx, order.ID, func(o *models.Order) error {
		if o.PaymentInfo == nil || o.PaymentStatus == models.PaymentStatusUnpaid {
			return errs.Conflict(errs.CodeNotPaid, "only paid orders can be refunded")
		}
		paid := o.PaymentInfo.Amount
		refunded := o.TotalRefunded()
		if o.PaymentStatus == models.PaymentStatusRefunded || refunded >= paid {
			return errs.Conflict(errs.CodeAlreadyRefunded, "transaction has already been fully refunded")
		}

		amt := paid - refunded
		if amount != nil {
			amt = *amount
		}
		if amt <= 0 {
			return errs.Validation("refund amount must be positive")
		}
		if refunded+amt > paid {
			return errs.Conflict(errs.CodeRefundExceedsBalance, "refund amount would exceed available balance")
		}

		// The success draw comes after validation so an invalid request
		// always surfaces its conflict, never a retryable gateway error.
		if s.rand.Float64() >= RefundSuccessRate {
			return errs.Gateway("processing_error", "Refund processing failed. Please try again later.")
		}

		refund = models.Refund{
			RefundID:    newToken("re"),
			Amount:      amt,
			Reason:      reason,
			ProcessedAt: s.clock.Now(),
		}
		o.Refunds = append(o.Refunds, refund)
		o.PaymentHistory = append(o.PaymentHistory, models.PaymentEvent{
			Action:        models.PaymentActionRefundProcessed,
			TransactionID: transactionID,
			Amount:        amt,
			Timestamp:     s.clock.Now(),
		})

		if refunded+amt == paid {
			o.PaymentStatus = models.PaymentStatusRefunded
			o.Status = models.OrderStatusCanceled
			fullyRefunded = true
		}
		return nil
	})
	if err != nil {
		if errs.KindOf(err) == errs.KindGateway {
			util.RefundsTotal.WithLabelValues("failure").Inc()
		}
		return nil, err
	}

	util.RefundsTotal.WithLabelValues("success").Inc()
	s.logger.Info("Refund processed",
		zap.String("order_id", order.ID),
		zap.String("refund_id", refund.RefundID),
		zap.Int64("amount", refund.Amount))

	s.events.PublishRefundProcessed(ctx, &models.RefundProcessedEvent{
		BaseEvent:     broker.NewBaseEvent(models.EventTypeRefundProcessed),
		OrderID:       order.ID,
		TransactionID: transactionID,
		RefundID:      refund.RefundID,
		Amount:        refund.Amount,
		FullyRefunded: fullyRefunded,
	})

	return &refund, nil
}

// GetIntent returns the intent if the requester matches its metadata user or is an admin
func (s *PaymentService) GetIntent(ctx context.Context, requester auth.Identity, intentID string) (*models.PaymentIntent, error) {
	s.sleep.Sleep(ctx, 200*time.Millisecond, 500*time.Millisecond)

	intent, err := s.payments.GetIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if owner := intent.Metadata["user_id"]; !requester.CanAccess(owner) {
		return nil, errs.Forbidden("unauthorized to access this payment intent")
	}
	return intent, nil
}

// GetTransaction returns the transaction if the requester matches its metadata user or is an admin
func (s *PaymentService) GetTransaction(ctx context.Context, requester auth.Identity, transactionID string) (*models.Transaction, error) {
	s.sleep.Sleep(ctx, 200*time.Millisecond, 500*time.Millisecond)

	txn, err := s.payments.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if owner := txn.Metadata["user_id"]; !requester.CanAccess(owner) {
		return nil, errs.Forbidden("unauthorized to access this transaction")
	}
	return txn, nil
}

// Pagination describes a page of results
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Limit int `json:"limit"`
}

// History returns the requester's paid orders, newest first, paginated
func (s *PaymentService) History(ctx context.Context, requester auth.Identity, page, limit int) ([]models.Order, Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	orders, total, err := s.orders.ListPaidOrdersByUser(ctx, requester.UserID, store.Page{
		Offset: (page - 1) * limit,
		Limit:  limit,
	})
	if err != nil {
		return nil, Pagination{}, err
	}

	pages := (total + limit - 1) / limit
	return orders, Pagination{Total: total, Page: page, Pages: pages, Limit: limit}, nil
}

package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ntalhaozcandev/basic-ecom-backend/internal/auth"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/broker"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/errs"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/models"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/store"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/util"
)

// Tracking thresholds: elapsed time since label creation past which each
// status is considered reached.
var trackingThresholds = []struct {
	After  time.Duration
	Status models.ShipmentStatus
}{
	{2 * time.Hour, models.ShipmentStatusPickedUp},
	{6 * time.Hour, models.ShipmentStatusInTransit},
	{24 * time.Hour, models.ShipmentStatusAtFacility},
	{48 * time.Hour, models.ShipmentStatusOutForDelivery},
	{72 * time.Hour, models.ShipmentStatusDelivered},
}

// ShippingService simulates a carrier gateway: rate shopping, label purchase,
// time-driven tracking progression and cancellation.
type ShippingService struct {
	orders    store.OrderRepo
	shipments store.ShipmentRepo
	events    *broker.EventPublisher
	rand      util.Rand
	clock     util.Clock
	sleep     util.Sleeper
	logger    *zap.Logger
}

// NewShippingService creates a new shipping service
func NewShippingService(
	orders store.OrderRepo,
	shipments store.ShipmentRepo,
	events *broker.EventPublisher,
	rand util.Rand,
	clock util.Clock,
	sleep util.Sleeper,
) *ShippingService {
	return &ShippingService{
		orders:    orders,
		shipments: shipments,
		events:    events,
		rand:      rand,
		clock:     clock,
		sleep:     sleep,
		logger:    util.GetLogger(),
	}
}

// Package describes the parcel being quoted or shipped.
// Weight is in pounds, dimensions in inches.
type Package struct {
	Weight float64 `json:"weight" binding:"required"`
	Length float64 `json:"length" binding:"required"`
	Width  float64 `json:"width" binding:"required"`
	Height float64 `json:"height" binding:"required"`
}

// RateRequest asks for quotes on a parcel between two addresses
type RateRequest struct {
	From   models.Address `json:"from"`
	To     models.Address `json:"to" binding:"required"`
	Parcel Package        `json:"package" binding:"required"`
}

// RateQuote is one carrier/service quote
type RateQuote struct {
	RequestID         string `json:"rate_request_id"`
	CarrierID         string `json:"carrier_id"`
	CarrierName       string `json:"carrier_name"`
	ServiceCode       string `json:"service_code"`
	ServiceName       string `json:"service_name"`
	Description       string `json:"description"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
	DeliveryDaysMin   int    `json:"delivery_days_min"`
	DeliveryDaysMax   int    `json:"delivery_days_max"`
	EstimatedDelivery string `json:"estimated_delivery_date"`
}

func validateParcel(p Package) error {
	if p.Weight <= 0 {
		return errs.Validation("package weight must be positive")
	}
	if p.Length <= 0 || p.Width <= 0 || p.Height <= 0 {
		return errs.Validation("package dimensions must be positive")
	}
	return nil
}

func validateDestination(a models.Address) error {
	if a.City == "" || a.State == "" || a.PostalCode == "" || a.Country == "" {
		return errs.Validation("destination requires city, state, postal_code and country")
	}
	return nil
}

// quote prices one service for a parcel going to dest. Billable weight is the
// larger of actual and volumetric weight; surcharges and the jitter draw match
// what a real carrier API would return for the same inputs within ±5%.
func (s *ShippingService) quote(svc CarrierService, parcel Package, dest models.Address) int64 {
	volumetric := parcel.Length * parcel.Width * parcel.Height / DimensionalDivisor
	billable := math.Max(parcel.Weight, volumetric)

	amount := float64(svc.BaseRate) + math.Max(0, billable-1)*250

	if !strings.EqualFold(dest.Country, "US") && !strings.EqualFold(dest.Country, "USA") {
		amount *= 2.5
	} else if !strings.EqualFold(dest.State, "CA") {
		amount *= 1.2
	}

	if parcel.Length > 48 || parcel.Width > 48 || parcel.Height > 48 {
		amount += 1500
	}

	jitter := 0.95 + s.rand.Float64()*0.10
	return int64(math.Round(amount * jitter))
}

// addBusinessDays advances t by n weekdays
func addBusinessDays(t time.Time, n int) time.Time {
	for n > 0 {
		t = t.AddDate(0, 0, 1)
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n--
		}
	}
	return t
}

// CalculateRates returns quotes for every carrier service, cheapest first
func (s *ShippingService) CalculateRates(ctx context.Context, req *RateRequest) ([]RateQuote, error) {
	ctx, span := util.StartSpan(ctx, "ShippingService.CalculateRates")
	defer span.End()

	if err := validateParcel(req.Parcel); err != nil {
		return nil, err
	}
	if err := validateDestination(req.To); err != nil {
		return nil, err
	}

	s.sleep.Sleep(ctx, 300*time.Millisecond, 800*time.Millisecond)

	requestID := newToken("req")
	now := s.clock.Now()

	var quotes []RateQuote
	for _, carrier := range Carriers {
		for _, svc := range carrier.Services {
			quotes = append(quotes, RateQuote{
				RequestID:         requestID,
				CarrierID:         carrier.ID,
				CarrierName:       carrier.Name,
				ServiceCode:       svc.Code,
				ServiceName:       svc.Name,
				Description:       svc.Description,
				Amount:            s.quote(svc, req.Parcel, req.To),
				Currency:          "usd",
				DeliveryDaysMin:   svc.DaysMin,
				DeliveryDaysMax:   svc.DaysMax,
				EstimatedDelivery: addBusinessDays(now, svc.DaysMax).Format("2006-01-02"),
			})
		}
	}

	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Amount < quotes[j].Amount })
	return quotes, nil
}

// CreateLabelRequest purchases a label for an order
type CreateLabelRequest struct {
	OrderID string         `json:"order_id" binding:"required"`
	Carrier string         `json:"carrier" binding:"required"`
	Service string         `json:"service" binding:"required"`
	To      models.Address `json:"to"`
	Parcel  Package        `json:"package" binding:"required"`
}

func newTrackingNumber(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return prefix + fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return prefix + strings.ToUpper(hex.EncodeToString(buf))
}

// CreateLabel purchases a label and attaches the shipment to the order. The
// simulated carrier failure is drawn before anything is written, so a rejected
// purchase leaves no partial shipment or order mutation behind.
func (s *ShippingService) CreateLabel(ctx context.Context, requester auth.Identity, req *CreateLabelRequest) (*models.Shipment, error) {
	ctx, span := util.StartSpan(ctx, "ShippingService.CreateLabel")
	defer span.End()

	carrier, svc, ok := findService(req.Carrier, req.Service)
	if !ok {
		return nil, errs.Validation("unknown carrier/service: %s/%s", req.Carrier, req.Service)
	}
	if err := validateParcel(req.Parcel); err != nil {
		return nil, err
	}

	order, err := s.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !requester.CanAccess(order.UserID) {
		return nil, errs.Forbidden("unauthorized for this order")
	}
	if order.PaymentStatus != models.PaymentStatusPaid {
		return nil, errs.Conflict(errs.CodeNotPaid, "order must be paid before shipping")
	}
	if order.ShippingInfo != nil && order.ShippingInfo.Status != models.ShipmentStatusCancelled {
		return nil, errs.Conflict(errs.CodeAlreadyInTransit, "order already has an active shipment")
	}

	dest := req.To
	if dest.City == "" {
		dest = order.ShippingAddress
	}
	if err := validateDestination(dest); err != nil {
		return nil, err
	}

	s.sleep.Sleep(ctx, 500*time.Millisecond, 1500*time.Millisecond)

	if s.rand.Float64() < ShippingFailureRate {
		util.ShippingLabelsTotal.WithLabelValues(carrier.ID, "failure").Inc()
		return nil, errs.Gateway("carrier_error", "Carrier rejected the label request. Please try again.")
	}

	now := s.clock.Now()
	shipmentID := newToken("ship")
	tracking := newTrackingNumber(carrier.TrackingPrefix)
	cost := s.quote(svc, req.Parcel, dest)

	shipment := &models.Shipment{
		ID:             shipmentID,
		OrderID:        order.ID,
		TrackingNumber: tracking,
		Carrier: models.CarrierRef{
			ID:      carrier.ID,
			Name:    carrier.Name,
			Service: svc.Code,
		},
		Cost:              cost,
		LabelURL:          fmt.Sprintf("https://shippinglabels.example.com/%s.pdf", shipmentID),
		EstimatedDelivery: addBusinessDays(now, svc.DaysMax).Format("2006-01-02"),
		Status:            models.ShipmentStatusLabelCreated,
		Events: []models.ShippingEvent{{
			Action:         models.ShippingActionLabelCreated,
			ShipmentID:     shipmentID,
			TrackingNumber: tracking,
			Status:         models.ShipmentStatusLabelCreated,
			Location:       "Origin Facility",
			Timestamp:      now,
		}},
		CreatedAt: now,
	}

	if err := s.shipments.SaveShipment(ctx, shipment); err != nil {
		return nil, errs.Internal(err)
	}

	_, err = s.orders.Mutate(ctx, order.ID, func(o *models.Order) error {
		o.ShippingInfo = &models.ShippingInfo{
			ShipmentID:        shipment.ID,
			TrackingNumber:    shipment.TrackingNumber,
			Carrier:           shipment.Carrier,
			ShippingCost:      shipment.Cost,
			LabelURL:          shipment.LabelURL,
			EstimatedDelivery: shipment.EstimatedDelivery,
			Status:            shipment.Status,
			CreatedAt:         shipment.CreatedAt,
		}
		o.ShippingHistory = append(o.ShippingHistory, models.ShippingEvent{
			Action:         models.ShippingActionLabelCreated,
			ShipmentID:     shipment.ID,
			TrackingNumber: shipment.TrackingNumber,
			Status:         shipment.Status,
			Timestamp:      now,
		})
		if o.Status.CanTransitionTo(models.OrderStatusShipped) {
			o.Status = models.OrderStatusShipped
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.ShippingLabelsTotal.WithLabelValues(carrier.ID, "success").Inc()
	s.logger.Info("Shipping label created",
		zap.String("order_id", order.ID),
		zap.String("shipment_id", shipment.ID),
		zap.String("tracking_number", tracking))

	s.events.PublishShipmentCreated(ctx, &models.ShipmentCreatedEvent{
		BaseEvent:      broker.NewBaseEvent(models.EventTypeShipmentCreated),
		OrderID:        order.ID,
		ShipmentID:     shipment.ID,
		TrackingNumber: tracking,
		Carrier:        carrier.ID,
	})

	return shipment, nil
}

// targetStatus derives the status a shipment should have reached after elapsed time
func targetStatus(elapsed time.Duration) models.ShipmentStatus {
	status := models.ShipmentStatusLabelCreated
	for _, t := range trackingThresholds {
		if elapsed > t.After {
			status = t.Status
		}
	}
	return status
}

// Track reports the shipment's event history, first appending any status
// events newly reached since label creation. Each intermediate status gets a
// location drawn once when first recorded; re-querying at the same elapsed
// time appends nothing, so histories never reorder or duplicate.
func (s *ShippingService) Track(ctx context.Context, trackingNumber string) (*models.Shipment, error) {
	ctx, span := util.StartSpan(ctx, "ShippingService.Track")
	defer span.End()

	s.sleep.Sleep(ctx, 200*time.Millisecond, 600*time.Millisecond)

	current, err := s.shipments.GetShipmentByTracking(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	if current.Status == models.ShipmentStatusCancelled {
		return current, nil
	}

	now := s.clock.Now()
	target := targetStatus(now.Sub(current.CreatedAt))

	var delivered bool
	updated, err := s.shipments.MutateShipment(ctx, current.ID, func(sh *models.Shipment) error {
		if sh.Status == models.ShipmentStatusCancelled {
			return nil
		}
		from := sh.Status.Rank()
		to := target.Rank()
		for i := from + 1; i <= to; i++ {
			status := models.TrackingProgression[i]
			location := trackingLocations[s.rand.Intn(len(trackingLocations))]
			if status == models.ShipmentStatusDelivered {
				location = "Destination"
			}
			sh.Events = append(sh.Events, models.ShippingEvent{
				Action:         models.ShippingActionStatusUpdated,
				ShipmentID:     sh.ID,
				TrackingNumber: sh.TrackingNumber,
				Status:         status,
				Location:       location,
				Timestamp:      sh.CreatedAt.Add(time.Duration(i) * 12 * time.Hour),
			})
		}
		if to > from {
			sh.Status = target
			delivered = target == models.ShipmentStatusDelivered
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if updated.Status != current.Status {
		s.syncOrderShipping(ctx, updated, delivered)
	}

	return updated, nil
}

// syncOrderShipping mirrors a tracking progression onto the owning order
func (s *ShippingService) syncOrderShipping(ctx context.Context, shipment *models.Shipment, delivered bool) {
	_, err := s.orders.Mutate(ctx, shipment.OrderID, func(o *models.Order) error {
		if o.ShippingInfo != nil && o.ShippingInfo.ShipmentID == shipment.ID {
			o.ShippingInfo.Status = shipment.Status
		}
		o.ShippingHistory = append(o.ShippingHistory, models.ShippingEvent{
			Action:         models.ShippingActionStatusUpdated,
			ShipmentID:     shipment.ID,
			TrackingNumber: shipment.TrackingNumber,
			Status:         shipment.Status,
			Timestamp:      s.clock.Now(),
		})
		if delivered && o.Status.CanTransitionTo(models.OrderStatusCompleted) {
			o.Status = models.OrderStatusCompleted
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to sync shipping status to order",
			zap.String("order_id", shipment.OrderID), zap.Error(err))
	}
}

// CancelResult is the outcome of a shipment cancellation
type CancelResult struct {
	Shipment *models.Shipment `json:"shipment"`
	Refund   int64            `json:"refund"`
}

// Cancel voids a label that has not been picked up yet. The order reverts
// shipped to paid and 90% of the shipping cost is refunded.
func (s *ShippingService) Cancel(ctx context.Context, requester auth.Identity, shipmentID string) (*CancelResult, error) {
	ctx, span := util.StartSpan(ctx, "ShippingService.Cancel")
	defer span.End()

	shipment, err := s.shipments.GetShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.GetOrder(ctx, shipment.OrderID)
	if err != nil {
		return nil, err
	}
	if !requester.CanAccess(order.UserID) {
		return nil, errs.Forbidden("unauthorized for this shipment")
	}

	s.sleep.Sleep(ctx, 300*time.Millisecond, 800*time.Millisecond)

	now := s.clock.Now()
	updated, err := s.shipments.MutateShipment(ctx, shipmentID, func(sh *models.Shipment) error {
		if !sh.Status.Cancellable() {
			return errs.Conflict(errs.CodeAlreadyInTransit, "shipment can no longer be cancelled")
		}
		sh.Status = models.ShipmentStatusCancelled
		sh.Events = append(sh.Events, models.ShippingEvent{
			Action:         models.ShippingActionCancelled,
			ShipmentID:     sh.ID,
			TrackingNumber: sh.TrackingNumber,
			Status:         models.ShipmentStatusCancelled,
			Timestamp:      now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	refund := int64(math.Round(float64(updated.Cost) * CancelRefundRate))

	_, err = s.orders.Mutate(ctx, order.ID, func(o *models.Order) error {
		if o.ShippingInfo != nil && o.ShippingInfo.ShipmentID == shipmentID {
			o.ShippingInfo.Status = models.ShipmentStatusCancelled
			o.ShippingInfo.CancelledAt = &now
		}
		o.ShippingHistory = append(o.ShippingHistory, models.ShippingEvent{
			Action:         models.ShippingActionCancelled,
			ShipmentID:     shipmentID,
			TrackingNumber: updated.TrackingNumber,
			Status:         models.ShipmentStatusCancelled,
			Timestamp:      now,
		})
		if o.Status == models.OrderStatusShipped {
			o.Status = models.OrderStatusPaid
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.ShipmentsCancelledTotal.Inc()
	s.logger.Info("Shipment cancelled",
		zap.String("shipment_id", shipmentID),
		zap.Int64("refund", refund))

	s.events.PublishShipmentCancelled(ctx, &models.ShipmentCancelledEvent{
		BaseEvent:  broker.NewBaseEvent(models.EventTypeShipmentCancelled),
		OrderID:    order.ID,
		ShipmentID: shipmentID,
		Refund:     refund,
	})

	return &CancelResult{Shipment: updated, Refund: refund}, nil
}

// OrderShipping returns the shipping summary stored on an order
func (s *ShippingService) OrderShipping(ctx context.Context, requester auth.Identity, orderID string) (*models.ShippingInfo, []models.ShippingEvent, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if !requester.CanAccess(order.UserID) {
		return nil, nil, errs.Forbidden("unauthorized for this order")
	}
	if order.ShippingInfo == nil {
		return nil, nil, errs.NotFound("order has no shipment")
	}
	return order.ShippingInfo, order.ShippingHistory, nil
}

package service

import (
	"context"
	"strings"
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

// shippingFixture wires a paid order and a shipping service.
// FixedRand{F: 0.5} passes the failure draw and makes the jitter factor
// exactly 1.0, so computed rates equal their deterministic value.
func shippingFixture(t *testing.T, rng util.Rand) (*ShippingService, *store.Memory, *models.Order, *util.FakeClock) {
	t.Helper()
	m := newTestStore()
	clock := util.NewFakeClock(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))
	events := broker.NewEventPublisher(nil)

	ledger := inventory.NewLedger(m, nil)
	orders := NewOrderService(m, m, m, ledger, events, clock)
	carts := NewCartService(m, m)
	payments := NewPaymentService(m, m, events, util.FixedRand{F: 0}, clock, util.NopSleeper{})

	ctx := context.Background()
	_, err := carts.AddItem(ctx, "u1", "p1", 3)
	require.NoError(t, err)
	order, err := orders.Checkout(ctx, "u1", checkoutReq())
	require.NoError(t, err)
	confirmOrder(t, payments, order)

	order, err = m.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPaid, order.Status)

	svc := NewShippingService(m, m, events, rng, clock, util.NopSleeper{})
	return svc, m, order, clock
}

func smallParcel() Package {
	return Package{Weight: 1, Length: 1, Width: 1, Height: 1}
}

func caDestination() models.Address {
	return models.Address{City: "Los Angeles", State: "CA", PostalCode: "90001", Country: "US"}
}

func TestCalculateRatesSortedAscending(t *testing.T) {
	svc, _, _, _ := shippingFixture(t, util.FixedRand{F: 0.5})

	quotes, err := svc.CalculateRates(context.Background(), &RateRequest{
		To:     caDestination(),
		Parcel: smallParcel(),
	})
	require.NoError(t, err)
	require.Len(t, quotes, 11)

	for i := 1; i < len(quotes); i++ {
		assert.LessOrEqual(t, quotes[i-1].Amount, quotes[i].Amount)
	}

	// 1lb parcel to CA with unit jitter quotes exactly the base rates
	assert.Equal(t, "usps-ground", quotes[0].ServiceCode)
	assert.Equal(t, int64(699), quotes[0].Amount)

	// every quote shares one request id
	for _, q := range quotes {
		assert.Equal(t, quotes[0].RequestID, q.RequestID)
		assert.NotEmpty(t, q.EstimatedDelivery)
	}
}

func TestCalculateRatesZoneMultipliers(t *testing.T) {
	svc, _, _, _ := shippingFixture(t, util.FixedRand{F: 0.5})
	ctx := context.Background()

	farZone := caDestination()
	farZone.State = "TX"
	quotes, err := svc.CalculateRates(ctx, &RateRequest{To: farZone, Parcel: smallParcel()})
	require.NoError(t, err)
	assert.Equal(t, int64(839), quotes[0].Amount) // 699 * 1.2

	intl := models.Address{City: "Toronto", State: "ON", PostalCode: "M5V", Country: "Canada"}
	quotes, err = svc.CalculateRates(ctx, &RateRequest{To: intl, Parcel: smallParcel()})
	require.NoError(t, err)
	assert.Equal(t, int64(1748), quotes[0].Amount) // 699 * 2.5
}

func TestCalculateRatesBillableWeight(t *testing.T) {
	svc, _, _, _ := shippingFixture(t, util.FixedRand{F: 0.5})
	ctx := context.Background()

	// 10x10x10 at 1lb: volumetric 1000/166 governs
	bulky := Package{Weight: 1, Length: 10, Width: 10, Height: 10}
	quotes, err := svc.CalculateRates(ctx, &RateRequest{To: caDestination(), Parcel: bulky})
	require.NoError(t, err)
	assert.Equal(t, int64(1955), quotes[0].Amount) // 699 + (1000/166 - 1) * 250

	// any dimension over 48 inches draws the oversize surcharge
	long := Package{Weight: 1, Length: 50, Width: 1, Height: 1}
	quotes, err = svc.CalculateRates(ctx, &RateRequest{To: caDestination(), Parcel: long})
	require.NoError(t, err)
	assert.Equal(t, int64(2199), quotes[0].Amount) // 699 + 1500
}

func TestCalculateRatesValidation(t *testing.T) {
	svc, _, _, _ := shippingFixture(t, util.FixedRand{F: 0.5})
	ctx := context.Background()

	_, err := svc.CalculateRates(ctx, &RateRequest{To: caDestination(), Parcel: Package{Weight: 0, Length: 1, Width: 1, Height: 1}})
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = svc.CalculateRates(ctx, &RateRequest{To: models.Address{City: "LA"}, Parcel: smallParcel()})
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func labelReq(orderID string) *CreateLabelRequest {
	return &CreateLabelRequest{
		OrderID: orderID,
		Carrier: "ups",
		Service: "ups-ground",
		Parcel:  smallParcel(),
	}
}

func TestCreateLabel(t *testing.T) {
	svc, m, order, _ := shippingFixture(t, util.FixedRand{F: 0.5})
	ctx := context.Background()

	shipment, err := svc.CreateLabel(ctx, userIdentity, labelReq(order.ID))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(shipment.TrackingNumber, "1Z"))
	assert.Equal(t, models.ShipmentStatusLabelCreated, shipment.Status)
	assert.Equal(t, int64(890), shipment.Cost)
	assert.Contains(t, shipment.LabelURL, shipment.ID)
	require.Len(t, shipment.Events, 1)
	assert.Equal(t, "Origin Facility", shipment.Events[0].Location)

	got, err := m.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, got.Status)
	require.NotNil(t, got.ShippingInfo)
	assert.Equal(t, shipment.ID, got.ShippingInfo.ShipmentID)
	require.Len(t, got.ShippingHistory, 1)
	assert.Equal(t, models.ShippingActionLabelCreated, got.ShippingHistory[0].Action)
}

func TestCreateLabelFailureLeavesNoTrace(t *testing.T) {
	// 0.01 loses the 5% failure draw
	svc, m, order, _ := shippingFixture(t, util.FixedRand{F: 0.01})
	ctx := context.Background()

	_, err := svc.CreateLabel(ctx, userIdentity, labelReq(order.ID))
	require.Error(t, err)
	assert.Equal(t, errs.KindGateway, errs.KindOf(err))

	got, err := m.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, got.Status)
	assert.Nil(t, got.ShippingInfo)
	assert.Empty(t, got.ShippingHistory)
}

func TestCreateLabelGuards(t *testing.T) {
	svc, m, order, _ := shippingFixture(t, util.FixedRand{F: 0.5})
	ctx := context.Background()

	req := labelReq(order.ID)
	req.Carrier = "dhl"
	_, err := svc.CreateLabel(ctx, userIdentity, req)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = svc.CreateLabel(ctx, auth.Identity{UserID: "u2", Role: auth.RoleUser}, labelReq(order.ID))
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))

	// second active shipment is rejected
	_, err = svc.CreateLabel(ctx, userIdentity, labelReq(order.ID))
	require.NoError(t, err)
	_, err = svc.CreateLabel(ctx, userIdentity, labelReq(order.ID))
	assert.Equal(t, errs.CodeAlreadyInTransit, errs.CodeOf(err))

	// unpaid orders cannot ship
	require.NoError(t, m.CreateOrder(ctx, &models.Order{
		ID: "o-unpaid", UserID: "u1",
		Status: models.OrderStatusPending, PaymentStatus: models.PaymentStatusUnpaid,
		ShippingAddress: caDestination(),
	}))
	_, err = svc.CreateLabel(ctx, userIdentity, labelReq("o-unpaid"))
	assert.Equal(t, errs.CodeNotPaid, errs.CodeOf(err))
}

func TestTrackProgressionAndIdempotence(t *testing.T) {
	svc, _, order, clock := shippingFixture(t, util.FixedRand{F: 0.5})
	ctx := context.Background()

	shipment, err := svc.CreateLabel(ctx, userIdentity, labelReq(order.ID))
	require.NoError(t, err)

	// before any threshold nothing changes
	got, err := svc.Track(ctx, shipment.TrackingNumber)
	require.NoError(t, err)
	assert.Equal(t, models.ShipmentStatusLabelCreated, got.Status)
	assert.Len(t, got.Events, 1)

	// 10h crosses Picked Up (>2h) and In Transit (>6h)
	clock.Advance(10 * time.Hour)
	got, err = svc.Track(ctx, shipment.TrackingNumber)
	require.NoError(t, err)
	assert.Equal(t, models.ShipmentStatusInTransit, got.Status)
	require.Len(t, got.Events, 3)
	assert.Equal(t, models.ShipmentStatusPickedUp, got.Events[1].Status)
	assert.Equal(t, models.ShipmentStatusInTransit, got.Events[2].Status)

	// same instant: identical history, nothing re-generated
	again, err := svc.Track(ctx, shipment.TrackingNumber)
	require.NoError(t, err)
	assert.Equal(t, got.Events, again.Events)
}

func TestTrackDeliveredCompletesOrder(t *testing.T) {
	svc, m, order, clock := shippingFixture(t, util.FixedRand{F: 0.5})
	ctx := context.Background()

	shipment, err := svc.CreateLabel(ctx, userIdentity, labelReq(order.ID))
	require.NoError(t, err)

	clock.Advance(80 * time.Hour)
	got, err := svc.Track(ctx, shipment.TrackingNumber)
	require.NoError(t, err)
	assert.Equal(t, models.ShipmentStatusDelivered, got.Status)
	require.Len(t, got.Events, 6)
	assert.Equal(t, "Destination", got.Events[5].Location)

	// event timestamps are monotonic across the progression
	for i := 1; i < len(got.Events); i++ {
		assert.True(t, got.Events[i].Timestamp.After(got.Events[i-1].Timestamp))
	}

	o, err := m.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, o.Status)
	assert.Equal(t, models.ShipmentStatusDelivered, o.ShippingInfo.Status)
}

func TestCancelBeforePickup(t *testing.T) {
	svc, m, order, _ := shippingFixture(t, util.FixedRand{F: 0.5})
	ctx := context.Background()

	shipment, err := svc.CreateLabel(ctx, userIdentity, labelReq(order.ID))
	require.NoError(t, err)

	result, err := svc.Cancel(ctx, userIdentity, shipment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ShipmentStatusCancelled, result.Shipment.Status)
	assert.Equal(t, int64(801), result.Refund) // round(890 * 0.9)

	o, err := m.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, o.Status) // shipped -> paid revert
	assert.Equal(t, models.ShipmentStatusCancelled, o.ShippingInfo.Status)
	assert.NotNil(t, o.ShippingInfo.CancelledAt)

	// cancelled shipments stop progressing
	tracked, err := svc.Track(ctx, shipment.TrackingNumber)
	require.NoError(t, err)
	assert.Equal(t, models.ShipmentStatusCancelled, tracked.Status)
}

func TestCancelAfterPickupRejected(t *testing.T) {
	svc, _, order, clock := shippingFixture(t, util.FixedRand{F: 0.5})
	ctx := context.Background()

	shipment, err := svc.CreateLabel(ctx, userIdentity, labelReq(order.ID))
	require.NoError(t, err)

	clock.Advance(3 * time.Hour)
	_, err = svc.Track(ctx, shipment.TrackingNumber)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, userIdentity, shipment.ID)
	assert.Equal(t, errs.CodeAlreadyInTransit, errs.CodeOf(err))
}

func TestOrderShippingSummary(t *testing.T) {
	svc, _, order, _ := shippingFixture(t, util.FixedRand{F: 0.5})
	ctx := context.Background()

	_, _, err := svc.OrderShipping(ctx, userIdentity, order.ID)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))

	shipment, err := svc.CreateLabel(ctx, userIdentity, labelReq(order.ID))
	require.NoError(t, err)

	info, history, err := svc.OrderShipping(ctx, userIdentity, order.ID)
	require.NoError(t, err)
	assert.Equal(t, shipment.ID, info.ShipmentID)
	assert.Len(t, history, 1)

	_, _, err = svc.OrderShipping(ctx, auth.Identity{UserID: "u2", Role: auth.RoleUser}, order.ID)
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))
}

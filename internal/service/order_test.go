package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/leeveo/inscription-sub004/internal/apperr"
	"github.com/leeveo/inscription-sub004/internal/client"
	"github.com/leeveo/inscription-sub004/internal/dto"
	"github.com/leeveo/inscription-sub004/internal/model"
	"github.com/leeveo/inscription-sub004/internal/pricing"
	"github.com/leeveo/inscription-sub004/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakePayline struct {
	createCalls int
	failCreate  bool
}

func (f *fakePayline) CreateIntent(ctx context.Context, orderID string, amount int64, currency string) (*client.CreateIntentResponse, error) {
	f.createCalls++
	if f.failCreate {
		return nil, &apperr.GatewayError{Status: 503, Body: "unavailable"}
	}
	return &client.CreateIntentResponse{
		IntentID: "pi_" + orderID,
		PayURL:   "https://pay.test/" + orderID,
	}, nil
}

func (f *fakePayline) VerifyWebhookSignature(payload []byte, signatureHeader string) error {
	return nil
}

type fixture struct {
	db          *gorm.DB
	payline     *fakePayline
	orders      OrderService
	fulfillment FulfillmentService
	orderRepo   repository.OrderRepository
	ticketTypes repository.TicketTypeRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Event{},
		&model.TicketType{},
		&model.Order{},
		&model.OrderItem{},
		&model.PromotionCode{},
		&model.PromotionRedemption{},
		&model.Participant{},
		&model.TicketTemplate{},
		&model.PrintJob{},
		&model.WebhookEvent{},
	))

	eventRepo := repository.NewEventRepository(db)
	ticketTypeRepo := repository.NewTicketTypeRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	promoRepo := repository.NewPromotionRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	printJobRepo := repository.NewPrintJobRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	payline := &fakePayline{}
	fulfillment := NewFulfillmentService(
		db, client.NewLogMailer(),
		eventRepo, orderRepo, participantRepo, templateRepo, printJobRepo,
		"https://tickets.test",
	)
	orders := NewOrderService(
		db, payline, fulfillment,
		eventRepo, ticketTypeRepo, orderRepo, promoRepo, webhookEventRepo,
		pricing.FeeTier{},
		15*time.Minute,
	)

	require.NoError(t, db.Create(&model.Event{
		ID:   "ev-1",
		Name: "Salon Horizon",
		Slug: "salon-horizon",
	}).Error)

	return &fixture{
		db:          db,
		payline:     payline,
		orders:      orders,
		fulfillment: fulfillment,
		orderRepo:   orderRepo,
		ticketTypes: ticketTypeRepo,
	}
}

func (f *fixture) seedTicketType(t *testing.T, id string, price int64, quota *int64) {
	t.Helper()
	require.NoError(t, f.db.Create(&model.TicketType{
		ID:          id,
		EventID:     "ev-1",
		Name:        "Type " + id,
		Price:       price,
		Currency:    "EUR",
		QuotaTotal:  quota,
		MinPerOrder: 1,
		MaxPerOrder: 10,
		Visible:     true,
		Sellable:    true,
	}).Error)
}

func (f *fixture) checkout(t *testing.T, lines ...*dto.CartLine) *dto.CheckoutResponse {
	t.Helper()
	resp, err := f.orders.Checkout(context.Background(), &dto.CheckoutRequest{
		EventID:    "ev-1",
		BuyerEmail: "jean@example.test",
		BuyerName:  "Jean Dupont",
		Lines:      lines,
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) gatewayEvent(t *testing.T, eventID, eventType, orderID string) []byte {
	t.Helper()
	evt := client.GatewayEvent{EventID: eventID, Type: eventType}
	evt.Data.OrderID = orderID
	payload, err := json.Marshal(evt)
	require.NoError(t, err)
	return payload
}

func (f *fixture) quota(t *testing.T, id string) (reserved, sold int64) {
	t.Helper()
	tt, err := f.ticketTypes.FindByID(context.Background(), id)
	require.NoError(t, err)
	return tt.QuotaReserved, tt.QuotaSold
}

func (f *fixture) participantCount(t *testing.T, orderID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&model.Participant{}).Where("order_id = ?", orderID).Count(&count).Error)
	return count
}

func TestCheckout_CreatesPendingOrderAndReserves(t *testing.T) {
	f := newFixture(t)
	quota := int64(10)
	f.seedTicketType(t, "std", 2500, &quota)

	resp := f.checkout(t, &dto.CartLine{TicketTypeID: "std", Quantity: 2})

	assert.Equal(t, model.OrderPendingPayment, resp.Status)
	assert.Equal(t, int64(5000), resp.Total)
	assert.Equal(t, "https://pay.test/"+resp.OrderID, resp.PayURL)
	assert.NotEmpty(t, resp.ExpiresAt)

	reserved, sold := f.quota(t, "std")
	assert.Equal(t, int64(2), reserved)
	assert.Equal(t, int64(0), sold)
	assert.Equal(t, 1, f.payline.createCalls)
}

func TestCheckout_AllOrNothingReservation(t *testing.T) {
	f := newFixture(t)
	plenty := int64(10)
	scarce := int64(1)
	f.seedTicketType(t, "std", 2500, &plenty)
	f.seedTicketType(t, "vip", 9900, &scarce)

	_, err := f.orders.Checkout(context.Background(), &dto.CheckoutRequest{
		EventID:    "ev-1",
		BuyerEmail: "jean@example.test",
		Lines: []*dto.CartLine{
			{TicketTypeID: "std", Quantity: 2},
			{TicketTypeID: "vip", Quantity: 2},
		},
	})

	require.Error(t, err)
	assert.True(t, apperr.IsQuotaExceeded(err))

	// no partial reservation left behind
	reserved, _ := f.quota(t, "std")
	assert.Equal(t, int64(0), reserved)
	reserved, _ = f.quota(t, "vip")
	assert.Equal(t, int64(0), reserved)
}

func TestCheckout_LastSeatRace(t *testing.T) {
	f := newFixture(t)
	one := int64(1)
	f.seedTicketType(t, "vip", 9900, &one)

	first, err := f.orders.Checkout(context.Background(), &dto.CheckoutRequest{
		EventID:    "ev-1",
		BuyerEmail: "a@example.test",
		Lines:      []*dto.CartLine{{TicketTypeID: "vip", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderPendingPayment, first.Status)

	_, err = f.orders.Checkout(context.Background(), &dto.CheckoutRequest{
		EventID:    "ev-1",
		BuyerEmail: "b@example.test",
		Lines:      []*dto.CartLine{{TicketTypeID: "vip", Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsQuotaExceeded(err))
}

func TestCheckout_TotalMismatchRejected(t *testing.T) {
	f := newFixture(t)
	f.seedTicketType(t, "std", 2500, nil)

	wrong := int64(100)
	_, err := f.orders.Checkout(context.Background(), &dto.CheckoutRequest{
		EventID:     "ev-1",
		BuyerEmail:  "jean@example.test",
		Lines:       []*dto.CartLine{{TicketTypeID: "std", Quantity: 1}},
		ClientTotal: &wrong,
	})

	assert.ErrorIs(t, err, apperr.ErrTotalMismatch)

	reserved, _ := f.quota(t, "std")
	assert.Equal(t, int64(0), reserved)
}

func TestCheckout_ClientTotalWithinEpsilonAccepted(t *testing.T) {
	f := newFixture(t)
	f.seedTicketType(t, "std", 2500, nil)

	hint := int64(2501)
	resp, err := f.orders.Checkout(context.Background(), &dto.CheckoutRequest{
		EventID:     "ev-1",
		BuyerEmail:  "jean@example.test",
		Lines:       []*dto.CartLine{{TicketTypeID: "std", Quantity: 1}},
		ClientTotal: &hint,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(2500), resp.Total)
}

func TestCheckout_QuantityBoundsEnforced(t *testing.T) {
	f := newFixture(t)
	f.seedTicketType(t, "std", 2500, nil)

	_, err := f.orders.Checkout(context.Background(), &dto.CheckoutRequest{
		EventID:    "ev-1",
		BuyerEmail: "jean@example.test",
		Lines:      []*dto.CartLine{{TicketTypeID: "std", Quantity: 11}},
	})

	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Contains(t, err.Error(), "Type std")
}

func TestCheckout_FreeOrderSkipsGateway(t *testing.T) {
	f := newFixture(t)
	quota := int64(10)
	f.seedTicketType(t, "free", 0, &quota)

	resp := f.checkout(t, &dto.CartLine{TicketTypeID: "free", Quantity: 2})

	assert.Equal(t, model.OrderPaid, resp.Status)
	assert.Equal(t, int64(0), resp.Total)
	assert.Empty(t, resp.PayURL)
	assert.Equal(t, 0, f.payline.createCalls)

	// inventory committed and participants materialized in the same step
	reserved, sold := f.quota(t, "free")
	assert.Equal(t, int64(0), reserved)
	assert.Equal(t, int64(2), sold)
	assert.Equal(t, int64(2), f.participantCount(t, resp.OrderID))
}

func TestCheckout_PromoSingleUsePerEmail(t *testing.T) {
	f := newFixture(t)
	f.seedTicketType(t, "std", 10000, nil)
	require.NoError(t, f.db.Create(&model.PromotionCode{
		ID:      "promo-1",
		EventID: "ev-1",
		Code:    "EARLY10",
		Kind:    model.PromoPercent,
		Value:   10,
	}).Error)

	resp, err := f.orders.Checkout(context.Background(), &dto.CheckoutRequest{
		EventID:    "ev-1",
		BuyerEmail: "jean@example.test",
		Lines:      []*dto.CartLine{{TicketTypeID: "std", Quantity: 1}},
		PromoCode:  "EARLY10",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9000), resp.Total)

	_, err = f.orders.Checkout(context.Background(), &dto.CheckoutRequest{
		EventID:    "ev-1",
		BuyerEmail: "jean@example.test",
		Lines:      []*dto.CartLine{{TicketTypeID: "std", Quantity: 1}},
		PromoCode:  "EARLY10",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Contains(t, err.Error(), "already used")
}

func TestPromoRedemption_ReturnsWhenOrderExpires(t *testing.T) {
	f := newFixture(t)
	f.seedTicketType(t, "std", 10000, nil)
	require.NoError(t, f.db.Create(&model.PromotionCode{
		ID:      "promo-1",
		EventID: "ev-1",
		Code:    "EARLY10",
		Kind:    model.PromoPercent,
		Value:   10,
	}).Error)

	req := &dto.CheckoutRequest{
		EventID:    "ev-1",
		BuyerEmail: "jean@example.test",
		Lines:      []*dto.CartLine{{TicketTypeID: "std", Quantity: 1}},
		PromoCode:  "EARLY10",
	}
	resp, err := f.orders.Checkout(context.Background(), req)
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	require.NoError(t, f.db.Model(&model.Order{}).
		Where("id = ?", resp.OrderID).
		Update("expires_at", past).Error)
	require.NoError(t, f.orders.ExpireStale(context.Background()))

	// the abandoned order gave the code back; the same email can use it again
	resp, err = f.orders.Checkout(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(9000), resp.Total)
}

func TestPromoRedemption_ReturnsWhenPaymentCanceled(t *testing.T) {
	f := newFixture(t)
	f.seedTicketType(t, "std", 10000, nil)
	require.NoError(t, f.db.Create(&model.PromotionCode{
		ID:      "promo-1",
		EventID: "ev-1",
		Code:    "EARLY10",
		Kind:    model.PromoPercent,
		Value:   10,
	}).Error)

	req := &dto.CheckoutRequest{
		EventID:    "ev-1",
		BuyerEmail: "jean@example.test",
		Lines:      []*dto.CartLine{{TicketTypeID: "std", Quantity: 1}},
		PromoCode:  "EARLY10",
	}
	resp, err := f.orders.Checkout(context.Background(), req)
	require.NoError(t, err)

	payload := f.gatewayEvent(t, "evt-1", client.GatewayEventCanceled, resp.OrderID)
	require.NoError(t, f.orders.HandleGatewayEvent(context.Background(), payload, "sig"))

	_, err = f.orders.Checkout(context.Background(), req)
	require.NoError(t, err)
}

func TestWebhook_SucceededCommitsAndFulfills(t *testing.T) {
	f := newFixture(t)
	quota := int64(10)
	f.seedTicketType(t, "std", 2500, &quota)
	resp := f.checkout(t, &dto.CartLine{TicketTypeID: "std", Quantity: 2})

	payload := f.gatewayEvent(t, "evt-1", client.GatewayEventSucceeded, resp.OrderID)
	require.NoError(t, f.orders.HandleGatewayEvent(context.Background(), payload, "sig"))

	order, err := f.orderRepo.FindByID(context.Background(), resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPaid, order.Status)
	require.NotNil(t, order.PaidAt)

	reserved, sold := f.quota(t, "std")
	assert.Equal(t, int64(0), reserved)
	assert.Equal(t, int64(2), sold)
	assert.Equal(t, int64(2), f.participantCount(t, resp.OrderID))
}

func TestWebhook_ReplaySameEventAbsorbed(t *testing.T) {
	f := newFixture(t)
	quota := int64(10)
	f.seedTicketType(t, "std", 2500, &quota)
	resp := f.checkout(t, &dto.CartLine{TicketTypeID: "std", Quantity: 2})

	payload := f.gatewayEvent(t, "evt-1", client.GatewayEventSucceeded, resp.OrderID)
	require.NoError(t, f.orders.HandleGatewayEvent(context.Background(), payload, "sig"))
	require.NoError(t, f.orders.HandleGatewayEvent(context.Background(), payload, "sig"))

	// one paid transition, one commit, one set of participants
	reserved, sold := f.quota(t, "std")
	assert.Equal(t, int64(0), reserved)
	assert.Equal(t, int64(2), sold)
	assert.Equal(t, int64(2), f.participantCount(t, resp.OrderID))
}

func TestWebhook_DuplicateSuccessUnderFreshEventID(t *testing.T) {
	f := newFixture(t)
	quota := int64(10)
	f.seedTicketType(t, "std", 2500, &quota)
	resp := f.checkout(t, &dto.CartLine{TicketTypeID: "std", Quantity: 1})

	first := f.gatewayEvent(t, "evt-1", client.GatewayEventSucceeded, resp.OrderID)
	second := f.gatewayEvent(t, "evt-2", client.GatewayEventSucceeded, resp.OrderID)
	require.NoError(t, f.orders.HandleGatewayEvent(context.Background(), first, "sig"))
	require.NoError(t, f.orders.HandleGatewayEvent(context.Background(), second, "sig"))

	reserved, sold := f.quota(t, "std")
	assert.Equal(t, int64(0), reserved)
	assert.Equal(t, int64(1), sold)
	assert.Equal(t, int64(1), f.participantCount(t, resp.OrderID))
}

func TestWebhook_FailedKeepsReservation(t *testing.T) {
	f := newFixture(t)
	quota := int64(10)
	f.seedTicketType(t, "std", 2500, &quota)
	resp := f.checkout(t, &dto.CartLine{TicketTypeID: "std", Quantity: 2})

	payload := f.gatewayEvent(t, "evt-1", client.GatewayEventFailed, resp.OrderID)
	require.NoError(t, f.orders.HandleGatewayEvent(context.Background(), payload, "sig"))

	order, err := f.orderRepo.FindByID(context.Background(), resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPendingPayment, order.Status)

	// the customer may retry within the expiration window
	reserved, _ := f.quota(t, "std")
	assert.Equal(t, int64(2), reserved)
}

func TestWebhook_CanceledReleasesReservation(t *testing.T) {
	f := newFixture(t)
	quota := int64(10)
	f.seedTicketType(t, "std", 2500, &quota)
	resp := f.checkout(t, &dto.CartLine{TicketTypeID: "std", Quantity: 2})

	payload := f.gatewayEvent(t, "evt-1", client.GatewayEventCanceled, resp.OrderID)
	require.NoError(t, f.orders.HandleGatewayEvent(context.Background(), payload, "sig"))

	order, err := f.orderRepo.FindByID(context.Background(), resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, order.Status)

	reserved, sold := f.quota(t, "std")
	assert.Equal(t, int64(0), reserved)
	assert.Equal(t, int64(0), sold)
}

func TestWebhook_RefundedMarksPaidOrder(t *testing.T) {
	f := newFixture(t)
	quota := int64(10)
	f.seedTicketType(t, "std", 2500, &quota)
	resp := f.checkout(t, &dto.CartLine{TicketTypeID: "std", Quantity: 2})

	paid := f.gatewayEvent(t, "evt-1", client.GatewayEventSucceeded, resp.OrderID)
	require.NoError(t, f.orders.HandleGatewayEvent(context.Background(), paid, "sig"))

	refund := f.gatewayEvent(t, "evt-2", client.GatewayEventRefunded, resp.OrderID)
	require.NoError(t, f.orders.HandleGatewayEvent(context.Background(), refund, "sig"))

	order, err := f.orderRepo.FindByID(context.Background(), resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderRefunded, order.Status)

	// seats stay sold; returning them to sale is an operator decision
	reserved, sold := f.quota(t, "std")
	assert.Equal(t, int64(0), reserved)
	assert.Equal(t, int64(2), sold)
}

func TestWebhook_RefundBeforePaymentIsRecordedOnly(t *testing.T) {
	f := newFixture(t)
	quota := int64(10)
	f.seedTicketType(t, "std", 2500, &quota)
	resp := f.checkout(t, &dto.CartLine{TicketTypeID: "std", Quantity: 1})

	refund := f.gatewayEvent(t, "evt-1", client.GatewayEventRefunded, resp.OrderID)
	require.NoError(t, f.orders.HandleGatewayEvent(context.Background(), refund, "sig"))

	order, err := f.orderRepo.FindByID(context.Background(), resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPendingPayment, order.Status)
}

func TestExpireStale_ReclaimsPendingOrder(t *testing.T) {
	f := newFixture(t)
	quota := int64(10)
	f.seedTicketType(t, "std", 2500, &quota)
	resp := f.checkout(t, &dto.CartLine{TicketTypeID: "std", Quantity: 2})

	past := time.Now().Add(-time.Minute)
	require.NoError(t, f.db.Model(&model.Order{}).
		Where("id = ?", resp.OrderID).
		Update("expires_at", past).Error)

	require.NoError(t, f.orders.ExpireStale(context.Background()))

	order, err := f.orderRepo.FindByID(context.Background(), resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, order.Status)

	reserved, _ := f.quota(t, "std")
	assert.Equal(t, int64(0), reserved)
}

func TestGetOrder_LazyExpiry(t *testing.T) {
	f := newFixture(t)
	quota := int64(10)
	f.seedTicketType(t, "std", 2500, &quota)
	resp := f.checkout(t, &dto.CartLine{TicketTypeID: "std", Quantity: 1})

	past := time.Now().Add(-time.Minute)
	require.NoError(t, f.db.Model(&model.Order{}).
		Where("id = ?", resp.OrderID).
		Update("expires_at", past).Error)

	got, err := f.orders.GetOrder(context.Background(), resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, got.Status)

	reserved, _ := f.quota(t, "std")
	assert.Equal(t, int64(0), reserved)
}

func TestExpiredThenPaidLater_PaymentLosesRace(t *testing.T) {
	f := newFixture(t)
	quota := int64(10)
	f.seedTicketType(t, "std", 2500, &quota)
	resp := f.checkout(t, &dto.CartLine{TicketTypeID: "std", Quantity: 1})

	past := time.Now().Add(-time.Minute)
	require.NoError(t, f.db.Model(&model.Order{}).
		Where("id = ?", resp.OrderID).
		Update("expires_at", past).Error)
	require.NoError(t, f.orders.ExpireStale(context.Background()))

	payload := f.gatewayEvent(t, fmt.Sprintf("evt-%d", time.Now().UnixNano()), client.GatewayEventSucceeded, resp.OrderID)
	require.NoError(t, f.orders.HandleGatewayEvent(context.Background(), payload, "sig"))

	// a cancelled order never transitions to paid; no participants appear
	order, err := f.orderRepo.FindByID(context.Background(), resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, order.Status)
	assert.Equal(t, int64(0), f.participantCount(t, resp.OrderID))
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/leeveo/inscription-sub004/internal/apperr"
	"github.com/leeveo/inscription-sub004/internal/client"
	"github.com/leeveo/inscription-sub004/internal/dto"
	"github.com/leeveo/inscription-sub004/internal/model"
	"github.com/leeveo/inscription-sub004/internal/pricing"
	"github.com/leeveo/inscription-sub004/internal/repository"
	"gorm.io/gorm"
)

type OrderService interface {
	// Checkout validates the cart, reserves inventory all-or-nothing and
	// creates the order. Free orders are paid and fulfilled immediately.
	Checkout(ctx context.Context, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error)
	GetOrder(ctx context.Context, orderID string) (*dto.OrderResponse, error)
	// HandleGatewayEvent processes one asynchronous gateway notification.
	// Delivery is at-least-once; replays are absorbed silently.
	HandleGatewayEvent(ctx context.Context, payload []byte, signatureHeader string) error
	// ExpireStale reclaims pending orders past their deadline and releases
	// their reserved inventory.
	ExpireStale(ctx context.Context) error
	RunExpirySweeper(ctx context.Context, interval time.Duration)
}

type orderServiceImpl struct {
	db               *gorm.DB
	payline          client.PaylineClient
	fulfillment      FulfillmentService
	eventRepo        repository.EventRepository
	ticketTypeRepo   repository.TicketTypeRepository
	orderRepo        repository.OrderRepository
	promoRepo        repository.PromotionRepository
	webhookEventRepo repository.WebhookEventRepository
	fees             pricing.FeeTier
	orderTTL         time.Duration
}

func NewOrderService(
	db *gorm.DB,
	payline client.PaylineClient,
	fulfillment FulfillmentService,
	eventRepo repository.EventRepository,
	ticketTypeRepo repository.TicketTypeRepository,
	orderRepo repository.OrderRepository,
	promoRepo repository.PromotionRepository,
	webhookEventRepo repository.WebhookEventRepository,
	fees pricing.FeeTier,
	orderTTL time.Duration,
) OrderService {
	return &orderServiceImpl{
		db:               db,
		payline:          payline,
		fulfillment:      fulfillment,
		eventRepo:        eventRepo,
		ticketTypeRepo:   ticketTypeRepo,
		orderRepo:        orderRepo,
		promoRepo:        promoRepo,
		webhookEventRepo: webhookEventRepo,
		fees:             fees,
		orderTTL:         orderTTL,
	}
}

func (s *orderServiceImpl) Checkout(ctx context.Context, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	if req.BuyerEmail == "" {
		return nil, apperr.Validation("buyer_email", "required")
	}
	if len(req.Lines) == 0 {
		return nil, apperr.Validation("lines", "cart is empty")
	}

	if _, err := s.eventRepo.FindByID(ctx, req.EventID); err != nil {
		return nil, apperr.Validation("event_id", "unknown event")
	}

	ticketTypes, err := s.loadTicketTypes(ctx, req)
	if err != nil {
		return nil, err
	}

	currency, priceLines, err := validateCart(req, ticketTypes)
	if err != nil {
		return nil, err
	}

	promo, promoModel, err := s.validatePromo(ctx, req)
	if err != nil {
		return nil, err
	}

	quote := pricing.Evaluate(priceLines, s.fees, promo)

	if req.ClientTotal != nil && !pricing.WithinEpsilon(*req.ClientTotal, quote.Total) {
		return nil, apperr.ErrTotalMismatch
	}

	now := time.Now()
	expiresAt := now.Add(s.orderTTL)
	free := quote.Total == 0

	order := &model.Order{
		ID:         uuid.NewString(),
		EventID:    req.EventID,
		BuyerEmail: req.BuyerEmail,
		BuyerName:  req.BuyerName,
		Currency:   currency,
		Subtotal:   quote.Subtotal,
		Tax:        quote.Tax,
		Fees:       quote.Fees,
		Discount:   quote.Discount,
		Total:      quote.Total,
		Status:     model.OrderDraft,
	}
	if promoModel != nil {
		order.PromoCodeID = &promoModel.ID
	}

	items := make([]*model.OrderItem, len(quote.Lines))
	for i, line := range quote.Lines {
		items[i] = &model.OrderItem{
			OrderID:        order.ID,
			TicketTypeID:   line.TicketTypeID,
			TicketTypeName: ticketTypes[line.TicketTypeID].Name,
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice,
			LineTotal:      line.LineTotal,
			Currency:       currency,
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// reservations are all-or-nothing: any failure rolls back every
		// reservation made for this request
		for _, item := range items {
			if err := s.ticketTypeRepo.Reserve(ctx, tx, item.TicketTypeID, item.Quantity); err != nil {
				return err
			}
		}

		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("store order in db: %w", err)
		}
		if err := s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
			return fmt.Errorf("store order items in db: %w", err)
		}

		if promoModel != nil {
			if err := s.promoRepo.CreateRedemption(ctx, tx, &model.PromotionRedemption{
				PromoCodeID: promoModel.ID,
				Email:       req.BuyerEmail,
				OrderID:     order.ID,
			}); err != nil {
				return fmt.Errorf("record promo redemption: %w", err)
			}
		}

		if free {
			// zero-amount orders skip the gateway entirely
			ok, err := s.orderRepo.MarkPaid(ctx, tx, order.ID, now)
			if err != nil || !ok {
				return fmt.Errorf("mark free order paid: %w", err)
			}
			for _, item := range items {
				if err := s.ticketTypeRepo.Commit(ctx, tx, item.TicketTypeID, item.Quantity); err != nil {
					return err
				}
			}
			return nil
		}

		return tx.Model(&model.Order{}).
			Where("id = ?", order.ID).
			Updates(map[string]interface{}{
				"status":     model.OrderPendingPayment,
				"expires_at": expiresAt,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	if free {
		if err := s.fulfillment.FulfillOrder(ctx, order.ID); err != nil {
			log.Printf("fulfill free order %s: %v", order.ID, err)
		}
		return &dto.CheckoutResponse{
			OrderID:  order.ID,
			Status:   model.OrderPaid,
			Total:    0,
			Currency: currency,
		}, nil
	}

	intent, err := s.payline.CreateIntent(ctx, order.ID, quote.Total, currency)
	if err != nil {
		// order stays pending_payment; the customer can retry payment
		// within the expiration window
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	if err := s.orderRepo.SetGatewayIntent(ctx, order.ID, intent.IntentID); err != nil {
		return nil, fmt.Errorf("store gateway intent: %w", err)
	}

	return &dto.CheckoutResponse{
		OrderID:   order.ID,
		Status:    model.OrderPendingPayment,
		Total:     quote.Total,
		Currency:  currency,
		PayURL:    intent.PayURL,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	}, nil
}

func (s *orderServiceImpl) loadTicketTypes(ctx context.Context, req *dto.CheckoutRequest) (map[string]*model.TicketType, error) {
	ids := make([]string, len(req.Lines))
	for i, line := range req.Lines {
		ids[i] = line.TicketTypeID
	}

	found, err := s.ticketTypeRepo.FindMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load ticket types: %w", err)
	}

	byID := make(map[string]*model.TicketType, len(found))
	for _, tt := range found {
		byID[tt.ID] = tt
	}
	return byID, nil
}

func validateCart(req *dto.CheckoutRequest, ticketTypes map[string]*model.TicketType) (string, []pricing.Line, error) {
	now := time.Now()
	currency := ""
	lines := make([]pricing.Line, 0, len(req.Lines))

	for _, line := range req.Lines {
		tt, ok := ticketTypes[line.TicketTypeID]
		if !ok {
			return "", nil, apperr.Validation("ticket_type_id", "unknown ticket type "+line.TicketTypeID)
		}
		if tt.EventID != req.EventID {
			return "", nil, apperr.Validation("ticket_type_id", tt.Name+" does not belong to this event")
		}
		if !tt.Visible || !tt.Sellable {
			return "", nil, apperr.Validation("ticket_type_id", tt.Name+" is not on sale")
		}
		if tt.SaleStartsAt != nil && now.Before(*tt.SaleStartsAt) {
			return "", nil, apperr.Validation("ticket_type_id", "sale has not started for "+tt.Name)
		}
		if tt.SaleEndsAt != nil && now.After(*tt.SaleEndsAt) {
			return "", nil, apperr.Validation("ticket_type_id", "sale has ended for "+tt.Name)
		}
		if line.Quantity < tt.MinPerOrder || line.Quantity > tt.MaxPerOrder {
			return "", nil, apperr.Validation("quantity",
				fmt.Sprintf("%s allows between %d and %d per order", tt.Name, tt.MinPerOrder, tt.MaxPerOrder))
		}
		if currency == "" {
			currency = tt.Currency
		} else if currency != tt.Currency {
			return "", nil, apperr.Validation("lines", "mixed currencies in one cart")
		}

		lines = append(lines, pricing.Line{
			TicketTypeID: tt.ID,
			Quantity:     line.Quantity,
			UnitPrice:    tt.Price,
			Taxable:      tt.Taxable,
			TaxRateBps:   tt.TaxRate,
		})
	}

	return currency, lines, nil
}

func (s *orderServiceImpl) validatePromo(ctx context.Context, req *dto.CheckoutRequest) (*pricing.Promo, *model.PromotionCode, error) {
	if req.PromoCode == "" {
		return nil, nil, nil
	}

	promo, err := s.promoRepo.FindByCode(ctx, req.EventID, req.PromoCode)
	if err != nil {
		return nil, nil, apperr.Validation("promo_code", "unknown code")
	}

	now := time.Now()
	if promo.ValidFrom != nil && now.Before(*promo.ValidFrom) {
		return nil, nil, apperr.Validation("promo_code", "code is not active yet")
	}
	if promo.ValidUntil != nil && now.After(*promo.ValidUntil) {
		return nil, nil, apperr.Validation("promo_code", "code has expired")
	}

	if promo.MaxUses != nil {
		used, err := s.promoRepo.CountRedemptions(ctx, promo.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("count promo redemptions: %w", err)
		}
		if used >= *promo.MaxUses {
			return nil, nil, apperr.Validation("promo_code", "code usage cap reached")
		}
	}

	redeemed, err := s.promoRepo.HasRedeemed(ctx, promo.ID, req.BuyerEmail)
	if err != nil {
		return nil, nil, fmt.Errorf("check promo redemption: %w", err)
	}
	if redeemed {
		return nil, nil, apperr.Validation("promo_code", "code already used by this email")
	}

	reduction := &pricing.Promo{}
	switch promo.Kind {
	case model.PromoPercent:
		reduction.Percent = promo.Value
	case model.PromoFixed:
		reduction.Fixed = promo.Value
	}
	return reduction, promo, nil
}

func (s *orderServiceImpl) GetOrder(ctx context.Context, orderID string) (*dto.OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// lazy expiration: reading a stale pending order reclaims it
	if order.Status == model.OrderPendingPayment &&
		order.ExpiresAt != nil && time.Now().After(*order.ExpiresAt) {
		if err := s.expireOrder(ctx, order); err != nil {
			return nil, fmt.Errorf("expire order on access: %w", err)
		}
		order, err = s.orderRepo.FindByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
	}

	items, err := s.orderRepo.GetOrderItems(ctx, s.db, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}

	resp := &dto.OrderResponse{
		OrderID:  order.ID,
		Status:   order.Status,
		Subtotal: order.Subtotal,
		Tax:      order.Tax,
		Fees:     order.Fees,
		Discount: order.Discount,
		Total:    order.Total,
		Currency: order.Currency,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, &dto.OrderItemResponse{
			TicketTypeID:   item.TicketTypeID,
			TicketTypeName: item.TicketTypeName,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			LineTotal:      item.LineTotal,
		})
	}
	return resp, nil
}

func (s *orderServiceImpl) HandleGatewayEvent(ctx context.Context, payload []byte, signatureHeader string) error {
	if err := s.payline.VerifyWebhookSignature(payload, signatureHeader); err != nil {
		return fmt.Errorf("verify webhook signature: %w", err)
	}

	var evt client.GatewayEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return fmt.Errorf("decode webhook payload: %w", err)
	}
	if evt.EventID == "" || evt.Data.OrderID == "" {
		return fmt.Errorf("webhook payload missing event or order id")
	}

	// at-least-once delivery: replays are absorbed, not errors
	seen, err := s.webhookEventRepo.Exists(ctx, evt.EventID)
	if err != nil {
		return fmt.Errorf("check webhook dedupe: %w", err)
	}
	if seen {
		return nil
	}

	switch evt.Type {
	case client.GatewayEventSucceeded:
		return s.onGatewaySucceeded(ctx, &evt)
	case client.GatewayEventFailed:
		// keep pending_payment and keep the reservation: the customer may
		// retry within the expiration window
		log.Printf("payment failed for order %s, awaiting retry", evt.Data.OrderID)
		return s.recordOnly(ctx, &evt)
	case client.GatewayEventCanceled:
		return s.onGatewayCanceled(ctx, &evt)
	case client.GatewayEventRefunded:
		return s.onGatewayRefunded(ctx, &evt)
	case client.GatewayEventRequiresAction:
		return s.recordOnly(ctx, &evt)
	default:
		log.Printf("ignoring gateway event type %q", evt.Type)
		return nil
	}
}

func (s *orderServiceImpl) onGatewaySucceeded(ctx context.Context, evt *client.GatewayEvent) error {
	orderID := evt.Data.OrderID
	transitioned := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.orderRepo.MarkPaid(ctx, tx, orderID, time.Now())
		if err != nil {
			return fmt.Errorf("mark order paid: %w", err)
		}
		if ok {
			items, err := s.orderRepo.GetOrderItems(ctx, tx, orderID)
			if err != nil {
				return fmt.Errorf("get order items: %w", err)
			}
			for _, item := range items {
				if err := s.ticketTypeRepo.Commit(ctx, tx, item.TicketTypeID, item.Quantity); err != nil {
					return err
				}
			}
			transitioned = true
		}
		// ok == false means the order was already paid (duplicate delivery
		// under a fresh event id) — record and move on
		return s.webhookEventRepo.MarkProcessed(ctx, tx, evt.EventID, evt.Type)
	})
	if err != nil {
		return err
	}

	if transitioned {
		if err := s.fulfillment.FulfillOrder(ctx, orderID); err != nil {
			log.Printf("fulfill order %s: %v", orderID, err)
		}
	}
	return nil
}

func (s *orderServiceImpl) onGatewayCanceled(ctx context.Context, evt *client.GatewayEvent) error {
	orderID := evt.Data.OrderID

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.orderRepo.MarkCancelled(ctx, tx, orderID)
		if err != nil {
			return fmt.Errorf("mark order cancelled: %w", err)
		}
		if ok {
			if err := s.releaseItems(ctx, tx, orderID); err != nil {
				return err
			}
			if err := s.promoRepo.ReleaseRedemption(ctx, tx, orderID); err != nil {
				return fmt.Errorf("release promo redemption: %w", err)
			}
		}
		return s.webhookEventRepo.MarkProcessed(ctx, tx, evt.EventID, evt.Type)
	})
}

func (s *orderServiceImpl) onGatewayRefunded(ctx context.Context, evt *client.GatewayEvent) error {
	orderID := evt.Data.OrderID

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.orderRepo.MarkRefunded(ctx, tx, orderID)
		if err != nil {
			return fmt.Errorf("mark order refunded: %w", err)
		}
		if !ok {
			log.Printf("refund notification for order %s in a non-paid state", orderID)
		}
		// sold inventory stays sold; returning seats to sale after a refund
		// is an operator decision, not an automatic one
		return s.webhookEventRepo.MarkProcessed(ctx, tx, evt.EventID, evt.Type)
	})
}

func (s *orderServiceImpl) recordOnly(ctx context.Context, evt *client.GatewayEvent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.webhookEventRepo.MarkProcessed(ctx, tx, evt.EventID, evt.Type)
	})
}

func (s *orderServiceImpl) ExpireStale(ctx context.Context) error {
	orders, err := s.orderRepo.FindExpiredPending(ctx, time.Now(), 100)
	if err != nil {
		return fmt.Errorf("find expired orders: %w", err)
	}

	for _, order := range orders {
		if err := s.expireOrder(ctx, order); err != nil {
			log.Printf("expire order %s: %v", order.ID, err)
		}
	}
	return nil
}

func (s *orderServiceImpl) expireOrder(ctx context.Context, order *model.Order) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.orderRepo.MarkCancelled(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if !ok {
			// lost the race against a payment or another sweep; nothing to release
			return nil
		}
		if err := s.releaseItems(ctx, tx, order.ID); err != nil {
			return err
		}
		return s.promoRepo.ReleaseRedemption(ctx, tx, order.ID)
	})
}

func (s *orderServiceImpl) releaseItems(ctx context.Context, tx *gorm.DB, orderID string) error {
	items, err := s.orderRepo.GetOrderItems(ctx, tx, orderID)
	if err != nil {
		return fmt.Errorf("get order items: %w", err)
	}
	for _, item := range items {
		if err := s.ticketTypeRepo.Release(ctx, tx, item.TicketTypeID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (s *orderServiceImpl) RunExpirySweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("expiry sweeper started, interval %s", interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("expiry sweeper stopped")
			return
		case <-ticker.C:
			if err := s.ExpireStale(ctx); err != nil {
				log.Printf("expiry sweep: %v", err)
			}
		}
	}
}

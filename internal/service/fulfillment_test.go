package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leeveo/inscription-sub004/internal/apperr"
	"github.com/leeveo/inscription-sub004/internal/dto"
	"github.com/leeveo/inscription-sub004/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedPaidOrder inserts a paid order with one item per quantity given,
// bypassing checkout so fulfillment can be exercised in isolation.
func (f *fixture) seedPaidOrder(t *testing.T, quantities ...int64) string {
	t.Helper()

	now := time.Now()
	order := &model.Order{
		ID:         uuid.NewString(),
		EventID:    "ev-1",
		BuyerEmail: "jean@example.test",
		BuyerName:  "Jean Dupont",
		Currency:   "EUR",
		Status:     model.OrderPaid,
		PaidAt:     &now,
	}
	require.NoError(t, f.db.Create(order).Error)

	for _, qty := range quantities {
		ttID := uuid.NewString()
		require.NoError(t, f.db.Create(&model.TicketType{
			ID:       ttID,
			EventID:  "ev-1",
			Name:     "Seeded",
			Price:    2500,
			Currency: "EUR",
		}).Error)
		require.NoError(t, f.db.Create(&model.OrderItem{
			OrderID:        order.ID,
			TicketTypeID:   ttID,
			TicketTypeName: "Seeded",
			Quantity:       qty,
			UnitPrice:      2500,
			LineTotal:      2500 * qty,
			Currency:       "EUR",
		}).Error)
	}
	return order.ID
}

func (f *fixture) participants(t *testing.T, orderID string) []*model.Participant {
	t.Helper()
	var out []*model.Participant
	require.NoError(t, f.db.Where("order_id = ?", orderID).Find(&out).Error)
	return out
}

func TestFulfillOrder_OneParticipantPerSeat(t *testing.T) {
	f := newFixture(t)
	orderID := f.seedPaidOrder(t, 2, 3)

	require.NoError(t, f.fulfillment.FulfillOrder(context.Background(), orderID))

	parts := f.participants(t, orderID)
	require.Len(t, parts, 5)

	tokens := make(map[string]bool)
	for _, p := range parts {
		assert.Len(t, p.Token, 64)
		assert.False(t, tokens[p.Token], "token reused")
		tokens[p.Token] = true
		assert.True(t, p.TicketSent)
		assert.False(t, p.RenderFailed)
		assert.Equal(t, "Jean Dupont", p.Name)
	}
}

func TestFulfillOrder_SecondCallIsNoOp(t *testing.T) {
	f := newFixture(t)
	orderID := f.seedPaidOrder(t, 2)

	require.NoError(t, f.fulfillment.FulfillOrder(context.Background(), orderID))
	require.NoError(t, f.fulfillment.FulfillOrder(context.Background(), orderID))

	assert.Len(t, f.participants(t, orderID), 2)
}

func TestFulfillOrder_RefusesUnpaidOrder(t *testing.T) {
	f := newFixture(t)
	quota := int64(5)
	f.seedTicketType(t, "std", 2500, &quota)
	resp := f.checkout(t, &dto.CartLine{TicketTypeID: "std", Quantity: 1})

	err := f.fulfillment.FulfillOrder(context.Background(), resp.OrderID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not paid")
	assert.Empty(t, f.participants(t, resp.OrderID))
}

func TestFulfillOrder_RenderFailureDoesNotUnwindSiblings(t *testing.T) {
	f := newFixture(t)
	orderID := f.seedPaidOrder(t, 3)

	// a corrupt default template makes every render attempt fail; the
	// participants must still exist afterwards, flagged for redelivery
	require.NoError(t, f.db.Create(&model.TicketTemplate{
		ID:        uuid.NewString(),
		EventID:   "ev-1",
		Name:      "broken",
		Kind:      model.TemplateTicket,
		Schema:    "{not json",
		IsDefault: true,
	}).Error)

	require.NoError(t, f.fulfillment.FulfillOrder(context.Background(), orderID))

	parts := f.participants(t, orderID)
	require.Len(t, parts, 3)
	for _, p := range parts {
		assert.True(t, p.RenderFailed)
		assert.False(t, p.TicketSent)
	}

	var failed int64
	require.NoError(t, f.db.Model(&model.PrintJob{}).
		Where("status = ?", model.PrintJobFailed).Count(&failed).Error)
	assert.Equal(t, int64(3), failed)
}

func TestRenderPass_AllFormats(t *testing.T) {
	f := newFixture(t)
	orderID := f.seedPaidOrder(t, 1)
	require.NoError(t, f.fulfillment.FulfillOrder(context.Background(), orderID))
	token := f.participants(t, orderID)[0].Token

	html, contentType, err := f.fulfillment.RenderPass(context.Background(), token, FormatHTML)
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=utf-8", contentType)
	assert.Contains(t, string(html), "Salon Horizon")

	pdf, contentType, err := f.fulfillment.RenderPass(context.Background(), token, FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	raw, contentType, err := f.fulfillment.RenderPass(context.Background(), token, FormatESCPOS)
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", contentType)
	assert.True(t, bytes.HasPrefix(raw, []byte{0x1B, 0x40}))
}

func TestRenderPass_UnknownFormatRejected(t *testing.T) {
	f := newFixture(t)
	orderID := f.seedPaidOrder(t, 1)
	require.NoError(t, f.fulfillment.FulfillOrder(context.Background(), orderID))
	token := f.participants(t, orderID)[0].Token

	_, _, err := f.fulfillment.RenderPass(context.Background(), token, "docx")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestRenderPass_TemplateLookupFailureSurfaces(t *testing.T) {
	f := newFixture(t)
	orderID := f.seedPaidOrder(t, 1)
	require.NoError(t, f.fulfillment.FulfillOrder(context.Background(), orderID))
	token := f.participants(t, orderID)[0].Token

	// a broken datastore must not be mistaken for "no template configured"
	require.NoError(t, f.db.Migrator().DropTable(&model.TicketTemplate{}))

	_, _, err := f.fulfillment.RenderPass(context.Background(), token, FormatHTML)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load default template")
}

func TestRenderPass_UnknownTokenNotFound(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.fulfillment.RenderPass(context.Background(), "no-such-token", FormatHTML)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCheckIn_FirstScanWinsReplaysReported(t *testing.T) {
	f := newFixture(t)
	orderID := f.seedPaidOrder(t, 1)
	require.NoError(t, f.fulfillment.FulfillOrder(context.Background(), orderID))
	token := f.participants(t, orderID)[0].Token

	p, first, err := f.fulfillment.CheckIn(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, first)
	assert.True(t, p.CheckedIn)
	require.NotNil(t, p.CheckedInAt)
	firstAt := *p.CheckedInAt

	p, first, err = f.fulfillment.CheckIn(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, first)
	assert.True(t, p.CheckedIn)
	require.NotNil(t, p.CheckedInAt)
	assert.Equal(t, firstAt.Unix(), p.CheckedInAt.Unix())
}

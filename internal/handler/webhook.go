package handler

import (
	"io"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/leeveo/inscription-sub004/internal/service"
)

type WebhookHandler struct {
	orderService service.OrderService
}

func NewWebhookHandler(orderService service.OrderService) *WebhookHandler {
	return &WebhookHandler{
		orderService: orderService,
	}
}

// PaylineWebhook receives asynchronous gateway notifications. The raw body
// is read before any decoding because the signature covers the exact bytes.
func (h *WebhookHandler) PaylineWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	signature := c.Request().Header.Get("Payline-Signature")

	if err := h.orderService.HandleGatewayEvent(ctx, body, signature); err != nil {
		// a non-2xx tells the gateway to redeliver later
		log.Printf("handle webhook: %v", err)
		return c.NoContent(http.StatusBadRequest)
	}

	return c.NoContent(http.StatusOK)
}

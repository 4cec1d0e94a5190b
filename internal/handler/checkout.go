package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/leeveo/inscription-sub004/internal/dto"
	"github.com/leeveo/inscription-sub004/internal/service"
)

type CheckoutHandler struct {
	orderService service.OrderService
}

func NewCheckoutHandler(orderService service.OrderService) *CheckoutHandler {
	return &CheckoutHandler{
		orderService: orderService,
	}
}

func (h *CheckoutHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	result, err := h.orderService.Checkout(ctx, &req)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, result)
}

func (h *CheckoutHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	orderID := c.Param("orderID")
	if orderID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing order id")
	}

	result, err := h.orderService.GetOrder(ctx, orderID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, result)
}

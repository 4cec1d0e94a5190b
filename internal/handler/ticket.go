package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/leeveo/inscription-sub004/internal/dto"
	"github.com/leeveo/inscription-sub004/internal/service"
)

type TicketHandler struct {
	fulfillment service.FulfillmentService
}

func NewTicketHandler(fulfillment service.FulfillmentService) *TicketHandler {
	return &TicketHandler{
		fulfillment: fulfillment,
	}
}

func (h *TicketHandler) GetTicket(c echo.Context) error {
	ctx := c.Request().Context()
	token := c.Param("token")

	participant, err := h.fulfillment.GetTicket(ctx, token)
	if err != nil {
		return toHTTPError(err)
	}

	resp := &dto.TicketResponse{
		ParticipantID: participant.ID,
		EventID:       participant.EventID,
		Name:          participant.Name,
		Email:         participant.Email,
		CheckedIn:     participant.CheckedIn,
	}
	if participant.CheckedInAt != nil {
		resp.CheckedInAt = participant.CheckedInAt.Format(time.RFC3339)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *TicketHandler) CheckIn(c echo.Context) error {
	ctx := c.Request().Context()
	token := c.Param("token")

	participant, first, err := h.fulfillment.CheckIn(ctx, token)
	if err != nil {
		return toHTTPError(err)
	}

	resp := map[string]interface{}{
		"participant_id":  participant.ID,
		"checked_in":      true,
		"already_scanned": !first,
	}
	if participant.CheckedInAt != nil {
		resp["checked_in_at"] = participant.CheckedInAt.Format(time.RFC3339)
	}
	return c.JSON(http.StatusOK, resp)
}

// Pass renders the participant's ticket in the requested output format.
func (h *TicketHandler) Pass(c echo.Context) error {
	ctx := c.Request().Context()
	token := c.Param("token")

	format := c.QueryParam("format")
	if format == "" {
		format = service.FormatHTML
	}

	out, contentType, err := h.fulfillment.RenderPass(ctx, token, format)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Blob(http.StatusOK, contentType, out)
}

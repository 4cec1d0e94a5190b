package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/leeveo/inscription-sub004/internal/dto"
	"github.com/leeveo/inscription-sub004/internal/service"
)

type TemplateHandler struct {
	templateService service.TemplateService
}

func NewTemplateHandler(templateService service.TemplateService) *TemplateHandler {
	return &TemplateHandler{
		templateService: templateService,
	}
}

func (h *TemplateHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.TemplateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	tpl, err := h.templateService.Create(ctx, &req)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, tpl)
}

func (h *TemplateHandler) UpdateLayout(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.TemplateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	tpl, err := h.templateService.UpdateLayout(ctx, c.Param("templateID"), &req)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, tpl)
}

func (h *TemplateHandler) SetDefault(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.templateService.SetDefault(ctx, c.Param("templateID")); err != nil {
		return toHTTPError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *TemplateHandler) ListByEvent(c echo.Context) error {
	ctx := c.Request().Context()

	tpls, err := h.templateService.ListByEvent(ctx, c.QueryParam("event_id"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, tpls)
}

func (h *TemplateHandler) Preview(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.TemplatePreviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	out, contentType, err := h.templateService.Preview(ctx, c.Param("templateID"), &req)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Blob(http.StatusOK, contentType, out)
}

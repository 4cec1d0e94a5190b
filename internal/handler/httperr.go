package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/leeveo/inscription-sub004/internal/apperr"
)

// toHTTPError maps the error taxonomy onto status codes. User-facing
// failures keep their message (they name the offending field or ticket
// type); infra failures are logged and returned as a generic 500.
func toHTTPError(err error) error {
	switch {
	case apperr.IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case apperr.IsQuotaExceeded(err):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, apperr.ErrTotalMismatch):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case apperr.IsGateway(err):
		return echo.NewHTTPError(http.StatusBadGateway, "payment gateway unavailable, please retry")
	default:
		log.Printf("internal error: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

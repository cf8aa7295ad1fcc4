package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Eursukkul/courier-backoffice/internal/dto"
	"github.com/Eursukkul/courier-backoffice/internal/lifecycle"
	"github.com/Eursukkul/courier-backoffice/internal/service"
	"github.com/Eursukkul/courier-backoffice/pkg/validation"
	"github.com/labstack/echo/v4"
)

const (
	headerOperator       = "X-Operator"
	headerIdempotencyKey = "Idempotency-Key"
)

// httpError maps domain errors onto status codes. Anything unrecognised is a 500.
func httpError(err error) *echo.HTTPError {
	var te *lifecycle.TransitionError
	var fe validation.FieldErrors

	switch {
	case errors.Is(err, lifecycle.ErrInvalidTransition) && errors.As(err, &te):
		return echo.NewHTTPError(http.StatusConflict, dto.ErrorResponse{Message: err.Error(), Allowed: te.Allowed})
	case errors.Is(err, lifecycle.ErrMissingRemarks),
		errors.Is(err, lifecycle.ErrUnknownStatus):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrValidation):
		resp := dto.ErrorResponse{Message: service.ErrValidation.Error()}
		if errors.As(err, &fe) {
			resp.Fields = fe
		}
		return echo.NewHTTPError(http.StatusBadRequest, resp)
	case errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, service.ErrUnknownAWB),
		errors.Is(err, service.ErrExceptionNotFound),
		errors.Is(err, service.ErrShipperNotFound),
		errors.Is(err, service.ErrConsigneeNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConcurrentModification),
		errors.Is(err, service.ErrOutOfOrder),
		errors.Is(err, service.ErrAlreadyInvoiced),
		errors.Is(err, service.ErrNotEligible),
		errors.Is(err, service.ErrInvalidExceptionTransition),
		errors.Is(err, service.ErrRedispatchNotAllowed),
		errors.Is(err, service.ErrAlreadyRedispatched):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
	}
}

// decode binds the body without validating it; services that validate their own input use it.
func decode(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

func bind(c echo.Context, req any) error {
	if err := decode(c, req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		var fe validation.FieldErrors
		if errors.As(err, &fe) {
			return echo.NewHTTPError(http.StatusBadRequest, dto.ErrorResponse{Message: service.ErrValidation.Error(), Fields: fe})
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func paramID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return uint(id), nil
}

func queryUint(c echo.Context, name string) (*uint, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	u := uint(v)
	return &u, nil
}

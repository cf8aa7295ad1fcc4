package handler

import (
	"net/http"
	"strconv"

	"github.com/Eursukkul/courier-backoffice/internal/dto"
	"github.com/Eursukkul/courier-backoffice/internal/service"
	"github.com/labstack/echo/v4"
)

type ExceptionHandler struct {
	svc service.ExceptionService
}

func NewExceptionHandler(svc service.ExceptionService) *ExceptionHandler {
	return &ExceptionHandler{svc: svc}
}

func (h *ExceptionHandler) RegisterRoutes(internal, public *echo.Group) {
	internal.GET("/bookings/:id/exceptions", h.ListForBooking)
	internal.GET("/exceptions/:id", h.GetException)
	internal.POST("/exceptions/:id/assign", h.Assign)
	internal.POST("/exceptions/:id/resolve", h.Resolve)
	public.POST("/exceptions", h.Report)
}

func (h *ExceptionHandler) Report(c echo.Context) error {
	var in service.ReportExceptionInput
	if err := decode(c, &in); err != nil {
		return err
	}

	ex, err := h.svc.Report(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, dto.ExceptionReceipt{ID: ex.ID, AWB: ex.AWB, Status: ex.Status})
}

func (h *ExceptionHandler) ListForBooking(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	openOnly := false
	if raw := c.QueryParam("open"); raw != "" {
		openOnly, err = strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid open flag")
		}
	}

	list, err := h.svc.ListForBooking(c.Request().Context(), id, openOnly)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *ExceptionHandler) GetException(c echo.Context) error {
	ex, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ex)
}

func (h *ExceptionHandler) Assign(c echo.Context) error {
	var req dto.AssignExceptionRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ex, err := h.svc.Assign(c.Request().Context(), c.Param("id"), req.AssignedTo)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ex)
}

func (h *ExceptionHandler) Resolve(c echo.Context) error {
	var req dto.ResolveExceptionRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ex, err := h.svc.Resolve(c.Request().Context(), c.Param("id"), req.Resolution)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ex)
}

package handler

import (
	"net/http"

	"github.com/Eursukkul/courier-backoffice/internal/service"
	"github.com/labstack/echo/v4"
)

type TrackingHandler struct {
	svc service.TrackingService
}

func NewTrackingHandler(svc service.TrackingService) *TrackingHandler {
	return &TrackingHandler{svc: svc}
}

func (h *TrackingHandler) RegisterRoutes(internal, public *echo.Group) {
	internal.GET("/bookings/:id/tracking", h.GetInternalView)
	public.GET("/tracking/:awb", h.GetPublicView)
}

// GetInternalView accepts a booking id or an AWB in the :id slot.
func (h *TrackingHandler) GetInternalView(c echo.Context) error {
	view, err := h.svc.GetTrackingView(c.Request().Context(), c.Param("id"), service.AudienceInternal)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *TrackingHandler) GetPublicView(c echo.Context) error {
	view, err := h.svc.GetTrackingView(c.Request().Context(), c.Param("awb"), service.AudiencePublic)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

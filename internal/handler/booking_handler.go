package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Eursukkul/courier-backoffice/internal/dto"
	"github.com/Eursukkul/courier-backoffice/internal/models"
	"github.com/Eursukkul/courier-backoffice/internal/repository"
	"github.com/Eursukkul/courier-backoffice/internal/service"
	"github.com/labstack/echo/v4"
)

const maxPageSize = 200

type BookingHandler struct {
	svc service.BookingService
}

func NewBookingHandler(svc service.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

func (h *BookingHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/bookings", h.CreateBooking)
	g.GET("/bookings", h.ListBookings)
	g.GET("/bookings/:id", h.GetBooking)
	g.PATCH("/bookings/:id/reference", h.UpdateReference)
	g.GET("/bookings/:id/history", h.GetHistory)
	g.POST("/bookings/:id/transitions", h.AttemptTransition)
	g.POST("/bookings/:id/redispatch", h.Redispatch)
}

func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var in service.CreateBookingInput
	if err := decode(c, &in); err != nil {
		return err
	}
	in.RecordedBy = c.Request().Header.Get(headerOperator)

	booking, err := h.svc.CreateBooking(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	booking, err := h.svc.GetBooking(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) ListBookings(c echo.Context) error {
	var filter repository.BookingFilter
	if s := c.QueryParam("status"); s != "" {
		st := models.ShipmentStatus(s)
		filter.Status = &st
	}
	shipperID, err := queryUint(c, "shipper_id")
	if err != nil {
		return err
	}
	filter.ShipperID = shipperID

	filter.Limit = 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		filter.Limit = min(n, maxPageSize)
	}
	if raw := c.QueryParam("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid offset")
		}
		filter.Offset = n
	}

	bookings, err := h.svc.ListBookings(c.Request().Context(), filter)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponses(bookings))
}

func (h *BookingHandler) UpdateReference(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateReferenceRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	booking, err := h.svc.UpdateReference(c.Request().Context(), id, req.ReferenceNumber)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) GetHistory(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	history, err := h.svc.GetHistory(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	resp := make([]dto.StatusEventResponse, len(history))
	for i := range history {
		resp[i] = dto.ToStatusEventResponse(&history[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) AttemptTransition(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	requestID := strings.TrimSpace(req.RequestID)
	if requestID == "" {
		requestID = strings.TrimSpace(c.Request().Header.Get(headerIdempotencyKey))
		if len(requestID) > service.MaxRequestIDLength {
			return echo.NewHTTPError(http.StatusBadRequest, dto.ErrorResponse{
				Message: service.ErrValidation.Error(),
				Fields:  map[string]string{headerIdempotencyKey: "max"},
			})
		}
	}

	res, err := h.svc.AttemptTransition(c.Request().Context(), id, service.TransitionRequest{
		Status:          req.Status,
		Location:        req.Location,
		Remarks:         req.Remarks,
		OccurredAt:      req.OccurredAt,
		RequestID:       requestID,
		RecordedBy:      c.Request().Header.Get(headerOperator),
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		return httpError(err)
	}

	code := http.StatusCreated
	if res.Replayed {
		code = http.StatusOK
	}
	return c.JSON(code, dto.TransitionResponse{
		BookingID: id,
		Status:    res.Status,
		Version:   res.Version,
		Replayed:  res.Replayed,
		Event:     dto.ToStatusEventResponse(&res.Event),
	})
}

func (h *BookingHandler) Redispatch(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	booking, err := h.svc.Redispatch(c.Request().Context(), id, c.Request().Header.Get(headerOperator))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, dto.ToBookingResponse(booking))
}

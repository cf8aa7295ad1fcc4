package handler

import (
	"net/http"

	"github.com/Eursukkul/courier-backoffice/internal/dto"
	"github.com/Eursukkul/courier-backoffice/internal/service"
	"github.com/labstack/echo/v4"
)

type BillingHandler struct {
	svc service.BillingService
}

func NewBillingHandler(svc service.BillingService) *BillingHandler {
	return &BillingHandler{svc: svc}
}

func (h *BillingHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/charges/quote", h.Quote)
	g.GET("/invoicing/eligible", h.ListEligible)
	g.POST("/invoicing/mark", h.MarkInvoicedBatch)
	g.GET("/bookings/:id/eligibility", h.Eligibility)
	g.POST("/bookings/:id/invoice", h.MarkInvoiced)
}

func (h *BillingHandler) Quote(c echo.Context) error {
	var in service.QuoteInput
	if err := decode(c, &in); err != nil {
		return err
	}

	charges, err := h.svc.Quote(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, charges)
}

func (h *BillingHandler) ListEligible(c echo.Context) error {
	shipperID, err := queryUint(c, "shipper_id")
	if err != nil {
		return err
	}

	bookings, err := h.svc.ListEligible(c.Request().Context(), shipperID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponses(bookings))
}

func (h *BillingHandler) Eligibility(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ok, err := h.svc.IsEligible(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dto.EligibilityResponse{BookingID: id, Eligible: ok})
}

func (h *BillingHandler) MarkInvoiced(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.MarkInvoicedRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	booking, err := h.svc.MarkInvoiced(c.Request().Context(), id, req.InvoiceNumber)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BillingHandler) MarkInvoicedBatch(c echo.Context) error {
	var req dto.MarkInvoicedBatchRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	bookings, err := h.svc.MarkInvoicedBatch(c.Request().Context(), req.InvoiceNumber, req.BookingIDs)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponses(bookings))
}

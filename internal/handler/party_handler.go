package handler

import (
	"net/http"

	"github.com/Eursukkul/courier-backoffice/internal/models"
	"github.com/Eursukkul/courier-backoffice/internal/service"
	"github.com/labstack/echo/v4"
)

type PartyHandler struct {
	svc service.PartyService
}

func NewPartyHandler(svc service.PartyService) *PartyHandler {
	return &PartyHandler{svc: svc}
}

func (h *PartyHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/shippers", h.CreateShipper)
	g.GET("/shippers/:id", h.GetShipper)
	g.POST("/consignees", h.CreateConsignee)
	g.GET("/consignees/:id", h.GetConsignee)
}

func (h *PartyHandler) CreateShipper(c echo.Context) error {
	var in service.ShipperInput
	if err := decode(c, &in); err != nil {
		return err
	}

	shipper, err := h.svc.CreateShipper(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, shipper)
}

func (h *PartyHandler) GetShipper(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	shipper, err := h.svc.GetShipper(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, shipper)
}

func (h *PartyHandler) CreateConsignee(c echo.Context) error {
	var in models.ContactSnapshot
	if err := decode(c, &in); err != nil {
		return err
	}

	consignee, err := h.svc.CreateConsignee(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, consignee)
}

func (h *PartyHandler) GetConsignee(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	consignee, err := h.svc.GetConsignee(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, consignee)
}

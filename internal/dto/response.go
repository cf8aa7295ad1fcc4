package dto

import (
	"time"

	"github.com/Eursukkul/courier-backoffice/internal/models"
	"github.com/shopspring/decimal"
)

type BookingResponse struct {
	ID                 uint                    `json:"id"`
	AWB                string                  `json:"awb"`
	ReferenceNumber    string                  `json:"reference_number,omitempty"`
	CurrentStatus      models.ShipmentStatus   `json:"current_status"`
	Version            int                     `json:"version"`
	ShipperID          uint                    `json:"shipper_id"`
	ConsigneeID        *uint                   `json:"consignee_id,omitempty"`
	Consignee          *models.ContactSnapshot `json:"consignee,omitempty"`
	ServiceType        models.ServiceType      `json:"service_type"`
	PaymentMode        models.PaymentMode      `json:"payment_mode"`
	Origin             string                  `json:"origin,omitempty"`
	Destination        string                  `json:"destination,omitempty"`
	PackageDescription string                  `json:"package_description,omitempty"`
	Weight             decimal.Decimal         `json:"weight"`
	DeclaredValue      decimal.Decimal         `json:"declared_value"`
	Insured            bool                    `json:"insured"`
	CODAmount          decimal.Decimal         `json:"cod_amount"`
	Charges            models.ChargeBreakdown  `json:"charges"`
	InvoiceGenerated   bool                    `json:"invoice_generated"`
	InvoiceNumber      string                  `json:"invoice_number,omitempty"`
	BookingDate        time.Time               `json:"booking_date"`
	PickedUpAt         *time.Time              `json:"picked_up_at,omitempty"`
	DeliveredAt        *time.Time              `json:"delivered_at,omitempty"`
	ClosedAt           *time.Time              `json:"closed_at,omitempty"`
	RedispatchOfID     *uint                   `json:"redispatch_of_id,omitempty"`
	CreatedAt          time.Time               `json:"created_at"`
}

type StatusEventResponse struct {
	Sequence   int                   `json:"sequence"`
	Status     models.ShipmentStatus `json:"status"`
	Location   string                `json:"location,omitempty"`
	Remarks    string                `json:"remarks,omitempty"`
	RecordedBy string                `json:"recorded_by,omitempty"`
	OccurredAt time.Time             `json:"occurred_at"`
}

type TransitionResponse struct {
	BookingID uint                  `json:"booking_id"`
	Status    models.ShipmentStatus `json:"status"`
	Version   int                   `json:"version"`
	Replayed  bool                  `json:"replayed,omitempty"`
	Event     StatusEventResponse   `json:"event"`
}

type EligibilityResponse struct {
	BookingID uint `json:"booking_id"`
	Eligible  bool `json:"eligible"`
}

// ExceptionReceipt is all a public reporter gets back.
type ExceptionReceipt struct {
	ID     string                 `json:"id"`
	AWB    string                 `json:"awb"`
	Status models.ExceptionStatus `json:"status"`
}

type ErrorResponse struct {
	Message string                  `json:"message"`
	Allowed []models.ShipmentStatus `json:"allowed,omitempty"`
	Fields  map[string]string       `json:"fields,omitempty"`
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	resp := BookingResponse{
		ID:                 b.ID,
		AWB:                b.AWB,
		ReferenceNumber:    b.ReferenceNumber,
		CurrentStatus:      b.CurrentStatus,
		Version:            b.Version,
		ShipperID:          b.ShipperID,
		ConsigneeID:        b.ConsigneeID,
		ServiceType:        b.ServiceType,
		PaymentMode:        b.PaymentMode,
		Origin:             b.Origin,
		Destination:        b.Destination,
		PackageDescription: b.PackageDescription,
		Weight:             b.Weight,
		DeclaredValue:      b.DeclaredValue,
		Insured:            b.Insured,
		CODAmount:          b.CODAmount,
		Charges:            b.Charges,
		InvoiceGenerated:   b.InvoiceGenerated,
		InvoiceNumber:      b.InvoiceNumber,
		BookingDate:        b.BookingDate,
		PickedUpAt:         b.PickedUpAt,
		DeliveredAt:        b.DeliveredAt,
		ClosedAt:           b.ClosedAt,
		RedispatchOfID:     b.RedispatchOfID,
		CreatedAt:          b.CreatedAt,
	}
	if b.Consignee != nil {
		snap := models.SnapshotOf(b.Consignee)
		resp.Consignee = &snap
	} else if snap, err := b.Snapshot(); err == nil {
		resp.Consignee = snap
	}
	return resp
}

func ToBookingResponses(list []models.Booking) []BookingResponse {
	out := make([]BookingResponse, len(list))
	for i := range list {
		out[i] = ToBookingResponse(&list[i])
	}
	return out
}

func ToStatusEventResponse(ev *models.StatusEvent) StatusEventResponse {
	return StatusEventResponse{
		Sequence:   ev.Sequence,
		Status:     ev.Status,
		Location:   ev.Location,
		Remarks:    ev.Remarks,
		RecordedBy: ev.RecordedBy,
		OccurredAt: ev.OccurredAt,
	}
}

package dto

import (
	"time"

	"github.com/Eursukkul/courier-backoffice/internal/models"
)

type TransitionRequest struct {
	Status          models.ShipmentStatus `json:"status" validate:"required"`
	Location        string                `json:"location,omitempty" validate:"max=120"`
	Remarks         string                `json:"remarks,omitempty" validate:"max=1000"`
	OccurredAt      *time.Time            `json:"occurred_at,omitempty"`
	RequestID       string                `json:"request_id,omitempty" validate:"max=64"`
	ExpectedVersion *int                  `json:"expected_version,omitempty" validate:"omitempty,gte=1"`
}

type UpdateReferenceRequest struct {
	ReferenceNumber string `json:"reference_number" validate:"max=64"`
}

type MarkInvoicedRequest struct {
	InvoiceNumber string `json:"invoice_number" validate:"required,max=64"`
}

type MarkInvoicedBatchRequest struct {
	InvoiceNumber string `json:"invoice_number" validate:"required,max=64"`
	BookingIDs    []uint `json:"booking_ids" validate:"required,min=1,max=500,dive,gt=0"`
}

type AssignExceptionRequest struct {
	AssignedTo string `json:"assigned_to" validate:"required,max=120"`
}

type ResolveExceptionRequest struct {
	Resolution string `json:"resolution" validate:"required,max=2000"`
}

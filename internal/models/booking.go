package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ChargeBreakdown holds the stored monetary fields of a booking, each rounded to 2 dp.
type ChargeBreakdown struct {
	ChargeableWeight decimal.Decimal `gorm:"type:numeric(12,3);not null;default:0" json:"chargeable_weight"`
	ShippingCharges  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"shipping_charges"`
	InsuranceCharges decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"insurance_charges"`
	CODCharges       decimal.Decimal `gorm:"column:cod_charges;type:numeric(12,2);not null;default:0" json:"cod_charges"`
	FuelSurcharge    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"fuel_surcharge"`
	Subtotal         decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"subtotal"`
	Tax              decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"tax"`
	Total            decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total"`
	Currency         string          `gorm:"size:3;not null;default:'INR'" json:"currency"`
}

type Booking struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	AWB             string         `gorm:"column:awb;size:32;not null;uniqueIndex" json:"awb"`
	ReferenceNumber string         `gorm:"size:64" json:"reference_number,omitempty"`
	CurrentStatus   ShipmentStatus `gorm:"type:varchar(20);not null;default:'Booked';index" json:"current_status"`
	Version         int            `gorm:"not null;default:1" json:"version"`

	ShipperID         uint           `gorm:"not null;index" json:"shipper_id"`
	ConsigneeID       *uint          `gorm:"index" json:"consignee_id,omitempty"`
	ConsigneeSnapshot datatypes.JSON `json:"consignee_snapshot,omitempty"`

	ServiceType        ServiceType     `gorm:"type:varchar(20);not null" json:"service_type"`
	PaymentMode        PaymentMode     `gorm:"type:varchar(20);not null" json:"payment_mode"`
	Origin             string          `gorm:"size:120" json:"origin,omitempty"`
	Destination        string          `gorm:"size:120" json:"destination,omitempty"`
	PackageDescription string          `gorm:"type:text" json:"package_description,omitempty"`
	Weight             decimal.Decimal `gorm:"type:numeric(10,3);not null" json:"weight"`
	Length             decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"length"`
	Width              decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"width"`
	Height             decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"height"`
	DimensionUnit      DimensionUnit   `gorm:"type:varchar(4);not null;default:'cm'" json:"dimension_unit"`
	DeclaredValue      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"declared_value"`
	Insured            bool            `gorm:"not null;default:false" json:"insured"`
	CODAmount          decimal.Decimal `gorm:"column:cod_amount;type:numeric(12,2);not null;default:0" json:"cod_amount"`

	Charges ChargeBreakdown `gorm:"embedded" json:"charges"`

	InvoiceGenerated bool       `gorm:"not null;default:false;index" json:"invoice_generated"`
	InvoiceNumber    string     `gorm:"size:64" json:"invoice_number,omitempty"`
	InvoicedAt       *time.Time `json:"invoiced_at,omitempty"`

	BookingDate    time.Time  `gorm:"not null" json:"booking_date"`
	PickedUpAt     *time.Time `json:"picked_up_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	RedispatchOfID *uint      `gorm:"uniqueIndex:idx_booking_redispatch_of" json:"redispatch_of_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Shipper   *Shipper   `gorm:"foreignKey:ShipperID" json:"shipper,omitempty"`
	Consignee *Consignee `gorm:"foreignKey:ConsigneeID" json:"consignee,omitempty"`
}

// Snapshot decodes the embedded consignee details, if the booking was made with them.
func (b *Booking) Snapshot() (*ContactSnapshot, error) {
	if len(b.ConsigneeSnapshot) == 0 {
		return nil, nil
	}
	var snap ContactSnapshot
	if err := json.Unmarshal(b.ConsigneeSnapshot, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

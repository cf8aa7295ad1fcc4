package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Eursukkul/courier-backoffice/internal/models"
	"github.com/Eursukkul/courier-backoffice/internal/service"
	"github.com/shopspring/decimal"
)

// Column order of the bookings sheet. The first row is a header and is skipped.
const (
	colShipperID = iota
	colReference
	colServiceType
	colPaymentMode
	colOrigin
	colDestination
	colDescription
	colWeight
	colLength
	colWidth
	colHeight
	colUnit
	colDeclaredValue
	colInsured
	colCODAmount
	colConsigneeID
	colConsigneeName
	colConsigneePhone
	colConsigneeAddress
	colConsigneeCity
	colConsigneePostalCode
	colConsigneeCountry
	colBookingDate
)

// cells pads short rows; GetRows trims trailing empty cells.
type cells []string

func (c cells) at(i int) string {
	if i >= len(c) {
		return ""
	}
	return strings.TrimSpace(c[i])
}

func (c cells) decimal(i int, name string) (decimal.Decimal, error) {
	raw := c.at(i)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %q is not a number", name, raw)
	}
	return d, nil
}

// parseRow maps one sheet row onto a booking request. Row numbers in errors are 1-based
// sheet rows so they line up with what the operator sees in the spreadsheet.
func parseRow(rowNum int, row []string) (service.CreateBookingInput, error) {
	c := cells(row)
	var in service.CreateBookingInput

	shipperID, err := strconv.ParseUint(c.at(colShipperID), 10, 64)
	if err != nil {
		return in, fmt.Errorf("row %d: shipper_id: %q is not an id", rowNum, c.at(colShipperID))
	}
	in.ShipperID = uint(shipperID)
	in.ReferenceNumber = c.at(colReference)
	in.ServiceType = models.ServiceType(canonical(c.at(colServiceType), serviceTypes))
	in.PaymentMode = models.PaymentMode(canonical(c.at(colPaymentMode), paymentModes))
	in.Origin = c.at(colOrigin)
	in.Destination = c.at(colDestination)
	in.PackageDescription = c.at(colDescription)
	in.DimensionUnit = models.DimensionUnit(strings.ToLower(c.at(colUnit)))

	numbers := []struct {
		col  int
		name string
		dst  *decimal.Decimal
	}{
		{colWeight, "weight", &in.Weight},
		{colLength, "length", &in.Length},
		{colWidth, "width", &in.Width},
		{colHeight, "height", &in.Height},
		{colDeclaredValue, "declared_value", &in.DeclaredValue},
		{colCODAmount, "cod_amount", &in.CODAmount},
	}
	for _, n := range numbers {
		v, err := c.decimal(n.col, n.name)
		if err != nil {
			return in, fmt.Errorf("row %d: %w", rowNum, err)
		}
		*n.dst = v
	}

	if raw := c.at(colInsured); raw != "" {
		in.Insured, err = parseFlag(raw)
		if err != nil {
			return in, fmt.Errorf("row %d: insured: %w", rowNum, err)
		}
	}

	if raw := c.at(colConsigneeID); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return in, fmt.Errorf("row %d: consignee_id: %q is not an id", rowNum, raw)
		}
		cid := uint(id)
		in.ConsigneeID = &cid
	} else if c.at(colConsigneeName) != "" {
		in.Consignee = &models.ContactSnapshot{
			Name:       c.at(colConsigneeName),
			Phone:      c.at(colConsigneePhone),
			Address:    c.at(colConsigneeAddress),
			City:       c.at(colConsigneeCity),
			PostalCode: c.at(colConsigneePostalCode),
			Country:    c.at(colConsigneeCountry),
		}
	}

	if raw := c.at(colBookingDate); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			return in, fmt.Errorf("row %d: booking_date: %w", rowNum, err)
		}
		in.BookingDate = &d
	}

	return in, nil
}

var (
	serviceTypes = []string{
		string(models.ServiceEconomy), string(models.ServiceStandard), string(models.ServiceExpress),
		string(models.ServiceSameDay), string(models.ServiceOvernight), string(models.ServiceInternational),
	}
	paymentModes = []string{string(models.PaymentPrepaid), string(models.PaymentCOD), string(models.PaymentToPay)}
)

// canonical returns the known spelling of raw, ignoring case. Unknown values pass through
// unchanged and are rejected by booking validation.
func canonical(raw string, known []string) string {
	for _, k := range known {
		if strings.EqualFold(raw, k) {
			return k
		}
	}
	return raw
}

func parseFlag(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "y", "yes", "true", "1":
		return true, nil
	case "n", "no", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%q is not yes/no", raw)
}

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a date", raw)
}

// isBlank reports whether a row carries no data at all; trailing blank rows are common in exports.
func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

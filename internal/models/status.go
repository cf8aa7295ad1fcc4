package models

type ShipmentStatus string

const (
	StatusBooked         ShipmentStatus = "Booked"
	StatusPickedUp       ShipmentStatus = "Picked Up"
	StatusInTransit      ShipmentStatus = "In Transit"
	StatusOutForDelivery ShipmentStatus = "Out for Delivery"
	StatusDelivered      ShipmentStatus = "Delivered"
	StatusFailedDelivery ShipmentStatus = "Failed Delivery"
	StatusReturned       ShipmentStatus = "Returned"
	StatusCancelled      ShipmentStatus = "Cancelled"
	StatusOnHold         ShipmentStatus = "On Hold"
)

func (s ShipmentStatus) String() string {
	return string(s)
}

func (s ShipmentStatus) IsValid() bool {
	switch s {
	case StatusBooked, StatusPickedUp, StatusInTransit, StatusOutForDelivery, StatusDelivered,
		StatusFailedDelivery, StatusReturned, StatusCancelled, StatusOnHold:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the normal flow ends at s.
func (s ShipmentStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusReturned
}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []ShipmentStatus {
	return []ShipmentStatus{
		StatusBooked,
		StatusPickedUp,
		StatusInTransit,
		StatusOutForDelivery,
		StatusDelivered,
		StatusFailedDelivery,
		StatusReturned,
		StatusCancelled,
		StatusOnHold,
	}
}

// TerminalStatuses lists statuses the stale scan and list filters treat as closed.
func TerminalStatuses() []ShipmentStatus {
	return []ShipmentStatus{StatusDelivered, StatusCancelled, StatusReturned}
}

type ServiceType string

const (
	ServiceEconomy       ServiceType = "Economy"
	ServiceStandard      ServiceType = "Standard"
	ServiceExpress       ServiceType = "Express"
	ServiceSameDay       ServiceType = "Same Day"
	ServiceOvernight     ServiceType = "Overnight"
	ServiceInternational ServiceType = "International"
)

func (s ServiceType) IsValid() bool {
	switch s {
	case ServiceEconomy, ServiceStandard, ServiceExpress, ServiceSameDay, ServiceOvernight, ServiceInternational:
		return true
	default:
		return false
	}
}

type PaymentMode string

const (
	PaymentPrepaid PaymentMode = "Prepaid"
	PaymentCOD     PaymentMode = "COD"
	PaymentToPay   PaymentMode = "To Pay"
)

func (p PaymentMode) IsValid() bool {
	switch p {
	case PaymentPrepaid, PaymentCOD, PaymentToPay:
		return true
	default:
		return false
	}
}

type DimensionUnit string

const (
	DimensionCM   DimensionUnit = "cm"
	DimensionInch DimensionUnit = "in"
)

func (u DimensionUnit) IsValid() bool {
	return u == DimensionCM || u == DimensionInch
}

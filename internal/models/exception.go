package models

import "time"

type ExceptionType string

const (
	ExceptionDamagedPackage       ExceptionType = "Damaged Package"
	ExceptionMissingItems         ExceptionType = "Missing Items"
	ExceptionWrongAddress         ExceptionType = "Wrong Address"
	ExceptionDeliveryDelay        ExceptionType = "Delivery Delay"
	ExceptionPackageLost          ExceptionType = "Package Lost"
	ExceptionDeliveryRefused      ExceptionType = "Delivery Refused"
	ExceptionWrongItemDelivered   ExceptionType = "Wrong Item Delivered"
	ExceptionCustomerNotAvailable ExceptionType = "Customer Not Available"
	ExceptionOther                ExceptionType = "Other"
)

func (t ExceptionType) IsValid() bool {
	switch t {
	case ExceptionDamagedPackage, ExceptionMissingItems, ExceptionWrongAddress, ExceptionDeliveryDelay,
		ExceptionPackageLost, ExceptionDeliveryRefused, ExceptionWrongItemDelivered,
		ExceptionCustomerNotAvailable, ExceptionOther:
		return true
	default:
		return false
	}
}

type ExceptionStatus string

const (
	ExceptionOpen     ExceptionStatus = "Open"
	ExceptionAssigned ExceptionStatus = "Assigned"
	ExceptionResolved ExceptionStatus = "Resolved"
)

type Reporter struct {
	Name         string `gorm:"column:reporter_name;size:120;not null" json:"name"`
	Email        string `gorm:"column:reporter_email;size:120" json:"email,omitempty"`
	Mobile       string `gorm:"column:reporter_mobile;size:32;not null" json:"mobile"`
	Relationship string `gorm:"column:reporter_relationship;size:40" json:"relationship,omitempty"`
}

// BookingException is a customer-reported incident. It never changes the booking it points at.
type BookingException struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	BookingID   uint            `gorm:"not null;index" json:"booking_id"`
	AWB         string          `gorm:"column:awb;size:32;not null;index" json:"awb"`
	Type        ExceptionType   `gorm:"type:varchar(32);not null" json:"type"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Reporter    Reporter        `gorm:"embedded" json:"reporter"`
	Status      ExceptionStatus `gorm:"type:varchar(16);not null;default:'Open';index" json:"status"`
	AssignedTo  string          `gorm:"size:120" json:"assigned_to,omitempty"`
	Resolution  string          `gorm:"type:text" json:"resolution,omitempty"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (BookingException) TableName() string {
	return "booking_exceptions"
}

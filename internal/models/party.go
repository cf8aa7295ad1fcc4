package models

import "time"

type Shipper struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Company   string    `gorm:"size:120" json:"company,omitempty"`
	Email     string    `gorm:"size:120" json:"email,omitempty"`
	Phone     string    `gorm:"size:32" json:"phone,omitempty"`
	Address   string    `gorm:"type:text" json:"address,omitempty"`
	City      string    `gorm:"size:80" json:"city,omitempty"`
	Country   string    `gorm:"size:80" json:"country,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Consignee struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:120;not null" json:"name"`
	Company    string    `gorm:"size:120" json:"company,omitempty"`
	Email      string    `gorm:"size:120" json:"email,omitempty"`
	Phone      string    `gorm:"size:32" json:"phone,omitempty"`
	Address    string    `gorm:"type:text" json:"address,omitempty"`
	City       string    `gorm:"size:80" json:"city,omitempty"`
	PostalCode string    `gorm:"size:20" json:"postal_code,omitempty"`
	Country    string    `gorm:"size:80" json:"country,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ContactSnapshot is the consignee as captured at booking time when no consignee record is referenced.
type ContactSnapshot struct {
	Name       string `json:"name" validate:"required,max=120"`
	Company    string `json:"company,omitempty" validate:"max=120"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Phone      string `json:"phone" validate:"required,phone"`
	Address    string `json:"address" validate:"required"`
	City       string `json:"city,omitempty" validate:"max=80"`
	PostalCode string `json:"postal_code,omitempty" validate:"max=20"`
	Country    string `json:"country,omitempty" validate:"max=80"`
}

// SnapshotOf copies a consignee record into its snapshot form.
func SnapshotOf(c *Consignee) ContactSnapshot {
	return ContactSnapshot{
		Name:       c.Name,
		Company:    c.Company,
		Email:      c.Email,
		Phone:      c.Phone,
		Address:    c.Address,
		City:       c.City,
		PostalCode: c.PostalCode,
		Country:    c.Country,
	}
}

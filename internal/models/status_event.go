package models

import "time"

// StatusEvent is one row of a booking's append-only history. Rows are never updated or deleted.
type StatusEvent struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	BookingID  uint           `gorm:"not null;uniqueIndex:idx_status_event_seq,priority:1" json:"booking_id"`
	Sequence   int            `gorm:"not null;uniqueIndex:idx_status_event_seq,priority:2" json:"sequence"`
	Status     ShipmentStatus `gorm:"type:varchar(20);not null" json:"status"`
	Location   string         `gorm:"size:120" json:"location,omitempty"`
	Remarks    string         `gorm:"type:text" json:"remarks,omitempty"`
	RequestID  string         `gorm:"size:64" json:"request_id,omitempty"`
	RecordedBy string         `gorm:"size:120" json:"recorded_by,omitempty"`
	OccurredAt time.Time      `gorm:"not null" json:"occurred_at"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (StatusEvent) TableName() string {
	return "booking_status_events"
}

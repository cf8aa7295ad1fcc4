package lifecycle

import (
	"strings"
	"time"

	"github.com/Eursukkul/courier-backoffice/internal/models"
)

// AllowedTransitions maps a current status to the statuses it may move to.
// Delivered, Cancelled and Returned have no outgoing edges.
var AllowedTransitions = map[models.ShipmentStatus][]models.ShipmentStatus{
	models.StatusBooked:         {models.StatusPickedUp, models.StatusCancelled, models.StatusOnHold},
	models.StatusPickedUp:       {models.StatusInTransit, models.StatusOnHold, models.StatusCancelled},
	models.StatusInTransit:      {models.StatusOutForDelivery, models.StatusOnHold},
	models.StatusOutForDelivery: {models.StatusDelivered, models.StatusFailedDelivery},
	models.StatusFailedDelivery: {models.StatusOutForDelivery, models.StatusReturned},
	models.StatusOnHold:         {models.StatusPickedUp, models.StatusInTransit, models.StatusOutForDelivery, models.StatusCancelled},
	models.StatusDelivered:      {},
	models.StatusCancelled:      {},
	models.StatusReturned:       {},
}

// Stamp names the booking column a transition sets, if any.
type Stamp string

const (
	StampNone      Stamp = ""
	StampPickedUp  Stamp = "picked_up_at"
	StampDelivered Stamp = "delivered_at"
	StampClosed    Stamp = "closed_at"
)

// Meta is the caller-supplied context of a status change.
type Meta struct {
	Location   string
	Remarks    string
	OccurredAt time.Time
}

// Transition is a validated status change, ready for the ledger.
type Transition struct {
	From   models.ShipmentStatus
	To     models.ShipmentStatus
	Meta   Meta
	Stamps []Stamp
}

// NextStatuses returns a copy of the statuses reachable from current.
func NextStatuses(current models.ShipmentStatus) []models.ShipmentStatus {
	next := AllowedTransitions[current]
	out := make([]models.ShipmentStatus, len(next))
	copy(out, next)
	return out
}

func CanTransition(from, to models.ShipmentStatus) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// RequiresRemarks reports whether moving into s is only meaningful with an explanation.
func RequiresRemarks(s models.ShipmentStatus) bool {
	switch s {
	case models.StatusFailedDelivery, models.StatusReturned, models.StatusOnHold:
		return true
	default:
		return false
	}
}

// Validate decides whether current may move to proposed. It has no side effects.
func Validate(current, proposed models.ShipmentStatus, meta Meta) (*Transition, error) {
	if !proposed.IsValid() {
		return nil, &TransitionError{Kind: ErrUnknownStatus, From: current, To: proposed}
	}
	if !CanTransition(current, proposed) {
		return nil, &TransitionError{
			Kind:    ErrInvalidTransition,
			From:    current,
			To:      proposed,
			Allowed: NextStatuses(current),
		}
	}
	meta.Remarks = strings.TrimSpace(meta.Remarks)
	meta.Location = strings.TrimSpace(meta.Location)
	if RequiresRemarks(proposed) && meta.Remarks == "" {
		return nil, &TransitionError{Kind: ErrMissingRemarks, From: current, To: proposed}
	}

	return &Transition{
		From:   current,
		To:     proposed,
		Meta:   meta,
		Stamps: stampsFor(proposed),
	}, nil
}

func stampsFor(to models.ShipmentStatus) []Stamp {
	switch to {
	case models.StatusPickedUp:
		return []Stamp{StampPickedUp}
	case models.StatusDelivered:
		return []Stamp{StampDelivered, StampClosed}
	case models.StatusCancelled, models.StatusReturned:
		return []Stamp{StampClosed}
	default:
		return nil
	}
}

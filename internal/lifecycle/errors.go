package lifecycle

import (
	"errors"
	"fmt"

	"github.com/Eursukkul/courier-backoffice/internal/models"
)

var (
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrMissingRemarks    = errors.New("remarks are required for this status")
	ErrUnknownStatus     = errors.New("unknown shipment status")
)

// TransitionError carries the rejected edge. errors.Is matches its Kind.
type TransitionError struct {
	Kind    error
	From    models.ShipmentStatus
	To      models.ShipmentStatus
	Allowed []models.ShipmentStatus
}

func (e *TransitionError) Error() string {
	if e.Kind == ErrInvalidTransition {
		return fmt.Sprintf("%s: %q -> %q", e.Kind, e.From, e.To)
	}
	return fmt.Sprintf("%s: %q", e.Kind, e.To)
}

func (e *TransitionError) Unwrap() error {
	return e.Kind
}

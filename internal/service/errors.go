package service

import (
	"errors"
	"fmt"

	"github.com/Eursukkul/courier-backoffice/pkg/validation"
)

var (
	ErrValidation                 = errors.New("validation failed")
	ErrBookingNotFound            = errors.New("booking not found")
	ErrUnknownAWB                 = errors.New("no booking matches this AWB")
	ErrShipperNotFound            = errors.New("shipper not found")
	ErrConsigneeNotFound          = errors.New("consignee not found")
	ErrExceptionNotFound          = errors.New("exception not found")
	ErrConcurrentModification     = errors.New("booking was modified concurrently, re-read it and retry")
	ErrOutOfOrder                 = errors.New("event time precedes the last recorded event")
	ErrAlreadyInvoiced            = errors.New("booking is already invoiced")
	ErrNotEligible                = errors.New("booking is not eligible for invoicing")
	ErrInvalidExceptionTransition = errors.New("exception cannot move to that state")
	ErrRedispatchNotAllowed       = errors.New("only returned bookings can be re-dispatched")
	ErrAlreadyRedispatched        = errors.New("booking has already been re-dispatched")
)

// validationError wraps field failures so callers can match ErrValidation and still read the fields.
func validationError(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

func fieldError(field, rule string) error {
	return validationError(validation.FieldErrors{field: rule})
}

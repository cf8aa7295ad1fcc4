package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Eursukkul/courier-backoffice/internal/models"
	"github.com/Eursukkul/courier-backoffice/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportFor(awbNumber string) ReportExceptionInput {
	return ReportExceptionInput{
		AWB:         awbNumber,
		Type:        models.ExceptionDamagedPackage,
		Description: "Box crushed on one side",
		Reporter:    ReporterInput{Name: "Ravi Kumar", Mobile: "9812345678", Relationship: "Consignee"},
	}
}

func TestReportException_LinksWithoutTouchingBooking(t *testing.T) {
	h := newHarness(t)
	b := mustBook(t, h)

	ex, err := h.incidents.Report(context.Background(), reportFor(b.AWB))

	require.NoError(t, err)
	assert.Len(t, ex.ID, 36)
	assert.Equal(t, b.ID, ex.BookingID)
	assert.Equal(t, models.ExceptionOpen, ex.Status)

	got, _ := h.bookings.GetBooking(context.Background(), b.ID)
	assert.Equal(t, models.StatusBooked, got.CurrentStatus)
	assert.Equal(t, 1, got.Version)
	history, _ := h.bookings.GetHistory(context.Background(), b.ID)
	assert.Len(t, history, 1)

	view, err := h.tracking.GetTrackingView(context.Background(), b.AWB, AudiencePublic)
	require.NoError(t, err)
	require.Len(t, view.OpenExceptions, 1)
	assert.Equal(t, ex.ID, view.OpenExceptions[0].ID)
}

func TestReportException_DoesNotBlockTransitions(t *testing.T) {
	h := newHarness(t)
	b := mustBook(t, h)
	_, err := h.incidents.Report(context.Background(), reportFor(b.AWB))
	require.NoError(t, err)

	drive(t, h, b.ID, models.StatusPickedUp, models.StatusInTransit)
}

func TestReportException_UnknownAWB(t *testing.T) {
	h := newHarness(t)

	_, err := h.incidents.Report(context.Background(), reportFor("CXZZZ"))

	assert.ErrorIs(t, err, ErrUnknownAWB)
	assert.Empty(t, h.store.exceptions)
}

func TestReportException_Validation(t *testing.T) {
	h := newHarness(t)
	b := mustBook(t, h)
	in := reportFor(b.AWB)
	in.Type = "Alien Abduction"
	in.Reporter.Mobile = "123"
	in.Description = "  "

	_, err := h.incidents.Report(context.Background(), in)

	assert.ErrorIs(t, err, ErrValidation)
	var fe validation.FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "exception_type", fe["type"])
	assert.Equal(t, "phone", fe["reporter.mobile"])
	assert.Equal(t, "required", fe["description"])
}

func TestExceptionLifecycle(t *testing.T) {
	h := newHarness(t)
	b := mustBook(t, h)
	ex, err := h.incidents.Report(context.Background(), reportFor(b.AWB))
	require.NoError(t, err)

	_, err = h.incidents.Assign(context.Background(), ex.ID, "")
	assert.ErrorIs(t, err, ErrValidation)

	assigned, err := h.incidents.Assign(context.Background(), ex.ID, "agent.priya")
	require.NoError(t, err)
	assert.Equal(t, models.ExceptionAssigned, assigned.Status)
	assert.Equal(t, "agent.priya", assigned.AssignedTo)

	_, err = h.incidents.Resolve(context.Background(), ex.ID, " ")
	assert.ErrorIs(t, err, ErrValidation)

	resolved, err := h.incidents.Resolve(context.Background(), ex.ID, "Replacement shipped")
	require.NoError(t, err)
	assert.Equal(t, models.ExceptionResolved, resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)

	_, err = h.incidents.Assign(context.Background(), ex.ID, "agent.raj")
	assert.ErrorIs(t, err, ErrInvalidExceptionTransition)
	_, err = h.incidents.Resolve(context.Background(), ex.ID, "again")
	assert.ErrorIs(t, err, ErrInvalidExceptionTransition)

	open, err := h.incidents.ListForBooking(context.Background(), b.ID, true)
	require.NoError(t, err)
	assert.Empty(t, open)
	all, err := h.incidents.ListForBooking(context.Background(), b.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestExceptionNotFound(t *testing.T) {
	h := newHarness(t)

	_, err := h.incidents.Assign(context.Background(), "missing", "agent")
	assert.ErrorIs(t, err, ErrExceptionNotFound)

	_, err = h.incidents.ListForBooking(context.Background(), 999, false)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

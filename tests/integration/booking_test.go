//go:build integration

package integration

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Eursukkul/courier-backoffice/internal/events"
	"github.com/Eursukkul/courier-backoffice/internal/models"
	"github.com/Eursukkul/courier-backoffice/internal/pricing"
	"github.com/Eursukkul/courier-backoffice/internal/repository"
	"github.com/Eursukkul/courier-backoffice/internal/service"
	"github.com/Eursukkul/courier-backoffice/pkg/awb"
	"github.com/Eursukkul/courier-backoffice/pkg/cache"
	"github.com/Eursukkul/courier-backoffice/pkg/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stack struct {
	bookings   service.BookingService
	billing    service.BillingService
	tracking   service.TrackingService
	exceptions service.ExceptionService
	dispatcher *events.Dispatcher
}

func newStack(t *testing.T) *stack {
	t.Helper()
	zl := zap.NewNop()
	gen, err := awb.NewGenerator("CX", 1)
	require.NoError(t, err)
	v := validation.New("IN")
	tariff := pricing.DefaultConfig()

	txm := repository.NewTransactor(testDB)
	bookingRepo := repository.NewBookingRepository(testDB)
	historyRepo := repository.NewStatusEventRepository(testDB)
	shipperRepo := repository.NewShipperRepository(testDB)
	exceptionRepo := repository.NewExceptionRepository(testDB)

	dispatcher := events.NewDispatcher(zl)
	ledger := service.NewLedger(txm, bookingRepo, historyRepo, dispatcher, zl)
	tracking := service.NewTrackingService(bookingRepo, shipperRepo, exceptionRepo, ledger, nil, 0, zl)
	dispatcher.Subscribe(tracking)

	return &stack{
		bookings: service.NewBookingService(service.BookingDeps{
			Transactor: txm,
			Bookings:   bookingRepo,
			History:    historyRepo,
			Shippers:   shipperRepo,
			Consignees: repository.NewConsigneeRepository(testDB),
			Ledger:     ledger,
			AWB:        gen,
			Validator:  v,
			Tariff:     tariff,
			Logger:     zl,
		}),
		billing:    service.NewBillingService(txm, bookingRepo, cache.NoopLocker{}, tracking, v, tariff, zl),
		tracking:   tracking,
		exceptions: service.NewExceptionService(exceptionRepo, bookingRepo, tracking, v, zl),
		dispatcher: dispatcher,
	}
}

func createShipper(t *testing.T) *models.Shipper {
	t.Helper()
	s := &models.Shipper{Name: "Acme Traders", Email: "ops@acme.test", Phone: "+919876543210", Address: "12 Market Rd", City: "Pune", Country: "IN"}
	require.NoError(t, testDB.Create(s).Error)
	return s
}

func book(t *testing.T, st *stack, shipper *models.Shipper) *models.Booking {
	t.Helper()
	b, err := st.bookings.CreateBooking(t.Context(), service.CreateBookingInput{
		ShipperID: shipper.ID,
		Consignee: &models.ContactSnapshot{
			Name:    "Ravi Kumar",
			Phone:   "+919812345678",
			Address: "4 Lake View",
			City:    "Mumbai",
		},
		ServiceType:   models.ServiceExpress,
		PaymentMode:   models.PaymentPrepaid,
		Origin:        "Pune",
		Destination:   "Mumbai",
		Weight:        decimal.RequireFromString("1.2"),
		DeclaredValue: decimal.NewFromInt(800),
		RecordedBy:    "desk-1",
	})
	require.NoError(t, err)
	return b
}

func move(t *testing.T, st *stack, id uint, path ...models.ShipmentStatus) {
	t.Helper()
	for _, s := range path {
		_, err := st.bookings.AttemptTransition(t.Context(), id, service.TransitionRequest{Status: s, Location: "Hub", Remarks: "scan"})
		require.NoError(t, err, "moving to %s", s)
	}
}

// Test: booking is persisted with its first history row
func TestCreateBookingSeedsHistory(t *testing.T) {
	cleanTables()
	st := newStack(t)
	shipper := createShipper(t)

	b := book(t, st, shipper)

	var stored models.Booking
	require.NoError(t, testDB.First(&stored, b.ID).Error)
	assert.Equal(t, models.StatusBooked, stored.CurrentStatus)
	assert.Equal(t, 1, stored.Version)
	assert.Equal(t, b.AWB, stored.AWB)
	assert.True(t, stored.Charges.Total.GreaterThan(decimal.Zero))

	var history []models.StatusEvent
	require.NoError(t, testDB.Where("booking_id = ?", b.ID).Order("sequence").Find(&history).Error)
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusBooked, history[0].Status)
}

// Test: 10 writers race from the same version → exactly one event is appended
func TestConcurrentTransitionsOneWins(t *testing.T) {
	cleanTables()
	st := newStack(t)
	b := book(t, st, createShipper(t))
	move(t, st, b.ID, models.StatusPickedUp)

	writers := 10
	version := 2
	var wg sync.WaitGroup
	errs := make(chan error, writers)

	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := st.bookings.AttemptTransition(t.Context(), b.ID, service.TransitionRequest{
				Status:          models.StatusInTransit,
				Location:        fmt.Sprintf("Hub-%d", i),
				ExpectedVersion: &version,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, service.ErrConcurrentModification):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok, "exactly one writer should win")
	assert.Equal(t, writers-1, conflicts)

	var count int64
	testDB.Model(&models.StatusEvent{}).Where("booking_id = ?", b.ID).Count(&count)
	assert.Equal(t, int64(3), count)

	var stored models.Booking
	require.NoError(t, testDB.First(&stored, b.ID).Error)
	assert.Equal(t, 3, stored.Version)
	assert.Equal(t, models.StatusInTransit, stored.CurrentStatus)
}

// Test: a returned booking racing through re-dispatch gets exactly one successor
func TestConcurrentRedispatchCreatesOne(t *testing.T) {
	cleanTables()
	st := newStack(t)
	b := book(t, st, createShipper(t))
	move(t, st, b.ID, models.StatusPickedUp, models.StatusInTransit, models.StatusOutForDelivery,
		models.StatusFailedDelivery, models.StatusReturned)

	writers := 5
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_, err := st.bookings.Redispatch(t.Context(), b.ID, "desk-1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, service.ErrAlreadyRedispatched)
	}
	assert.Equal(t, 1, ok)

	var count int64
	testDB.Model(&models.Booking{}).Where("redispatch_of_id = ?", b.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

// Test: racing writers without an expected version still leave a gapless history
func TestConcurrentTransitionsKeepHistoryConsistent(t *testing.T) {
	cleanTables()
	st := newStack(t)
	b := book(t, st, createShipper(t))
	move(t, st, b.ID, models.StatusPickedUp)

	targets := []models.ShipmentStatus{models.StatusInTransit, models.StatusCancelled, models.StatusInTransit, models.StatusCancelled}
	var wg sync.WaitGroup
	wg.Add(len(targets))
	for _, s := range targets {
		go func(s models.ShipmentStatus) {
			defer wg.Done()
			_, _ = st.bookings.AttemptTransition(t.Context(), b.ID, service.TransitionRequest{Status: s})
		}(s)
	}
	wg.Wait()

	history, err := st.bookings.GetHistory(t.Context(), b.ID)
	require.NoError(t, err)
	for i, ev := range history {
		assert.Equal(t, i+1, ev.Sequence)
	}

	var stored models.Booking
	require.NoError(t, testDB.First(&stored, b.ID).Error)
	assert.Equal(t, len(history), stored.Version)
	assert.Equal(t, history[len(history)-1].Status, stored.CurrentStatus)
}

// Test: a repeated request id returns the recorded event instead of appending
func TestTransitionRequestIDIsIdempotent(t *testing.T) {
	cleanTables()
	st := newStack(t)
	b := book(t, st, createShipper(t))
	req := service.TransitionRequest{Status: models.StatusPickedUp, RequestID: "scanner-7:0001"}

	first, err := st.bookings.AttemptTransition(t.Context(), b.ID, req)
	require.NoError(t, err)
	again, err := st.bookings.AttemptTransition(t.Context(), b.ID, req)
	require.NoError(t, err)

	assert.True(t, again.Replayed)
	assert.Equal(t, first.Event.ID, again.Event.ID)

	var count int64
	testDB.Model(&models.StatusEvent{}).Where("booking_id = ?", b.ID).Count(&count)
	assert.Equal(t, int64(2), count)
}

// Test: two invoice runs race for the same delivered booking → one flips it
func TestConcurrentMarkInvoiced(t *testing.T) {
	cleanTables()
	st := newStack(t)
	b := book(t, st, createShipper(t))
	move(t, st, b.ID, models.StatusPickedUp, models.StatusInTransit, models.StatusOutForDelivery, models.StatusDelivered)

	runs := 5
	var wg sync.WaitGroup
	errs := make(chan error, runs)
	wg.Add(runs)
	for i := 0; i < runs; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := st.billing.MarkInvoiced(t.Context(), b.ID, fmt.Sprintf("INV-%d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var ok, already int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, service.ErrAlreadyInvoiced):
			already++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, runs-1, already)

	var stored models.Booking
	require.NoError(t, testDB.First(&stored, b.ID).Error)
	assert.True(t, stored.InvoiceGenerated)
	assert.NotEmpty(t, stored.InvoiceNumber)
}

// Test: a batch with one ineligible booking flips nothing
func TestMarkInvoicedBatchIsAllOrNothing(t *testing.T) {
	cleanTables()
	st := newStack(t)
	shipper := createShipper(t)
	delivered := book(t, st, shipper)
	move(t, st, delivered.ID, models.StatusPickedUp, models.StatusInTransit, models.StatusOutForDelivery, models.StatusDelivered)
	pending := book(t, st, shipper)

	_, err := st.billing.MarkInvoicedBatch(t.Context(), "INV-100", []uint{delivered.ID, pending.ID})
	assert.ErrorIs(t, err, service.ErrNotEligible)

	var stored models.Booking
	require.NoError(t, testDB.First(&stored, delivered.ID).Error)
	assert.False(t, stored.InvoiceGenerated)

	eligible, err := st.billing.ListEligible(t.Context(), &shipper.ID)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, delivered.ID, eligible[0].ID)
}

// Test: public view hides contact details and money, internal view carries them
func TestTrackingViewAudiences(t *testing.T) {
	cleanTables()
	st := newStack(t)
	b := book(t, st, createShipper(t))
	move(t, st, b.ID, models.StatusPickedUp)

	_, err := st.exceptions.Report(t.Context(), service.ReportExceptionInput{
		AWB:         b.AWB,
		Type:        models.ExceptionDeliveryDelay,
		Description: "not moved for two days",
		Reporter:    service.ReporterInput{Name: "Ravi Kumar", Mobile: "+919812345678"},
	})
	require.NoError(t, err)

	public, err := st.tracking.GetTrackingView(t.Context(), b.AWB, service.AudiencePublic)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPickedUp, public.CurrentStatus)
	require.Len(t, public.History, 2)
	assert.Equal(t, models.StatusPickedUp, public.History[0].Status)
	assert.Len(t, public.OpenExceptions, 1)
	assert.Empty(t, public.Shipper.Phone)
	assert.Empty(t, public.Consignee.Address)
	assert.Nil(t, public.Charges)
	assert.Nil(t, public.DeclaredValue)

	internal, err := st.tracking.GetTrackingView(t.Context(), fmt.Sprint(b.ID), service.AudienceInternal)
	require.NoError(t, err)
	assert.Equal(t, b.AWB, internal.AWB)
	assert.Equal(t, "+919876543210", internal.Shipper.Phone)
	require.NotNil(t, internal.Charges)
	assert.True(t, internal.Charges.Total.Equal(b.Charges.Total))

	_, err = st.tracking.GetTrackingView(t.Context(), fmt.Sprint(b.ID), service.AudiencePublic)
	assert.ErrorIs(t, err, service.ErrUnknownAWB)
}

package service

import (
	"context"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Eursukkul/courier-backoffice/internal/events"
	"github.com/Eursukkul/courier-backoffice/internal/models"
	"github.com/Eursukkul/courier-backoffice/internal/pricing"
	"github.com/Eursukkul/courier-backoffice/internal/repository"
	"github.com/Eursukkul/courier-backoffice/pkg/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- In-memory store backing every repository ---

type memStore struct {
	mu         sync.Mutex
	nextID     uint
	bookings   map[uint]models.Booking
	history    map[uint][]models.StatusEvent
	shippers   map[uint]models.Shipper
	consignees map[uint]models.Consignee
	exceptions map[string]models.BookingException

	// afterFind runs after FindByID returns; tests use it to line up concurrent readers.
	afterFind func()
}

func newMemStore() *memStore {
	return &memStore{
		bookings:   map[uint]models.Booking{},
		history:    map[uint][]models.StatusEvent{},
		shippers:   map[uint]models.Shipper{},
		consignees: map[uint]models.Consignee{},
		exceptions: map[string]models.BookingException{},
	}
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

type memTx struct{}

func (memTx) Transaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type memBookings struct{ s *memStore }

func (r memBookings) Create(_ context.Context, _ *gorm.DB, b *models.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b.ID = r.s.id()
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	r.s.bookings[b.ID] = *b
	return nil
}

func (r memBookings) FindByID(_ context.Context, id uint) (*models.Booking, error) {
	r.s.mu.Lock()
	b, ok := r.s.bookings[id]
	if ok {
		if sh, found := r.s.shippers[b.ShipperID]; found {
			b.Shipper = &sh
		}
		if b.ConsigneeID != nil {
			if c, found := r.s.consignees[*b.ConsigneeID]; found {
				b.Consignee = &c
			}
		}
	}
	hook := r.s.afterFind
	r.s.mu.Unlock()

	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if hook != nil {
		hook()
	}
	return &b, nil
}

func (r memBookings) FindByAWB(ctx context.Context, awbNumber string) (*models.Booking, error) {
	r.s.mu.Lock()
	var id uint
	for _, b := range r.s.bookings {
		if b.AWB == awbNumber {
			id = b.ID
		}
	}
	r.s.mu.Unlock()
	if id == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, id)
}

func (r memBookings) List(_ context.Context, f repository.BookingFilter) ([]models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Booking
	for _, b := range r.s.bookings {
		if f.Status != nil && b.CurrentStatus != *f.Status {
			continue
		}
		if f.ShipperID != nil && b.ShipperID != *f.ShipperID {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memBookings) Exists(_ context.Context, _ *gorm.DB, id uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.bookings[id]
	return ok, nil
}

func (r memBookings) UpdateStatus(_ context.Context, _ *gorm.DB, upd repository.StatusUpdate) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[upd.BookingID]
	if !ok || b.Version != upd.ExpectedVersion {
		return false, nil
	}
	b.CurrentStatus = upd.Status
	b.Version++
	b.UpdatedAt = time.Now()
	at := upd.At
	for _, col := range upd.StampColumns {
		switch col {
		case "picked_up_at":
			if b.PickedUpAt == nil {
				b.PickedUpAt = &at
			}
		case "delivered_at":
			if b.DeliveredAt == nil {
				b.DeliveredAt = &at
			}
		case "closed_at":
			if b.ClosedAt == nil {
				b.ClosedAt = &at
			}
		}
	}
	r.s.bookings[b.ID] = b
	return true, nil
}

func (r memBookings) UpdateReference(_ context.Context, id uint, ref string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	b.ReferenceNumber = ref
	r.s.bookings[id] = b
	return nil
}

func (r memBookings) FindByIDsForUpdate(_ context.Context, _ *gorm.DB, ids []uint) ([]models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Booking
	for _, id := range ids {
		if b, ok := r.s.bookings[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r memBookings) MarkInvoiced(_ context.Context, _ *gorm.DB, id uint, invoiceNumber string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok || b.InvoiceGenerated || b.CurrentStatus != models.StatusDelivered {
		return false, nil
	}
	b.InvoiceGenerated = true
	b.InvoiceNumber = invoiceNumber
	b.InvoicedAt = &at
	r.s.bookings[id] = b
	return true, nil
}

func (r memBookings) ListEligibleForInvoicing(_ context.Context, shipperID *uint) ([]models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Booking
	for _, b := range r.s.bookings {
		if !pricing.IsEligibleForInvoicing(&b) {
			continue
		}
		if shipperID != nil && b.ShipperID != *shipperID {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memBookings) FindRedispatchOf(_ context.Context, originalID uint) (*models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.RedispatchOfID != nil && *b.RedispatchOfID == originalID {
			return &b, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memBookings) ListStale(_ context.Context, before time.Time, limit int) ([]models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Booking
	for _, b := range r.s.bookings {
		if !b.CurrentStatus.IsTerminal() && b.UpdatedAt.Before(before) {
			out = append(out, b)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memHistory struct{ s *memStore }

func (r memHistory) Create(_ context.Context, _ *gorm.DB, ev *models.StatusEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ev.ID = r.s.id()
	ev.CreatedAt = time.Now()
	r.s.history[ev.BookingID] = append(r.s.history[ev.BookingID], *ev)
	return nil
}

func (r memHistory) FindLast(_ context.Context, _ *gorm.DB, bookingID uint) (*models.StatusEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.s.history[bookingID]
	if len(list) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	last := list[len(list)-1]
	return &last, nil
}

func (r memHistory) ListByBooking(_ context.Context, bookingID uint) ([]models.StatusEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return slices.Clone(r.s.history[bookingID]), nil
}

func (r memHistory) FindByRequestID(_ context.Context, bookingID uint, requestID string) (*models.StatusEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ev := range r.s.history[bookingID] {
		if ev.RequestID == requestID {
			return &ev, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type memShippers struct{ s *memStore }

func (r memShippers) Create(_ context.Context, sh *models.Shipper) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh.ID = r.s.id()
	r.s.shippers[sh.ID] = *sh
	return nil
}

func (r memShippers) FindByID(_ context.Context, id uint) (*models.Shipper, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh, ok := r.s.shippers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &sh, nil
}

type memConsignees struct{ s *memStore }

func (r memConsignees) Create(_ context.Context, c *models.Consignee) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.id()
	r.s.consignees[c.ID] = *c
	return nil
}

func (r memConsignees) FindByID(_ context.Context, id uint) (*models.Consignee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.consignees[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

type memExceptions struct{ s *memStore }

func (r memExceptions) Create(_ context.Context, ex *models.BookingException) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ex.CreatedAt = time.Now()
	ex.UpdatedAt = ex.CreatedAt
	r.s.exceptions[ex.ID] = *ex
	return nil
}

func (r memExceptions) FindByID(_ context.Context, id string) (*models.BookingException, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ex, ok := r.s.exceptions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &ex, nil
}

func (r memExceptions) ListByBooking(_ context.Context, bookingID uint, openOnly bool) ([]models.BookingException, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.BookingException
	for _, ex := range r.s.exceptions {
		if ex.BookingID != bookingID || (openOnly && ex.Status == models.ExceptionResolved) {
			continue
		}
		out = append(out, ex)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memExceptions) Transition(_ context.Context, id string, from []models.ExceptionStatus, to models.ExceptionStatus, fields map[string]any) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ex, ok := r.s.exceptions[id]
	if !ok || !slices.Contains(from, ex.Status) {
		return false, nil
	}
	ex.Status = to
	if v, ok := fields["assigned_to"].(string); ok {
		ex.AssignedTo = v
	}
	if v, ok := fields["resolution"].(string); ok {
		ex.Resolution = v
	}
	if v, ok := fields["resolved_at"].(time.Time); ok {
		ex.ResolvedAt = &v
	}
	r.s.exceptions[id] = ex
	return true, nil
}

// --- Publisher / cache / AWB fakes ---

type published struct {
	key     string
	payload any
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []published
}

func (p *recordingPublisher) Publish(_ context.Context, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, published{key: key, payload: payload})
	return nil
}

func (p *recordingPublisher) statusChanges() []events.StatusChanged {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.StatusChanged
	for _, m := range p.sent {
		if ev, ok := m.payload.(events.StatusChanged); ok {
			out = append(out, ev)
		}
	}
	return out
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string]any
	deleted []string
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string]any{}}
}

func (c *mapCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	*(dest.(*TrackingView)) = *(v.(*TrackingView))
	return true, nil
}

func (c *mapCache) SetJSON(_ context.Context, key string, v any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = v
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

type seqAWB struct {
	mu sync.Mutex
	n  int
}

func (g *seqAWB) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return "CX" + string(rune('A'+g.n-1)) + "000"
}

// --- Wiring ---

type harness struct {
	store     *memStore
	publisher *recordingPublisher
	cache     *mapCache
	ledger    *Ledger
	bookings  BookingService
	billing   BillingService
	tracking  TrackingService
	incidents ExceptionService
	parties   PartyService
	shipper   models.Shipper
	consignee models.Consignee
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := newMemStore()
	pub := &recordingPublisher{}
	vc := newMapCache()
	v := validation.New("IN")
	log := zap.NewNop()

	bookingRepo := memBookings{st}
	ledger := NewLedger(memTx{}, bookingRepo, memHistory{st}, pub, log)
	tracking := NewTrackingService(bookingRepo, memShippers{st}, memExceptions{st}, ledger, vc, time.Minute, log)

	h := &harness{
		store:     st,
		publisher: pub,
		cache:     vc,
		ledger:    ledger,
		tracking:  tracking,
		bookings: NewBookingService(BookingDeps{
			Transactor: memTx{},
			Bookings:   bookingRepo,
			History:    memHistory{st},
			Shippers:   memShippers{st},
			Consignees: memConsignees{st},
			Ledger:     ledger,
			AWB:        &seqAWB{},
			Validator:  v,
			Tariff:     pricing.DefaultConfig(),
			Logger:     log,
		}),
		billing:   NewBillingService(memTx{}, bookingRepo, nil, tracking, v, pricing.DefaultConfig(), log),
		incidents: NewExceptionService(memExceptions{st}, bookingRepo, tracking, v, log),
		parties:   NewPartyService(memShippers{st}, memConsignees{st}, v, log),
	}

	ctx := context.Background()
	h.shipper = models.Shipper{Name: "Acme Traders", Company: "Acme", Email: "ops@acme.test", Phone: "+919876543210", Address: "12 Market Rd", City: "Pune", Country: "IN"}
	_ = memShippers{st}.Create(ctx, &h.shipper)
	h.consignee = models.Consignee{Name: "Ravi Kumar", Phone: "+919812345678", Address: "4 Lake View", City: "Mumbai", Country: "IN"}
	_ = memConsignees{st}.Create(ctx, &h.consignee)
	return h
}

package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wareflow/parcel-engine/internal/core/domain"
	"github.com/wareflow/parcel-engine/internal/core/ports"
)

var discardLogger = zerolog.Nop()

var fixedNow = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// ---------------------------------------------------------------------------
// In-memory stub parcel repository
// ---------------------------------------------------------------------------

type stubParcelRepo struct {
	mu      sync.Mutex // the bulk coordinator calls in from worker goroutines
	parcels map[string]*domain.Parcel

	findErr   error // if set, FindByID returns this error
	updateErr error // if set, UpdateStatus returns this error
	listErr   error // if set, List and ResolveIDs return this error

	updateCalls int // number of UpdateStatus calls that reached the store
}

func newStubParcelRepo(parcels ...*domain.Parcel) *stubParcelRepo {
	r := &stubParcelRepo{parcels: make(map[string]*domain.Parcel)}
	for _, p := range parcels {
		clone := *p
		r.parcels[p.ID] = &clone
	}
	return r
}

func (r *stubParcelRepo) Create(_ context.Context, p *domain.Parcel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *p
	r.parcels[p.ID] = &clone
	return nil
}

func (r *stubParcelRepo) FindByID(_ context.Context, id string) (*domain.Parcel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	p, ok := r.parcels[id]
	if !ok {
		return nil, domain.ErrParcelNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *stubParcelRepo) ListByIdempotencyKey(_ context.Context, key string) ([]*domain.Parcel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Parcel
	for _, p := range r.parcels {
		if p.IdempotencyKey == key {
			clone := *p
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParcelSequence < out[j].ParcelSequence })
	return out, nil
}

func (r *stubParcelRepo) FindByBarcode(_ context.Context, code string) (*domain.Parcel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.parcels {
		for i := range p.Pieces {
			if p.Pieces[i].Barcode == code {
				clone := *p
				return &clone, nil
			}
		}
	}
	return nil, domain.ErrParcelNotFound
}

func (r *stubParcelRepo) FindByParcelCode(_ context.Context, prefix string) (*domain.Parcel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.parcels {
		for i := range p.Pieces {
			if strings.HasPrefix(p.Pieces[i].Barcode, prefix+"-") {
				clone := *p
				return &clone, nil
			}
		}
	}
	return nil, domain.ErrParcelNotFound
}

// UpdateStatus mirrors the real Mongo compare-and-swap on the revision.
func (r *stubParcelRepo) UpdateStatus(_ context.Context, id string, expectedRevision int64, upd ports.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	p, ok := r.parcels[id]
	if !ok {
		return domain.ErrParcelNotFound
	}
	if p.Revision != expectedRevision {
		return domain.ErrConflict
	}
	r.updateCalls++

	p.Status = upd.Status
	p.Revision++
	p.StatusHistory = append(p.StatusHistory, upd.Entry)
	if upd.MarkPiecesLoadedAt != nil {
		for i := range p.Pieces {
			ts := *upd.MarkPiecesLoadedAt
			p.Pieces[i].LoadedAt = &ts
		}
	}
	if upd.ClearPiecesLoaded {
		for i := range p.Pieces {
			p.Pieces[i].LoadedAt = nil
		}
	}
	if upd.CollectedAt != nil {
		ts := *upd.CollectedAt
		p.CollectedAt = &ts
		p.ConfirmationNote = upd.ConfirmationNote
	}
	if upd.AdminNotified != nil {
		p.AdminNotified = *upd.AdminNotified
	}
	return nil
}

func (r *stubParcelRepo) AssignTrip(_ context.Context, ids []string, tripID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		p, ok := r.parcels[id]
		if !ok {
			continue
		}
		p.TripID = tripID
		p.Revision++
		n++
	}
	return n, nil
}

func (r *stubParcelRepo) AttachInvoice(_ context.Context, id, invoiceID string, ps domain.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.parcels[id]
	if !ok {
		return domain.ErrParcelNotFound
	}
	p.InvoiceID = invoiceID
	p.InvoicePaymentStatus = ps
	p.Revision++
	return nil
}

func (r *stubParcelRepo) Delete(_ context.Context, ids []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := r.parcels[id]; ok {
			delete(r.parcels, id)
			n++
		}
	}
	return n, nil
}

func (r *stubParcelRepo) matching(filter ports.ListParcelsFilter) []*domain.Parcel {
	var matched []*domain.Parcel
	for _, p := range r.parcels {
		if filter.ClientID != "" && p.ClientID != filter.ClientID {
			continue
		}
		if filter.Status != "" && string(p.Status) != filter.Status {
			continue
		}
		if filter.TripID != "" && p.TripID != filter.TripID {
			continue
		}
		if filter.Destination != "" && p.Destination != filter.Destination {
			continue
		}
		clone := *p
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched
}

func (r *stubParcelRepo) List(_ context.Context, filter ports.ListParcelsFilter) ([]*domain.Parcel, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	matched := r.matching(filter)
	total := int64(len(matched))

	limit := filter.Limit
	if limit <= 0 {
		limit = len(matched)
	}
	skip := (filter.Page - 1) * limit
	if skip < 0 {
		skip = 0
	}
	if skip > len(matched) {
		return []*domain.Parcel{}, total, nil
	}
	end := skip + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], total, nil
}

func (r *stubParcelRepo) ResolveIDs(_ context.Context, filter ports.ListParcelsFilter) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	matched := r.matching(filter)
	ids := make([]string, 0, len(matched))
	for _, p := range matched {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (r *stubParcelRepo) ListByTripAndStatus(_ context.Context, tripID string, status domain.ParcelStatus) ([]*domain.Parcel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.matching(ports.ListParcelsFilter{TripID: tripID, Status: string(status)}), nil
}

func (r *stubParcelRepo) CountByStatus(_ context.Context) (map[domain.ParcelStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[domain.ParcelStatus]int64)
	for _, p := range r.parcels {
		counts[p.Status]++
	}
	return counts, nil
}

// ---------------------------------------------------------------------------
// Stub collaborators
// ---------------------------------------------------------------------------

type stubInvoiceLookup struct {
	snapshots map[string]*domain.InvoiceSnapshot
	err       error
	calls     int
}

func (l *stubInvoiceLookup) Snapshot(_ context.Context, invoiceID string) (*domain.InvoiceSnapshot, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	snap, ok := l.snapshots[invoiceID]
	if !ok {
		return nil, errors.New("invoice not found")
	}
	clone := *snap
	return &clone, nil
}

type stubSink struct {
	enqueued []domain.AdminNotification
}

func (s *stubSink) Enqueue(n domain.AdminNotification) {
	s.enqueued = append(s.enqueued, n)
}

type stubTripRepo struct {
	trips map[string]*domain.Trip
}

func newStubTripRepo(trips ...*domain.Trip) *stubTripRepo {
	r := &stubTripRepo{trips: make(map[string]*domain.Trip)}
	for _, t := range trips {
		clone := *t
		r.trips[t.ID] = &clone
	}
	return r
}

func (r *stubTripRepo) FindByID(_ context.Context, id string) (*domain.Trip, error) {
	t, ok := r.trips[id]
	if !ok {
		return nil, domain.ErrTripNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *stubTripRepo) UpdateStatus(_ context.Context, id string, expectedRevision int64, upd ports.TripStatusUpdate) error {
	t, ok := r.trips[id]
	if !ok {
		return domain.ErrTripNotFound
	}
	if t.Revision != expectedRevision {
		return domain.ErrConflict
	}
	t.Status = upd.Status
	t.Revision++
	if upd.DepartedAt != nil {
		ts := *upd.DepartedAt
		t.DepartedAt = &ts
	}
	if upd.ArrivedAt != nil {
		ts := *upd.ArrivedAt
		t.ArrivedAt = &ts
	}
	return nil
}

type stubBarcodeCache struct {
	entries map[string]string
	getErr  error
	sets    int
	hits    int
}

func newStubBarcodeCache() *stubBarcodeCache {
	return &stubBarcodeCache{entries: make(map[string]string)}
}

func (c *stubBarcodeCache) Get(_ context.Context, code string) (string, error) {
	if c.getErr != nil {
		return "", c.getErr
	}
	id := c.entries[code]
	if id != "" {
		c.hits++
	}
	return id, nil
}

func (c *stubBarcodeCache) Set(_ context.Context, code, parcelID string) error {
	c.sets++
	c.entries[code] = parcelID
	return nil
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func testParcel(id string, status domain.ParcelStatus) *domain.Parcel {
	return &domain.Parcel{
		ID:          id,
		ClientID:    "client_1",
		Description: "crate of spare parts",
		WeightKg:    12,
		Destination: "Hamburg",
		Status:      status,
		Pieces: []domain.Piece{{
			PieceNumber: 1,
			Barcode:     "T100-3-1",
		}},
		CreatedAt: fixedNow.Add(-24 * time.Hour),
		Revision:  1,
	}
}

func paidInvoice(id string) *domain.InvoiceSnapshot {
	return &domain.InvoiceSnapshot{ID: id, Status: domain.InvoicePaid, Total: 5500, Paid: 5500, Outstanding: 0, Currency: "EUR"}
}

func unpaidInvoice(id string) *domain.InvoiceSnapshot {
	return &domain.InvoiceSnapshot{ID: id, Status: domain.InvoiceSent, Total: 5500, Paid: 0, Outstanding: 5500, Currency: "EUR"}
}

func newTestEngine(repo *stubParcelRepo, invoices *stubInvoiceLookup, sink *stubSink) *LifecycleEngine {
	if invoices == nil {
		invoices = &stubInvoiceLookup{}
	}
	if sink == nil {
		sink = &stubSink{}
	}
	evaluator := NewCollectionEvaluator(invoices, time.Second, discardLogger)
	return NewLifecycleEngine(repo, evaluator, sink, discardLogger).WithClock(fixedClock)
}

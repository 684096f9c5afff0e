package ports

import (
	"context"
	"time"

	"github.com/wareflow/parcel-engine/internal/core/domain"
)

// ListParcelsFilter carries all query parameters for listing parcels. It is
// also the server-side resolution target for "select all matching current
// filter" bulk selections.
type ListParcelsFilter struct {
	ClientID    string // empty = no filter (admin); non-empty = scoped to client
	Status      string // optional: filter by custody status
	TripID      string // optional: filter by assigned trip
	Destination string // optional: exact destination match
	Search      string // optional: partial match on description or piece barcode
	DateFrom    time.Time
	DateTo      time.Time
	Page        int // 1-based
	Limit       int // max rows per page (capped at 100 by service)
}

// StatusUpdate describes the full mutation applied by a committed
// transition. Repositories apply it as a single compare-and-swap on the
// parcel's revision.
type StatusUpdate struct {
	Status domain.ParcelStatus
	Entry  domain.StatusHistoryEntry

	// MarkPiecesLoadedAt, when non-nil, stamps loaded_at on every piece.
	MarkPiecesLoadedAt *time.Time
	// ClearPiecesLoaded unsets loaded_at on every piece (undo of loading).
	ClearPiecesLoaded bool

	// Collection metadata, set only for transitions into collected.
	CollectedAt      *time.Time
	ConfirmationNote string
	AdminNotified    *bool
}

// ParcelRepository defines persistence operations for parcels and their
// embedded pieces.
type ParcelRepository interface {
	Create(ctx context.Context, p *domain.Parcel) error
	FindByID(ctx context.Context, id string) (*domain.Parcel, error)
	// ListByIdempotencyKey returns every parcel created under key, ordered
	// by parcel sequence, so a batch intake replays as the whole batch.
	ListByIdempotencyKey(ctx context.Context, key string) ([]*domain.Parcel, error)

	// FindByBarcode resolves an exact piece barcode to its parcel.
	FindByBarcode(ctx context.Context, code string) (*domain.Parcel, error)
	// FindByParcelCode resolves a TRIP-SEQ parcel prefix (a barcode without
	// its piece suffix) to the parcel whose pieces carry that prefix.
	FindByParcelCode(ctx context.Context, prefix string) (*domain.Parcel, error)

	// UpdateStatus applies upd iff the stored revision still equals
	// expectedRevision. Returns domain.ErrConflict when the parcel was
	// modified concurrently and domain.ErrParcelNotFound when it is gone.
	UpdateStatus(ctx context.Context, id string, expectedRevision int64, upd StatusUpdate) error

	// AssignTrip sets (or clears, when tripID is empty) trip_id on every
	// given parcel unconditionally. Returns the number of parcels matched.
	AssignTrip(ctx context.Context, ids []string, tripID string) (int64, error)

	// AttachInvoice records the billing reference and cached payment status.
	AttachInvoice(ctx context.Context, id, invoiceID string, ps domain.PaymentStatus) error

	// Delete hard-deletes the given parcels, pieces included. Irreversible.
	Delete(ctx context.Context, ids []string) (int64, error)

	// List returns a page of parcels matching filter and the total count.
	List(ctx context.Context, filter ListParcelsFilter) ([]*domain.Parcel, int64, error)

	// ResolveIDs returns every parcel id matching filter, unpaged. Used to
	// expand "all matching current filter" selections server-side.
	ResolveIDs(ctx context.Context, filter ListParcelsFilter) ([]string, error)

	// ListByTripAndStatus returns all parcels on a trip in the given status.
	ListByTripAndStatus(ctx context.Context, tripID string, status domain.ParcelStatus) ([]*domain.Parcel, error)

	// CountByStatus returns parcel counts keyed by custody status.
	CountByStatus(ctx context.Context) (map[domain.ParcelStatus]int64, error)
}

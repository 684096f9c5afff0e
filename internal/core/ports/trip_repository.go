package ports

import (
	"context"
	"time"

	"github.com/wareflow/parcel-engine/internal/core/domain"
)

// TripStatusUpdate is the mutation applied when a trip changes state.
type TripStatusUpdate struct {
	Status     domain.TripStatus
	DepartedAt *time.Time
	ArrivedAt  *time.Time
}

// TripRepository provides the minimal trip persistence the lifecycle engine
// needs. Full trip management (routes, scheduling) is owned elsewhere.
type TripRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Trip, error)

	// UpdateStatus applies upd iff the stored revision still equals
	// expectedRevision. Returns domain.ErrConflict on a lost race and
	// domain.ErrTripNotFound when the trip is gone.
	UpdateStatus(ctx context.Context, id string, expectedRevision int64, upd TripStatusUpdate) error
}

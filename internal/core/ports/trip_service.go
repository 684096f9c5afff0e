package ports

import (
	"context"

	"github.com/wareflow/parcel-engine/internal/core/domain"
)

// TripOperationResult reports a trip-level saga: the trip's new status plus
// the per-parcel outcome of the mass transition it drove.
type TripOperationResult struct {
	TripID     string                 `json:"trip_id"`
	TripStatus domain.TripStatus      `json:"trip_status"`
	Moved      []string               `json:"moved"`
	Failed     map[string]BulkFailure `json:"failed"`
}

// TripService owns the operations that couple trip status to mass parcel
// transitions. Each is a single explicit saga, not three independently
// timed calls.
type TripService interface {
	// Depart moves the trip to in_transit and every loaded parcel on it to
	// in_transit.
	Depart(ctx context.Context, tripID, actor string) (*TripOperationResult, error)
	// Arrive moves the trip to delivered and every in_transit parcel on it
	// to arrived.
	Arrive(ctx context.Context, tripID, actor string) (*TripOperationResult, error)
	// Reopen moves an in_transit trip back to loading. Parcel statuses are
	// deliberately left untouched.
	Reopen(ctx context.Context, tripID string) (*TripOperationResult, error)
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wareflow/parcel-engine/internal/core/domain"
	"github.com/wareflow/parcel-engine/internal/core/ports"
)

// TripService owns the sagas that couple trip status to mass parcel
// transitions. The trip's status changes first under its own revision
// check, then every affected parcel is transitioned individually; per
// parcel failures are reported, not rolled back.
type TripService struct {
	trips   ports.TripRepository
	parcels ports.ParcelRepository
	engine  *LifecycleEngine
	now     ports.Clock
	log     zerolog.Logger
}

func NewTripService(trips ports.TripRepository, parcels ports.ParcelRepository, engine *LifecycleEngine, log zerolog.Logger) *TripService {
	return &TripService{trips: trips, parcels: parcels, engine: engine, now: time.Now, log: log}
}

// WithClock overrides the service's time source. Tests only.
func (s *TripService) WithClock(now ports.Clock) *TripService {
	s.now = now
	return s
}

// Depart moves a loading trip to in_transit and transitions every parcel
// currently loaded on it to in_transit.
func (s *TripService) Depart(ctx context.Context, tripID, actor string) (*ports.TripOperationResult, error) {
	trip, err := s.trips.FindByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.Status != domain.TripLoading && trip.Status != domain.TripPlanning {
		return nil, fmt.Errorf("%w: trip %s is %s, cannot depart", domain.ErrInvalidTransition, tripID, trip.Status)
	}

	now := s.now().UTC()
	if err := s.trips.UpdateStatus(ctx, tripID, trip.Revision, ports.TripStatusUpdate{
		Status:     domain.TripInTransit,
		DepartedAt: &now,
	}); err != nil {
		return nil, err
	}

	result, err := s.massTransition(ctx, tripID, domain.StatusLoaded, domain.StatusInTransit, actor, "trip "+trip.TripNumber+" departed")
	if err != nil {
		return nil, err
	}
	result.TripStatus = domain.TripInTransit

	s.log.Info().
		Str("trip_id", tripID).
		Int("moved", len(result.Moved)).
		Int("failed", len(result.Failed)).
		Msg("trip departed")
	return result, nil
}

// Arrive moves an in_transit trip to delivered and transitions every
// in_transit parcel on it to arrived.
func (s *TripService) Arrive(ctx context.Context, tripID, actor string) (*ports.TripOperationResult, error) {
	trip, err := s.trips.FindByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.Status != domain.TripInTransit {
		return nil, fmt.Errorf("%w: trip %s is %s, cannot arrive", domain.ErrInvalidTransition, tripID, trip.Status)
	}

	now := s.now().UTC()
	if err := s.trips.UpdateStatus(ctx, tripID, trip.Revision, ports.TripStatusUpdate{
		Status:    domain.TripDelivered,
		ArrivedAt: &now,
	}); err != nil {
		return nil, err
	}

	result, err := s.massTransition(ctx, tripID, domain.StatusInTransit, domain.StatusArrived, actor, "trip "+trip.TripNumber+" arrived")
	if err != nil {
		return nil, err
	}
	result.TripStatus = domain.TripDelivered

	s.log.Info().
		Str("trip_id", tripID).
		Int("moved", len(result.Moved)).
		Int("failed", len(result.Failed)).
		Msg("trip arrived")
	return result, nil
}

// Reopen moves an in_transit trip back to loading. Parcel statuses are
// deliberately not reverted; operators undo individual loads by scan or
// bulk action if needed.
func (s *TripService) Reopen(ctx context.Context, tripID string) (*ports.TripOperationResult, error) {
	trip, err := s.trips.FindByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.Status != domain.TripInTransit {
		return nil, fmt.Errorf("%w: trip %s is %s, cannot reopen", domain.ErrInvalidTransition, tripID, trip.Status)
	}

	if err := s.trips.UpdateStatus(ctx, tripID, trip.Revision, ports.TripStatusUpdate{
		Status: domain.TripLoading,
	}); err != nil {
		return nil, err
	}

	s.log.Info().Str("trip_id", tripID).Msg("trip reopened for loading")
	return &ports.TripOperationResult{
		TripID:     tripID,
		TripStatus: domain.TripLoading,
		Moved:      []string{},
		Failed:     map[string]ports.BulkFailure{},
	}, nil
}

func (s *TripService) massTransition(ctx context.Context, tripID string, from, to domain.ParcelStatus, actor, note string) (*ports.TripOperationResult, error) {
	parcels, err := s.parcels.ListByTripAndStatus(ctx, tripID, from)
	if err != nil {
		return nil, fmt.Errorf("list trip parcels: %w", err)
	}

	result := &ports.TripOperationResult{
		TripID: tripID,
		Moved:  make([]string, 0, len(parcels)),
		Failed: map[string]ports.BulkFailure{},
	}
	for _, p := range parcels {
		_, err := s.engine.Transition(ctx, ports.TransitionInput{
			ParcelID: p.ID,
			Target:   to,
			TripID:   tripID,
			Note:     note,
			Actor:    actor,
		})
		if err != nil {
			result.Failed[p.ID] = classifyFailure(err)
			continue
		}
		result.Moved = append(result.Moved, p.ID)
	}
	return result, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/wareflow/parcel-engine/internal/pkg/metrics"
	"github.com/wareflow/parcel-engine/internal/core/domain"
	"github.com/wareflow/parcel-engine/internal/core/ports"
)

// BarcodeCache is a read-through cache in front of barcode resolution.
// Misses return ("", nil). Implemented by the Redis barcode cache; failures
// are treated as misses.
type BarcodeCache interface {
	Get(ctx context.Context, code string) (parcelID string, err error)
	Set(ctx context.Context, code, parcelID string) error
}

// ScanResolver maps a scanned code to a piece/parcel and drives the single
// legal transition implied by the terminal's operating mode.
type ScanResolver struct {
	parcels ports.ParcelRepository
	cache   BarcodeCache
	engine  *LifecycleEngine
	log     zerolog.Logger
}

func NewScanResolver(parcels ports.ParcelRepository, cache BarcodeCache, engine *LifecycleEngine, log zerolog.Logger) *ScanResolver {
	return &ScanResolver{parcels: parcels, cache: cache, engine: engine, log: log}
}

// Resolve looks up the scanned code without mutating anything. Lookup order:
// barcode cache, exact piece barcode, the code as a bare TRIP-SEQ parcel
// identifier, then the TRIP-SEQ portion of a full barcode.
func (s *ScanResolver) Resolve(ctx context.Context, in ports.ScanInput) (*ports.ScanResult, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" {
		return nil, &domain.ValidationError{Field: "code", Reason: "must not be empty"}
	}

	parcel, err := s.lookup(ctx, code)
	if err != nil {
		metrics.ScansTotal.WithLabelValues(string(in.Mode), "not_found").Inc()
		return nil, err
	}

	result := &ports.ScanResult{
		Parcel:   parcel,
		Piece:    parcel.PieceByBarcode(code),
		ClientID: parcel.ClientID,
	}

	target, hasTarget := in.Mode.ImpliedTarget()
	if !hasTarget {
		metrics.ScansTotal.WithLabelValues(string(in.Mode), "lookup").Inc()
		return result, nil
	}
	result.Target = target

	// Loading and unloading scans only make sense against the trip the
	// operator has open; a mismatch must not mutate anything.
	if parcel.TripID == "" || parcel.TripID != in.TripID {
		metrics.ScansTotal.WithLabelValues(string(in.Mode), "wrong_trip").Inc()
		return nil, fmt.Errorf("%w: parcel %s is on trip %q, scanner is on trip %q",
			domain.ErrWrongTrip, parcel.ID, parcel.TripID, in.TripID)
	}

	if parcel.Status == target {
		result.NoOp = true
	}
	return result, nil
}

// Apply resolves the scan and commits the implied transition. Lookup-mode
// scans and idempotent repeats return without touching the engine; all
// engine gates apply otherwise — a scan cannot load an uninvoiced parcel.
func (s *ScanResolver) Apply(ctx context.Context, in ports.ScanInput) (*ports.ScanResult, error) {
	result, err := s.Resolve(ctx, in)
	if err != nil {
		return nil, err
	}
	if result.Target == "" || result.NoOp {
		return result, nil
	}

	tr, err := s.engine.Transition(ctx, ports.TransitionInput{
		ParcelID: result.Parcel.ID,
		Target:   result.Target,
		TripID:   in.TripID,
		Actor:    in.Actor,
	})
	if err != nil {
		metrics.ScansTotal.WithLabelValues(string(in.Mode), "rejected").Inc()
		return nil, err
	}

	result.NoOp = tr.NoOp
	result.Applied = !tr.NoOp
	result.Parcel.Status = tr.Status
	metrics.ScansTotal.WithLabelValues(string(in.Mode), "applied").Inc()
	return result, nil
}

func (s *ScanResolver) lookup(ctx context.Context, code string) (*domain.Parcel, error) {
	if s.cache != nil {
		if id, err := s.cache.Get(ctx, code); err != nil {
			s.log.Warn().Err(err).Str("code", code).Msg("barcode cache read failed, falling back to store")
		} else if id != "" {
			parcel, err := s.parcels.FindByID(ctx, id)
			if err == nil {
				return parcel, nil
			}
			// Stale cache entry: the parcel may have been deleted.
			if !errors.Is(err, domain.ErrParcelNotFound) {
				return nil, err
			}
		}
	}

	parcel, err := s.parcels.FindByBarcode(ctx, code)
	if errors.Is(err, domain.ErrParcelNotFound) && !domain.IsTempBarcode(code) {
		// The code may be a bare TRIP-SEQ parcel identifier.
		parcel, err = s.parcels.FindByParcelCode(ctx, code)
	}
	if errors.Is(err, domain.ErrParcelNotFound) {
		// Full barcode with an unknown piece suffix: fall back to its
		// TRIP-SEQ portion.
		if prefix := domain.ParcelCodePrefix(code); prefix != "" {
			parcel, err = s.parcels.FindByParcelCode(ctx, prefix)
		}
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cerr := s.cache.Set(ctx, code, parcel.ID); cerr != nil {
			s.log.Warn().Err(cerr).Str("code", code).Msg("barcode cache write failed")
		}
	}
	return parcel, nil
}

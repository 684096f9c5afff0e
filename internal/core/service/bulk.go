package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wareflow/parcel-engine/internal/pkg/metrics"
	"github.com/wareflow/parcel-engine/internal/core/domain"
	"github.com/wareflow/parcel-engine/internal/core/ports"
)

const defaultBulkWorkers = 8

// BulkCoordinator applies one operation across a parcel selection. Work is
// partitioned per id over a bounded worker pool: no lock is ever held
// across the whole set, so a thousands-strong "all matching filter" batch
// does not stall concurrent scanning on the same trip.
type BulkCoordinator struct {
	parcels ports.ParcelRepository
	engine  *LifecycleEngine
	workers int
	log     zerolog.Logger
}

func NewBulkCoordinator(parcels ports.ParcelRepository, engine *LifecycleEngine, workers int, log zerolog.Logger) *BulkCoordinator {
	if workers <= 0 {
		workers = defaultBulkWorkers
	}
	return &BulkCoordinator{parcels: parcels, engine: engine, workers: workers, log: log}
}

// ApplyBulk expands the selection, runs the operation per id, and returns
// the partitioned outcome. Per-id failures never abort the batch.
func (b *BulkCoordinator) ApplyBulk(ctx context.Context, in ports.BulkInput) (*ports.BulkResult, error) {
	started := time.Now()

	ids, err := b.expandSelection(ctx, in.Selection)
	if err != nil {
		return nil, err
	}
	if err := validateBulkParams(in); err != nil {
		return nil, err
	}

	result := &ports.BulkResult{
		Succeeded: make([]string, 0, len(ids)),
		Failed:    make(map[string]ports.BulkFailure),
	}
	var mu sync.Mutex

	jobs := make(chan string)
	var wg sync.WaitGroup
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				err := b.applyOne(ctx, id, in)
				mu.Lock()
				if err != nil {
					result.Failed[id] = classifyFailure(err)
				} else {
					result.Succeeded = append(result.Succeeded, id)
				}
				mu.Unlock()
			}
		}()
	}

	for _, id := range ids {
		select {
		case <-ctx.Done():
			// Caller abandoned the request; unprocessed ids are simply
			// not reported. Committed ids stay committed.
			close(jobs)
			wg.Wait()
			return result, ctx.Err()
		case jobs <- id:
		}
	}
	close(jobs)
	wg.Wait()

	metrics.BulkItemsTotal.WithLabelValues(string(in.Operation), "succeeded").Add(float64(len(result.Succeeded)))
	metrics.BulkItemsTotal.WithLabelValues(string(in.Operation), "failed").Add(float64(len(result.Failed)))
	metrics.BulkDuration.WithLabelValues(string(in.Operation)).Observe(time.Since(started).Seconds())

	b.log.Info().
		Str("operation", string(in.Operation)).
		Int("total", len(ids)).
		Int("succeeded", len(result.Succeeded)).
		Int("failed", len(result.Failed)).
		Msg("bulk operation finished")

	return result, nil
}

func (b *BulkCoordinator) applyOne(ctx context.Context, id string, in ports.BulkInput) error {
	switch in.Operation {
	case ports.BulkChangeStatus:
		_, err := b.engine.Transition(ctx, ports.TransitionInput{
			ParcelID: id,
			Target:   in.Params.TargetStatus,
			Actor:    in.Params.Actor,
		})
		return err

	case ports.BulkAssignTrip:
		// Unconditional: no invoice or trip-status gate at this layer, and
		// unassigning never reverts the parcel's status.
		n, err := b.parcels.AssignTrip(ctx, []string{id}, in.Params.TripID)
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrParcelNotFound
		}
		return nil

	case ports.BulkMarkCollected:
		_, err := b.engine.Collect(ctx, ports.CollectInput{
			ParcelID: id,
			Note:     in.Params.Note,
			Actor:    in.Params.Actor,
		})
		return err

	case ports.BulkDelete:
		n, err := b.parcels.Delete(ctx, []string{id})
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrParcelNotFound
		}
		return nil

	default:
		return &domain.ValidationError{Field: "operation", Reason: fmt.Sprintf("unknown bulk operation %q", in.Operation)}
	}
}

func (b *BulkCoordinator) expandSelection(ctx context.Context, sel ports.Selection) ([]string, error) {
	switch sel.Mode {
	case ports.SelectionExplicit:
		if len(sel.IDs) == 0 {
			return nil, &domain.ValidationError{Field: "selection", Reason: "explicit selection must name at least one parcel"}
		}
		return dedupeIDs(sel.IDs), nil
	case ports.SelectionFilter:
		ids, err := b.parcels.ResolveIDs(ctx, sel.Filter)
		if err != nil {
			return nil, fmt.Errorf("resolve filter selection: %w", err)
		}
		return ids, nil
	default:
		return nil, &domain.ValidationError{Field: "selection", Reason: fmt.Sprintf("unknown selection mode %q", sel.Mode)}
	}
}

func validateBulkParams(in ports.BulkInput) error {
	switch in.Operation {
	case ports.BulkChangeStatus:
		if !in.Params.TargetStatus.Valid() {
			return &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", in.Params.TargetStatus)}
		}
	case ports.BulkAssignTrip, ports.BulkMarkCollected, ports.BulkDelete:
	default:
		return &domain.ValidationError{Field: "operation", Reason: fmt.Sprintf("unknown bulk operation %q", in.Operation)}
	}
	return nil
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// classifyFailure maps an error to a machine-readable bulk failure code so
// callers can retry just the retryable subset.
func classifyFailure(err error) ports.BulkFailure {
	var gate *domain.GateViolation
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &gate):
		return ports.BulkFailure{Code: "gate:" + string(gate.Kind), Reason: gate.Reason}
	case errors.Is(err, domain.ErrParcelNotFound):
		return ports.BulkFailure{Code: "not_found", Reason: "parcel not found"}
	case errors.Is(err, domain.ErrInvalidTransition):
		return ports.BulkFailure{Code: "invalid_transition", Reason: err.Error()}
	case errors.Is(err, domain.ErrConflict):
		return ports.BulkFailure{Code: "conflict", Reason: "parcel was modified concurrently, retry"}
	case errors.Is(err, domain.ErrWrongTrip):
		return ports.BulkFailure{Code: "wrong_trip", Reason: err.Error()}
	case errors.As(err, &validation):
		return ports.BulkFailure{Code: "validation", Reason: validation.Error()}
	default:
		return ports.BulkFailure{Code: "internal", Reason: err.Error()}
	}
}

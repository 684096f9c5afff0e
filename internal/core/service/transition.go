package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wareflow/parcel-engine/internal/pkg/metrics"
	"github.com/wareflow/parcel-engine/internal/core/domain"
	"github.com/wareflow/parcel-engine/internal/core/ports"
)

// InvoiceGate reports whether a parcel may be loaded. Presence of an
// attached invoice reference is necessary and sufficient at this layer; the
// invoice does not have to be paid. Pure predicate over the parcel's own
// fields, no billing-system call.
func InvoiceGate(p *domain.Parcel) bool {
	return p.InvoiceID != ""
}

// NotificationSink accepts admin-notification events for asynchronous
// delivery. Implemented by the queue dispatcher.
type NotificationSink interface {
	Enqueue(n domain.AdminNotification)
}

// LifecycleEngine is the status transition engine: every change of parcel
// custody status flows through it.
type LifecycleEngine struct {
	parcels   ports.ParcelRepository
	evaluator *CollectionEvaluator
	notify    NotificationSink
	now       ports.Clock
	log       zerolog.Logger
}

func NewLifecycleEngine(
	parcels ports.ParcelRepository,
	evaluator *CollectionEvaluator,
	notify NotificationSink,
	log zerolog.Logger,
) *LifecycleEngine {
	return &LifecycleEngine{
		parcels:   parcels,
		evaluator: evaluator,
		notify:    notify,
		now:       time.Now,
		log:       log,
	}
}

// WithClock overrides the engine's time source. Tests only.
func (e *LifecycleEngine) WithClock(now ports.Clock) *LifecycleEngine {
	e.now = now
	return e
}

// Transition applies one strict (adjacent) transition.
//
// Guard order is fixed: target reachability, then the invoice gate for
// moves into loaded, then the collection verdict for moves into collected.
// A gate failure leaves the parcel untouched. A same-status request is an
// idempotent no-op, not an error.
func (e *LifecycleEngine) Transition(ctx context.Context, in ports.TransitionInput) (*ports.TransitionResult, error) {
	if !in.Target.Valid() {
		return nil, &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", in.Target)}
	}

	parcel, err := e.parcels.FindByID(ctx, in.ParcelID)
	if err != nil {
		return nil, err
	}

	// 1. Idempotent repeat: scanning or bulk-retrying an already-done
	//    parcel must succeed without re-running gates.
	if parcel.Status == in.Target {
		return &ports.TransitionResult{
			ParcelID: parcel.ID,
			From:     parcel.Status,
			Status:   parcel.Status,
			NoOp:     true,
		}, nil
	}

	// 2. Adjacency.
	if !parcel.Status.CanTransitionTo(in.Target) {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, parcel.Status, in.Target)
	}

	// 3. Gates.
	notified := false
	upd := ports.StatusUpdate{
		Status: in.Target,
		Entry: domain.StatusHistoryEntry{
			Status:    in.Target,
			Timestamp: e.now().UTC(),
			Actor:     in.Actor,
			Notes:     in.Note,
		},
	}

	var notification *domain.AdminNotification

	switch in.Target {
	case domain.StatusLoaded:
		if !InvoiceGate(parcel) {
			metrics.GateViolationsTotal.WithLabelValues(string(domain.GateNotInvoiced)).Inc()
			return nil, &domain.GateViolation{
				Kind:   domain.GateNotInvoiced,
				Reason: "parcel has no invoice attached and cannot be loaded",
			}
		}
		ts := upd.Entry.Timestamp
		upd.MarkPiecesLoadedAt = &ts

	case domain.StatusCollected:
		verdict, err := e.evaluator.Evaluate(ctx, parcel)
		if err != nil {
			return nil, err
		}
		if !verdict.CanCollect {
			metrics.GateViolationsTotal.WithLabelValues(string(domain.GateCollectionBlocked)).Inc()
			return nil, &domain.GateViolation{
				Kind:   domain.GateCollectionBlocked,
				Reason: verdict.Message,
			}
		}
		if verdict.RequiresAdminNotification && in.Note == "" {
			metrics.GateViolationsTotal.WithLabelValues(string(domain.GateConfirmationRequired)).Inc()
			return nil, &domain.GateViolation{
				Kind:   domain.GateConfirmationRequired,
				Reason: "a confirmation note is required when collecting a not-fully-paid parcel",
			}
		}
		ts := upd.Entry.Timestamp
		upd.CollectedAt = &ts
		upd.ConfirmationNote = in.Note
		if verdict.RequiresAdminNotification {
			notified = true
			upd.AdminNotified = &notified
			notification = &domain.AdminNotification{
				ParcelID:      parcel.ID,
				ClientID:      parcel.ClientID,
				PaymentStatus: verdict.PaymentStatus,
				Note:          in.Note,
				CollectedAt:   ts,
				Actor:         in.Actor,
			}
			if verdict.Totals != nil {
				notification.Outstanding = verdict.Totals.Outstanding
				notification.Currency = verdict.Totals.Currency
			}
		}

	case domain.StatusStaged:
		// Undoing a load clears the loaded stamps alongside the status.
		if parcel.Status == domain.StatusLoaded {
			upd.ClearPiecesLoaded = true
		}
	}

	// 4. Commit with an optimistic-lock check on the revision read above.
	if err := e.parcels.UpdateStatus(ctx, parcel.ID, parcel.Revision, upd); err != nil {
		return nil, err
	}

	// 5. Fire-and-forget admin notification after the commit, never before.
	if notification != nil {
		e.notify.Enqueue(*notification)
	}

	metrics.TransitionsTotal.WithLabelValues(string(parcel.Status), string(in.Target)).Inc()
	e.log.Info().
		Str("parcel_id", parcel.ID).
		Str("from", string(parcel.Status)).
		Str("to", string(in.Target)).
		Str("actor", in.Actor).
		Msg("parcel transitioned")

	return &ports.TransitionResult{
		ParcelID:      parcel.ID,
		From:          parcel.Status,
		Status:        in.Target,
		AdminNotified: notified,
	}, nil
}

// ForceSetStatus is the audited manual override: it jumps to an arbitrary
// status without adjacency or gate checks. A non-empty justification is
// mandatory and is recorded in the status history.
func (e *LifecycleEngine) ForceSetStatus(ctx context.Context, in ports.ForceSetInput) (*ports.TransitionResult, error) {
	if !in.Target.Valid() {
		return nil, &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", in.Target)}
	}
	if in.Justification == "" {
		return nil, &domain.ValidationError{Field: "justification", Reason: "required for a forced status change"}
	}

	parcel, err := e.parcels.FindByID(ctx, in.ParcelID)
	if err != nil {
		return nil, err
	}
	if parcel.Status == in.Target {
		return &ports.TransitionResult{ParcelID: parcel.ID, From: parcel.Status, Status: parcel.Status, NoOp: true}, nil
	}

	upd := ports.StatusUpdate{
		Status: in.Target,
		Entry: domain.StatusHistoryEntry{
			Status:    in.Target,
			Timestamp: e.now().UTC(),
			Actor:     in.Actor,
			Notes:     "forced: " + in.Justification,
		},
	}
	if err := e.parcels.UpdateStatus(ctx, parcel.ID, parcel.Revision, upd); err != nil {
		return nil, err
	}

	metrics.TransitionsTotal.WithLabelValues(string(parcel.Status), string(in.Target)).Inc()
	e.log.Warn().
		Str("parcel_id", parcel.ID).
		Str("from", string(parcel.Status)).
		Str("to", string(in.Target)).
		Str("actor", in.Actor).
		Str("justification", in.Justification).
		Msg("parcel status forced")

	return &ports.TransitionResult{ParcelID: parcel.ID, From: parcel.Status, Status: in.Target}, nil
}

// CollectionCheck exposes the evaluator's verdict without mutating anything.
func (e *LifecycleEngine) CollectionCheck(ctx context.Context, parcelID string) (*ports.CollectionAssessment, error) {
	parcel, err := e.parcels.FindByID(ctx, parcelID)
	if err != nil {
		return nil, err
	}
	return e.evaluator.Evaluate(ctx, parcel)
}

// Collect commits a collection: a strict transition into collected carrying
// the operator's confirmation note.
func (e *LifecycleEngine) Collect(ctx context.Context, in ports.CollectInput) (*ports.TransitionResult, error) {
	return e.Transition(ctx, ports.TransitionInput{
		ParcelID: in.ParcelID,
		Target:   domain.StatusCollected,
		Note:     in.Note,
		Actor:    in.Actor,
	})
}

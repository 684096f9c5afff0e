package ports

import (
	"context"
	"time"

	"github.com/wareflow/parcel-engine/internal/core/domain"
)

// TransitionInput carries a single strict transition request.
type TransitionInput struct {
	ParcelID string
	Target   domain.ParcelStatus
	// TripID is the operator's selected trip context, when relevant.
	TripID string
	// Note is the confirmation text for transitions into collected.
	Note  string
	Actor string
}

// TransitionResult reports the outcome of a committed (or no-op) transition.
type TransitionResult struct {
	ParcelID string
	From     domain.ParcelStatus
	Status   domain.ParcelStatus
	// NoOp is true when the parcel already carried the target status. An
	// idempotent repeat is a success, not an error.
	NoOp bool
	// AdminNotified is true when the transition emitted an admin
	// notification (collections of not-fully-paid parcels).
	AdminNotified bool
}

// ForceSetInput is the audited manual override: an arbitrary status jump
// that bypasses adjacency and gates. Justification is mandatory.
type ForceSetInput struct {
	ParcelID      string
	Target        domain.ParcelStatus
	Justification string
	Actor         string
}

// CollectionTotals mirrors the attached invoice's amounts.
type CollectionTotals struct {
	Total       float64 `json:"total"`
	Paid        float64 `json:"paid"`
	Outstanding float64 `json:"outstanding"`
	Currency    string  `json:"currency"`
}

// CollectionAssessment is the evaluator's verdict on releasing a parcel.
type CollectionAssessment struct {
	CanCollect                bool                 `json:"can_collect"`
	RequiresConfirmation      bool                 `json:"requires_confirmation"`
	RequiresAdminNotification bool                 `json:"requires_admin_notification"`
	PaymentStatus             domain.PaymentStatus `json:"payment_status"`
	Warning                   string               `json:"warning,omitempty"`
	Message                   string               `json:"message"`
	Totals                    *CollectionTotals    `json:"totals,omitempty"`
}

// CollectInput commits a collection.
type CollectInput struct {
	ParcelID string
	Note     string
	Actor    string
}

// LifecycleService is the status transition engine: the single mutation
// path for parcel custody status.
type LifecycleService interface {
	Transition(ctx context.Context, in TransitionInput) (*TransitionResult, error)
	ForceSetStatus(ctx context.Context, in ForceSetInput) (*TransitionResult, error)
	CollectionCheck(ctx context.Context, parcelID string) (*CollectionAssessment, error)
	Collect(ctx context.Context, in CollectInput) (*TransitionResult, error)
}

// Clock abstracts time for deterministic tests.
type Clock func() time.Time

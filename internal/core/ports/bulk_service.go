package ports

import (
	"context"

	"github.com/wareflow/parcel-engine/internal/core/domain"
)

// SelectionMode distinguishes an explicit id set ("all on this page") from
// a server-resolved filter ("all matching current filter"). The distinction
// is an explicit field, never inferred.
type SelectionMode string

const (
	SelectionExplicit SelectionMode = "explicit"
	SelectionFilter   SelectionMode = "filter"
)

// Selection is the value object naming the parcels a bulk operation acts
// on. Filter selections are expanded server-side before any work starts,
// because the matching set may exceed what any client has paged in.
type Selection struct {
	Mode   SelectionMode
	IDs    []string
	Filter ListParcelsFilter
}

// BulkOperation names the mutation a bulk call applies per id.
type BulkOperation string

const (
	BulkChangeStatus  BulkOperation = "change_status"
	BulkAssignTrip    BulkOperation = "assign_trip"
	BulkMarkCollected BulkOperation = "mark_collected"
	BulkDelete        BulkOperation = "delete"
)

// BulkParams carries the operation-specific parameters.
type BulkParams struct {
	// TargetStatus applies to change_status.
	TargetStatus domain.ParcelStatus
	// TripID applies to assign_trip; empty means unassign.
	TripID string
	// Note applies to mark_collected.
	Note  string
	Actor string
}

// BulkInput is one bulk request.
type BulkInput struct {
	Selection Selection
	Operation BulkOperation
	Params    BulkParams
}

// BulkFailure explains why one id failed. Code is machine-readable
// (not_found, invalid_transition, gate:<kind>, conflict, wrong_trip,
// validation, internal) so callers can retry just the retryable subset.
type BulkFailure struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// BulkResult partitions the input set. Processing order is unspecified;
// the failure map is keyed by id so ordering is immaterial.
type BulkResult struct {
	Succeeded []string               `json:"succeeded"`
	Failed    map[string]BulkFailure `json:"failed"`
}

// BulkService applies one operation across a parcel selection with
// per-item, partial-failure semantics.
type BulkService interface {
	ApplyBulk(ctx context.Context, in BulkInput) (*BulkResult, error)
}

package ports

import (
	"context"
	"time"

	"github.com/wareflow/parcel-engine/internal/core/domain"
)

// DimensionsInput holds parcel size in cm. All-zero means dimensions were
// not measured.
type DimensionsInput struct {
	LengthCm float64
	WidthCm  float64
	HeightCm float64
}

// IntakeInput carries one intake row. Quantity > 1 creates that many
// sibling parcels sharing the row's details, linked by sequence metadata.
type IntakeInput struct {
	ClientID    string
	RecipientID string
	Description string
	WeightKg    float64
	Dimensions  *DimensionsInput
	Destination string
	// TripID, when set, stages the new parcels on that trip immediately.
	TripID         string
	Quantity       int
	Actor          string
	IdempotencyKey string
}

// WeightBreakdown reports the billing-relevant weights for an intake row.
type WeightBreakdown struct {
	ActualKg     float64 `json:"actual_kg"`
	VolumetricKg float64 `json:"volumetric_kg"`
	ChargeableKg float64 `json:"chargeable_kg"`
	// IsVolumetric is true when volumetric weight strictly exceeds actual
	// weight, i.e. billing is driven by size rather than mass.
	IsVolumetric bool `json:"is_volumetric"`
}

// IntakeResult is returned after creating an intake batch.
type IntakeResult struct {
	ParcelIDs []string
	Status    domain.ParcelStatus
	Weight    WeightBreakdown
	CreatedAt time.Time
	// AlreadyExisted is true when the Idempotency-Key matched a previous
	// intake; ParcelIDs then names the previously created siblings.
	AlreadyExisted bool
}

// ListParcelsResult is a page of parcels plus pagination metadata.
type ListParcelsResult struct {
	Items      []*domain.Parcel
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// DuplicateGroup is one set of parcels sharing description, weight and
// client. Advisory only: duplicates never block any operation.
type DuplicateGroup struct {
	Description string   `json:"description"`
	WeightKg    float64  `json:"weight_kg"`
	ClientID    string   `json:"client_id"`
	ParcelIDs   []string `json:"parcel_ids"`
}

// ParcelService covers intake and read/delete operations outside the
// transition engine.
type ParcelService interface {
	Intake(ctx context.Context, in IntakeInput) (*IntakeResult, error)
	Get(ctx context.Context, id string) (*domain.Parcel, error)
	List(ctx context.Context, filter ListParcelsFilter) (*ListParcelsResult, error)
	Delete(ctx context.Context, id string) error
	// AttachInvoice records the billing reference created by the external
	// invoicing system.
	AttachInvoice(ctx context.Context, parcelID, invoiceID string) error
	// Duplicates surfaces advisory duplicate groups over the filtered set.
	Duplicates(ctx context.Context, filter ListParcelsFilter) []DuplicateGroup
}

package service

import (
	"fmt"

	"github.com/wareflow/parcel-engine/internal/core/domain"
	"github.com/wareflow/parcel-engine/internal/core/ports"
)

// DefaultVolumetricDivisor is the industry-standard cm³-per-kg divisor used
// when the tenant has not configured one.
const DefaultVolumetricDivisor = 5000

// WeightCalculator derives billing weights from parcel dimensions. Pure,
// stateless apart from the configured divisor.
type WeightCalculator struct {
	divisor      float64
	batchCeiling int
}

// NewWeightCalculator builds a calculator with the tenant's divisor and
// per-batch intake ceiling. Zero or negative values fall back to defaults.
func NewWeightCalculator(divisor float64, batchCeiling int) *WeightCalculator {
	if divisor <= 0 {
		divisor = DefaultVolumetricDivisor
	}
	if batchCeiling <= 0 {
		batchCeiling = 50
	}
	return &WeightCalculator{divisor: divisor, batchCeiling: batchCeiling}
}

// Volumetric returns (l × w × h) / divisor, or 0 when any dimension is
// missing or zero.
func (w *WeightCalculator) Volumetric(dims *ports.DimensionsInput) float64 {
	if dims == nil || dims.LengthCm <= 0 || dims.WidthCm <= 0 || dims.HeightCm <= 0 {
		return 0
	}
	return dims.LengthCm * dims.WidthCm * dims.HeightCm / w.divisor
}

// Breakdown computes the full billing-weight view for one intake row.
// Chargeable weight is the greater of actual and volumetric; IsVolumetric
// is set only on a strict exceedance, a tie bills by actual weight.
func (w *WeightCalculator) Breakdown(actualKg float64, dims *ports.DimensionsInput) ports.WeightBreakdown {
	vol := w.Volumetric(dims)
	chargeable := actualKg
	if vol > chargeable {
		chargeable = vol
	}
	return ports.WeightBreakdown{
		ActualKg:     actualKg,
		VolumetricKg: vol,
		ChargeableKg: chargeable,
		IsVolumetric: vol > actualKg,
	}
}

// ValidateIntake rejects intake rows with non-positive weight, negative
// dimensions, or a batch count outside [1, ceiling].
func (w *WeightCalculator) ValidateIntake(in ports.IntakeInput) error {
	if in.WeightKg <= 0 {
		return &domain.ValidationError{Field: "weight_kg", Reason: "must be greater than zero"}
	}
	if d := in.Dimensions; d != nil && (d.LengthCm < 0 || d.WidthCm < 0 || d.HeightCm < 0) {
		return &domain.ValidationError{Field: "dimensions", Reason: "must not be negative"}
	}
	if in.Quantity < 1 {
		return &domain.ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}
	if in.Quantity > w.batchCeiling {
		return &domain.ValidationError{
			Field:  "quantity",
			Reason: fmt.Sprintf("must not exceed %d per intake batch", w.batchCeiling),
		}
	}
	return nil
}

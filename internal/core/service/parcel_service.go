package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wareflow/parcel-engine/internal/core/domain"
	"github.com/wareflow/parcel-engine/internal/core/ports"
)

const maxListLimit = 100

// ParcelService covers intake and the read/delete operations outside the
// transition engine.
type ParcelService struct {
	parcels  ports.ParcelRepository
	invoices ports.InvoiceLookup
	weights  *WeightCalculator
	now      ports.Clock
	log      zerolog.Logger
}

func NewParcelService(parcels ports.ParcelRepository, invoices ports.InvoiceLookup, weights *WeightCalculator, log zerolog.Logger) *ParcelService {
	return &ParcelService{parcels: parcels, invoices: invoices, weights: weights, now: time.Now, log: log}
}

// WithClock overrides the service's time source. Tests only.
func (s *ParcelService) WithClock(now ports.Clock) *ParcelService {
	s.now = now
	return s
}

// Intake validates one intake row and creates its parcels. Quantity > 1
// creates sibling parcels linked by sequence metadata. If an idempotency
// key is provided and already seen, the previously created batch is
// returned without side effects.
func (s *ParcelService) Intake(ctx context.Context, in ports.IntakeInput) (*ports.IntakeResult, error) {
	if err := s.weights.ValidateIntake(in); err != nil {
		return nil, err
	}
	if in.ClientID == "" {
		return nil, &domain.ValidationError{Field: "client_id", Reason: "required"}
	}

	if in.IdempotencyKey != "" {
		existing, err := s.parcels.ListByIdempotencyKey(ctx, in.IdempotencyKey)
		if err == nil && len(existing) > 0 {
			ids := make([]string, 0, len(existing))
			for _, p := range existing {
				ids = append(ids, p.ID)
			}
			first := existing[0]
			s.log.Info().
				Str("idempotency_key", in.IdempotencyKey).
				Strs("parcel_ids", ids).
				Msg("idempotent intake replay")
			return &ports.IntakeResult{
				ParcelIDs:      ids,
				Status:         first.Status,
				Weight:         s.weights.Breakdown(first.WeightKg, dimsInput(first.Dimensions)),
				CreatedAt:      first.CreatedAt,
				AlreadyExisted: true,
			}, nil
		}
	}

	now := s.now().UTC()
	status := domain.StatusWarehouse
	if in.TripID != "" {
		status = domain.StatusStaged
	}
	breakdown := s.weights.Breakdown(in.WeightKg, in.Dimensions)

	ids := make([]string, 0, in.Quantity)
	for i := 1; i <= in.Quantity; i++ {
		parcel := &domain.Parcel{
			ID:          newParcelID(),
			ClientID:    in.ClientID,
			RecipientID: in.RecipientID,
			Description: in.Description,
			WeightKg:    in.WeightKg,
			Dimensions:  dimsDomain(in.Dimensions),
			Destination: in.Destination,
			Status:      status,
			TripID:      in.TripID,
			Pieces: []domain.Piece{{
				PieceNumber: 1,
				Barcode:     newTempBarcode(),
				WeightKg:    in.WeightKg,
				Dimensions:  dimsDomain(in.Dimensions),
			}},
			CreatedAt: now,
			StatusHistory: []domain.StatusHistoryEntry{{
				Status:    status,
				Timestamp: now,
				Actor:     in.Actor,
			}},
			Revision: 1,
		}
		if in.Quantity > 1 {
			parcel.ParcelSequence = i
			parcel.TotalInSequence = in.Quantity
		}
		// Every sibling carries the key so a replay recovers the whole
		// batch, not just its first parcel.
		parcel.IdempotencyKey = in.IdempotencyKey
		if err := s.parcels.Create(ctx, parcel); err != nil {
			s.log.Error().Err(err).Str("client_id", in.ClientID).Msg("intake create failed")
			return nil, fmt.Errorf("intake: %w", err)
		}
		ids = append(ids, parcel.ID)
	}

	s.log.Info().
		Str("client_id", in.ClientID).
		Int("quantity", in.Quantity).
		Str("status", string(status)).
		Float64("chargeable_kg", breakdown.ChargeableKg).
		Msg("intake batch created")

	return &ports.IntakeResult{ParcelIDs: ids, Status: status, Weight: breakdown, CreatedAt: now}, nil
}

func (s *ParcelService) Get(ctx context.Context, id string) (*domain.Parcel, error) {
	return s.parcels.FindByID(ctx, id)
}

// List returns a page of parcels. The limit is capped; page defaults to 1.
func (s *ParcelService) List(ctx context.Context, filter ports.ListParcelsFilter) (*ports.ListParcelsResult, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	items, total, err := s.parcels.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	totalPages := int(total) / filter.Limit
	if int(total)%filter.Limit != 0 {
		totalPages++
	}
	return &ports.ListParcelsResult{
		Items:      items,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
	}, nil
}

// Delete hard-deletes one parcel, pieces included. Never a side effect of
// any transition.
func (s *ParcelService) Delete(ctx context.Context, id string) error {
	n, err := s.parcels.Delete(ctx, []string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrParcelNotFound
	}
	s.log.Info().Str("parcel_id", id).Msg("parcel deleted")
	return nil
}

// AttachInvoice records the billing reference and caches its payment
// classification on the parcel.
func (s *ParcelService) AttachInvoice(ctx context.Context, parcelID, invoiceID string) error {
	if invoiceID == "" {
		return &domain.ValidationError{Field: "invoice_id", Reason: "required"}
	}
	if _, err := s.parcels.FindByID(ctx, parcelID); err != nil {
		return err
	}

	ps := domain.PaymentUnpaid
	if snap, err := s.invoices.Snapshot(ctx, invoiceID); err != nil {
		s.log.Warn().Err(err).Str("invoice_id", invoiceID).Msg("invoice snapshot unavailable, caching unpaid")
	} else {
		ps = domain.ClassifyPayment(snap)
	}
	return s.parcels.AttachInvoice(ctx, parcelID, invoiceID, ps)
}

// Duplicates surfaces advisory duplicate groups over the filtered set.
// Listing failures degrade to an empty result, never a terminal error.
func (s *ParcelService) Duplicates(ctx context.Context, filter ports.ListParcelsFilter) []ports.DuplicateGroup {
	ids, err := s.parcels.ResolveIDs(ctx, filter)
	if err != nil {
		s.log.Warn().Err(err).Msg("duplicate scan: listing failed")
		return nil
	}
	if len(ids) < 2 {
		return nil
	}
	// ResolveIDs proves the filter is servable; fetch the full documents
	// unpaged for grouping.
	filter.Page = 1
	filter.Limit = len(ids)
	parcels, _, err := s.parcels.List(ctx, filter)
	if err != nil {
		s.log.Warn().Err(err).Msg("duplicate scan: fetch failed")
		return nil
	}
	return FindDuplicates(parcels)
}

// newParcelID returns a random identifier in the format PRC-XXXXXXXXXXXX.
func newParcelID() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("PRC-%012X", time.Now().UnixNano())
	}
	return fmt.Sprintf("PRC-%012X", b)
}

// newTempBarcode returns a temporary barcode in the format TEMP-XXXXXXXX,
// replaced by a TRIP-SEQ-PIECE barcode once labels are printed for a trip.
func newTempBarcode() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%s%08X", domain.TempBarcodePrefix, time.Now().UnixNano()&0xFFFFFFFF)
	}
	return fmt.Sprintf("%s%08X", domain.TempBarcodePrefix, b)
}

func dimsDomain(d *ports.DimensionsInput) *domain.Dimensions {
	if d == nil {
		return nil
	}
	return &domain.Dimensions{LengthCm: d.LengthCm, WidthCm: d.WidthCm, HeightCm: d.HeightCm}
}

func dimsInput(d *domain.Dimensions) *ports.DimensionsInput {
	if d == nil {
		return nil
	}
	return &ports.DimensionsInput{LengthCm: d.LengthCm, WidthCm: d.WidthCm, HeightCm: d.HeightCm}
}

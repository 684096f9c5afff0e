package domain

import (
	"errors"
	"fmt"
	"time"
)

// ParcelStatus represents the custody state of a parcel.
type ParcelStatus string

const (
	StatusWarehouse ParcelStatus = "warehouse"
	StatusStaged    ParcelStatus = "staged"
	StatusLoaded    ParcelStatus = "loaded"
	StatusInTransit ParcelStatus = "in_transit"
	StatusArrived   ParcelStatus = "arrived"
	StatusCollected ParcelStatus = "collected"
)

// custodyOrder is the canonical forward sequence of custody states.
var custodyOrder = []ParcelStatus{
	StatusWarehouse,
	StatusStaged,
	StatusLoaded,
	StatusInTransit,
	StatusArrived,
	StatusCollected,
}

// validTransitions defines the allowed state machine edges. Adjacent states
// are reachable in both directions (operators can undo a move), except that
// collected is one-directional: nothing leaves it, and nothing skips into it.
var validTransitions = map[ParcelStatus][]ParcelStatus{
	StatusWarehouse: {StatusStaged},
	StatusStaged:    {StatusWarehouse, StatusLoaded},
	StatusLoaded:    {StatusStaged, StatusInTransit},
	StatusInTransit: {StatusLoaded, StatusArrived},
	StatusArrived:   {StatusInTransit, StatusCollected},
	StatusCollected: {},
}

var ErrParcelNotFound = errors.New("parcel not found")
var ErrTripNotFound = errors.New("trip not found")
var ErrInvalidTransition = errors.New("invalid status transition")
var ErrWrongTrip = errors.New("parcel not assigned to the selected trip")
var ErrConflict = errors.New("parcel was modified concurrently")

// Valid reports whether s is a known custody status.
func (s ParcelStatus) Valid() bool {
	for _, known := range custodyOrder {
		if s == known {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether a strict (adjacent) transition from the
// current status to next is permitted.
func (s ParcelStatus) CanTransitionTo(next ParcelStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s ParcelStatus) Terminal() bool {
	return len(validTransitions[s]) == 0 && s.Valid()
}

// GateKind identifies which precondition blocked a transition.
type GateKind string

const (
	GateNotInvoiced          GateKind = "not_invoiced"
	GateCollectionBlocked    GateKind = "collection_blocked"
	GateConfirmationRequired GateKind = "confirmation_required"
)

// GateViolation is returned when a transition precondition fails. The parcel
// is left untouched.
type GateViolation struct {
	Kind   GateKind
	Reason string
}

func (g *GateViolation) Error() string {
	return fmt.Sprintf("gate violation (%s): %s", g.Kind, g.Reason)
}

// ValidationError reports rejected intake or request data.
type ValidationError struct {
	Field  string
	Reason string
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", v.Field, v.Reason)
}

// Dimensions represents the physical size of a parcel or piece in cm.
type Dimensions struct {
	LengthCm float64 `json:"length_cm" bson:"length_cm"`
	WidthCm  float64 `json:"width_cm" bson:"width_cm"`
	HeightCm float64 `json:"height_cm" bson:"height_cm"`
}

// Piece is one physical item within a parcel, individually barcoded.
type Piece struct {
	PieceNumber int         `json:"piece_number" bson:"piece_number"`
	Barcode     string      `json:"barcode" bson:"barcode"`
	WeightKg    float64     `json:"weight_kg" bson:"weight_kg"`
	Dimensions  *Dimensions `json:"dimensions,omitempty" bson:"dimensions,omitempty"`
	LoadedAt    *time.Time  `json:"loaded_at,omitempty" bson:"loaded_at,omitempty"`
}

// StatusHistoryEntry records a single committed transition on a parcel.
type StatusHistoryEntry struct {
	Status    ParcelStatus `json:"status" bson:"status"`
	Timestamp time.Time    `json:"timestamp" bson:"timestamp"`
	Actor     string       `json:"actor,omitempty" bson:"actor,omitempty"`
	Notes     string       `json:"notes,omitempty" bson:"notes,omitempty"`
}

// Parcel is the core aggregate root. Pieces are embedded: a parcel and its
// pieces are always read and written as one document.
type Parcel struct {
	ID          string       `json:"id" bson:"_id,omitempty"`
	ClientID    string       `json:"client_id" bson:"client_id"`
	RecipientID string       `json:"recipient_id,omitempty" bson:"recipient_id,omitempty"`
	Description string       `json:"description" bson:"description"`
	WeightKg    float64      `json:"weight_kg" bson:"weight_kg"`
	Dimensions  *Dimensions  `json:"dimensions,omitempty" bson:"dimensions,omitempty"`
	Destination string       `json:"destination" bson:"destination"`
	Status      ParcelStatus `json:"status" bson:"status"`

	TripID               string        `json:"trip_id,omitempty" bson:"trip_id,omitempty"`
	InvoiceID            string        `json:"invoice_id,omitempty" bson:"invoice_id,omitempty"`
	InvoicePaymentStatus PaymentStatus `json:"invoice_payment_status,omitempty" bson:"invoice_payment_status,omitempty"`

	// ParcelSequence and TotalInSequence are both set for batch-created
	// siblings and both zero otherwise.
	ParcelSequence  int `json:"parcel_sequence,omitempty" bson:"parcel_sequence,omitempty"`
	TotalInSequence int `json:"total_in_sequence,omitempty" bson:"total_in_sequence,omitempty"`

	Pieces []Piece `json:"pieces" bson:"pieces"`

	CollectedAt      *time.Time `json:"collected_at,omitempty" bson:"collected_at,omitempty"`
	ConfirmationNote string     `json:"confirmation_note,omitempty" bson:"confirmation_note,omitempty"`
	AdminNotified    bool       `json:"admin_notified" bson:"admin_notified"`

	IdempotencyKey string               `json:"idempotency_key,omitempty" bson:"idempotency_key,omitempty"`
	CreatedAt      time.Time            `json:"created_at" bson:"created_at"`
	StatusHistory  []StatusHistoryEntry `json:"status_history" bson:"status_history"`

	// Revision guards against lost updates: every mutation is a
	// compare-and-swap on this counter.
	Revision int64 `json:"revision" bson:"revision"`
}

// PieceByBarcode returns the piece carrying the given barcode, or nil.
func (p *Parcel) PieceByBarcode(code string) *Piece {
	for i := range p.Pieces {
		if p.Pieces[i].Barcode == code {
			return &p.Pieces[i]
		}
	}
	return nil
}

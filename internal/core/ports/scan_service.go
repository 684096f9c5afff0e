package ports

import (
	"context"

	"github.com/wareflow/parcel-engine/internal/core/domain"
)

// ScanMode is the operating mode the scanner terminal is in. Each mode
// implies at most one target status.
type ScanMode string

const (
	ScanModeLoading   ScanMode = "loading"
	ScanModeUnloading ScanMode = "unloading"
	ScanModeLookup    ScanMode = "lookup"
)

// ImpliedTarget returns the transition a scan in this mode requests, and
// whether the mode requests one at all (lookup does not).
func (m ScanMode) ImpliedTarget() (domain.ParcelStatus, bool) {
	switch m {
	case ScanModeLoading:
		return domain.StatusLoaded, true
	case ScanModeUnloading:
		return domain.StatusArrived, true
	default:
		return "", false
	}
}

// ScanInput carries one barcode scan.
type ScanInput struct {
	Code string
	Mode ScanMode
	// TripID is the operator's selected trip; required in loading and
	// unloading modes, ignored in lookup mode.
	TripID string
	Actor  string
}

// ScanResult is the resolved scan, before or after the implied transition.
type ScanResult struct {
	Parcel *domain.Parcel `json:"parcel"`
	Piece  *domain.Piece  `json:"piece"`
	// ClientID duplicates Parcel.ClientID for terminal display.
	ClientID string `json:"client_id"`
	// Target is the status implied by the scan mode, empty for lookup.
	Target domain.ParcelStatus `json:"target,omitempty"`
	// NoOp is true when the parcel already carried the implied status.
	NoOp bool `json:"no_op"`
	// Applied is true when the implied transition was committed.
	Applied bool `json:"applied"`
}

// ScanService resolves barcodes into parcels and drives the single legal
// transition implied by the terminal's mode.
type ScanService interface {
	// Resolve looks up the scan without mutating anything.
	Resolve(ctx context.Context, in ScanInput) (*ScanResult, error)
	// Apply resolves the scan and commits the implied transition.
	Apply(ctx context.Context, in ScanInput) (*ScanResult, error)
}

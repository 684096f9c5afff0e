package service

import (
	"context"
	"errors"
	"testing"

	"github.com/wareflow/parcel-engine/internal/core/domain"
	"github.com/wareflow/parcel-engine/internal/core/ports"
)

func newTestScanner(repo *stubParcelRepo, cache *stubBarcodeCache) *ScanResolver {
	engine := newTestEngine(repo, nil, nil)
	var c BarcodeCache
	if cache != nil {
		c = cache
	}
	return NewScanResolver(repo, c, engine, discardLogger)
}

func TestScanResolver_Resolve_ExactBarcode(t *testing.T) {
	p := testParcel("p1", domain.StatusStaged)
	p.TripID = "T100"
	repo := newStubParcelRepo(p)
	scanner := newTestScanner(repo, nil)

	res, err := scanner.Resolve(context.Background(), ports.ScanInput{
		Code: "T100-3-1", Mode: ports.ScanModeLookup,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Parcel.ID != "p1" {
		t.Errorf("parcel: got %s, want p1", res.Parcel.ID)
	}
	if res.Piece == nil || res.Piece.Barcode != "T100-3-1" {
		t.Errorf("piece not resolved: %+v", res.Piece)
	}
	if res.ClientID != "client_1" {
		t.Errorf("client: got %s, want client_1", res.ClientID)
	}
	if res.Target != "" {
		t.Errorf("lookup mode must not imply a target, got %s", res.Target)
	}
}

func TestScanResolver_Resolve_NormalizesCode(t *testing.T) {
	p := testParcel("p1", domain.StatusStaged)
	p.TripID = "T100"
	repo := newStubParcelRepo(p)
	scanner := newTestScanner(repo, nil)

	res, err := scanner.Resolve(context.Background(), ports.ScanInput{
		Code: "  t100-3-1 ", Mode: ports.ScanModeLookup,
	})
	if err != nil {
		t.Fatalf("lowercase scan with whitespace must resolve: %v", err)
	}
	if res.Parcel.ID != "p1" {
		t.Errorf("parcel: got %s, want p1", res.Parcel.ID)
	}
}

func TestScanResolver_Resolve_ParcelPrefixFallback(t *testing.T) {
	p := testParcel("p1", domain.StatusStaged)
	p.TripID = "T100"
	repo := newStubParcelRepo(p)
	scanner := newTestScanner(repo, nil)

	// A full barcode with an unknown piece suffix still identifies the
	// parcel through its TRIP-SEQ portion.
	res, err := scanner.Resolve(context.Background(), ports.ScanInput{
		Code: "T100-3-9", Mode: ports.ScanModeLookup,
	})
	if err != nil {
		t.Fatalf("prefix fallback failed: %v", err)
	}
	if res.Parcel.ID != "p1" {
		t.Errorf("parcel: got %s, want p1", res.Parcel.ID)
	}
	if res.Piece != nil {
		t.Errorf("no exact piece match expected, got %+v", res.Piece)
	}
}

func TestScanResolver_Resolve_BareParcelCode(t *testing.T) {
	p := testParcel("p1", domain.StatusStaged)
	p.TripID = "T100"
	repo := newStubParcelRepo(p)
	scanner := newTestScanner(repo, nil)

	// A scan of the TRIP-SEQ parcel identifier itself resolves without
	// naming a piece.
	res, err := scanner.Resolve(context.Background(), ports.ScanInput{
		Code: "T100-3", Mode: ports.ScanModeLookup,
	})
	if err != nil {
		t.Fatalf("bare parcel code must resolve: %v", err)
	}
	if res.Parcel.ID != "p1" {
		t.Errorf("parcel: got %s, want p1", res.Parcel.ID)
	}
	if res.Piece != nil {
		t.Errorf("no exact piece match expected, got %+v", res.Piece)
	}
}

func TestScanResolver_Resolve_UnknownParcelCodeOnBusyTrip(t *testing.T) {
	other := testParcel("p-other", domain.StatusStaged)
	other.TripID = "T100"
	other.Pieces[0].Barcode = "T100-7-1"
	repo := newStubParcelRepo(other)
	scanner := newTestScanner(repo, nil)

	// An unknown TRIP-SEQ code must never resolve to a different parcel
	// that happens to share the trip.
	_, err := scanner.Resolve(context.Background(), ports.ScanInput{
		Code: "T100-3", Mode: ports.ScanModeLookup,
	})
	if !errors.Is(err, domain.ErrParcelNotFound) {
		t.Fatalf("expected ErrParcelNotFound, got %v", err)
	}
}

func TestScanResolver_Resolve_TempBarcode(t *testing.T) {
	p := testParcel("p1", domain.StatusWarehouse)
	p.Pieces[0].Barcode = "TEMP-0A1B2C3D"
	repo := newStubParcelRepo(p)
	scanner := newTestScanner(repo, nil)

	res, err := scanner.Resolve(context.Background(), ports.ScanInput{
		Code: "TEMP-0A1B2C3D", Mode: ports.ScanModeLookup,
	})
	if err != nil {
		t.Fatalf("temp barcode must resolve exactly: %v", err)
	}
	if res.Parcel.ID != "p1" {
		t.Errorf("parcel: got %s, want p1", res.Parcel.ID)
	}
}

func TestScanResolver_Resolve_Unknown(t *testing.T) {
	repo := newStubParcelRepo()
	scanner := newTestScanner(repo, nil)

	_, err := scanner.Resolve(context.Background(), ports.ScanInput{Code: "NOPE-1-1", Mode: ports.ScanModeLookup})
	if !errors.Is(err, domain.ErrParcelNotFound) {
		t.Fatalf("expected ErrParcelNotFound, got %v", err)
	}
}

func TestScanResolver_Resolve_EmptyCode(t *testing.T) {
	scanner := newTestScanner(newStubParcelRepo(), nil)

	_, err := scanner.Resolve(context.Background(), ports.ScanInput{Code: "   ", Mode: ports.ScanModeLookup})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Trip guard
// ---------------------------------------------------------------------------

func TestScanResolver_WrongTrip_NoMutation(t *testing.T) {
	p := testParcel("p1", domain.StatusStaged)
	p.TripID = "T200"
	p.InvoiceID = "inv-1"
	repo := newStubParcelRepo(p)
	scanner := newTestScanner(repo, nil)

	_, err := scanner.Apply(context.Background(), ports.ScanInput{
		Code: "T100-3-1", Mode: ports.ScanModeLoading, TripID: "T100",
	})
	if !errors.Is(err, domain.ErrWrongTrip) {
		t.Fatalf("expected ErrWrongTrip, got %v", err)
	}
	if got := repo.parcels["p1"].Status; got != domain.StatusStaged {
		t.Errorf("wrong-trip scan must not mutate, status is %s", got)
	}
}

func TestScanResolver_UnassignedParcel_IsWrongTrip(t *testing.T) {
	p := testParcel("p1", domain.StatusStaged)
	repo := newStubParcelRepo(p)
	scanner := newTestScanner(repo, nil)

	_, err := scanner.Apply(context.Background(), ports.ScanInput{
		Code: "T100-3-1", Mode: ports.ScanModeLoading, TripID: "T100",
	})
	if !errors.Is(err, domain.ErrWrongTrip) {
		t.Fatalf("expected ErrWrongTrip for an unassigned parcel, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Apply
// ---------------------------------------------------------------------------

func TestScanResolver_Apply_LoadingScan(t *testing.T) {
	p := testParcel("p1", domain.StatusStaged)
	p.TripID = "T100"
	p.InvoiceID = "inv-1"
	repo := newStubParcelRepo(p)
	scanner := newTestScanner(repo, nil)

	res, err := scanner.Apply(context.Background(), ports.ScanInput{
		Code: "T100-3-1", Mode: ports.ScanModeLoading, TripID: "T100", Actor: "ana",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Applied || res.NoOp {
		t.Errorf("expected Applied=true NoOp=false, got %+v", res)
	}
	if got := repo.parcels["p1"].Status; got != domain.StatusLoaded {
		t.Errorf("status: got %s, want loaded", got)
	}
}

func TestScanResolver_Apply_RepeatScanIsNoOp(t *testing.T) {
	p := testParcel("p1", domain.StatusLoaded)
	p.TripID = "T100"
	p.InvoiceID = "inv-1"
	repo := newStubParcelRepo(p)
	scanner := newTestScanner(repo, nil)

	res, err := scanner.Apply(context.Background(), ports.ScanInput{
		Code: "T100-3-1", Mode: ports.ScanModeLoading, TripID: "T100",
	})
	if err != nil {
		t.Fatalf("repeat scan must succeed: %v", err)
	}
	if !res.NoOp || res.Applied {
		t.Errorf("expected NoOp=true Applied=false, got %+v", res)
	}
	if repo.updateCalls != 0 {
		t.Error("repeat scan must not write")
	}
}

func TestScanResolver_Apply_GateStillApplies(t *testing.T) {
	p := testParcel("p1", domain.StatusStaged)
	p.TripID = "T100"
	repo := newStubParcelRepo(p)
	scanner := newTestScanner(repo, nil)

	// No invoice: the scan resolves but the loading gate blocks the commit.
	_, err := scanner.Apply(context.Background(), ports.ScanInput{
		Code: "T100-3-1", Mode: ports.ScanModeLoading, TripID: "T100",
	})
	var gate *domain.GateViolation
	if !errors.As(err, &gate) {
		t.Fatalf("expected GateViolation, got %v", err)
	}
	if gate.Kind != domain.GateNotInvoiced {
		t.Errorf("gate kind: got %s, want not_invoiced", gate.Kind)
	}
}

func TestScanResolver_Apply_UnloadingScan(t *testing.T) {
	p := testParcel("p1", domain.StatusInTransit)
	p.TripID = "T100"
	p.InvoiceID = "inv-1"
	repo := newStubParcelRepo(p)
	scanner := newTestScanner(repo, nil)

	res, err := scanner.Apply(context.Background(), ports.ScanInput{
		Code: "T100-3-1", Mode: ports.ScanModeUnloading, TripID: "T100",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Parcel.Status != domain.StatusArrived {
		t.Errorf("status: got %s, want arrived", res.Parcel.Status)
	}
}

// ---------------------------------------------------------------------------
// Cache behaviour
// ---------------------------------------------------------------------------

func TestScanResolver_CachePopulatedOnMiss(t *testing.T) {
	p := testParcel("p1", domain.StatusStaged)
	p.TripID = "T100"
	repo := newStubParcelRepo(p)
	cache := newStubBarcodeCache()
	scanner := newTestScanner(repo, cache)

	if _, err := scanner.Resolve(context.Background(), ports.ScanInput{
		Code: "T100-3-1", Mode: ports.ScanModeLookup,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.entries["T100-3-1"] != "p1" {
		t.Errorf("cache not populated: %v", cache.entries)
	}
}

func TestScanResolver_CacheHitSkipsBarcodeLookup(t *testing.T) {
	p := testParcel("p1", domain.StatusStaged)
	p.TripID = "T100"
	repo := newStubParcelRepo(p)
	cache := newStubBarcodeCache()
	cache.entries["T100-3-1"] = "p1"
	scanner := newTestScanner(repo, cache)

	res, err := scanner.Resolve(context.Background(), ports.ScanInput{
		Code: "T100-3-1", Mode: ports.ScanModeLookup,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Parcel.ID != "p1" {
		t.Errorf("parcel: got %s, want p1", res.Parcel.ID)
	}
	if cache.hits != 1 {
		t.Errorf("expected 1 cache hit, got %d", cache.hits)
	}
}

func TestScanResolver_CacheFailureFallsThrough(t *testing.T) {
	p := testParcel("p1", domain.StatusStaged)
	p.TripID = "T100"
	repo := newStubParcelRepo(p)
	cache := newStubBarcodeCache()
	cache.getErr = errors.New("redis down")
	scanner := newTestScanner(repo, cache)

	res, err := scanner.Resolve(context.Background(), ports.ScanInput{
		Code: "T100-3-1", Mode: ports.ScanModeLookup,
	})
	if err != nil {
		t.Fatalf("cache failure must not fail the scan: %v", err)
	}
	if res.Parcel.ID != "p1" {
		t.Errorf("parcel: got %s, want p1", res.Parcel.ID)
	}
}

func TestScanResolver_StaleCacheEntry(t *testing.T) {
	p := testParcel("p1", domain.StatusStaged)
	p.TripID = "T100"
	repo := newStubParcelRepo(p)
	cache := newStubBarcodeCache()
	cache.entries["T100-3-1"] = "deleted-parcel"
	scanner := newTestScanner(repo, cache)

	res, err := scanner.Resolve(context.Background(), ports.ScanInput{
		Code: "T100-3-1", Mode: ports.ScanModeLookup,
	})
	if err != nil {
		t.Fatalf("stale cache entry must fall back to the store: %v", err)
	}
	if res.Parcel.ID != "p1" {
		t.Errorf("parcel: got %s, want p1", res.Parcel.ID)
	}
}

package service

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/wareflow/parcel-engine/internal/core/domain"
	"github.com/wareflow/parcel-engine/internal/core/ports"
)

func newTestBulk(repo *stubParcelRepo) *BulkCoordinator {
	return NewBulkCoordinator(repo, newTestEngine(repo, nil, nil), 4, discardLogger)
}

func explicitSelection(ids ...string) ports.Selection {
	return ports.Selection{Mode: ports.SelectionExplicit, IDs: ids}
}

func TestBulkCoordinator_ChangeStatus_AllSucceed(t *testing.T) {
	repo := newStubParcelRepo(
		testParcel("p1", domain.StatusWarehouse),
		testParcel("p2", domain.StatusWarehouse),
		testParcel("p3", domain.StatusWarehouse),
	)
	bulk := newTestBulk(repo)

	res, err := bulk.ApplyBulk(context.Background(), ports.BulkInput{
		Selection: explicitSelection("p1", "p2", "p3"),
		Operation: ports.BulkChangeStatus,
		Params:    ports.BulkParams{TargetStatus: domain.StatusStaged},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Succeeded) != 3 || len(res.Failed) != 0 {
		t.Fatalf("expected 3 succeeded 0 failed, got %d/%d", len(res.Succeeded), len(res.Failed))
	}
	for _, id := range []string{"p1", "p2", "p3"} {
		if got := repo.parcels[id].Status; got != domain.StatusStaged {
			t.Errorf("%s: got %s, want staged", id, got)
		}
	}
}

func TestBulkCoordinator_ChangeStatus_PartialFailure(t *testing.T) {
	invoiced := testParcel("p2", domain.StatusStaged)
	invoiced.InvoiceID = "inv-1"
	repo := newStubParcelRepo(
		testParcel("p1", domain.StatusStaged), // no invoice, gate blocks
		invoiced,
		testParcel("p3", domain.StatusWarehouse), // not adjacent to loaded
	)
	bulk := newTestBulk(repo)

	res, err := bulk.ApplyBulk(context.Background(), ports.BulkInput{
		Selection: explicitSelection("p1", "p2", "p3", "ghost"),
		Operation: ports.BulkChangeStatus,
		Params:    ports.BulkParams{TargetStatus: domain.StatusLoaded},
	})
	if err != nil {
		t.Fatalf("per-item failures must not fail the batch: %v", err)
	}

	if len(res.Succeeded) != 1 || res.Succeeded[0] != "p2" {
		t.Errorf("succeeded: got %v, want [p2]", res.Succeeded)
	}
	if len(res.Failed) != 3 {
		t.Fatalf("expected 3 failures, got %d: %v", len(res.Failed), res.Failed)
	}
	if res.Failed["p1"].Code != "gate:not_invoiced" {
		t.Errorf("p1 code: got %q, want gate:not_invoiced", res.Failed["p1"].Code)
	}
	if res.Failed["p3"].Code != "invalid_transition" {
		t.Errorf("p3 code: got %q, want invalid_transition", res.Failed["p3"].Code)
	}
	if res.Failed["ghost"].Code != "not_found" {
		t.Errorf("ghost code: got %q, want not_found", res.Failed["ghost"].Code)
	}
}

func TestBulkCoordinator_ChangeStatus_Idempotent(t *testing.T) {
	p1 := testParcel("p1", domain.StatusStaged)
	p1.InvoiceID = "inv-1"
	p2 := testParcel("p2", domain.StatusStaged)
	p2.InvoiceID = "inv-2"
	repo := newStubParcelRepo(p1, p2)
	bulk := newTestBulk(repo)

	in := ports.BulkInput{
		Selection: explicitSelection("p1", "p2"),
		Operation: ports.BulkChangeStatus,
		Params:    ports.BulkParams{TargetStatus: domain.StatusLoaded},
	}
	first, err := bulk.ApplyBulk(context.Background(), in)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := bulk.ApplyBulk(context.Background(), in)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(first.Succeeded) != 2 || len(second.Succeeded) != 2 {
		t.Errorf("both runs must fully succeed: %d then %d", len(first.Succeeded), len(second.Succeeded))
	}
	if len(second.Failed) != 0 {
		t.Errorf("rerun must not fail already-loaded parcels: %v", second.Failed)
	}
}

func TestBulkCoordinator_DeduplicatesExplicitIDs(t *testing.T) {
	repo := newStubParcelRepo(testParcel("p1", domain.StatusWarehouse))
	bulk := newTestBulk(repo)

	res, err := bulk.ApplyBulk(context.Background(), ports.BulkInput{
		Selection: explicitSelection("p1", "p1", "p1"),
		Operation: ports.BulkChangeStatus,
		Params:    ports.BulkParams{TargetStatus: domain.StatusStaged},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Succeeded) != 1 {
		t.Errorf("duplicate ids must collapse, got %v", res.Succeeded)
	}
}

func TestBulkCoordinator_FilterSelection(t *testing.T) {
	p1 := testParcel("p1", domain.StatusWarehouse)
	p2 := testParcel("p2", domain.StatusWarehouse)
	p3 := testParcel("p3", domain.StatusArrived)
	repo := newStubParcelRepo(p1, p2, p3)
	bulk := newTestBulk(repo)

	res, err := bulk.ApplyBulk(context.Background(), ports.BulkInput{
		Selection: ports.Selection{
			Mode:   ports.SelectionFilter,
			Filter: ports.ListParcelsFilter{Status: string(domain.StatusWarehouse)},
		},
		Operation: ports.BulkChangeStatus,
		Params:    ports.BulkParams{TargetStatus: domain.StatusStaged},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sort.Strings(res.Succeeded)
	if len(res.Succeeded) != 2 || res.Succeeded[0] != "p1" || res.Succeeded[1] != "p2" {
		t.Errorf("succeeded: got %v, want [p1 p2]", res.Succeeded)
	}
	if got := repo.parcels["p3"].Status; got != domain.StatusArrived {
		t.Errorf("p3 outside the filter must be untouched, got %s", got)
	}
}

func TestBulkCoordinator_EmptyExplicitSelection(t *testing.T) {
	bulk := newTestBulk(newStubParcelRepo())

	_, err := bulk.ApplyBulk(context.Background(), ports.BulkInput{
		Selection: ports.Selection{Mode: ports.SelectionExplicit},
		Operation: ports.BulkChangeStatus,
		Params:    ports.BulkParams{TargetStatus: domain.StatusStaged},
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestBulkCoordinator_UnknownSelectionMode(t *testing.T) {
	bulk := newTestBulk(newStubParcelRepo())

	_, err := bulk.ApplyBulk(context.Background(), ports.BulkInput{
		Selection: ports.Selection{Mode: "clairvoyant"},
		Operation: ports.BulkChangeStatus,
		Params:    ports.BulkParams{TargetStatus: domain.StatusStaged},
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestBulkCoordinator_AssignTrip_RoundTrip(t *testing.T) {
	p1 := testParcel("p1", domain.StatusLoaded)
	p1.TripID = "T100"
	repo := newStubParcelRepo(p1)
	bulk := newTestBulk(repo)

	// Unassign.
	res, err := bulk.ApplyBulk(context.Background(), ports.BulkInput{
		Selection: explicitSelection("p1"),
		Operation: ports.BulkAssignTrip,
		Params:    ports.BulkParams{TripID: ""},
	})
	if err != nil || len(res.Succeeded) != 1 {
		t.Fatalf("unassign failed: %v %v", err, res)
	}
	if repo.parcels["p1"].TripID != "" {
		t.Errorf("trip not cleared: %q", repo.parcels["p1"].TripID)
	}
	// Unassigning never reverts the parcel's status.
	if got := repo.parcels["p1"].Status; got != domain.StatusLoaded {
		t.Errorf("status must survive unassignment, got %s", got)
	}

	// Reassign.
	res, err = bulk.ApplyBulk(context.Background(), ports.BulkInput{
		Selection: explicitSelection("p1"),
		Operation: ports.BulkAssignTrip,
		Params:    ports.BulkParams{TripID: "T200"},
	})
	if err != nil || len(res.Succeeded) != 1 {
		t.Fatalf("reassign failed: %v %v", err, res)
	}
	if repo.parcels["p1"].TripID != "T200" {
		t.Errorf("trip: got %q, want T200", repo.parcels["p1"].TripID)
	}
}

func TestBulkCoordinator_MarkCollected(t *testing.T) {
	repo := newStubParcelRepo(
		testParcel("p1", domain.StatusArrived),
		testParcel("p2", domain.StatusLoaded), // not adjacent to collected
	)
	bulk := newTestBulk(repo)

	res, err := bulk.ApplyBulk(context.Background(), ports.BulkInput{
		Selection: explicitSelection("p1", "p2"),
		Operation: ports.BulkMarkCollected,
		Params:    ports.BulkParams{Note: "front desk pickup"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Succeeded) != 1 || res.Succeeded[0] != "p1" {
		t.Errorf("succeeded: got %v, want [p1]", res.Succeeded)
	}
	if res.Failed["p2"].Code != "invalid_transition" {
		t.Errorf("p2 code: got %q, want invalid_transition", res.Failed["p2"].Code)
	}
}

func TestBulkCoordinator_Delete(t *testing.T) {
	repo := newStubParcelRepo(
		testParcel("p1", domain.StatusWarehouse),
		testParcel("p2", domain.StatusWarehouse),
	)
	bulk := newTestBulk(repo)

	res, err := bulk.ApplyBulk(context.Background(), ports.BulkInput{
		Selection: explicitSelection("p1", "p2", "ghost"),
		Operation: ports.BulkDelete,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Succeeded) != 2 {
		t.Errorf("succeeded: got %v", res.Succeeded)
	}
	if res.Failed["ghost"].Code != "not_found" {
		t.Errorf("ghost code: got %q, want not_found", res.Failed["ghost"].Code)
	}
	if len(repo.parcels) != 0 {
		t.Errorf("expected all deleted, %d remain", len(repo.parcels))
	}
}

func TestBulkCoordinator_UnknownOperation(t *testing.T) {
	bulk := newTestBulk(newStubParcelRepo(testParcel("p1", domain.StatusWarehouse)))

	_, err := bulk.ApplyBulk(context.Background(), ports.BulkInput{
		Selection: explicitSelection("p1"),
		Operation: "defenestrate",
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestBulkCoordinator_InvalidTargetStatus(t *testing.T) {
	bulk := newTestBulk(newStubParcelRepo(testParcel("p1", domain.StatusWarehouse)))

	_, err := bulk.ApplyBulk(context.Background(), ports.BulkInput{
		Selection: explicitSelection("p1"),
		Operation: ports.BulkChangeStatus,
		Params:    ports.BulkParams{TargetStatus: "sideways"},
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

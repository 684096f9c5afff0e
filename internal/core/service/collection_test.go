package service

import (
	"context"
	"testing"
	"time"

	"github.com/wareflow/parcel-engine/internal/core/domain"
)

func TestCollectionEvaluator_NoInvoice(t *testing.T) {
	lookup := &stubInvoiceLookup{}
	eval := NewCollectionEvaluator(lookup, time.Second, discardLogger)

	verdict, err := eval.Evaluate(context.Background(), testParcel("p1", domain.StatusArrived))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.CanCollect {
		t.Error("uninvoiced parcels are collectible")
	}
	if !verdict.RequiresConfirmation {
		t.Error("uninvoiced release requires an explicit confirmation")
	}
	if verdict.RequiresAdminNotification {
		t.Error("uninvoiced release does not notify admins")
	}
	if verdict.PaymentStatus != domain.PaymentNotInvoiced {
		t.Errorf("payment status: got %s, want not_invoiced", verdict.PaymentStatus)
	}
	if verdict.Warning != "not_invoiced" {
		t.Errorf("warning: got %q, want not_invoiced", verdict.Warning)
	}
	if lookup.calls != 0 {
		t.Error("no invoice attached must not call the billing system")
	}
}

func TestCollectionEvaluator_Paid(t *testing.T) {
	lookup := &stubInvoiceLookup{snapshots: map[string]*domain.InvoiceSnapshot{"inv-1": paidInvoice("inv-1")}}
	eval := NewCollectionEvaluator(lookup, time.Second, discardLogger)

	p := testParcel("p1", domain.StatusArrived)
	p.InvoiceID = "inv-1"

	verdict, err := eval.Evaluate(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.CanCollect || verdict.RequiresConfirmation || verdict.RequiresAdminNotification {
		t.Errorf("paid verdict wrong: %+v", verdict)
	}
	if verdict.PaymentStatus != domain.PaymentPaid {
		t.Errorf("payment status: got %s, want paid", verdict.PaymentStatus)
	}
}

func TestCollectionEvaluator_Partial(t *testing.T) {
	lookup := &stubInvoiceLookup{snapshots: map[string]*domain.InvoiceSnapshot{
		"inv-1": {ID: "inv-1", Total: 5500, Paid: 2000, Outstanding: 3500, Currency: "EUR"},
	}}
	eval := NewCollectionEvaluator(lookup, time.Second, discardLogger)

	p := testParcel("p1", domain.StatusArrived)
	p.InvoiceID = "inv-1"

	verdict, err := eval.Evaluate(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.CanCollect || !verdict.RequiresConfirmation || !verdict.RequiresAdminNotification {
		t.Errorf("partial verdict wrong: %+v", verdict)
	}
	if verdict.PaymentStatus != domain.PaymentPartial {
		t.Errorf("payment status: got %s, want partial", verdict.PaymentStatus)
	}
	if verdict.Totals == nil || verdict.Totals.Outstanding != 3500 {
		t.Errorf("totals wrong: %+v", verdict.Totals)
	}
}

func TestCollectionEvaluator_Unpaid(t *testing.T) {
	lookup := &stubInvoiceLookup{snapshots: map[string]*domain.InvoiceSnapshot{"inv-1": unpaidInvoice("inv-1")}}
	eval := NewCollectionEvaluator(lookup, time.Second, discardLogger)

	p := testParcel("p1", domain.StatusArrived)
	p.InvoiceID = "inv-1"

	verdict, err := eval.Evaluate(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.CanCollect || !verdict.RequiresConfirmation || !verdict.RequiresAdminNotification {
		t.Errorf("unpaid verdict wrong: %+v", verdict)
	}
	if verdict.PaymentStatus != domain.PaymentUnpaid {
		t.Errorf("payment status: got %s, want unpaid", verdict.PaymentStatus)
	}
	if verdict.Totals == nil || verdict.Totals.Total != 5500 || verdict.Totals.Paid != 0 {
		t.Errorf("totals wrong: %+v", verdict.Totals)
	}
}

func TestClassifyPayment(t *testing.T) {
	cases := []struct {
		name string
		inv  *domain.InvoiceSnapshot
		want domain.PaymentStatus
	}{
		{"nil snapshot", nil, domain.PaymentNotInvoiced},
		{"settled", &domain.InvoiceSnapshot{Total: 100, Paid: 100, Outstanding: 0}, domain.PaymentPaid},
		{"overpaid", &domain.InvoiceSnapshot{Total: 100, Paid: 120, Outstanding: -20}, domain.PaymentPaid},
		{"partial", &domain.InvoiceSnapshot{Total: 100, Paid: 40, Outstanding: 60}, domain.PaymentPartial},
		{"untouched", &domain.InvoiceSnapshot{Total: 100, Paid: 0, Outstanding: 100}, domain.PaymentUnpaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := domain.ClassifyPayment(tc.inv); got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

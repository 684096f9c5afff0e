package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wareflow/parcel-engine/internal/core/domain"
	"github.com/wareflow/parcel-engine/internal/core/ports"
)

const defaultInvoiceTimeout = 5 * time.Second

// CollectionEvaluator classifies a parcel's payment state and decides the
// conditions under which it may be released to its recipient.
type CollectionEvaluator struct {
	invoices ports.InvoiceLookup
	timeout  time.Duration
	log      zerolog.Logger
}

// NewCollectionEvaluator builds an evaluator. timeout bounds the external
// invoice lookup; zero falls back to a conservative default.
func NewCollectionEvaluator(invoices ports.InvoiceLookup, timeout time.Duration, log zerolog.Logger) *CollectionEvaluator {
	if timeout <= 0 {
		timeout = defaultInvoiceTimeout
	}
	return &CollectionEvaluator{invoices: invoices, timeout: timeout, log: log}
}

// Evaluate returns the collection verdict for parcel. Rules, first match
// wins:
//
//  1. no invoice       → collectible with a confirmation prompt
//  2. fully paid       → collectible, no prompt
//  3. partially paid   → collectible, mandatory note + admin notification
//  4. unpaid           → collectible, mandatory note + admin notification
//
// Uninvoiced parcels being collectible at all is observed business
// behaviour, kept as-is pending a product decision.
func (e *CollectionEvaluator) Evaluate(ctx context.Context, parcel *domain.Parcel) (*ports.CollectionAssessment, error) {
	if parcel.InvoiceID == "" {
		return &ports.CollectionAssessment{
			CanCollect:           true,
			RequiresConfirmation: true,
			PaymentStatus:        domain.PaymentNotInvoiced,
			Warning:              "not_invoiced",
			Message:              "parcel has no invoice attached; confirm release explicitly",
		}, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	inv, err := e.invoices.Snapshot(lookupCtx, parcel.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("collection check: invoice %s: %w", parcel.InvoiceID, err)
	}

	status := domain.ClassifyPayment(inv)
	totals := &ports.CollectionTotals{
		Total:       inv.Total,
		Paid:        inv.Paid,
		Outstanding: inv.Outstanding,
		Currency:    inv.Currency,
	}

	switch status {
	case domain.PaymentPaid:
		return &ports.CollectionAssessment{
			CanCollect:    true,
			PaymentStatus: status,
			Message:       "invoice settled",
			Totals:        totals,
		}, nil
	case domain.PaymentPartial:
		return &ports.CollectionAssessment{
			CanCollect:                true,
			RequiresConfirmation:      true,
			RequiresAdminNotification: true,
			PaymentStatus:             status,
			Message:                   fmt.Sprintf("invoice partially paid, %.2f %s outstanding", inv.Outstanding, inv.Currency),
			Totals:                    totals,
		}, nil
	case domain.PaymentUnpaid:
		return &ports.CollectionAssessment{
			CanCollect:                true,
			RequiresConfirmation:      true,
			RequiresAdminNotification: true,
			PaymentStatus:             status,
			Message:                   fmt.Sprintf("invoice unpaid, %.2f %s outstanding", inv.Outstanding, inv.Currency),
			Totals:                    totals,
		}, nil
	case domain.PaymentNotInvoiced:
		// Unreachable with a non-empty InvoiceID.
		fallthrough
	default:
		return nil, fmt.Errorf("collection check: unexpected payment classification %q for invoice %s", status, parcel.InvoiceID)
	}
}

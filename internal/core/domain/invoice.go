package domain

// InvoiceStatus is the billing system's own status for an invoice.
type InvoiceStatus string

const (
	InvoiceDraft   InvoiceStatus = "draft"
	InvoiceSent    InvoiceStatus = "sent"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
)

// PaymentStatus is the engine's own classification of how settled a parcel's
// invoice is. It is derived from the amounts, never taken from the invoice
// status verbatim, and is exhaustive: collection eligibility switches over
// these four values with no fallthrough.
type PaymentStatus string

const (
	PaymentPaid        PaymentStatus = "paid"
	PaymentPartial     PaymentStatus = "partial"
	PaymentUnpaid      PaymentStatus = "unpaid"
	PaymentNotInvoiced PaymentStatus = "not_invoiced"
)

// InvoiceSnapshot is the read-only view of an invoice obtained from the
// external billing collaborator. Invoices are owned elsewhere; the engine
// never writes them.
type InvoiceSnapshot struct {
	ID            string        `json:"id"`
	InvoiceNumber string        `json:"invoice_number"`
	Status        InvoiceStatus `json:"status"`
	Total         float64       `json:"total"`
	Paid          float64       `json:"paid"`
	Outstanding   float64       `json:"outstanding"`
	Currency      string        `json:"currency"`
}

// ClassifyPayment derives the engine's payment classification from invoice
// amounts. A nil snapshot means no invoice is attached.
func ClassifyPayment(inv *InvoiceSnapshot) PaymentStatus {
	if inv == nil {
		return PaymentNotInvoiced
	}
	switch {
	case inv.Outstanding <= 0:
		return PaymentPaid
	case inv.Paid > 0 && inv.Paid < inv.Total:
		return PaymentPartial
	default:
		return PaymentUnpaid
	}
}

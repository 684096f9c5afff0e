package ports

import (
	"context"

	"github.com/wareflow/parcel-engine/internal/core/domain"
)

// InvoiceLookup reads invoice state from the external billing system.
// Implementations must bound the call with a timeout; the transition that
// triggered the lookup surfaces the failure rather than hang.
type InvoiceLookup interface {
	Snapshot(ctx context.Context, invoiceID string) (*domain.InvoiceSnapshot, error)
}

// AdminNotifier delivers collection notifications to administrators.
// Delivery is best-effort: a failed notification is logged and counted but
// never rolls back the collection it reports on.
type AdminNotifier interface {
	NotifyCollection(ctx context.Context, n domain.AdminNotification) error
}

package domain

import "time"

// AdminNotification is the event emitted when a parcel is released to its
// recipient without full payment. Delivery is handled by an external
// notifier collaborator.
type AdminNotification struct {
	ParcelID      string        `json:"parcel_id"`
	ClientID      string        `json:"client_id"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Outstanding   float64       `json:"outstanding"`
	Currency      string        `json:"currency"`
	Note          string        `json:"note"`
	CollectedAt   time.Time     `json:"collected_at"`
	Actor         string        `json:"actor"`
}

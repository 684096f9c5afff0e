package domain

import "time"

// TripStatus represents the lifecycle state of a trip.
type TripStatus string

const (
	TripPlanning  TripStatus = "planning"
	TripLoading   TripStatus = "loading"
	TripInTransit TripStatus = "in_transit"
	TripDelivered TripStatus = "delivered"
	TripClosed    TripStatus = "closed"
)

// Trip is a scheduled vehicle movement along a route. Parcels reference a
// trip by ID; the trip itself never lists its parcels.
type Trip struct {
	ID         string     `json:"id" bson:"_id,omitempty"`
	TripNumber string     `json:"trip_number" bson:"trip_number"`
	Route      []string   `json:"route" bson:"route"`
	Status     TripStatus `json:"status" bson:"status"`
	DepartedAt *time.Time `json:"departed_at,omitempty" bson:"departed_at,omitempty"`
	ArrivedAt  *time.Time `json:"arrived_at,omitempty" bson:"arrived_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`
	Revision   int64      `json:"revision" bson:"revision"`
}

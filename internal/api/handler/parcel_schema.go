package handler

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wareflow/parcel-engine/internal/core/domain"
	"github.com/wareflow/parcel-engine/internal/core/ports"
)

// listFilterFromQuery maps the listing query parameters onto the repository
// filter. Unparseable numbers fall back to service defaults.
func listFilterFromQuery(c echo.Context) ports.ListParcelsFilter {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return ports.ListParcelsFilter{
		ClientID:    c.QueryParam("client_id"),
		Status:      c.QueryParam("status"),
		TripID:      c.QueryParam("trip_id"),
		Destination: c.QueryParam("destination"),
		Search:      c.QueryParam("search"),
		DateFrom:    parseQueryTime(c.QueryParam("date_from")),
		DateTo:      parseQueryTime(c.QueryParam("date_to")),
		Page:        page,
		Limit:       limit,
	}
}

// parseQueryTime accepts RFC 3339 timestamps; anything else is treated as
// an unset bound.
func parseQueryTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// --- Request types ---

type dimensionsRequest struct {
	LengthCm float64 `json:"length_cm" validate:"gte=0"`
	WidthCm  float64 `json:"width_cm"  validate:"gte=0"`
	HeightCm float64 `json:"height_cm" validate:"gte=0"`
}

type intakeRequest struct {
	ClientID    string             `json:"client_id"   validate:"required"`
	RecipientID string             `json:"recipient_id"`
	Description string             `json:"description" validate:"required"`
	WeightKg    float64            `json:"weight_kg"   validate:"required,gt=0"`
	Dimensions  *dimensionsRequest `json:"dimensions,omitempty"`
	Destination string             `json:"destination" validate:"required"`
	TripID      string             `json:"trip_id"`
	Quantity    int                `json:"quantity"    validate:"required,gte=1"`
}

type statusRequest struct {
	Status string `json:"status"  validate:"required"`
	TripID string `json:"trip_id"`
	Note   string `json:"note"`
}

type forceStatusRequest struct {
	Status        string `json:"status"        validate:"required"`
	Justification string `json:"justification" validate:"required"`
}

type collectRequest struct {
	ConfirmationNote string `json:"confirmation_note"`
}

type attachInvoiceRequest struct {
	InvoiceID string `json:"invoice_id" validate:"required"`
}

// selectionRequest mirrors every criterion of the listing filter, so a
// filter-mode selection resolves to exactly the set the operator is
// looking at.
type selectionRequest struct {
	Mode        string     `json:"mode"      validate:"required,oneof=explicit filter"`
	IDs         []string   `json:"ids,omitempty"`
	ClientID    string     `json:"client_id,omitempty"`
	Status      string     `json:"status,omitempty"`
	TripID      string     `json:"trip_id,omitempty"`
	Destination string     `json:"destination,omitempty"`
	Search      string     `json:"search,omitempty"`
	DateFrom    *time.Time `json:"date_from,omitempty"`
	DateTo      *time.Time `json:"date_to,omitempty"`
}

type bulkStatusRequest struct {
	Selection selectionRequest `json:"selection" validate:"required"`
	Status    string           `json:"status"    validate:"required"`
}

type bulkTripRequest struct {
	Selection selectionRequest `json:"selection" validate:"required"`
	// TripID empty means unassign.
	TripID string `json:"trip_id"`
}

type bulkCollectRequest struct {
	Selection        selectionRequest `json:"selection" validate:"required"`
	ConfirmationNote string           `json:"confirmation_note"`
}

type bulkDeleteRequest struct {
	Selection selectionRequest `json:"selection" validate:"required"`
}

func (s selectionRequest) toSelection() ports.Selection {
	filter := ports.ListParcelsFilter{
		ClientID:    s.ClientID,
		Status:      s.Status,
		TripID:      s.TripID,
		Destination: s.Destination,
		Search:      s.Search,
	}
	if s.DateFrom != nil {
		filter.DateFrom = *s.DateFrom
	}
	if s.DateTo != nil {
		filter.DateTo = *s.DateTo
	}
	return ports.Selection{
		Mode:   ports.SelectionMode(s.Mode),
		IDs:    s.IDs,
		Filter: filter,
	}
}

// --- Response types ---
// Owned by the transport layer so the JSON contract is not coupled to
// internal service changes.

type intakeResponse struct {
	ParcelIDs      []string              `json:"parcel_ids"`
	Status         string                `json:"status"`
	Weight         ports.WeightBreakdown `json:"weight"`
	CreatedAt      time.Time             `json:"created_at"`
	AlreadyExisted bool                  `json:"already_existed,omitempty"`
}

type transitionResponse struct {
	ParcelID      string `json:"parcel_id"`
	From          string `json:"from"`
	Status        string `json:"status"`
	NoOp          bool   `json:"no_op"`
	AdminNotified bool   `json:"admin_notified"`
}

type paginationResponse struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

type listParcelsResponse struct {
	Data       []*domain.Parcel   `json:"data"`
	Pagination paginationResponse `json:"pagination"`
}

type duplicatesResponse struct {
	Groups []ports.DuplicateGroup `json:"groups"`
}

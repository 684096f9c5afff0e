package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wareflow/parcel-engine/internal/core/ports"
)

// TripHandler handles the trip-level sagas that drive mass parcel
// transitions.
type TripHandler struct {
	trips ports.TripService
}

func NewTripHandler(trips ports.TripService) *TripHandler {
	return &TripHandler{trips: trips}
}

// Depart handles POST /v1/trips/:id/depart.
//
// @Summary      Depart a trip, moving its loaded parcels to in_transit
// @Tags         trips
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Trip id"
// @Success      200  {object}  ports.TripOperationResult
// @Failure      422  {object}  map[string]string
// @Router       /v1/trips/{id}/depart [post]
func (h *TripHandler) Depart(c echo.Context) error {
	actor, _, err := ctxActor(c)
	if err != nil {
		return err
	}
	result, err := h.trips.Depart(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Arrive handles POST /v1/trips/:id/arrive.
//
// @Summary      Arrive a trip, moving its in_transit parcels to arrived
// @Tags         trips
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Trip id"
// @Success      200  {object}  ports.TripOperationResult
// @Router       /v1/trips/{id}/arrive [post]
func (h *TripHandler) Arrive(c echo.Context) error {
	actor, _, err := ctxActor(c)
	if err != nil {
		return err
	}
	result, err := h.trips.Arrive(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Reopen handles POST /v1/trips/:id/reopen. Parcel statuses are not
// reverted.
//
// @Summary      Reopen an in_transit trip for loading
// @Tags         trips
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Trip id"
// @Success      200  {object}  ports.TripOperationResult
// @Router       /v1/trips/{id}/reopen [post]
func (h *TripHandler) Reopen(c echo.Context) error {
	if _, _, err := ctxActor(c); err != nil {
		return err
	}
	result, err := h.trips.Reopen(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

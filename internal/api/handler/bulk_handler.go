package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wareflow/parcel-engine/internal/core/domain"
	"github.com/wareflow/parcel-engine/internal/core/ports"
)

// BulkHandler handles the bulk operation entry points. Every request
// carries an explicit Selection; the server expands filter selections, the
// client never sends "whatever rows I can see".
type BulkHandler struct {
	bulk ports.BulkService
}

func NewBulkHandler(bulk ports.BulkService) *BulkHandler {
	return &BulkHandler{bulk: bulk}
}

// Status handles PUT /v1/parcels/bulk/status.
//
// @Summary      Transition a selection of parcels
// @Tags         bulk
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      bulkStatusRequest  true  "Selection and target status"
// @Success      200   {object}  ports.BulkResult
// @Router       /v1/parcels/bulk/status [put]
func (h *BulkHandler) Status(c echo.Context) error {
	var req bulkStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor, _, err := ctxActor(c)
	if err != nil {
		return err
	}

	result, err := h.bulk.ApplyBulk(c.Request().Context(), ports.BulkInput{
		Selection: req.Selection.toSelection(),
		Operation: ports.BulkChangeStatus,
		Params: ports.BulkParams{
			TargetStatus: domain.ParcelStatus(req.Status),
			Actor:        actor,
		},
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Trip handles PUT /v1/parcels/bulk/trip. An empty trip_id unassigns;
// unassigning never reverts parcel status.
//
// @Summary      Assign or unassign a trip across a selection
// @Tags         bulk
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      bulkTripRequest  true  "Selection and trip"
// @Success      200   {object}  ports.BulkResult
// @Router       /v1/parcels/bulk/trip [put]
func (h *BulkHandler) Trip(c echo.Context) error {
	var req bulkTripRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor, _, err := ctxActor(c)
	if err != nil {
		return err
	}

	result, err := h.bulk.ApplyBulk(c.Request().Context(), ports.BulkInput{
		Selection: req.Selection.toSelection(),
		Operation: ports.BulkAssignTrip,
		Params: ports.BulkParams{
			TripID: req.TripID,
			Actor:  actor,
		},
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Collect handles POST /v1/parcels/bulk/collect. Ids failing the
// eligibility check land in failed with their gate reason, so the caller
// can retry just that subset.
//
// @Summary      Collect a selection of parcels
// @Tags         bulk
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      bulkCollectRequest  true  "Selection and confirmation note"
// @Success      200   {object}  ports.BulkResult
// @Router       /v1/parcels/bulk/collect [post]
func (h *BulkHandler) Collect(c echo.Context) error {
	var req bulkCollectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor, _, err := ctxActor(c)
	if err != nil {
		return err
	}

	result, err := h.bulk.ApplyBulk(c.Request().Context(), ports.BulkInput{
		Selection: req.Selection.toSelection(),
		Operation: ports.BulkMarkCollected,
		Params: ports.BulkParams{
			Note:  req.ConfirmationNote,
			Actor: actor,
		},
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Delete handles DELETE /v1/parcels/bulk. Unconditional hard delete,
// admin only.
//
// @Summary      Delete a selection of parcels
// @Tags         bulk
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      bulkDeleteRequest  true  "Selection"
// @Success      200   {object}  ports.BulkResult
// @Router       /v1/parcels/bulk [delete]
func (h *BulkHandler) Delete(c echo.Context) error {
	var req bulkDeleteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor, _, err := ctxActor(c)
	if err != nil {
		return err
	}

	result, err := h.bulk.ApplyBulk(c.Request().Context(), ports.BulkInput{
		Selection: req.Selection.toSelection(),
		Operation: ports.BulkDelete,
		Params:    ports.BulkParams{Actor: actor},
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

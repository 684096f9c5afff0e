package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wareflow/parcel-engine/internal/core/domain"
	"github.com/wareflow/parcel-engine/internal/core/ports"
)

// ParcelHandler handles HTTP requests for intake, lookup, transitions, and
// collection.
type ParcelHandler struct {
	parcels   ports.ParcelService
	lifecycle ports.LifecycleService
}

func NewParcelHandler(parcels ports.ParcelService, lifecycle ports.LifecycleService) *ParcelHandler {
	return &ParcelHandler{parcels: parcels, lifecycle: lifecycle}
}

// Intake handles POST /v1/parcels.
//
// @Summary      Create parcels from an intake row
// @Tags         parcels
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string         false  "Idempotency key to prevent duplicate submissions"
// @Param        body             body      intakeRequest  true   "Intake row"
// @Success      201              {object}  intakeResponse
// @Failure      400              {object}  map[string]string
// @Router       /v1/parcels [post]
func (h *ParcelHandler) Intake(c echo.Context) error {
	var req intakeRequest
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

	var dims *ports.DimensionsInput
	if req.Dimensions != nil {
		dims = &ports.DimensionsInput{
			LengthCm: req.Dimensions.LengthCm,
			WidthCm:  req.Dimensions.WidthCm,
			HeightCm: req.Dimensions.HeightCm,
		}
	}

	result, err := h.parcels.Intake(c.Request().Context(), ports.IntakeInput{
		ClientID:       req.ClientID,
		RecipientID:    req.RecipientID,
		Description:    req.Description,
		WeightKg:       req.WeightKg,
		Dimensions:     dims,
		Destination:    req.Destination,
		TripID:         req.TripID,
		Quantity:       req.Quantity,
		Actor:          actor,
		IdempotencyKey: c.Request().Header.Get("Idempotency-Key"),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, intakeResponse{
		ParcelIDs:      result.ParcelIDs,
		Status:         string(result.Status),
		Weight:         result.Weight,
		CreatedAt:      result.CreatedAt,
		AlreadyExisted: result.AlreadyExisted,
	})
}

// Get handles GET /v1/parcels/:id.
//
// @Summary      Get a parcel by id
// @Tags         parcels
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Parcel id (e.g. PRC-7A8B9C2D3E4F)"
// @Success      200  {object}  domain.Parcel
// @Failure      404  {object}  map[string]string
// @Router       /v1/parcels/{id} [get]
func (h *ParcelHandler) Get(c echo.Context) error {
	parcel, err := h.parcels.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, parcel)
}

// List handles GET /v1/parcels.
//
// @Summary      List parcels
// @Tags         parcels
// @Produce      json
// @Security     BearerAuth
// @Param        client_id  query     string  false  "Filter by client"
// @Param        status     query     string  false  "Filter by custody status"
// @Param        trip_id    query     string  false  "Filter by trip"
// @Param        search     query     string  false  "Partial match on description or barcode"
// @Param        page       query     int     false  "Page (1-based)"
// @Param        limit      query     int     false  "Rows per page (max 100)"
// @Success      200        {object}  listParcelsResponse
// @Router       /v1/parcels [get]
func (h *ParcelHandler) List(c echo.Context) error {
	filter := listFilterFromQuery(c)
	result, err := h.parcels.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listParcelsResponse{
		Data: result.Items,
		Pagination: paginationResponse{
			Total:      result.Total,
			Page:       result.Page,
			Limit:      result.Limit,
			TotalPages: result.TotalPages,
		},
	})
}

// Delete handles DELETE /v1/parcels/:id. Hard delete, cascades to pieces.
//
// @Summary      Delete a parcel
// @Tags         parcels
// @Security     BearerAuth
// @Param        id  path  string  true  "Parcel id"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /v1/parcels/{id} [delete]
func (h *ParcelHandler) Delete(c echo.Context) error {
	if err := h.parcels.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// SetStatus handles PUT /v1/parcels/:id/status — the single strict
// transition entry point. All engine gates are enforced server-side.
//
// @Summary      Transition a parcel to an adjacent status
// @Tags         parcels
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true  "Parcel id"
// @Param        body  body      statusRequest  true  "Target status"
// @Success      200   {object}  transitionResponse
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /v1/parcels/{id}/status [put]
func (h *ParcelHandler) SetStatus(c echo.Context) error {
	var req statusRequest
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

	result, err := h.lifecycle.Transition(c.Request().Context(), ports.TransitionInput{
		ParcelID: c.Param("id"),
		Target:   domain.ParcelStatus(req.Status),
		TripID:   req.TripID,
		Note:     req.Note,
		Actor:    actor,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTransitionResponse(result))
}

// ForceStatus handles PUT /v1/parcels/:id/force-status — the audited
// manual override. Admin only; justification is mandatory.
//
// @Summary      Force a parcel into an arbitrary status
// @Tags         parcels
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Parcel id"
// @Param        body  body      forceStatusRequest  true  "Target status and justification"
// @Success      200   {object}  transitionResponse
// @Router       /v1/parcels/{id}/force-status [put]
func (h *ParcelHandler) ForceStatus(c echo.Context) error {
	var req forceStatusRequest
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

	result, err := h.lifecycle.ForceSetStatus(c.Request().Context(), ports.ForceSetInput{
		ParcelID:      c.Param("id"),
		Target:        domain.ParcelStatus(req.Status),
		Justification: req.Justification,
		Actor:         actor,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTransitionResponse(result))
}

// CollectionCheck handles GET /v1/parcels/:id/collection-check.
//
// @Summary      Evaluate whether a parcel may be collected
// @Tags         parcels
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Parcel id"
// @Success      200  {object}  ports.CollectionAssessment
// @Router       /v1/parcels/{id}/collection-check [get]
func (h *ParcelHandler) CollectionCheck(c echo.Context) error {
	verdict, err := h.lifecycle.CollectionCheck(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, verdict)
}

// Collect handles POST /v1/parcels/:id/collect.
//
// @Summary      Commit a collection
// @Tags         parcels
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "Parcel id"
// @Param        body  body      collectRequest  true  "Confirmation note"
// @Success      200   {object}  transitionResponse
// @Failure      422   {object}  map[string]string
// @Router       /v1/parcels/{id}/collect [post]
func (h *ParcelHandler) Collect(c echo.Context) error {
	var req collectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	actor, _, err := ctxActor(c)
	if err != nil {
		return err
	}

	result, err := h.lifecycle.Collect(c.Request().Context(), ports.CollectInput{
		ParcelID: c.Param("id"),
		Note:     req.ConfirmationNote,
		Actor:    actor,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTransitionResponse(result))
}

// AttachInvoice handles PUT /v1/parcels/:id/invoice.
//
// @Summary      Attach a billing reference to a parcel
// @Tags         parcels
// @Accept       json
// @Security     BearerAuth
// @Param        id    path  string                true  "Parcel id"
// @Param        body  body  attachInvoiceRequest  true  "Invoice reference"
// @Success      204
// @Router       /v1/parcels/{id}/invoice [put]
func (h *ParcelHandler) AttachInvoice(c echo.Context) error {
	var req attachInvoiceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.parcels.AttachInvoice(c.Request().Context(), c.Param("id"), req.InvoiceID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Duplicates handles GET /v1/parcels/duplicates.
//
// @Summary      List advisory duplicate groups
// @Tags         parcels
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  duplicatesResponse
// @Router       /v1/parcels/duplicates [get]
func (h *ParcelHandler) Duplicates(c echo.Context) error {
	groups := h.parcels.Duplicates(c.Request().Context(), listFilterFromQuery(c))
	return c.JSON(http.StatusOK, duplicatesResponse{Groups: groups})
}

func toTransitionResponse(r *ports.TransitionResult) transitionResponse {
	return transitionResponse{
		ParcelID:      r.ParcelID,
		From:          string(r.From),
		Status:        string(r.Status),
		NoOp:          r.NoOp,
		AdminNotified: r.AdminNotified,
	}
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wareflow/parcel-engine/internal/core/ports"
)

// ScanHandler handles barcode scan requests from warehouse terminals.
type ScanHandler struct {
	scans ports.ScanService
}

func NewScanHandler(scans ports.ScanService) *ScanHandler {
	return &ScanHandler{scans: scans}
}

// Resolve handles GET /v1/scan/:code — info only, no mutation.
//
// @Summary      Resolve a barcode to its piece, parcel, and client
// @Tags         scan
// @Produce      json
// @Security     BearerAuth
// @Param        code     path      string  true   "Piece barcode or TRIP-SEQ prefix"
// @Param        mode     query     string  false  "loading, unloading, or lookup (default)"
// @Param        trip_id  query     string  false  "Selected trip context for loading/unloading"
// @Success      200      {object}  ports.ScanResult
// @Failure      404      {object}  map[string]string
// @Failure      409      {object}  map[string]string
// @Router       /v1/scan/{code} [get]
func (h *ScanHandler) Resolve(c echo.Context) error {
	in, err := scanInput(c)
	if err != nil {
		return err
	}
	result, err := h.scans.Resolve(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Apply handles POST /v1/scan/:code — resolves the code and commits the
// transition implied by the mode. Gates apply exactly as for a manual
// transition.
//
// @Summary      Apply the transition implied by a scan
// @Tags         scan
// @Produce      json
// @Security     BearerAuth
// @Param        code     path      string  true   "Piece barcode or TRIP-SEQ prefix"
// @Param        mode     query     string  true   "loading or unloading"
// @Param        trip_id  query     string  true   "Selected trip context"
// @Success      200      {object}  ports.ScanResult
// @Failure      409      {object}  map[string]string
// @Failure      422      {object}  map[string]string
// @Router       /v1/scan/{code} [post]
func (h *ScanHandler) Apply(c echo.Context) error {
	in, err := scanInput(c)
	if err != nil {
		return err
	}
	result, err := h.scans.Apply(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func scanInput(c echo.Context) (ports.ScanInput, error) {
	actor, _, err := ctxActor(c)
	if err != nil {
		return ports.ScanInput{}, err
	}
	mode := ports.ScanMode(c.QueryParam("mode"))
	if mode == "" {
		mode = ports.ScanModeLookup
	}
	switch mode {
	case ports.ScanModeLoading, ports.ScanModeUnloading, ports.ScanModeLookup:
	default:
		return ports.ScanInput{}, echo.NewHTTPError(http.StatusBadRequest, "mode must be loading, unloading, or lookup")
	}
	return ports.ScanInput{
		Code:   c.Param("code"),
		Mode:   mode,
		TripID: c.QueryParam("trip_id"),
		Actor:  actor,
	}, nil
}

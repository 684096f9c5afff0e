package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wareflow/parcel-engine/internal/api/handler"
	"github.com/wareflow/parcel-engine/internal/api/middleware"
	"github.com/wareflow/parcel-engine/internal/core/domain"
	"github.com/wareflow/parcel-engine/internal/core/ports"
)

// Services bundles the wired service layer handed to the router.
type Services struct {
	Parcels   ports.ParcelService
	Lifecycle ports.LifecycleService
	Scans     ports.ScanService
	Bulk      ports.BulkService
	Trips     ports.TripService
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(svcs Services, db *mongo.Database, rdb *redis.Client, jwtSecret string, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("parcel_http"))

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(db, rdb)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	// --- Handlers ---
	parcelHandler := handler.NewParcelHandler(svcs.Parcels, svcs.Lifecycle)
	scanHandler := handler.NewScanHandler(svcs.Scans)
	bulkHandler := handler.NewBulkHandler(svcs.Bulk)
	tripHandler := handler.NewTripHandler(svcs.Trips)

	auth := middleware.Auth(jwtSecret)
	anyRole := middleware.RBAC(domain.RoleAdmin, domain.RoleOperator)
	adminOnly := middleware.RBAC(domain.RoleAdmin)

	v1 := e.Group("/v1", auth)

	parcels := v1.Group("/parcels", anyRole)
	parcels.POST("", parcelHandler.Intake)
	parcels.GET("", parcelHandler.List)
	parcels.GET("/duplicates", parcelHandler.Duplicates)
	parcels.GET("/:id", parcelHandler.Get)
	parcels.DELETE("/:id", parcelHandler.Delete, adminOnly)
	parcels.PUT("/:id/status", parcelHandler.SetStatus)
	parcels.PUT("/:id/force-status", parcelHandler.ForceStatus, adminOnly)
	parcels.GET("/:id/collection-check", parcelHandler.CollectionCheck)
	parcels.POST("/:id/collect", parcelHandler.Collect)
	parcels.PUT("/:id/invoice", parcelHandler.AttachInvoice)

	parcels.PUT("/bulk/status", bulkHandler.Status)
	parcels.PUT("/bulk/trip", bulkHandler.Trip)
	parcels.POST("/bulk/collect", bulkHandler.Collect)
	parcels.DELETE("/bulk", bulkHandler.Delete, adminOnly)

	scan := v1.Group("/scan", anyRole)
	scan.GET("/:code", scanHandler.Resolve)
	scan.POST("/:code", scanHandler.Apply)

	trips := v1.Group("/trips", anyRole)
	trips.POST("/:id/depart", tripHandler.Depart)
	trips.POST("/:id/arrive", tripHandler.Arrive)
	trips.POST("/:id/reopen", tripHandler.Reopen)

	return e
}

package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/treadstock/treadstock/internal/auth"
	"github.com/treadstock/treadstock/internal/inventory"
	"github.com/treadstock/treadstock/internal/masterdata/suppliers"
	"github.com/treadstock/treadstock/internal/observability"
	"github.com/treadstock/treadstock/internal/procurement"
	"github.com/treadstock/treadstock/internal/receiving"
	"github.com/treadstock/treadstock/internal/retread"
	"github.com/treadstock/treadstock/internal/shared"
	"github.com/treadstock/treadstock/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler        *auth.Handler
	ProcurementHandler *procurement.Handler
	ReceivingHandler   *receiving.Handler
	InventoryHandler   *inventory.Handler
	RetreadHandler     *retread.Handler
	SuppliersHandler   *suppliers.Handler
	JobHandler         *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Treadstock defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/procurement", params.ProcurementHandler.MountRoutes)
	r.Route("/receiving", params.ReceivingHandler.MountRoutes)
	r.Route("/inventory", params.InventoryHandler.MountRoutes)
	r.Route("/retread", params.RetreadHandler.MountRoutes)
	if params.SuppliersHandler != nil {
		r.Route("/masterdata", params.SuppliersHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

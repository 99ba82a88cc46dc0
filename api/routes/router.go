package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/pharmacore-backend/api/controllers"
	expirycontrollers "github.com/angelmondragon/pharmacore-backend/api/controllers/expiry"
	quarantinecontrollers "github.com/angelmondragon/pharmacore-backend/api/controllers/quarantine"
	"github.com/angelmondragon/pharmacore-backend/api/middleware"
	"github.com/angelmondragon/pharmacore-backend/internal/alertconfig"
	"github.com/angelmondragon/pharmacore-backend/internal/alerts"
	"github.com/angelmondragon/pharmacore-backend/internal/checkruns"
	"github.com/angelmondragon/pharmacore-backend/internal/quarantine"
	"github.com/angelmondragon/pharmacore-backend/pkg/config"
	"github.com/angelmondragon/pharmacore-backend/pkg/db"
	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
	"github.com/angelmondragon/pharmacore-backend/pkg/redis"
)

// Services bundles the domain services the HTTP surface exposes.
type Services struct {
	Tiers      alertconfig.Service
	Runs       checkruns.Service
	Alerts     alerts.Service
	Quarantine quarantine.Service
}

// Dependencies are pinged by the readiness probe; Idempotency may be nil.
type Dependencies struct {
	DB          db.Pinger
	Redis       redis.Pinger
	Idempotency redis.IdempotencyStore
	Metrics     http.Handler
}

var (
	staffRoles      = []enums.Role{enums.RoleAdmin, enums.RolePharmacist, enums.RoleInventoryManager}
	dispositionRole = []enums.Role{enums.RoleAdmin, enums.RolePharmacist}
)

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	ready := map[string]controllers.Pinger{}
	if deps.DB != nil {
		ready["db"] = deps.DB
	}
	if deps.Redis != nil {
		ready["redis"] = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready))
	})

	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/expiry", func(r chi.Router) {
			r.Route("/checks", func(r chi.Router) {
				r.With(middleware.RequireRole(logg, staffRoles...)).Post("/", expirycontrollers.RunCheck(svc.Runs, logg))
				r.Get("/", expirycontrollers.ListChecks(svc.Runs, logg))
				r.Get("/{runId}", expirycontrollers.GetCheck(svc.Runs, logg))
			})

			r.Route("/alerts", func(r chi.Router) {
				r.Get("/", expirycontrollers.ListAlerts(svc.Alerts, logg))
				r.Get("/{alertId}", expirycontrollers.GetAlert(svc.Alerts, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, staffRoles...))
					r.Post("/{alertId}/acknowledge", expirycontrollers.AcknowledgeAlert(svc.Alerts, logg))
					r.Post("/{alertId}/resolve", expirycontrollers.ResolveAlert(svc.Alerts, logg))
				})
			})

			r.Route("/tiers", func(r chi.Router) {
				r.Get("/", expirycontrollers.ListTiers(svc.Tiers, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
					r.Post("/", expirycontrollers.CreateTier(svc.Tiers, logg))
					r.Put("/{tierId}", expirycontrollers.UpdateTier(svc.Tiers, logg))
					r.Post("/{tierId}/toggle", expirycontrollers.ToggleTier(svc.Tiers, logg))
					r.Delete("/{tierId}", expirycontrollers.DeleteTier(svc.Tiers, logg))
				})
			})
		})

		r.Route("/quarantine/cases", func(r chi.Router) {
			r.Get("/", quarantinecontrollers.ListCases(svc.Quarantine, logg))
			r.Get("/{caseId}", quarantinecontrollers.GetCase(svc.Quarantine, logg))
			r.Get("/{caseId}/history", quarantinecontrollers.GetCaseHistory(svc.Quarantine, logg))
			r.With(middleware.RequireRole(logg, staffRoles...)).Post("/", quarantinecontrollers.CreateCase(svc.Quarantine, logg))
			r.With(middleware.RequireRole(logg, dispositionRole...)).Post("/{caseId}/actions", quarantinecontrollers.ProcessAction(svc.Quarantine, logg))
		})
	})

	return r
}

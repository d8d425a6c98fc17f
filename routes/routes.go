package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/emr-gateway/app"
	"github.com/upb/emr-gateway/apperr"
	"github.com/upb/emr-gateway/auth"
	"github.com/upb/emr-gateway/handlers"
	"github.com/upb/emr-gateway/middleware"
	"github.com/upb/emr-gateway/services"
	"github.com/upb/emr-gateway/utils"
)

// SetupRoutes configures all application routes and middleware.
// deps.AuthMiddleware must be set; every /api/v1 route except login sits
// behind it.
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()
	logger := deps.Logger

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}
	r.Use(middleware.Recovery(logger))
	if timeout := deps.Config.Server.RequestTimeout; timeout > 0 {
		r.Use(middleware.Timeout(timeout, logger))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           deps.Config.CORS.MaxAge,
	}))

	// A typed nil *postgres.DB must not reach the handler as a non-nil interface.
	var db handlers.HealthChecker
	if deps.DB != nil {
		db = deps.DB
	}
	health := handlers.NewHealthHandler(db, logger)
	r.Get("/healthz", health.HandleLiveness)
	r.Get("/readyz", health.HandleReadiness)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, deps.Config.Observability.MetricsPath, deps.Metrics.Handler())
	}

	authH := handlers.NewAuthHandler(deps.UserService, logger)
	userH := handlers.NewUserHandler(deps.UserService, logger)
	permH := handlers.NewPermissionHandler(deps.PermissionService, logger)
	recordH := handlers.NewRecordHandler(deps.RecordService, deps.PermissionService, logger)
	auditH := handlers.NewAuditHandler(deps.AuditLogs, logger)

	schema := utils.NewStructSchema()
	protect := deps.AuthMiddleware.Protect

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.ValidateBody[services.LoginInput](schema, logger)).
				Post("/login", authH.HandleLogin)
			r.With(protect()).Get("/me", authH.HandleMe)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(protect(auth.RoleAdmin)).Get("/", userH.HandleList)
			r.With(
				protect(auth.RoleAdmin),
				middleware.ValidateBody[services.CreateUserInput](schema, logger),
			).Post("/", userH.HandleCreate)
			r.With(protect(auth.RoleAdmin, auth.RoleDoctor)).Get("/{id}", userH.HandleGet)
		})

		r.Route("/records", func(r chi.Router) {
			r.With(
				protect(auth.RoleAdmin, auth.RoleDoctor),
				middleware.ValidateBody[services.RecordInput](schema, logger),
			).Post("/", recordH.HandleCreate)
			r.With(protect()).Get("/{id}", recordH.HandleGet)
		})

		r.Route("/permissions", func(r chi.Router) {
			r.Use(protect())
			r.With(middleware.ValidateBody[services.PermissionCheckInput](schema, logger)).
				Post("/check", permH.HandleCheck)

			r.Route("/grants", func(r chi.Router) {
				r.Get("/", permH.HandleListGrants)
				r.With(middleware.ValidateBody[services.GrantInput](schema, logger)).
					Post("/", permH.HandleGrant)
				r.Delete("/{recordId}/{granteeId}", permH.HandleRevoke)
			})
		})

		r.Route("/audit", func(r chi.Router) {
			r.Use(protect(auth.RoleAdmin))
			r.Get("/logs", auditH.HandleList)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteError(w, r, apperr.NotFound("Endpoint not found"), logger)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteError(w, r, apperr.New(http.StatusMethodNotAllowed, "Method not allowed"), logger)
	})

	return r
}

package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-push-gateway/internal/application/dispatch"
	"github.com/go-push-gateway/internal/application/history"
	"github.com/go-push-gateway/internal/application/registry"
	"github.com/go-push-gateway/internal/application/scheduler"
	"github.com/go-push-gateway/internal/application/template"
	"github.com/go-push-gateway/internal/config"
	"github.com/go-push-gateway/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-push-gateway/internal/infrastructure/jwt"
	"github.com/go-push-gateway/internal/infrastructure/smtp"
	snsinfra "github.com/go-push-gateway/internal/infrastructure/sns"
	"github.com/go-push-gateway/internal/transport/http/handler"
	appmiddleware "github.com/go-push-gateway/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	TokenRepo        *dynamo.TokenRepo
	TemplateRepo     *dynamo.TemplateRepo
	NotificationRepo *dynamo.NotificationRepo
	Provider         dispatch.PushProvider // nil when no credential configured
	Mailer           smtp.Mailer
	SMSSender        snsinfra.SMSSender
	JWTProvider      *jwtinfra.Provider
	Logger           *slog.Logger
}

// Services bundles the application services the router wires up, so main can
// hand the scheduler its background loop.
type Services struct {
	Registry   registry.Service
	Templates  template.Service
	Dispatcher dispatch.Service
	Scheduler  scheduler.Service
	History    history.Service
}

// NewServices builds the application layer from infrastructure deps.
func NewServices(deps *Deps) *Services {
	registrySvc := registry.NewService(deps.TokenRepo)
	templateSvc := template.NewService(deps.TemplateRepo)
	dispatchSvc := dispatch.NewService(dispatch.Deps{
		Registry:  registrySvc,
		Renderer:  templateSvc,
		Log:       deps.NotificationRepo,
		Provider:  deps.Provider,
		Mailer:    deps.Mailer,
		SMSSender: deps.SMSSender,
		Logger:    deps.Logger,
	})
	return &Services{
		Registry:   registrySvc,
		Templates:  templateSvc,
		Dispatcher: dispatchSvc,
		Scheduler:  scheduler.NewService(deps.NotificationRepo, dispatchSvc, deps.Logger),
		History:    history.NewService(deps.NotificationRepo, deps.TokenRepo, deps.TemplateRepo),
	}
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps, svcs *Services) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10. Registration is the only endpoint
	// exposed to unauthenticated app traffic spikes.
	registerRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	deviceH := handler.NewDeviceHandler(svcs.Registry)
	notifH := handler.NewNotificationHandler(svcs.Dispatcher, svcs.Scheduler, svcs.History)
	templateH := handler.NewTemplateHandler(svcs.Templates)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.With(registerRL.Limit).Post("/devices", deviceH.Register)
			r.Get("/devices", deviceH.List)
			r.Delete("/devices/{token}", deviceH.Unregister)

			r.Post("/notifications/send", notifH.Send)
			r.Post("/notifications/bulk", notifH.SendBulk)
			r.Post("/notifications/template", notifH.SendTemplate)
			r.Post("/notifications/template/email", notifH.SendEmailTemplate)
			r.Post("/notifications/template/sms", notifH.SendSMSTemplate)
			r.Post("/notifications/schedule", notifH.Schedule)
			r.Get("/notifications", notifH.History)
			r.Put("/notifications/{id}/read", notifH.MarkRead)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole("admin"))

				r.Get("/notifications/stats", notifH.Stats)

				r.Post("/templates", templateH.Create)
				r.Get("/templates", templateH.List)
				r.Get("/templates/{id}", templateH.Get)
				r.Put("/templates/{id}", templateH.Update)
				r.Delete("/templates/{id}", templateH.Delete)
			})
		})
	})

	return r
}

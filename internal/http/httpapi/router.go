package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"sqlexpansion/internal/http/handlers"
	"sqlexpansion/internal/middleware"
)

// RouterOptions configures the middleware stack around the API.
type RouterOptions struct {
	Logger             zerolog.Logger
	RateLimitPerMin    int
	CORSAllowedOrigins []string
	// JWTSecret enables bearer authentication on /v1/sql-expansions when set.
	JWTSecret     string
	DefaultLocale string
	CountryLookup middleware.CountryLookup
}

func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSAllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/stats", app.Stats)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	r.Route("/v1/sql-expansions", func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		if opts.JWTSecret != "" {
			r.Use(middleware.AuthJWT(opts.JWTSecret))
		}
		r.Post("/", app.StartSQLExpansion)
		r.Patch("/{query_id}", app.StopSQLExpansion)
		r.Get("/{query_id}/result", app.SQLExpansionResult)
		r.Get("/{query_id}/events", app.SQLExpansionEvents)
	})

	return r
}

package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	authhandler "screener/internal/auth/handler"
	rlhandler "screener/internal/ratelimit/handler"
	rlmiddleware "screener/internal/ratelimit/middleware"
	screeninghandler "screener/internal/screening/handler"
	"screener/pkg/platform/middleware/admin"
	authmw "screener/pkg/platform/middleware/auth"
	"screener/pkg/platform/middleware/metadata"
	"screener/pkg/platform/middleware/requestid"
	"screener/pkg/platform/middleware/requesttime"
)

// Deps are the handlers and guards the router composes.
type Deps struct {
	Screening     *screeninghandler.Handler
	RateLimit     *rlhandler.Handler
	Auth          *authhandler.Handler
	Authenticator authmw.Authenticator
	Limiter       *rlmiddleware.Middleware
	AdminToken    string
	// Metrics serves /metrics when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

// NewRouter wires every endpoint. Health and metrics are public, search
// routes need an API key and are rate limited, the rate-limit status route
// needs an API key only, and operator routes need the admin token.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	d.Screening.RegisterPublic(r)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Group(func(authed chi.Router) {
		authed.Use(authmw.RequireAPIKey(d.Authenticator, d.Logger))
		d.RateLimit.Register(authed)

		authed.Group(func(limited chi.Router) {
			limited.Use(d.Limiter.RateLimit)
			d.Screening.Register(limited)
		})
	})

	r.Group(func(ops chi.Router) {
		ops.Use(admin.RequireAdminToken(d.AdminToken, d.Logger))
		d.Auth.RegisterAdmin(ops)
		d.RateLimit.RegisterAdmin(ops)
	})

	return r
}

package auth

import (
	"context"
	"log/slog"
	"net/http"

	dErrors "screener/pkg/domain-errors"
	"screener/pkg/platform/httputil"
	"screener/pkg/requestcontext"
)

// HeaderAPIKey carries the caller's credential.
const HeaderAPIKey = "X-API-KEY"

// Authenticator resolves an API key to its owner's display name.
type Authenticator interface {
	Authenticate(ctx context.Context, apiKey string) (string, error)
}

// RequireAPIKey rejects requests without a valid, active API key and stores
// the verified credential in the request context.
func RequireAPIKey(authenticator Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			apiKey := r.Header.Get(HeaderAPIKey)

			owner, err := authenticator.Authenticate(ctx, apiKey)
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
					w.Header().Set("WWW-Authenticate", "ApiKey")
				}
				if dErrors.HasCode(err, dErrors.CodeInternal) {
					logger.ErrorContext(ctx, "failed to verify api key",
						"error", err,
						"request_id", requestcontext.RequestID(ctx),
					)
				}
				httputil.WriteError(w, err)
				return
			}

			ctx = requestcontext.WithCredential(ctx, apiKey, owner)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

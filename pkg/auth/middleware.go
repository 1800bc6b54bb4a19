package auth

import (
	"log/slog"
	"net/http"

	"github.com/rhuss/keygate/pkg/observability"
	"github.com/rhuss/keygate/pkg/transport"
)

// Middleware creates HTTP middleware from a Gate. Every request gets its
// own copy of base; the gate may rewrite that copy, and the result is
// stored in the request context for downstream handlers.
func Middleware(gate *Gate, base Environment) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			env := base
			out := gate.Authenticate(r.Context(), r, &env)

			code := ""
			if out.Err != nil {
				code = out.Err.Code
			}
			observability.AuthDecisionsTotal.WithLabelValues(out.State.String(), code).Inc()

			if !out.Allowed() {
				slog.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"code", code,
					"request_id", transport.RequestIDFromContext(r.Context()),
				)
				transport.WriteAPIError(w, out.Err)
				return
			}

			slog.Debug("authentication succeeded",
				"state", out.State.String(),
				"path", r.URL.Path,
				"project_id", env.ProjectID,
			)

			next.ServeHTTP(w, r.WithContext(WithEnvironment(r.Context(), env)))
		})
	}
}

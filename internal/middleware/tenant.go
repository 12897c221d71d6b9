package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	sgotel "github.com/sitegrove/sitegrove/internal/adapter/otel"
	"github.com/sitegrove/sitegrove/internal/domain"
)

type tenantCtxKey struct{}

// HostResolver is the subset of the hostname resolver the middleware needs.
type HostResolver interface {
	Resolve(ctx context.Context, hostname string) (string, error)
}

// ResolveTenant is middleware that maps the request's Host header to a
// tenant id and stores it in the context. Unknown hosts get a 404;
// resolution-time upstream failures get a 503 and are never guessed
// around. m may be nil when telemetry is disabled.
func ResolveTenant(res HostResolver, m *sgotel.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m != nil {
				m.Resolutions.Add(r.Context(), 1)
			}
			tenantID, err := res.Resolve(r.Context(), r.Host)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					if m != nil {
						m.ResolveNotFound.Add(r.Context(), 1)
					}
					writeJSONError(w, http.StatusNotFound, "no such tenant")
					return
				}
				slog.Error("tenant resolution failed", "host", r.Host, "error", err)
				writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
				return
			}

			ctx := context.WithValue(r.Context(), tenantCtxKey{}, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantIDFromContext returns the resolved tenant id stored in ctx.
// ok is false when no resolution ran for this request.
func TenantIDFromContext(ctx context.Context) (string, bool) {
	tid, ok := ctx.Value(tenantCtxKey{}).(string)
	return tid, ok
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

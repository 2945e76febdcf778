package router

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/shandysiswandi/gettoken/internal/pkg/jwt"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}

// middlewareAuthentication verifies the bearer token on every route not listed
// in public and stores the administrator claims in the request context.
func middlewareAuthentication(verifier jwt.JWT, public map[string][]string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(public[r.Method], matchedRoutePath(r)) {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeJSON(w, errorResponse{Message: "Authentication required"}, http.StatusUnauthorized)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				slog.WarnContext(r.Context(), "rejected bearer token", "route", matchedRoutePath(r), "error", err)
				writeJSON(w, errorResponse{Message: "Invalid or expired token"}, http.StatusUnauthorized)
				return
			}

			trace.SpanFromContext(r.Context()).SetAttributes(
				attribute.String("gettoken.admin", claims.Admin()),
				attribute.String("gettoken.admin_realm", claims.AdminRealm),
			)

			next.ServeHTTP(w, r.WithContext(jwt.SetAuth(r.Context(), claims)))
		})
	}
}

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/surtidora/api/internal/access"
	"github.com/surtidora/api/internal/auth"
	"github.com/surtidora/api/internal/enum"
)

type contextKey string

const (
	claimsKey  contextKey = "claims"
	profileKey contextKey = "profile"
)

// Identify attaches the caller's claims to the context when a bearer token is
// present. Requests without an Authorization header pass through as
// anonymous; a malformed or invalid token is rejected.
func Identify(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid authorization format"})
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, parts[1])
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRouteClass resolves the caller's profile and lets the request
// through only if the policy allows that profile on class. Anonymous callers
// get 401 with the login route; signed-in callers without access get 403
// with their home route.
func RequireRouteClass(policy access.Policy, class string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile := policy.ResolveProfile(ClaimsFromContext(r.Context()).Identity())

			decision := policy.Authorize(profile, class)
			if !decision.Allowed {
				status, msg := http.StatusForbidden, "insufficient permissions"
				if profile == enum.ProfileNone {
					status, msg = http.StatusUnauthorized, "not authenticated"
				}
				writeJSON(w, status, map[string]string{"error": msg, "redirect": decision.Redirect})
				return
			}

			ctx := context.WithValue(r.Context(), profileKey, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// ProfileFromContext returns the profile resolved by RequireRouteClass, or
// enum.ProfileNone outside a guarded route.
func ProfileFromContext(ctx context.Context) string {
	if profile, ok := ctx.Value(profileKey).(string); ok {
		return profile
	}
	return enum.ProfileNone
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

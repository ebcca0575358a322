package common

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const userIDKey ctxKey = "identity/user-id"

// UserIDHeader is the header the auth gateway forwards the resolved customer
// identity in. Session handling itself lives outside this service.
const UserIDHeader = "X-User-ID"

// WithUserID stores the authenticated user identifier on the provided context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID extracts the authenticated user identifier from the context if present.
func UserID(ctx context.Context) (string, bool) {
	v := ctx.Value(userIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// IdentityMiddleware copies the forwarded user id header onto the request
// context. It does not reject anonymous requests; handlers that require a
// customer use RequireUser.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(UserIDHeader)); id != "" {
			r = r.WithContext(WithUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser rejects requests without a forwarded user identity.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := UserID(r.Context()); !ok || strings.TrimSpace(id) == "" {
			JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "user identity required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// MemberIDKey is the context key for storing the authenticated member ID.
	MemberIDKey contextKey = "member_id"
	// MemberNameKey is the context key for storing the authenticated member's name.
	MemberNameKey contextKey = "member_name"
)

// MemberID extracts the authenticated member ID from the context.
// Returns uuid.Nil if the request was not authenticated.
func MemberID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(MemberIDKey).(uuid.UUID)
	return id
}

// MemberName extracts the authenticated member's name from the context.
func MemberName(ctx context.Context) string {
	name, _ := ctx.Value(MemberNameKey).(string)
	return name
}

// RequireAuth validates the Bearer token on every request and adds the
// member identity to the request context. Requests without a valid token
// are rejected with 401.
func RequireAuth(jwtManager *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, ErrMissingToken.Error(), http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, ErrInvalidToken.Error(), http.StatusUnauthorized)
				return
			}

			claims, err := jwtManager.Validate(parts[1])
			if err != nil {
				http.Error(w, ErrInvalidToken.Error(), http.StatusUnauthorized)
				return
			}

			memberID, err := claims.MemberUUID()
			if err != nil {
				http.Error(w, ErrInvalidToken.Error(), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), MemberIDKey, memberID)
			ctx = context.WithValue(ctx, MemberNameKey, claims.Name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

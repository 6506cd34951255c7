package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"horizon/internal/domain/user"
)

type contextKey string

const userKey contextKey = "user"

// SessionResolver maps a session secret to the signed-in user.
type SessionResolver interface {
	CurrentUser(ctx context.Context, secret string) (*user.User, error)
}

// SessionToken reads the session from the cookie first (browsers) and the
// Authorization header second (API clients).
func SessionToken(r *http.Request, cookieName string) string {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || scheme != "Bearer" {
		return ""
	}
	return strings.TrimSpace(token)
}

func Auth(resolver SessionResolver, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r, cookieName)
			if token == "" {
				RespondWithError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			u, err := resolver.CurrentUser(r.Context(), token)
			if err != nil {
				if errors.Is(err, user.ErrSessionInvalid) || errors.Is(err, user.ErrUserNotFound) {
					RespondWithError(w, http.StatusUnauthorized, "Invalid or expired session")
					return
				}
				log.Printf("Error resolving session: %v", err)
				RespondWithError(w, http.StatusServiceUnavailable, "Identity provider unavailable")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userKey).(*user.User)
	return u, ok && u != nil
}

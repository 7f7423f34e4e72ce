package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/farmercorner/motor-dashboard/internal/domain"
	"github.com/farmercorner/motor-dashboard/internal/service"
	"github.com/google/uuid"
)

type contextKey string

const (
	IdentityKey contextKey = "identity"
)

// Identity is what the session gate attaches to an authenticated request.
type Identity struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
	// Token is the raw cookie value, kept so logout can destroy this session.
	Token string
}

// Sessions is the part of service.SessionManager the gate needs.
type Sessions interface {
	Validate(ctx context.Context, token string) (*domain.Session, error)
}

var _ Sessions = (*service.SessionManager)(nil)

// RequireSession rejects requests without a valid session cookie with 401 and
// never calls next for them.
func RequireSession(sessions Sessions, cookieName string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				writeUnauthorized(w)
				return
			}

			session, err := sessions.Validate(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, domain.ErrUnauthorized) {
					writeUnauthorized(w)
					return
				}
				log.ErrorContext(r.Context(), "session validation failed", "error", err)
				writeMessage(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, Identity{
				UserID:    session.UserID,
				SessionID: session.ID,
				Token:     cookie.Value,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetIdentity(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(Identity)
	return identity, ok
}

func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	identity, ok := GetIdentity(ctx)
	return identity.UserID, ok
}

// WithIdentity returns ctx carrying identity. Used by tests that call handlers
// directly.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

func writeUnauthorized(w http.ResponseWriter) {
	writeMessage(w, http.StatusUnauthorized, "Unauthorized")
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

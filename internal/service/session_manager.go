package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/farmercorner/motor-dashboard/internal/domain"
	"github.com/farmercorner/motor-dashboard/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

const sessionTokenBytes = 32

// ClientInfo is recorded alongside a new session.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// IssuedSession carries the signed cookie value that identifies Session. The
// token is only ever held by the client; the store keeps its digest.
type IssuedSession struct {
	Token   string
	Session *domain.Session
}

// SessionManager issues, validates and destroys server-side sessions. The
// client holds an HS256-signed JWT whose jti is a random token; the store
// holds the SHA-256 of that token.
type SessionManager struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	log      *slog.Logger
}

type SessionOption func(*SessionManager)

// WithClock overrides time.Now for expiry decisions.
func WithClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) { m.now = now }
}

func WithSessionLogger(log *slog.Logger) SessionOption {
	return func(m *SessionManager) { m.log = log }
}

func NewSessionManager(sessions repository.SessionRepository, users repository.UserRepository, secret string, ttl time.Duration, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		sessions: sessions,
		users:    users,
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

func (m *SessionManager) Create(ctx context.Context, userID uuid.UUID, client ClientInfo) (*IssuedSession, error) {
	raw, err := randomToken()
	if err != nil {
		return nil, oops.Code("SESSION_TOKEN_GENERATE_FAILED").Wrap(err)
	}

	now := m.now().UTC()
	session := &domain.Session{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: hashToken(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if client.UserAgent != "" || client.IPAddress != "" {
		session.Metadata = map[string]interface{}{
			domain.SessionMetaUserAgent: client.UserAgent,
			domain.SessionMetaIPAddress: client.IPAddress,
		}
	}

	claims := jwt.RegisteredClaims{
		ID:        raw,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, oops.Code("SESSION_SIGN_FAILED").Wrap(err)
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return &IssuedSession{Token: signed, Session: session}, nil
}

// Validate resolves token to a live session. Missing, forged, unknown and
// expired tokens, as well as sessions whose user no longer exists, all
// yield domain.ErrUnauthorized. Any other error is a store failure.
func (m *SessionManager) Validate(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}

	claims, err := m.parse(token, true)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && claims != nil {
			m.discard(ctx, hashToken(claims.ID), "expired")
		}
		return nil, domain.ErrUnauthorized
	}

	hash := hashToken(claims.ID)
	session, err := m.sessions.GetByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}

	if session.IsExpiredAt(m.now()) {
		m.discard(ctx, hash, "expired")
		return nil, domain.ErrUnauthorized
	}
	if session.UserID.String() != claims.Subject {
		return nil, domain.ErrUnauthorized
	}

	if _, err := m.users.GetByID(ctx, session.UserID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			m.discard(ctx, hash, "user missing")
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}

	return session, nil
}

// Destroy removes the session behind token. Unknown, expired or unparseable
// tokens are a no-op; only a store failure is returned.
func (m *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := m.parse(token, false)
	if err != nil {
		return nil
	}
	return m.sessions.DeleteByTokenHash(ctx, hashToken(claims.ID))
}

// Sweep deletes every expired session.
func (m *SessionManager) Sweep(ctx context.Context) (int64, error) {
	return m.sessions.DeleteExpired(ctx, m.now())
}

// RunJanitor sweeps expired sessions every interval until ctx is done.
func (m *SessionManager) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.Sweep(ctx)
			if err != nil {
				m.log.Error("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				m.log.Info("expired sessions removed", "count", n)
			}
		}
	}
}

func (m *SessionManager) parse(token string, validateClaims bool) (*jwt.RegisteredClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if validateClaims {
		opts = append(opts, jwt.WithExpirationRequired())
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	// On a claims validation failure the signature has already been checked,
	// so claims are returned alongside the error.
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && claims.ID != "" {
			return claims, err
		}
		return nil, err
	}
	if claims.ID == "" {
		return nil, errors.New("session token has no id")
	}
	return claims, nil
}

func (m *SessionManager) discard(ctx context.Context, hash, reason string) {
	if err := m.sessions.DeleteByTokenHash(ctx, hash); err != nil {
		m.log.Warn("failed to discard invalid session", "reason", reason, "error", err)
	}
}

func randomToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

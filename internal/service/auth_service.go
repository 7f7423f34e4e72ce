package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/farmercorner/motor-dashboard/internal/domain"
	"github.com/farmercorner/motor-dashboard/internal/observability"
	"github.com/farmercorner/motor-dashboard/internal/repository"
	"github.com/google/uuid"
	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// dummyPassword is hashed once at startup so logins for unknown usernames
// still pay for a bcrypt comparison.
const dummyPassword = "not-a-real-password"

type AuthService struct {
	userRepo  repository.UserRepository
	sessions  *SessionManager
	hasher    PasswordHasher
	metrics   *observability.Metrics
	log       *slog.Logger
	dummyHash string
}

func NewAuthService(userRepo repository.UserRepository, sessions *SessionManager, hasher PasswordHasher, metrics *observability.Metrics, log *slog.Logger) (*AuthService, error) {
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, oops.Code("AUTH_INIT_FAILED").Wrap(err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{
		userRepo:  userRepo,
		sessions:  sessions,
		hasher:    hasher,
		metrics:   metrics,
		log:       log,
		dummyHash: dummyHash,
	}, nil
}

type RegisterInput struct {
	Username string
	Password string
}

type LoginInput struct {
	Username string
	Password string
	Client   ClientInfo
}

type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	creds := domain.Credentials{Username: input.Username, Password: input.Password}.Normalize()
	if err := creds.Validate(); err != nil {
		s.metrics.RecordAuth("register", observability.OutcomeRejected)
		return nil, err
	}

	hashedPassword, err := s.hasher.Hash(creds.Password)
	if err != nil {
		s.metrics.RecordAuth("register", observability.OutcomeError)
		return nil, oops.Code("AUTH_HASH_FAILED").Wrap(err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     creds.Username,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
	}

	// Uniqueness is the store's job; a concurrent duplicate surfaces here.
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateUsername) {
			s.metrics.RecordAuth("register", observability.OutcomeRejected)
			return nil, domain.ErrDuplicateUsername
		}
		s.metrics.RecordAuth("register", observability.OutcomeError)
		return nil, err
	}

	s.metrics.RecordAuth("register", observability.OutcomeSuccess)
	s.log.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login returns domain.ErrInvalidCredentials for both an unknown username and
// a wrong password.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	creds := domain.Credentials{Username: input.Username, Password: input.Password}.Normalize()
	if err := creds.Validate(); err != nil {
		s.metrics.RecordAuth("login", observability.OutcomeRejected)
		return nil, err
	}

	targetHash := s.dummyHash
	user, err := s.userRepo.GetByUsername(ctx, creds.Username)
	switch {
	case err == nil:
		targetHash = user.PasswordHash
	case errors.Is(err, domain.ErrUserNotFound):
		user = nil
	default:
		s.metrics.RecordAuth("login", observability.OutcomeError)
		return nil, err
	}

	if err := s.hasher.Compare(targetHash, creds.Password); err != nil || user == nil {
		if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.log.Warn("password comparison failed", "error", err)
		}
		s.metrics.RecordAuth("login", observability.OutcomeRejected)
		return nil, domain.ErrInvalidCredentials
	}

	issued, err := s.sessions.Create(ctx, user.ID, input.Client)
	if err != nil {
		s.metrics.RecordAuth("login", observability.OutcomeError)
		return nil, err
	}

	s.metrics.RecordAuth("login", observability.OutcomeSuccess)
	return &LoginResult{
		User:      user,
		Token:     issued.Token,
		ExpiresAt: issued.Session.ExpiresAt,
	}, nil
}

// Logout destroys the session behind token. The returned error wraps
// domain.ErrLogoutFailed.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Destroy(ctx, token); err != nil {
		s.metrics.RecordAuth("logout", observability.OutcomeError)
		return errors.Join(domain.ErrLogoutFailed, err)
	}
	s.metrics.RecordAuth("logout", observability.OutcomeSuccess)
	return nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

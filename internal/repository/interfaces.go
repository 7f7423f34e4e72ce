package repository

import (
	"context"
	"time"

	"github.com/farmercorner/motor-dashboard/internal/domain"
	"github.com/google/uuid"
)

// UserRepository is the credential store. Create must enforce username
// uniqueness atomically and report a collision as domain.ErrDuplicateUsername.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	// DeleteByTokenHash succeeds when no session matches.
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ActivityRepository is the append-only activity log. Recent* return records
// newest first; records with equal timestamps come back in reverse insertion
// order.
type ActivityRepository interface {
	RecordMotorActivity(ctx context.Context, activity *domain.MotorActivity) error
	RecordPhaseDetection(ctx context.Context, detection *domain.PhaseDetection) error
	RecentMotorActivities(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.MotorActivity, error)
	RecentPhaseDetections(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.PhaseDetection, error)
}

type Repositories struct {
	User     UserRepository
	Session  SessionRepository
	Activity ActivityRepository

	// Close releases the underlying connection. May be nil.
	Close func(ctx context.Context) error
}

// Shutdown calls Close when set.
func (r *Repositories) Shutdown(ctx context.Context) error {
	if r.Close == nil {
		return nil
	}
	return r.Close(ctx)
}

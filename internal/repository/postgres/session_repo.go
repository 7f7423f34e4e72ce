package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/farmercorner/motor-dashboard/internal/domain"
	"github.com/google/uuid"
	"github.com/samber/oops"
	"gorm.io/gorm"
)

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *sessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return oops.Code("SESSION_CREATE_FAILED").With("user_id", session.UserID.String()).Wrap(err)
	}
	return nil
}

func (r *sessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	var session domain.Session
	err := r.db.WithContext(ctx).First(&session, "token_hash = ?", tokenHash).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, oops.Code("SESSION_LOOKUP_FAILED").Wrap(err)
	}
	return &session, nil
}

func (r *sessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	err := r.db.WithContext(ctx).Delete(&domain.Session{}, "token_hash = ?", tokenHash).Error
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").Wrap(err)
	}
	return nil
}

func (r *sessionRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	err := r.db.WithContext(ctx).Delete(&domain.Session{}, "user_id = ?", userID).Error
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return nil
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&domain.Session{}, "expires_at <= ?", now)
	if res.Error != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").Wrap(res.Error)
	}
	return res.RowsAffected, nil
}

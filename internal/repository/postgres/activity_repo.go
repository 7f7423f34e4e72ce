package postgres

import (
	"context"

	"github.com/farmercorner/motor-dashboard/internal/domain"
	"github.com/google/uuid"
	"github.com/samber/oops"
	"gorm.io/gorm"
)

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *activityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) RecordMotorActivity(ctx context.Context, activity *domain.MotorActivity) error {
	if err := r.db.WithContext(ctx).Create(activity).Error; err != nil {
		return oops.Code("MOTOR_ACTIVITY_WRITE_FAILED").With("user_id", activity.UserID.String()).Wrap(err)
	}
	return nil
}

func (r *activityRepository) RecordPhaseDetection(ctx context.Context, detection *domain.PhaseDetection) error {
	if err := r.db.WithContext(ctx).Create(detection).Error; err != nil {
		return oops.Code("PHASE_DETECTION_WRITE_FAILED").With("user_id", detection.UserID.String()).Wrap(err)
	}
	return nil
}

func (r *activityRepository) RecentMotorActivities(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.MotorActivity, error) {
	var activities []*domain.MotorActivity
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&activities).Error
	if err != nil {
		return nil, oops.Code("MOTOR_ACTIVITY_QUERY_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return activities, nil
}

func (r *activityRepository) RecentPhaseDetections(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.PhaseDetection, error) {
	var detections []*domain.PhaseDetection
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&detections).Error
	if err != nil {
		return nil, oops.Code("PHASE_DETECTION_QUERY_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return detections, nil
}

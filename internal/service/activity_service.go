package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/farmercorner/motor-dashboard/internal/domain"
	"github.com/farmercorner/motor-dashboard/internal/observability"
	"github.com/farmercorner/motor-dashboard/internal/repository"
	"github.com/google/uuid"
)

// Activity record kinds, used as metric labels.
const (
	KindMotor = "motor"
	KindPhase = "phase"
)

// ActivityPublisher fans recorded events out to live subscribers. It must not
// block.
type ActivityPublisher interface {
	PublishMotorActivity(activity *domain.MotorActivity)
	PublishPhaseDetection(detection *domain.PhaseDetection)
}

// ActivityService writes and reads the per-user activity log. Writes are
// best-effort: a failed write is logged and counted, never returned, so it
// cannot fail the request that triggered it.
type ActivityService struct {
	repo         repository.ActivityRepository
	publisher    ActivityPublisher
	metrics      *observability.Metrics
	log          *slog.Logger
	defaultLimit int
	maxLimit     int
}

func NewActivityService(repo repository.ActivityRepository, publisher ActivityPublisher, metrics *observability.Metrics, log *slog.Logger, defaultLimit, maxLimit int) *ActivityService {
	if log == nil {
		log = slog.Default()
	}
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &ActivityService{
		repo:         repo,
		publisher:    publisher,
		metrics:      metrics,
		log:          log,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// ResolveLimit maps a requested limit onto [1, maxLimit]; zero or negative
// selects the default.
func (s *ActivityService) ResolveLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

func (s *ActivityService) RecordMotorActivity(ctx context.Context, userID uuid.UUID, status bool, at time.Time) {
	activity := &domain.MotorActivity{UserID: userID, Status: status, Timestamp: at}
	if err := s.repo.RecordMotorActivity(ctx, activity); err != nil {
		s.metrics.RecordActivityWrite(KindMotor, observability.OutcomeError)
		s.log.Error("failed to record motor activity", "user_id", userID, "error", err)
		return
	}
	s.metrics.RecordActivityWrite(KindMotor, observability.OutcomeSuccess)
	if s.publisher != nil {
		s.publisher.PublishMotorActivity(activity)
	}
}

func (s *ActivityService) RecordPhaseDetection(ctx context.Context, userID uuid.UUID, activePhase int, at time.Time) {
	if err := domain.ValidatePhase(activePhase); err != nil {
		s.metrics.RecordActivityWrite(KindPhase, observability.OutcomeRejected)
		s.log.Warn("dropping phase detection", "user_id", userID, "active_phase", activePhase)
		return
	}

	detection := &domain.PhaseDetection{UserID: userID, ActivePhase: activePhase, Timestamp: at}
	if err := s.repo.RecordPhaseDetection(ctx, detection); err != nil {
		s.metrics.RecordActivityWrite(KindPhase, observability.OutcomeError)
		s.log.Error("failed to record phase detection", "user_id", userID, "error", err)
		return
	}
	s.metrics.RecordActivityWrite(KindPhase, observability.OutcomeSuccess)
	if s.publisher != nil {
		s.publisher.PublishPhaseDetection(detection)
	}
}

func (s *ActivityService) RecentMotorActivities(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.MotorActivity, error) {
	return s.repo.RecentMotorActivities(ctx, userID, s.ResolveLimit(limit))
}

func (s *ActivityService) RecentPhaseDetections(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.PhaseDetection, error) {
	return s.repo.RecentPhaseDetections(ctx, userID, s.ResolveLimit(limit))
}

// LatestMotorActivity returns nil when the user has never toggled the motor.
func (s *ActivityService) LatestMotorActivity(ctx context.Context, userID uuid.UUID) (*domain.MotorActivity, error) {
	activities, err := s.repo.RecentMotorActivities(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(activities) == 0 {
		return nil, nil
	}
	return activities[0], nil
}

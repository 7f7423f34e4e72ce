package service

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/farmercorner/motor-dashboard/internal/domain"
	"github.com/google/uuid"
)

// PhaseDetector reports the active electrical phase (1, 2 or 3).
type PhaseDetector interface {
	Detect(ctx context.Context) (int, error)
}

// MotorController switches the pump motor and reports the resulting state.
type MotorController interface {
	SetStatus(ctx context.Context, on bool) (bool, error)
}

// RandomPhaseDetector stands in for a phase sensor.
type RandomPhaseDetector struct{}

func (RandomPhaseDetector) Detect(context.Context) (int, error) {
	return domain.MinPhase + rand.IntN(domain.MaxPhase-domain.MinPhase+1), nil
}

// SimulatedMotor stands in for the relay driver and always reaches the
// requested state.
type SimulatedMotor struct{}

func (SimulatedMotor) SetStatus(_ context.Context, on bool) (bool, error) {
	return on, nil
}

// ControlService drives the (simulated) hardware and logs what it did.
type ControlService struct {
	detector   PhaseDetector
	controller MotorController
	activity   *ActivityService
	now        func() time.Time
}

func NewControlService(detector PhaseDetector, controller MotorController, activity *ActivityService) *ControlService {
	return &ControlService{
		detector:   detector,
		controller: controller,
		activity:   activity,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *ControlService) ToggleMotor(ctx context.Context, userID uuid.UUID, status bool) (*domain.MotorActivity, error) {
	actual, err := s.controller.SetStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	at := s.now()
	s.activity.RecordMotorActivity(ctx, userID, actual, at)
	return &domain.MotorActivity{UserID: userID, Status: actual, Timestamp: at}, nil
}

func (s *ControlService) CheckPhase(ctx context.Context, userID uuid.UUID) (*domain.PhaseDetection, error) {
	phase, err := s.detector.Detect(ctx)
	if err != nil {
		return nil, err
	}
	at := s.now()
	s.activity.RecordPhaseDetection(ctx, userID, phase, at)
	return &domain.PhaseDetection{UserID: userID, ActivePhase: phase, Timestamp: at}, nil
}

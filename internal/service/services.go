package service

import (
	"log/slog"

	"github.com/farmercorner/motor-dashboard/internal/config"
	"github.com/farmercorner/motor-dashboard/internal/observability"
	"github.com/farmercorner/motor-dashboard/internal/repository"
)

type Services struct {
	Auth     *AuthService
	Sessions *SessionManager
	Activity *ActivityService
	Control  *ControlService
}

// Deps are the collaborators NewServices wires together. Detector and Motor
// default to the simulated implementations.
type Deps struct {
	Repos     *repository.Repositories
	Config    *config.Config
	Metrics   *observability.Metrics
	Publisher ActivityPublisher
	Detector  PhaseDetector
	Motor     MotorController
	Logger    *slog.Logger
}

func NewServices(d Deps) (*Services, error) {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	detector := d.Detector
	if detector == nil {
		detector = RandomPhaseDetector{}
	}
	motor := d.Motor
	if motor == nil {
		motor = SimulatedMotor{}
	}

	sessions := NewSessionManager(d.Repos.Session, d.Repos.User, d.Config.SessionSecret, d.Config.SessionTTL,
		WithSessionLogger(log.With("component", "sessions")))

	auth, err := NewAuthService(d.Repos.User, sessions, NewBcryptHasher(d.Config.BcryptCost), d.Metrics, log.With("component", "auth"))
	if err != nil {
		return nil, err
	}

	activity := NewActivityService(d.Repos.Activity, d.Publisher, d.Metrics, log.With("component", "activity"),
		d.Config.ActivityDefaultLimit, d.Config.ActivityMaxLimit)

	return &Services{
		Auth:     auth,
		Sessions: sessions,
		Activity: activity,
		Control:  NewControlService(detector, motor, activity),
	}, nil
}

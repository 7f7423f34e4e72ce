package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinPhase = 1
	MaxPhase = 3
)

// MotorActivity is an append-only record of a motor toggle.
type MotorActivity struct {
	ID        uint64    `json:"-" gorm:"primaryKey;autoIncrement"`
	UserID    uuid.UUID `json:"-" gorm:"type:uuid;not null;index:idx_motor_user_time,priority:1"`
	Status    bool      `json:"status"`
	Timestamp time.Time `json:"timestamp" gorm:"not null;index:idx_motor_user_time,priority:2"`
}

// PhaseDetection is an append-only record of a phase check.
type PhaseDetection struct {
	ID          uint64    `json:"-" gorm:"primaryKey;autoIncrement"`
	UserID      uuid.UUID `json:"-" gorm:"type:uuid;not null;index:idx_phase_user_time,priority:1"`
	ActivePhase int       `json:"activePhase" gorm:"not null"`
	Timestamp   time.Time `json:"timestamp" gorm:"not null;index:idx_phase_user_time,priority:2"`
}

func ValidatePhase(phase int) error {
	if phase < MinPhase || phase > MaxPhase {
		return NewValidationError("activePhase", "activePhase must be 1, 2 or 3")
	}
	return nil
}

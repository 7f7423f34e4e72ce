package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Session metadata keys.
const (
	SessionMetaUserAgent = "user_agent"
	SessionMetaIPAddress = "ip_address"
)

// Session is a server-side login. Only the SHA-256 digest of the token handed
// to the client is persisted.
type Session struct {
	ID        uuid.UUID         `json:"id" gorm:"type:uuid;primary_key"`
	UserID    uuid.UUID         `json:"userId" gorm:"type:uuid;not null;index"`
	TokenHash string            `json:"-" gorm:"uniqueIndex;not null"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	ExpiresAt time.Time         `json:"expiresAt" gorm:"not null;index"`
}

func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// Package memory is the fallback storage used when no durable store is
// configured. All state sits behind a single RWMutex so the repositories are
// safe for concurrent handlers.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/farmercorner/motor-dashboard/internal/domain"
	"github.com/farmercorner/motor-dashboard/internal/repository"
	"github.com/google/uuid"
)

type Store struct {
	mu sync.RWMutex

	users      map[uuid.UUID]*domain.User
	usernames  map[string]uuid.UUID
	sessions   map[string]*domain.Session // keyed by token hash
	motor      map[uuid.UUID][]*domain.MotorActivity
	phases     map[uuid.UUID][]*domain.PhaseDetection
	nextRecord uint64
}

func NewStore() *Store {
	return &Store{
		users:     make(map[uuid.UUID]*domain.User),
		usernames: make(map[string]uuid.UUID),
		sessions:  make(map[string]*domain.Session),
		motor:     make(map[uuid.UUID][]*domain.MotorActivity),
		phases:    make(map[uuid.UUID][]*domain.PhaseDetection),
	}
}

func NewRepositories() *repository.Repositories {
	return NewStore().Repositories()
}

// UserCount returns the number of stored users with the given username.
func (s *Store) UserCount(username string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, u := range s.users {
		if u.Username == username {
			n++
		}
	}
	return n
}

// RemoveUser drops a user record without touching its sessions. The credential
// store interface has no delete; this exists for maintenance tooling and tests.
func (s *Store) RemoveUser(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		delete(s.usernames, u.Username)
		delete(s.users, id)
	}
}

func (s *Store) Users() *userRepository          { return (*userRepository)(s) }
func (s *Store) Sessions() *sessionRepository    { return (*sessionRepository)(s) }
func (s *Store) Activities() *activityRepository { return (*activityRepository)(s) }

func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		User:     s.Users(),
		Session:  s.Sessions(),
		Activity: s.Activities(),
	}
}

type userRepository Store

func (r *userRepository) Create(_ context.Context, user *domain.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usernames[user.Username]; taken {
		return domain.ErrDuplicateUsername
	}
	u := *user
	s.users[u.ID] = &u
	s.usernames[u.Username] = u.ID
	return nil
}

func (r *userRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *userRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernames[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

type sessionRepository Store

func (r *sessionRepository) Create(_ context.Context, session *domain.Session) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *session
	s.sessions[cp.TokenHash] = &cp
	return nil
}

func (r *sessionRepository) GetByTokenHash(_ context.Context, tokenHash string) (*domain.Session, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[tokenHash]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (r *sessionRepository) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, tokenHash)
	return nil
}

func (r *sessionRepository) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	for hash, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, hash)
		}
	}
	return nil
}

func (r *sessionRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for hash, sess := range s.sessions {
		if sess.IsExpiredAt(now) {
			delete(s.sessions, hash)
			n++
		}
	}
	return n, nil
}

type activityRepository Store

func (r *activityRepository) RecordMotorActivity(_ context.Context, activity *domain.MotorActivity) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextRecord++
	cp := *activity
	cp.ID = s.nextRecord
	s.motor[cp.UserID] = append(s.motor[cp.UserID], &cp)
	activity.ID = cp.ID
	return nil
}

func (r *activityRepository) RecordPhaseDetection(_ context.Context, detection *domain.PhaseDetection) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextRecord++
	cp := *detection
	cp.ID = s.nextRecord
	s.phases[cp.UserID] = append(s.phases[cp.UserID], &cp)
	detection.ID = cp.ID
	return nil
}

func (r *activityRepository) RecentMotorActivities(_ context.Context, userID uuid.UUID, limit int) ([]*domain.MotorActivity, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	return newestFirst(s.motor[userID], limit, func(a *domain.MotorActivity) time.Time { return a.Timestamp }), nil
}

func (r *activityRepository) RecentPhaseDetections(_ context.Context, userID uuid.UUID, limit int) ([]*domain.PhaseDetection, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	return newestFirst(s.phases[userID], limit, func(p *domain.PhaseDetection) time.Time { return p.Timestamp }), nil
}

package memory_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/farmercorner/motor-dashboard/internal/domain"
	"github.com/farmercorner/motor-dashboard/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(username string) *domain.User {
	return &domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	}
}

func TestUserRepository_Create(t *testing.T) {
	store := memory.NewStore()
	repo := store.Users()
	ctx := context.Background()

	tests := []struct {
		name    string
		user    *domain.User
		wantErr error
	}{
		{name: "successful creation", user: newUser("testuser")},
		{name: "duplicate username", user: newUser("testuser"), wantErr: domain.ErrDuplicateUsername},
		{name: "case differs", user: newUser("TestUser")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(ctx, tt.user)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	assert.Equal(t, 1, store.UserCount("testuser"))
}

func TestUserRepository_Lookups(t *testing.T) {
	store := memory.NewStore()
	repo := store.Users()
	ctx := context.Background()

	user := newUser("lookup_user")
	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, got.Username)

	got, err = repo.GetByUsername(ctx, "lookup_user")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	// Returned records are copies.
	got.Username = "mutated"
	again, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "lookup_user", again.Username)

	store.RemoveUser(user.ID)
	_, err = repo.GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepository_ConcurrentCreateSameUsername(t *testing.T) {
	store := memory.NewStore()
	repo := store.Users()
	ctx := context.Background()

	const attempts = 32
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		dupes     atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := repo.Create(ctx, newUser("racer"))
			switch {
			case err == nil:
				succeeded.Add(1)
			case err == domain.ErrDuplicateUsername:
				dupes.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(attempts-1), dupes.Load())
	assert.Equal(t, 1, store.UserCount("racer"))
}

func TestSessionRepository(t *testing.T) {
	repo := memory.NewStore().Sessions()
	ctx := context.Background()
	now := time.Now()
	userID := uuid.New()

	live := &domain.Session{ID: uuid.New(), UserID: userID, TokenHash: "live", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	stale := &domain.Session{ID: uuid.New(), UserID: userID, TokenHash: "stale", CreatedAt: now, ExpiresAt: now.Add(-time.Minute)}
	other := &domain.Session{ID: uuid.New(), UserID: uuid.New(), TokenHash: "other", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	for _, s := range []*domain.Session{live, stale, other} {
		require.NoError(t, repo.Create(ctx, s))
	}

	got, err := repo.GetByTokenHash(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)

	_, err = repo.GetByTokenHash(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = repo.GetByTokenHash(ctx, "stale")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	require.NoError(t, repo.DeleteByTokenHash(ctx, "live"))
	require.NoError(t, repo.DeleteByTokenHash(ctx, "live"), "delete is idempotent")

	require.NoError(t, repo.DeleteByUserID(ctx, other.UserID))
	_, err = repo.GetByTokenHash(ctx, "other")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestActivityRepository_RecentMotorActivities(t *testing.T) {
	repo := memory.NewStore().Activities()
	ctx := context.Background()
	userID := uuid.New()
	base := time.Now()

	for i := 0; i < 7; i++ {
		require.NoError(t, repo.RecordMotorActivity(ctx, &domain.MotorActivity{
			UserID:    userID,
			Status:    i%2 == 0,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, repo.RecordMotorActivity(ctx, &domain.MotorActivity{UserID: uuid.New(), Status: true, Timestamp: base}))

	got, err := repo.RecentMotorActivities(ctx, userID, 5)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, a := range got {
		assert.Equal(t, base.Add(time.Duration(6-i)*time.Second), a.Timestamp, "index %d", i)
		assert.Equal(t, userID, a.UserID)
	}

	empty, err := repo.RecentMotorActivities(ctx, uuid.New(), 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestActivityRepository_TiesUseInsertionOrder(t *testing.T) {
	repo := memory.NewStore().Activities()
	ctx := context.Background()
	userID := uuid.New()
	ts := time.Now()

	for phase := 1; phase <= 3; phase++ {
		require.NoError(t, repo.RecordPhaseDetection(ctx, &domain.PhaseDetection{UserID: userID, ActivePhase: phase, Timestamp: ts}))
	}

	got, err := repo.RecentPhaseDetections(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int{3, 2, 1}, []int{got[0].ActivePhase, got[1].ActivePhase, got[2].ActivePhase})
}

func TestActivityRepository_ConcurrentWrites(t *testing.T) {
	repo := memory.NewStore().Activities()
	ctx := context.Background()
	userID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.RecordMotorActivity(ctx, &domain.MotorActivity{UserID: userID, Status: i%2 == 0, Timestamp: time.Now()})
			assert.NoError(t, err, fmt.Sprint(i))
		}(i)
	}
	wg.Wait()

	got, err := repo.RecentMotorActivities(ctx, userID, 100)
	require.NoError(t, err)
	assert.Len(t, got, 50)
}

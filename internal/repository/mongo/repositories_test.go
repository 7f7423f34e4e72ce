package mongo_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/farmercorner/motor-dashboard/internal/domain"
	"github.com/farmercorner/motor-dashboard/internal/repository/mongo"
	"github.com/farmercorner/motor-dashboard/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(username string) *domain.User {
	return &domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: "hashedpassword",
		CreatedAt:    time.Now().UTC(),
	}
}

// MongoDB stores millisecond precision, so times are compared with WithinDuration.
func TestRepositories(t *testing.T) {
	tm := testutil.NewTestMongo(t)
	repos := mongo.NewRepositories(tm.DB)
	ctx := context.Background()

	t.Run("users", func(t *testing.T) {
		tm.Truncate(t)

		user := newUser("farmer1")
		require.NoError(t, repos.User.Create(ctx, user))
		assert.ErrorIs(t, repos.User.Create(ctx, newUser("farmer1")), domain.ErrDuplicateUsername)
		require.NoError(t, repos.User.Create(ctx, newUser("Farmer1")))

		byID, err := repos.User.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "farmer1", byID.Username)
		assert.Equal(t, user.PasswordHash, byID.PasswordHash)
		assert.WithinDuration(t, user.CreatedAt, byID.CreatedAt, time.Millisecond)

		byName, err := repos.User.GetByUsername(ctx, "farmer1")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byName.ID)

		_, err = repos.User.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
		_, err = repos.User.GetByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("concurrent create same username", func(t *testing.T) {
		tm.Truncate(t)

		const workers = 8
		var wg sync.WaitGroup
		errs := make([]error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = repos.User.Create(ctx, newUser("racer"))
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, domain.ErrDuplicateUsername)
		}
		assert.Equal(t, 1, succeeded)

		n, err := tm.DB.Collection(mongo.CollectionUsers).CountDocuments(ctx, map[string]interface{}{"username": "racer"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("sessions", func(t *testing.T) {
		tm.Truncate(t)

		userID := uuid.New()
		now := time.Now().UTC()
		live := &domain.Session{
			ID:        uuid.New(),
			UserID:    userID,
			TokenHash: "live",
			Metadata:  map[string]interface{}{domain.SessionMetaUserAgent: "go-test"},
			CreatedAt: now,
			ExpiresAt: now.Add(time.Hour),
		}
		expired := &domain.Session{
			ID:        uuid.New(),
			UserID:    userID,
			TokenHash: "expired",
			CreatedAt: now.Add(-2 * time.Hour),
			ExpiresAt: now.Add(-time.Hour),
		}
		require.NoError(t, repos.Session.Create(ctx, live))
		require.NoError(t, repos.Session.Create(ctx, expired))

		got, err := repos.Session.GetByTokenHash(ctx, "live")
		require.NoError(t, err)
		assert.Equal(t, live.ID, got.ID)
		assert.Equal(t, userID, got.UserID)
		assert.Equal(t, "go-test", got.Metadata[domain.SessionMetaUserAgent])
		assert.WithinDuration(t, live.ExpiresAt, got.ExpiresAt, time.Millisecond)

		n, err := repos.Session.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		require.NoError(t, repos.Session.DeleteByTokenHash(ctx, "live"))
		require.NoError(t, repos.Session.DeleteByTokenHash(ctx, "live"))
		_, err = repos.Session.GetByTokenHash(ctx, "live")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		require.NoError(t, repos.Session.Create(ctx, &domain.Session{
			ID: uuid.New(), UserID: userID, TokenHash: "again", CreatedAt: now, ExpiresAt: now.Add(time.Hour),
		}))
		require.NoError(t, repos.Session.DeleteByUserID(ctx, userID))
		_, err = repos.Session.GetByTokenHash(ctx, "again")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("activity newest first", func(t *testing.T) {
		tm.Truncate(t)

		userID := uuid.New()
		base := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
		for i := 0; i < 7; i++ {
			require.NoError(t, repos.Activity.RecordMotorActivity(ctx, &domain.MotorActivity{
				UserID:    userID,
				Status:    i%2 == 0,
				Timestamp: base.Add(time.Duration(i) * time.Minute),
			}))
		}

		got, err := repos.Activity.RecentMotorActivities(ctx, userID, 5)
		require.NoError(t, err)
		require.Len(t, got, 5)
		for i, a := range got {
			assert.WithinDuration(t, base.Add(time.Duration(6-i)*time.Minute), a.Timestamp, time.Millisecond)
			assert.Equal(t, userID, a.UserID)
		}

		for _, phase := range []int{1, 2, 3} {
			require.NoError(t, repos.Activity.RecordPhaseDetection(ctx, &domain.PhaseDetection{
				UserID: userID, ActivePhase: phase, Timestamp: base,
			}))
		}
		phases, err := repos.Activity.RecentPhaseDetections(ctx, userID, 2)
		require.NoError(t, err)
		require.Len(t, phases, 2)
		assert.Equal(t, 3, phases[0].ActivePhase)
		assert.Equal(t, 2, phases[1].ActivePhase)
	})
}

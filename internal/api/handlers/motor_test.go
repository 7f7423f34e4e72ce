package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/farmercorner/motor-dashboard/internal/domain"
	"github.com/farmercorner/motor-dashboard/internal/observability"
	"github.com/farmercorner/motor-dashboard/internal/repository/memory"
	"github.com/farmercorner/motor-dashboard/internal/service"
	"github.com/farmercorner/motor-dashboard/internal/testutil"
	"github.com/google/uuid"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type toggleResponse struct {
	Success   bool      `json:"success"`
	Status    bool      `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type motorRecord struct {
	Status    bool       `json:"status"`
	Timestamp *time.Time `json:"timestamp"`
}

func TestMotorHandler_Toggle(t *testing.T) {
	ts := testutil.NewTestServer(t)
	client := ts.NewClient(t)
	testutil.NewUserBuilder().BuildAndLogin(t, ts, client)

	tests := []struct {
		name           string
		request        interface{}
		expectedStatus int
		expectedMsg    string
		wantStatus     bool
	}{
		{
			name:           "turn on",
			request:        map[string]interface{}{"status": true},
			expectedStatus: http.StatusOK,
			wantStatus:     true,
		},
		{
			name:           "turn off",
			request:        map[string]interface{}{"status": false},
			expectedStatus: http.StatusOK,
			wantStatus:     false,
		},
		{
			name:           "missing status",
			request:        map[string]interface{}{},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "status must be a boolean",
		},
		{
			name:           "status is not a boolean",
			request:        map[string]interface{}{"status": "on"},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := testutil.PostJSON(t, client, ts.APIURL("/motor/toggle"), tt.request)
			defer resp.Body.Close()

			if tt.expectedMsg != "" {
				testutil.AssertErrorResponse(t, resp, tt.expectedStatus, tt.expectedMsg)
				return
			}

			testutil.AssertStatusCode(t, resp, tt.expectedStatus)
			var body toggleResponse
			testutil.AssertJSONResponse(t, resp, &body)
			assert.True(t, body.Success)
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.WithinDuration(t, time.Now(), body.Timestamp, 5*time.Second)
		})
	}
}

func TestMotorHandler_RequiresSession(t *testing.T) {
	ts := testutil.NewTestServer(t)

	for _, path := range []string{"/motor/status", "/motor/activity", "/phase", "/phase/history"} {
		t.Run(path, func(t *testing.T) {
			resp := testutil.Get(t, http.DefaultClient, ts.APIURL(path))
			defer resp.Body.Close()
			testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "Unauthorized")
		})
	}

	resp := testutil.PostJSON(t, http.DefaultClient, ts.APIURL("/motor/toggle"), map[string]bool{"status": true})
	defer resp.Body.Close()
	testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "Unauthorized")
}

func TestMotorHandler_ActivityHistory(t *testing.T) {
	ts := testutil.NewTestServer(t)
	client := ts.NewClient(t)
	testutil.NewUserBuilder().BuildAndLogin(t, ts, client)

	// 7 toggles alternating on/off; the last is "on".
	for i := 0; i < 7; i++ {
		resp := testutil.PostJSON(t, client, ts.APIURL("/motor/toggle"), map[string]bool{"status": i%2 == 0})
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	t.Run("default limit", func(t *testing.T) {
		resp := testutil.Get(t, client, ts.APIURL("/motor/activity"))
		defer resp.Body.Close()

		var records []motorRecord
		testutil.AssertJSONResponse(t, resp, &records)
		require.Len(t, records, 5)
		assert.True(t, records[0].Status)
		assert.False(t, records[1].Status)
		for i := 1; i < len(records); i++ {
			assert.False(t, records[i].Timestamp.After(*records[i-1].Timestamp), "records must be newest first")
		}
	})

	t.Run("explicit limit", func(t *testing.T) {
		resp := testutil.Get(t, client, ts.APIURL("/motor/activity?limit=2"))
		defer resp.Body.Close()

		var records []motorRecord
		testutil.AssertJSONResponse(t, resp, &records)
		assert.Len(t, records, 2)
	})

	t.Run("invalid limit", func(t *testing.T) {
		resp := testutil.Get(t, client, ts.APIURL("/motor/activity?limit=abc"))
		defer resp.Body.Close()
		testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "limit must be an integer")
	})

	t.Run("other users see nothing", func(t *testing.T) {
		other := ts.NewClient(t)
		testutil.NewUserBuilder().BuildAndLogin(t, ts, other)

		resp := testutil.Get(t, other, ts.APIURL("/motor/activity"))
		defer resp.Body.Close()

		var records []motorRecord
		testutil.AssertJSONResponse(t, resp, &records)
		assert.Empty(t, records)
	})
}

func TestMotorHandler_Status(t *testing.T) {
	ts := testutil.NewTestServer(t)
	client := ts.NewClient(t)
	testutil.NewUserBuilder().BuildAndLogin(t, ts, client)

	resp := testutil.Get(t, client, ts.APIURL("/motor/status"))
	var initial motorRecord
	testutil.AssertJSONResponse(t, resp, &initial)
	resp.Body.Close()
	assert.False(t, initial.Status)
	assert.Nil(t, initial.Timestamp)

	resp = testutil.PostJSON(t, client, ts.APIURL("/motor/toggle"), map[string]bool{"status": true})
	resp.Body.Close()

	resp = testutil.Get(t, client, ts.APIURL("/motor/status"))
	var current motorRecord
	testutil.AssertJSONResponse(t, resp, &current)
	resp.Body.Close()
	assert.True(t, current.Status)
	assert.NotNil(t, current.Timestamp)
}

func TestMotorHandler_ToggleSurvivesActivityFailure(t *testing.T) {
	repos := memory.NewRepositories()
	repos.Activity = failingActivityRepo{}
	ts := testutil.NewTestServer(t, testutil.WithRepositories(repos))
	client := ts.NewClient(t)
	testutil.NewUserBuilder().BuildAndLogin(t, ts, client)

	resp := testutil.PostJSON(t, client, ts.APIURL("/motor/toggle"), map[string]bool{"status": true})
	defer resp.Body.Close()

	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var body toggleResponse
	testutil.AssertJSONResponse(t, resp, &body)
	assert.True(t, body.Success)
	assert.True(t, body.Status)

	assert.Equal(t, 1.0, promtest.ToFloat64(ts.Metrics.ActivityWrites.WithLabelValues(service.KindMotor, observability.OutcomeError)))
}

// failingActivityRepo accepts no writes.
type failingActivityRepo struct{}

func (failingActivityRepo) RecordMotorActivity(context.Context, *domain.MotorActivity) error {
	return errors.New("activity store unavailable")
}

func (failingActivityRepo) RecordPhaseDetection(context.Context, *domain.PhaseDetection) error {
	return errors.New("activity store unavailable")
}

func (failingActivityRepo) RecentMotorActivities(context.Context, uuid.UUID, int) ([]*domain.MotorActivity, error) {
	return nil, errors.New("activity store unavailable")
}

func (failingActivityRepo) RecentPhaseDetections(context.Context, uuid.UUID, int) ([]*domain.PhaseDetection, error) {
	return nil, errors.New("activity store unavailable")
}

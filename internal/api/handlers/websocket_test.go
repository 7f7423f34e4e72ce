package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/farmercorner/motor-dashboard/internal/testutil"
	"github.com/farmercorner/motor-dashboard/internal/websocket"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketHandler_RequiresSession(t *testing.T) {
	ts := testutil.NewTestServer(t)

	_, resp, err := testutil.DialWS(t, ts, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketHandler_StreamsOwnActivity(t *testing.T) {
	ts := testutil.NewTestServer(t)

	owner := ts.NewClient(t)
	testutil.NewUserBuilder().BuildAndLogin(t, ts, owner)
	bystander := ts.NewClient(t)
	testutil.NewUserBuilder().BuildAndLogin(t, ts, bystander)

	ownerFeed, _, err := testutil.DialWS(t, ts, owner)
	require.NoError(t, err)
	bystanderFeed, _, err := testutil.DialWS(t, ts, bystander)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return promtest.ToFloat64(ts.Metrics.WebSocketConnections) == 2
	}, 2*time.Second, 10*time.Millisecond)

	resp := testutil.PostJSON(t, owner, ts.APIURL("/motor/toggle"), map[string]bool{"status": true})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	msg := ownerFeed.WaitForMessage(websocket.MessageTypeMotorToggled, 2*time.Second)
	var payload websocket.MotorToggledPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.True(t, payload.Status)

	resp = testutil.Get(t, owner, ts.APIURL("/phase"))
	resp.Body.Close()
	phase := ownerFeed.WaitForMessage(websocket.MessageTypePhaseDetected, 2*time.Second)
	var phasePayload websocket.PhaseDetectedPayload
	require.NoError(t, json.Unmarshal(phase.Payload, &phasePayload))
	assert.GreaterOrEqual(t, phasePayload.ActivePhase, 1)

	bystanderFeed.ExpectNoMessage(100 * time.Millisecond)
}

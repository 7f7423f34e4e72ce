package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/farmercorner/motor-dashboard/internal/domain"
	"github.com/farmercorner/motor-dashboard/internal/observability"
	"github.com/google/uuid"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func startHub(t *testing.T) (*Hub, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetrics()
	hub := NewHub(metrics, nil)
	go hub.Run()
	return hub, metrics
}

func receive(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "client closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return nil
	}
}

func TestHub_DeliversOnlyToOwner(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub, metrics := startHub(t)
	defer hub.Stop()
	owner := uuid.New()
	other := uuid.New()

	a := NewClient(hub, nil, owner)
	b := NewClient(hub, nil, owner)
	c := NewClient(hub, nil, other)
	for _, client := range []*Client{a, b, c} {
		require.True(t, hub.Register(client))
	}

	at := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	hub.PublishMotorActivity(&domain.MotorActivity{UserID: owner, Status: true, Timestamp: at})

	for _, client := range []*Client{a, b} {
		msg := receive(t, client)
		assert.Equal(t, MessageTypeMotorToggled, msg.Type)
		var payload MotorToggledPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		assert.True(t, payload.Status)
		assert.True(t, at.Equal(payload.Timestamp))
	}

	hub.PublishPhaseDetection(&domain.PhaseDetection{UserID: other, ActivePhase: 2, Timestamp: at})
	msg := receive(t, c)
	assert.Equal(t, MessageTypePhaseDetected, msg.Type)

	select {
	case <-a.send:
		t.Fatal("owner received another user's event")
	case <-time.After(50 * time.Millisecond):
	}

	assert.Equal(t, 3.0, promtest.ToFloat64(metrics.WebSocketConnections))
}

func TestHub_UnregisterClosesClient(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub, metrics := startHub(t)
	defer hub.Stop()
	client := NewClient(hub, nil, uuid.New())
	require.True(t, hub.Register(client))

	hub.Unregister(client)

	select {
	case _, ok := <-client.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("client was not closed")
	}
	assert.Equal(t, 0.0, promtest.ToFloat64(metrics.WebSocketConnections))

	// A second unregister is a no-op.
	hub.Unregister(client)
}

func TestHub_DropsSlowClient(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub, _ := startHub(t)
	defer hub.Stop()
	userID := uuid.New()
	client := NewClient(hub, nil, userID)
	require.True(t, hub.Register(client))

	for i := 0; i < sendBufferSize+1; i++ {
		hub.PublishMotorActivity(&domain.MotorActivity{UserID: userID, Status: i%2 == 0, Timestamp: time.Now()})
	}

	// Drain: the buffer holds sendBufferSize messages, then the channel is closed.
	deadline := time.After(2 * time.Second)
	count := 0
	for {
		select {
		case _, ok := <-client.send:
			if !ok {
				assert.Equal(t, sendBufferSize, count)
				return
			}
			count++
		case <-deadline:
			t.Fatalf("slow client not dropped, received %d", count)
		}
	}
}

func TestHub_StopClosesClientsAndRejectsRegistration(t *testing.T) {
	defer goleak.VerifyNone(t)

	metrics := observability.NewMetrics()
	hub := NewHub(metrics, nil)
	go hub.Run()

	client := NewClient(hub, nil, uuid.New())
	require.True(t, hub.Register(client))

	hub.Stop()
	hub.Stop()

	_, ok := <-client.send
	assert.False(t, ok)
	assert.False(t, hub.Register(NewClient(hub, nil, uuid.New())))

	assert.NotPanics(t, func() {
		hub.PublishMotorActivity(&domain.MotorActivity{UserID: uuid.New(), Timestamp: time.Now()})
	})
}

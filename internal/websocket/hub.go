package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/farmercorner/motor-dashboard/internal/domain"
	"github.com/farmercorner/motor-dashboard/internal/observability"
	"github.com/google/uuid"
)

const publishBufferSize = 256

type event struct {
	userID uuid.UUID
	data   []byte
}

// Hub fans activity events out to the connections of the user that produced
// them. All client bookkeeping happens on the Run goroutine.
type Hub struct {
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	publish    chan event
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopOnce   sync.Once
	metrics    *observability.Metrics
	log        *slog.Logger
}

func NewHub(metrics *observability.Metrics, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan event, publishBufferSize),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		metrics:    metrics,
		log:        log,
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			for _, set := range h.clients {
				for client := range set {
					h.drop(client)
				}
			}
			h.clients = make(map[uuid.UUID]map[*Client]struct{})
			return

		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
			h.metrics.ConnectionOpened()

		case client := <-h.unregister:
			h.remove(client)

		case ev := <-h.publish:
			for client := range h.clients[ev.userID] {
				if !client.trySend(ev.data) {
					h.log.Warn("dropping slow websocket client", "user_id", ev.userID)
					h.remove(client)
				}
			}
		}
	}
}

// Stop closes every client and returns once Run has exited. Safe to call more
// than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

// Register adds client to its user's feed. It reports false once the hub has
// stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.stop:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stop:
	}
}

func (h *Hub) PublishMotorActivity(activity *domain.MotorActivity) {
	h.emit(activity.UserID, MessageTypeMotorToggled, MotorToggledPayload{
		Status:    activity.Status,
		Timestamp: activity.Timestamp,
	})
}

func (h *Hub) PublishPhaseDetection(detection *domain.PhaseDetection) {
	h.emit(detection.UserID, MessageTypePhaseDetected, PhaseDetectedPayload{
		ActivePhase: detection.ActivePhase,
		Timestamp:   detection.Timestamp,
	})
}

// emit never blocks; events published while the queue is full or after Stop
// are dropped.
func (h *Hub) emit(userID uuid.UUID, msgType MessageType, payload interface{}) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		h.log.Error("failed to build websocket message", "type", msgType, "error", err)
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal websocket message", "type", msgType, "error", err)
		return
	}

	select {
	case <-h.stop:
		return
	default:
	}
	select {
	case h.publish <- event{userID: userID, data: data}:
	default:
		h.log.Warn("websocket publish queue full, dropping event", "type", msgType)
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
	h.drop(client)
}

func (h *Hub) drop(client *Client) {
	client.Close()
	h.metrics.ConnectionClosed()
}

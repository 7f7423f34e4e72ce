package websocket

import (
	"encoding/json"
	"time"
)

type MessageType string

// Server to client only; the feed ignores anything the client sends.
const (
	MessageTypeMotorToggled  MessageType = "motor_toggled"
	MessageTypePhaseDetected MessageType = "phase_detected"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

type MotorToggledPayload struct {
	Status    bool      `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type PhaseDetectedPayload struct {
	ActivePhase int       `json:"activePhase"`
	Timestamp   time.Time `json:"timestamp"`
}

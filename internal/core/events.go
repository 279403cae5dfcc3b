package core

import (
	"encoding/json"

	"github.com/dkeye/Pairline/internal/domain"
	"github.com/pion/webrtc/v4"
)

// Outbound event types.
const (
	EventJoined           = "joined"
	EventCallReady        = "call-ready"
	EventCallEnded        = "call-ended"
	EventError            = "error"
	EventPong             = "pong"
	EventAvailableCount   = "available-count"
	EventNoUsersAvailable = "no-users-available"
)

// Relayed signal kinds.
const (
	SignalOffer          = "offer"
	SignalAnswer         = "answer"
	SignalICECandidate   = "ice-candidate"
	SignalNetworkQuality = "network-quality"
)

func IsSignalKind(kind string) bool {
	switch kind {
	case SignalOffer, SignalAnswer, SignalICECandidate, SignalNetworkQuality:
		return true
	}
	return false
}

// Event is an outbound frame; Kind names its wire type.
type Event interface {
	Kind() string
}

type JoinedEvent struct {
	Type       string             `json:"type"`
	UserID     domain.UserID      `json:"userId"`
	SessionID  SessionID          `json:"sessionId"`
	ICEServers []webrtc.ICEServer `json:"iceServers,omitempty"`
}

func (e JoinedEvent) Kind() string { return e.Type }

type Participant struct {
	UserID    domain.UserID `json:"userId"`
	SessionID SessionID     `json:"sessionId"`
}

type CallReadyEvent struct {
	Type         string        `json:"type"`
	RoomID       domain.RoomID `json:"roomId"`
	CallID       domain.CallID `json:"callId"`
	Participants []Participant `json:"participants"`
}

func (e CallReadyEvent) Kind() string { return e.Type }

type CallEndedEvent struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
	CallID domain.CallID `json:"callId,omitempty"`
	Reason string        `json:"reason,omitempty"`
}

func (e CallEndedEvent) Kind() string { return e.Type }

// SignalEvent is a relayed offer, answer, candidate or quality report.
// Payload is forwarded byte for byte.
type SignalEvent struct {
	Type    string          `json:"type"`
	RoomID  domain.RoomID   `json:"roomId"`
	Payload json.RawMessage `json:"payload,omitempty"`
	From    SessionID       `json:"from"`
}

func (e SignalEvent) Kind() string { return e.Type }

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e ErrorEvent) Kind() string { return e.Type }

type CountEvent struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

func (e CountEvent) Kind() string { return e.Type }

type NoticeEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

func (e NoticeEvent) Kind() string { return e.Type }

func NewError(msg string) ErrorEvent {
	return ErrorEvent{Type: EventError, Message: msg}
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

type CallID string

type CallStatus string

const (
	CallActive CallStatus = "active"
	CallEnded  CallStatus = "ended"
)

// CallRecord is the durable ledger entry of one pairing.
type CallRecord struct {
	ID           CallID     `json:"callId"`
	ParticipantA UserID     `json:"participantA"`
	ParticipantB UserID     `json:"participantB"`
	Status       CallStatus `json:"status"`
	StartedAt    time.Time  `json:"startedAt"`
	EndedAt      time.Time  `json:"endedAt,omitzero"`
}

func NewCallID() CallID {
	return CallID("call_" + uuid.NewString())
}

func (c CallRecord) Participants() [2]UserID {
	return [2]UserID{c.ParticipantA, c.ParticipantB}
}

func (c CallRecord) Active() bool { return c.Status == CallActive }

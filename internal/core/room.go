package core

import (
	"time"

	"github.com/dkeye/Pairline/internal/domain"
)

// Room is the in-process routing scope of one active call.
// Owned by the room manager; callers get copies.
type Room struct {
	ID        domain.RoomID
	CallID    domain.CallID
	Sessions  [2]SessionID
	Users     [2]domain.UserID
	StartedAt time.Time
	State     domain.RoomState
}

func (r Room) Has(sid SessionID) bool {
	return r.Sessions[0] == sid || r.Sessions[1] == sid
}

// Other returns the session bound opposite to sid.
func (r Room) Other(sid SessionID) (SessionID, bool) {
	switch sid {
	case r.Sessions[0]:
		return r.Sessions[1], true
	case r.Sessions[1]:
		return r.Sessions[0], true
	}
	return "", false
}

type RoomInfo struct {
	ID        domain.RoomID `json:"roomId"`
	CallID    domain.CallID `json:"callId"`
	Users     []string      `json:"participants"`
	State     string        `json:"state"`
	StartedAt time.Time     `json:"startedAt"`
}

func (r Room) Info() RoomInfo {
	return RoomInfo{
		ID:        r.ID,
		CallID:    r.CallID,
		Users:     []string{string(r.Users[0]), string(r.Users[1])},
		State:     r.State.String(),
		StartedAt: r.StartedAt,
	}
}

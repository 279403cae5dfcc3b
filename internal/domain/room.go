package domain

type RoomID string

const roomPrefix = "room_"

// RoomIDFor derives the routing scope of a call from its id.
func RoomIDFor(id CallID) RoomID {
	return RoomID(roomPrefix + string(id))
}

// RoomState follows created → active → ended; ended is terminal.
type RoomState int

const (
	RoomCreated RoomState = iota
	RoomActive
	RoomEnded
)

func (s RoomState) String() string {
	switch s {
	case RoomCreated:
		return "created"
	case RoomActive:
		return "active"
	case RoomEnded:
		return "ended"
	}
	return "unknown"
}

// End reasons carried by call-ended notifications.
const (
	ReasonEnded            = "ended"
	ReasonPeerDisconnected = "peer-disconnected"
	ReasonNext             = "next"
	ReasonSuperseded       = "superseded"
	ReasonSessionGone      = "session-gone"
	ReasonStale            = "stale"
	ReasonOrphaned         = "orphaned"
	ReasonShutdown         = "server-shutdown"
)

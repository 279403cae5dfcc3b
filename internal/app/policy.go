package app

import "github.com/dkeye/Pairline/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a session whose send buffer is full.
type Policy interface {
	OnBackPressure(sid core.SessionID, eventType string) BackpressureAction
}

// SimplePolicy drops relayed signaling frames and kicks a session that cannot
// take a lifecycle event.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(_ core.SessionID, eventType string) BackpressureAction {
	if core.IsSignalKind(eventType) {
		return DropFrame
	}
	return KickMember
}

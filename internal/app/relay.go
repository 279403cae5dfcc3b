package app

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/Pairline/internal/core"
	"github.com/dkeye/Pairline/internal/domain"
	"github.com/dkeye/Pairline/internal/metrics"
	"github.com/rs/zerolog/log"
)

// SignalRelay forwards session-scoped signaling between the two sessions of a
// room. It keeps no state of its own: no buffering, no payload inspection.
type SignalRelay struct {
	Rooms    *CallRoomManager
	Notifier *Notifier
}

func NewSignalRelay(rooms *CallRoomManager, n *Notifier) *SignalRelay {
	return &SignalRelay{Rooms: rooms, Notifier: n}
}

// Forward delivers payload to the other participant of roomID. The sender must
// currently be bound to roomID; otherwise the message is dropped and
// core.ErrNotParticipant is returned for the caller to report.
func (r *SignalRelay) Forward(from core.SessionID, roomID domain.RoomID, kind string, payload json.RawMessage) error {
	if !core.IsSignalKind(kind) {
		metrics.SignalsRejected.Inc()
		return fmt.Errorf("%q: %w", kind, core.ErrUnknownSignal)
	}
	room, ok := r.Rooms.Get(roomID)
	if !ok || !room.Has(from) {
		metrics.SignalsRejected.Inc()
		log.Debug().Str("module", "app.relay").Str("sid", string(from)).Str("room", string(roomID)).Str("kind", kind).Msg("signal from non participant dropped")
		return fmt.Errorf("room %s: %w", roomID, core.ErrNotParticipant)
	}
	to, _ := room.Other(from)
	ev := core.SignalEvent{
		Type:    kind,
		RoomID:  roomID,
		Payload: payload,
		From:    from,
	}
	if err := r.Notifier.Send(to, ev); err != nil {
		log.Debug().Err(err).Str("module", "app.relay").Str("dst_sid", string(to)).Str("kind", kind).Msg("relay not delivered")
		return nil
	}
	metrics.SignalsRelayed.WithLabelValues(kind).Inc()
	return nil
}

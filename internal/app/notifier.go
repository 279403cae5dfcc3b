package app

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/Pairline/internal/core"
	"github.com/rs/zerolog/log"
)

// Notifier delivers JSON events to live sessions through their registered
// transport handle.
type Notifier struct {
	Registry *Registry
	Policy   Policy
}

func NewNotifier(reg *Registry, policy Policy) *Notifier {
	return &Notifier{Registry: reg, Policy: policy}
}

// Send marshals ev and queues it on the session. A session that is not live
// yields core.ErrSessionGone; absence of a peer is an expected outcome.
func (n *Notifier) Send(sid core.SessionID, ev core.Event) error {
	conn, ok := n.Registry.Conn(sid)
	if !ok || conn == nil {
		return core.ErrSessionGone
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = conn.TrySend(b)
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrBackpressure) && n.Policy != nil {
		eventType := ev.Kind()
		switch n.Policy.OnBackPressure(sid, eventType) {
		case KickMember:
			log.Warn().Str("module", "app.notifier").Str("sid", string(sid)).Str("event", eventType).Msg("send buffer full, kicking session")
			conn.Close()
		case DropFrame, NoAction:
			log.Debug().Str("module", "app.notifier").Str("sid", string(sid)).Str("event", eventType).Msg("send buffer full, frame dropped")
		}
	}
	return err
}

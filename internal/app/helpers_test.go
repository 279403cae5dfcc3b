package app

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/dkeye/Pairline/internal/adapters/ledger"
	"github.com/dkeye/Pairline/internal/adapters/presence"
	"github.com/dkeye/Pairline/internal/core"
	"github.com/dkeye/Pairline/internal/domain"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnClosed
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// ofType decodes every frame whose type matches.
func (c *fakeConn) ofType(t *testing.T, typ string) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []map[string]any
	for _, f := range c.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(f, &m))
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

type harness struct {
	reg      *Registry
	notifier *Notifier
	presence *presence.MemoryStore
	ledger   *ledger.MemoryLedger
	rooms    *CallRoomManager
	inflight *InFlightSet
	mm       *MatchMaker
	relay    *SignalRelay
	conns    map[domain.UserID]*fakeConn
}

func newHarness() *harness {
	h := &harness{
		reg:      NewRegistry(),
		presence: presence.NewMemoryStore(),
		ledger:   ledger.NewMemoryLedger(),
		inflight: NewInFlightSet(),
		conns:    make(map[domain.UserID]*fakeConn),
	}
	h.notifier = NewNotifier(h.reg, SimplePolicy{})
	h.rooms = NewCallRoomManager(h.reg, h.notifier, h.ledger, h.presence)
	h.mm = NewMatchMaker(h.reg, h.presence, h.ledger, h.rooms, h.inflight)
	h.relay = NewSignalRelay(h.rooms, h.notifier)
	return h
}

func sidOf(uid domain.UserID) core.SessionID {
	return core.SessionID("sid-" + string(uid))
}

// join registers uid with a fresh connection and queues it online.
func (h *harness) join(t *testing.T, uids ...domain.UserID) {
	t.Helper()
	for _, uid := range uids {
		conn := &fakeConn{}
		h.conns[uid] = conn
		h.reg.Register(sidOf(uid), uid, conn)
		require.NoError(t, h.presence.AddOnline(context.Background(), uid))
	}
}

func (h *harness) status(t *testing.T, uid domain.UserID) domain.PresenceStatus {
	t.Helper()
	st, err := h.presence.Status(context.Background(), uid)
	require.NoError(t, err)
	return st
}

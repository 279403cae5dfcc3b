package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/Pairline/internal/core"
	"github.com/dkeye/Pairline/internal/domain"
	"github.com/dkeye/Pairline/internal/metrics"
	"github.com/rs/zerolog/log"
)

var errSessionBound = errors.New("session already bound to a room")

// CallRoomManager owns the lifecycle of rooms once a pairing is committed:
// creation, routing scope, teardown and reconciliation against the ledger.
type CallRoomManager struct {
	registry *Registry
	notifier *Notifier
	ledger   core.CallLedger
	presence core.PresenceStore

	// OrphanGrace leaves freshly started ledger records alone during a sweep,
	// so a pairing another process is still committing is not torn down.
	OrphanGrace time.Duration
	now         func() time.Time

	mu        sync.RWMutex
	rooms     map[domain.RoomID]*core.Room
	bySession map[core.SessionID]domain.RoomID
	byCall    map[domain.CallID]domain.RoomID
}

func NewCallRoomManager(reg *Registry, n *Notifier, ledger core.CallLedger, presence core.PresenceStore) *CallRoomManager {
	return &CallRoomManager{
		registry:  reg,
		notifier:  n,
		ledger:    ledger,
		presence:  presence,
		now:       time.Now,
		rooms:     make(map[domain.RoomID]*core.Room),
		bySession: make(map[core.SessionID]domain.RoomID),
		byCall:    make(map[domain.CallID]domain.RoomID),
	}
}

// Create binds both sessions of a committed call into one routing scope.
// It fails with core.ErrSessionGone when either session is no longer the
// live session of its participant.
func (m *CallRoomManager) Create(rec domain.CallRecord, sidA, sidB core.SessionID) (core.Room, error) {
	if uid, ok := m.registry.UserFor(sidA); !ok || uid != rec.ParticipantA {
		return core.Room{}, fmt.Errorf("participant %s: %w", rec.ParticipantA, core.ErrSessionGone)
	}
	if uid, ok := m.registry.UserFor(sidB); !ok || uid != rec.ParticipantB {
		return core.Room{}, fmt.Errorf("participant %s: %w", rec.ParticipantB, core.ErrSessionGone)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sid := range []core.SessionID{sidA, sidB} {
		if _, ok := m.bySession[sid]; ok {
			return core.Room{}, fmt.Errorf("session %s: %w", sid, errSessionBound)
		}
	}
	room := &core.Room{
		ID:        domain.RoomIDFor(rec.ID),
		CallID:    rec.ID,
		Sessions:  [2]core.SessionID{sidA, sidB},
		Users:     rec.Participants(),
		StartedAt: m.now(),
		State:     domain.RoomCreated,
	}
	m.rooms[room.ID] = room
	m.bySession[sidA] = room.ID
	m.bySession[sidB] = room.ID
	m.byCall[rec.ID] = room.ID
	metrics.ActiveRooms.Set(float64(len(m.rooms)))
	log.Info().Str("module", "app.rooms").Str("room", string(room.ID)).Str("call", string(rec.ID)).Msg("room created")
	return *room, nil
}

// Open creates the room and delivers call-ready to both sessions.
func (m *CallRoomManager) Open(rec domain.CallRecord, sidA, sidB core.SessionID) (core.Room, error) {
	room, err := m.Create(rec, sidA, sidB)
	if err != nil {
		return core.Room{}, err
	}
	ev := core.CallReadyEvent{
		Type:   core.EventCallReady,
		RoomID: room.ID,
		CallID: room.CallID,
		Participants: []core.Participant{
			{UserID: rec.ParticipantA, SessionID: sidA},
			{UserID: rec.ParticipantB, SessionID: sidB},
		},
	}
	for _, sid := range room.Sessions {
		if err := m.notifier.Send(sid, ev); err != nil {
			log.Warn().Err(err).Str("module", "app.rooms").Str("sid", string(sid)).Str("room", string(room.ID)).Msg("call-ready not delivered")
		}
	}
	m.mu.Lock()
	if r, ok := m.rooms[room.ID]; ok && r.State == domain.RoomCreated {
		r.State = domain.RoomActive
		room = *r
	}
	m.mu.Unlock()
	return room, nil
}

func (m *CallRoomManager) Get(id domain.RoomID) (core.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.rooms[id]; ok {
		return *r, true
	}
	return core.Room{}, false
}

func (m *CallRoomManager) RoomOf(sid core.SessionID) (core.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.bySession[sid]
	if !ok {
		return core.Room{}, false
	}
	return *m.rooms[id], true
}

func (m *CallRoomManager) ByCall(id domain.CallID) (core.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rid, ok := m.byCall[id]
	if !ok {
		return core.Room{}, false
	}
	return *m.rooms[rid], true
}

func (m *CallRoomManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

func (m *CallRoomManager) List() []core.RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r.Info())
	}
	return out
}

func (m *CallRoomManager) detach(id domain.RoomID) (core.Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return core.Room{}, false
	}
	delete(m.rooms, id)
	delete(m.byCall, r.CallID)
	for _, sid := range r.Sessions {
		if m.bySession[sid] == id {
			delete(m.bySession, sid)
		}
	}
	r.State = domain.RoomEnded
	metrics.ActiveRooms.Set(float64(len(m.rooms)))
	return *r, true
}

// End tears a room down. Ending an unknown or already ended room is a no-op
// and reports false, so a peer disconnect racing an explicit end is harmless.
func (m *CallRoomManager) End(ctx context.Context, id domain.RoomID, reason string) bool {
	return m.EndBy(ctx, id, reason, "")
}

// EndBy ends a room on behalf of by, who is put back in the queue ahead of
// the other participant.
func (m *CallRoomManager) EndBy(ctx context.Context, id domain.RoomID, reason string, by domain.UserID) bool {
	room, ok := m.detach(id)
	if !ok {
		return false
	}
	users := room.Users
	if by != "" && users[1] == by {
		users[0], users[1] = users[1], users[0]
	}
	ev := core.CallEndedEvent{
		Type:   core.EventCallEnded,
		RoomID: room.ID,
		CallID: room.CallID,
		Reason: reason,
	}
	for _, sid := range room.Sessions {
		if _, live := m.registry.UserFor(sid); !live {
			continue
		}
		if err := m.notifier.Send(sid, ev); err != nil {
			log.Warn().Err(err).Str("module", "app.rooms").Str("sid", string(sid)).Msg("call-ended not delivered")
		}
	}
	m.finish(ctx, room.CallID, users, reason)
	log.Info().Str("module", "app.rooms").Str("room", string(room.ID)).Str("reason", reason).Msg("room ended")
	return true
}

// Teardown ends a ledger record that has no room: a pairing whose session
// vanished right after commit, or an orphan found by the sweep.
func (m *CallRoomManager) Teardown(ctx context.Context, rec domain.CallRecord, reason string) {
	m.finish(ctx, rec.ID, rec.Participants(), reason)
	log.Info().Str("module", "app.rooms").Str("call", string(rec.ID)).Str("reason", reason).Msg("call torn down")
}

func (m *CallRoomManager) finish(ctx context.Context, id domain.CallID, users [2]domain.UserID, reason string) {
	if _, err := m.ledger.EndCall(ctx, id); err != nil &&
		!errors.Is(err, core.ErrCallNotActive) && !errors.Is(err, core.ErrCallNotFound) {
		// The record stays active without a room; the next sweep retries.
		log.Error().Err(err).Str("module", "app.rooms").Str("call", string(id)).Msg("ledger end failed")
	}
	m.release(ctx, users)
	metrics.RecordCallEnded(reason)
}

// release puts connected participants back online. A disconnected one is
// marked offline and only comes back when it joins again.
func (m *CallRoomManager) release(ctx context.Context, users [2]domain.UserID) {
	for _, uid := range users {
		status := domain.StatusOffline
		if m.registry.Connected(uid) {
			status = domain.StatusOnline
		}
		if err := m.presence.SetStatus(ctx, uid, status); err != nil {
			log.Error().Err(err).Str("module", "app.rooms").Str("user", string(uid)).Str("status", string(status)).Msg("presence release failed")
		}
	}
}

// SweepReport summarises one reconciliation sweep.
type SweepReport struct {
	StaleRooms    int `json:"staleRooms"`
	OrphanedCalls int `json:"orphanedCalls"`
	MarkedBusy    int `json:"markedBusy"`
	Requeued      int `json:"requeued"`
}

func (r SweepReport) Repairs() int {
	return r.StaleRooms + r.OrphanedCalls + r.MarkedBusy + r.Requeued
}

// Sweep cross-checks rooms, the ledger and the presence registry:
// rooms without an active record are ended, active records without a room
// are force-ended, and presence is rewritten from ledger truth.
func (m *CallRoomManager) Sweep(ctx context.Context) (SweepReport, error) {
	var rep SweepReport

	active, err := m.ledger.ListActiveCalls(ctx)
	if err != nil {
		return rep, fmt.Errorf("list active calls: %w", err)
	}
	activeByID := make(map[domain.CallID]domain.CallRecord, len(active))
	for _, rec := range active {
		activeByID[rec.ID] = rec
	}

	m.mu.RLock()
	stale := make([]domain.RoomID, 0)
	for id, r := range m.rooms {
		if _, ok := activeByID[r.CallID]; !ok {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()
	for _, id := range stale {
		if m.End(ctx, id, domain.ReasonStale) {
			rep.StaleRooms++
			metrics.SweepRepairs.WithLabelValues("stale_room").Inc()
		}
	}

	now := m.now()
	busy := make(map[domain.UserID]struct{})
	for _, rec := range active {
		if _, ok := m.ByCall(rec.ID); ok {
			busy[rec.ParticipantA] = struct{}{}
			busy[rec.ParticipantB] = struct{}{}
			continue
		}
		if m.OrphanGrace > 0 && now.Sub(rec.StartedAt) < m.OrphanGrace {
			busy[rec.ParticipantA] = struct{}{}
			busy[rec.ParticipantB] = struct{}{}
			continue
		}
		m.Teardown(ctx, rec, domain.ReasonOrphaned)
		rep.OrphanedCalls++
		metrics.SweepRepairs.WithLabelValues("orphaned_call").Inc()
	}

	online, err := m.presence.ListOnline(ctx)
	if err != nil {
		return rep, fmt.Errorf("list online: %w", err)
	}
	onlineSet := make(map[domain.UserID]struct{}, len(online))
	for _, uid := range online {
		onlineSet[uid] = struct{}{}
	}
	for uid := range busy {
		if _, ok := onlineSet[uid]; !ok {
			continue
		}
		if err := m.presence.SetStatus(ctx, uid, domain.StatusBusy); err != nil {
			log.Error().Err(err).Str("module", "app.rooms").Str("user", string(uid)).Msg("presence busy repair failed")
			continue
		}
		rep.MarkedBusy++
		metrics.SweepRepairs.WithLabelValues("marked_busy").Inc()
	}
	for _, uid := range m.registry.Users() {
		if _, ok := onlineSet[uid]; ok {
			continue
		}
		if _, ok := busy[uid]; ok {
			continue
		}
		if sid, ok := m.registry.SessionFor(uid); ok {
			if _, inRoom := m.RoomOf(sid); inRoom {
				continue
			}
		}
		if err := m.presence.AddOnline(ctx, uid); err != nil {
			log.Error().Err(err).Str("module", "app.rooms").Str("user", string(uid)).Msg("presence requeue failed")
			continue
		}
		rep.Requeued++
		metrics.SweepRepairs.WithLabelValues("requeued").Inc()
	}

	if rep.Repairs() > 0 {
		log.Info().Str("module", "app.rooms").
			Int("stale_rooms", rep.StaleRooms).
			Int("orphaned_calls", rep.OrphanedCalls).
			Int("marked_busy", rep.MarkedBusy).
			Int("requeued", rep.Requeued).
			Msg("sweep repaired drift")
	}
	return rep, nil
}

// Shutdown ends every room.
func (m *CallRoomManager) Shutdown(ctx context.Context) {
	m.mu.RLock()
	ids := make([]domain.RoomID, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		m.End(ctx, id, domain.ReasonShutdown)
	}
}

package app

import (
	"sync"

	"github.com/dkeye/Pairline/internal/core"
	"github.com/dkeye/Pairline/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	UserID domain.UserID
	Conn   core.SignalConnection
}

// Registry is the in-process ConnectionRegistry: sessionId ↔ userId plus the
// transport handle of each live session. It never touches the shared stores.
// Mutations happen on the orchestrator worker; the lock lets HTTP handlers read.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
	users    map[domain.UserID]core.SessionID
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
		users:    make(map[domain.UserID]core.SessionID),
	}
}

// Evicted describes a session superseded by a newer join of the same user.
type Evicted struct {
	SID  core.SessionID
	Conn core.SignalConnection
}

// Register binds sid to uid. A previous live session of uid is forgotten and
// returned so the caller can tear it down; the registry does not close it.
// Re-registering the same sid under another user first drops the old binding.
func (r *Registry) Register(sid core.SessionID, uid domain.UserID, conn core.SignalConnection) (Evicted, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.sessions[sid]; ok && prev.UserID != uid {
		delete(r.users, prev.UserID)
	}

	var ev Evicted
	evicted := false
	if old, ok := r.users[uid]; ok && old != sid {
		if e, ok := r.sessions[old]; ok {
			ev = Evicted{SID: old, Conn: e.Conn}
			evicted = true
		}
		delete(r.sessions, old)
		log.Info().Str("module", "app.registry").Str("sid", string(old)).Str("user", string(uid)).Msg("evicted stale session")
	}

	r.sessions[sid] = &sessionEntry{UserID: uid, Conn: conn}
	r.users[uid] = sid
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("user", string(uid)).Msg("registered session")
	return ev, evicted
}

// Unregister removes both directions of the mapping.
func (r *Registry) Unregister(sid core.SessionID) (domain.UserID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return "", false
	}
	delete(r.sessions, sid)
	if r.users[e.UserID] == sid {
		delete(r.users, e.UserID)
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("user", string(e.UserID)).Msg("unregistered session")
	return e.UserID, true
}

func (r *Registry) SessionFor(uid domain.UserID) (core.SessionID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sid, ok := r.users[uid]
	return sid, ok
}

func (r *Registry) UserFor(sid core.SessionID) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.UserID, true
	}
	return "", false
}

func (r *Registry) Conn(sid core.SessionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Conn, true
	}
	return nil, false
}

// Connected reports whether uid currently has a live session.
func (r *Registry) Connected(uid domain.UserID) bool {
	_, ok := r.SessionFor(uid)
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Users returns a snapshot of every connected user.
func (r *Registry) Users() []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.UserID, 0, len(r.users))
	for uid := range r.users {
		out = append(out, uid)
	}
	return out
}

// CloseAll forgets every session and closes its transport.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[core.SessionID]*sessionEntry)
	r.users = make(map[domain.UserID]core.SessionID)
	r.mu.Unlock()

	for sid, e := range sessions {
		if e.Conn != nil {
			e.Conn.Close()
		}
		log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("closed session")
	}
}

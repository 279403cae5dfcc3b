package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dkeye/Pairline/internal/core"
	"github.com/dkeye/Pairline/internal/domain"
)

// MemoryLedger is a process-local ledger with the same uniqueness guarantee
// as SQLiteLedger. Records are lost on restart.
type MemoryLedger struct {
	mu     sync.Mutex
	calls  map[domain.CallID]*domain.CallRecord
	active map[domain.UserID]domain.CallID
	now    func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		calls:  make(map[domain.CallID]*domain.CallRecord),
		active: make(map[domain.UserID]domain.CallID),
		now:    time.Now,
	}
}

func (l *MemoryLedger) CreateActiveCall(_ context.Context, a, b domain.UserID) (domain.CallRecord, error) {
	if a == b {
		return domain.CallRecord{}, core.ErrSelfCall
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, uid := range []domain.UserID{a, b} {
		if _, ok := l.active[uid]; ok {
			return domain.CallRecord{}, fmt.Errorf("%s: %w", uid, core.ErrAlreadyInCall)
		}
	}
	rec := &domain.CallRecord{
		ID:           domain.NewCallID(),
		ParticipantA: a,
		ParticipantB: b,
		Status:       domain.CallActive,
		StartedAt:    l.now().UTC(),
	}
	l.calls[rec.ID] = rec
	l.active[a] = rec.ID
	l.active[b] = rec.ID
	return *rec, nil
}

func (l *MemoryLedger) EndCall(_ context.Context, id domain.CallID) (domain.CallRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.calls[id]
	if !ok {
		return domain.CallRecord{}, fmt.Errorf("%s: %w", id, core.ErrCallNotFound)
	}
	if !rec.Active() {
		return *rec, fmt.Errorf("%s: %w", id, core.ErrCallNotActive)
	}
	rec.Status = domain.CallEnded
	rec.EndedAt = l.now().UTC()
	for _, uid := range rec.Participants() {
		if l.active[uid] == id {
			delete(l.active, uid)
		}
	}
	return *rec, nil
}

func (l *MemoryLedger) FindActiveCallsFor(_ context.Context, userIDs []domain.UserID) ([]domain.CallRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := make(map[domain.CallID]struct{})
	var out []domain.CallRecord
	for _, uid := range userIDs {
		id, ok := l.active[uid]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, *l.calls[id])
	}
	return out, nil
}

func (l *MemoryLedger) ListActiveCalls(_ context.Context) ([]domain.CallRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.CallRecord
	for _, rec := range l.calls {
		if rec.Active() {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (l *MemoryLedger) Get(_ context.Context, id domain.CallID) (domain.CallRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.calls[id]
	if !ok {
		return domain.CallRecord{}, fmt.Errorf("%s: %w", id, core.ErrCallNotFound)
	}
	return *rec, nil
}

func (l *MemoryLedger) Ping(context.Context) error { return nil }

func (l *MemoryLedger) Close() error { return nil }

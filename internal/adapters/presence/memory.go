package presence

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dkeye/Pairline/internal/domain"
)

// MemoryStore is a single-process presence registry with the same FIFO
// semantics as RedisStore.
type MemoryStore struct {
	mu     sync.Mutex
	seq    uint64
	online map[domain.UserID]uint64
	status map[domain.UserID]domain.PresenceStatus
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		online: make(map[domain.UserID]uint64),
		status: make(map[domain.UserID]domain.PresenceStatus),
	}
}

func (s *MemoryStore) enqueue(uid domain.UserID) {
	if _, ok := s.online[uid]; !ok {
		s.seq++
		s.online[uid] = s.seq
	}
	s.status[uid] = domain.StatusOnline
}

func (s *MemoryStore) AddOnline(_ context.Context, uid domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueue(uid)
	return nil
}

func (s *MemoryStore) RemoveOnline(_ context.Context, uid domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.online, uid)
	return nil
}

func (s *MemoryStore) ListOnline(_ context.Context) ([]domain.UserID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserID, 0, len(s.online))
	for uid := range s.online {
		out = append(out, uid)
	}
	sort.Slice(out, func(i, j int) bool { return s.online[out[i]] < s.online[out[j]] })
	return out, nil
}

func (s *MemoryStore) SetStatus(_ context.Context, uid domain.UserID, status domain.PresenceStatus) error {
	if !status.Valid() {
		return fmt.Errorf("unknown presence status %q", status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch status {
	case domain.StatusOnline:
		delete(s.online, uid)
		s.enqueue(uid)
	case domain.StatusBusy:
		delete(s.online, uid)
		s.status[uid] = domain.StatusBusy
	case domain.StatusOffline:
		delete(s.online, uid)
		delete(s.status, uid)
	}
	return nil
}

func (s *MemoryStore) Status(_ context.Context, uid domain.UserID) (domain.PresenceStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.status[uid]; ok {
		return st, nil
	}
	return domain.StatusOffline, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

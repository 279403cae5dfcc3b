package app

import (
	"sync"

	"github.com/dkeye/Pairline/internal/domain"
)

// InFlightSet holds users claimed by a pairing attempt that has not been
// committed to the ledger yet. It is never persisted.
type InFlightSet struct {
	mu    sync.Mutex
	users map[domain.UserID]struct{}
}

func NewInFlightSet() *InFlightSet {
	return &InFlightSet{users: make(map[domain.UserID]struct{})}
}

// Claim adds every user or none. It fails if any of them is already claimed.
func (s *InFlightSet) Claim(uids ...domain.UserID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range uids {
		if _, ok := s.users[u]; ok {
			return false
		}
	}
	for _, u := range uids {
		s.users[u] = struct{}{}
	}
	return true
}

func (s *InFlightSet) Release(uids ...domain.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range uids {
		delete(s.users, u)
	}
}

func (s *InFlightSet) Has(uid domain.UserID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[uid]
	return ok
}

func (s *InFlightSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

//go:generate go run go.uber.org/mock/mockgen -source=interfaces.go -destination=../mocks/mock_interfaces.go -package=mocks
package core

import (
	"context"

	"github.com/dkeye/Pairline/internal/domain"
)

// Frame is a raw payload written to a signaling transport (one JSON message).
type Frame []byte

type SessionID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// PresenceStore is the shared registry of users eligible for pairing.
// Implementations must be safe for concurrent callers across processes.
type PresenceStore interface {
	// AddOnline marks a user eligible. An already-online user keeps its queue position.
	AddOnline(ctx context.Context, userID domain.UserID) error
	RemoveOnline(ctx context.Context, userID domain.UserID) error
	// ListOnline returns eligible users in FIFO order of registration.
	ListOnline(ctx context.Context) ([]domain.UserID, error)
	// SetStatus moves a user between online, busy and offline.
	// Online re-queues at the tail, busy and offline remove from the online set.
	SetStatus(ctx context.Context, userID domain.UserID, status domain.PresenceStatus) error
	Ping(ctx context.Context) error
}

// CallLedger is the durable source of truth for "is this user in a call".
type CallLedger interface {
	// CreateActiveCall fails with ErrAlreadyInCall when either user already
	// has an active record. This is the double-booking guard.
	CreateActiveCall(ctx context.Context, a, b domain.UserID) (domain.CallRecord, error)
	// EndCall returns ErrCallNotActive together with the record when it had already ended.
	EndCall(ctx context.Context, id domain.CallID) (domain.CallRecord, error)
	FindActiveCallsFor(ctx context.Context, userIDs []domain.UserID) ([]domain.CallRecord, error)
	ListActiveCalls(ctx context.Context) ([]domain.CallRecord, error)
	Ping(ctx context.Context) error
}

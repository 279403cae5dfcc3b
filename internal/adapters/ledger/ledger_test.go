package ledger

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dkeye/Pairline/internal/core"
	"github.com/dkeye/Pairline/internal/domain"
	"github.com/stretchr/testify/require"
)

type ledgerUnderTest interface {
	core.CallLedger
	Get(ctx context.Context, id domain.CallID) (domain.CallRecord, error)
}

func openLedgers(t *testing.T) map[string]ledgerUnderTest {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "calls.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]ledgerUnderTest{
		"sqlite": sqlite,
		"memory": NewMemoryLedger(),
	}
}

func TestLedger_Contract(t *testing.T) {
	for name, l := range openLedgers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("should create an active call", func(t *testing.T) {
				req := require.New(t)

				rec, err := l.CreateActiveCall(ctx, "a1", "b1")

				req.NoError(err)
				req.Contains(string(rec.ID), "call_")
				req.Equal(domain.CallActive, rec.Status)
				req.False(rec.StartedAt.IsZero())
				found, err := l.FindActiveCallsFor(ctx, []domain.UserID{"b1", "nobody"})
				req.NoError(err)
				req.Len(found, 1)
				req.Equal(rec.ID, found[0].ID)
				req.Equal(domain.UserID("a1"), found[0].ParticipantA)
			})

			t.Run("should refuse to double-book a participant", func(t *testing.T) {
				req := require.New(t)
				_, err := l.CreateActiveCall(ctx, "a2", "b2")
				req.NoError(err)

				_, err = l.CreateActiveCall(ctx, "c2", "b2")

				req.ErrorIs(err, core.ErrAlreadyInCall)
				found, err := l.FindActiveCallsFor(ctx, []domain.UserID{"c2"})
				req.NoError(err)
				req.Empty(found)
			})

			t.Run("should refuse a self call", func(t *testing.T) {
				_, err := l.CreateActiveCall(ctx, "solo", "solo")
				require.ErrorIs(t, err, core.ErrSelfCall)
			})

			t.Run("should end a call once", func(t *testing.T) {
				req := require.New(t)
				rec, err := l.CreateActiveCall(ctx, "a3", "b3")
				req.NoError(err)

				ended, err := l.EndCall(ctx, rec.ID)
				req.NoError(err)
				req.Equal(domain.CallEnded, ended.Status)
				req.False(ended.EndedAt.IsZero())

				again, err := l.EndCall(ctx, rec.ID)
				req.ErrorIs(err, core.ErrCallNotActive)
				req.Equal(rec.ID, again.ID)

				stored, err := l.Get(ctx, rec.ID)
				req.NoError(err)
				req.Equal(domain.CallEnded, stored.Status)

				// And both users can be paired again
				_, err = l.CreateActiveCall(ctx, "b3", "a3")
				req.NoError(err)
			})

			t.Run("should report unknown calls", func(t *testing.T) {
				_, err := l.EndCall(ctx, "call_missing")
				require.ErrorIs(t, err, core.ErrCallNotFound)
			})

			t.Run("should list only active calls", func(t *testing.T) {
				req := require.New(t)
				active, err := l.ListActiveCalls(ctx)
				req.NoError(err)
				for _, rec := range active {
					req.True(rec.Active())
				}
				// a1/b1, a2/b2, b3/a3
				req.Len(active, 3)
			})

			t.Run("should answer an empty lookup", func(t *testing.T) {
				found, err := l.FindActiveCallsFor(ctx, nil)
				require.NoError(t, err)
				require.Empty(t, found)
			})

			require.NoError(t, l.Ping(ctx))
		})
	}
}

func TestLedger_ConcurrentBookingsOfOneUser(t *testing.T) {
	for name, l := range openLedgers(t) {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()

			// Given many pairings racing for the same user
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				success int
			)
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := l.CreateActiveCall(ctx, "hot", domain.UserID("peer-"+string(rune('a'+i))))
					if err == nil {
						mu.Lock()
						success++
						mu.Unlock()
					}
				}(i)
			}
			wg.Wait()

			// Then exactly one is committed
			req.Equal(1, success)
			found, err := l.FindActiveCallsFor(ctx, []domain.UserID{"hot"})
			req.NoError(err)
			req.Len(found, 1)
		})
	}
}

func TestSQLiteLedger_SurvivesRestart(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "calls.db")

	l, err := OpenSQLite(path)
	req.NoError(err)
	rec, err := l.CreateActiveCall(ctx, "a", "b")
	req.NoError(err)
	req.NoError(l.Close())

	// When the process comes back
	l, err = OpenSQLite(path)
	req.NoError(err)
	defer l.Close()

	// Then the active record is still the truth
	active, err := l.ListActiveCalls(ctx)
	req.NoError(err)
	req.Len(active, 1)
	req.Equal(rec.ID, active[0].ID)
	req.Equal(rec.StartedAt, active[0].StartedAt)
	_, err = l.CreateActiveCall(ctx, "a", "c")
	req.ErrorIs(err, core.ErrAlreadyInCall)
}

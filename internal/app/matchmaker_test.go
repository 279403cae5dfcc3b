package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkeye/Pairline/internal/adapters/ledger"
	"github.com/dkeye/Pairline/internal/adapters/presence"
	"github.com/dkeye/Pairline/internal/core"
	"github.com/dkeye/Pairline/internal/domain"
	"github.com/dkeye/Pairline/internal/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func pairsOf(res PassResult) [][2]domain.UserID {
	out := make([][2]domain.UserID, 0, len(res.Pairs))
	for _, p := range res.Pairs {
		out = append(out, p.Users)
	}
	return out
}

func TestMatchMaker_PairsInFIFOOrder(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newHarness()

	// Given six users queued in order
	h.join(t, "U1", "U2", "U3", "U4", "U5", "U6")

	// When a pass runs
	res, err := h.mm.Pass(ctx)

	// Then they are paired by position
	req.NoError(err)
	req.Equal([][2]domain.UserID{{"U1", "U2"}, {"U3", "U4"}, {"U5", "U6"}}, pairsOf(res))
	req.Equal(6, res.Candidates)
	req.Equal(0, h.inflight.Len())

	// And everyone is busy with a call-ready in hand
	online, err := h.presence.ListOnline(ctx)
	req.NoError(err)
	req.Empty(online)
	for uid, conn := range h.conns {
		req.Equal(domain.StatusBusy, h.status(t, uid))
		req.Len(conn.ofType(t, core.EventCallReady), 1)
	}
	active, err := h.ledger.ListActiveCalls(ctx)
	req.NoError(err)
	req.Len(active, 3)
	req.Equal(3, h.rooms.Len())
}

func TestMatchMaker_OddUserWaits(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newHarness()
	h.join(t, "U1", "U2", "U3")

	res, err := h.mm.Pass(ctx)

	req.NoError(err)
	req.Len(res.Pairs, 1)
	online, err := h.presence.ListOnline(ctx)
	req.NoError(err)
	req.Equal([]domain.UserID{"U3"}, online)
}

func TestMatchMaker_SkipsUsersAlreadyInCall(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newHarness()
	h.join(t, "U1", "U2", "U3")

	// Given U1 holds an active call the presence registry does not know about
	_, err := h.ledger.CreateActiveCall(ctx, "U1", "X")
	req.NoError(err)

	res, err := h.mm.Pass(ctx)

	// Then U1 is never offered
	req.NoError(err)
	req.Equal([][2]domain.UserID{{"U2", "U3"}}, pairsOf(res))
	req.Empty(h.conns["U1"].ofType(t, core.EventCallReady))
}

func TestMatchMaker_SkipsInFlightUsers(t *testing.T) {
	req := require.New(t)
	h := newHarness()
	h.join(t, "U1", "U2", "U3")
	req.True(h.inflight.Claim("U1"))

	res, err := h.mm.Pass(context.Background())

	req.NoError(err)
	req.Equal([][2]domain.UserID{{"U2", "U3"}}, pairsOf(res))
}

func TestMatchMaker_PurgesStalePresence(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newHarness()
	h.join(t, "U1")

	// Given a presence entry left behind by a session that is gone
	req.NoError(h.presence.AddOnline(ctx, "ghost"))

	res, err := h.mm.Pass(ctx)
	h.mm.Wait()

	req.NoError(err)
	req.Empty(res.Pairs)
	req.Equal([]domain.UserID{"ghost"}, res.Purged)
	online, err := h.presence.ListOnline(ctx)
	req.NoError(err)
	req.Equal([]domain.UserID{"U1"}, online)
}

func TestMatchMaker_LedgerConflictRequeuesFreeMember(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := newHarness()
	calls := mocks.NewMockCallLedger(ctrl)
	h.rooms = NewCallRoomManager(h.reg, h.notifier, calls, h.presence)
	h.mm = NewMatchMaker(h.reg, h.presence, calls, h.rooms, h.inflight)
	h.join(t, "U1", "U2", "U3")

	// Given another process booked U1 between the batch check and the commit
	elsewhere := domain.CallRecord{ID: "call_elsewhere", ParticipantA: "U1", ParticipantB: "X", Status: domain.CallActive}
	committed := domain.CallRecord{ID: "call_ok", ParticipantA: "U2", ParticipantB: "U3", Status: domain.CallActive, StartedAt: time.Now()}
	gomock.InOrder(
		calls.EXPECT().FindActiveCallsFor(gomock.Any(), []domain.UserID{"U1", "U2", "U3"}).Return(nil, nil),
		calls.EXPECT().FindActiveCallsFor(gomock.Any(), []domain.UserID{"U1", "U2"}).Return(nil, nil),
		calls.EXPECT().CreateActiveCall(gomock.Any(), domain.UserID("U1"), domain.UserID("U2")).Return(domain.CallRecord{}, core.ErrAlreadyInCall),
		calls.EXPECT().FindActiveCallsFor(gomock.Any(), []domain.UserID{"U1", "U2"}).Return([]domain.CallRecord{elsewhere}, nil),
		calls.EXPECT().FindActiveCallsFor(gomock.Any(), []domain.UserID{"U2", "U3"}).Return(nil, nil),
		calls.EXPECT().CreateActiveCall(gomock.Any(), domain.UserID("U2"), domain.UserID("U3")).Return(committed, nil),
	)

	res, err := h.mm.Pass(ctx)

	// Then the pair is aborted and U2 is paired next, ahead of later arrivals
	req.NoError(err)
	req.Equal(1, res.Aborted)
	req.Equal([][2]domain.UserID{{"U2", "U3"}}, pairsOf(res))
	req.Empty(h.conns["U1"].ofType(t, core.EventCallReady))
	req.Equal(0, h.inflight.Len())
}

func TestMatchMaker_StoreErrorAbortsWithoutCommit(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := newHarness()
	calls := mocks.NewMockCallLedger(ctrl)
	h.rooms = NewCallRoomManager(h.reg, h.notifier, calls, h.presence)
	h.mm = NewMatchMaker(h.reg, h.presence, calls, h.rooms, h.inflight)
	h.join(t, "U1", "U2")

	calls.EXPECT().FindActiveCallsFor(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down")).Times(1)
	calls.EXPECT().CreateActiveCall(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	res, err := h.mm.Pass(context.Background())

	req.Error(err)
	req.Empty(res.Pairs)
	req.Equal(0, h.rooms.Len())
}

func TestMatchMaker_PresenceFailureAfterCommitNeedsRepair(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := newHarness()
	pres := mocks.NewMockPresenceStore(ctrl)
	h.rooms = NewCallRoomManager(h.reg, h.notifier, h.ledger, pres)
	h.mm = NewMatchMaker(h.reg, pres, h.ledger, h.rooms, h.inflight)
	for _, uid := range []domain.UserID{"U1", "U2"} {
		conn := &fakeConn{}
		h.conns[uid] = conn
		h.reg.Register(sidOf(uid), uid, conn)
	}

	pres.EXPECT().ListOnline(gomock.Any()).Return([]domain.UserID{"U1", "U2"}, nil).Times(1)
	pres.EXPECT().SetStatus(gomock.Any(), gomock.Any(), domain.StatusBusy).Return(errors.New("redis down")).Times(2)

	res, err := h.mm.Pass(ctx)

	// Then the ledger commit stands and the pass asks for reconciliation
	req.NoError(err)
	req.True(res.NeedsRepair)
	req.Len(res.Pairs, 1)
	active, err := h.ledger.ListActiveCalls(ctx)
	req.NoError(err)
	req.Len(active, 1)
	req.Len(h.conns["U1"].ofType(t, core.EventCallReady), 1)
}

func TestMatchMaker_SessionGoneAfterCommitTearsDown(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := newHarness()
	calls := mocks.NewMockCallLedger(ctrl)
	h.rooms = NewCallRoomManager(h.reg, h.notifier, calls, h.presence)
	h.mm = NewMatchMaker(h.reg, h.presence, calls, h.rooms, h.inflight)
	h.join(t, "U1", "U2")

	rec := domain.CallRecord{ID: "call_gone", ParticipantA: "U1", ParticipantB: "U2", Status: domain.CallActive}
	calls.EXPECT().FindActiveCallsFor(gomock.Any(), gomock.Any()).Return(nil, nil).Times(2)
	// Given U2 disconnects while the record is being written
	calls.EXPECT().CreateActiveCall(gomock.Any(), domain.UserID("U1"), domain.UserID("U2")).
		DoAndReturn(func(context.Context, domain.UserID, domain.UserID) (domain.CallRecord, error) {
			h.reg.Unregister(sidOf("U2"))
			return rec, nil
		}).Times(1)
	calls.EXPECT().EndCall(gomock.Any(), rec.ID).Return(rec, nil).Times(1)

	res, err := h.mm.Pass(ctx)

	// Then the call is ended at once and U1 goes back to the queue
	req.NoError(err)
	req.Empty(res.Pairs)
	req.Equal(1, res.Aborted)
	req.Equal(0, h.rooms.Len())
	req.Equal(domain.StatusOnline, h.status(t, "U1"))
	req.Equal(domain.StatusOffline, h.status(t, "U2"))
	req.Empty(h.conns["U1"].ofType(t, core.EventCallReady))
}

func TestMatchMaker_NoDoubleBookingAcrossWorkers(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	// Given two processes sharing one presence registry and one ledger
	pres := presence.NewMemoryStore()
	calls := ledger.NewMemoryLedger()
	var makers []*MatchMaker
	for i := 0; i < 2; i++ {
		reg := NewRegistry()
		n := NewNotifier(reg, SimplePolicy{})
		rooms := NewCallRoomManager(reg, n, calls, pres)
		for _, uid := range []domain.UserID{"U1", "U2", "U3", "U4"} {
			reg.Register(sidOf(uid), uid, &fakeConn{})
		}
		makers = append(makers, NewMatchMaker(reg, pres, calls, rooms, NewInFlightSet()))
	}
	for _, uid := range []domain.UserID{"U1", "U2", "U3", "U4"} {
		req.NoError(pres.AddOnline(ctx, uid))
	}

	// When both run a pass over the same snapshot
	errs := make(chan error, 2)
	for _, mm := range makers {
		mm := mm
		go func() {
			_, err := mm.Pass(ctx)
			errs <- err
		}()
	}
	req.NoError(<-errs)
	req.NoError(<-errs)

	// Then no user ends up in two active calls
	active, err := calls.ListActiveCalls(ctx)
	req.NoError(err)
	seen := map[domain.UserID]int{}
	for _, rec := range active {
		seen[rec.ParticipantA]++
		seen[rec.ParticipantB]++
	}
	for uid, n := range seen {
		req.Equalf(1, n, "user %s booked %d times", uid, n)
	}
	req.Len(active, 2)
}

func TestMatchMaker_AvoidedPairIsNotMatched(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newHarness()

	// Given U1 and U2 must not meet and U3 waits behind them
	h.join(t, "U1", "U2", "U3")

	// When a pass runs with the pair avoided
	res, err := h.mm.PassWith(ctx, PassOptions{Avoid: [2]domain.UserID{"U2", "U1"}})

	// Then U1 takes the next allowed user and U2 keeps waiting
	req.NoError(err)
	req.Equal([][2]domain.UserID{{"U1", "U3"}}, pairsOf(res))
	online, err := h.presence.ListOnline(ctx)
	req.NoError(err)
	req.Equal([]domain.UserID{"U2"}, online)
}

func TestMatchMaker_AvoidedPairAloneStaysQueued(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newHarness()
	h.join(t, "U1", "U2")

	res, err := h.mm.PassWith(ctx, PassOptions{Avoid: [2]domain.UserID{"U1", "U2"}})

	req.NoError(err)
	req.Empty(res.Pairs)
	req.Equal(2, res.Candidates)
	online, err := h.presence.ListOnline(ctx)
	req.NoError(err)
	req.Equal([]domain.UserID{"U1", "U2"}, online)

	// A later plain pass pairs them as usual
	res, err = h.mm.Pass(ctx)
	req.NoError(err)
	req.Len(res.Pairs, 1)
}

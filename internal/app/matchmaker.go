package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Pairline/internal/core"
	"github.com/dkeye/Pairline/internal/domain"
	"github.com/dkeye/Pairline/internal/metrics"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

const purgeTimeout = 5 * time.Second

// Pairing is one committed call produced by a pass.
type Pairing struct {
	CallID domain.CallID    `json:"callId"`
	RoomID domain.RoomID    `json:"roomId"`
	Users  [2]domain.UserID `json:"participants"`
}

// PassResult reports what a single MatchMaker pass did.
type PassResult struct {
	Candidates  int             `json:"candidates"`
	Pairs       []Pairing       `json:"pairs"`
	Aborted     int             `json:"aborted"`
	Purged      []domain.UserID `json:"purged,omitempty"`
	NeedsRepair bool            `json:"needsRepair"`
}

// Paired reports whether uid was paired by this pass.
func (r PassResult) Paired(uid domain.UserID) bool {
	for _, p := range r.Pairs {
		if p.Users[0] == uid || p.Users[1] == uid {
			return true
		}
	}
	return false
}

// PassOptions tunes a single pass.
type PassOptions struct {
	// Avoid is a pair that must not be matched together in this pass.
	Avoid [2]domain.UserID
}

func (o PassOptions) avoids(a, b domain.UserID) bool {
	x, y := o.Avoid[0], o.Avoid[1]
	if x == "" || y == "" {
		return false
	}
	return (a == x && b == y) || (a == y && b == x)
}

// MatchMaker turns the eligible users of the presence registry into committed
// pairings, strictly in FIFO order of registration.
type MatchMaker struct {
	registry *Registry
	presence core.PresenceStore
	ledger   core.CallLedger
	rooms    *CallRoomManager
	inflight *InFlightSet

	bg conc.WaitGroup
}

func NewMatchMaker(reg *Registry, presence core.PresenceStore, ledger core.CallLedger, rooms *CallRoomManager, inflight *InFlightSet) *MatchMaker {
	return &MatchMaker{
		registry: reg,
		presence: presence,
		ledger:   ledger,
		rooms:    rooms,
		inflight: inflight,
	}
}

// Pass runs one matchmaking pass. A store error aborts the pass; pairs
// committed before the error stay committed, no pair is left half-written.
func (mm *MatchMaker) Pass(ctx context.Context) (PassResult, error) {
	return mm.PassWith(ctx, PassOptions{})
}

// PassWith runs one pass under opts.
func (mm *MatchMaker) PassWith(ctx context.Context, opts PassOptions) (PassResult, error) {
	start := time.Now()
	res, err := mm.pass(ctx, opts)
	metrics.MatchPassDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MatchPasses.WithLabelValues("error").Inc()
		return res, err
	}
	metrics.MatchPasses.WithLabelValues("ok").Inc()
	return res, nil
}

func (mm *MatchMaker) pass(ctx context.Context, opts PassOptions) (PassResult, error) {
	var res PassResult

	online, err := mm.presence.ListOnline(ctx)
	if err != nil {
		return res, fmt.Errorf("list online: %w", err)
	}

	ready := make([]domain.UserID, 0, len(online))
	var stale []domain.UserID
	for _, uid := range online {
		if !mm.registry.Connected(uid) {
			stale = append(stale, uid)
			continue
		}
		if mm.inflight.Has(uid) {
			continue
		}
		ready = append(ready, uid)
	}
	if len(stale) > 0 {
		res.Purged = stale
		mm.purge(stale)
	}
	if len(ready) < 2 {
		res.Candidates = len(ready)
		return res, nil
	}

	busy, err := mm.busyAmong(ctx, ready)
	if err != nil {
		return res, err
	}
	queue := ready[:0]
	for _, uid := range ready {
		if _, ok := busy[uid]; !ok {
			queue = append(queue, uid)
		}
	}
	res.Candidates = len(queue)

	for len(queue) >= 2 {
		a := queue[0]
		j := 1
		for j < len(queue) && opts.avoids(a, queue[j]) {
			j++
		}
		if j == len(queue) {
			queue = queue[1:]
			continue
		}
		b := queue[j]
		rest := make([]domain.UserID, 0, len(queue)-2)
		rest = append(rest, queue[1:j]...)
		queue = append(rest, queue[j+1:]...)
		free, err := mm.commit(ctx, a, b, &res)
		if err != nil {
			return res, err
		}
		if len(free) > 0 {
			queue = append(free, queue...)
		}
	}

	log.Info().Str("module", "app.matchmaker").
		Int("candidates", res.Candidates).
		Int("pairs", len(res.Pairs)).
		Int("aborted", res.Aborted).
		Int("purged", len(res.Purged)).
		Msg("match pass")
	return res, nil
}

// commit tries to turn a and b into a call. When the pair is aborted because
// one side turned out busy, the still-free side is returned for requeueing.
func (mm *MatchMaker) commit(ctx context.Context, a, b domain.UserID, res *PassResult) ([]domain.UserID, error) {
	if !mm.inflight.Claim(a, b) {
		res.Aborted++
		metrics.PairsAborted.WithLabelValues("in_flight").Inc()
		return mm.notInFlight(a, b), nil
	}
	defer mm.inflight.Release(a, b)

	busy, err := mm.busyAmong(ctx, []domain.UserID{a, b})
	if err != nil {
		return nil, err
	}
	if len(busy) > 0 {
		res.Aborted++
		metrics.PairsAborted.WithLabelValues("busy").Inc()
		log.Debug().Str("module", "app.matchmaker").Str("a", string(a)).Str("b", string(b)).Msg("pair aborted on re-verification")
		return freeOf(busy, a, b), nil
	}

	rec, err := mm.ledger.CreateActiveCall(ctx, a, b)
	if errors.Is(err, core.ErrAlreadyInCall) {
		res.Aborted++
		metrics.PairsAborted.WithLabelValues("ledger_conflict").Inc()
		busy, err := mm.busyAmong(ctx, []domain.UserID{a, b})
		if err != nil {
			return nil, err
		}
		return freeOf(busy, a, b), nil
	}
	if err != nil {
		return nil, fmt.Errorf("create call %s/%s: %w", a, b, err)
	}
	metrics.PairsCommitted.Inc()

	for _, uid := range rec.Participants() {
		if err := mm.presence.SetStatus(ctx, uid, domain.StatusBusy); err != nil {
			// Ledger is truth; the repair sweep rewrites presence from it.
			res.NeedsRepair = true
			log.Error().Err(err).Str("module", "app.matchmaker").Str("user", string(uid)).Msg("presence busy write failed")
		}
	}

	sidA, okA := mm.registry.SessionFor(a)
	sidB, okB := mm.registry.SessionFor(b)
	if !okA || !okB {
		res.Aborted++
		metrics.PairsAborted.WithLabelValues("session_gone").Inc()
		mm.rooms.Teardown(ctx, rec, domain.ReasonSessionGone)
		return nil, nil
	}
	room, err := mm.rooms.Open(rec, sidA, sidB)
	if err != nil {
		res.Aborted++
		metrics.PairsAborted.WithLabelValues("room_create").Inc()
		log.Warn().Err(err).Str("module", "app.matchmaker").Str("call", string(rec.ID)).Msg("room create failed")
		mm.rooms.Teardown(ctx, rec, domain.ReasonSessionGone)
		return nil, nil
	}

	res.Pairs = append(res.Pairs, Pairing{CallID: rec.ID, RoomID: room.ID, Users: rec.Participants()})
	log.Info().Str("module", "app.matchmaker").Str("a", string(a)).Str("b", string(b)).Str("room", string(room.ID)).Msg("paired")
	return nil, nil
}

func (mm *MatchMaker) busyAmong(ctx context.Context, uids []domain.UserID) (map[domain.UserID]struct{}, error) {
	calls, err := mm.ledger.FindActiveCallsFor(ctx, uids)
	if err != nil {
		return nil, fmt.Errorf("find active calls: %w", err)
	}
	busy := make(map[domain.UserID]struct{}, len(calls)*2)
	for _, c := range calls {
		busy[c.ParticipantA] = struct{}{}
		busy[c.ParticipantB] = struct{}{}
	}
	return busy, nil
}

func (mm *MatchMaker) notInFlight(uids ...domain.UserID) []domain.UserID {
	out := make([]domain.UserID, 0, len(uids))
	for _, u := range uids {
		if !mm.inflight.Has(u) {
			out = append(out, u)
		}
	}
	return out
}

func freeOf(busy map[domain.UserID]struct{}, uids ...domain.UserID) []domain.UserID {
	out := make([]domain.UserID, 0, len(uids))
	for _, u := range uids {
		if _, ok := busy[u]; !ok {
			out = append(out, u)
		}
	}
	return out
}

// purge removes presence entries whose session vanished. It runs off the
// worker; a user that reconnected in the meantime is left alone.
// Only sessions of this process are known here, so several processes must
// not share one presence store: each would purge the other's users.
func (mm *MatchMaker) purge(stale []domain.UserID) {
	mm.bg.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
		defer cancel()
		for _, uid := range stale {
			if mm.registry.Connected(uid) {
				continue
			}
			if err := mm.presence.RemoveOnline(ctx, uid); err != nil {
				log.Warn().Err(err).Str("module", "app.matchmaker").Str("user", string(uid)).Msg("stale presence purge failed")
				continue
			}
			log.Info().Str("module", "app.matchmaker").Str("user", string(uid)).Msg("purged stale presence")
		}
	})
}

// Wait blocks until background purges have finished.
func (mm *MatchMaker) Wait() {
	mm.bg.Wait()
}

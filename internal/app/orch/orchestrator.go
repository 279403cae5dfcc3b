package orch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Pairline/internal/app"
	"github.com/dkeye/Pairline/internal/core"
	"github.com/dkeye/Pairline/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var ErrStopped = errors.New("orchestrator stopped")

type Config struct {
	// MatchDelay debounces passes triggered by joins and departures.
	MatchDelay time.Duration
	// MatchInterval is the backstop pass period.
	MatchInterval time.Duration
	SweepInterval time.Duration
	// OrphanGrace spares ledger records younger than this from the sweep.
	OrphanGrace     time.Duration
	OpTimeout       time.Duration
	ShutdownTimeout time.Duration
	ICEServers      []webrtc.ICEServer
}

func (c Config) withDefaults() Config {
	if c.MatchInterval <= 0 {
		c.MatchInterval = 10 * time.Second
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 30 * time.Second
	}
	if c.OpTimeout <= 0 {
		c.OpTimeout = 10 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	return c
}

type op struct {
	name string
	fn   func(ctx context.Context)
	done chan struct{}
}

// Orchestrator is the single logical worker of the core. Every operation that
// mutates in-process state or writes the shared stores runs on its goroutine,
// one at a time, in submission order.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    *app.CallRoomManager
	Match    *app.MatchMaker
	Relay    *app.SignalRelay
	Notifier *app.Notifier
	InFlight *app.InFlightSet
	Presence core.PresenceStore
	Ledger   core.CallLedger

	cfg       Config
	startedAt time.Time

	ops      chan op
	stopped  chan struct{}
	matchDue <-chan time.Time
}

// New wires the core components around the two shared stores.
func New(presence core.PresenceStore, ledger core.CallLedger, policy app.Policy, cfg Config) *Orchestrator {
	cfg = cfg.withDefaults()
	reg := app.NewRegistry()
	notifier := app.NewNotifier(reg, policy)
	inflight := app.NewInFlightSet()
	rooms := app.NewCallRoomManager(reg, notifier, ledger, presence)
	rooms.OrphanGrace = cfg.OrphanGrace

	return &Orchestrator{
		Registry:  reg,
		Rooms:     rooms,
		Match:     app.NewMatchMaker(reg, presence, ledger, rooms, inflight),
		Relay:     app.NewSignalRelay(rooms, notifier),
		Notifier:  notifier,
		InFlight:  inflight,
		Presence:  presence,
		Ledger:    ledger,
		cfg:       cfg,
		startedAt: time.Now(),
		ops:       make(chan op),
		stopped:   make(chan struct{}),
	}
}

// Run processes operations and timers until ctx is cancelled, then ends every
// room, marks connected users offline and closes their sessions.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer close(o.stopped)

	matchTicker := time.NewTicker(o.cfg.MatchInterval)
	defer matchTicker.Stop()
	sweepTicker := time.NewTicker(o.cfg.SweepInterval)
	defer sweepTicker.Stop()

	log.Info().Str("module", "orch").
		Dur("match_interval", o.cfg.MatchInterval).
		Dur("sweep_interval", o.cfg.SweepInterval).
		Msg("worker started")

	// Recover from a previous process: calls it left active have no room here.
	o.exec(ctx, "startup-sweep", func(ctx context.Context) { o.runSweep(ctx) })

	for {
		select {
		case <-ctx.Done():
			o.shutdown()
			return nil
		case p := <-o.ops:
			o.exec(ctx, p.name, p.fn)
			close(p.done)
		case <-o.matchDue:
			o.matchDue = nil
			o.exec(ctx, "match", func(ctx context.Context) { o.runPass(ctx) })
		case <-matchTicker.C:
			o.exec(ctx, "match-backstop", func(ctx context.Context) { o.runPass(ctx) })
		case <-sweepTicker.C:
			o.exec(ctx, "sweep", func(ctx context.Context) { o.runSweep(ctx) })
		}
	}
}

// Done is closed once Run has returned.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.stopped
}

func (o *Orchestrator) exec(ctx context.Context, name string, fn func(ctx context.Context)) {
	opCtx, cancel := context.WithTimeout(ctx, o.cfg.OpTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "orch").Str("op", name).Interface("panic", r).Msg("operation panicked")
		}
	}()
	fn(opCtx)
}

// submit runs fn on the worker and waits for it. The operation still runs to
// completion if ctx is cancelled after it was accepted.
func (o *Orchestrator) submit(ctx context.Context, name string, fn func(ctx context.Context)) error {
	p := op{name: name, fn: fn, done: make(chan struct{})}
	select {
	case o.ops <- p:
	case <-ctx.Done():
		return ctx.Err()
	case <-o.stopped:
		return ErrStopped
	}
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// scheduleMatch arms the debounced pass; later triggers fold into it.
func (o *Orchestrator) scheduleMatch() {
	if o.matchDue == nil {
		o.matchDue = time.After(o.cfg.MatchDelay)
	}
}

func (o *Orchestrator) runPass(ctx context.Context) (app.PassResult, error) {
	return o.runPassWith(ctx, app.PassOptions{})
}

func (o *Orchestrator) runPassWith(ctx context.Context, opts app.PassOptions) (app.PassResult, error) {
	res, err := o.Match.PassWith(ctx, opts)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("match pass aborted")
	}
	if res.NeedsRepair {
		o.runSweep(ctx)
	}
	return res, err
}

func (o *Orchestrator) runSweep(ctx context.Context) (app.SweepReport, error) {
	rep, err := o.Rooms.Sweep(ctx)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("sweep aborted")
	}
	if rep.Repairs() > 0 {
		o.scheduleMatch()
	}
	return rep, err
}

func (o *Orchestrator) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.ShutdownTimeout)
	defer cancel()

	log.Info().Str("module", "orch").Int("rooms", o.Rooms.Len()).Int("sessions", o.Registry.Len()).Msg("worker shutting down")
	o.Rooms.Shutdown(ctx)
	for _, uid := range o.Registry.Users() {
		if err := o.Presence.SetStatus(ctx, uid, domain.StatusOffline); err != nil {
			log.Error().Err(err).Str("module", "orch").Str("user", string(uid)).Msg("presence offline on shutdown failed")
		}
	}
	o.Registry.CloseAll()
	o.Match.Wait()
	log.Info().Str("module", "orch").Msg("worker stopped")
}

// ForceMatch runs a pass right away.
func (o *Orchestrator) ForceMatch(ctx context.Context) (app.PassResult, error) {
	var (
		res  app.PassResult
		pErr error
	)
	if err := o.submit(ctx, "force-match", func(ctx context.Context) {
		res, pErr = o.runPass(ctx)
	}); err != nil {
		return res, err
	}
	return res, pErr
}

// Sweep runs a reconciliation sweep right away.
func (o *Orchestrator) Sweep(ctx context.Context) (app.SweepReport, error) {
	var (
		rep  app.SweepReport
		sErr error
	)
	if err := o.submit(ctx, "sweep", func(ctx context.Context) {
		rep, sErr = o.runSweep(ctx)
	}); err != nil {
		return rep, err
	}
	return rep, sErr
}

// Health pings both shared stores.
func (o *Orchestrator) Health(ctx context.Context) error {
	if err := o.Presence.Ping(ctx); err != nil {
		return fmt.Errorf("presence store: %w", err)
	}
	if err := o.Ledger.Ping(ctx); err != nil {
		return fmt.Errorf("call ledger: %w", err)
	}
	return nil
}

// EndRoom ends a room on behalf of an operator. It reports false when the
// room is unknown or already over.
func (o *Orchestrator) EndRoom(ctx context.Context, id domain.RoomID) (bool, error) {
	var ended bool
	if err := o.submit(ctx, "end-room", func(ctx context.Context) {
		ended = o.Rooms.End(ctx, id, domain.ReasonEnded)
		if ended {
			o.scheduleMatch()
		}
	}); err != nil {
		return false, err
	}
	return ended, nil
}

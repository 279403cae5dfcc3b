package orch

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dkeye/Pairline/internal/app"
	"github.com/dkeye/Pairline/internal/core"
	"github.com/dkeye/Pairline/internal/domain"
	"github.com/dkeye/Pairline/internal/metrics"
	"github.com/rs/zerolog/log"
)

const (
	msgUserIDRequired = "User ID is required"
	msgUserIDTooLong  = "User ID is too long"
	msgJoinFirst      = "join first"
	msgRoomRequired   = "roomId or callId is required"
	msgNotInRoom      = "not a participant of this room"
	msgUnknownSignal  = "unknown signal type"
	msgNoUsers        = "No other users available right now"
)

// Join binds conn to the user named by rawUserID and puts the user into the
// FIFO queue. An earlier live session of the same user is superseded.
func (o *Orchestrator) Join(ctx context.Context, sid core.SessionID, conn core.SignalConnection, rawUserID string) error {
	return o.submit(ctx, "join", func(ctx context.Context) {
		uid, err := domain.ParseUserID(rawUserID)
		if err != nil {
			msg := msgUserIDRequired
			if errors.Is(err, domain.ErrUserIDTooLong) {
				msg = msgUserIDTooLong
			}
			sendDirect(conn, core.NewError(msg))
			return
		}

		// Same connection joining under another identity leaves the old one.
		if prev, ok := o.Registry.UserFor(sid); ok && prev != uid {
			o.leave(ctx, sid, domain.ReasonPeerDisconnected)
		}

		evicted, replaced := o.Registry.Register(sid, uid, conn)
		if replaced {
			if room, ok := o.Rooms.RoomOf(evicted.SID); ok {
				o.Rooms.End(ctx, room.ID, domain.ReasonSuperseded)
			}
			if evicted.Conn != nil {
				evicted.Conn.Close()
			}
			log.Info().Str("module", "orch").Str("user", string(uid)).Str("old_sid", string(evicted.SID)).Str("sid", string(sid)).Msg("session superseded")
		}
		metrics.ConnectedSessions.Set(float64(o.Registry.Len()))

		// A repeated join from a session that is already in a call keeps it there.
		if _, inRoom := o.Rooms.RoomOf(sid); !inRoom {
			if err := o.Presence.AddOnline(ctx, uid); err != nil {
				log.Error().Err(err).Str("module", "orch").Str("user", string(uid)).Msg("presence add failed")
			}
		}

		if err := o.Notifier.Send(sid, core.JoinedEvent{
			Type:       core.EventJoined,
			UserID:     uid,
			SessionID:  sid,
			ICEServers: o.cfg.ICEServers,
		}); err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("joined not delivered")
		}
		log.Info().Str("module", "orch").Str("user", string(uid)).Str("sid", string(sid)).Msg("user joined")
		o.scheduleMatch()
	})
}

// Disconnect handles the loss of a transport session. Unknown sessions,
// including ones already superseded, are ignored.
func (o *Orchestrator) Disconnect(ctx context.Context, sid core.SessionID) error {
	return o.submit(ctx, "disconnect", func(ctx context.Context) {
		o.leave(ctx, sid, domain.ReasonPeerDisconnected)
	})
}

func (o *Orchestrator) leave(ctx context.Context, sid core.SessionID, reason string) {
	uid, ok := o.Registry.Unregister(sid)
	if !ok {
		return
	}
	metrics.ConnectedSessions.Set(float64(o.Registry.Len()))
	if room, ok := o.Rooms.RoomOf(sid); ok {
		o.Rooms.End(ctx, room.ID, reason)
	}
	if err := o.Presence.SetStatus(ctx, uid, domain.StatusOffline); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("user", string(uid)).Msg("presence offline failed")
	}
	log.Info().Str("module", "orch").Str("user", string(uid)).Str("sid", string(sid)).Msg("user left")
	o.scheduleMatch()
}

// Signal relays an offer, answer, candidate or quality report to the other
// participant of roomID.
func (o *Orchestrator) Signal(ctx context.Context, sid core.SessionID, roomID domain.RoomID, kind string, payload json.RawMessage) error {
	return o.submit(ctx, "signal", func(ctx context.Context) {
		if _, ok := o.Registry.UserFor(sid); !ok {
			o.reply(sid, core.NewError(msgJoinFirst))
			return
		}
		err := o.Relay.Forward(sid, roomID, kind, payload)
		switch {
		case err == nil, errors.Is(err, core.ErrSessionGone), errors.Is(err, core.ErrBackpressure):
		case errors.Is(err, core.ErrUnknownSignal):
			o.reply(sid, core.NewError(msgUnknownSignal))
		case errors.Is(err, core.ErrNotParticipant):
			o.reply(sid, core.NewError(msgNotInRoom))
		default:
			log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("kind", kind).Msg("signal relay failed")
		}
	})
}

// EndCall ends the room the session names by room or call id. Ending a call
// that is already over is a no-op.
func (o *Orchestrator) EndCall(ctx context.Context, sid core.SessionID, roomID domain.RoomID, callID domain.CallID) error {
	return o.submit(ctx, "end-call", func(ctx context.Context) {
		if _, ok := o.Registry.UserFor(sid); !ok {
			o.reply(sid, core.NewError(msgJoinFirst))
			return
		}
		var (
			room  core.Room
			found bool
		)
		switch {
		case roomID != "":
			room, found = o.Rooms.Get(roomID)
		case callID != "":
			room, found = o.Rooms.ByCall(callID)
		default:
			o.reply(sid, core.NewError(msgRoomRequired))
			return
		}
		if !found {
			return
		}
		if !room.Has(sid) {
			o.reply(sid, core.NewError(msgNotInRoom))
			return
		}
		o.Rooms.End(ctx, room.ID, domain.ReasonEnded)
		o.scheduleMatch()
	})
}

// Next leaves the current call, if any, and asks for a new partner right
// away. The session hears no-users-available when the pass cannot pair it.
func (o *Orchestrator) Next(ctx context.Context, sid core.SessionID) error {
	return o.submit(ctx, "next", func(ctx context.Context) {
		uid, ok := o.Registry.UserFor(sid)
		if !ok {
			o.reply(sid, core.NewError(msgJoinFirst))
			return
		}
		// The skipped partner is not offered back in this pass.
		var opts app.PassOptions
		if room, ok := o.Rooms.RoomOf(sid); ok {
			opts.Avoid = room.Users
			o.Rooms.EndBy(ctx, room.ID, domain.ReasonNext, uid)
		}
		res, err := o.runPassWith(ctx, opts)
		if err != nil || !res.Paired(uid) {
			o.reply(sid, core.NoticeEvent{Type: core.EventNoUsersAvailable, Message: msgNoUsers})
		}
	})
}

// AvailableCount reports the number of users currently waiting online.
func (o *Orchestrator) AvailableCount(ctx context.Context, sid core.SessionID) error {
	return o.submit(ctx, "available-count", func(ctx context.Context) {
		online, err := o.Presence.ListOnline(ctx)
		if err != nil {
			log.Error().Err(err).Str("module", "orch").Msg("list online failed")
			o.reply(sid, core.NewError("presence unavailable"))
			return
		}
		o.reply(sid, core.CountEvent{Type: core.EventAvailableCount, Count: len(online)})
	})
}

func (o *Orchestrator) reply(sid core.SessionID, ev core.Event) {
	if err := o.Notifier.Send(sid, ev); err != nil && !errors.Is(err, core.ErrSessionGone) {
		log.Debug().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("reply not delivered")
	}
}

// sendDirect writes to a connection that has no registered session yet.
func sendDirect(conn core.SignalConnection, v any) {
	if conn == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = conn.TrySend(b)
}

package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/Pairline/internal/core"
	"github.com/dkeye/Pairline/internal/domain"
	"github.com/rs/zerolog/log"
)

// Inbound message types besides the relayed signal kinds.
const (
	msgJoin              = "join"
	msgEndCall           = "end-call"
	msgRequestNextUser   = "request-next-user"
	msgGetAvailableCount = "get-available-count"
	msgPing              = "ping"
)

const (
	errBadPayload  = "bad_payload"
	errUnknownType = "unknown message type"
	errTooManyNext = "too many next requests, slow down"
	errJoinFirst   = "join first"
)

type joinPayload struct {
	UserID string `json:"userId"`
}

// signalPayload accepts the generic payload field as well as the
// kind-specific names older clients send.
type signalPayload struct {
	RoomID    domain.RoomID   `json:"roomId"`
	Payload   json.RawMessage `json:"payload"`
	Offer     json.RawMessage `json:"offer"`
	Answer    json.RawMessage `json:"answer"`
	Candidate json.RawMessage `json:"candidate"`
	Metrics   json.RawMessage `json:"metrics"`
}

func (p signalPayload) body() json.RawMessage {
	for _, b := range []json.RawMessage{p.Payload, p.Offer, p.Answer, p.Candidate, p.Metrics} {
		if len(b) > 0 {
			return b
		}
	}
	return nil
}

type endCallPayload struct {
	RoomID domain.RoomID `json:"roomId"`
	CallID domain.CallID `json:"callId"`
}

func (ctl *SignalWSController) handleMessage(ctx context.Context, sid core.SessionID, c *WsSignalConn, data []byte) error {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad json")
		ctl.sendJSON(c, core.NewError(errBadPayload))
		return nil
	}

	switch env.Type {
	case msgJoin, msgPing:
	default:
		if _, joined := ctl.Orch.Registry.UserFor(sid); !joined {
			ctl.sendJSON(c, core.NewError(errJoinFirst))
			return nil
		}
	}

	switch {
	case env.Type == msgJoin:
		var p joinPayload
		if err := json.Unmarshal(data, &p); err != nil {
			ctl.sendJSON(c, core.NewError(errBadPayload))
			return nil
		}
		return ctl.Orch.Join(ctx, sid, c, p.UserID)
	case core.IsSignalKind(env.Type):
		var p signalPayload
		if err := json.Unmarshal(data, &p); err != nil {
			ctl.sendJSON(c, core.NewError(errBadPayload))
			return nil
		}
		return ctl.Orch.Signal(ctx, sid, p.RoomID, env.Type, p.body())
	case env.Type == msgEndCall:
		var p endCallPayload
		if err := json.Unmarshal(data, &p); err != nil {
			ctl.sendJSON(c, core.NewError(errBadPayload))
			return nil
		}
		return ctl.Orch.EndCall(ctx, sid, p.RoomID, p.CallID)
	case env.Type == msgRequestNextUser:
		return ctl.handleNext(ctx, sid, c)
	case env.Type == msgGetAvailableCount:
		return ctl.Orch.AvailableCount(ctx, sid)
	case env.Type == msgPing:
		ctl.sendJSON(c, core.NoticeEvent{Type: core.EventPong})
		return nil
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown message type")
		ctl.sendJSON(c, core.NewError(errUnknownType))
		return nil
	}
}

func (ctl *SignalWSController) handleNext(ctx context.Context, sid core.SessionID, c *WsSignalConn) error {
	key := string(sid)
	if uid, ok := ctl.Orch.Registry.UserFor(sid); ok {
		key = string(uid)
	}
	if !ctl.Limiter.Allow(key) {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("next rate limited")
		ctl.sendJSON(c, core.NewError(errTooManyNext))
		return nil
	}
	return ctl.Orch.Next(ctx, sid)
}

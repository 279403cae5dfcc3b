package orch

import (
	"context"
	"time"

	"github.com/dkeye/Pairline/internal/core"
	"github.com/dkeye/Pairline/internal/domain"
)

type Stats struct {
	Sessions    int             `json:"sessions"`
	ActiveRooms int             `json:"activeRooms"`
	InFlight    int             `json:"inFlight"`
	Uptime      string          `json:"uptime"`
	Rooms       []core.RoomInfo `json:"rooms"`
}

// Stats is a lock-protected snapshot and does not go through the worker.
func (o *Orchestrator) Stats() Stats {
	rooms := o.Rooms.List()
	return Stats{
		Sessions:    o.Registry.Len(),
		ActiveRooms: len(rooms),
		InFlight:    o.InFlight.Len(),
		Uptime:      time.Since(o.startedAt).Round(time.Second).String(),
		Rooms:       rooms,
	}
}

type OnlineUser struct {
	UserID            domain.UserID `json:"userId"`
	IsSocketConnected bool          `json:"isSocketConnected"`
	IsInMatching      bool          `json:"isInMatching"`
}

type OnlineUsers struct {
	Total int          `json:"total"`
	Users []OnlineUser `json:"users"`
}

// OnlineUsers lists the first limit users of the FIFO queue with their
// local connection state.
func (o *Orchestrator) OnlineUsers(ctx context.Context, limit int) (OnlineUsers, error) {
	online, err := o.Presence.ListOnline(ctx)
	if err != nil {
		return OnlineUsers{}, err
	}
	out := OnlineUsers{Total: len(online), Users: make([]OnlineUser, 0, min(limit, len(online)))}
	for i, uid := range online {
		if limit > 0 && i >= limit {
			break
		}
		out.Users = append(out.Users, OnlineUser{
			UserID:            uid,
			IsSocketConnected: o.Registry.Connected(uid),
			IsInMatching:      o.InFlight.Has(uid),
		})
	}
	return out, nil
}

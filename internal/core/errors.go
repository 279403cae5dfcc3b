package core

import "errors"

var (
	ErrAlreadyInCall  = errors.New("user already in an active call")
	ErrSelfCall       = errors.New("call participants must differ")
	ErrCallNotFound   = errors.New("call not found")
	ErrCallNotActive  = errors.New("call not active")
	ErrSessionGone    = errors.New("session no longer live")
	ErrNotParticipant = errors.New("not a participant of room")
	ErrUnknownSignal  = errors.New("unknown signal kind")
	ErrBackpressure   = errors.New("backpressure")
	ErrConnClosed     = errors.New("connection closed")
)

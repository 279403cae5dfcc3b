// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const MaxUserIDLen = 128

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
)

// UserID is the stable logical identity supplied by the identity layer at join.
// The core treats it as an opaque trusted string.
type UserID string

// ParseUserID trims and bounds a raw identity taken from a client frame.
func ParseUserID(raw string) (UserID, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) == 0 {
		return "", ErrUserIDEmpty
	}
	if len(raw) > MaxUserIDLen {
		return "", ErrUserIDTooLong
	}
	return UserID(raw), nil
}

// PresenceStatus is the eligibility state of a user in the presence registry.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusBusy    PresenceStatus = "busy"
	StatusOffline PresenceStatus = "offline"
)

func (s PresenceStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusBusy, StatusOffline:
		return true
	}
	return false
}

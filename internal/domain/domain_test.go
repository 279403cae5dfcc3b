package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseUserID(t *testing.T) {
	req := require.New(t)

	uid, err := ParseUserID("  firebase-uid-1 ")
	req.NoError(err)
	req.Equal(UserID("firebase-uid-1"), uid)

	_, err = ParseUserID(" \t")
	req.ErrorIs(err, ErrUserIDEmpty)

	_, err = ParseUserID(strings.Repeat("x", MaxUserIDLen+1))
	req.ErrorIs(err, ErrUserIDTooLong)
}

func TestRoomIDFor(t *testing.T) {
	req := require.New(t)
	id := NewCallID()
	req.True(strings.HasPrefix(string(id), "call_"))

	req.Equal(RoomID("room_"+string(id)), RoomIDFor(id))
}

func TestCallRecordHelpers(t *testing.T) {
	req := require.New(t)
	rec := CallRecord{ID: "call_1", ParticipantA: "a", ParticipantB: "b", Status: CallActive}

	req.True(rec.Active())
	req.Equal([2]UserID{"a", "b"}, rec.Participants())
	rec.Status = CallEnded
	req.False(rec.Active())
}

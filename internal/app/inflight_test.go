package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInFlightSet_ClaimIsAllOrNothing(t *testing.T) {
	req := require.New(t)
	s := NewInFlightSet()

	req.True(s.Claim("u1", "u2"))
	req.False(s.Claim("u2", "u3"))
	req.False(s.Has("u3"))
	req.Equal(2, s.Len())

	s.Release("u1", "u2")
	req.Equal(0, s.Len())
	req.True(s.Claim("u2", "u3"))
}

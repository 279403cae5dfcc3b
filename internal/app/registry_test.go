package app

import (
	"testing"

	"github.com/dkeye/Pairline/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	conn := &fakeConn{}

	// When a session registers
	_, evicted := reg.Register("s1", "u1", conn)

	// Then both directions resolve
	req.False(evicted)
	sid, ok := reg.SessionFor("u1")
	req.True(ok)
	req.EqualValues("s1", sid)
	uid, ok := reg.UserFor("s1")
	req.True(ok)
	req.Equal(domain.UserID("u1"), uid)
	got, ok := reg.Conn("s1")
	req.True(ok)
	req.Same(conn, got)
	req.True(reg.Connected("u1"))
	req.Equal(1, reg.Len())
}

func TestRegistry_SecondJoinSupersedesFirst(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	oldConn := &fakeConn{}
	reg.Register("s1", "u1", oldConn)

	// When the same user joins from another session
	ev, evicted := reg.Register("s2", "u1", &fakeConn{})

	// Then the old session is handed back and forgotten
	req.True(evicted)
	req.EqualValues("s1", ev.SID)
	req.Same(oldConn, ev.Conn)
	_, ok := reg.UserFor("s1")
	req.False(ok)
	sid, _ := reg.SessionFor("u1")
	req.EqualValues("s2", sid)

	// And the late disconnect of the old session does not unbind the user
	_, ok = reg.Unregister("s1")
	req.False(ok)
	req.True(reg.Connected("u1"))
}

func TestRegistry_SameSessionNewIdentity(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	reg.Register("s1", "u1", &fakeConn{})

	_, evicted := reg.Register("s1", "u2", &fakeConn{})

	req.False(evicted)
	req.False(reg.Connected("u1"))
	req.True(reg.Connected("u2"))
	req.Equal(1, reg.Len())
}

func TestRegistry_UnregisterAndCloseAll(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	c1, c2 := &fakeConn{}, &fakeConn{}
	reg.Register("s1", "u1", c1)
	reg.Register("s2", "u2", c2)

	uid, ok := reg.Unregister("s1")
	req.True(ok)
	req.Equal(domain.UserID("u1"), uid)
	req.ElementsMatch([]domain.UserID{"u2"}, reg.Users())

	reg.CloseAll()
	req.True(c2.isClosed())
	req.False(c1.isClosed())
	req.Equal(0, reg.Len())
}

package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/taskify-app/taskify-chat/internal/types"
)

func eventNames(events []*ServerEvent) []string {
	names := make([]string, len(events))
	for i, ev := range events {
		names[i] = ev.Event
	}
	return names
}

func TestSession_Join(t *testing.T) {
	hub := newTestHub(t)
	scope := types.ProjectScope("p1")

	s1 := newTestSession(t, hub, "c1", types.Identity{Id: "u1", DisplayName: "alice", Role: types.RoleManager})
	s2 := newTestSession(t, hub, "c2", types.Identity{Id: "u2", DisplayName: "bob", Role: types.RoleEmployee})
	hub.Register(s1)
	hub.Register(s2)

	s1.Join(scope)

	// first member gets a roster snapshot containing only itself
	events := drainEvents(s1)
	assert.Equal(t, []string{EventOnlineUsers}, eventNames(events))
	assert.Equal(t, []types.PresenceInfo{{UserId: "u1", UserName: "alice", UserRole: types.RoleManager}}, events[0].Data)

	s2.Join(scope)

	// existing member is told about the join, joiner gets the full roster
	events = drainEvents(s1)
	assert.Equal(t, []string{EventUserJoined}, eventNames(events))
	assert.Equal(t, PresenceChange{UserId: "u2", UserName: "bob", UserRole: types.RoleEmployee}, events[0].Data)

	events = drainEvents(s2)
	assert.Equal(t, []string{EventOnlineUsers}, eventNames(events))
	assert.Len(t, events[0].Data, 2)
}

func TestSession_Join_Idempotent(t *testing.T) {
	hub := newTestHub(t)
	scope := types.ProjectScope("p1")

	s1 := newTestSession(t, hub, "c1", types.Identity{Id: "u1", DisplayName: "alice"})
	s2 := newTestSession(t, hub, "c2", types.Identity{Id: "u2", DisplayName: "bob"})
	hub.Register(s1)
	hub.Register(s2)

	s1.Join(scope)
	s2.Join(scope)
	drainEvents(s1)
	drainEvents(s2)

	s1.Join(scope)

	// repeat join refreshes the joiner's snapshot without re-announcing
	assert.Equal(t, []string{EventOnlineUsers}, eventNames(drainEvents(s1)))
	assert.Empty(t, drainEvents(s2), "expected no user-joined broadcast on repeat join")
	assert.Equal(t, 2, hub.presence.Len(), "expected no duplicate presence entries")
}

func TestSession_Leave(t *testing.T) {
	hub := newTestHub(t)
	scope := types.ProjectScope("p1")

	s1 := newTestSession(t, hub, "c1", types.Identity{Id: "u1", DisplayName: "alice"})
	s2 := newTestSession(t, hub, "c2", types.Identity{Id: "u2", DisplayName: "bob"})
	hub.Register(s1)
	hub.Register(s2)
	s1.Join(scope)
	s2.Join(scope)
	drainEvents(s1)
	drainEvents(s2)

	s1.Leave(scope)

	assert.False(t, hub.presence.Contains(scope, "c1"), "expected presence entry removed")
	assert.Equal(t, []string{EventUserLeft}, eventNames(drainEvents(s2)))
	assert.Empty(t, drainEvents(s1), "expected no event echoed to the leaver")

	// leaving a scope that was never joined is a no-op
	s1.Leave(types.ProjectScope("unknown"))
	assert.Empty(t, drainEvents(s2))
}

func TestSession_Teardown(t *testing.T) {
	hub := newTestHub(t)
	p1 := types.ProjectScope("p1")
	p2 := types.ProjectScope("p2")

	s1 := newTestSession(t, hub, "c1", types.Identity{Id: "u1", DisplayName: "alice"})
	s2 := newTestSession(t, hub, "c2", types.Identity{Id: "u2", DisplayName: "bob"})
	hub.Register(s1)
	hub.Register(s2)
	s1.Join(p1)
	s1.Join(p2)
	s2.Join(p1)
	drainEvents(s1)
	drainEvents(s2)

	s1.Teardown()

	// no presence entry for the connection remains in any scope
	assert.Empty(t, hub.presence.RemoveConnection("c1"), "expected all scopes cleared")
	for _, scope := range []types.Scope{p1, p2} {
		for _, info := range hub.presence.Snapshot(scope) {
			assert.NotEqual(t, "u1", info.UserId, "expected no snapshot entry for torn-down connection")
		}
	}
	assert.NotContains(t, hub.sessions, "c1", "expected session deregistered")

	// remaining member of p1 is told the user left; p2 had no one to tell
	assert.Equal(t, []string{EventUserLeft}, eventNames(drainEvents(s2)))

	// a second disconnect signal must not double-fire teardown
	s1.Teardown()
	assert.Empty(t, drainEvents(s2), "expected no duplicate departure events")
}

func TestSession_Dispatch(t *testing.T) {
	t.Run("join and leave project", func(t *testing.T) {
		hub := newTestHub(t)
		s := newTestSession(t, hub, "c1", types.Identity{Id: "u1", DisplayName: "alice"})
		hub.Register(s)

		s.dispatch(&ClientEvent{Event: EventJoinProject, Data: json.RawMessage(`{"project_id":"p1"}`)})
		assert.True(t, hub.presence.Contains(types.ProjectScope("p1"), "c1"))
		assert.Equal(t, []string{EventOnlineUsers}, eventNames(drainEvents(s)))

		s.dispatch(&ClientEvent{Event: EventLeaveProject, Data: json.RawMessage(`{"project_id":"p1"}`)})
		assert.False(t, hub.presence.Contains(types.ProjectScope("p1"), "c1"))
	})

	t.Run("join without project id", func(t *testing.T) {
		hub := newTestHub(t)
		s := newTestSession(t, hub, "c1", types.Identity{Id: "u1"})
		hub.Register(s)

		s.dispatch(&ClientEvent{Event: EventJoinProject, Data: json.RawMessage(`{}`)})

		events := drainEvents(s)
		assert.Equal(t, []string{EventMessageError}, eventNames(events))
	})

	t.Run("unknown event", func(t *testing.T) {
		hub := newTestHub(t)
		s := newTestSession(t, hub, "c1", types.Identity{Id: "u1"})
		hub.Register(s)

		s.dispatch(&ClientEvent{Event: "bogus", Data: json.RawMessage(`{}`)})

		assert.Equal(t, []string{EventMessageError}, eventNames(drainEvents(s)))
	})
}

func TestSession_queueEvent(t *testing.T) {
	hub := newTestHub(t)
	s := newTestSession(t, hub, "c1", types.Identity{Id: "u1"})
	s.send = make(chan *ServerEvent, 1)

	assert.True(t, s.queueEvent(NewServerEvent(EventOnlineUsers, nil)))
	// buffer is full now; the event is dropped, not blocked on
	assert.False(t, s.queueEvent(NewServerEvent(EventOnlineUsers, nil)))
}

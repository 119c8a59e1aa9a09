package chat

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/taskify-app/taskify-chat/internal/types"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
	// room for a 2000-char message plus envelope and metadata
	maxMessageSize = 8192
)

// Session binds one websocket connection to a resolved identity and the
// set of project scopes it has joined. It is created only after the
// credential is verified; the connection is refused before that.
type Session struct {
	conn         *websocket.Conn
	hub          *Hub
	coordinator  *Coordinator
	log          *log.Logger
	identity     types.Identity
	connectionId string
	send         chan *ServerEvent

	joinedMu sync.Mutex
	joined   map[string]types.Scope

	stop         chan struct{}
	teardownOnce sync.Once
	ctx          context.Context
	cancel       context.CancelFunc
}

func NewSession(identity types.Identity, conn *websocket.Conn, hub *Hub, coordinator *Coordinator, l *log.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		conn:         conn,
		hub:          hub,
		coordinator:  coordinator,
		log:          l,
		identity:     identity,
		connectionId: uuid.NewString(),
		send:         make(chan *ServerEvent, 256),
		joined:       make(map[string]types.Scope),
		stop:         make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (s *Session) Identity() types.Identity {
	return s.identity
}

func (s *Session) ConnectionId() string {
	return s.connectionId
}

func (s *Session) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case event, ok := <-s.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(event)
			if err != nil {
				s.log.Println("failed to serialize event:", err)
				continue
			}

			if !s.writeMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-s.stop:
			return
		case <-ticker.C:
			if !s.writeMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (s *Session) Read() {
	defer func() {
		s.conn.Close()
		s.Teardown()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error { s.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.log.Printf("ws: read: %v", err)
			}
			break
		}

		var event ClientEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			s.log.Println("error parsing event:", err)
			s.queueEvent(ErrorEvent(ErrValidation))
			continue
		}

		s.dispatch(&event)
	}
}

func (s *Session) dispatch(event *ClientEvent) {
	switch event.Event {
	case EventJoinProject:
		var join JoinProject
		if err := json.Unmarshal(event.Data, &join); err != nil || join.ProjectId == "" {
			s.queueEvent(ErrorEvent(ErrInvalidTarget))
			return
		}
		s.Join(types.ProjectScope(join.ProjectId))
	case EventLeaveProject:
		var leave JoinProject
		if err := json.Unmarshal(event.Data, &leave); err != nil || leave.ProjectId == "" {
			s.queueEvent(ErrorEvent(ErrInvalidTarget))
			return
		}
		s.Leave(types.ProjectScope(leave.ProjectId))
	case EventSendMessage:
		var send SendMessage
		if err := json.Unmarshal(event.Data, &send); err != nil {
			s.queueEvent(ErrorEvent(ErrValidation))
			return
		}
		if _, err := s.coordinator.Send(s.ctx, s.identity, send); err != nil {
			s.queueEvent(ErrorEvent(err))
		}
	case EventTyping, EventStopTyping:
		var target TypingTarget
		if err := json.Unmarshal(event.Data, &target); err != nil {
			s.queueEvent(ErrorEvent(ErrInvalidTarget))
			return
		}
		if err := s.coordinator.Typing(s.identity, target, event.Event == EventStopTyping, s.connectionId); err != nil {
			s.queueEvent(ErrorEvent(err))
		}
	default:
		s.log.Printf("unknown event %q from connection %q", event.Event, s.connectionId)
		s.queueEvent(ErrorEvent(ErrValidation))
	}
}

// Join registers the session in a scope, announces the arrival to the
// other members, and sends the joiner a roster snapshot. Joining an
// already-joined scope only refreshes the snapshot.
func (s *Session) Join(scope types.Scope) {
	key := scope.Key()

	s.joinedMu.Lock()
	_, already := s.joined[key]
	if !already {
		s.joined[key] = scope
	}
	s.joinedMu.Unlock()

	if !already {
		s.hub.presence.Add(scope, PresenceEntry{
			ConnectionId: s.connectionId,
			UserId:       s.identity.Id,
			UserName:     s.identity.DisplayName,
			UserRole:     s.identity.Role,
		})
		s.hub.stats.Incr(StatPresenceEntries)

		s.hub.EmitToScope(scope, NewServerEvent(EventUserJoined, PresenceChange{
			UserId:   s.identity.Id,
			UserName: s.identity.DisplayName,
			UserRole: s.identity.Role,
		}), s.connectionId)
	}

	s.queueEvent(NewServerEvent(EventOnlineUsers, s.hub.presence.Snapshot(scope)))
}

// Leave removes the session from a scope and announces the departure to
// the remaining members. It is a no-op if the scope was never joined.
func (s *Session) Leave(scope types.Scope) {
	key := scope.Key()

	s.joinedMu.Lock()
	_, ok := s.joined[key]
	delete(s.joined, key)
	s.joinedMu.Unlock()

	if !ok {
		return
	}

	s.hub.presence.Remove(scope, s.connectionId)
	s.hub.stats.Decr(StatPresenceEntries)

	s.hub.EmitToScope(scope, NewServerEvent(EventUserLeft, PresenceChange{
		UserId:   s.identity.Id,
		UserName: s.identity.DisplayName,
	}), s.connectionId)
}

// Teardown removes the session from every scope it joined, announces the
// departures, and deregisters the connection. It runs exactly once no
// matter how many disconnect signals arrive.
func (s *Session) Teardown() {
	s.teardownOnce.Do(func() {
		scopes := s.hub.presence.RemoveConnection(s.connectionId)
		for _, scope := range scopes {
			s.hub.stats.Decr(StatPresenceEntries)
			s.hub.EmitToScope(scope, NewServerEvent(EventUserLeft, PresenceChange{
				UserId:   s.identity.Id,
				UserName: s.identity.DisplayName,
			}), s.connectionId)
		}

		s.joinedMu.Lock()
		s.joined = make(map[string]types.Scope)
		s.joinedMu.Unlock()

		s.hub.Deregister(s)
		s.cancel()
		close(s.stop)
	})
}

func (s *Session) queueEvent(event *ServerEvent) bool {
	select {
	case s.send <- event:
	default:
		s.log.Printf("send buffer full for connection %q, dropping event %q", s.connectionId, event.Event)
		return false
	}

	return true
}

func (s *Session) writeMessage(msgType int, msg []byte) bool {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := s.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			s.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

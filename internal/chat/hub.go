package chat

import (
	"log"
	"sync"

	"github.com/taskify-app/taskify-chat/internal/stats"
	"github.com/taskify-app/taskify-chat/internal/types"
)

// Metric names registered by the server at startup.
const (
	StatActiveConnections = "ActiveConnections"
	StatPresenceEntries   = "PresenceEntries"
	StatMessagesSent      = "MessagesSent"
	StatMessagesEdited    = "MessagesEdited"
	StatMessagesDeleted   = "MessagesDeleted"
)

// Hub routes events to the connections subscribed to a scope. Project
// scopes fan out to the members recorded in the presence registry. Every
// authenticated connection is additionally bound to a standing personal
// channel keyed by its own identity, so personal messages reach all of a
// user's open connections without an explicit join, including the
// sender's own other devices.
type Hub struct {
	log      *log.Logger
	presence *PresenceRegistry
	stats    stats.StatsProvider

	mu       sync.Mutex
	sessions map[string]*Session
	// user id -> connection id -> session
	personal map[string]map[string]*Session
}

func NewHub(logger *log.Logger, presence *PresenceRegistry, su stats.StatsProvider) *Hub {
	return &Hub{
		log:      logger,
		presence: presence,
		stats:    su,
		sessions: make(map[string]*Session),
		personal: make(map[string]map[string]*Session),
	}
}

// Register adds a session to the hub and binds its personal channel.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[s.connectionId] = s
	if h.personal[s.identity.Id] == nil {
		h.personal[s.identity.Id] = make(map[string]*Session)
	}
	h.personal[s.identity.Id][s.connectionId] = s

	h.stats.Incr(StatActiveConnections)
	h.log.Printf("registered connection %q for user %q", s.connectionId, s.identity.Id)
}

// Deregister removes a session and its personal channel binding.
func (h *Hub) Deregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s.connectionId]; !ok {
		return
	}
	delete(h.sessions, s.connectionId)

	if conns, ok := h.personal[s.identity.Id]; ok {
		delete(conns, s.connectionId)
		if len(conns) == 0 {
			delete(h.personal, s.identity.Id)
		}
	}

	h.stats.Decr(StatActiveConnections)
	h.log.Printf("deregistered connection %q for user %q", s.connectionId, s.identity.Id)
}

// EmitToScope delivers an event to every connection subscribed to the
// scope, excluding skipConn if non-empty. Delivery is best-effort and
// at-most-once per connection: a session with a full send buffer drops
// the event, and a disconnected recipient catches up on next history
// load.
func (h *Hub) EmitToScope(scope types.Scope, event *ServerEvent, skipConn string) {
	for _, s := range h.scopeSessions(scope) {
		if s.connectionId == skipConn {
			continue
		}
		s.queueEvent(event)
	}
}

// EmitToConnection delivers an event to a single connection.
func (h *Hub) EmitToConnection(connectionId string, event *ServerEvent) {
	h.mu.Lock()
	s, ok := h.sessions[connectionId]
	h.mu.Unlock()

	if ok {
		s.queueEvent(event)
	}
}

func (h *Hub) scopeSessions(scope types.Scope) []*Session {
	h.mu.Lock()
	defer h.mu.Unlock()

	if scope.IsPersonal() {
		seen := make(map[string]*Session)
		for _, userId := range []string{scope.UserA, scope.UserB} {
			for connId, s := range h.personal[userId] {
				seen[connId] = s
			}
		}
		sessions := make([]*Session, 0, len(seen))
		for _, s := range seen {
			sessions = append(sessions, s)
		}
		return sessions
	}

	connIds := h.presence.Connections(scope)
	sessions := make([]*Session, 0, len(connIds))
	for _, connId := range connIds {
		if s, ok := h.sessions[connId]; ok {
			sessions = append(sessions, s)
		}
	}
	return sessions
}

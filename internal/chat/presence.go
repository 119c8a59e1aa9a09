package chat

import (
	"sync"

	"github.com/taskify-app/taskify-chat/internal/types"
)

// PresenceEntry records one connection's membership in a scope. A user
// with several devices holds one entry per connection.
type PresenceEntry struct {
	ConnectionId string
	UserId       string
	UserName     string
	UserRole     string
}

// PresenceRegistry tracks which connections are present in which scopes.
// It is purely in-memory and process-local; state is rebuilt from scratch
// on restart. All operations are total: absent scopes and entries are the
// natural empty state, never an error.
type PresenceRegistry struct {
	mu sync.Mutex
	// scope key -> connection id -> entry
	scopes map[string]map[string]PresenceEntry
	// connection id -> scope keys the connection has joined
	conns map[string]map[string]types.Scope
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		scopes: make(map[string]map[string]PresenceEntry),
		conns:  make(map[string]map[string]types.Scope),
	}
}

// Add inserts an entry into the scope's member set. Uniqueness is by
// connection id, so re-adding the same connection is a no-op.
func (p *PresenceRegistry) Add(scope types.Scope, entry PresenceEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := scope.Key()
	if p.scopes[key] == nil {
		p.scopes[key] = make(map[string]PresenceEntry)
	}
	p.scopes[key][entry.ConnectionId] = entry

	if p.conns[entry.ConnectionId] == nil {
		p.conns[entry.ConnectionId] = make(map[string]types.Scope)
	}
	p.conns[entry.ConnectionId][key] = scope
}

// Remove removes the matching entry if present.
func (p *PresenceRegistry) Remove(scope types.Scope, connectionId string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.removeLocked(scope.Key(), connectionId)
}

func (p *PresenceRegistry) removeLocked(key, connectionId string) {
	if members, ok := p.scopes[key]; ok {
		delete(members, connectionId)
		if len(members) == 0 {
			delete(p.scopes, key)
		}
	}

	if joined, ok := p.conns[connectionId]; ok {
		delete(joined, key)
		if len(joined) == 0 {
			delete(p.conns, connectionId)
		}
	}
}

// Contains reports whether the connection currently holds an entry in the
// scope.
func (p *PresenceRegistry) Contains(scope types.Scope, connectionId string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	members, ok := p.scopes[scope.Key()]
	if !ok {
		return false
	}
	_, ok = members[connectionId]
	return ok
}

// Snapshot returns the public projection of every entry currently in the
// scope.
func (p *PresenceRegistry) Snapshot(scope types.Scope) []types.PresenceInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	members := p.scopes[scope.Key()]
	infos := make([]types.PresenceInfo, 0, len(members))
	for _, entry := range members {
		infos = append(infos, types.PresenceInfo{
			UserId:   entry.UserId,
			UserName: entry.UserName,
			UserRole: entry.UserRole,
		})
	}

	return infos
}

// Connections returns the connection ids currently present in the scope.
func (p *PresenceRegistry) Connections(scope types.Scope) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	members := p.scopes[scope.Key()]
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}

	return ids
}

// RemoveConnection removes the connection from every scope it belongs to
// in a single pass and returns the affected scopes so the caller can
// announce the departure per scope. The pass is atomic with respect to
// concurrent joins and leaves.
func (p *PresenceRegistry) RemoveConnection(connectionId string) []types.Scope {
	p.mu.Lock()
	defer p.mu.Unlock()

	joined := p.conns[connectionId]
	scopes := make([]types.Scope, 0, len(joined))
	for key, scope := range joined {
		scopes = append(scopes, scope)
		p.removeLocked(key, connectionId)
	}

	return scopes
}

// Len returns the total number of presence entries across all scopes.
func (p *PresenceRegistry) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	var n int
	for _, members := range p.scopes {
		n += len(members)
	}
	return n
}

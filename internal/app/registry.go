package app

import (
	"sync"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

type registryEntry struct {
	Room    domain.RoomID
	Session *core.Session
}

// Registry is the reverse index from connection id to (room, session).
// It exists so a bare transport-level "connection closed" can be translated
// into the right room cleanup in O(1).
type Registry struct {
	mu      sync.RWMutex
	entries map[core.ConnID]*registryEntry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[core.ConnID]*registryEntry)}
}

// Bind is called once, at successful join.
func (r *Registry) Bind(cid core.ConnID, room domain.RoomID, sess *core.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[cid] = &registryEntry{Room: room, Session: sess}
	log.Debug().Str("module", "app.registry").Str("cid", string(cid)).Str("room", string(room)).Msg("bound connection")
}

func (r *Registry) Resolve(cid core.ConnID) (domain.RoomID, *core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[cid]
	if !ok {
		return "", nil, false
	}
	return e.Room, e.Session, true
}

// Unbind is idempotent; unbinding an unknown connection is a no-op.
func (r *Registry) Unbind(cid core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, cid)
	log.Debug().Str("module", "app.registry").Str("cid", string(cid)).Msg("unbound connection")
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

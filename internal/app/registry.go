package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/jamq/jamq/internal/core"
	"github.com/jamq/jamq/internal/domain"
)

type connEntry struct {
	Conn   core.SignalConnection
	Rooms  map[domain.RoomID]struct{}
	Cancel context.CancelFunc
}

// Registry tracks every bound connection and the set of rooms it has
// joined, so a single disconnect can drive the leave of all of them.
// A connection may belong to more than one room.
type Registry struct {
	mu    sync.RWMutex
	conns map[core.SessionID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[core.SessionID]*connEntry)}
}

func (r *Registry) Bind(sid core.SessionID, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[sid] = &connEntry{
		Conn:   conn,
		Rooms:  make(map[domain.RoomID]struct{}),
		Cancel: cancel,
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound connection")
}

// Connection implements core.ConnectionResolver.
func (r *Registry) Connection(sid core.SessionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[sid]; ok {
		return e.Conn, true
	}
	return nil, false
}

// Alive reports whether the session is bound to an open connection.
func (r *Registry) Alive(sid core.SessionID) bool {
	conn, ok := r.Connection(sid)
	return ok && conn.Open()
}

func (r *Registry) Track(sid core.SessionID, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[sid]; ok {
		e.Rooms[roomID] = struct{}{}
	}
}

func (r *Registry) Untrack(sid core.SessionID, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[sid]; ok {
		delete(e.Rooms, roomID)
	}
}

func (r *Registry) RoomsOf(sid core.SessionID) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[sid]; ok {
		return lo.Keys(e.Rooms)
	}
	return nil
}

// Unbind forgets the connection and returns the rooms it was still in.
func (r *Registry) Unbind(sid core.SessionID) []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[sid]
	if !ok {
		return nil
	}
	delete(r.conns, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbound connection")
	return lo.Keys(e.Rooms)
}

// Stale lists sessions whose connection is bound but no longer open,
// left behind by network drops without a clean disconnect.
func (r *Registry) Stale() []core.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []core.SessionID
	for sid, e := range r.conns {
		if !e.Conn.Open() {
			out = append(out, sid)
		}
	}
	return out
}

func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.conns[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	return true
}

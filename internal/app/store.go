package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jamq/jamq/internal/core"
	"github.com/jamq/jamq/internal/domain"
)

// Store owns every live room, keyed by the creator-chosen id. It is
// constructed once at process start and passed explicitly; rooms for
// different ids never contend on each other.
type Store struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*core.Room
}

func NewStore() *Store {
	return &Store{rooms: make(map[domain.RoomID]*core.Room)}
}

// Create makes a room with the caller as sole member and admin, or
// returns the existing one. Reports whether it was created now.
func (s *Store) Create(meta *domain.Room, creator core.SessionID) (*core.Room, bool) {
	s.mu.RLock()
	room, ok := s.rooms[meta.ID]
	s.mu.RUnlock()
	if ok {
		return room, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok = s.rooms[meta.ID]; ok {
		return room, false
	}
	room = core.NewRoom(meta, creator)
	s.rooms[meta.ID] = room
	log.Info().Str("module", "app.store").Str("room", string(meta.ID)).Str("name", string(meta.Name)).Msg("room created")
	return room, true
}

func (s *Store) Get(id domain.RoomID) (*core.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	return room, ok
}

func (s *Store) Delete(id domain.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; !ok {
		return
	}
	delete(s.rooms, id)
	log.Info().Str("module", "app.store").Str("room", string(id)).Msg("room deleted")
}

func (s *Store) List() []*core.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*core.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	return out
}

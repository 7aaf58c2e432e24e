package app

import (
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/jamq/jamq/internal/core"
	"github.com/jamq/jamq/internal/domain"
)

// RoomState is the room_created payload. Members appear as a count;
// connections are transport resources and never serialize.
type RoomState struct {
	ID          domain.RoomID   `json:"id"`
	Name        domain.RoomName `json:"name"`
	Songs       []domain.Song   `json:"songs"`
	MemberCount int             `json:"memberCount"`
}

// Engine owns the room store and drives every room operation. Event
// fan-out happens inside the room's own critical section; the engine
// hands each room the registry as its connection resolver. Errors it
// returns are request-scoped; shared state is never corrupted.
type Engine struct {
	store    *Store
	registry *Registry
	resolver core.ConnectionResolver
}

func NewEngine(store *Store, registry *Registry) *Engine {
	return &Engine{store: store, registry: registry, resolver: registry}
}

// CreateRoom makes the room with the caller as admin, or treats an
// existing id as a rejoin and replays the current state to the caller.
func (e *Engine) CreateRoom(sid core.SessionID, id domain.RoomID, name domain.RoomName) error {
	meta, err := domain.NewRoom(id, name)
	if err != nil {
		return err
	}
	room, created := e.store.Create(meta, sid)
	e.registry.Track(sid, room.Meta().ID)
	if !created {
		room.Join(sid)
		room.ReplayState(e.resolver, sid)
		return nil
	}
	e.sendTo(sid, "room_created", RoomState{
		ID:          room.Meta().ID,
		Name:        room.Meta().Name,
		Songs:       room.Songs(),
		MemberCount: room.MemberCount(),
	})
	return nil
}

// JoinRoom adds the caller to the member set and replays the active
// song (if any) plus the full ordered queue to the joiner only.
func (e *Engine) JoinRoom(sid core.SessionID, id domain.RoomID) error {
	room, ok := e.store.Get(id)
	if !ok {
		return domain.ErrRoomNotFound
	}
	room.Join(sid)
	e.registry.Track(sid, id)
	room.ReplayState(e.resolver, sid)
	return nil
}

// LeaveRoom removes the caller; the last member out deletes the room.
func (e *Engine) LeaveRoom(sid core.SessionID, id domain.RoomID) error {
	room, ok := e.store.Get(id)
	if !ok {
		return domain.ErrRoomNotFound
	}
	e.registry.Untrack(sid, id)
	if room.Leave(sid) {
		e.store.Delete(id)
	}
	return nil
}

func (e *Engine) AddSong(sid core.SessionID, id domain.RoomID, song domain.Song) error {
	room, ok := e.store.Get(id)
	if !ok {
		return domain.ErrRoomNotFound
	}
	return room.AddSong(e.resolver, song)
}

func (e *Engine) Upvote(sid core.SessionID, id domain.RoomID, songID domain.SongID, voter domain.UserID) error {
	room, ok := e.store.Get(id)
	if !ok {
		return domain.ErrRoomNotFound
	}
	return room.Upvote(e.resolver, songID, voter)
}

func (e *Engine) Downvote(sid core.SessionID, id domain.RoomID, songID domain.SongID, voter domain.UserID) error {
	room, ok := e.store.Get(id)
	if !ok {
		return domain.ErrRoomNotFound
	}
	return room.Downvote(e.resolver, songID, voter)
}

func (e *Engine) EndSong(sid core.SessionID, id domain.RoomID) error {
	room, ok := e.store.Get(id)
	if !ok {
		return domain.ErrRoomNotFound
	}
	room.EndActive(e.resolver)
	return nil
}

// Disconnect leaves every room the session was in and forgets it.
// Racing with the sweeper on the same session is harmless: leave and
// delete are both idempotent.
func (e *Engine) Disconnect(sid core.SessionID) {
	for _, roomID := range e.registry.Unbind(sid) {
		room, ok := e.store.Get(roomID)
		if !ok {
			continue
		}
		if room.Leave(sid) {
			e.store.Delete(roomID)
		}
	}
}

func (e *Engine) sendTo(sid core.SessionID, typ string, data any) {
	frame, err := json.Marshal(core.Envelope{Type: typ, Data: data})
	if err != nil {
		log.Error().Err(err).Str("module", "app.engine").Str("type", typ).Msg("encode reply")
		return
	}
	conn, ok := e.registry.Connection(sid)
	if !ok {
		return
	}
	_ = conn.TrySend(frame)
}

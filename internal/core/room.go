package core

import (
	"sync"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/jamq/jamq/internal/domain"
)

// Room is a threadsafe in-memory room: one queue, a member set and an
// admin. It stores session ids, never transport resources, and all
// mutation of queue/members/admin happens under its lock.
type Room struct {
	meta *domain.Room

	mu      sync.RWMutex
	queue   *Queue
	members map[SessionID]uint64
	admin   SessionID
	joinSeq uint64
}

func NewRoom(meta *domain.Room, creator SessionID) *Room {
	r := &Room{
		meta:    meta,
		queue:   NewQueue(),
		members: make(map[SessionID]uint64),
	}
	r.members[creator] = r.joinSeq
	r.joinSeq++
	r.admin = creator
	return r
}

func (r *Room) Meta() *domain.Room { return r.meta }

func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *Room) Admin() SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.admin
}

func (r *Room) Members() []SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SessionID, 0, len(r.members))
	for sid := range r.members {
		out = append(out, sid)
	}
	return out
}

// Join is idempotent: rejoining keeps the original join order.
func (r *Room) Join(sid SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[sid]; ok {
		return
	}
	r.members[sid] = r.joinSeq
	r.joinSeq++
	log.Info().Str("module", "core.room").Str("room", string(r.meta.ID)).Str("sid", string(sid)).Msg("member joined")
}

// Leave removes the member and, if it was the admin, hands the room to
// the earliest-joined survivor. Reports whether the room is now empty.
// Leaving twice is a no-op.
func (r *Room) Leave(sid SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[sid]; !ok {
		return len(r.members) == 0
	}
	delete(r.members, sid)
	if len(r.members) == 0 {
		return true
	}
	if r.admin == sid {
		r.succeedAdminLocked()
	}
	return false
}

// Prune drops every member whose connection is no longer alive.
// Admin succession applies if the admin was among them.
func (r *Room) Prune(alive func(SessionID) bool) ([]SessionID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []SessionID
	for sid := range r.members {
		if !alive(sid) {
			delete(r.members, sid)
			removed = append(removed, sid)
		}
	}
	if len(r.members) == 0 {
		return removed, true
	}
	if _, ok := r.members[r.admin]; !ok {
		r.succeedAdminLocked()
	}
	return removed, false
}

func (r *Room) succeedAdminLocked() {
	var next SessionID
	var best uint64
	first := true
	for sid, seq := range r.members {
		if first || seq < best {
			next, best, first = sid, seq, false
		}
	}
	r.admin = next
	log.Info().Str("module", "core.room").Str("room", string(r.meta.ID)).Str("sid", string(next)).Msg("admin succession")
}

// Queue operations. Each one mutates and fans the resulting events out
// inside the same critical section, so the event sequence any member
// observes matches the total order of mutations on this room.

// AddSong appends to the queue. The first song of an empty queue starts
// playing at once and the room hears active_song instead of song_added.
func (r *Room) AddSong(res ConnectionResolver, s domain.Song) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	added, becameActive, err := r.queue.Add(s)
	if err != nil {
		return err
	}
	if becameActive {
		r.publishLocked(res, "active_song", *added)
	} else {
		r.publishLocked(res, "song_added", *added)
	}
	return nil
}

func (r *Room) Upvote(res ConnectionResolver, id domain.SongID, voter domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.queue.Upvote(id, voter); err != nil {
		return err
	}
	r.publishLocked(res, "song_updated", r.queue.Snapshot())
	return nil
}

func (r *Room) Downvote(res ConnectionResolver, id domain.SongID, voter domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.queue.Downvote(id, voter); err != nil {
		return err
	}
	r.publishLocked(res, "song_updated", r.queue.Snapshot())
	return nil
}

// EndActive pops the playing song and promotes the queue head by
// votes: the room hears active_song for the successor (when one
// exists), then song_updated with the post-removal queue. With nothing
// active it is a silent no-op.
func (r *Room) EndActive(res ConnectionResolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next, ended := r.queue.EndActive()
	if !ended {
		return
	}
	if next != nil {
		r.publishLocked(res, "active_song", *next)
	}
	r.publishLocked(res, "song_updated", r.queue.Snapshot())
}

// ReplayState sends one member the active song (if any) plus the full
// ordered queue. It shares the room mutex with the mutating operations
// so a replay never interleaves a broadcast mid-flight.
func (r *Room) ReplayState(res ConnectionResolver, sid SessionID) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if active, ok := r.queue.Active(); ok {
		r.sendLocked(res, sid, "active_song", *active)
	}
	r.sendLocked(res, sid, "song_updated", r.queue.Snapshot())
}

// publishLocked serializes the event once and best-effort delivers it
// to every current member. Stale connections are skipped, not pruned
// here; the sweeper reaps them. Callers hold r.mu.
func (r *Room) publishLocked(res ConnectionResolver, typ string, data any) PublishResult {
	frame, err := json.Marshal(Envelope{Type: typ, Data: data})
	if err != nil {
		log.Error().Err(err).Str("module", "core.room").Str("type", typ).Msg("encode event")
		return PublishResult{}
	}
	out := PublishResult{}
	for sid := range r.members {
		conn, ok := res.Connection(sid)
		if !ok {
			out.Dropped = append(out.Dropped, sid)
			continue
		}
		if err := conn.TrySend(frame); err != nil {
			out.Dropped = append(out.Dropped, sid)
			continue
		}
		out.SentTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.meta.ID)).Str("type", typ).Int("sent_to", out.SentTo).Int("dropped", len(out.Dropped)).Msg("broadcast result")
	return out
}

func (r *Room) sendLocked(res ConnectionResolver, sid SessionID, typ string, data any) {
	frame, err := json.Marshal(Envelope{Type: typ, Data: data})
	if err != nil {
		log.Error().Err(err).Str("module", "core.room").Str("type", typ).Msg("encode reply")
		return
	}
	if conn, ok := res.Connection(sid); ok {
		_ = conn.TrySend(frame)
	}
}

func (r *Room) ActiveSong() (*domain.Song, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.queue.Active()
	if !ok {
		return nil, false
	}
	cp := *s
	return &cp, true
}

func (r *Room) Songs() []domain.Song {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.queue.Snapshot()
}

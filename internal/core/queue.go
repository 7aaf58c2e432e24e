package core

import (
	"sort"

	"github.com/samber/lo"

	"github.com/jamq/jamq/internal/domain"
)

// Queue is the vote-ordered song list of one room. It is not threadsafe;
// the owning Room serializes access under its lock.
type Queue struct {
	songs   []*domain.Song
	arrival map[domain.SongID]int
	nextSeq int
}

func NewQueue() *Queue {
	return &Queue{arrival: make(map[domain.SongID]int)}
}

func (q *Queue) Len() int { return len(q.songs) }

// Add appends a song with a fresh empty vote set. The first song of an
// empty queue becomes active immediately. Reports whether it did.
func (q *Queue) Add(s domain.Song) (*domain.Song, bool, error) {
	for _, existing := range q.songs {
		if existing.ID == s.ID {
			return nil, false, domain.ErrDuplicateSong
		}
	}
	s.Votes = []domain.UserID{}
	s.IsActive = len(q.songs) == 0
	added := &s
	q.songs = append(q.songs, added)
	q.arrival[added.ID] = q.nextSeq
	q.nextSeq++
	return added, added.IsActive, nil
}

// Upvote records one vote and re-sorts. A voter's second upvote fails
// with ErrAlreadyVoted rather than double counting.
func (q *Queue) Upvote(id domain.SongID, voter domain.UserID) error {
	s, ok := q.find(id)
	if !ok {
		return domain.ErrSongNotFound
	}
	if s.HasVote(voter) {
		return domain.ErrAlreadyVoted
	}
	s.Votes = append(s.Votes, voter)
	q.resort()
	return nil
}

func (q *Queue) Downvote(id domain.SongID, voter domain.UserID) error {
	s, ok := q.find(id)
	if !ok {
		return domain.ErrSongNotFound
	}
	if !s.HasVote(voter) {
		return domain.ErrNotVoted
	}
	s.Votes = lo.Without(s.Votes, voter)
	q.resort()
	return nil
}

// EndActive removes the active song and promotes the highest-voted
// remaining one. Reports false, with no state change, if nothing is active.
func (q *Queue) EndActive() (*domain.Song, bool) {
	active, ok := q.Active()
	if !ok {
		return nil, false
	}
	delete(q.arrival, active.ID)
	q.songs = lo.Filter(q.songs, func(s *domain.Song, _ int) bool {
		return !s.IsActive
	})
	if len(q.songs) == 0 {
		return nil, true
	}
	q.resort()
	next := q.songs[0]
	next.IsActive = true
	return next, true
}

func (q *Queue) Active() (*domain.Song, bool) {
	for _, s := range q.songs {
		if s.IsActive {
			return s, true
		}
	}
	return nil, false
}

// Snapshot copies the queue in its current order for encoding outside the lock.
func (q *Queue) Snapshot() []domain.Song {
	return lo.Map(q.songs, func(s *domain.Song, _ int) domain.Song {
		return *s
	})
}

func (q *Queue) find(id domain.SongID) (*domain.Song, bool) {
	for _, s := range q.songs {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// resort orders by descending vote count; equal counts fall back to
// arrival order, so repeated resorts are deterministic and idempotent.
func (q *Queue) resort() {
	sort.SliceStable(q.songs, func(i, j int) bool {
		a, b := q.songs[i], q.songs[j]
		if a.VoteCount() != b.VoteCount() {
			return a.VoteCount() > b.VoteCount()
		}
		return q.arrival[a.ID] < q.arrival[b.ID]
	})
}

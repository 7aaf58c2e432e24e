package core

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/jamq/jamq/internal/domain"
)

func newTestRoom(t *testing.T, creator SessionID) *Room {
	t.Helper()
	meta, err := domain.NewRoom("r1", "Party")
	require.NoError(t, err)
	return NewRoom(meta, creator)
}

func TestRoom_CreatorIsMemberAndAdmin(t *testing.T) {
	r := newTestRoom(t, "c1")
	require.Equal(t, 1, r.MemberCount())
	require.Equal(t, SessionID("c1"), r.Admin())
}

func TestRoom_Join_Idempotent(t *testing.T) {
	r := newTestRoom(t, "c1")
	r.Join("c2")
	r.Join("c2")
	require.Equal(t, 2, r.MemberCount())
}

func TestRoom_Leave_AdminSuccessionEarliestJoined(t *testing.T) {
	r := newTestRoom(t, "c1")
	r.Join("c2")
	r.Join("c3")

	empty := r.Leave("c1")
	require.False(t, empty)
	require.Equal(t, SessionID("c2"), r.Admin())

	empty = r.Leave("c2")
	require.False(t, empty)
	require.Equal(t, SessionID("c3"), r.Admin())
}

func TestRoom_Leave_LastMemberEmptiesRoom(t *testing.T) {
	r := newTestRoom(t, "c1")
	require.True(t, r.Leave("c1"))
}

func TestRoom_Leave_TwiceIsNoop(t *testing.T) {
	r := newTestRoom(t, "c1")
	r.Join("c2")

	require.False(t, r.Leave("c2"))
	require.False(t, r.Leave("c2"))
	require.Equal(t, 1, r.MemberCount())
}

func TestRoom_Prune_RemovesDeadAndSucceedsAdmin(t *testing.T) {
	r := newTestRoom(t, "c1")
	r.Join("c2")
	r.Join("c3")

	removed, empty := r.Prune(func(sid SessionID) bool { return sid != "c1" })
	require.ElementsMatch(t, []SessionID{"c1"}, removed)
	require.False(t, empty)
	require.Equal(t, SessionID("c2"), r.Admin())

	removed, empty = r.Prune(func(SessionID) bool { return false })
	require.ElementsMatch(t, []SessionID{"c2", "c3"}, removed)
	require.True(t, empty)
}

type stubConn struct {
	frames []Frame
}

func (s *stubConn) TrySend(f Frame) error {
	s.frames = append(s.frames, f)
	return nil
}

func (s *stubConn) Open() bool { return true }
func (s *stubConn) Close()     {}

type stubResolver map[SessionID]*stubConn

func (s stubResolver) Connection(sid SessionID) (SignalConnection, bool) {
	conn, ok := s[sid]
	return conn, ok
}

func (s stubResolver) types(t *testing.T, sid SessionID) []string {
	t.Helper()
	var out []string
	for _, f := range s[sid].frames {
		var env struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(f, &env))
		out = append(out, env.Type)
	}
	return out
}

func TestRoom_QueueOpsThroughRoom(t *testing.T) {
	r := newTestRoom(t, "c1")
	res := stubResolver{"c1": &stubConn{}}

	require.NoError(t, r.AddSong(res, domain.Song{ID: "s1", Title: "first"}))
	require.NoError(t, r.AddSong(res, domain.Song{ID: "s2", Title: "second"}))
	require.NoError(t, r.Upvote(res, "s2", "u1"))
	require.Equal(t, domain.SongID("s2"), r.Songs()[0].ID)

	r.EndActive(res)
	require.Len(t, r.Songs(), 1)

	active, ok := r.ActiveSong()
	require.True(t, ok)
	require.Equal(t, domain.SongID("s2"), active.ID)

	require.Equal(t,
		[]string{"active_song", "song_added", "song_updated", "active_song", "song_updated"},
		res.types(t, "c1"))
}

func TestRoom_PublishDeliversToEveryMember(t *testing.T) {
	r := newTestRoom(t, "c1")
	r.Join("c2")
	res := stubResolver{"c1": &stubConn{}, "c2": &stubConn{}}

	require.NoError(t, r.AddSong(res, domain.Song{ID: "s1"}))

	require.Equal(t, []string{"active_song"}, res.types(t, "c1"))
	require.Equal(t, []string{"active_song"}, res.types(t, "c2"))
}

func TestRoom_ReplayStateToOneMember(t *testing.T) {
	r := newTestRoom(t, "c1")
	r.Join("c2")
	res := stubResolver{"c1": &stubConn{}, "c2": &stubConn{}}

	require.NoError(t, r.AddSong(res, domain.Song{ID: "s1"}))
	r.ReplayState(res, "c2")

	require.Equal(t, []string{"active_song", "active_song", "song_updated"}, res.types(t, "c2"))
	// the other member hears nothing from a replay
	require.Equal(t, []string{"active_song"}, res.types(t, "c1"))
}

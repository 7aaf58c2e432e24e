package signal

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/jamq/jamq/internal/app"
	"github.com/jamq/jamq/internal/config"
	"github.com/jamq/jamq/internal/core"
)

func newTestController(cfg *config.Config) (*Controller, *app.Registry) {
	if cfg == nil {
		cfg = &config.Config{
			ReadLimit:       32768,
			PingPeriod:      time.Minute,
			SendBuffer:      32,
			MsgRateLimit:    100,
			MsgRateInterval: time.Second,
		}
	}
	store := app.NewStore()
	registry := app.NewRegistry()
	engine := app.NewEngine(store, registry)
	return NewController(engine, registry, cfg), registry
}

func newBoundConn(t *testing.T, registry *app.Registry, sid core.SessionID) *WsConn {
	t.Helper()
	c := &WsConn{send: make(chan core.Frame, 32)}
	registry.Bind(sid, c, nil)
	return c
}

type wireEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// drain empties the conn's send channel and decodes every frame.
func drain(t *testing.T, c *WsConn) []wireEnvelope {
	t.Helper()
	var out []wireEnvelope
	for {
		select {
		case f := <-c.send:
			var env wireEnvelope
			require.NoError(t, json.Unmarshal(f, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func lastReply(t *testing.T, c *WsConn) (string, string) {
	t.Helper()
	got := drain(t, c)
	require.NotEmpty(t, got)
	env := got[len(got)-1]
	var msg string
	require.NoError(t, json.Unmarshal(env.Data, &msg))
	return env.Type, msg
}

func TestHandleMessage_MalformedEnvelope(t *testing.T) {
	ctl, registry := newTestController(nil)
	c := newBoundConn(t, registry, "c1")

	ctl.handleMessage("c1", c, []byte(`{"type":`))

	typ, msg := lastReply(t, c)
	require.Equal(t, "error", typ)
	require.Equal(t, "bad_payload", msg)
}

func TestHandleMessage_MalformedPayload(t *testing.T) {
	ctl, registry := newTestController(nil)
	c := newBoundConn(t, registry, "c1")

	ctl.handleMessage("c1", c, []byte(`{"type":"add_song","data":"not an object"}`))

	typ, msg := lastReply(t, c)
	require.Equal(t, "error", typ)
	require.Equal(t, "bad_payload", msg)
}

func TestHandleMessage_UnknownType(t *testing.T) {
	ctl, registry := newTestController(nil)
	c := newBoundConn(t, registry, "c1")

	ctl.handleMessage("c1", c, []byte(`{"type":"dance","data":{}}`))

	typ, msg := lastReply(t, c)
	require.Equal(t, "error", typ)
	require.Equal(t, "unknown message type", msg)
}

func TestHandleMessage_Ping(t *testing.T) {
	ctl, registry := newTestController(nil)
	c := newBoundConn(t, registry, "c1")

	ctl.handleMessage("c1", c, []byte(`{"type":"ping"}`))

	got := drain(t, c)
	require.Len(t, got, 1)
	require.Equal(t, "pong", got[0].Type)
}

func TestHandleMessage_RoomNotFoundStrings(t *testing.T) {
	ctl, registry := newTestController(nil)
	c := newBoundConn(t, registry, "c1")

	for _, raw := range []string{
		`{"type":"join_room","data":{"roomId":"nope"}}`,
		`{"type":"add_song","data":{"roomId":"nope","song":{"id":"s1"}}}`,
		`{"type":"up_vote","data":{"roomId":"nope","songId":"s1","userId":"u1"}}`,
		`{"type":"down_vote","data":{"roomId":"nope","songId":"s1","userId":"u1"}}`,
		`{"type":"on_end","data":{"roomId":"nope"}}`,
		`{"type":"leave_room","data":{"roomId":"nope"}}`,
	} {
		ctl.handleMessage("c1", c, []byte(raw))
		typ, msg := lastReply(t, c)
		require.Equal(t, "error", typ, raw)
		require.Equal(t, "room does not exist", msg, raw)
	}
}

func TestHandleMessage_DuplicateSongEnvelope(t *testing.T) {
	ctl, registry := newTestController(nil)
	c := newBoundConn(t, registry, "c1")

	ctl.handleMessage("c1", c, []byte(`{"type":"create_room","data":{"id":"r1","name":"Party"}}`))
	ctl.handleMessage("c1", c, []byte(`{"type":"add_song","data":{"roomId":"r1","song":{"id":"s1","title":"opener"}}}`))
	drain(t, c)

	ctl.handleMessage("c1", c, []byte(`{"type":"add_song","data":{"roomId":"r1","song":{"id":"s1","title":"opener"}}}`))

	typ, msg := lastReply(t, c)
	require.Equal(t, "song_already_exists", typ)
	require.Equal(t, "This song is already in the queue.", msg)
}

func TestHandleMessage_VoteErrorStrings(t *testing.T) {
	ctl, registry := newTestController(nil)
	c := newBoundConn(t, registry, "c1")

	ctl.handleMessage("c1", c, []byte(`{"type":"create_room","data":{"id":"r1","name":"Party"}}`))
	ctl.handleMessage("c1", c, []byte(`{"type":"add_song","data":{"roomId":"r1","song":{"id":"s1"}}}`))
	drain(t, c)

	ctl.handleMessage("c1", c, []byte(`{"type":"up_vote","data":{"roomId":"r1","songId":"ghost","userId":"u1"}}`))
	typ, msg := lastReply(t, c)
	require.Equal(t, "error", typ)
	require.Equal(t, "song does not exist", msg)

	ctl.handleMessage("c1", c, []byte(`{"type":"up_vote","data":{"roomId":"r1","songId":"s1","userId":"u1"}}`))
	drain(t, c)
	ctl.handleMessage("c1", c, []byte(`{"type":"up_vote","data":{"roomId":"r1","songId":"s1","userId":"u1"}}`))
	typ, msg = lastReply(t, c)
	require.Equal(t, "error", typ)
	require.Equal(t, "already upvoted", msg)

	ctl.handleMessage("c1", c, []byte(`{"type":"down_vote","data":{"roomId":"r1","songId":"s1","userId":"u2"}}`))
	typ, msg = lastReply(t, c)
	require.Equal(t, "error", typ)
	require.Equal(t, "you are not voted this song", msg)
}

func TestHandleMessage_HappyPathEnvelopes(t *testing.T) {
	ctl, registry := newTestController(nil)
	c := newBoundConn(t, registry, "c1")

	ctl.handleMessage("c1", c, []byte(`{"type":"create_room","data":{"id":"r1","name":"Party"}}`))
	got := drain(t, c)
	require.Len(t, got, 1)
	require.Equal(t, "room_created", got[0].Type)

	ctl.handleMessage("c1", c, []byte(`{"type":"add_song","data":{"roomId":"r1","song":{"id":"s1"}}}`))
	got = drain(t, c)
	require.Len(t, got, 1)
	require.Equal(t, "active_song", got[0].Type)

	ctl.handleMessage("c1", c, []byte(`{"type":"add_song","data":{"roomId":"r1","song":{"id":"s2"}}}`))
	got = drain(t, c)
	require.Len(t, got, 1)
	require.Equal(t, "song_added", got[0].Type)

	ctl.handleMessage("c1", c, []byte(`{"type":"up_vote","data":{"roomId":"r1","songId":"s2","userId":"u1"}}`))
	got = drain(t, c)
	require.Len(t, got, 1)
	require.Equal(t, "song_updated", got[0].Type)

	ctl.handleMessage("c1", c, []byte(`{"type":"on_end","data":{"roomId":"r1"}}`))
	got = drain(t, c)
	require.Len(t, got, 2)
	require.Equal(t, "active_song", got[0].Type)
	require.Equal(t, "song_updated", got[1].Type)

	ctl.handleMessage("c1", c, []byte(`{"type":"leave_room","data":{"roomId":"r1"}}`))
	got = drain(t, c)
	require.Len(t, got, 1)
	require.Equal(t, "left", got[0].Type)
}

func TestHandleMessage_RateLimited(t *testing.T) {
	ctl, registry := newTestController(&config.Config{
		ReadLimit:       32768,
		PingPeriod:      time.Minute,
		SendBuffer:      32,
		MsgRateLimit:    1,
		MsgRateInterval: time.Minute,
	})
	c := newBoundConn(t, registry, "c1")

	ctl.handleMessage("c1", c, []byte(`{"type":"create_room","data":{"id":"r1","name":"Party"}}`))
	drain(t, c)

	ctl.handleMessage("c1", c, []byte(`{"type":"join_room","data":{"roomId":"r1"}}`))
	typ, msg := lastReply(t, c)
	require.Equal(t, "error", typ)
	require.Equal(t, "rate limited", msg)

	// ping is exempt from the limit
	ctl.handleMessage("c1", c, []byte(`{"type":"ping"}`))
	got := drain(t, c)
	require.Len(t, got, 1)
	require.Equal(t, "pong", got[0].Type)
}

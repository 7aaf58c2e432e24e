package signal

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/jamq/jamq/internal/core"
	"github.com/jamq/jamq/internal/domain"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *WsConn) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping failed")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, sid core.SessionID, c *WsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		c.Close()
		ctl.Engine.Disconnect(sid)
		ctl.Limiter.Forget(sid)
	}()

	c.conn.SetReadLimit(ctl.Cfg.ReadLimit)
	readWait := ctl.Cfg.PingPeriod * 2
	_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				return
			}
			ctl.handleMessage(sid, c, data)
		}
	}
}

func (ctl *Controller) handleMessage(sid core.SessionID, c *WsConn, data []byte) {
	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(c, "bad_payload")
		return
	}

	if env.Type == "ping" {
		ctl.sendJSON(c, core.Envelope{Type: "pong"})
		return
	}

	if !ctl.Limiter.Allow(sid) {
		ctl.sendError(c, "rate limited")
		return
	}

	switch env.Type {
	case "create_room":
		ctl.handleCreateRoom(sid, c, env.Data)
	case "join_room":
		ctl.handleJoinRoom(sid, c, env.Data)
	case "leave_room":
		ctl.handleLeaveRoom(sid, c, env.Data)
	case "add_song":
		ctl.handleAddSong(sid, c, env.Data)
	case "up_vote":
		ctl.handleUpvote(sid, c, env.Data)
	case "down_vote":
		ctl.handleDownvote(sid, c, env.Data)
	case "on_end":
		ctl.handleOnEnd(sid, c, env.Data)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown message")
		ctl.sendError(c, "unknown message type")
	}
}

func (ctl *Controller) sendJSON(c *WsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *Controller) sendError(c *WsConn, msg string) {
	ctl.sendJSON(c, core.Envelope{Type: "error", Data: msg})
}

// replyError maps engine errors onto the wire. Duplicate songs carry
// their own envelope type; everything else is a plain error reply.
func (ctl *Controller) replyError(c *WsConn, err error) {
	switch {
	case errors.Is(err, domain.ErrDuplicateSong):
		ctl.sendJSON(c, core.Envelope{Type: "song_already_exists", Data: "This song is already in the queue."})
	case errors.Is(err, domain.ErrRoomNotFound):
		ctl.sendError(c, "room does not exist")
	case errors.Is(err, domain.ErrSongNotFound):
		ctl.sendError(c, "song does not exist")
	case errors.Is(err, domain.ErrAlreadyVoted):
		ctl.sendError(c, "already upvoted")
	case errors.Is(err, domain.ErrNotVoted):
		ctl.sendError(c, "you are not voted this song")
	default:
		ctl.sendError(c, err.Error())
	}
}

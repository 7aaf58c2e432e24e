package signal

import (
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/jamq/jamq/internal/core"
	"github.com/jamq/jamq/internal/domain"
)

func (ctl *Controller) handleCreateRoom(sid core.SessionID, c *WsConn, data []byte) {
	type payload struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad create_room payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.ID).Msg("create room")
	if err := ctl.Engine.CreateRoom(sid, domain.RoomID(p.ID), domain.RoomName(p.Name)); err != nil {
		ctl.replyError(c, err)
	}
}

func (ctl *Controller) handleJoinRoom(sid core.SessionID, c *WsConn, data []byte) {
	type payload struct {
		RoomID string `json:"roomId"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join_room payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomID).Msg("join room")
	if err := ctl.Engine.JoinRoom(sid, domain.RoomID(p.RoomID)); err != nil {
		ctl.replyError(c, err)
	}
}

// handleLeaveRoom leaves one room without dropping the connection.
func (ctl *Controller) handleLeaveRoom(sid core.SessionID, c *WsConn, data []byte) {
	type payload struct {
		RoomID string `json:"roomId"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad leave_room payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomID).Msg("leave room")
	if err := ctl.Engine.LeaveRoom(sid, domain.RoomID(p.RoomID)); err != nil {
		ctl.replyError(c, err)
		return
	}
	ctl.sendJSON(c, core.Envelope{Type: "left", Data: p.RoomID})
}

package signal

import (
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/jamq/jamq/internal/core"
	"github.com/jamq/jamq/internal/domain"
)

func (ctl *Controller) handleAddSong(sid core.SessionID, c *WsConn, data []byte) {
	type payload struct {
		RoomID string `json:"roomId"`
		Song   struct {
			ID             string `json:"id"`
			Title          string `json:"title"`
			URL            string `json:"url"`
			SmallThumbnail string `json:"smallThumbnail"`
			LargeThumbnail string `json:"largeThumbnail"`
		} `json:"song"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad add_song payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomID).Str("song", p.Song.ID).Msg("add song")
	song := domain.Song{
		ID:             domain.SongID(p.Song.ID),
		Title:          p.Song.Title,
		URL:            p.Song.URL,
		SmallThumbnail: p.Song.SmallThumbnail,
		LargeThumbnail: p.Song.LargeThumbnail,
	}
	if err := ctl.Engine.AddSong(sid, domain.RoomID(p.RoomID), song); err != nil {
		ctl.replyError(c, err)
	}
}

type votePayload struct {
	RoomID string `json:"roomId"`
	SongID string `json:"songId"`
	UserID string `json:"userId"`
}

func (ctl *Controller) handleUpvote(sid core.SessionID, c *WsConn, data []byte) {
	var p votePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad up_vote payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomID).Str("song", p.SongID).Str("user", p.UserID).Msg("up vote")
	err := ctl.Engine.Upvote(sid, domain.RoomID(p.RoomID), domain.SongID(p.SongID), domain.UserID(p.UserID))
	if err != nil {
		ctl.replyError(c, err)
	}
}

func (ctl *Controller) handleDownvote(sid core.SessionID, c *WsConn, data []byte) {
	var p votePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad down_vote payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomID).Str("song", p.SongID).Str("user", p.UserID).Msg("down vote")
	err := ctl.Engine.Downvote(sid, domain.RoomID(p.RoomID), domain.SongID(p.SongID), domain.UserID(p.UserID))
	if err != nil {
		ctl.replyError(c, err)
	}
}

func (ctl *Controller) handleOnEnd(sid core.SessionID, c *WsConn, data []byte) {
	type payload struct {
		RoomID string `json:"roomId"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad on_end payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomID).Msg("on end")
	if err := ctl.Engine.EndSong(sid, domain.RoomID(p.RoomID)); err != nil {
		ctl.replyError(c, err)
	}
}

package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jamq/jamq/internal/core"
)

// Sweeper is the periodic pass that reaps connections which closed
// without a clean disconnect and the rooms they leave empty. It is the
// only place membership is pruned for such drops.
type Sweeper struct {
	store    *Store
	registry *Registry
	engine   *Engine
	interval time.Duration
}

func NewSweeper(store *Store, registry *Registry, engine *Engine, interval time.Duration) *Sweeper {
	return &Sweeper{store: store, registry: registry, engine: engine, interval: interval}
}

func (s *Sweeper) Run(ctx context.Context) {
	log.Info().Str("module", "app.sweeper").Dur("interval", s.interval).Msg("sweeper started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.sweeper").Msg("sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep runs one pass: closed-but-still-bound sessions go through the
// normal disconnect path, then every room is pruned of members with no
// live connection and emptied rooms are deleted.
func (s *Sweeper) Sweep() {
	for _, sid := range s.registry.Stale() {
		s.engine.Disconnect(sid)
	}
	for _, room := range s.store.List() {
		removed, empty := room.Prune(func(sid core.SessionID) bool {
			return s.registry.Alive(sid)
		})
		for _, sid := range removed {
			s.registry.Untrack(sid, room.Meta().ID)
		}
		if empty {
			s.store.Delete(room.Meta().ID)
		}
		if len(removed) > 0 {
			log.Info().Str("module", "app.sweeper").Str("room", string(room.Meta().ID)).Int("removed", len(removed)).Bool("deleted", empty).Msg("swept room")
		}
	}
}

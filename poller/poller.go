// Package poller runs the scheduled refresh cycle: it updates the domain
// model on a fixed interval, diffs per-pet snapshots between cycles, and
// emits change notifications through callbacks.
package poller

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"rendellc/tryfi2mqtt/tryfi"
)

const (
	DefaultInterval            = 10 * time.Second
	DefaultLowBatteryThreshold = 20

	minInterval = 1 * time.Second
	maxInterval = 3600 * time.Second
)

// Source is the domain model the poller refreshes and observes.
type Source interface {
	Update(ctx context.Context) error
	PetSnapshots() []tryfi.PetSnapshot
}

type Config struct {
	// Interval between refresh ticks, clamped to [1s, 3600s].
	Interval time.Duration
	// LowBatteryThreshold is the percent below which a downward crossing
	// emits a LowBattery event.
	LowBatteryThreshold int
}

func (c Config) withDefaults() Config {
	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}
	if c.Interval < minInterval {
		c.Interval = minInterval
	}
	if c.Interval > maxInterval {
		c.Interval = maxInterval
	}
	if c.LowBatteryThreshold == 0 {
		c.LowBatteryThreshold = DefaultLowBatteryThreshold
	}
	return c
}

// Poller drives the refresh loop. One worker; ticks never overlap, a slow
// tick delays the next one.
type Poller struct {
	src  Source
	cfg  Config
	cb   Callbacks
	log  zerolog.Logger
	prev map[string]tryfi.PetSnapshot
}

func New(src Source, cfg Config, cb Callbacks, log zerolog.Logger) *Poller {
	return &Poller{
		src:  src,
		cfg:  cfg.withDefaults(),
		cb:   cb,
		log:  log.With().Str("component", "poller").Logger(),
		prev: make(map[string]tryfi.PetSnapshot),
	}
}

// Run ticks immediately, then on every interval until the context ends.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info().Dur("interval", p.cfg.Interval).Msg("starting refresh loop")

	p.tick(ctx)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("refresh loop stopped")
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	tickID := uuid.NewString()
	log := p.log.With().Str("tick", tickID).Logger()

	start := time.Now()
	if err := p.src.Update(ctx); err != nil {
		log.Error().Err(err).Msg("refresh failed, keeping last known snapshot")
		if p.cb.RefreshFailed != nil {
			p.cb.RefreshFailed(err)
		}
		return
	}

	snaps := p.src.PetSnapshots()
	p.observe(snaps, log)
	log.Debug().Int("pets", len(snaps)).Dur("took", time.Since(start)).Msg("refresh complete")

	if p.cb.Refreshed != nil {
		p.cb.Refreshed()
	}
}

// observe diffs the new snapshots against the previous cycle and emits one
// event per detected transition. The first sighting of a pet is a baseline,
// never a transition.
func (p *Poller) observe(snaps []tryfi.PetSnapshot, log zerolog.Logger) {
	for _, cur := range snaps {
		prev, seen := p.prev[cur.ID]
		p.prev[cur.ID] = cur
		if !seen {
			continue
		}

		if prev.PlaceName != nil && !equalPlace(prev.PlaceName, cur.PlaceName) {
			log.Info().Str("petId", cur.ID).Msg("pet location changed")
			if p.cb.LocationChanged != nil {
				p.cb.LocationChanged(LocationChanged{
					PetID:       cur.ID,
					PetName:     cur.Name,
					OldLocation: deref(prev.PlaceName),
					NewLocation: deref(cur.PlaceName),
				})
			}
		}

		// strict downward crossing only
		if prev.BatteryPercent >= p.cfg.LowBatteryThreshold && cur.BatteryPercent < p.cfg.LowBatteryThreshold {
			log.Info().Str("petId", cur.ID).Int("battery", cur.BatteryPercent).Msg("collar battery low")
			if p.cb.LowBattery != nil {
				p.cb.LowBattery(LowBattery{
					PetID:        cur.ID,
					PetName:      cur.Name,
					BatteryLevel: cur.BatteryPercent,
				})
			}
		}

		if prev.IsLost != cur.IsLost {
			log.Info().Str("petId", cur.ID).Bool("isLost", cur.IsLost).Msg("lost mode changed")
			if p.cb.LostModeChanged != nil {
				p.cb.LostModeChanged(LostModeChanged{
					PetID:   cur.ID,
					PetName: cur.Name,
					IsLost:  cur.IsLost,
				})
			}
		}

		if prev.ConnectionState != cur.ConnectionState {
			log.Info().Str("petId", cur.ID).Str("state", cur.ConnectionState).Msg("connection state changed")
			if p.cb.ConnectionChanged != nil {
				p.cb.ConnectionChanged(ConnectionChanged{
					PetID:       cur.ID,
					PetName:     cur.Name,
					OldState:    prev.ConnectionState,
					NewState:    cur.ConnectionState,
					IsConnected: cur.ConnectionState == tryfi.ConnectedToCellular || cur.ConnectionState == tryfi.ConnectedToBase,
				})
			}
		}
	}
}

func equalPlace(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package ports

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/domain"
)

// Resyncer pushes the persisted lamp state to the switch periodically,
// e.g. after the controller lost power. It never writes to the repository.
type Resyncer struct {
	repo     domain.LampRepository
	sw       Switch
	interval time.Duration
	timeout  time.Duration
}

// NewResyncer creates a new background resyncer
func NewResyncer(repo domain.LampRepository, sw Switch, interval, timeout time.Duration) *Resyncer {
	if timeout <= 0 {
		timeout = DefaultSwitchTimeout
	}
	return &Resyncer{
		repo:     repo,
		sw:       sw,
		interval: interval,
		timeout:  timeout,
	}
}

// Start resyncs immediately, then on every tick.
// This runs in a goroutine until context is cancelled
func (r *Resyncer) Start(ctx context.Context) {
	log.Info().
		Dur("interval", r.interval).
		Msg("starting switch resync")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.SyncOnce(ctx)

	for {
		select {
		case <-ticker.C:
			r.SyncOnce(ctx)

		case <-ctx.Done():
			log.Info().Msg("stopping switch resync")
			return
		}
	}
}

// SyncOnce pushes every lamp once and returns how many failed
func (r *Resyncer) SyncOnce(ctx context.Context) int {
	lamps, err := r.repo.ListLamps(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list lamps for resync")
		return 0
	}

	failed := 0
	for _, lamp := range lamps {
		if err := r.syncLamp(ctx, lamp); err != nil {
			failed++
			log.Error().
				Err(err).
				Int64("lamp_id", lamp.ID).
				Msg("failed to resync lamp")
		}
	}

	log.Debug().
		Int("lamps", len(lamps)).
		Int("failed", failed).
		Msg("switch resync done")

	return failed
}

func (r *Resyncer) syncLamp(ctx context.Context, lamp *domain.Lamp) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.sw.SetBrightness(ctx, lamp.ID, lamp.Brightness); err != nil {
		return err
	}
	if lamp.IsOn {
		return r.sw.TurnOn(ctx, lamp.ID)
	}
	return r.sw.TurnOff(ctx, lamp.ID)
}

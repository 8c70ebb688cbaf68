package ports

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/domain"
)

// openPeriod starts a new working period at the lamp's current brightness.
// It does not check for an active period; the caller does.
func openPeriod(ctx context.Context, tx domain.LampTx, lamp *domain.Lamp, ts time.Time) error {
	period, err := domain.NewWorkingPeriod(lamp.ID, ts, lamp.Brightness)
	if err != nil {
		return err
	}
	return tx.CreatePeriod(ctx, period)
}

// closePeriod ends the active period of the lamp.
// A missing or already closed last period is logged, not returned.
func closePeriod(ctx context.Context, tx domain.LampTx, lampID int64, ts time.Time) error {
	active, err := activePeriod(ctx, tx, lampID)
	if err != nil {
		return err
	}
	if active == nil {
		log.Warn().Int64("lamp_id", lampID).Msg("no period to close")
		return nil
	}

	active.Close(ts)
	return tx.SavePeriod(ctx, active)
}

// activePeriod returns the last period if it is open, or nil
func activePeriod(ctx context.Context, tx domain.LampTx, lampID int64) (*domain.WorkingPeriod, error) {
	last, err := tx.LastPeriod(ctx, lampID)
	if errors.Is(err, domain.ErrPeriodNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !last.IsOpen() {
		return nil, nil
	}
	return last, nil
}

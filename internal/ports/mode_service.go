package ports

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/domain"
)

// DefaultSwitchTimeout bounds a single switch call. A timeout is a switch fault.
const DefaultSwitchTimeout = 3 * time.Second

// Mode is a requested change of a lamp's operating mode.
// Nil fields are left as they are; an empty Mode is a legal no-op.
type Mode struct {
	On         *bool
	Brightness *int
}

// LampModeService applies mode changes to lamps.
//
// The lamp row, the period ledger and the switch call share one
// transaction: if the switch fails, nothing is persisted.
type LampModeService struct {
	repo          domain.LampRepository
	sw            Switch
	now           func() time.Time
	switchTimeout time.Duration
	locks         *lampLocks
}

// Option configures a LampModeService
type Option func(*LampModeService)

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(s *LampModeService) {
		s.now = now
	}
}

// WithSwitchTimeout overrides DefaultSwitchTimeout
func WithSwitchTimeout(d time.Duration) Option {
	return func(s *LampModeService) {
		if d > 0 {
			s.switchTimeout = d
		}
	}
}

// NewLampModeService creates the service bound to a repository and a switch
func NewLampModeService(repo domain.LampRepository, sw Switch, opts ...Option) *LampModeService {
	s := &LampModeService{
		repo:          repo,
		sw:            sw,
		now:           time.Now,
		switchTimeout: DefaultSwitchTimeout,
		locks:         newLampLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetLampMode turns the lamp on/off and sets its brightness.
//
// Turning a lamp on starts a new working period unless one is already
// active. Turning it off closes the active period. Changing brightness while
// the lamp is on closes the active period and starts a new one at the new
// brightness.
//
// The lamp is re-read inside the transaction, so a stale handle is fine.
// On switch failure every change is rolled back and *domain.ExternalError
// is returned.
func (s *LampModeService) SetLampMode(ctx context.Context, lamp *domain.Lamp, mode Mode) (*domain.Lamp, error) {
	if mode.Brightness != nil {
		if err := domain.ValidateBrightness(*mode.Brightness); err != nil {
			return nil, err
		}
	}

	unlock := s.locks.lock(lamp.ID)
	defer unlock()

	var updated *domain.Lamp
	err := s.repo.WithinTx(ctx, func(tx domain.LampTx) error {
		current, err := tx.GetLamp(ctx, lamp.ID)
		if err != nil {
			return err
		}

		now := s.now()

		// any provided on/off counts as a switch, even a redundant one
		if mode.On != nil {
			current.IsOn = *mode.On
			current.LastSwitch = &now
		}
		if mode.Brightness != nil {
			current.Brightness = *mode.Brightness
		}

		if err := tx.SaveLamp(ctx, current); err != nil {
			return err
		}

		if err := s.updateLedger(ctx, tx, current, mode, now); err != nil {
			return err
		}

		if err := s.callSwitch(ctx, current.ID, mode); err != nil {
			log.Error().
				Err(err).
				Int64("lamp_id", current.ID).
				Msg("switch fault, reverting mode change")
			return &domain.ExternalError{LampID: current.ID, Err: err}
		}

		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("lamp_id", updated.ID).
		Bool("on", updated.IsOn).
		Int("brightness", updated.Brightness).
		Msg("lamp mode set")

	return updated, nil
}

// updateLedger keeps the working periods in line with the new lamp state
func (s *LampModeService) updateLedger(ctx context.Context, tx domain.LampTx, lamp *domain.Lamp, mode Mode, now time.Time) error {
	if mode.On != nil && !*mode.On {
		return closePeriod(ctx, tx, lamp.ID, now)
	}

	turningOn := mode.On != nil && *mode.On
	brightnessOnly := mode.On == nil && mode.Brightness != nil && lamp.IsOn
	if !turningOn && !brightnessOnly {
		// brightness change while off, or nothing to do
		return nil
	}

	active, err := activePeriod(ctx, tx, lamp.ID)
	if err != nil {
		return err
	}

	switch {
	case active == nil:
		return openPeriod(ctx, tx, lamp, now)
	case mode.Brightness != nil && active.Brightness != lamp.Brightness:
		// brightness changed while the lamp was on, splitting period
		active.Close(now)
		if err := tx.SavePeriod(ctx, active); err != nil {
			return err
		}
		return openPeriod(ctx, tx, lamp, now)
	default:
		return nil
	}
}

// callSwitch applies the mode to the hardware, brightness first
func (s *LampModeService) callSwitch(ctx context.Context, lampID int64, mode Mode) error {
	ctx, cancel := context.WithTimeout(ctx, s.switchTimeout)
	defer cancel()

	if mode.Brightness != nil {
		if err := s.sw.SetBrightness(ctx, lampID, *mode.Brightness); err != nil {
			return err
		}
	}

	if mode.On == nil {
		return nil
	}
	if *mode.On {
		return s.sw.TurnOn(ctx, lampID)
	}
	return s.sw.TurnOff(ctx, lampID)
}

// TotalWorkingTime returns how long the lamp has been lit in total
func (s *LampModeService) TotalWorkingTime(ctx context.Context, lamp *domain.Lamp) (time.Duration, error) {
	periods, err := s.repo.ListPeriods(ctx, lamp.ID)
	if err != nil {
		return 0, err
	}
	return domain.TotalWorkingTime(periods, s.now()), nil
}

// Periods returns the lamp's working periods ordered by start
func (s *LampModeService) Periods(ctx context.Context, lamp *domain.Lamp) ([]*domain.WorkingPeriod, error) {
	return s.repo.ListPeriods(ctx, lamp.ID)
}

// lampLocks serializes mode changes per lamp within this process
type lampLocks struct {
	mu    sync.Mutex
	locks map[int64]*lampLock
}

type lampLock struct {
	mu   sync.Mutex
	refs int
}

func newLampLocks() *lampLocks {
	return &lampLocks{locks: make(map[int64]*lampLock)}
}

func (l *lampLocks) lock(id int64) func() {
	l.mu.Lock()
	lk, ok := l.locks[id]
	if !ok {
		lk = &lampLock{}
		l.locks[id] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()

	return func() {
		lk.mu.Unlock()

		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/domain"
)

// LampRepository implements domain.LampRepository with in-memory storage
// This is perfect for development - no database setup needed
//
// Transactions work on a copy of the data that replaces the stored data
// on commit. One transaction runs at a time.
type LampRepository struct {
	mu   sync.RWMutex
	data *dataset

	// txMu serializes writers
	txMu sync.Mutex
}

type dataset struct {
	lamps        map[int64]*domain.Lamp
	periods      map[int64]*domain.WorkingPeriod
	nextLampID   int64
	nextPeriodID int64
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		lamps:        make(map[int64]*domain.Lamp, len(d.lamps)),
		periods:      make(map[int64]*domain.WorkingPeriod, len(d.periods)),
		nextLampID:   d.nextLampID,
		nextPeriodID: d.nextPeriodID,
	}
	for id, l := range d.lamps {
		c.lamps[id] = l.Clone()
	}
	for id, p := range d.periods {
		c.periods[id] = p.Clone()
	}
	return c
}

// NewLampRepository creates an empty in-memory repository
func NewLampRepository() *LampRepository {
	return &LampRepository{
		data: &dataset{
			lamps:        make(map[int64]*domain.Lamp),
			periods:      make(map[int64]*domain.WorkingPeriod),
			nextLampID:   1,
			nextPeriodID: 1,
		},
	}
}

// CreateLamp stores a new lamp in memory
func (r *LampRepository) CreateLamp(ctx context.Context, lamp *domain.Lamp) error {
	if err := domain.ValidateBrightness(lamp.Brightness); err != nil {
		return err
	}

	r.txMu.Lock()
	defer r.txMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.data.lamps {
		if l.Name == lamp.Name {
			return domain.ErrDuplicateLampName
		}
	}

	lamp.ID = r.data.nextLampID
	r.data.nextLampID++
	r.data.lamps[lamp.ID] = lamp.Clone()
	return nil
}

// GetLamp retrieves a lamp by ID
func (r *LampRepository) GetLamp(ctx context.Context, id int64) (*domain.Lamp, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lamp, exists := r.data.lamps[id]
	if !exists {
		return nil, domain.ErrLampNotFound
	}
	return lamp.Clone(), nil
}

// GetLampByName retrieves a lamp by name
func (r *LampRepository) GetLampByName(ctx context.Context, name string) (*domain.Lamp, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, l := range r.data.lamps {
		if l.Name == name {
			return l.Clone(), nil
		}
	}
	return nil, domain.ErrLampNotFound
}

// ListLamps returns all lamps sorted by ID
func (r *LampRepository) ListLamps(ctx context.Context) ([]*domain.Lamp, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lamps := make([]*domain.Lamp, 0, len(r.data.lamps))
	for _, l := range r.data.lamps {
		lamps = append(lamps, l.Clone())
	}

	sort.Slice(lamps, func(i, j int) bool {
		return lamps[i].ID < lamps[j].ID
	})
	return lamps, nil
}

// ListPeriods returns the lamp's periods sorted by start
func (r *LampRepository) ListPeriods(ctx context.Context, lampID int64) ([]*domain.WorkingPeriod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.data.lampPeriods(lampID), nil
}

// WithinTx runs fn against a copy of the data and keeps it if fn succeeds
func (r *LampRepository) WithinTx(ctx context.Context, fn func(tx domain.LampTx) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.RLock()
	work := r.data.clone()
	r.mu.RUnlock()

	if err := fn(&lampTx{data: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.data = work
	r.mu.Unlock()
	return nil
}

// AddPeriod stores a period as is, without any checks.
// Useful for seeding history, including anomalies, in tests.
func (r *LampRepository) AddPeriod(ctx context.Context, period *domain.WorkingPeriod) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data.lamps[period.LampID]; !ok {
		return domain.ErrLampNotFound
	}
	period.ID = r.data.nextPeriodID
	r.data.nextPeriodID++
	r.data.periods[period.ID] = period.Clone()
	return nil
}

func (d *dataset) lampPeriods(lampID int64) []*domain.WorkingPeriod {
	var periods []*domain.WorkingPeriod
	for _, p := range d.periods {
		if p.LampID == lampID {
			periods = append(periods, p.Clone())
		}
	}

	sort.Slice(periods, func(i, j int) bool {
		if periods[i].Start.Equal(periods[j].Start) {
			return periods[i].ID < periods[j].ID
		}
		return periods[i].Start.Before(periods[j].Start)
	})
	return periods
}

// lampTx implements domain.LampTx on a private copy of the data
type lampTx struct {
	data *dataset
}

func (t *lampTx) GetLamp(ctx context.Context, id int64) (*domain.Lamp, error) {
	lamp, ok := t.data.lamps[id]
	if !ok {
		return nil, domain.ErrLampNotFound
	}
	return lamp.Clone(), nil
}

func (t *lampTx) SaveLamp(ctx context.Context, lamp *domain.Lamp) error {
	stored, ok := t.data.lamps[lamp.ID]
	if !ok {
		return domain.ErrLampNotFound
	}
	if err := domain.ValidateBrightness(lamp.Brightness); err != nil {
		return err
	}

	updated := lamp.Clone()
	updated.Name = stored.Name
	t.data.lamps[lamp.ID] = updated
	return nil
}

func (t *lampTx) CreatePeriod(ctx context.Context, period *domain.WorkingPeriod) error {
	if _, ok := t.data.lamps[period.LampID]; !ok {
		return domain.ErrLampNotFound
	}
	period.ID = t.data.nextPeriodID
	t.data.nextPeriodID++
	t.data.periods[period.ID] = period.Clone()
	return nil
}

func (t *lampTx) LastPeriod(ctx context.Context, lampID int64) (*domain.WorkingPeriod, error) {
	last := domain.LastPeriod(t.data.lampPeriods(lampID))
	if last == nil {
		return nil, domain.ErrPeriodNotFound
	}
	return last, nil
}

func (t *lampTx) SavePeriod(ctx context.Context, period *domain.WorkingPeriod) error {
	stored, ok := t.data.periods[period.ID]
	if !ok {
		return domain.ErrPeriodNotFound
	}
	stored.End = period.Clone().End
	return nil
}

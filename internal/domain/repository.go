package domain

import (
	"context"
)

// LampRepository defines operations for storing/retrieving lamps and their periods
// This is a PORT - adapters (SQLite, Memory) will implement it
type LampRepository interface {
	// CreateLamp persists a new lamp and sets its ID.
	// Returns ErrDuplicateLampName if the name is taken.
	CreateLamp(ctx context.Context, lamp *Lamp) error

	// GetLamp retrieves a lamp by ID
	GetLamp(ctx context.Context, id int64) (*Lamp, error)

	// GetLampByName retrieves a lamp by its unique name
	GetLampByName(ctx context.Context, name string) (*Lamp, error)

	// ListLamps returns all lamps ordered by ID
	ListLamps(ctx context.Context) ([]*Lamp, error)

	// ListPeriods returns all periods of a lamp ordered by start
	ListPeriods(ctx context.Context, lampID int64) ([]*WorkingPeriod, error)

	// WithinTx runs fn in a transaction. The transaction commits if fn
	// returns nil and rolls back otherwise; fn's error is returned as is.
	WithinTx(ctx context.Context, fn func(tx LampTx) error) error
}

// LampTx is the set of operations available inside a transaction.
// Nothing written through it is visible outside until commit.
type LampTx interface {
	// GetLamp retrieves a lamp by ID
	GetLamp(ctx context.Context, id int64) (*Lamp, error)

	// SaveLamp updates the mutable fields of an existing lamp (never the name)
	SaveLamp(ctx context.Context, lamp *Lamp) error

	// CreatePeriod persists a new period and sets its ID
	CreatePeriod(ctx context.Context, period *WorkingPeriod) error

	// LastPeriod returns the period with maximum start for the lamp,
	// or ErrPeriodNotFound
	LastPeriod(ctx context.Context, lampID int64) (*WorkingPeriod, error)

	// SavePeriod updates the end of an existing period
	SavePeriod(ctx context.Context, period *WorkingPeriod) error
}

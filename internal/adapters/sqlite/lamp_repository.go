package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/domain"
)

// timeLayout is fixed width so that text order equals time order
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// LampRepository implements domain.LampRepository with SQLite
type LampRepository struct {
	db *sql.DB
}

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewLampRepository creates a SQLite-backed repository
func NewLampRepository(dbPath string) (*LampRepository, error) {
	dsn := dbPath + "?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create tables if not exist
	schema := `
	CREATE TABLE IF NOT EXISTS lamps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		is_on INTEGER NOT NULL DEFAULT 0,
		last_switch TEXT,
		brightness INTEGER NOT NULL DEFAULT 100 CHECK (brightness BETWEEN 1 AND 100)
	);
	CREATE TABLE IF NOT EXISTS working_periods (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		lamp_id INTEGER NOT NULL REFERENCES lamps(id) ON DELETE CASCADE,
		brightness INTEGER NOT NULL CHECK (brightness BETWEEN 1 AND 100),
		started_at TEXT NOT NULL,
		ended_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_periods_lamp_start ON working_periods(lamp_id, started_at);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &LampRepository{db: db}, nil
}

// CreateLamp inserts a new lamp
func (r *LampRepository) CreateLamp(ctx context.Context, lamp *domain.Lamp) error {
	query := `INSERT INTO lamps (name, is_on, last_switch, brightness) VALUES (?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, lamp.Name, lamp.IsOn, formatNullTime(lamp.LastSwitch), lamp.Brightness)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateLampName
	}
	if err != nil {
		return fmt.Errorf("failed to insert lamp: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert id: %w", err)
	}

	lamp.ID = id
	return nil
}

// GetLamp retrieves a lamp by ID
func (r *LampRepository) GetLamp(ctx context.Context, id int64) (*domain.Lamp, error) {
	return getLamp(ctx, r.db, `WHERE id = ?`, id)
}

// GetLampByName retrieves a lamp by name
func (r *LampRepository) GetLampByName(ctx context.Context, name string) (*domain.Lamp, error) {
	return getLamp(ctx, r.db, `WHERE name = ?`, name)
}

// ListLamps returns all lamps ordered by ID
func (r *LampRepository) ListLamps(ctx context.Context) ([]*domain.Lamp, error) {
	query := `SELECT id, name, is_on, last_switch, brightness FROM lamps ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query lamps: %w", err)
	}
	defer rows.Close()

	var lamps []*domain.Lamp
	for rows.Next() {
		lamp, err := scanLamp(rows)
		if err != nil {
			return nil, err
		}
		lamps = append(lamps, lamp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lamps: %w", err)
	}

	return lamps, nil
}

// ListPeriods returns all periods of a lamp ordered by start
func (r *LampRepository) ListPeriods(ctx context.Context, lampID int64) ([]*domain.WorkingPeriod, error) {
	query := `
		SELECT id, lamp_id, brightness, started_at, ended_at
		FROM working_periods
		WHERE lamp_id = ?
		ORDER BY started_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, lampID)
	if err != nil {
		return nil, fmt.Errorf("failed to query periods: %w", err)
	}
	defer rows.Close()

	var periods []*domain.WorkingPeriod
	for rows.Next() {
		period, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, period)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate periods: %w", err)
	}

	return periods, nil
}

// WithinTx runs fn in a SQLite transaction
func (r *LampRepository) WithinTx(ctx context.Context, fn func(tx domain.LampTx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&lampTx{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("failed to roll back transaction")
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// AddPeriod inserts a period as is, without any checks.
// Useful for seeding history, including anomalies, in tests.
func (r *LampRepository) AddPeriod(ctx context.Context, period *domain.WorkingPeriod) error {
	return createPeriod(ctx, r.db, period)
}

// Close closes the database connection
func (r *LampRepository) Close() error {
	return r.db.Close()
}

// lampTx implements domain.LampTx on top of *sql.Tx
type lampTx struct {
	tx *sql.Tx
}

func (t *lampTx) GetLamp(ctx context.Context, id int64) (*domain.Lamp, error) {
	return getLamp(ctx, t.tx, `WHERE id = ?`, id)
}

func (t *lampTx) SaveLamp(ctx context.Context, lamp *domain.Lamp) error {
	query := `UPDATE lamps SET is_on = ?, last_switch = ?, brightness = ? WHERE id = ?`

	result, err := t.tx.ExecContext(ctx, query, lamp.IsOn, formatNullTime(lamp.LastSwitch), lamp.Brightness, lamp.ID)
	if err != nil {
		return fmt.Errorf("failed to update lamp: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrLampNotFound
	}
	return nil
}

func (t *lampTx) CreatePeriod(ctx context.Context, period *domain.WorkingPeriod) error {
	return createPeriod(ctx, t.tx, period)
}

func (t *lampTx) LastPeriod(ctx context.Context, lampID int64) (*domain.WorkingPeriod, error) {
	query := `
		SELECT id, lamp_id, brightness, started_at, ended_at
		FROM working_periods
		WHERE lamp_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`

	period, err := scanPeriod(t.tx.QueryRowContext(ctx, query, lampID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPeriodNotFound
	}
	if err != nil {
		return nil, err
	}
	return period, nil
}

func (t *lampTx) SavePeriod(ctx context.Context, period *domain.WorkingPeriod) error {
	query := `UPDATE working_periods SET ended_at = ? WHERE id = ?`

	result, err := t.tx.ExecContext(ctx, query, formatNullTime(period.End), period.ID)
	if err != nil {
		return fmt.Errorf("failed to update period: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrPeriodNotFound
	}
	return nil
}

func getLamp(ctx context.Context, q queryer, where string, arg any) (*domain.Lamp, error) {
	query := `SELECT id, name, is_on, last_switch, brightness FROM lamps ` + where

	lamp, err := scanLamp(q.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrLampNotFound
	}
	if err != nil {
		return nil, err
	}
	return lamp, nil
}

func createPeriod(ctx context.Context, q queryer, period *domain.WorkingPeriod) error {
	query := `INSERT INTO working_periods (lamp_id, brightness, started_at, ended_at) VALUES (?, ?, ?, ?)`

	result, err := q.ExecContext(ctx, query, period.LampID, period.Brightness, formatTime(period.Start), formatNullTime(period.End))
	if err != nil {
		return fmt.Errorf("failed to insert period: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert id: %w", err)
	}

	period.ID = id
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanLamp(s scanner) (*domain.Lamp, error) {
	var lamp domain.Lamp
	var lastSwitch sql.NullString

	if err := s.Scan(&lamp.ID, &lamp.Name, &lamp.IsOn, &lastSwitch, &lamp.Brightness); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan lamp: %w", err)
	}

	ts, err := parseNullTime(lastSwitch)
	if err != nil {
		return nil, err
	}
	lamp.LastSwitch = ts

	return &lamp, nil
}

func scanPeriod(s scanner) (*domain.WorkingPeriod, error) {
	var period domain.WorkingPeriod
	var start string
	var end sql.NullString

	if err := s.Scan(&period.ID, &period.LampID, &period.Brightness, &start, &end); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan period: %w", err)
	}

	var err error
	period.Start, err = time.Parse(timeLayout, start)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	period.End, err = parseNullTime(end)
	if err != nil {
		return nil, err
	}

	return &period, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	return &t, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

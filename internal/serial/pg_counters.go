package serial

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by pgx.Tx, *pgxpool.Pool, and pgxmock. Running the
// counters on the booking transaction makes allocation and appointment
// persistence commit as a single atomic unit.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgCounters stores one row per (doctor, date) in serial_counters. Rows are
// only ever inserted or advanced, never deleted or decremented.
type PgCounters struct {
	q Querier
}

func NewPgCounters(q Querier) *PgCounters {
	return &PgCounters{q: q}
}

func (c *PgCounters) Current(ctx context.Context, doctorID uuid.UUID, date time.Time) (int, bool, error) {
	var last int32
	err := c.q.QueryRow(ctx, `
		SELECT last_serial
		FROM serial_counters
		WHERE doctor_id = $1 AND appointment_date = $2
	`, doctorID, date).Scan(&last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return int(last), true, nil
}

func (c *PgCounters) Init(ctx context.Context, doctorID uuid.UUID, date time.Time) (bool, error) {
	tag, err := c.q.Exec(ctx, `
		INSERT INTO serial_counters (doctor_id, appointment_date, last_serial)
		VALUES ($1, $2, 1)
		ON CONFLICT (doctor_id, appointment_date) DO NOTHING
	`, doctorID, date)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (c *PgCounters) CompareAndSwap(ctx context.Context, doctorID uuid.UUID, date time.Time, current, next int) (bool, error) {
	tag, err := c.q.Exec(ctx, `
		UPDATE serial_counters
		SET last_serial = $4
		WHERE doctor_id = $1 AND appointment_date = $2 AND last_serial = $3
	`, doctorID, date, int32(current), int32(next))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies
// it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

func scanWindow(row pgx.Row) (*Window, error) {
	var w Window
	var day int16
	var start, end int32

	err := row.Scan(
		&w.ID,
		&w.DoctorID,
		&day,
		&start,
		&end,
		&w.IsActive,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWindowNotFound
		}
		return nil, err
	}

	w.DayOfWeek = time.Weekday(day)
	w.Start = TimeOfDay(start)
	w.End = TimeOfDay(end)
	return &w, nil
}

func (r *PgRepository) GetWindow(ctx context.Context, doctorID uuid.UUID, day time.Weekday) (*Window, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, doctor_id, day_of_week, start_minute, end_minute, is_active, created_at, updated_at
		FROM schedule_windows
		WHERE doctor_id = $1 AND day_of_week = $2
	`, doctorID, int16(day))
	return scanWindow(row)
}

func (r *PgRepository) GetActiveWindow(ctx context.Context, doctorID uuid.UUID, day time.Weekday) (*Window, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, doctor_id, day_of_week, start_minute, end_minute, is_active, created_at, updated_at
		FROM schedule_windows
		WHERE doctor_id = $1 AND day_of_week = $2 AND is_active
	`, doctorID, int16(day))
	return scanWindow(row)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Window, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, doctor_id, day_of_week, start_minute, end_minute, is_active, created_at, updated_at
		FROM schedule_windows
		WHERE doctor_id = $1
		ORDER BY day_of_week
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}

	return result, rows.Err()
}

func (r *PgRepository) Insert(ctx context.Context, w *Window) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO schedule_windows (id, doctor_id, day_of_week, start_minute, end_minute, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
	`, w.ID, w.DoctorID, int16(w.DayOfWeek), int32(w.Start), int32(w.End), w.IsActive)
	return err
}

func (r *PgRepository) Update(ctx context.Context, w *Window) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE schedule_windows
		SET start_minute = $2,
		    end_minute = $3,
		    is_active = $4,
		    updated_at = now()
		WHERE id = $1
	`, w.ID, int32(w.Start), int32(w.End), w.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWindowNotFound
	}
	return nil
}

func (r *PgRepository) Deactivate(ctx context.Context, doctorID uuid.UUID, day time.Weekday) error {
	_, err := r.db.Exec(ctx, `
		UPDATE schedule_windows
		SET is_active = false,
		    updated_at = now()
		WHERE doctor_id = $1 AND day_of_week = $2 AND is_active
	`, doctorID, int16(day))
	return err
}

package booking

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shs-health/booking-engine/internal/schedule"
	"github.com/shs-health/booking-engine/internal/serial"
)

// DB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies
// it in tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	db    DB
	alloc *serial.Allocator
}

func NewPgRepository(db DB, alloc *serial.Allocator) *PgRepository {
	return &PgRepository{db: db, alloc: alloc}
}

// Helpers

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialty,
		&d.AcceptingPatients,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

const appointmentColumns = `id, appointment_number, doctor_id, patient_id, appointment_date,
	serial_number, approximate_minute, time_overflow, status, patient_notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var serialNo int32
	var approx *int32

	err := row.Scan(
		&a.ID,
		&a.AppointmentNumber,
		&a.DoctorID,
		&a.PatientID,
		&a.Date,
		&serialNo,
		&approx,
		&a.TimeOverflow,
		&a.Status,
		&a.PatientNotes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.SerialNumber = int(serialNo)
	a.ApproximateTime = minutePtr(approx)
	return &a, nil
}

// Interface methods

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, specialty, accepting_patients, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

// CreateWithSerial allocates the next serial on the booking transaction and
// inserts the appointment row in the same transaction. If the insert fails
// or the caller's context is cancelled before commit, the counter increment
// rolls back with everything else.
func (r *PgRepository) CreateWithSerial(ctx context.Context, p CreateParams) (*Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin booking tx: %w", err)
	}
	defer tx.Rollback(ctx)

	serialNo, err := r.alloc.Allocate(ctx, serial.NewPgCounters(tx), p.DoctorID, p.Date)
	if err != nil {
		return nil, err
	}

	est, overflow, ok := Estimate(serialNo, p.Window)
	var approx *int32
	if ok {
		v := int32(est)
		approx = &v
	} else {
		overflow = false
	}

	id := uuid.New()
	number := newAppointmentNumber(p.Date, id)

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, appointment_number, doctor_id, patient_id, appointment_date,
			serial_number, approximate_minute, time_overflow, status, patient_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', $9, now(), now())
		RETURNING `+appointmentColumns+`
	`, id, number, p.DoctorID, p.PatientID, p.Date, int32(serialNo), approx, overflow, p.Notes)

	appt, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit booking tx: %w", err)
	}

	return appt, nil
}

func (r *PgRepository) HasActiveAppointment(ctx context.Context, patientID, doctorID uuid.UUID, date time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE patient_id = $1 AND doctor_id = $2 AND appointment_date = $3
			  AND status IN ('pending', 'confirmed')
		)
	`, patientID, doctorID, date).Scan(&exists)
	return exists, err
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)
	return scanAppointment(row)
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM appointments
		WHERE id = $1
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgRepository) ListByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2
		ORDER BY serial_number
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListByDate(ctx context.Context, date time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE appointment_date = $1
		ORDER BY doctor_id, serial_number
	`, date)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListFutureByDoctor(ctx context.Context, doctorID uuid.UUID, after time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND appointment_date > $2
		ORDER BY appointment_date, serial_number
	`, doctorID, after)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY appointment_date DESC, serial_number DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev BookingEvent) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO booking_events (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert booking event: %w", err)
	}
	return nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func minutePtr(v *int32) *schedule.TimeOfDay {
	if v == nil {
		return nil
	}
	t := schedule.TimeOfDay(*v)
	return &t
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// newAppointmentNumber builds the opaque display code, e.g. APT-20260831-4F2A1C.
// The suffix comes from the row's UUID rather than a row count so concurrent
// bookings cannot collide.
func newAppointmentNumber(date time.Time, id uuid.UUID) string {
	return fmt.Sprintf("APT-%s-%s", date.Format("20060102"), strings.ToUpper(hex.EncodeToString(id[:3])))
}

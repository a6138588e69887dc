package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/shs-health/booking-engine/internal/schedule"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// CreateParams carries everything the repository needs to persist a booking.
// The serial number is not part of it: the repository allocates it inside
// the same transaction that inserts the appointment row, so a failed insert
// rolls the counter back.
type CreateParams struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      time.Time
	Notes     string
	Window    *schedule.Window
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// CreateWithSerial allocates the next serial for (doctor, date) and
	// persists the appointment as one atomic unit.
	CreateWithSerial(ctx context.Context, p CreateParams) (*Appointment, error)

	// HasActiveAppointment reports whether the patient already holds a
	// non-terminal appointment with the doctor on the date.
	HasActiveAppointment(ctx context.Context, patientID, doctorID uuid.UUID, date time.Time) (bool, error)

	// UpdateStatus advances status only when the stored value still equals
	// from; ErrAppointmentNotFound when the row or precondition is gone.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// DeleteAppointment removes the row; false when it no longer exists.
	// Serial counters are never touched by deletion.
	DeleteAppointment(ctx context.Context, id uuid.UUID) (bool, error)

	ListByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error)
	ListByDate(ctx context.Context, date time.Time) ([]Appointment, error)
	ListFutureByDoctor(ctx context.Context, doctorID uuid.UUID, after time.Time) ([]Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error)

	InsertEvent(ctx context.Context, ev BookingEvent) error
}

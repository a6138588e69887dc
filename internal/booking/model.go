package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/shs-health/booking-engine/internal/schedule"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// State is the read-time classification of an appointment relative to the
// wall clock. It is derived on every read and never persisted.
type State string

const (
	StateUpcoming State = "upcoming"
	StateMissed   State = "missed"
	StateNoTime   State = "no_time"
)

type Doctor struct {
	ID                uuid.UUID
	Name              string
	Specialty         *string
	AcceptingPatients bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Appointment struct {
	ID                uuid.UUID
	AppointmentNumber string
	DoctorID          uuid.UUID
	PatientID         uuid.UUID
	Date              time.Time // calendar date, midnight in server time
	SerialNumber      int
	ApproximateTime   *schedule.TimeOfDay
	TimeOverflow      bool
	Status            Status
	PatientNotes      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ClassifiedAppointment pairs an appointment with its read-time state.
type ClassifiedAppointment struct {
	Appointment
	State State
}

// DayView is the doctor's queue for a single date.
type DayView struct {
	Date          time.Time
	Total         int
	UpcomingCount int
	MissedCount   int
	NoTimeCount   int
	Appointments  []ClassifiedAppointment
}

// PatientView splits a patient's appointments for their dashboard.
type PatientView struct {
	Upcoming []Appointment
	Past     []Appointment
}

// CleanupResult summarizes a bulk reaper sweep.
type CleanupResult struct {
	Examined int
	Deleted  int
	Failed   int
}

type BookingEvent struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// DateOnly truncates an instant to its calendar date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

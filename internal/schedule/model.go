package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Window is a doctor's recurring availability interval for one weekday.
// At most one active window may exist per (doctor, weekday).
type Window struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	DayOfWeek time.Weekday
	Start     TimeOfDay
	End       TimeOfDay
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WindowParams carries the doctor-supplied fields for an upsert.
type WindowParams struct {
	DayOfWeek time.Weekday
	Start     TimeOfDay
	End       TimeOfDay
}

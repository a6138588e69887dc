package booking

import (
	"time"

	"github.com/shs-health/booking-engine/internal/schedule"
)

// Classify derives an appointment's transient state from the wall clock.
// It is a pure function of (appointment, now): the result changes as "now"
// moves, so it must be recomputed on every read and never cached.
//
//   - NoTime: no approximate time could be derived (doctor had no window).
//   - Missed: a same-day, non-terminal appointment whose estimate has passed.
//   - Upcoming: everything else, including all future-dated appointments.
func Classify(a *Appointment, now time.Time) State {
	if a.ApproximateTime == nil {
		return StateNoTime
	}

	if a.Status == StatusCompleted || a.Status == StatusCancelled {
		return StateUpcoming
	}

	if sameDate(a.Date, now) && *a.ApproximateTime < schedule.ClockTime(now) {
		return StateMissed
	}

	return StateUpcoming
}

// MissedFor reports how long ago a Missed appointment's estimate passed;
// zero for anything not currently missed. The reaper uses this against the
// grace period.
func MissedFor(a *Appointment, now time.Time) time.Duration {
	if Classify(a, now) != StateMissed {
		return 0
	}
	return time.Duration(schedule.ClockTime(now)-*a.ApproximateTime) * time.Minute
}

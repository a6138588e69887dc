package booking

import (
	"time"

	"github.com/shs-health/booking-engine/internal/schedule"
)

// SlotDuration is the fixed per-patient service time used to derive
// approximate consultation times from serial numbers.
const SlotDuration = 10 * time.Minute

// Estimate derives the approximate consultation time for a serial number
// within a schedule window: start + (serial-1) * SlotDuration.
//
// ok is false when the doctor has no window that day, meaning the
// appointment has no time. overflow is true when the estimate lands at or
// after the window's end; the raw estimate is still returned so the booking
// is never refused, only flagged for overbooking.
func Estimate(serialNumber int, win *schedule.Window) (t schedule.TimeOfDay, overflow bool, ok bool) {
	if win == nil || serialNumber < 1 {
		return 0, false, false
	}

	t = win.Start.Add(time.Duration(serialNumber-1) * SlotDuration)
	return t, t >= win.End, true
}

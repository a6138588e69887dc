package schedule

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeOfDay is a clock time expressed as minutes since midnight. Overflowed
// appointment estimates may exceed 24h, so values are not wrapped.
type TimeOfDay int

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS" (seconds are discarded).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// ClockTime extracts the time of day from a wall-clock instant.
func ClockTime(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Add shifts the time by a duration, truncated to whole minutes.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return t + TimeOfDay(d/time.Minute)
}

// String renders "HH:MM". Hours past midnight are not wrapped, so an
// overbooked estimate prints as e.g. "24:10".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

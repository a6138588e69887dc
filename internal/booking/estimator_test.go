package booking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shs-health/booking-engine/internal/schedule"
)

func mondayWindow(t *testing.T, start, end string) *schedule.Window {
	t.Helper()
	s, err := schedule.ParseTimeOfDay(start)
	require.NoError(t, err)
	e, err := schedule.ParseTimeOfDay(end)
	require.NoError(t, err)
	return &schedule.Window{
		ID:        uuid.New(),
		DoctorID:  uuid.New(),
		DayOfWeek: time.Monday,
		Start:     s,
		End:       e,
		IsActive:  true,
	}
}

func TestEstimateSerialFiveInMorningWindow(t *testing.T) {
	win := mondayWindow(t, "09:00", "12:00")

	got, overflow, ok := Estimate(5, win)
	require.True(t, ok)
	assert.False(t, overflow)
	assert.Equal(t, "09:40", got.String())
}

func TestEstimateFirstSerialIsWindowStart(t *testing.T) {
	win := mondayWindow(t, "09:00", "12:00")

	got, overflow, ok := Estimate(1, win)
	require.True(t, ok)
	assert.False(t, overflow)
	assert.Equal(t, win.Start, got)
}

func TestEstimateOverflowAtWindowEnd(t *testing.T) {
	win := mondayWindow(t, "09:00", "12:00")

	// 18 slots of 10 minutes fill 09:00-12:00; serial 19 starts at the end.
	got, overflow, ok := Estimate(19, win)
	require.True(t, ok)
	assert.True(t, overflow)
	assert.Equal(t, "12:00", got.String())

	got, overflow, ok = Estimate(18, win)
	require.True(t, ok)
	assert.False(t, overflow)
	assert.Equal(t, "11:50", got.String())
}

func TestEstimatePastMidnightIsNotWrapped(t *testing.T) {
	win := mondayWindow(t, "22:00", "23:00")

	got, overflow, ok := Estimate(14, win)
	require.True(t, ok)
	assert.True(t, overflow)
	assert.Equal(t, "24:10", got.String())
}

func TestEstimateWithoutWindow(t *testing.T) {
	_, _, ok := Estimate(5, nil)
	assert.False(t, ok)
}

func TestEstimateRejectsNonPositiveSerial(t *testing.T) {
	win := mondayWindow(t, "09:00", "12:00")

	_, _, ok := Estimate(0, win)
	assert.False(t, ok)
	_, _, ok = Estimate(-3, win)
	assert.False(t, ok)
}

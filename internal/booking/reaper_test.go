package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteIfMissedWithinGrace(t *testing.T) {
	f := newFixture(t, testWindow("09:00", "12:00"), passLocker{})
	doctorID := f.repo.addDoctor(true)
	appt := f.book(t, doctorID, f.repo.addPatient(), f.now) // estimate 09:00

	// Missed for 5 minutes, grace is 10: untouchable.
	f.now = time.Date(2026, 8, 31, 9, 5, 0, 0, time.UTC)
	err := f.svc.DeleteIfMissed(context.Background(), appt.ID)
	assert.ErrorIs(t, err, ErrNotMissed)

	// Missed for exactly the grace period: still untouchable.
	f.now = time.Date(2026, 8, 31, 9, 10, 0, 0, time.UTC)
	err = f.svc.DeleteIfMissed(context.Background(), appt.ID)
	assert.ErrorIs(t, err, ErrNotMissed)
}

func TestDeleteIfMissedPastGrace(t *testing.T) {
	f := newFixture(t, testWindow("09:00", "12:00"), passLocker{})
	doctorID := f.repo.addDoctor(true)
	appt := f.book(t, doctorID, f.repo.addPatient(), f.now)

	f.now = time.Date(2026, 8, 31, 9, 11, 0, 0, time.UTC)
	require.NoError(t, f.svc.DeleteIfMissed(context.Background(), appt.ID))

	_, err := f.svc.Get(context.Background(), appt.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	assert.Contains(t, f.repo.eventTypes(), EventAppointmentReaped)
}

func TestDeleteIfMissedUpcomingAppointment(t *testing.T) {
	f := newFixture(t, testWindow("09:00", "12:00"), passLocker{})
	doctorID := f.repo.addDoctor(true)

	f.book(t, doctorID, f.repo.addPatient(), f.now)                   // 09:00
	future := f.book(t, doctorID, f.repo.addPatient(), f.now)         // 09:10
	tomorrow := f.book(t, doctorID, f.repo.addPatient(), f.now.AddDate(0, 0, 1))

	f.now = time.Date(2026, 8, 31, 9, 5, 0, 0, time.UTC)
	assert.ErrorIs(t, f.svc.DeleteIfMissed(context.Background(), future.ID), ErrNotMissed)
	assert.ErrorIs(t, f.svc.DeleteIfMissed(context.Background(), tomorrow.ID), ErrNotMissed)
}

func TestDeleteIfMissedNoTimeAppointment(t *testing.T) {
	f := newFixture(t, nil, passLocker{})
	doctorID := f.repo.addDoctor(true)
	appt := f.book(t, doctorID, f.repo.addPatient(), f.now)

	// No estimate means never missed, regardless of the clock.
	f.now = time.Date(2026, 8, 31, 23, 0, 0, 0, time.UTC)
	assert.ErrorIs(t, f.svc.DeleteIfMissed(context.Background(), appt.ID), ErrNotMissed)
}

func TestCleanupMissedSweep(t *testing.T) {
	f := newFixture(t, testWindow("09:00", "12:00"), passLocker{})
	doctorID := f.repo.addDoctor(true)

	missed1 := f.book(t, doctorID, f.repo.addPatient(), f.now) // 09:00
	missed2 := f.book(t, doctorID, f.repo.addPatient(), f.now) // 09:10
	ahead := f.book(t, doctorID, f.repo.addPatient(), f.now)   // 09:20
	tomorrow := f.book(t, doctorID, f.repo.addPatient(), f.now.AddDate(0, 0, 1))

	f.now = time.Date(2026, 8, 31, 9, 21, 0, 0, time.UTC)

	result, err := f.svc.CleanupMissed(context.Background())
	require.NoError(t, err)

	// 09:00 and 09:10 are past grace; 09:20 is missed for 1 minute only.
	assert.Equal(t, 3, result.Examined)
	assert.Equal(t, 2, result.Deleted)
	assert.Equal(t, 0, result.Failed)

	_, err = f.svc.Get(context.Background(), missed1.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	_, err = f.svc.Get(context.Background(), missed2.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	_, err = f.svc.Get(context.Background(), ahead.ID)
	assert.NoError(t, err)
	_, err = f.svc.Get(context.Background(), tomorrow.ID)
	assert.NoError(t, err)
}

func TestCleanupMissedIsIdempotent(t *testing.T) {
	f := newFixture(t, testWindow("09:00", "12:00"), passLocker{})
	doctorID := f.repo.addDoctor(true)
	f.book(t, doctorID, f.repo.addPatient(), f.now)

	f.now = time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	first, err := f.svc.CleanupMissed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Deleted)

	second, err := f.svc.CleanupMissed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Examined)
	assert.Equal(t, 0, second.Deleted)
}

func TestCleanupMissedContinuesPastFailures(t *testing.T) {
	f := newFixture(t, testWindow("09:00", "12:00"), passLocker{})
	doctorID := f.repo.addDoctor(true)

	bad := f.book(t, doctorID, f.repo.addPatient(), f.now)
	good := f.book(t, doctorID, f.repo.addPatient(), f.now)
	f.repo.failDelete[bad.ID] = errors.New("row locked")

	f.now = time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	result, err := f.svc.CleanupMissed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Examined)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 1, result.Failed)

	_, err = f.svc.Get(context.Background(), good.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestCleanupMissedWhenLockHeld(t *testing.T) {
	f := newFixture(t, testWindow("09:00", "12:00"), heldLocker{})

	_, err := f.svc.CleanupMissed(context.Background())
	assert.ErrorIs(t, err, ErrSweepInProgress)
}

func TestCleanupMissedNeverRenumbers(t *testing.T) {
	f := newFixture(t, testWindow("09:00", "12:00"), passLocker{})
	doctorID := f.repo.addDoctor(true)

	f.book(t, doctorID, f.repo.addPatient(), f.now)
	survivor := f.book(t, doctorID, f.repo.addPatient(), f.now) // serial 2, 09:10

	f.now = time.Date(2026, 8, 31, 9, 15, 0, 0, time.UTC)
	_, err := f.svc.CleanupMissed(context.Background())
	require.NoError(t, err)

	got, err := f.svc.Get(context.Background(), survivor.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.SerialNumber)

	// The next booking continues past the reaped serial.
	next := f.book(t, doctorID, f.repo.addPatient(), f.now)
	assert.Equal(t, 3, next.SerialNumber)
}

package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	redisclient "github.com/shs-health/booking-engine/internal/redis"
)

// reapable reports whether an appointment has been Missed for longer than
// the grace period. Classification alone is not enough: a just-missed
// appointment stays untouchable until the grace period passes.
func (s *Service) reapable(a *Appointment) bool {
	now := s.now()
	if Classify(a, now) != StateMissed {
		return false
	}
	return MissedFor(a, now) > s.grace
}

// DeleteIfMissed removes a single appointment only when it is currently
// classified Missed past the grace period. The (doctor, date) serial counter
// is never touched and no other appointment is renumbered; serial gaps are
// accepted.
func (s *Service) DeleteIfMissed(ctx context.Context, id uuid.UUID) error {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return err
	}

	if !s.reapable(appt) {
		return ErrNotMissed
	}

	deleted, err := s.repo.DeleteAppointment(ctx, id)
	if err != nil {
		return fmt.Errorf("reap appointment: %w", err)
	}
	if !deleted {
		// Already gone; a concurrent reap is not an error.
		return nil
	}

	s.metrics.ObserveReaped(1)
	s.logEvent(ctx, id, EventAppointmentReaped, map[string]any{
		"serial_number": appt.SerialNumber,
		"reason":        "missed",
	})
	return nil
}

// CleanupMissed sweeps today's appointments and deletes every one that has
// been Missed past the grace period. Candidates are handled independently:
// one failing (for example, completed concurrently) never aborts the rest.
// A Redis lock keeps concurrent sweeps from overlapping.
func (s *Service) CleanupMissed(ctx context.Context) (*CleanupResult, error) {
	today := DateOnly(s.now())
	result := &CleanupResult{}

	err := s.locker.WithLock(ctx, fmt.Sprintf("reaper:%s", today.Format("2006-01-02")), func(lockCtx context.Context) error {
		appts, err := s.repo.ListByDate(lockCtx, today)
		if err != nil {
			return fmt.Errorf("list sweep candidates: %w", err)
		}

		for i := range appts {
			a := appts[i]
			result.Examined++
			if !s.reapable(&a) {
				continue
			}

			deleted, err := s.repo.DeleteAppointment(lockCtx, a.ID)
			if err != nil {
				s.log.Error().Err(err).Str("appointment_id", a.ID.String()).Msg("reap during sweep")
				result.Failed++
				continue
			}
			if !deleted {
				continue
			}

			result.Deleted++
			s.logEvent(lockCtx, a.ID, EventAppointmentReaped, map[string]any{
				"serial_number": a.SerialNumber,
				"reason":        "sweep",
			})
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSweepInProgress
		}
		return nil, err
	}

	s.metrics.ObserveReaped(result.Deleted)
	s.log.Info().
		Int("examined", result.Examined).
		Int("deleted", result.Deleted).
		Int("failed", result.Failed).
		Msg("missed-appointment sweep complete")

	return result, nil
}

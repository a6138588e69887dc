package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidWindow    = errors.New("window start time must be before end time")
	ErrScheduleConflict = errors.New("an active window already exists for that day")
)

// Registry stores and validates doctors' weekly availability windows.
type Registry struct {
	repo Repository
	log  zerolog.Logger
}

func NewRegistry(repo Repository, log zerolog.Logger) *Registry {
	return &Registry{repo: repo, log: log}
}

// ResolveWindow returns the active window matching the date's weekday, or
// nil when the doctor has no active schedule that day.
func (r *Registry) ResolveWindow(ctx context.Context, doctorID uuid.UUID, date time.Time) (*Window, error) {
	w, err := r.repo.GetActiveWindow(ctx, doctorID, date.Weekday())
	if err != nil {
		if errors.Is(err, ErrWindowNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve window: %w", err)
	}
	return w, nil
}

// GetWindow returns the active window for a weekday; ErrWindowNotFound if
// the doctor has none.
func (r *Registry) GetWindow(ctx context.Context, doctorID uuid.UUID, day time.Weekday) (*Window, error) {
	return r.repo.GetActiveWindow(ctx, doctorID, day)
}

// ListWindows returns every window the doctor has defined, active or not.
func (r *Registry) ListWindows(ctx context.Context, doctorID uuid.UUID) ([]Window, error) {
	return r.repo.ListByDoctor(ctx, doctorID)
}

// UpsertWindow creates or reactivates the doctor's window for a weekday.
// An existing active window is never silently overwritten: the doctor must
// deactivate it first, otherwise ErrScheduleConflict is returned.
func (r *Registry) UpsertWindow(ctx context.Context, doctorID uuid.UUID, p WindowParams) (*Window, error) {
	if p.DayOfWeek < time.Sunday || p.DayOfWeek > time.Saturday {
		return nil, fmt.Errorf("%w: day_of_week %d", ErrInvalidWindow, p.DayOfWeek)
	}
	if p.Start >= p.End {
		return nil, ErrInvalidWindow
	}

	existing, err := r.repo.GetWindow(ctx, doctorID, p.DayOfWeek)
	if err != nil && !errors.Is(err, ErrWindowNotFound) {
		return nil, fmt.Errorf("load window: %w", err)
	}

	if existing != nil && existing.IsActive {
		return nil, ErrScheduleConflict
	}

	now := time.Now()

	if existing != nil {
		existing.Start = p.Start
		existing.End = p.End
		existing.IsActive = true
		existing.UpdatedAt = now
		if err := r.repo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("reactivate window: %w", err)
		}
		r.log.Info().
			Str("doctor_id", doctorID.String()).
			Int("day_of_week", int(p.DayOfWeek)).
			Msg("schedule window reactivated")
		return existing, nil
	}

	w := &Window{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		DayOfWeek: p.DayOfWeek,
		Start:     p.Start,
		End:       p.End,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.repo.Insert(ctx, w); err != nil {
		return nil, fmt.Errorf("insert window: %w", err)
	}

	r.log.Info().
		Str("doctor_id", doctorID.String()).
		Int("day_of_week", int(p.DayOfWeek)).
		Str("start", p.Start.String()).
		Str("end", p.End.String()).
		Msg("schedule window created")

	return w, nil
}

// DeactivateWindow is idempotent: deactivating a weekday with no window is
// not an error.
func (r *Registry) DeactivateWindow(ctx context.Context, doctorID uuid.UUID, day time.Weekday) error {
	if err := r.repo.Deactivate(ctx, doctorID, day); err != nil {
		return fmt.Errorf("deactivate window: %w", err)
	}
	return nil
}

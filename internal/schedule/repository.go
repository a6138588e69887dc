package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrWindowNotFound = errors.New("schedule window not found")

// Repository contains all DB interactions needed by the registry.
type Repository interface {
	// GetWindow returns the window for (doctor, weekday) regardless of its
	// active flag; ErrWindowNotFound if none exists.
	GetWindow(ctx context.Context, doctorID uuid.UUID, day time.Weekday) (*Window, error)
	GetActiveWindow(ctx context.Context, doctorID uuid.UUID, day time.Weekday) (*Window, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Window, error)

	Insert(ctx context.Context, w *Window) error
	Update(ctx context.Context, w *Window) error
	Deactivate(ctx context.Context, doctorID uuid.UUID, day time.Weekday) error
}

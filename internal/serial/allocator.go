// Package serial issues race-free, strictly increasing serial numbers scoped
// to a (doctor, date) pair. The counter behind a pair is a keyed atomic cell:
// allocation is an optimistic read/compare-and-swap cycle with a bounded,
// randomly backed-off retry loop. Counters are never reset or decremented, so
// a serial handed to a patient is never reassigned after a cancellation.
package serial

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// ErrAllocationConflict is returned once the retry budget is exhausted under
// contention. Callers may resubmit; the allocator never blocks unboundedly.
var ErrAllocationConflict = errors.New("serial allocation conflict: retry budget exhausted")

// Counters is the keyed atomic cell store backing the allocator.
type Counters interface {
	// Current returns the last issued serial for the pair; found is false
	// when no counter row exists yet.
	Current(ctx context.Context, doctorID uuid.UUID, date time.Time) (current int, found bool, err error)

	// Init attempts to create the counter with serial 1 already issued.
	// Returns false when another caller created it first.
	Init(ctx context.Context, doctorID uuid.UUID, date time.Time) (claimed bool, err error)

	// CompareAndSwap advances the counter from current to next only if the
	// stored value is still current.
	CompareAndSwap(ctx context.Context, doctorID uuid.UUID, date time.Time, current, next int) (swapped bool, err error)
}

type Allocator struct {
	MaxAttempts int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
}

// NewAllocator returns an allocator with the default retry budget:
// 5 attempts with randomized backoff between 5ms and 50ms.
func NewAllocator() *Allocator {
	return &Allocator{
		MaxAttempts: 5,
		BackoffMin:  5 * time.Millisecond,
		BackoffMax:  50 * time.Millisecond,
	}
}

// Allocate issues the next serial for (doctorID, date). Two concurrent
// callers never receive the same value, and values observed by successive
// successful calls strictly increase.
func (a *Allocator) Allocate(ctx context.Context, counters Counters, doctorID uuid.UUID, date time.Time) (int, error) {
	for attempt := 0; attempt < a.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := a.backoff(ctx); err != nil {
				return 0, err
			}
		}

		current, found, err := counters.Current(ctx, doctorID, date)
		if err != nil {
			return 0, fmt.Errorf("read serial counter: %w", err)
		}

		if !found {
			claimed, err := counters.Init(ctx, doctorID, date)
			if err != nil {
				return 0, fmt.Errorf("init serial counter: %w", err)
			}
			if claimed {
				return 1, nil
			}
			// Lost the init race; re-read and swap on the next attempt.
			continue
		}

		next := current + 1
		swapped, err := counters.CompareAndSwap(ctx, doctorID, date, current, next)
		if err != nil {
			return 0, fmt.Errorf("advance serial counter: %w", err)
		}
		if swapped {
			return next, nil
		}
	}

	return 0, ErrAllocationConflict
}

func (a *Allocator) backoff(ctx context.Context) error {
	d := a.BackoffMin
	if a.BackoffMax > a.BackoffMin {
		d += time.Duration(rand.Int63n(int64(a.BackoffMax - a.BackoffMin)))
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

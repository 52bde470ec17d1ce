package highlight

import (
	"context"
	"time"
)

// Timer is an armed delayed callback. Stop reports whether the callback was
// prevented from running.
type Timer interface {
	Stop() bool
}

// Scheduler abstracts timers and settle delays so tests can drive the
// coordinator's state machine step-by-step without real time.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
	Sleep(ctx context.Context, d time.Duration)
}

type realScheduler struct{}

// NewScheduler returns a Scheduler backed by the runtime timers.
func NewScheduler() Scheduler {
	return realScheduler{}
}

func (realScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

func (realScheduler) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

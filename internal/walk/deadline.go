package lstree

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// TimeoutError is delivered by a guarded call whose deadline elapsed before
// the underlying operation responded.
type TimeoutError struct {
	Op string // Message identifying the operation, e.g. "os.stat: timeout - /tmp/a"
}

func (e *TimeoutError) Error() string { return e.Op }

// Timeout reports true so callers can detect timeouts through a net.Error-style check.
func (e *TimeoutError) Timeout() bool { return true }

// IsTimeout reports whether err is, or wraps, a *TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// Guard wraps done so that it receives exactly one outcome.
//
// A timer for d starts immediately. If the returned function is called before
// the timer fires, the timer is stopped and done receives the real outcome.
// Otherwise done receives a *TimeoutError carrying msg and any later call of
// the returned function is dropped. A non-positive d disables the timer.
func Guard[T any](d time.Duration, msg string, done func(T, error)) func(T, error) {
	var delivered atomic.Bool
	var timer *time.Timer

	if d > 0 {
		timer = time.AfterFunc(d, func() {
			if delivered.CompareAndSwap(false, true) {
				var zero T
				done(zero, &TimeoutError{Op: msg})
			}
		})
	}

	return func(v T, err error) {
		if !delivered.CompareAndSwap(false, true) {
			return
		}
		if timer != nil {
			timer.Stop()
		}
		done(v, err)
	}
}

// CallWithDeadline runs op in its own goroutine and returns the first outcome
// among op's result, the deadline d, and cancellation of ctx.
//
// The context handed to op is cancelled once an outcome has been delivered.
// Backends that ignore it keep running in the background and their result is
// discarded.
func CallWithDeadline[T any](ctx context.Context, d time.Duration, msg string, op func(ctx context.Context) (T, error)) (T, error) {
	type outcome struct {
		v   T
		err error
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so the losing side never blocks.
	resultCh := make(chan outcome, 1)
	complete := Guard(d, msg, func(v T, err error) {
		resultCh <- outcome{v: v, err: err}
	})

	go func() {
		v, err := op(opCtx)
		complete(v, err)
	}()

	select {
	case res := <-resultCh:
		return res.v, res.err
	case <-ctx.Done():
		var zero T
		complete(zero, ctx.Err())
		res := <-resultCh
		return res.v, res.err
	}
}

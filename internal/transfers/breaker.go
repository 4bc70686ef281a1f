package transfers

import (
	"errors"
	"fmt"
)

// ErrCircuitOpen is wrapped by FatalError once the foot router fails too
// often
var ErrCircuitOpen = errors.New("foot router circuit open")

// FatalError aborts the whole transfer job. The command exits with a
// distinct status when it sees one.
type FatalError struct {
	Failures int
	Window   int
	Last     error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%d hard failures in last %d walk calls, last: %v", e.Failures, e.Window, e.Last)
}

func (e *FatalError) Unwrap() error {
	return ErrCircuitOpen
}

// Breaker tracks the outcome of the last N router calls. Timeouts and
// low-confidence rejections occupy a slot but are not failures.
type Breaker struct {
	size      int
	threshold int
	window    []bool // true = hard failure
	next      int
	filled    int
	failures  int
}

// NewBreaker creates a breaker that trips at threshold failures among the
// last size outcomes
func NewBreaker(size, threshold int) *Breaker {
	return &Breaker{
		size:      size,
		threshold: threshold,
		window:    make([]bool, size),
	}
}

// Record adds an outcome and returns a *FatalError when the breaker trips
func (b *Breaker) Record(err error) error {
	failed := err != nil && !errors.Is(err, ErrTimeout) && !errors.Is(err, ErrLowConfidence)

	if b.filled == b.size && b.window[b.next] {
		b.failures--
	}
	b.window[b.next] = failed
	if failed {
		b.failures++
	}
	b.next = (b.next + 1) % b.size
	if b.filled < b.size {
		b.filled++
	}

	if b.failures >= b.threshold {
		return &FatalError{Failures: b.failures, Window: b.size, Last: err}
	}
	return nil
}

// Failures returns the hard failures currently in the window
func (b *Breaker) Failures() int {
	return b.failures
}

package mail

import (
	"context"
	"errors"
	"fmt"
)

var ErrAllStrategiesFailed = errors.New("all delivery strategies failed")

// Attempt records one strategy invocation for observability.
type Attempt struct {
	Strategy string
	Err      error
}

// Result reports which strategy delivered the message and what was tried
// before it succeeded.
type Result struct {
	MethodUsed string
	Degraded   bool
	Attempts   []Attempt
}

// Dispatcher tries strategies sequentially in priority order and stops at the
// first success. Ordering matters: later strategies are lower fidelity. This
// is a fallback chain, not a race.
type Dispatcher struct {
	strategies []Strategy
}

func NewDispatcher(strategies ...Strategy) *Dispatcher {
	return &Dispatcher{strategies: strategies}
}

func (d *Dispatcher) Deliver(ctx context.Context, msg Message) (*Result, error) {
	if len(d.strategies) == 0 {
		return nil, fmt.Errorf("%w: no strategies configured", ErrAllStrategiesFailed)
	}

	result := &Result{}
	var lastErr error
	for _, strategy := range d.strategies {
		err := strategy.Send(ctx, msg)
		result.Attempts = append(result.Attempts, Attempt{Strategy: strategy.Name(), Err: err})
		if err == nil {
			result.MethodUsed = strategy.Name()
			result.Degraded = strategy.Degraded()
			return result, nil
		}
		lastErr = err
	}
	return result, fmt.Errorf("%w: %v", ErrAllStrategiesFailed, lastErr)
}

package extract

import (
	"fmt"
	"time"
)

// CostLimitError is returned when the daily running cost has reached the
// configured ceiling. It is checked before any LLM call is issued and is
// the only extraction error that reaches the caller un-degraded: fatal to
// the current call, never retried.
type CostLimitError struct {
	Spent float64
	Limit float64
}

func (e *CostLimitError) Error() string {
	return fmt.Sprintf("daily cost limit exceeded: spent $%.4f of $%.4f", e.Spent, e.Limit)
}

// TimeoutError is returned when a tier's wall-clock ceiling expired before
// the LLM answered. It is distinct from a provider API error so the
// selector can decide between retrying the tier and falling back.
type TimeoutError struct {
	Tier    string
	MaxTime time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("tier %s timed out after %s", e.Tier, e.MaxTime)
}

// AllStrategiesFailedError is returned only when every LLM tier failed and
// the basic extractor is disabled. With the basic extractor enabled (the
// default) this error is unreachable: the basic path is pure local
// computation and never fails.
type AllStrategiesFailedError struct {
	Attempts []string // tier names in the order they were tried
	LastErr  error
}

func (e *AllStrategiesFailedError) Error() string {
	return fmt.Sprintf("all extraction strategies failed (tried %v): %v", e.Attempts, e.LastErr)
}

func (e *AllStrategiesFailedError) Unwrap() error {
	return e.LastErr
}

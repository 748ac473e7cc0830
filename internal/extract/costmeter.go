package extract

import (
	"sync"
	"time"
)

// CostMeter tracks the running LLM spend for the current day. It is the
// only mutable state shared by concurrent extraction calls, so all access
// goes through the mutex. The ceiling is checked before a call is issued;
// the charge lands on completion.
type CostMeter struct {
	mu         sync.Mutex
	dailyLimit float64
	spent      float64
	day        time.Time
	now        func() time.Time
}

// NewCostMeter creates a meter with the given daily USD limit. A limit of 0
// disables the ceiling.
func NewCostMeter(dailyLimit float64) *CostMeter {
	return &CostMeter{
		dailyLimit: dailyLimit,
		now:        time.Now,
	}
}

// Allow reports whether a new LLM call may be issued. It returns a
// *CostLimitError when the day's spend has reached the ceiling.
func (m *CostMeter) Allow() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rolloverLocked()
	if m.dailyLimit > 0 && m.spent >= m.dailyLimit {
		return &CostLimitError{Spent: m.spent, Limit: m.dailyLimit}
	}
	return nil
}

// Charge records the cost of a completed call. Atomic under the mutex so
// concurrent completions never undercount.
func (m *CostMeter) Charge(cost float64) {
	if cost <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rolloverLocked()
	m.spent += cost
}

// Spent returns the running total for the current day.
func (m *CostMeter) Spent() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rolloverLocked()
	return m.spent
}

// Limit returns the configured daily ceiling (0 when disabled).
func (m *CostMeter) Limit() float64 {
	return m.dailyLimit
}

// Rollover resets the running total. The scheduler calls this at midnight;
// the meter also rolls itself over lazily when the calendar day changes.
func (m *CostMeter) Rollover() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spent = 0
	m.day = truncateDay(m.now())
}

func (m *CostMeter) rolloverLocked() {
	today := truncateDay(m.now())
	if !m.day.Equal(today) {
		m.spent = 0
		m.day = today
	}
}

func truncateDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}

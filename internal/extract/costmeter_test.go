package extract

import (
	"errors"
	"testing"
	"time"
)

func TestCostMeterAllowsUnderLimit(t *testing.T) {
	m := NewCostMeter(1.00)
	if err := m.Allow(); err != nil {
		t.Fatalf("fresh meter should allow: %v", err)
	}
	m.Charge(0.50)
	if err := m.Allow(); err != nil {
		t.Fatalf("half-spent meter should allow: %v", err)
	}
	if m.Spent() != 0.50 {
		t.Errorf("Spent() = %v, want 0.50", m.Spent())
	}
}

func TestCostMeterTripsAtLimit(t *testing.T) {
	m := NewCostMeter(1.00)
	m.Charge(0.60)
	m.Charge(0.40)

	err := m.Allow()
	var limitErr *CostLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected CostLimitError, got %v", err)
	}
	if limitErr.Spent != 1.00 || limitErr.Limit != 1.00 {
		t.Errorf("error carries spent=%v limit=%v", limitErr.Spent, limitErr.Limit)
	}
}

func TestCostMeterZeroLimitDisablesCeiling(t *testing.T) {
	m := NewCostMeter(0)
	m.Charge(9999)
	if err := m.Allow(); err != nil {
		t.Errorf("limit 0 must never trip: %v", err)
	}
}

func TestCostMeterIgnoresNonPositiveCharges(t *testing.T) {
	m := NewCostMeter(1.00)
	m.Charge(0)
	m.Charge(-5)
	if m.Spent() != 0 {
		t.Errorf("Spent() = %v, want 0", m.Spent())
	}
}

func TestCostMeterRollsOverAtMidnight(t *testing.T) {
	day1 := time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)
	clock := day1
	m := NewCostMeter(1.00)
	m.now = func() time.Time { return clock }

	m.Charge(1.00)
	if m.Allow() == nil {
		t.Fatal("meter should be tripped before rollover")
	}

	clock = day1.Add(24 * time.Hour)
	if err := m.Allow(); err != nil {
		t.Errorf("new day should reset spend: %v", err)
	}
	if m.Spent() != 0 {
		t.Errorf("Spent() after rollover = %v, want 0", m.Spent())
	}
}

func TestCostMeterManualRollover(t *testing.T) {
	m := NewCostMeter(1.00)
	m.Charge(1.00)
	m.Rollover()
	if m.Spent() != 0 {
		t.Errorf("Spent() after Rollover = %v, want 0", m.Spent())
	}
	if err := m.Allow(); err != nil {
		t.Errorf("rolled-over meter should allow: %v", err)
	}
}

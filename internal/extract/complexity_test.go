package extract

import (
	"strings"
	"testing"
)

func TestScoreComplexityShortPlainText(t *testing.T) {
	c := ScoreComplexity("ok sounds good, see you there")
	if c.Level != ComplexityLow {
		t.Errorf("expected low, got %s (score %d, signals %v)", c.Level, c.Score, c.Signals)
	}
	if c.Score != 0 {
		t.Errorf("expected score 0, got %d", c.Score)
	}
}

func TestScoreComplexityCurrencyAndNames(t *testing.T) {
	c := ScoreComplexity("talked to Mike Johnson about the $15,000 quote")
	if c.Score != 2 {
		t.Errorf("expected score 2 (currency + proper noun), got %d: %v", c.Score, c.Signals)
	}
	if c.Level != ComplexityMedium {
		t.Errorf("expected medium, got %s", c.Level)
	}
}

func TestScoreComplexityDecisionKeyword(t *testing.T) {
	c := ScoreComplexity("the change order was approved this morning")
	found := false
	for _, s := range c.Signals {
		if s == "decision keywords" {
			found = true
		}
	}
	if !found {
		t.Errorf("decision signal missing from %v", c.Signals)
	}
}

func TestScoreComplexityScheduleKeyword(t *testing.T) {
	c := ScoreComplexity("pour is scheduled for tuesday, deadline is tight")
	found := false
	for _, s := range c.Signals {
		if s == "schedule keywords" {
			found = true
		}
	}
	if !found {
		t.Errorf("schedule signal missing from %v", c.Signals)
	}
}

func TestScoreComplexityWordCountBands(t *testing.T) {
	mid := strings.Repeat("word ", 60)
	c := ScoreComplexity(mid)
	if c.Score != 1 {
		t.Errorf("60 words: expected score 1, got %d: %v", c.Score, c.Signals)
	}

	long := strings.Repeat("word ", 120)
	c = ScoreComplexity(long)
	if c.Score != 2 {
		t.Errorf("120 words: expected score 2, got %d: %v", c.Score, c.Signals)
	}
}

func TestScoreComplexityHighStacksSignals(t *testing.T) {
	text := strings.Repeat("filler ", 110) +
		"Mike Johnson approved the $50,000 electrical budget, deadline is Friday"
	c := ScoreComplexity(text)
	if c.Level != ComplexityHigh {
		t.Errorf("expected high, got %s (score %d, signals %v)", c.Level, c.Score, c.Signals)
	}
	if c.Score < 4 {
		t.Errorf("expected score >= 4, got %d", c.Score)
	}
}

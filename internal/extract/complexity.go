// Package extract implements the entity extraction pipeline: complexity
// scoring, tiered strategy selection with timeouts and fallback, response
// parsing and normalization, relationship validation, and the regex-based
// basic extractor every failure path degrades to.
package extract

import (
	"regexp"
	"strings"
)

// Complexity levels produced by ScoreComplexity.
const (
	ComplexityLow    = "low"
	ComplexityMedium = "medium"
	ComplexityHigh   = "high"
)

// Complexity is the scored difficulty of one message. Signals lists the
// positive indicators found, for logging and strategy explanations.
type Complexity struct {
	Score   int
	Level   string
	Signals []string
}

var (
	currencyPattern   = regexp.MustCompile(`\$\s?\d[\d,]*(?:\.\d+)?`)
	properNounPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	decisionPattern   = regexp.MustCompile(`(?i)\b(approved?|rejected?|decided?|agreed?)\b`)
	schedulePattern   = regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday|deadline|next week|tomorrow)\b`)
)

// ScoreComplexity scores a message's extraction difficulty. Each positive
// signal adds to an integer score; word count contributes 2 above 100 words
// and 1 above 50. Score >= 4 is high, >= 2 medium, else low.
func ScoreComplexity(text string) Complexity {
	c := Complexity{}

	words := len(strings.Fields(text))
	switch {
	case words > 100:
		c.Score += 2
		c.Signals = append(c.Signals, "long message")
	case words > 50:
		c.Score++
		c.Signals = append(c.Signals, "medium-length message")
	}

	if currencyPattern.MatchString(text) {
		c.Score++
		c.Signals = append(c.Signals, "currency amounts")
	}
	if properNounPattern.MatchString(text) {
		c.Score++
		c.Signals = append(c.Signals, "proper nouns")
	}
	if decisionPattern.MatchString(text) {
		c.Score++
		c.Signals = append(c.Signals, "decision keywords")
	}
	if schedulePattern.MatchString(text) {
		c.Score++
		c.Signals = append(c.Signals, "schedule keywords")
	}

	switch {
	case c.Score >= 4:
		c.Level = ComplexityHigh
	case c.Score >= 2:
		c.Level = ComplexityMedium
	default:
		c.Level = ComplexityLow
	}
	return c
}

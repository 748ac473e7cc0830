package extract

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mgraessle/grist/pkg/types"
)

// basicStopwords are capitalized words the proper-noun sweep must not
// mistake for names: sentence starters, weekdays, and common message openers.
var basicStopwords = map[string]bool{
	"The": true, "This": true, "That": true, "There": true, "These": true,
	"Those": true, "Hey": true, "Hi": true, "Hello": true, "Thanks": true,
	"Please": true, "Ok": true, "Okay": true, "Yes": true, "No": true,
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true,
	"Friday": true, "Saturday": true, "Sunday": true, "Budget": true,
	"Foundation": true, "We": true, "They": true, "It": true, "If": true,
	"When": true, "What": true, "Also": true, "And": true, "But": true,
}

// BasicExtract is the regex-only extraction path used when every LLM tier
// has failed, and directly when the parser cannot recover any JSON. It is
// pure local computation and never fails; its results carry low confidence
// and are flagged as basic so downstream consumers treat them with
// appropriately lower trust.
//
// Heuristics: the top 3 distinct proper-noun-like tokens (minus stopwords)
// become people, dollar amounts become costs, and the first schedule
// keyword becomes a timeline entity.
func BasicExtract(text string, opts Options) *types.ExtractionResult {
	result := types.NewExtractionResult()
	now := time.Now()

	seen := map[string]bool{}
	for _, match := range properNounPattern.FindAllString(text, -1) {
		first := strings.Fields(match)[0]
		if basicStopwords[first] || seen[match] {
			continue
		}
		seen[match] = true
		result.AddEntity(types.Entity{
			ID:             uuid.NewString(),
			Name:           match,
			Type:           types.EntityTypePerson,
			Category:       types.CategoryForType(types.EntityTypePerson),
			Confidence:     0.4,
			ConversationID: opts.ConversationID,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if len(seen) >= 3 {
			break
		}
	}

	for _, match := range currencyPattern.FindAllString(text, -1) {
		amount := parseDollarAmount(match)
		result.AddEntity(types.Entity{
			ID:       uuid.NewString(),
			Name:     match,
			Type:     types.EntityTypeCost,
			Category: types.CategoryForType(types.EntityTypeCost),
			Attributes: map[string]interface{}{
				"amount":   amount,
				"currency": "USD",
			},
			Confidence:     0.5,
			ConversationID: opts.ConversationID,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	if phrase := schedulePattern.FindString(text); phrase != "" {
		result.AddEntity(types.Entity{
			ID:          uuid.NewString(),
			Description: phrase,
			Type:        types.EntityTypeTimeline,
			Category:    types.CategoryForType(types.EntityTypeTimeline),
			Attributes: map[string]interface{}{
				"date": phrase,
			},
			Confidence:     0.3,
			ConversationID: opts.ConversationID,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	result.Summary = "Basic keyword extraction (no LLM available)"
	result.Metadata = types.ResultMetadata{
		Strategy:          "basic",
		Confidence:        result.MeanConfidence(),
		IsFallback:        true,
		IsBasic:           true,
		CommunicationType: opts.CommunicationType,
		Timestamp:         now,
	}
	return result
}

// parseDollarAmount turns "$25,000.50" into 25000.50. Unparseable input
// yields 0; the raw match is still kept as the entity name.
func parseDollarAmount(s string) float64 {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	amount, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return amount
}

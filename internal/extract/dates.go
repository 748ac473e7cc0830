package extract

import (
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/mgraessle/grist/pkg/types"
)

// dateParser resolves natural-language schedule phrases. Shared and
// immutable after init, safe for concurrent use.
var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// ResolveTimelineDates computes a best-effort "resolved_date" attribute for
// every timeline entity whose schedule phrase parses against the message
// receive time. Resolution failure leaves the attribute absent; this pass
// never errors.
func ResolveTimelineDates(result *types.ExtractionResult, receivedAt time.Time) {
	if result == nil {
		return
	}
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	category := types.CategoryForType(types.EntityTypeTimeline)
	entities := result.Entities[category]
	for i := range entities {
		phrase := timelinePhrase(&entities[i])
		if phrase == "" {
			continue
		}
		r, err := dateParser.Parse(phrase, receivedAt)
		if err != nil || r == nil {
			continue
		}
		if entities[i].Attributes == nil {
			entities[i].Attributes = make(map[string]interface{})
		}
		entities[i].Attributes["resolved_date"] = r.Time.Format("2006-01-02")
	}
}

// timelinePhrase picks the text to parse: the date attribute when present,
// otherwise the entity's description.
func timelinePhrase(e *types.Entity) string {
	if date, ok := e.Attributes["date"].(string); ok && date != "" {
		return date
	}
	return e.DisplayName()
}

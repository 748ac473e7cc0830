package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mgraessle/grist/pkg/types"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	entityStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	autoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	suggestStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	candidateBox   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	degradedBanner = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// renderResult writes an extraction result as a category-grouped listing.
func renderResult(w io.Writer, result *types.ExtractionResult) {
	meta := result.Metadata
	if meta.IsBasic {
		fmt.Fprintln(w, degradedBanner.Render("degraded: regex-only extraction (all LLM strategies failed)"))
	} else if meta.IsFallback {
		fmt.Fprintln(w, warnStyle.Render("fallback: result produced below the selected tier"))
	}

	categories := make([]string, 0, len(result.Entities))
	for category := range result.Entities {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		entities := result.Entities[category]
		if len(entities) == 0 {
			continue
		}
		fmt.Fprintln(w, headerStyle.Render(strings.ToUpper(category)))
		for i := range entities {
			renderEntity(w, &entities[i])
		}
	}

	if len(result.Relationships) > 0 {
		fmt.Fprintln(w, headerStyle.Render("RELATIONSHIPS"))
		for _, rel := range result.Relationships {
			fmt.Fprintf(w, "  %s %s %s %s\n",
				rel.Source, entityStyle.Render(rel.Type), rel.Target,
				dimStyle.Render(fmt.Sprintf("(%.2f)", rel.Confidence)))
		}
	}

	if result.Summary != "" {
		fmt.Fprintf(w, "%s %s\n", headerStyle.Render("SUMMARY"), result.Summary)
	}

	line := fmt.Sprintf("strategy=%s model=%s cost=$%.4f duration=%dms confidence=%.2f",
		meta.Strategy, meta.Model, meta.Cost, meta.DurationMS, meta.Confidence)
	if meta.DroppedEntities > 0 || meta.DroppedRelationships > 0 {
		line += fmt.Sprintf(" dropped=%d/%d", meta.DroppedEntities, meta.DroppedRelationships)
	}
	fmt.Fprintln(w, dimStyle.Render(line))
	for _, warning := range meta.Warnings {
		fmt.Fprintln(w, warnStyle.Render("warning: "+warning))
	}
}

func renderEntity(w io.Writer, e *types.Entity) {
	line := fmt.Sprintf("  %s %s", entityStyle.Render(e.DisplayName()),
		dimStyle.Render(fmt.Sprintf("[%s %.2f]", e.Type, e.Confidence)))
	if e.Description != "" {
		line += " " + e.Description
	}
	fmt.Fprintln(w, line)
	if date, ok := e.Attributes["resolved_date"]; ok {
		fmt.Fprintf(w, "    %s\n", dimStyle.Render(fmt.Sprintf("resolved: %v", date)))
	}
}

// renderCandidate draws one merge candidate with its score breakdown.
func renderCandidate(w io.Writer, c *types.MergeCandidate) {
	label := suggestStyle.Render("SUGGEST")
	if c.MergeType == types.MergeTypeAuto {
		label = autoStyle.Render("AUTO")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  <->  %s\n", label,
		entityStyle.Render(c.Primary.DisplayName()),
		entityStyle.Render(c.Secondary.DisplayName()))
	fmt.Fprintf(&b, "overall %.3f  name %.3f  category %.0f  designation %.0f  merge-confidence %.3f",
		c.Similarity.Overall, c.Similarity.Name, c.Similarity.Category,
		c.Similarity.Designation, c.MergeConfidence)
	for _, reason := range c.Reasons {
		b.WriteString("\n" + dimStyle.Render("- "+reason))
	}
	fmt.Fprintln(w, candidateBox.Render(b.String()))
}

// renderRecord draws one merge history entry.
func renderRecord(w io.Writer, rec *types.MergeRecord) {
	status := ""
	if rec.Undone {
		status = warnStyle.Render(" (undone)")
	}
	fmt.Fprintf(w, "%s  %s%s\n", entityStyle.Render(rec.ID), rec.Timestamp.Format("2006-01-02 15:04:05"), status)
	fmt.Fprintf(w, "  %s + %s -> %s  %s\n",
		rec.PrimaryBefore.DisplayName(), rec.SecondaryBefore.DisplayName(),
		entityStyle.Render(rec.Result.DisplayName()),
		dimStyle.Render(fmt.Sprintf("[%s %.3f]", rec.Type, rec.MergeConfidence)))
}

// Package merge implements duplicate-entity detection and consolidation:
// pairwise similarity scoring, auto/suggest classification, reversible
// merges with an append-only history, and a persisted decided-pairs set
// that keeps scans idempotent.
package merge

import (
	"fmt"
	"strings"

	"github.com/mgraessle/grist/pkg/types"
)

// Similarity weights. Overall is dominated by the name score; category and
// designation agreement contribute bonuses.
const (
	overallNameWeight        = 0.7
	overallCategoryWeight    = 0.2
	overallDesignationWeight = 0.1
)

// Merge-confidence weights, a distinct score from Overall: name similarity
// plus category agreement, document co-occurrence, and an average-confidence
// bonus. Both scores are exposed because thresholds and display consume
// them differently.
const (
	confidenceNameWeight     = 0.6
	confidenceCategoryWeight = 0.2
	confidenceDocumentWeight = 0.1
	confidenceAvgWeight      = 0.1
)

// NameSimilarity computes normalized Levenshtein similarity:
// 1 - editDistance/max(len1, len2). Case-insensitive exact matches score a
// full 1; two empty strings score 0.
func NameSimilarity(a, b string) float64 {
	if strings.EqualFold(a, b) {
		if a == "" {
			return 0
		}
		return 1
	}
	la, lb := strings.ToLower(a), strings.ToLower(b)
	maxLen := len(la)
	if len(lb) > maxLen {
		maxLen = len(lb)
	}
	if maxLen == 0 {
		return 0
	}
	return 1 - float64(editDistance(la, lb))/float64(maxLen)
}

// editDistance is the classic two-row Levenshtein distance over bytes.
func editDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// Compute scores the per-dimension similarity of two entities. Symmetric:
// Compute(a, b) == Compute(b, a).
func Compute(a, b *types.Entity) types.Similarity {
	s := types.Similarity{
		Name: NameSimilarity(a.DisplayName(), b.DisplayName()),
	}
	if a.Category != "" && a.Category == b.Category {
		s.Category = 1
	}
	if a.Designation != "" && a.Designation == b.Designation {
		s.Designation = 1
	}
	s.Overall = overallNameWeight*s.Name +
		overallCategoryWeight*s.Category +
		overallDesignationWeight*s.Designation
	return s
}

// MergeConfidence computes the consolidation confidence for a pair: how
// safe an automatic merge would be, as opposed to how alike the pair looks.
func MergeConfidence(a, b *types.Entity, s types.Similarity) float64 {
	doc := 0.0
	if a.ConversationID != "" && a.ConversationID == b.ConversationID {
		doc = 1
	}
	avg := (a.Confidence + b.Confidence) / 2
	return confidenceNameWeight*s.Name +
		confidenceCategoryWeight*s.Category +
		confidenceDocumentWeight*doc +
		confidenceAvgWeight*avg
}

// Reasons generates the human-readable explanation list for a candidate.
// Purely explanatory: classification never consults it.
func Reasons(a, b *types.Entity, s types.Similarity) []string {
	var reasons []string
	switch {
	case strings.EqualFold(a.DisplayName(), b.DisplayName()):
		reasons = append(reasons, "Identical names")
	case s.Name > 0.8:
		reasons = append(reasons, "Very similar names")
	case s.Name > 0.6:
		reasons = append(reasons, "Similar names")
	}
	if s.Category == 1 {
		reasons = append(reasons, "Same category")
	}
	if s.Designation == 1 {
		reasons = append(reasons, "Same designation")
	}
	if a.ConversationID != "" && a.ConversationID == b.ConversationID {
		reasons = append(reasons, "Same document")
	}
	if shared := sharedRelationships(a, b); shared > 0 {
		reasons = append(reasons, fmt.Sprintf("%d shared relationships", shared))
	}
	return reasons
}

// sharedRelationships counts edges present on both entities (same type and
// target key).
func sharedRelationships(a, b *types.Entity) int {
	if len(a.Relationships) == 0 || len(b.Relationships) == 0 {
		return 0
	}
	keys := make(map[string]bool, len(a.Relationships))
	for i := range a.Relationships {
		rel := &a.Relationships[i]
		keys[rel.Type+"\x00"+rel.TargetKey()] = true
	}
	shared := 0
	for i := range b.Relationships {
		rel := &b.Relationships[i]
		if keys[rel.Type+"\x00"+rel.TargetKey()] {
			shared++
		}
	}
	return shared
}

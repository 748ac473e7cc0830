package merge

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mgraessle/grist/pkg/types"
)

// Config carries the classification thresholds, tuning knobs rather
// than constants of the algorithm.
type Config struct {
	// SuggestThreshold is the minimum Overall similarity for a pair to
	// become a candidate at all. Default 0.6.
	SuggestThreshold float64

	// AutoThreshold is the minimum merge confidence for automatic
	// consolidation. Default 0.8.
	AutoThreshold float64
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		SuggestThreshold: 0.6,
		AutoThreshold:    0.8,
	}
}

// Engine finds duplicate entities and consolidates them. Scans are
// single-threaded by design; callers serialize concurrent merge passes
// against the same entity set.
type Engine struct {
	cfg     Config
	decided DecidedStore
	history HistoryStore
	entropy *rand.Rand
}

// NewEngine creates an engine over the given decided-pairs set and merge
// history. Nil stores get in-memory implementations.
func NewEngine(cfg Config, decided DecidedStore, history HistoryStore) *Engine {
	if cfg.SuggestThreshold == 0 {
		cfg.SuggestThreshold = DefaultConfig().SuggestThreshold
	}
	if cfg.AutoThreshold == 0 {
		cfg.AutoThreshold = DefaultConfig().AutoThreshold
	}
	if decided == nil {
		decided = NewMemoryDecidedStore()
	}
	if history == nil {
		history = NewMemoryHistory()
	}
	return &Engine{
		cfg:     cfg,
		decided: decided,
		history: history,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// History exposes the merge log for the history and undo commands.
func (e *Engine) History() HistoryStore {
	return e.history
}

// FindMergeCandidates scans all pairs and returns those above the suggest
// threshold, each classified auto or suggest. Already-decided pairs are
// skipped, as are malformed entities (no name and no category), which are
// logged and ignored rather than aborting the batch.
//
// Detection is symmetric: the same unordered pair with the same scores
// comes back regardless of input order. The higher-confidence entity is
// designated primary (ties broken by ID) so the choice is deterministic.
func (e *Engine) FindMergeCandidates(entities []*types.Entity) []types.MergeCandidate {
	valid := make([]*types.Entity, 0, len(entities))
	for _, entity := range entities {
		if entity == nil || (entity.DisplayName() == "" && entity.Category == "") {
			log.Printf("merge: skipping malformed entity (id=%q): missing name and category", entityID(entity))
			continue
		}
		valid = append(valid, entity)
	}

	var candidates []types.MergeCandidate
	for i := 0; i < len(valid); i++ {
		for j := i + 1; j < len(valid); j++ {
			a, b := valid[i], valid[j]
			if a.ID == b.ID || e.decided.Has(types.PairKey(a.ID, b.ID)) {
				continue
			}

			sim := Compute(a, b)
			if sim.Overall <= e.cfg.SuggestThreshold {
				continue
			}

			primary, secondary := orderPair(a, b)
			confidence := MergeConfidence(primary, secondary, sim)
			candidate := types.MergeCandidate{
				Primary:         primary,
				Secondary:       secondary,
				Similarity:      sim,
				MergeConfidence: confidence,
				MergeType:       types.MergeTypeSuggest,
				Reasons:         Reasons(primary, secondary, sim),
			}
			if e.autoMergeable(primary, secondary, sim, confidence) {
				candidate.MergeType = types.MergeTypeAuto
			}
			candidates = append(candidates, candidate)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Similarity.Overall > candidates[j].Similarity.Overall
	})
	return candidates
}

// autoMergeable classifies a candidate pair as safe to consolidate without
// review: a case-insensitive exact name with matching category and
// designation, a near-perfect overall score with matching category and
// close confidences, or a merge confidence above the auto threshold.
func (e *Engine) autoMergeable(a, b *types.Entity, sim types.Similarity, confidence float64) bool {
	exactName := sim.Name == 1 && a.DisplayName() != ""
	if exactName && sim.Category == 1 && a.Designation == b.Designation {
		return true
	}
	if sim.Overall > 0.95 && sim.Category == 1 && math.Abs(a.Confidence-b.Confidence) <= 0.1 {
		return true
	}
	return confidence >= e.cfg.AutoThreshold
}

// MergeWith consolidates secondary into primary in place. The primary keeps
// its identity; its confidence becomes the max of the two; the secondary's
// relationships not already present are appended and tag lists are unioned.
// A MergeRecord with both before-snapshots and the result snapshot is
// appended to history, and the pair lands in the decided set.
func (e *Engine) MergeWith(primary, secondary *types.Entity, mergeType string, sim types.Similarity, confidence float64, reasons []string) (types.MergeRecord, error) {
	if primary == nil || secondary == nil {
		return types.MergeRecord{}, fmt.Errorf("merge: nil entity")
	}
	if primary.ID == secondary.ID {
		return types.MergeRecord{}, fmt.Errorf("merge: cannot merge entity %s with itself", primary.ID)
	}
	if mergeType != types.MergeTypeAuto && mergeType != types.MergeTypeManual {
		return types.MergeRecord{}, fmt.Errorf("merge: invalid merge type %q", mergeType)
	}

	primaryBefore := primary.Clone()
	secondaryBefore := secondary.Clone()

	if secondary.Confidence > primary.Confidence {
		primary.Confidence = secondary.Confidence
	}
	for _, rel := range secondary.Relationships {
		primary.AddRelationship(rel.Clone())
	}
	primary.Tags = unionStrings(primary.Tags, secondary.Tags)
	primary.Aliases = unionStrings(primary.Aliases, secondary.Aliases)
	if name := secondary.DisplayName(); name != "" && name != primary.DisplayName() {
		primary.Aliases = unionStrings(primary.Aliases, []string{name})
	}
	primary.UpdatedAt = time.Now()

	record := types.MergeRecord{
		ID:              ulid.MustNew(ulid.Timestamp(time.Now()), e.entropy).String(),
		Timestamp:       time.Now(),
		Type:            mergeType,
		PrimaryBefore:   primaryBefore,
		SecondaryBefore: secondaryBefore,
		Result:          primary.Clone(),
		Similarity:      sim,
		MergeConfidence: confidence,
		Reasons:         reasons,
	}
	if err := e.history.Append(record); err != nil {
		return types.MergeRecord{}, fmt.Errorf("merge: append history: %w", err)
	}

	state := types.PairAutoMerged
	if mergeType == types.MergeTypeManual {
		state = types.PairManuallyMerged
	}
	if err := e.decided.Add(types.PairKey(primary.ID, secondary.ID), state); err != nil {
		return types.MergeRecord{}, fmt.Errorf("merge: record decision: %w", err)
	}

	return record, nil
}

// Reject records a terminal rejection for a suggested pair so it is not
// re-suggested in later scans. Postponing is the absence of a decision: a
// postponed pair simply returns to the pool next scan.
func (e *Engine) Reject(candidate types.MergeCandidate) error {
	return e.decided.Add(candidate.PairKey(), types.PairRejected)
}

// PerformAutoMerges scans the working set, applies every auto-mergeable
// candidate, and returns the surviving entities, the merges performed, and
// the remaining suggestions. Idempotent: a second run over the same data
// performs zero merges, because every merged pair is in the decided set and
// every consumed secondary has left the working set.
func (e *Engine) PerformAutoMerges(entities []*types.Entity) (*types.MergeOutcome, error) {
	outcome := &types.MergeOutcome{}
	consumed := make(map[string]bool)

	candidates := e.FindMergeCandidates(entities)
	for _, candidate := range candidates {
		if consumed[candidate.Primary.ID] || consumed[candidate.Secondary.ID] {
			// One side was already absorbed this pass; the pair will be
			// re-evaluated against the merged entity on the next scan.
			continue
		}
		if candidate.MergeType != types.MergeTypeAuto {
			outcome.Suggestions = append(outcome.Suggestions, candidate)
			continue
		}

		record, err := e.MergeWith(candidate.Primary, candidate.Secondary, types.MergeTypeAuto, candidate.Similarity, candidate.MergeConfidence, candidate.Reasons)
		if err != nil {
			log.Printf("merge: auto-merge of %q and %q failed: %v", candidate.Primary.DisplayName(), candidate.Secondary.DisplayName(), err)
			continue
		}
		consumed[candidate.Secondary.ID] = true
		outcome.Merges = append(outcome.Merges, record)
	}

	for _, entity := range entities {
		if entity != nil && !consumed[entity.ID] {
			outcome.Entities = append(outcome.Entities, entity)
		}
	}
	return outcome, nil
}

// UndoMerge flags a merge record as undone and clears the pair's decision
// so a future scan may re-detect it. The undo is best-effort and
// single-level: the returned record carries the snapshots the caller needs
// to restore the secondary into the working set, but a primary that was
// merged again afterward is not rewound.
func (e *Engine) UndoMerge(mergeID string) (types.MergeRecord, error) {
	record, err := e.history.MarkUndone(mergeID, time.Now())
	if err != nil {
		return types.MergeRecord{}, err
	}
	key := types.PairKey(record.PrimaryBefore.ID, record.SecondaryBefore.ID)
	if err := e.decided.Remove(key); err != nil {
		return types.MergeRecord{}, fmt.Errorf("merge: clear decision for %s: %w", key, err)
	}
	return record, nil
}

// orderPair designates the higher-confidence entity as primary, breaking
// ties by ID so the choice is stable across input orderings.
func orderPair(a, b *types.Entity) (primary, secondary *types.Entity) {
	if a.Confidence > b.Confidence {
		return a, b
	}
	if b.Confidence > a.Confidence {
		return b, a
	}
	if a.ID <= b.ID {
		return a, b
	}
	return b, a
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := append([]string(nil), a...)
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func entityID(e *types.Entity) string {
	if e == nil {
		return ""
	}
	return e.ID
}

package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/mgraessle/grist/internal/notify"
	"github.com/mgraessle/grist/pkg/types"
)

// loadEntities pulls every active entity into the merge engine's working
// set.
func loadEntities(ctx context.Context, stores *Stores) ([]*types.Entity, error) {
	records, err := stores.Entities.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	entities := make([]*types.Entity, 0, len(records))
	for i := range records {
		e := records[i].Entity
		entities = append(entities, &e)
	}
	return entities, nil
}

// persistMerge writes one consolidation back: the merged primary replaces
// its row, the secondary is tombstoned.
func persistMerge(ctx context.Context, stores *Stores, rec types.MergeRecord) error {
	result := rec.Result
	if err := stores.Entities.Update(ctx, &result); err != nil {
		return fmt.Errorf("persist merged entity %s: %w", result.ID, err)
	}
	if err := stores.Entities.Delete(ctx, rec.SecondaryBefore.ID); err != nil {
		return fmt.Errorf("remove merged secondary %s: %w", rec.SecondaryBefore.ID, err)
	}
	return nil
}

// persistUndo restores both pre-merge snapshots. The secondary was
// tombstoned by the merge; re-storing it revives the row.
func persistUndo(ctx context.Context, stores *Stores, rec types.MergeRecord) error {
	primary := rec.PrimaryBefore
	if err := stores.Entities.Update(ctx, &primary); err != nil {
		return fmt.Errorf("restore primary %s: %w", primary.ID, err)
	}
	restore := types.NewExtractionResult()
	restore.AddEntity(rec.SecondaryBefore)
	if _, err := stores.Entities.StoreResult(ctx, rec.SecondaryBefore.ConversationID, restore); err != nil {
		return fmt.Errorf("restore secondary %s: %w", rec.SecondaryBefore.ID, err)
	}
	return nil
}

func newScanCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List duplicate-entity candidates without changing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, err := app.Stores()
			if err != nil {
				return err
			}
			engine, err := app.Engine()
			if err != nil {
				return err
			}

			entities, err := loadEntities(cmd.Context(), stores)
			if err != nil {
				return err
			}
			candidates := engine.FindMergeCandidates(entities)

			if app.format == "json" {
				return printJSON(cmd.OutOrStdout(), candidates)
			}
			if len(candidates) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No merge candidates.")
				return nil
			}
			for i := range candidates {
				renderCandidate(cmd.OutOrStdout(), &candidates[i])
			}
			return nil
		},
	}
}

func newAutoMergeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "automerge",
		Short: "Perform all confident merges; leave the rest as suggestions",
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, err := app.Stores()
			if err != nil {
				return err
			}
			engine, err := app.Engine()
			if err != nil {
				return err
			}

			entities, err := loadEntities(cmd.Context(), stores)
			if err != nil {
				return err
			}
			outcome, err := engine.PerformAutoMerges(entities)
			if err != nil {
				return err
			}

			notifier := app.Notifier()
			for _, rec := range outcome.Merges {
				if err := persistMerge(cmd.Context(), stores, rec); err != nil {
					return err
				}
				_ = notifier.Notify(notify.EventMergePerformed, rec.Result.ID)
			}
			for _, c := range outcome.Suggestions {
				_ = notifier.Notify(notify.EventMergeSuggested, c.Primary.ID)
			}

			if app.format == "json" {
				return printJSON(cmd.OutOrStdout(), outcome)
			}
			out := cmd.OutOrStdout()
			for i := range outcome.Merges {
				renderRecord(out, &outcome.Merges[i])
			}
			fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf(
				"%d merged automatically, %d awaiting review", len(outcome.Merges), len(outcome.Suggestions))))
			return nil
		},
	}
}

func newReviewCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Review suggested merges interactively",
		Long: `Walk through every suggested merge pair and decide each: merge,
reject, or postpone. Merge and reject are remembered permanently;
postponed pairs return on the next scan.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, err := app.Stores()
			if err != nil {
				return err
			}
			engine, err := app.Engine()
			if err != nil {
				return err
			}

			entities, err := loadEntities(cmd.Context(), stores)
			if err != nil {
				return err
			}
			candidates := engine.FindMergeCandidates(entities)

			var suggestions []types.MergeCandidate
			for _, c := range candidates {
				if c.MergeType == types.MergeTypeSuggest {
					suggestions = append(suggestions, c)
				}
			}
			if len(suggestions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to review.")
				return nil
			}

			notifier := app.Notifier()
			merged, rejected, postponed := 0, 0, 0
			for i := range suggestions {
				c := suggestions[i]
				renderCandidate(cmd.OutOrStdout(), &c)

				decision, err := askDecision(&c)
				if err != nil {
					if err == huh.ErrUserAborted {
						break
					}
					return err
				}

				switch decision {
				case "merge":
					rec, err := engine.MergeWith(c.Primary, c.Secondary, types.MergeTypeManual,
						c.Similarity, c.MergeConfidence, c.Reasons)
					if err != nil {
						return err
					}
					if err := persistMerge(cmd.Context(), stores, rec); err != nil {
						return err
					}
					_ = notifier.Notify(notify.EventMergePerformed, rec.Result.ID)
					merged++
				case "reject":
					if err := engine.Reject(c); err != nil {
						return err
					}
					rejected++
				default:
					postponed++
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render(fmt.Sprintf(
				"review done: %d merged, %d rejected, %d postponed", merged, rejected, postponed)))
			return nil
		},
	}
}

// askDecision prompts for one pair's fate.
func askDecision(c *types.MergeCandidate) (string, error) {
	decision := "postpone"
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(fmt.Sprintf("Merge %q into %q?", c.Secondary.DisplayName(), c.Primary.DisplayName())).
			Options(
				huh.NewOption("Merge", "merge"),
				huh.NewOption("Reject (never suggest again)", "reject"),
				huh.NewOption("Postpone", "postpone"),
			).
			Value(&decision),
	))
	if err := form.Run(); err != nil {
		return "", err
	}
	return decision, nil
}

func newUndoCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "undo <merge-id>",
		Short: "Undo one merge, restoring both entities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, err := app.Stores()
			if err != nil {
				return err
			}
			engine, err := app.Engine()
			if err != nil {
				return err
			}

			rec, err := engine.UndoMerge(args[0])
			if err != nil {
				return err
			}
			if err := persistUndo(cmd.Context(), stores, rec); err != nil {
				return err
			}
			_ = app.Notifier().Notify(notify.EventMergeUndone, rec.PrimaryBefore.ID)

			if app.format == "json" {
				return printJSON(cmd.OutOrStdout(), rec)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Undid merge %s: restored %q and %q\n",
				rec.ID, rec.PrimaryBefore.DisplayName(), rec.SecondaryBefore.DisplayName())
			return nil
		},
	}
}

func newHistoryCmd(app *App) *cobra.Command {
	var includeUndone bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the merge log",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := app.Engine()
			if err != nil {
				return err
			}
			records, err := engine.History().List()
			if err != nil {
				return err
			}
			if !includeUndone {
				kept := records[:0]
				for _, rec := range records {
					if !rec.Undone {
						kept = append(kept, rec)
					}
				}
				records = kept
			}

			if app.format == "json" {
				return printJSON(cmd.OutOrStdout(), records)
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No merges recorded.")
				return nil
			}
			for i := range records {
				renderRecord(cmd.OutOrStdout(), &records[i])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&includeUndone, "all", false, "include undone merges")
	return cmd
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mgraessle/grist/internal/extract"
	"github.com/mgraessle/grist/internal/ingest"
	"github.com/mgraessle/grist/internal/notify"
)

func newBatchCmd(app *App) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Extract entities from every message file in a directory",
		Long: `Read every .txt, .md, and .json file in the directory and extract
entities from each, running a few messages concurrently with a cooling
pause between windows. Per-message failures are reported and skipped;
the batch always completes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			messages, readErrs := ingest.ReadDir(args[0])
			for _, err := range readErrs {
				fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("skipped: "+err.Error()))
			}
			if len(messages) == 0 {
				return fmt.Errorf("no message files in %s", args[0])
			}

			pipeline, err := app.Pipeline(cmd.Context())
			if err != nil {
				return err
			}

			batch := extract.NewBatchExtractor(pipeline, extract.BatchConfig{
				WindowSize:   app.cfg.Extraction.BatchWindowSize,
				CoolingDelay: app.cfg.Extraction.BatchCoolingDelay,
			})
			items, err := batch.Run(cmd.Context(), messages)
			if err != nil {
				return err
			}

			stores, err := app.Stores()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			succeeded, failed := 0, 0
			for _, item := range items {
				if item.Err != nil {
					failed++
					fmt.Fprintln(out, warnStyle.Render(
						fmt.Sprintf("%s: %v", item.Message.ID, item.Err)))
					continue
				}
				succeeded++
				if !dryRun {
					if _, err := stores.Entities.StoreResult(cmd.Context(), item.Message.ID, item.Result); err != nil {
						return fmt.Errorf("store %s: %w", item.Message.ID, err)
					}
					_ = app.Notifier().Notify(notify.EventExtractionComplete, item.Message.ID)
				}
				if app.format == "json" {
					if err := printJSON(out, item.Result); err != nil {
						return err
					}
				} else {
					fmt.Fprintln(out, headerStyle.Render("== "+item.Message.ID))
					renderResult(out, item.Result)
				}
			}

			fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf(
				"batch complete: %d extracted, %d failed, spent $%.4f today",
				succeeded, failed, pipeline.Meter().Spent())))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print results without storing them")
	return cmd
}

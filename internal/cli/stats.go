package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the entity store",
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, err := app.Stores()
			if err != nil {
				return err
			}
			stats, err := stores.Entities.Stats(cmd.Context())
			if err != nil {
				return err
			}

			if app.format == "json" {
				return printJSON(cmd.OutOrStdout(), stats)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %d\n", headerStyle.Render("Entities:"), stats.EntityCount)
			fmt.Fprintf(out, "%s %d\n", headerStyle.Render("Conversations:"), stats.ConversationCount)
			fmt.Fprintf(out, "%s %d\n", headerStyle.Render("Merges:"), stats.MergeCount)
			if !stats.LastUpdated.IsZero() {
				fmt.Fprintf(out, "%s %s\n", headerStyle.Render("Last updated:"),
					stats.LastUpdated.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newBackupCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a consistent snapshot of the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, err := app.Stores()
			if err != nil {
				return err
			}
			if stores.SQLite == nil {
				return fmt.Errorf("backup is only supported for the sqlite engine; use pg_dump for postgres")
			}
			path, err := stores.SQLite.BackupTimestamped(app.cfg.Storage.BackupPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", path)
			return nil
		},
	}
}

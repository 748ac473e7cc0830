package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgraessle/grist/internal/notify"
)

// newWatchCmd streams daemon events to the terminal. It is the companion
// to a running gristd: extractions and merge activity show up as they
// happen, without polling the database.
func newWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream extraction and merge events as they happen",
		RunE: func(cmd *cobra.Command, args []string) error {
			watcher := notify.NewEventWatcher(app.cfg.Storage.DataPath, func(evt notify.Event) {
				printEvent(app, evt)
			})
			if err := watcher.Start(); err != nil {
				return fmt.Errorf("watch events: %w", err)
			}
			defer watcher.Stop()

			fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("watching for events, ctrl-c to stop"))

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig
			return nil
		},
	}
}

func printEvent(app *App, evt notify.Event) {
	if app.format == "json" {
		data, _ := json.Marshal(evt)
		fmt.Println(string(data))
		return
	}
	at := time.Unix(0, evt.Time).Format("15:04:05")
	label := evt.Type
	switch evt.Type {
	case notify.EventMergePerformed, notify.EventMergeUndone:
		label = autoStyle.Render(evt.Type)
	case notify.EventMergeSuggested:
		label = suggestStyle.Render(evt.Type)
	}
	fmt.Printf("%s  %s  %s\n", dimStyle.Render(at), label, evt.SubjectID)
}

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgraessle/grist/internal/extract"
	"github.com/mgraessle/grist/internal/ingest"
	"github.com/mgraessle/grist/internal/notify"
)

func newExtractCmd(app *App) *cobra.Command {
	var (
		text          string
		commType      string
		forceAccurate bool
		urgent        bool
		dryRun        bool
	)

	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract entities from one communication",
		Long: `Extract entities and relationships from a message. The input is a file
argument, --text, or stdin ("-"). JSON files are treated as message
envelopes; anything else as raw text with the channel inferred from
length.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := resolveMessage(args, text, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if commType != "" {
				msg.CommunicationType = commType
			}

			pipeline, err := app.Pipeline(cmd.Context())
			if err != nil {
				return err
			}

			result, err := pipeline.ExtractEntities(cmd.Context(), msg.Text, extract.Options{
				CommunicationType: msg.CommunicationType,
				Domain:            app.cfg.Extraction.Domain,
				ForceHighAccuracy: forceAccurate,
				Urgent:            urgent,
				ReceivedAt:        msg.ReceivedAt,
				ConversationID:    msg.ID,
			})
			if err != nil {
				return err
			}

			if !dryRun {
				stores, err := app.Stores()
				if err != nil {
					return err
				}
				if _, err := stores.Entities.StoreResult(cmd.Context(), msg.ID, result); err != nil {
					return err
				}
				_ = app.Notifier().Notify(notify.EventExtractionComplete, msg.ID)
			}

			if app.format == "json" {
				return printJSON(cmd.OutOrStdout(), result)
			}
			renderResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&text, "text", "t", "", "message text inline instead of a file")
	cmd.Flags().StringVar(&commType, "type", "", "communication type: sms, email, or document (inferred when empty)")
	cmd.Flags().BoolVar(&forceAccurate, "accurate", false, "pin the accurate tier regardless of complexity")
	cmd.Flags().BoolVar(&urgent, "urgent", false, "pin the fast tier for lowest latency")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the result without storing it")
	return cmd
}

// resolveMessage builds the input message from the argument, the --text
// flag, or stdin.
func resolveMessage(args []string, text string, stdin io.Reader) (ingest.Message, error) {
	if text != "" {
		return ingest.Message{
			ID:                fmt.Sprintf("cli-%d", time.Now().UnixNano()),
			Text:              text,
			CommunicationType: ingest.InferType(text),
			ReceivedAt:        time.Now(),
		}, nil
	}

	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return ingest.Message{}, fmt.Errorf("read stdin: %w", err)
		}
		body := strings.TrimSpace(string(data))
		if body == "" {
			return ingest.Message{}, fmt.Errorf("no input: pass a file, --text, or pipe to stdin")
		}
		return ingest.Message{
			ID:                fmt.Sprintf("cli-%d", time.Now().UnixNano()),
			Text:              body,
			CommunicationType: ingest.InferType(body),
			ReceivedAt:        time.Now(),
		}, nil
	}

	if _, err := os.Stat(args[0]); err != nil {
		return ingest.Message{}, fmt.Errorf("input file: %w", err)
	}
	return ingest.ReadFile(args[0])
}

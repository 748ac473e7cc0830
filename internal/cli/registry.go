package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mgraessle/grist/pkg/types"
)

func newRegistryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect and administer the relationship type registry",
	}
	cmd.AddCommand(newRegistryListCmd(app), newRegistryUnknownCmd(app), newRegistryAdmitCmd(app))
	return cmd
}

func newRegistryListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered relationship types for the active domain",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := app.Pipeline(cmd.Context())
			if err != nil {
				return err
			}
			defs := pipeline.Registry().TypesForDomain(app.cfg.Extraction.Domain)

			if app.format == "json" {
				return printJSON(cmd.OutOrStdout(), defs)
			}
			names := make([]string, 0, len(defs))
			for name := range defs {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n",
					entityStyle.Render(name), dimStyle.Render(defs[name].Description))
			}
			return nil
		},
	}
}

func newRegistryUnknownCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "unknown",
		Short: "List rejected relationship types, most frequent first",
		Long: `Relationship types the LLM proposed but the registry rejected. A type
that keeps appearing is a candidate for admission via "registry admit"
or for a domain pack entry.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := app.Pipeline(cmd.Context())
			if err != nil {
				return err
			}
			stats := pipeline.Registry().UnknownTypes()

			if app.format == "json" {
				return printJSON(cmd.OutOrStdout(), stats)
			}
			if len(stats) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No unknown types recorded.")
				return nil
			}
			for _, stat := range stats {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n",
					entityStyle.Render(stat.Name),
					dimStyle.Render(fmt.Sprintf("rejected %d times, last %s",
						stat.Count, stat.LastSeen.Format("2006-01-02"))))
			}
			return nil
		},
	}
}

func newRegistryAdmitCmd(app *App) *cobra.Command {
	var (
		description string
		domains     []string
		confidence  float64
	)

	cmd := &cobra.Command{
		Use:   "admit <name>",
		Short: "Admit a relationship type into the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := app.Pipeline(cmd.Context())
			if err != nil {
				return err
			}
			err = pipeline.Registry().Admit(cmd.Context(), args[0], types.RelationshipTypeDef{
				Description: description,
				Domains:     domains,
			}, confidence, types.ProvenanceManual)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Admitted %q\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "what the relationship means (required)")
	cmd.Flags().StringSliceVar(&domains, "domains", nil, "domains the type applies to (empty = all)")
	cmd.Flags().Float64Var(&confidence, "confidence", 1.0, "admission confidence")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

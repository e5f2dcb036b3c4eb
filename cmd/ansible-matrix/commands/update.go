package commands

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var updateFlags struct {
	dryRun   bool
	workflow string
}

func init() {
	updateCmd.Flags().BoolVar(&updateFlags.dryRun, "dry-run", true, "Print the matrix without writing the workflow file.")
	updateCmd.Flags().StringVar(&updateFlags.workflow, "workflow", "", "The workflow file to rewrite.")
	rootCmd.AddCommand(updateCmd)
}

var updateCmd = &cobra.Command{
	Use:   "update [--dry-run=false] [--workflow <path/to/workflow.yaml>]",
	Short: "Scrapes the release docs and rewrites the workflow build matrix.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, pcfg, fetcher, err := prepare(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("dry-run") {
			pcfg.DryRun = updateFlags.dryRun
		}
		if cmd.Flags().Changed("workflow") {
			pcfg.WorkflowPath = updateFlags.workflow
		}

		slog.Info(
			"updating workflow matrix",
			"url", cfg.Url,
			"workflow", pcfg.WorkflowPath,
			"dry_run", pcfg.DryRun,
		)
		result, err := execute(cmd.Context(), pcfg, fetcher, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if result.Written {
			slog.Info("workflow matrix updated", "path", pcfg.WorkflowPath, "entries", len(result.Pairs))
		}
		return nil
	},
}

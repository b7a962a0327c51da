package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/octoprompt/octocoder/internal/config"
	"github.com/octoprompt/octocoder/internal/runlog"
)

var runsProjectID string

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect persisted agent-coder runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List run ids for a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := runlog.ListRuns(config.GetRunLogBasePath(), runsProjectID)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		if len(runs) == 0 {
			cmd.Println("No runs recorded.")
			return nil
		}
		for _, id := range runs {
			cmd.Println(id)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <runID>",
	Short: "Print a run's summary and line-log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := config.GetRunLogBasePath()
		runID := args[0]

		rec, err := runlog.ReadSummary(baseDir, runsProjectID, runID)
		if err != nil {
			return fmt.Errorf("read run summary: %w", err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rec); err != nil {
			return err
		}

		if !verbose {
			return nil
		}
		entries, err := runlog.ReadLines(baseDir, runsProjectID, runID)
		if err != nil {
			return fmt.Errorf("read run line-log: %w", err)
		}
		cmd.Println()
		for _, e := range entries {
			cmd.Printf("%s  %-5s  %s\n", e.Timestamp.Format("15:04:05"), e.Level, e.Message)
		}
		return nil
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <runID>",
	Short: "Delete a run's logs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runlog.DeleteRun(config.GetRunLogBasePath(), runsProjectID, args[0]); err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		cmd.Printf("Deleted run %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsDeleteCmd)

	runsCmd.PersistentFlags().StringVar(&runsProjectID, "project", "", "project id (required)")
	_ = runsCmd.MarkPersistentFlagRequired("project")
}

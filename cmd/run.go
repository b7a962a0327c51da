package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/octoprompt/octocoder/internal/agents"
	"github.com/octoprompt/octocoder/internal/logger"
	"github.com/octoprompt/octocoder/models"
	"github.com/octoprompt/octocoder/types"
)

var (
	runProjectID   string
	runSelectPaths []string
	runSummaryText string
)

var runCmd = &cobra.Command{
	Use:   "run \"<request>\"",
	Short: "Run the agent coder once for a coding request",
	Long: `Run the full agent-coder pipeline once: plan the request into file-level
tasks, execute each task, and print the resulting task statuses and changed
files. The run's logs are persisted and can be inspected with 'octocoder runs'.

Examples:
  octocoder run "add input validation to the signup handler" --project my-app
  octocoder run "extract the parser into its own file" --project my-app --select src/parser.go`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runProjectID, "project", "", "project id (required)")
	runCmd.Flags().StringArrayVar(&runSelectPaths, "select", nil, "file path to put in front of the planner (repeatable)")
	runCmd.Flags().StringVar(&runSummaryText, "summary", "", "prose summary of the project for the planner")
	_ = runCmd.MarkFlagRequired("project")

	runCmd.Flags().String("provider", "", "LLM provider (openai, ollama, anthropic, gemini)")
	runCmd.Flags().String("model", "", "Model to use")
	bindLLMFlags(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	logger.SetLastInput(args[0])

	st, err := GetStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	orch, err := newOrchestrator(cmd.Context(), st)
	if err != nil {
		return err
	}

	files, err := st.ListFiles(runProjectID)
	if err != nil {
		return fmt.Errorf("list project files: %w", err)
	}

	selectedIDs, err := resolveSelectedPaths(files, runSelectPaths)
	if err != nil {
		return err
	}

	rc := agents.RunContext{
		ProjectID:       runProjectID,
		UserInput:       args[0],
		ProjectFiles:    files,
		SelectedFileIDs: selectedIDs,
		ProjectSummary:  runSummaryText,
	}

	res, runErr := orch.Run(cmd.Context(), rc)
	if runErr != nil {
		var ce *types.CoderError
		if errors.As(runErr, &ce) {
			fmt.Fprintf(os.Stderr, "run failed (%s): %s\n", ce.Code, ce.Message)
		}
		return runErr
	}

	fmt.Printf("Run %s finished: %s\n\n", res.RunID, res.Log.FinalStatus)
	if res.Plan != nil && len(res.Plan.Tasks) > 0 {
		fmt.Println("Tasks:")
		for _, task := range res.Plan.Tasks {
			fmt.Printf("  [%-11s] %s  (%s)\n", task.Status, task.Title, task.TargetFilePath)
		}
		fmt.Println()
	}
	if len(res.UpdatedFiles) == 0 {
		fmt.Println("No files changed.")
		return nil
	}
	fmt.Println("Changed files:")
	for _, f := range res.UpdatedFiles {
		fmt.Printf("  %s (%d bytes)\n", f.Path, f.Size)
	}
	fmt.Printf("\nInspect with: octocoder runs show %s --project %s\n", res.RunID, runProjectID)
	return nil
}

// resolveSelectedPaths maps --select paths onto file ids. Unknown paths are an
// error rather than silently dropped.
func resolveSelectedPaths(files []models.ProjectFile, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	byPath := make(map[string]string, len(files))
	for _, f := range files {
		byPath[models.NormalizePath(f.Path)] = f.ID
	}

	var ids []string
	var missing []string
	for _, p := range paths {
		if id, ok := byPath[models.NormalizePath(p)]; ok {
			ids = append(ids, id)
		} else {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("selected paths not found in project: %s", strings.Join(missing, ", "))
	}
	return ids, nil
}

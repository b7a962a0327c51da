package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/octoprompt/octocoder/internal/agents"
	"github.com/octoprompt/octocoder/internal/coder"
	"github.com/octoprompt/octocoder/internal/config"
	"github.com/octoprompt/octocoder/internal/llm"
	"github.com/octoprompt/octocoder/internal/logger"
	"github.com/octoprompt/octocoder/store"
)

var (
	// cfgFile is the path to the configuration file.
	cfgFile string
	// verbose enables verbose output.
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "octocoder",
	Short: "OctoCoder runs LLM-planned, file-by-file code changes over a project.",
	Long: `OctoCoder takes a coding request, asks an LLM for a file-level task plan,
executes each task by rewriting one file at a time, and records every run
as a JSONL progress log plus a JSON summary for later inspection.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetBasePath(config.GetProjectRootDir())
		logger.SetCommand(cmd.Name())
	},
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			_ = cmd.Help()
			os.Exit(0)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(InitConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./.octocoder/.octocoder.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// bindLLMFlags maps a command's LLM flags onto their viper keys so flag
// values win over config-file and env values.
func bindLLMFlags(cmd *cobra.Command) {
	if f := cmd.Flags().Lookup("provider"); f != nil {
		_ = viper.BindPFlag("llm.provider", f)
	}
	if f := cmd.Flags().Lookup("model"); f != nil {
		_ = viper.BindPFlag("llm.model", f)
	}
}

// GetStore initializes and returns the project-file store.
func GetStore() (store.ProjectFileStore, error) {
	s := store.NewFileProjectStore()

	dataFilePath := config.GetDataFilePath()
	err := s.Initialize(map[string]string{
		"dataFile":       dataFilePath,
		"dataFileFormat": viper.GetString("data.format"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store at %s: %w", dataFilePath, err)
	}
	return s, nil
}

// newOrchestrator builds the full pipeline from the resolved configuration.
func newOrchestrator(ctx context.Context, st store.ProjectFileStore) (*coder.Orchestrator, error) {
	llmCfg, err := config.LoadLLMConfig()
	if err != nil {
		return nil, fmt.Errorf("configure LLM: %w", err)
	}

	chatModel, err := llm.NewChatModel(ctx, llmCfg)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}

	templatesDir := config.GetTemplatesDir()
	planner := agents.NewPlanningAgent(chatModel, templatesDir)
	rewriter := agents.NewFileRewriteAgent(chatModel, templatesDir)

	return coder.NewOrchestrator(planner, rewriter, st, config.GetRunLogBasePath()), nil
}

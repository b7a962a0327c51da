package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/octoprompt/octocoder/internal/config"
	"github.com/octoprompt/octocoder/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the agent-coder HTTP API",
	Long: `Start the HTTP API exposing the agent-coder pipeline:

  POST   /api/projects/{projectID}/agent-coder                 run the pipeline
  GET    /api/projects/{projectID}/agent-coder/runs            list runs
  GET    /api/projects/{projectID}/agent-coder/runs/{id}/logs  run line-log
  GET    /api/projects/{projectID}/agent-coder/runs/{id}/data  run summary
  DELETE /api/projects/{projectID}/agent-coder/runs/{id}       delete a run
  POST   /api/projects/{projectID}/agent-coder/runs/{id}/confirm  write files to disk
  GET    /api/projects/{projectID}/files                       list file records
  GET    /api/projects/{projectID}/files/{fileID}              one file record
  DELETE /api/projects/{projectID}/files/{fileID}              delete a file record`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 3579, "API server port")
	serveCmd.Flags().String("provider", "", "LLM provider (openai, ollama, anthropic, gemini)")
	serveCmd.Flags().String("model", "", "Model to use")
	bindLLMFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	st, err := GetStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	orch, err := newOrchestrator(cmd.Context(), st)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	errChan := make(chan error, 1)

	srv := server.New(servePort, orch, st, config.GetRunLogBasePath(), cwd)
	srv.Start(&wg, errChan)

	fmt.Printf("octocoder API listening on http://localhost:%d\n", servePort)
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		fmt.Printf("\nReceived %v, shutting down...\n", sig)
	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "server shutdown error: %v\n", err)
	}

	wg.Wait()
	return nil
}

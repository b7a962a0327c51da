// Package server exposes the agent-coder orchestrator over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/octoprompt/octocoder/internal/agents"
	"github.com/octoprompt/octocoder/internal/coder"
	"github.com/octoprompt/octocoder/store"
	"github.com/octoprompt/octocoder/types"
)

// Runner abstracts the orchestrator so handlers can be tested against a fake.
type Runner interface {
	Run(ctx context.Context, rc agents.RunContext) (*coder.RunResult, error)
}

type Server struct {
	runner     Runner
	store      store.ProjectFileStore
	runLogDir  string
	projectDir string
	port       int
	server     *http.Server
}

// New builds the API server. runLogDir is the run-log root, projectDir the
// directory confirm writes rewritten files into.
func New(port int, runner Runner, st store.ProjectFileStore, runLogDir, projectDir string) *Server {
	s := &Server{
		runner:     runner,
		store:      st,
		runLogDir:  runLogDir,
		projectDir: projectDir,
		port:       port,
	}

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.registerRoutes(),
	}

	return s
}

func (s *Server) Start(wg *sync.WaitGroup, errChan chan<- error) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func writeAPIJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(apiEnvelope{Success: true, Data: data})
}

// writeAPIError maps the error taxonomy onto HTTP statuses: client-side plan
// problems are 400s, everything else is a 500.
func writeAPIError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := apiError{Code: types.CodeInternal, Message: err.Error()}

	var ce *types.CoderError
	if errors.As(err, &ce) {
		body.Code = ce.Code
		body.Details = ce.Details
		switch ce.Code {
		case types.CodeInvalidTask, types.CodePlanInvalid:
			status = http.StatusBadRequest
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiEnvelope{Success: false, Error: &body})
}

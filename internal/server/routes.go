package server

import "net/http"

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/projects/{projectID}/agent-coder", s.handleAgentCoder)
	mux.HandleFunc("GET /api/projects/{projectID}/agent-coder/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/projects/{projectID}/agent-coder/runs/{runID}/logs", s.handleRunLogs)
	mux.HandleFunc("GET /api/projects/{projectID}/agent-coder/runs/{runID}/data", s.handleRunData)
	mux.HandleFunc("DELETE /api/projects/{projectID}/agent-coder/runs/{runID}", s.handleDeleteRun)
	mux.HandleFunc("POST /api/projects/{projectID}/agent-coder/runs/{runID}/confirm", s.handleConfirmRun)

	mux.HandleFunc("GET /api/projects/{projectID}/files", s.handleListFiles)
	mux.HandleFunc("GET /api/projects/{projectID}/files/{fileID}", s.handleGetFile)
	mux.HandleFunc("DELETE /api/projects/{projectID}/files/{fileID}", s.handleDeleteFile)

	return corsMiddleware(mux)
}

package server

import "github.com/octoprompt/octocoder/models"

// apiEnvelope wraps every response body.
type apiEnvelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

// apiError is the serialized failure taxonomy entry.
type apiError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// AgentCoderRequest is the payload for POST /api/projects/{projectID}/agent-coder.
type AgentCoderRequest struct {
	UserInput       string   `json:"userInput"`
	SelectedFileIDs []string `json:"selectedFileIds"`
	ProjectSummary  string   `json:"projectSummary,omitempty"`
	PriorPrompts    []string `json:"priorPrompts,omitempty"`
}

// AgentCoderResponse reports one synchronous run.
type AgentCoderResponse struct {
	RunID        string               `json:"runId"`
	TaskPlan     *models.TaskPlan     `json:"taskPlan"`
	UpdatedFiles []models.ProjectFile `json:"updatedFiles"`
}

// ConfirmResponse reports which run files the confirm endpoint actually wrote
// to disk and which already matched by checksum.
type ConfirmResponse struct {
	WrittenFiles []string `json:"writtenFiles"`
	SkippedFiles []string `json:"skippedFiles"`
}

package models

import "time"

type DeploymentRequest struct {
	Artifact string `json:"artifact,omitempty"`
	Version  string `json:"version"`
}

type DeploymentResponse struct {
	Status  string `json:"status"`
	RunID   string `json:"run_id"`
	Version string `json:"version"`
	Message string `json:"message,omitempty"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	RunID   string `json:"run_id"`
	Version string `json:"version"`
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message,omitempty"`
}

// Deployment is one recorded deployment run as stored by deployd.
type Deployment struct {
	ID        int       `json:"id"`
	RunID     string    `json:"run_id"`
	Artifact  string    `json:"artifact"`
	Version   string    `json:"version"`
	Status    string    `json:"status"`
	Stage     string    `json:"stage,omitempty"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Deployment statuses recorded by deployd.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

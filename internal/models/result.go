package models

import "time"

// Stage names used in failure results and stage-tagged errors.
const (
	StageBuild   = "build"
	StageAuth    = "auth"
	StagePush    = "push"
	StageConnect = "connect"
	StagePull    = "pull"
	StageStop    = "stop"
	StageRemove  = "remove"
	StageStart   = "start"
	StageVerify  = "verify"
)

// StageError is implemented by the typed errors returned from the
// build, publish and remote-apply components so the orchestrator can
// tag the result with the stage that failed.
type StageError interface {
	error
	FailedStage() string
}

// DeploymentResult is the terminal outcome of one deployment run.
// Produced exactly once per run and never mutated afterwards.
type DeploymentResult struct {
	RunID      string    `json:"run_id"`
	Succeeded  bool      `json:"succeeded"`
	Stage      string    `json:"stage,omitempty"`
	Message    string    `json:"message,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

func SucceededResult(runID string) DeploymentResult {
	return DeploymentResult{
		RunID:      runID,
		Succeeded:  true,
		FinishedAt: time.Now().UTC(),
	}
}

func FailedResult(runID, stage string, cause error) DeploymentResult {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return DeploymentResult{
		RunID:      runID,
		Succeeded:  false,
		Stage:      stage,
		Message:    msg,
		FinishedAt: time.Now().UTC(),
	}
}

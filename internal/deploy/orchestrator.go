// Package deploy sequences one deployment run: build the artifact,
// publish it to the registry, apply it on the target host, and report
// a single terminal result. Stages run strictly in order and the run
// aborts on the first failure; completed stages are never undone.
package deploy

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"quantship-deployment/internal/builder"
	"quantship-deployment/internal/config"
	"quantship-deployment/internal/logger"
	"quantship-deployment/internal/models"
	"quantship-deployment/internal/registry"
	"quantship-deployment/internal/remote"
	"quantship-deployment/internal/runner"
)

// ArtifactBuilder produces a local artifact tagged localTag from the
// source tree.
type ArtifactBuilder interface {
	Build(ctx context.Context, sourceRoot, localTag string) error
}

// ArtifactPublisher uploads the local artifact to every reference, in
// order.
type ArtifactPublisher interface {
	Publish(ctx context.Context, localTag string, refs []models.ArtifactReference, creds config.Credentials) error
}

// RemoteExecutor swaps the artifact into the running service on the
// target host.
type RemoteExecutor interface {
	Apply(ctx context.Context, spec *config.Spec, serviceName string, ref models.ArtifactReference) (remote.ServiceState, error)
}

// Orchestrator runs deployments. At most one run per (host, service)
// may be in flight at a time; callers that trigger runs concurrently
// must serialize them.
type Orchestrator struct {
	builder    ArtifactBuilder
	publisher  ArtifactPublisher
	remote     RemoteExecutor
	sourceRoot string
	log        *logrus.Entry
}

func New(b ArtifactBuilder, p ArtifactPublisher, r RemoteExecutor, sourceRoot string) *Orchestrator {
	return &Orchestrator{
		builder:    b,
		publisher:  p,
		remote:     r,
		sourceRoot: sourceRoot,
		log:        logger.WithModule("deploy"),
	}
}

// NewDefault wires the production builder, publisher and SSH executor.
func NewDefault(sourceRoot string) *Orchestrator {
	r := runner.New()
	return New(builder.New(r), registry.New(r), remote.New(), sourceRoot)
}

// Run executes one deployment and produces exactly one result. The
// remote side pulls the floating "latest" reference; the version
// reference is pushed first as the durable pointer.
func (o *Orchestrator) Run(ctx context.Context, runID string, spec *config.Spec) models.DeploymentResult {
	log := o.log.WithFields(logrus.Fields{
		"run_id":  runID,
		"version": spec.Version,
	})
	log.Info("Deployment run starting")

	localTag := spec.LocalTag()
	if err := o.builder.Build(ctx, o.sourceRoot, localTag); err != nil {
		return o.failed(runID, err)
	}

	refs := []models.ArtifactReference{spec.VersionRef(), spec.LatestRef()}
	if err := o.publisher.Publish(ctx, localTag, refs, spec.Credentials); err != nil {
		return o.failed(runID, err)
	}

	state, err := o.remote.Apply(ctx, spec, spec.ServiceName, spec.LatestRef())
	if err != nil {
		return o.failed(runID, err)
	}

	log.WithField("listing", state.Listing).Info("Deployment succeeded")
	return models.SucceededResult(runID)
}

func (o *Orchestrator) failed(runID string, err error) models.DeploymentResult {
	stage := "unknown"
	var stageErr models.StageError
	if errors.As(err, &stageErr) {
		stage = stageErr.FailedStage()
	}
	o.log.WithFields(logrus.Fields{
		"run_id": runID,
		"stage":  stage,
	}).WithError(err).Error("Deployment failed")
	return models.FailedResult(runID, stage, err)
}

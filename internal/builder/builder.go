// Package builder produces a local, tagged artifact from a source
// tree by driving the container build toolchain.
package builder

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"quantship-deployment/internal/logger"
	"quantship-deployment/internal/models"
	"quantship-deployment/internal/runner"
)

// Error reports a failed build. Builds are deterministic for a given
// source tree, so the caller is not expected to retry.
type Error struct {
	Stage  string
	Cause  error
	Output string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) FailedStage() string { return e.Stage }

// Builder builds a container image from a source tree. It has no
// network access; publishing is a separate concern.
type Builder struct {
	runner runner.Runner
	log    *logrus.Entry
}

func New(r runner.Runner) *Builder {
	return &Builder{
		runner: r,
		log:    logger.WithModule("builder"),
	}
}

// Build creates a local image tagged localTag from the source tree at
// sourceRoot. The returned error is always a *Error on failure.
func (b *Builder) Build(ctx context.Context, sourceRoot, localTag string) error {
	if localTag == "" {
		return &Error{Stage: models.StageBuild, Cause: fmt.Errorf("local tag is empty")}
	}
	if !models.ValidTag(tagPart(localTag)) {
		return &Error{Stage: models.StageBuild, Cause: fmt.Errorf("local tag %q is not registry-valid", localTag)}
	}

	b.log.WithFields(logrus.Fields{
		"source": sourceRoot,
		"tag":    localTag,
	}).Info("Building artifact")

	result, err := b.runner.Run(ctx, "docker", "build", "-t", localTag, sourceRoot)
	if err != nil {
		return &Error{Stage: models.StageBuild, Cause: err}
	}
	if result.ExitCode != 0 {
		b.log.WithField("exit_code", result.ExitCode).Error("Build failed")
		return &Error{
			Stage:  models.StageBuild,
			Cause:  fmt.Errorf("docker build exited with status %d", result.ExitCode),
			Output: result.Combined(),
		}
	}

	b.log.WithField("tag", localTag).Info("Artifact built")
	return nil
}

// tagPart extracts the tag component of a name:tag local tag; a bare
// name defaults to "latest" semantics and is accepted.
func tagPart(localTag string) string {
	for i := len(localTag) - 1; i >= 0; i-- {
		switch localTag[i] {
		case ':':
			return localTag[i+1:]
		case '/':
			return "latest"
		}
	}
	return "latest"
}

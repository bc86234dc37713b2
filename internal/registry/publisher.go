// Package registry uploads built artifacts to a container registry,
// authenticating first. Pushes are idempotent: retagging and pushing
// the same local tag produces the same content-addressed layers.
package registry

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"quantship-deployment/internal/config"
	"quantship-deployment/internal/logger"
	"quantship-deployment/internal/models"
	"quantship-deployment/internal/runner"
)

// Error reports a failed publish. Stage is "auth" or "push".
// PartiallyPushed lists the references that were already pushed when a
// push failure aborted the remainder.
type Error struct {
	Stage           string
	Cause           error
	PartiallyPushed []models.ArtifactReference
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) FailedStage() string { return e.Stage }

// Publisher tags and pushes a local artifact to one or more remote
// references.
type Publisher struct {
	runner runner.Runner
	log    *logrus.Entry
}

func New(r runner.Runner) *Publisher {
	return &Publisher{
		runner: r,
		log:    logger.WithModule("registry"),
	}
}

// Publish authenticates to each distinct registry referenced by refs,
// then tags and pushes the local artifact to every reference in order.
// The caller passes the durable version reference first and the
// floating "latest" alias last, so the alias only moves once the
// version push has landed. The first push failure aborts the
// remaining references.
func (p *Publisher) Publish(ctx context.Context, localTag string, refs []models.ArtifactReference, creds config.Credentials) error {
	if len(refs) == 0 {
		return &Error{Stage: models.StagePush, Cause: fmt.Errorf("no references to publish")}
	}

	if err := p.login(ctx, refs, creds); err != nil {
		return err
	}

	var pushed []models.ArtifactReference
	for _, ref := range refs {
		if err := p.pushRef(ctx, localTag, ref); err != nil {
			return &Error{
				Stage:           models.StagePush,
				Cause:           err,
				PartiallyPushed: pushed,
			}
		}
		pushed = append(pushed, ref)
	}

	p.log.WithField("count", len(pushed)).Info("All references published")
	return nil
}

// login authenticates once per distinct registry endpoint before any
// tagging or pushing happens.
func (p *Publisher) login(ctx context.Context, refs []models.ArtifactReference, creds config.Credentials) error {
	seen := make(map[string]bool)
	for _, ref := range refs {
		if seen[ref.Registry] {
			continue
		}
		seen[ref.Registry] = true

		p.log.WithField("registry", ref.Registry).Info("Authenticating to registry")
		result, err := p.runner.RunWithInput(ctx, creds.RegistryPassword,
			"docker", "login", ref.Registry, "-u", creds.RegistryUser, "--password-stdin")
		if err != nil {
			return &Error{Stage: models.StageAuth, Cause: err}
		}
		if result.ExitCode != 0 {
			return &Error{
				Stage: models.StageAuth,
				Cause: fmt.Errorf("registry %s rejected credentials: %s", ref.Registry, result.Combined()),
			}
		}
	}
	return nil
}

func (p *Publisher) pushRef(ctx context.Context, localTag string, ref models.ArtifactReference) error {
	remote := ref.String()

	p.log.WithFields(logrus.Fields{
		"local":  localTag,
		"remote": remote,
	}).Info("Pushing reference")

	result, err := p.runner.Run(ctx, "docker", "tag", localTag, remote)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("failed to tag %s as %s: %s", localTag, remote, result.Combined())
	}

	result, err = p.runner.Run(ctx, "docker", "push", remote)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("failed to push %s: %s", remote, result.Combined())
	}

	return nil
}

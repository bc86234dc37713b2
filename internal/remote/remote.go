// Package remote applies a deployment on the target host over a
// single SSH control channel: pull the published artifact, replace the
// running service instance with it, and verify the replacement came up.
package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"quantship-deployment/internal/config"
	"quantship-deployment/internal/logger"
	"quantship-deployment/internal/models"
)

// Error reports a failed remote stage. Logs carries the new instance's
// log output when verification fails, as supporting evidence only.
type Error struct {
	Stage string
	Cause error
	Logs  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) FailedStage() string { return e.Stage }

// ServiceState is the observed running-or-not status of the named
// service on the target host. It is read, never owned locally, and not
// cached beyond one verification check.
type ServiceState struct {
	Running bool
	Listing string
}

// Session is one open control channel to the target host. Each Exec
// runs a single command and reports its exit status; Close releases
// the channel.
type Session interface {
	Exec(command string) (stdout, stderr string, exitCode int, err error)
	Close() error
}

// Dialer opens a control channel to a target. The production dialer
// speaks SSH; tests substitute a scripted fake.
type Dialer func(target config.Target, creds config.Credentials) (Session, error)

// Executor performs the remote-apply stage of a deployment.
type Executor struct {
	dial        Dialer
	verifyDelay time.Duration
	log         *logrus.Entry
}

func New() *Executor {
	return NewWithDialer(DialSSH)
}

// NewWithDialer is the constructor used by tests.
func NewWithDialer(dial Dialer) *Executor {
	return &Executor{
		dial:        dial,
		verifyDelay: 5 * time.Second,
		log:         logger.WithModule("remote"),
	}
}

// Apply replaces the service instance on the target with the given
// artifact: connect, pull, stop and remove any existing instance,
// start the new one, then verify it is running after a short delay.
//
// A pull failure leaves any pre-existing instance running. A start
// failure does not roll back: the old instance is already gone and no
// reference to its image is retained, so the error is surfaced rather
// than masked.
func (e *Executor) Apply(ctx context.Context, spec *config.Spec, serviceName string, ref models.ArtifactReference) (ServiceState, error) {
	e.log.WithFields(logrus.Fields{
		"host":    spec.Target.Host,
		"service": serviceName,
		"image":   ref.String(),
	}).Info("Applying deployment")

	session, err := e.dial(spec.Target, spec.Credentials)
	if err != nil {
		stage := models.StageConnect
		if strings.Contains(err.Error(), "unable to authenticate") {
			stage = models.StageAuth
		}
		return ServiceState{}, &Error{Stage: stage, Cause: err}
	}
	defer session.Close()

	if err := e.pull(session, ref); err != nil {
		return ServiceState{}, err
	}

	if err := ctx.Err(); err != nil {
		return ServiceState{}, &Error{Stage: models.StagePull, Cause: err}
	}

	if err := e.replace(session, spec, serviceName, ref); err != nil {
		return ServiceState{}, err
	}

	return e.verify(ctx, session, serviceName)
}

func (e *Executor) pull(session Session, ref models.ArtifactReference) error {
	_, stderr, exitCode, err := session.Exec(fmt.Sprintf("docker pull %s", ref.String()))
	if err != nil {
		return &Error{Stage: models.StagePull, Cause: err}
	}
	if exitCode != 0 {
		return &Error{
			Stage: models.StagePull,
			Cause: fmt.Errorf("docker pull exited with status %d: %s", exitCode, strings.TrimSpace(stderr)),
		}
	}
	return nil
}

// replace stops and removes any instance registered under serviceName
// and starts a fresh one from ref. Absence of an existing instance is
// the first-deploy case, not an error.
func (e *Executor) replace(session Session, spec *config.Spec, serviceName string, ref models.ArtifactReference) error {
	existing, _, exitCode, err := session.Exec(fmt.Sprintf("docker ps -aq --filter name=^%s$", serviceName))
	if err != nil {
		return &Error{Stage: models.StageStop, Cause: err}
	}

	if exitCode == 0 && strings.TrimSpace(existing) != "" {
		// The outgoing image is logged so an operator can redeploy it
		// by hand; no rollback reference is retained.
		if image, _, code, err := session.Exec(fmt.Sprintf("docker inspect --format {{.Config.Image}} %s", serviceName)); err == nil && code == 0 {
			e.log.WithField("image", strings.TrimSpace(image)).Info("Replacing existing instance")
		}

		_, stderr, code, err := session.Exec(fmt.Sprintf("docker stop %s", serviceName))
		if err != nil {
			return &Error{Stage: models.StageStop, Cause: err}
		}
		if code != 0 {
			return &Error{
				Stage: models.StageStop,
				Cause: fmt.Errorf("docker stop exited with status %d: %s", code, strings.TrimSpace(stderr)),
			}
		}

		_, stderr, code, err = session.Exec(fmt.Sprintf("docker rm %s", serviceName))
		if err != nil {
			return &Error{Stage: models.StageRemove, Cause: err}
		}
		if code != 0 {
			return &Error{
				Stage: models.StageRemove,
				Cause: fmt.Errorf("docker rm exited with status %d: %s", code, strings.TrimSpace(stderr)),
			}
		}
	}

	_, stderr, code, err := session.Exec(startCommand(spec, serviceName, ref))
	if err != nil {
		return &Error{Stage: models.StageStart, Cause: err}
	}
	if code != 0 {
		return &Error{
			Stage: models.StageStart,
			Cause: fmt.Errorf("docker run exited with status %d: %s", code, strings.TrimSpace(stderr)),
		}
	}

	return nil
}

// startCommand assembles the docker run invocation from the spec's
// runtime parameters.
func startCommand(spec *config.Spec, serviceName string, ref models.ArtifactReference) string {
	var b strings.Builder
	b.WriteString("docker run -d --restart unless-stopped --name ")
	b.WriteString(serviceName)
	for _, mapping := range spec.Runtime.Ports {
		fmt.Fprintf(&b, " -p %s", mapping)
	}
	for _, volume := range spec.Runtime.Volumes {
		fmt.Fprintf(&b, " -v %s", volume)
	}
	for key, value := range spec.Runtime.Env {
		fmt.Fprintf(&b, " -e %s=%s", key, value)
	}
	b.WriteString(" ")
	b.WriteString(ref.String())
	return b.String()
}

// verify waits out the startup delay and checks the instance is still
// running; if it is not, the instance logs are fetched for diagnosis.
func (e *Executor) verify(ctx context.Context, session Session, serviceName string) (ServiceState, error) {
	select {
	case <-time.After(e.verifyDelay):
	case <-ctx.Done():
		return ServiceState{}, &Error{Stage: models.StageVerify, Cause: ctx.Err()}
	}

	running, _, code, err := session.Exec(fmt.Sprintf("docker ps -q --filter name=^%s$ --filter status=running", serviceName))
	if err != nil {
		return ServiceState{}, &Error{Stage: models.StageVerify, Cause: err}
	}

	if code != 0 || strings.TrimSpace(running) == "" {
		logs, _, _, _ := session.Exec(fmt.Sprintf("docker logs --tail 50 %s", serviceName))
		e.log.WithField("service", serviceName).Error("Service did not stay running after start")
		return ServiceState{Running: false}, &Error{
			Stage: models.StageVerify,
			Cause: fmt.Errorf("service %s is not running after start", serviceName),
			Logs:  logs,
		}
	}

	listing, _, _, _ := session.Exec(fmt.Sprintf("docker ps --filter name=^%s$", serviceName))
	e.log.WithField("service", serviceName).Info("Service is healthy")
	return ServiceState{Running: true, Listing: listing}, nil
}

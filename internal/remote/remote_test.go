package remote

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantship-deployment/internal/config"
	"quantship-deployment/internal/models"
)

// fakeSession replies with scripted responses matched by substring, in
// rule order; unmatched commands succeed with empty output.
type fakeSession struct {
	rules    []sessionRule
	commands []string
	closed   bool
}

type sessionRule struct {
	match    string
	stdout   string
	stderr   string
	exitCode int
}

func (f *fakeSession) Exec(command string) (string, string, int, error) {
	f.commands = append(f.commands, command)
	for _, rule := range f.rules {
		if strings.Contains(command, rule.match) {
			return rule.stdout, rule.stderr, rule.exitCode, nil
		}
	}
	return "", "", 0, nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func (f *fakeSession) commandsMatching(substr string) []string {
	var matched []string
	for _, command := range f.commands {
		if strings.Contains(command, substr) {
			matched = append(matched, command)
		}
	}
	return matched
}

func testSpec() *config.Spec {
	return &config.Spec{
		Artifact:    "quant-system",
		Version:     "v1.0.0",
		Registry:    "registry.example.com",
		Namespace:   "quant",
		ServiceName: "quant-web",
		Target:      config.Target{Host: "203.0.113.5", Port: 22, User: "root"},
		Runtime: config.Runtime{
			Ports:   []string{"5000:5000"},
			Volumes: []string{"/srv/quant/data:/app/data"},
		},
	}
}

func newTestExecutor(session *fakeSession) *Executor {
	e := NewWithDialer(func(config.Target, config.Credentials) (Session, error) {
		return session, nil
	})
	e.verifyDelay = 0
	return e
}

func latestRef() models.ArtifactReference {
	return models.NewArtifactReference("registry.example.com", "quant", "quant-system", "latest")
}

func TestApplyFirstDeploy(t *testing.T) {
	session := &fakeSession{
		rules: []sessionRule{
			{match: " -aq ", stdout: ""},            // no existing instance
			{match: "status=running", stdout: "c1"}, // new instance is up
		},
	}
	e := newTestExecutor(session)

	state, err := e.Apply(context.Background(), testSpec(), "quant-web", latestRef())
	require.NoError(t, err)
	assert.True(t, state.Running)
	assert.True(t, session.closed, "control channel must be closed")

	// First deploy: nothing to stop or remove.
	assert.Empty(t, session.commandsMatching("docker stop"))
	assert.Empty(t, session.commandsMatching("docker rm"))

	runs := session.commandsMatching("docker run")
	require.Len(t, runs, 1)
	assert.Contains(t, runs[0], "--name quant-web")
	assert.Contains(t, runs[0], "-p 5000:5000")
	assert.Contains(t, runs[0], "-v /srv/quant/data:/app/data")
	assert.Contains(t, runs[0], "registry.example.com/quant/quant-system:latest")
}

func TestApplyIdempotentWithoutPriorInstance(t *testing.T) {
	for i := 0; i < 2; i++ {
		session := &fakeSession{
			rules: []sessionRule{
				{match: " -aq ", stdout: ""},
				{match: "status=running", stdout: "c1"},
			},
		}
		e := newTestExecutor(session)

		state, err := e.Apply(context.Background(), testSpec(), "quant-web", latestRef())
		require.NoError(t, err, "run %d", i)
		assert.True(t, state.Running, "run %d", i)
	}
}

func TestApplyReplacesExistingInstance(t *testing.T) {
	session := &fakeSession{
		rules: []sessionRule{
			{match: " -aq ", stdout: "deadbeef\n"},
			{match: "docker inspect", stdout: "registry.example.com/quant/quant-system:latest\n"},
			{match: "status=running", stdout: "c2"},
		},
	}
	e := newTestExecutor(session)

	state, err := e.Apply(context.Background(), testSpec(), "quant-web", latestRef())
	require.NoError(t, err)
	assert.True(t, state.Running)

	// Old instance is stopped and removed before the new one starts.
	require.Len(t, session.commandsMatching("docker stop quant-web"), 1)
	require.Len(t, session.commandsMatching("docker rm quant-web"), 1)

	var order []string
	for _, command := range session.commands {
		switch {
		case strings.HasPrefix(command, "docker stop"):
			order = append(order, "stop")
		case strings.HasPrefix(command, "docker rm"):
			order = append(order, "rm")
		case strings.HasPrefix(command, "docker run"):
			order = append(order, "run")
		}
	}
	assert.Equal(t, []string{"stop", "rm", "run"}, order)
}

func TestApplyPullFailureLeavesServiceUntouched(t *testing.T) {
	session := &fakeSession{
		rules: []sessionRule{
			{match: "docker pull", stderr: "manifest unknown", exitCode: 1},
		},
	}
	e := newTestExecutor(session)

	_, err := e.Apply(context.Background(), testSpec(), "quant-web", latestRef())
	require.Error(t, err)

	var remoteErr *Error
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, models.StagePull, remoteErr.FailedStage())

	// Rollback safety: the running instance is never touched.
	assert.Empty(t, session.commandsMatching("docker stop"))
	assert.Empty(t, session.commandsMatching("docker rm"))
	assert.Empty(t, session.commandsMatching("docker run"))
	assert.True(t, session.closed)
}

func TestApplyStartFailure(t *testing.T) {
	session := &fakeSession{
		rules: []sessionRule{
			{match: " -aq ", stdout: "deadbeef\n"},
			{match: "docker run", stderr: "port is already allocated", exitCode: 125},
		},
	}
	e := newTestExecutor(session)

	_, err := e.Apply(context.Background(), testSpec(), "quant-web", latestRef())
	require.Error(t, err)

	var remoteErr *Error
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, models.StageStart, remoteErr.FailedStage())

	// The old instance is already gone at this point; that is the
	// documented limitation, surfaced rather than masked.
	require.Len(t, session.commandsMatching("docker stop quant-web"), 1)
	require.Len(t, session.commandsMatching("docker rm quant-web"), 1)
}

func TestApplyVerifyFailureSurfacesLogs(t *testing.T) {
	session := &fakeSession{
		rules: []sessionRule{
			{match: " -aq ", stdout: ""},
			{match: "status=running", stdout: ""},
			{match: "docker logs", stdout: "Traceback (most recent call last): boom\n"},
		},
	}
	e := newTestExecutor(session)

	state, err := e.Apply(context.Background(), testSpec(), "quant-web", latestRef())
	require.Error(t, err)
	assert.False(t, state.Running)

	var remoteErr *Error
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, models.StageVerify, remoteErr.FailedStage())
	assert.Contains(t, remoteErr.Logs, "boom")
}

func TestApplyConnectFailure(t *testing.T) {
	e := NewWithDialer(func(config.Target, config.Credentials) (Session, error) {
		return nil, errors.New("dial tcp 203.0.113.5:22: connection refused")
	})
	e.verifyDelay = 0

	_, err := e.Apply(context.Background(), testSpec(), "quant-web", latestRef())
	require.Error(t, err)

	var remoteErr *Error
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, models.StageConnect, remoteErr.FailedStage())
}

func TestApplyAuthFailure(t *testing.T) {
	e := NewWithDialer(func(config.Target, config.Credentials) (Session, error) {
		return nil, errors.New("ssh: unable to authenticate, attempted methods [password]")
	})
	e.verifyDelay = 0

	_, err := e.Apply(context.Background(), testSpec(), "quant-web", latestRef())
	require.Error(t, err)

	var remoteErr *Error
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, models.StageAuth, remoteErr.FailedStage())
}

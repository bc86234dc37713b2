package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"quantship-deployment/internal/models"
)

// Spec is the immutable description of one deployment run. It is
// constructed once, validated, and never mutated mid-run.
type Spec struct {
	Artifact    string      `toml:"artifact"`
	Version     string      `toml:"version"`
	Registry    string      `toml:"registry"`
	Namespace   string      `toml:"namespace"`
	ServiceName string      `toml:"service_name"`
	Target      Target      `toml:"target"`
	Runtime     Runtime     `toml:"runtime"`
	Credentials Credentials `toml:"credentials"`
}

// Target identifies the remote host the service runs on.
type Target struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	User string `toml:"user"`
}

// Runtime holds the parameters the service container is started with.
type Runtime struct {
	Ports   []string          `toml:"ports"`
	Volumes []string          `toml:"volumes"`
	Env     map[string]string `toml:"env"`
}

// Credentials are supplied via the spec file or environment; they are
// passed through to the registry and the SSH channel and never stored.
type Credentials struct {
	RegistryUser     string `toml:"registry_user"`
	RegistryPassword string `toml:"registry_password"`
	SSHPassword      string `toml:"ssh_password"`
	SSHKeyPath       string `toml:"ssh_key_path"`
}

// LoadSpec reads a deployment spec from a TOML file and applies
// environment overrides. Credentials in particular are usually supplied
// through the environment rather than the file.
func LoadSpec(path string) (*Spec, error) {
	var spec Spec
	if _, err := toml.DecodeFile(path, &spec); err != nil {
		return nil, fmt.Errorf("failed to read deploy spec %s: %w", path, err)
	}

	applyEnvOverrides(&spec)

	if spec.Target.Port == 0 {
		spec.Target.Port = 22
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &spec, nil
}

func applyEnvOverrides(spec *Spec) {
	overrideString(&spec.Version, "DEPLOY_VERSION")
	overrideString(&spec.Registry, "DEPLOY_REGISTRY")
	overrideString(&spec.Target.Host, "DEPLOY_HOST")
	overrideString(&spec.Target.User, "DEPLOY_USER")
	overrideString(&spec.Credentials.RegistryUser, "REGISTRY_USER")
	overrideString(&spec.Credentials.RegistryPassword, "REGISTRY_PASSWORD")
	overrideString(&spec.Credentials.SSHPassword, "SSH_PASSWORD")
	overrideString(&spec.Credentials.SSHKeyPath, "SSH_KEY_PATH")

	if portStr := getEnv("DEPLOY_PORT", ""); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			spec.Target.Port = port
		}
	}
}

func overrideString(field *string, key string) {
	if value := getEnv(key, ""); value != "" {
		*field = value
	}
}

// Validate checks the spec before any deployment stage runs.
func (s *Spec) Validate() error {
	if s.Artifact == "" {
		return fmt.Errorf("spec: artifact name is required")
	}
	if s.ServiceName == "" {
		return fmt.Errorf("spec: service_name is required")
	}
	if s.Registry == "" {
		return fmt.Errorf("spec: registry endpoint is required")
	}
	if s.Namespace == "" {
		return fmt.Errorf("spec: namespace is required")
	}
	if !models.ValidTag(s.Version) {
		return fmt.Errorf("spec: version %q is not a valid registry tag", s.Version)
	}
	if s.Target.Host == "" {
		return fmt.Errorf("spec: target host is required")
	}
	if s.Target.Port < 1 || s.Target.Port > 65535 {
		return fmt.Errorf("spec: target port %d out of range", s.Target.Port)
	}
	if s.Target.User == "" {
		return fmt.Errorf("spec: target user is required")
	}
	if len(s.Runtime.Ports) == 0 {
		return fmt.Errorf("spec: at least one port mapping is required")
	}
	for _, mapping := range s.Runtime.Ports {
		if err := validatePortMapping(mapping); err != nil {
			return err
		}
	}
	if err := s.VersionRef().Validate(); err != nil {
		return fmt.Errorf("spec: %w", err)
	}
	return nil
}

func validatePortMapping(mapping string) error {
	parts := strings.Split(mapping, ":")
	if len(parts) != 2 {
		return fmt.Errorf("spec: port mapping %q must be host:container", mapping)
	}
	for _, part := range parts {
		port, err := strconv.Atoi(part)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("spec: port mapping %q has invalid port %q", mapping, part)
		}
	}
	return nil
}

// LocalTag is the deterministic tag the artifact is built under before
// it is pushed anywhere.
func (s *Spec) LocalTag() string {
	return fmt.Sprintf("%s:%s", s.Artifact, s.Version)
}

// VersionRef is the durable remote pointer for this deployment.
func (s *Spec) VersionRef() models.ArtifactReference {
	return models.NewArtifactReference(s.Registry, s.Namespace, s.Artifact, s.Version)
}

// LatestRef is the floating alias the remote side pulls.
func (s *Spec) LatestRef() models.ArtifactReference {
	return models.NewArtifactReference(s.Registry, s.Namespace, s.Artifact, "latest")
}

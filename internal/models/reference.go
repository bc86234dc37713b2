package models

import (
	"fmt"

	"github.com/distribution/reference"
)

// ArtifactReference identifies a built artifact in a registry. Two
// references are equal iff all four fields match.
type ArtifactReference struct {
	Registry  string `json:"registry"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Tag       string `json:"tag"`
}

func NewArtifactReference(registry, namespace, name, tag string) ArtifactReference {
	return ArtifactReference{
		Registry:  registry,
		Namespace: namespace,
		Name:      name,
		Tag:       tag,
	}
}

// String renders the fully-qualified reference, e.g.
// "registry.example.com/quant/quant-system:v1.0.0".
func (r ArtifactReference) String() string {
	return fmt.Sprintf("%s:%s", r.Repository(), r.Tag)
}

// Repository is the reference without the tag.
func (r ArtifactReference) Repository() string {
	return fmt.Sprintf("%s/%s/%s", r.Registry, r.Namespace, r.Name)
}

func (r ArtifactReference) Equal(other ArtifactReference) bool {
	return r.Registry == other.Registry &&
		r.Namespace == other.Namespace &&
		r.Name == other.Name &&
		r.Tag == other.Tag
}

// Validate checks the reference against the registry naming rules.
func (r ArtifactReference) Validate() error {
	if r.Registry == "" || r.Namespace == "" || r.Name == "" || r.Tag == "" {
		return fmt.Errorf("artifact reference has empty fields: %#v", r)
	}

	named, err := reference.ParseNamed(r.Repository())
	if err != nil {
		return fmt.Errorf("invalid repository %q: %w", r.Repository(), err)
	}

	if _, err := reference.WithTag(named, r.Tag); err != nil {
		return fmt.Errorf("invalid tag %q: %w", r.Tag, err)
	}

	return nil
}

// ValidTag reports whether tag is usable as a registry tag on its own.
func ValidTag(tag string) bool {
	return reference.TagRegexp.MatchString(tag)
}

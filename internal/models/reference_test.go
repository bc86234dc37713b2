package models

import "testing"

func TestArtifactReferenceString(t *testing.T) {
	ref := NewArtifactReference("registry.example.com", "quant", "quant-system", "v1.0.0")

	want := "registry.example.com/quant/quant-system:v1.0.0"
	if got := ref.String(); got != want {
		t.Errorf("String() = %v, want %v", got, want)
	}
}

func TestArtifactReferenceEqual(t *testing.T) {
	base := NewArtifactReference("registry.example.com", "quant", "quant-system", "v1.0.0")

	tests := []struct {
		name  string
		other ArtifactReference
		want  bool
	}{
		{
			name:  "identical",
			other: NewArtifactReference("registry.example.com", "quant", "quant-system", "v1.0.0"),
			want:  true,
		},
		{
			name:  "different tag",
			other: NewArtifactReference("registry.example.com", "quant", "quant-system", "latest"),
			want:  false,
		},
		{
			name:  "different registry",
			other: NewArtifactReference("other.example.com", "quant", "quant-system", "v1.0.0"),
			want:  false,
		},
		{
			name:  "different namespace",
			other: NewArtifactReference("registry.example.com", "team", "quant-system", "v1.0.0"),
			want:  false,
		},
		{
			name:  "different name",
			other: NewArtifactReference("registry.example.com", "quant", "quant-web", "v1.0.0"),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Equal(tt.other); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArtifactReferenceValidate(t *testing.T) {
	tests := []struct {
		name    string
		ref     ArtifactReference
		wantErr bool
	}{
		{
			name:    "valid",
			ref:     NewArtifactReference("registry.example.com", "quant", "quant-system", "v1.0.0"),
			wantErr: false,
		},
		{
			name:    "valid with ip registry",
			ref:     NewArtifactReference("203.0.113.5", "quant", "quant-system", "v1.0.0"),
			wantErr: false,
		},
		{
			name:    "empty name",
			ref:     NewArtifactReference("registry.example.com", "quant", "", "v1.0.0"),
			wantErr: true,
		},
		{
			name:    "empty tag",
			ref:     NewArtifactReference("registry.example.com", "quant", "quant-system", ""),
			wantErr: true,
		},
		{
			name:    "uppercase name rejected",
			ref:     NewArtifactReference("registry.example.com", "quant", "Quant-System", "v1.0.0"),
			wantErr: true,
		},
		{
			name:    "invalid tag characters",
			ref:     NewArtifactReference("registry.example.com", "quant", "quant-system", "v1.0.0 beta"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ref.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidTag(t *testing.T) {
	tests := []struct {
		tag  string
		want bool
	}{
		{"v1.0.0", true},
		{"latest", true},
		{"release_2026-08", true},
		{"", false},
		{"has space", false},
		{"-leading-dash", false},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			if got := ValidTag(tt.tag); got != tt.want {
				t.Errorf("ValidTag(%q) = %v, want %v", tt.tag, got, tt.want)
			}
		})
	}
}

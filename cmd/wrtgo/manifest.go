package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ComponentManifest is the YAML envelope wrtgo commands consume:
// apiVersion/kind/metadata/spec with kind: ComponentManifest.
type ComponentManifest struct {
	APIVersion string                 `yaml:"apiVersion"`
	Kind       string                 `yaml:"kind"`
	Metadata   ManifestMetadata       `yaml:"metadata"`
	Spec       ManifestSpec           `yaml:"spec"`
}

type ManifestMetadata struct {
	Name   string            `yaml:"name"`
	Labels map[string]string `yaml:"labels,omitempty"`
}

type ManifestSpec struct {
	VerificationLevel string            `yaml:"verificationLevel,omitempty"`
	Components        []ManifestEntry   `yaml:"components"`
}

// ManifestEntry names one component to register: an id and a path to its
// descriptor file, resolved relative to the manifest's own directory. The
// descriptor file is the component/componenttest JSON declarative
// export/import shape, not a real Wasm binary (real binary decoding is out
// of scope).
type ManifestEntry struct {
	ID   string `yaml:"id"`
	File string `yaml:"file"`
}

// loadManifest reads and parses a ComponentManifest from path, rejecting
// anything but kind: ComponentManifest.
func loadManifest(path string) (*ComponentManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m ComponentManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Kind != "ComponentManifest" {
		return nil, fmt.Errorf("unsupported manifest kind %q (want ComponentManifest)", m.Kind)
	}
	dir := filepath.Dir(path)
	for i, c := range m.Spec.Components {
		if !filepath.IsAbs(c.File) {
			m.Spec.Components[i].File = filepath.Join(dir, c.File)
		}
	}
	return &m, nil
}

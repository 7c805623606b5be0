package main

import (
	"fmt"
	"os"

	"github.com/wrtgo/wrtgo/component"
	"github.com/wrtgo/wrtgo/component/componenttest"
	"github.com/wrtgo/wrtgo/foundation"
	"github.com/wrtgo/wrtgo/internal/config"
)

// loadRuntimeConfig reads --config if set, otherwise returns the built-in
// defaults.
func loadRuntimeConfig(cmd cobraFlagGetter) (config.RuntimeConfig, error) {
	path, _ := cmd.GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// cobraFlagGetter is the narrow subset of *cobra.Command this file needs,
// named so tests could swap in a fake flag source without a cobra import.
type cobraFlagGetter interface {
	GetString(name string) (string, error)
}

// buildLinker registers every manifest component with a fresh
// ComponentLinker, using the component/componenttest JSON decoder (the
// module ships no real Wasm binary decoder).
func buildLinker(m *ComponentManifest, cfg config.RuntimeConfig) (*component.ComponentLinker, error) {
	counter := foundation.NewCounter()
	linker := component.NewComponentLinker(cfg.Component.MaxComponents, cfg.Component.CycleMode(), componenttest.FakeDecoder{}, counter)

	for _, entry := range m.Spec.Components {
		data, err := os.ReadFile(entry.File)
		if err != nil {
			return nil, fmt.Errorf("read component descriptor %q: %w", entry.File, err)
		}
		if err := linker.AddComponent(entry.ID, data); err != nil {
			return nil, err
		}
	}
	return linker, nil
}

// instantiateConfig builds the per-instance config every subcommand uses
// from the resolved RuntimeConfig and manifest-level verification-level
// override.
func instantiateConfig(m *ComponentManifest, cfg config.RuntimeConfig) *component.InstantiateConfig {
	level := cfg.Level()
	if m.Spec.VerificationLevel != "" {
		level = (config.RuntimeConfig{VerificationLevel: m.Spec.VerificationLevel}).Level()
	}
	return &component.InstantiateConfig{
		MinMemoryPages:  1,
		MemoryBudget:    cfg.MemoryBudgetBytes,
		MaxResources:    cfg.Component.MaxResources,
		Level:           level,
		StartValidation: component.ValidationStandard,
	}
}

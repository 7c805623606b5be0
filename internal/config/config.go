// Package config loads the runtime's tunable knobs from YAML, with
// Default() supplying every field a config file leaves unset.
package config

import (
	"fmt"
	"os"

	"github.com/wrtgo/wrtgo/async"
	"github.com/wrtgo/wrtgo/component"
	"github.com/wrtgo/wrtgo/foundation"
	"gopkg.in/yaml.v3"
)

// SchedulerPolicy mirrors async.SchedulerConfig in YAML-friendly form.
type SchedulerPolicy struct {
	DefaultQuantum     uint64 `yaml:"defaultQuantum"`
	MinQuantum         uint64 `yaml:"minQuantum"`
	MaxQuantum         uint64 `yaml:"maxQuantum"`
	AgingEnabled       bool   `yaml:"agingEnabled"`
	AgingFuelThreshold uint64 `yaml:"agingFuelThreshold"`
	MaxPriorityBoost   int    `yaml:"maxPriorityBoost"`
}

// AsyncConfig sets the async subsystem's bounds.
type AsyncConfig struct {
	TaskLimit           int             `yaml:"taskLimit"`
	PriorityChainBound  int             `yaml:"priorityChainBound"`
	DefaultChannelDepth int             `yaml:"defaultChannelDepth"`
	Scheduler           SchedulerPolicy `yaml:"scheduler"`
}

// ComponentConfig sets the linker/instance subsystem's bounds.
type ComponentConfig struct {
	MaxComponents int    `yaml:"maxComponents"`
	MaxResources  int    `yaml:"maxResources"`
	CyclePolicy   string `yaml:"cycleMode"` // "reject" | "warn" | "allow"
}

// RuntimeConfig is the top-level YAML document loaded by the CLI and by
// host embedders that want the runtime's defaults without hand-assembling
// every struct.
type RuntimeConfig struct {
	VerificationLevel string          `yaml:"verificationLevel"` // "off" | "basic" | "sampling" | "standard" | "full" | "redundant"
	MemoryBudgetBytes uint64          `yaml:"memoryBudgetBytes"`
	Async             AsyncConfig     `yaml:"async"`
	Component         ComponentConfig `yaml:"component"`
}

// Default returns the runtime's built-in defaults, used when no config
// file is supplied.
func Default() RuntimeConfig {
	return RuntimeConfig{
		VerificationLevel: "standard",
		MemoryBudgetBytes: 256 * 1024 * 1024,
		Async: AsyncConfig{
			TaskLimit:           1024,
			PriorityChainBound:  16,
			DefaultChannelDepth: 64,
			Scheduler: SchedulerPolicy{
				DefaultQuantum: 1000,
				MinQuantum:     100,
				MaxQuantum:     10000,
			},
		},
		Component: ComponentConfig{
			MaxComponents: 256,
			MaxResources:  4096,
			CyclePolicy:   "reject",
		},
	}
}

// Load reads and parses a RuntimeConfig from a YAML file. A field the file
// does not set keeps its Default() value; a field the file sets, even to
// zero, takes the file's value.
func Load(path string) (RuntimeConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}

// Level resolves the configured VerificationLevel string to its enum
// value, defaulting to Standard on an unrecognized or empty value.
func (c RuntimeConfig) Level() foundation.VerificationLevel {
	switch c.VerificationLevel {
	case "off":
		return foundation.Off
	case "basic":
		return foundation.Basic
	case "sampling":
		return foundation.Sampling
	case "full":
		return foundation.Full
	case "redundant":
		return foundation.Redundant
	default:
		return foundation.Standard
	}
}

// CycleMode resolves the configured cycle-handling policy string,
// defaulting to Reject on an unrecognized or empty value.
func (c ComponentConfig) CycleMode() component.CircularDependencyMode {
	switch c.CyclePolicy {
	case "warn":
		return component.Warn
	case "allow":
		return component.Allow
	default:
		return component.Reject
	}
}

// SchedulerConfig builds an async.SchedulerConfig from the YAML policy,
// falling back to async.DefaultSchedulerConfig for an unset quantum.
func (c RuntimeConfig) SchedulerConfig() async.SchedulerConfig {
	p := c.Async.Scheduler
	if p.DefaultQuantum == 0 {
		return async.DefaultSchedulerConfig()
	}
	return async.SchedulerConfig{
		DefaultQuantum:     p.DefaultQuantum,
		MinQuantum:         p.MinQuantum,
		MaxQuantum:         p.MaxQuantum,
		AgingEnabled:       p.AgingEnabled,
		AgingFuelThreshold: p.AgingFuelThreshold,
		MaxPriorityBoost:   p.MaxPriorityBoost,
		PriorityChainBound: c.Async.PriorityChainBound,
	}
}

package main

import (
	"os"

	"github.com/BurntSushi/toml"
)

// ScenarioConfig configures one named scenario's runtime knobs from a TOML
// file, so a scenario's concurrency/timeout behavior can be tuned without a
// rebuild.
type ScenarioConfig struct {
	Scenarios map[string]ScenarioSettings `toml:"scenarios"`
}

// ScenarioSettings mirrors the tamed.Option knobs a scenario cares about.
type ScenarioSettings struct {
	ErrorMode      string `toml:"error_mode"`      // "cancel" or "ignore"
	ExitMode       string `toml:"exit_mode"`       // "wait" or "cancel"
	MaxConcurrency int    `toml:"max_concurrency"` // 0 = unbounded
	TimeoutMS      int    `toml:"timeout_ms"`      // 0 = no timeout
}

func loadConfig(path string) (ScenarioConfig, error) {
	var cfg ScenarioConfig
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c ScenarioConfig) settingsFor(name string) ScenarioSettings {
	s, ok := c.Scenarios[name]
	if !ok {
		return ScenarioSettings{ErrorMode: "cancel", ExitMode: "wait"}
	}
	if s.ErrorMode == "" {
		s.ErrorMode = "cancel"
	}
	if s.ExitMode == "" {
		s.ExitMode = "wait"
	}
	return s
}

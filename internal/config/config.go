// ABOUTME: Player configuration - YAML file with defaults
// ABOUTME: Covers selection mode, tolerance, policy constants, devices
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the configuration surface consumed by the engine.
type Config struct {
	// ScoresDir is scanned for score files.
	ScoresDir string `yaml:"scores_dir"`

	// Backend selects the output device: keysim, sample, or midi.
	Backend string `yaml:"backend"`

	// Mode selects track ordering: sequential or random.
	Mode string `yaml:"mode"`

	// Tolerance widens the full-ensemble acceptance window, in
	// semitones outside the backend's strict range.
	Tolerance int `yaml:"tolerance"`

	// StaccatoFraction scales the sounding duration of staccato notes.
	StaccatoFraction float64 `yaml:"staccato_fraction"`

	// AdvanceDelay is the gap between a track finishing naturally and
	// the next one starting.
	AdvanceDelay time.Duration `yaml:"advance_delay"`

	// MIDIPort names the MIDI output port (substring match). Empty
	// picks the first available port.
	MIDIPort string `yaml:"midi_port"`

	// SamplesDir holds the per-pitch sample recordings.
	SamplesDir string `yaml:"samples_dir"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		ScoresDir:        "scores",
		Backend:          "keysim",
		Mode:             "random",
		Tolerance:        0,
		StaccatoFraction: 0.5,
		AdvanceDelay:     3 * time.Second,
		SamplesDir:       "samples/piano",
	}
}

// Load reads a YAML config file over the defaults. A missing file is
// not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects values the engine cannot run with.
func (c Config) Validate() error {
	switch c.Backend {
	case "keysim", "sample", "midi":
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	switch c.Mode {
	case "sequential", "random":
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("tolerance must be >= 0, got %d", c.Tolerance)
	}
	if c.StaccatoFraction <= 0 || c.StaccatoFraction > 1 {
		return fmt.Errorf("staccato_fraction must be in (0, 1], got %g", c.StaccatoFraction)
	}
	if c.AdvanceDelay < 0 {
		return fmt.Errorf("advance_delay must be >= 0, got %v", c.AdvanceDelay)
	}
	return nil
}

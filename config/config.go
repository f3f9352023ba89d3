// Package config loads the board and run parameters from YAML files and
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"

	"github.com/chat2snack/snacksim/sim"
)

// Config holds the complete configuration of a simulated board.
type Config struct {
	Board   BoardConfig   `yaml:"board"`
	Serial  SerialConfig  `yaml:"serial"`
	Pulse   PulseConfig   `yaml:"pulse"`
	Monitor MonitorConfig `yaml:"monitor"`
}

// BoardConfig holds the clock and actuation settings.
type BoardConfig struct {
	ClockHz        float64 `yaml:"clockHz"`
	PushDurationMs float64 `yaml:"pushDurationMs"`
}

// SerialConfig holds the serial link settings.
type SerialConfig struct {
	BitRate int `yaml:"bitRate"`
	GapBits int `yaml:"gapBits"`
}

// PulseConfig holds the actuator pulse settings, all in milliseconds.
type PulseConfig struct {
	PeriodMs float64 `yaml:"periodMs"`
	StopMs   float64 `yaml:"stopMs"`
	PushMs   float64 `yaml:"pushMs"`
	RevertMs float64 `yaml:"revertMs"`
}

// MonitorConfig holds the monitoring server settings.
type MonitorConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Default returns the configuration of the reference board: a 50 MHz
// clock, 115200 bit/s serial, half-second actuations, and a 20 ms servo
// period with 1.5/2.45/0.35 ms pulses.
func Default() *Config {
	return &Config{
		Board: BoardConfig{
			ClockHz:        50e6,
			PushDurationMs: 500,
		},
		Serial: SerialConfig{
			BitRate: 115200,
			GapBits: 1,
		},
		Pulse: PulseConfig{
			PeriodMs: 20,
			StopMs:   1.5,
			PushMs:   2.45,
			RevertMs: 0.35,
		},
		Monitor: MonitorConfig{
			Enabled: false,
			Port:    0,
		},
	}
}

// Load builds a configuration from the defaults, the given YAML file, and
// the SNACKSIM_* environment variables, in that order. An empty path skips
// the file; the SNACKSIM_CONFIG variable names a file to load when no path
// is given.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("SNACKSIM_CONFIG")
	}

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SNACKSIM_CLOCK_HZ"); v != "" {
		if hz, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Board.ClockHz = hz
		}
	}

	if v := os.Getenv("SNACKSIM_BIT_RATE"); v != "" {
		if rate, err := strconv.Atoi(v); err == nil {
			cfg.Serial.BitRate = rate
		}
	}

	if v := os.Getenv("SNACKSIM_PUSH_DURATION_MS"); v != "" {
		if ms, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Board.PushDurationMs = ms
		}
	}

	if v := os.Getenv("SNACKSIM_MONITOR_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Monitor.Enabled = true
			cfg.Monitor.Port = port
		}
	}
}

// Validate reports the first parameter that cannot describe a working
// board.
func (c *Config) Validate() error {
	if c.Board.ClockHz <= 0 {
		return fmt.Errorf("clock rate must be positive, got %g", c.Board.ClockHz)
	}

	if c.Serial.BitRate <= 0 {
		return fmt.Errorf("bit rate must be positive, got %d", c.Serial.BitRate)
	}

	if c.Board.ClockHz < float64(2*c.Serial.BitRate) {
		return fmt.Errorf(
			"clock rate %g cannot sample a %d bit/s line, need at least 2x",
			c.Board.ClockHz, c.Serial.BitRate)
	}

	if c.Serial.GapBits < 0 {
		return fmt.Errorf("gap bits must not be negative, got %d", c.Serial.GapBits)
	}

	if c.Board.PushDurationMs <= 0 {
		return fmt.Errorf("push duration must be positive, got %g ms",
			c.Board.PushDurationMs)
	}

	if c.Pulse.PeriodMs <= 0 {
		return fmt.Errorf("pulse period must be positive, got %g ms",
			c.Pulse.PeriodMs)
	}

	for _, w := range []struct {
		name string
		ms   float64
	}{
		{"stop", c.Pulse.StopMs},
		{"push", c.Pulse.PushMs},
		{"revert", c.Pulse.RevertMs},
	} {
		if w.ms <= 0 {
			return fmt.Errorf("%s pulse width must be positive, got %g ms",
				w.name, w.ms)
		}

		if w.ms >= c.Pulse.PeriodMs {
			return fmt.Errorf(
				"%s pulse width %g ms must be shorter than the %g ms period",
				w.name, w.ms, c.Pulse.PeriodMs)
		}
	}

	if c.Monitor.Port != 0 && c.Monitor.Port < 1000 {
		return fmt.Errorf("monitor port must be at least 1000, got %d",
			c.Monitor.Port)
	}

	return nil
}

// ClockFreq returns the board clock as a simulation frequency.
func (c *Config) ClockFreq() sim.Freq {
	return sim.Freq(c.Board.ClockHz) * sim.Hz
}

// PushDuration returns the actuation phase hold time.
func (c *Config) PushDuration() sim.VTimeInSec {
	return sim.VTimeInSec(c.Board.PushDurationMs / 1000)
}

// PulsePeriod returns the actuator pulse period.
func (c *Config) PulsePeriod() sim.VTimeInSec {
	return sim.VTimeInSec(c.Pulse.PeriodMs / 1000)
}

// PulseWidths returns the actuator pulse widths for the stop, push, and
// revert codes.
func (c *Config) PulseWidths() (stop, push, revert sim.VTimeInSec) {
	return sim.VTimeInSec(c.Pulse.StopMs / 1000),
		sim.VTimeInSec(c.Pulse.PushMs / 1000),
		sim.VTimeInSec(c.Pulse.RevertMs / 1000)
}

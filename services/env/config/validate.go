package config

import (
	"fmt"
	"slices"

	"envsensor-go/sensor"
	"envsensor-go/services/env/internal/enverr"
)

// Drivers lists the driver names a sensor entry may use.
var Drivers = []string{"aht20", "bme280", "shtc3"}

// levels mirrors diag.Severity names.
var levels = []string{"error", "warning", "info", "debug"}

// Validate checks a normalized configuration. It does not mutate it.
func Validate(cfg *Config) error {
	if !slices.Contains(levels, cfg.Log.Level) {
		return fmt.Errorf("log level %q: %w", cfg.Log.Level, enverr.ErrInvalidValue)
	}
	seen := make(map[string]bool, len(cfg.Sensors))
	for i, s := range cfg.Sensors {
		if s.ID == "" {
			return fmt.Errorf("sensor %d: %w", i, enverr.ErrMissingID)
		}
		if seen[s.ID] {
			return fmt.Errorf("sensor %q: %w", s.ID, enverr.ErrDuplicateID)
		}
		seen[s.ID] = true
		if !slices.Contains(Drivers, s.Driver) {
			return fmt.Errorf("sensor %q: driver %q: %w", s.ID, s.Driver, enverr.ErrUnknownDriver)
		}
		if s.Interval <= 0 {
			return fmt.Errorf("sensor %q: %w", s.ID, enverr.ErrInvalidInterval)
		}
		if _, _, err := s.Resolve(); err != nil {
			return fmt.Errorf("sensor %q: %w", s.ID, err)
		}
	}
	return nil
}

// Resolve converts the textual settings of s. The returned Configuration
// carries sample rate and DSP with every other field NO_CHANGE; the mode is
// returned separately because the service drives it on every poll.
func (s SensorConfig) Resolve() (sensor.Configuration, sensor.Mode, error) {
	cfg := sensor.Unchanged()
	v, err := sensor.ParseValue(s.Samplerate)
	if err != nil {
		return cfg, sensor.ModeInvalid, fmt.Errorf("samplerate %q: %w: %w", s.Samplerate, enverr.ErrInvalidValue, err)
	}
	cfg.Samplerate = v

	fn, err := sensor.ParseDSPFunction(s.DSP.Function)
	if err != nil {
		return cfg, sensor.ModeInvalid, fmt.Errorf("dsp %v: %w: %w", s.DSP.Function, enverr.ErrInvalidValue, err)
	}
	if fn != sensor.DSPLast && !sensor.ValidDSPParameter(s.DSP.Parameter) {
		return cfg, sensor.ModeInvalid, fmt.Errorf("dsp parameter %d: %w", s.DSP.Parameter, enverr.ErrInvalidValue)
	}
	cfg.DSPFunction = fn
	cfg.DSPParameter = sensor.Literal(s.DSP.Parameter)

	m, err := sensor.ParseMode(s.Mode)
	if err != nil {
		return cfg, sensor.ModeInvalid, fmt.Errorf("mode %q: %w: %w", s.Mode, enverr.ErrInvalidValue, err)
	}
	return cfg, m, nil
}

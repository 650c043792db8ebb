// Package config loads the sensor service configuration from YAML.
//
// Parse runs the passes in order: decode, Normalize, Validate. Resolve then
// turns one sensor entry into the values an Adapter takes.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"envsensor-go/x/strx"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log     LogConfig      `yaml:"log"`
	Sensors []SensorConfig `yaml:"sensors"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// ---- SENSOR ----

type SensorConfig struct {
	ID       string        `yaml:"id"`
	Driver   string        `yaml:"driver"`
	Bus      string        `yaml:"bus"`
	Addr     uint16        `yaml:"addr"` // 0 selects the driver default
	Interval time.Duration `yaml:"interval"`

	Samplerate string    `yaml:"samplerate"`
	DSP        DSPConfig `yaml:"dsp"`
	Mode       string    `yaml:"mode"`
}

type DSPConfig struct {
	Function  []string `yaml:"function"`
	Parameter uint8    `yaml:"parameter"`
}

// Defaults applied by Normalize.
const (
	DefaultBus        = "i2c0"
	DefaultInterval   = 2 * time.Second
	DefaultLevel      = "info"
	DefaultSamplerate = "no_change"
	DefaultMode       = "single_blocking"
)

// Load reads and parses a file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes raw YAML, fills defaults and validates the result. Unknown
// keys are errors.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	Normalize(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize fills unset fields with their defaults.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Log.Level = strx.Coalesce(cfg.Log.Level, DefaultLevel)
	for i := range cfg.Sensors {
		s := &cfg.Sensors[i]
		s.Bus = strx.Coalesce(s.Bus, DefaultBus)
		if s.Interval == 0 {
			s.Interval = DefaultInterval
		}
		s.Samplerate = strx.Coalesce(s.Samplerate, DefaultSamplerate)
		if len(s.DSP.Function) == 0 {
			s.DSP.Function = []string{"last"}
		}
		if s.DSP.Parameter == 0 {
			s.DSP.Parameter = 1
		}
		s.Mode = strx.Coalesce(s.Mode, DefaultMode)
	}
}

package config

import "fmt"

// Compiled-in configurations, keyed by board name.

const cfgPico = `
log:
  level: info
sensors:
  - id: env0
    driver: bme280
    bus: i2c0
    interval: 2s
    samplerate: "1"
    dsp:
      function: [iir, os]
      parameter: 4
    mode: continuous
  - id: env1
    driver: aht20
    bus: i2c0
    interval: 5s
`

const cfgHost = `
log:
  level: debug
sensors:
  - id: env0
    driver: bme280
    interval: 1s
    samplerate: max
    dsp:
      function: [os]
      parameter: 2
    mode: single_blocking
  - id: env1
    driver: aht20
    interval: 2s
    mode: single
  - id: env2
    driver: shtc3
    interval: 2s
`

var embeddedConfigs = map[string]string{
	"pico": cfgPico,
	"host": cfgHost,
}

// EmbeddedLookup resolves a compiled-in configuration. Tests and boards
// with generated configs may replace it.
var EmbeddedLookup = func(board string) ([]byte, bool) {
	s, ok := embeddedConfigs[board]
	return []byte(s), ok
}

// Embedded parses the compiled-in configuration for board.
func Embedded(board string) (*Config, error) {
	raw, ok := EmbeddedLookup(board)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("config: no embedded config for board %q", board)
	}
	return Parse(raw)
}

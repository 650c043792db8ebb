package sensor

import (
	"errors"
	"strings"

	"envsensor-go/x/strconvx"
)

var (
	ErrBadValue = errors.New("bad_value")
	ErrBadMode  = errors.New("bad_mode")
	ErrBadDSP   = errors.New("bad_dsp")
)

var valueWords = map[string]Value{
	"default":       Default,
	"min":           Min,
	"max":           Max,
	"sleep":         Sleep,
	"stop":          Stop,
	"single":        Single,
	"continuous":    Continuous,
	"on_data_ready": OnDataReady,
	"on_interrupt":  OnInterrupt,
	"no_change":     NoChange,
}

// ParseValue parses a configuration value from text: a literal in
// [1, 200] or a sentinel name such as "min" or "no_change".
func ParseValue(s string) (Value, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if v, ok := valueWords[s]; ok {
		return v, nil
	}
	n, err := strconvx.Atoi(s)
	if err != nil || n < LiteralMin || n > LiteralMax {
		return Invalid, ErrBadValue
	}
	return Literal(uint8(n)), nil
}

// ParseMode parses an operating mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sleep":
		return ModeSleep, nil
	case "single", "single_async":
		return ModeSingleAsync, nil
	case "single_blocking":
		return ModeSingleBlocking, nil
	case "continuous":
		return ModeContinuous, nil
	}
	return ModeInvalid, ErrBadMode
}

// ParseDSPFunction combines DSP stage names into a function set.
func ParseDSPFunction(names []string) (DSPFunction, error) {
	var fn DSPFunction
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "last":
			fn |= DSPLast
		case "iir":
			fn |= DSPIIR
		case "os", "oversampling":
			fn |= DSPOS
		case "high_pass":
			fn |= DSPHighPass
		case "low_pass":
			fn |= DSPLowPass
		default:
			return 0, ErrBadDSP
		}
	}
	return fn, nil
}

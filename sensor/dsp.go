package sensor

import "envsensor-go/errcode"

// DSPFunction is a bitmask of signal-processing stages.
type DSPFunction uint8

const (
	DSPIIR      DSPFunction = 0x01
	DSPOS       DSPFunction = 0x02
	DSPHighPass DSPFunction = 0x04
	DSPLowPass  DSPFunction = 0x08
	// DSPLast takes the newest sample with no filtering. It is exclusive.
	DSPLast DSPFunction = 0x80
)

// Has reports whether every bit of f is set in d.
func (d DSPFunction) Has(f DSPFunction) bool { return f != 0 && d&f == f }

// ValidDSPParameter reports whether p is an accepted filter depth.
func ValidDSPParameter(p uint8) bool {
	switch p {
	case 1, 2, 4, 8, 16:
		return true
	}
	return false
}

// CheckDSP validates a DSP request against the functions a backend supports.
// LAST accepts any parameter; every other request needs a depth from
// {1, 2, 4, 8, 16} and only functions drawn from supported. An empty set
// passes and means the unfiltered baseline.
func CheckDSP(fn DSPFunction, param uint8, supported DSPFunction) errcode.Status {
	if fn == DSPLast {
		return errcode.Success
	}
	if !ValidDSPParameter(param) {
		return errcode.NotSupported
	}
	if fn&^(supported&^DSPLast) != 0 {
		return errcode.NotSupported
	}
	return errcode.Success
}

// String returns the display phrase for the function set.
func (d DSPFunction) String() string {
	switch d {
	case DSPLast:
		return "Last"
	case DSPIIR:
		return "Infinite Impulse Response"
	case DSPOS:
		return "Oversampling"
	case DSPHighPass:
		return "High pass"
	case DSPLowPass:
		return "Lowpass"
	case DSPIIR | DSPOS:
		return "Infinite Impulse Response + Oversampling"
	}
	return "Unknown"
}

// Package sensor defines the generic capability contract shared by every
// environmental sensor backend: configuration values, DSP and operating-mode
// vocabulary, the backend Driver interface and the Adapter callers use.
package sensor

import (
	"envsensor-go/x/conv"
)

// Literal band for configuration values.
const (
	LiteralMin = 1
	LiteralMax = 200
)

// Sentinel is a reserved, non-literal configuration meaning.
type Sentinel uint8

// Sentinels and their wire codes. Codes are outside the literal band.
const (
	SentinelDefault        Sentinel = 0x00
	SentinelInvalid        Sentinel = 0xE0
	SentinelNotImplemented Sentinel = 0xE1
	SentinelNotSupported   Sentinel = 0xE2
	SentinelMin            Sentinel = 0xF0
	SentinelMax            Sentinel = 0xF1
	SentinelSleep          Sentinel = 0xF2
	SentinelSingle         Sentinel = 0xF3
	SentinelContinuous     Sentinel = 0xF4
	SentinelOnDataReady    Sentinel = 0xF6
	SentinelOnInterrupt    Sentinel = 0xF7
	SentinelNoChange       Sentinel = 0xFF
)

var sentinelNames = map[Sentinel]string{
	SentinelDefault:        "DEFAULT",
	SentinelInvalid:        "Invalid",
	SentinelNotImplemented: "Not implemented",
	SentinelNotSupported:   "Not supported",
	SentinelMin:            "MIN",
	SentinelMax:            "MAX",
	SentinelSleep:          "Sleep",
	SentinelSingle:         "Single",
	SentinelContinuous:     "CONTINUOUS",
	SentinelOnDataReady:    "On data",
	SentinelOnInterrupt:    "On interrupt",
	SentinelNoChange:       "No change",
}

// String returns the sentinel mnemonic, or "Unknown" for an unassigned code.
func (s Sentinel) String() string {
	if n, ok := sentinelNames[s]; ok {
		return n
	}
	return "Unknown"
}

// Class is the variant tag of a Value.
type Class uint8

const (
	ClassSentinel Class = iota
	ClassLiteral
	ClassUnknown
)

// Value is a configuration field (sample rate, resolution, scale, DSP
// parameter, mode): either a literal count in [1, 200], a Sentinel, or an
// unknown code that must never be read as a number.
//
// The zero Value is the DEFAULT sentinel.
type Value struct {
	class Class
	code  uint8
}

// Predefined sentinel values.
var (
	Default        = Value{ClassSentinel, uint8(SentinelDefault)}
	Invalid        = Value{ClassSentinel, uint8(SentinelInvalid)}
	NotImplemented = Value{ClassSentinel, uint8(SentinelNotImplemented)}
	NotSupported   = Value{ClassSentinel, uint8(SentinelNotSupported)}
	Min            = Value{ClassSentinel, uint8(SentinelMin)}
	Max            = Value{ClassSentinel, uint8(SentinelMax)}
	Sleep          = Value{ClassSentinel, uint8(SentinelSleep)}
	Single         = Value{ClassSentinel, uint8(SentinelSingle)}
	Continuous     = Value{ClassSentinel, uint8(SentinelContinuous)}
	OnDataReady    = Value{ClassSentinel, uint8(SentinelOnDataReady)}
	OnInterrupt    = Value{ClassSentinel, uint8(SentinelOnInterrupt)}
	NoChange       = Value{ClassSentinel, uint8(SentinelNoChange)}

	// Stop asks a sampler to stop. Stopping is expressed through the
	// operating mode, so backends reject it as a sample rate.
	Stop = Sleep
)

// Literal returns the literal value n. Out-of-band n yields a Value that is
// classified from its raw code instead.
func Literal(n uint8) Value { return FromRaw(n) }

// FromRaw decodes a one-byte wire code.
func FromRaw(code uint8) Value {
	if code >= LiteralMin && code <= LiteralMax {
		return Value{ClassLiteral, code}
	}
	if _, ok := sentinelNames[Sentinel(code)]; ok {
		return Value{ClassSentinel, code}
	}
	return Value{ClassUnknown, code}
}

// Of wraps a sentinel as a Value.
func Of(s Sentinel) Value { return FromRaw(uint8(s)) }

// Raw returns the one-byte wire code.
func (v Value) Raw() uint8 { return v.code }

// Classify returns the variant tag of v.
func Classify(v Value) Class { return v.class }

// Literal returns the literal count and true when v is in the literal band.
func (v Value) Literal() (uint8, bool) {
	if Classify(v) == ClassLiteral {
		return v.code, true
	}
	return 0, false
}

// Sentinel returns the sentinel and true when v is a known sentinel.
func (v Value) Sentinel() (Sentinel, bool) {
	if Classify(v) == ClassSentinel {
		return Sentinel(v.code), true
	}
	return 0, false
}

// Is reports whether v is the sentinel s.
func (v Value) Is(s Sentinel) bool {
	got, ok := v.Sentinel()
	return ok && got == s
}

// AppendText appends the display form of v to dst without allocating.
func (v Value) AppendText(dst []byte) []byte {
	switch Classify(v) {
	case ClassLiteral:
		var buf [3]byte
		return append(dst, conv.Utoa(buf[:], uint64(v.code))...)
	case ClassSentinel:
		return append(dst, Sentinel(v.code).String()...)
	default:
		return append(dst, "Unknown"...)
	}
}

// String renders v for display: the decimal numeral for literals, the fixed
// mnemonic for sentinels and "Unknown" otherwise. It is total.
func (v Value) String() string {
	var buf [16]byte
	return string(v.AppendText(buf[:0]))
}

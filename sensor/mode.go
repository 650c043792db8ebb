package sensor

import "envsensor-go/errcode"

// Mode is a generic operating mode.
type Mode uint8

const (
	ModeSleep Mode = iota
	ModeSingleAsync
	ModeSingleBlocking
	ModeContinuous
	// ModeInvalid is reported for a device mode with no generic meaning.
	// It is never accepted by SetMode.
	ModeInvalid
)

func (m Mode) String() string {
	switch m {
	case ModeSleep:
		return "sleep"
	case ModeSingleAsync:
		return "single"
	case ModeSingleBlocking:
		return "single_blocking"
	case ModeContinuous:
		return "continuous"
	}
	return "invalid"
}

// Value returns the configuration value used to report m in a snapshot.
func (m Mode) Value() Value {
	switch m {
	case ModeSleep:
		return Sleep
	case ModeSingleAsync, ModeSingleBlocking:
		return Single
	case ModeContinuous:
		return Continuous
	}
	return Invalid
}

// ModeFromValue is the inverse of Mode.Value. Single maps to the blocking
// form. NoChange and unknown values report false.
func ModeFromValue(v Value) (Mode, bool) {
	s, ok := v.Sentinel()
	if !ok {
		return ModeInvalid, false
	}
	switch s {
	case SentinelSleep:
		return ModeSleep, true
	case SentinelSingle:
		return ModeSingleBlocking, true
	case SentinelContinuous:
		return ModeContinuous, true
	}
	return ModeInvalid, false
}

// ModeTable maps generic modes to a device's mode codes. Single-shot modes
// share one device code; the blocking form only adds a wait after it.
type ModeTable[T comparable] struct {
	Sleep      T
	Single     T
	Continuous T
	// HasContinuous is false for devices without a free-running mode.
	HasContinuous bool
}

// Encode returns the device code for m and whether the caller must block
// until the conversion settles.
func (t ModeTable[T]) Encode(m Mode) (code T, blocking bool, st errcode.Status) {
	switch m {
	case ModeSleep:
		return t.Sleep, false, errcode.Success
	case ModeSingleAsync:
		return t.Single, false, errcode.Success
	case ModeSingleBlocking:
		return t.Single, true, errcode.Success
	case ModeContinuous:
		if !t.HasContinuous {
			return code, false, errcode.NotSupported
		}
		return t.Continuous, false, errcode.Success
	}
	return code, false, errcode.InvalidParam
}

// Decode maps a device code back. Unknown codes yield ModeInvalid; that is
// a reading, not an error.
func (t ModeTable[T]) Decode(code T) Mode {
	switch {
	case code == t.Sleep:
		return ModeSleep
	case code == t.Single:
		return ModeSingleAsync
	case t.HasContinuous && code == t.Continuous:
		return ModeContinuous
	}
	return ModeInvalid
}

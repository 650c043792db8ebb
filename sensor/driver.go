package sensor

import (
	"math"

	"envsensor-go/errcode"
)

// Environmental is one compensated reading. Fields a backend cannot
// measure are NaN.
type Environmental struct {
	Temperature float32 // °C
	Humidity    float32 // %RH
	Pressure    float32 // Pa
}

// Unset returns a reading with every field NaN.
func Unset() Environmental {
	nan := float32(math.NaN())
	return Environmental{Temperature: nan, Humidity: nan, Pressure: nan}
}

// Trigger selects when an interrupt line fires.
type Trigger uint8

const (
	TriggerNone Trigger = iota
	TriggerOnDataReady
	TriggerAbove
	TriggerBelow
)

// InterruptConfig describes one interrupt line.
type InterruptConfig struct {
	Threshold float32
	Trigger   Trigger
	DSP       DSPFunction
}

// Configuration is a snapshot of the settings a backend reports.
type Configuration struct {
	Samplerate   Value
	Resolution   Value
	Scale        Value
	DSPFunction  DSPFunction
	DSPParameter Value
	Mode         Value
}

// Unchanged returns a Configuration whose every field is NO_CHANGE.
func Unchanged() Configuration {
	return Configuration{
		Samplerate:   NoChange,
		Resolution:   NoChange,
		Scale:        NoChange,
		DSPParameter: NoChange,
		Mode:         NoChange,
	}
}

// Driver is the contract a vendor backend implements. Callers do not use a
// Driver directly; they go through an Adapter.
//
// Every method returns a Status. Capabilities a backend lacks return
// NotSupported; ones it has not implemented return NotImplemented.
type Driver interface {
	Name() string

	Init() errcode.Status
	SelfTest() errcode.Status
	SoftReset() errcode.Status

	Samplerate() (Value, errcode.Status)
	SetSamplerate(Value) errcode.Status
	Resolution() (Value, errcode.Status)
	SetResolution(Value) errcode.Status
	Scale() (Value, errcode.Status)
	SetScale(Value) errcode.Status

	DSP() (DSPFunction, Value, errcode.Status)
	SetDSP(fn DSPFunction, param uint8) errcode.Status

	Mode() (Mode, errcode.Status)
	SetMode(Mode) errcode.Status

	Interrupt(n uint8) (InterruptConfig, errcode.Status)
	SetInterrupt(n uint8, cfg InterruptConfig) errcode.Status

	// Data fills out with the latest sample. out is never nil.
	Data(out *Environmental) errcode.Status
}

package sensor

import "envsensor-go/errcode"

// Adapter is the capability table for one backend. Until Init succeeds it
// is unbound and every capability call returns InvalidState without
// touching the device.
//
// An Adapter is not safe for concurrent use.
type Adapter struct {
	drv   Driver
	bound bool
}

// NewAdapter wraps drv. It does not touch the device.
func NewAdapter(drv Driver) *Adapter { return &Adapter{drv: drv} }

// Name returns the backend name, or "" for an adapter without one.
func (a *Adapter) Name() string {
	if a.drv == nil {
		return ""
	}
	return a.drv.Name()
}

// Bound reports whether the last Init succeeded.
func (a *Adapter) Bound() bool { return a.bound }

// Init brings the device up: backend init, self-test, soft reset and the
// baseline DSP, in that order. Every step runs whatever the previous ones
// returned. The table is bound only when the combined status is Success.
func (a *Adapter) Init() errcode.Status {
	if a.drv == nil {
		return errcode.Null
	}
	st := a.drv.Init()
	st |= a.drv.SelfTest()
	st |= a.drv.SoftReset()
	st |= a.drv.SetDSP(DSPLast, 1)
	a.bound = st == errcode.Success
	return st
}

// Uninit soft-resets the device. The table stays bound.
func (a *Adapter) Uninit() errcode.Status {
	if !a.bound {
		return errcode.InvalidState
	}
	return a.drv.SoftReset()
}

func (a *Adapter) Samplerate() (Value, errcode.Status) {
	if !a.bound {
		return Invalid, errcode.InvalidState
	}
	return a.drv.Samplerate()
}

func (a *Adapter) SetSamplerate(v Value) errcode.Status {
	if !a.bound {
		return errcode.InvalidState
	}
	return a.drv.SetSamplerate(v)
}

func (a *Adapter) Resolution() (Value, errcode.Status) {
	if !a.bound {
		return Invalid, errcode.InvalidState
	}
	return a.drv.Resolution()
}

func (a *Adapter) SetResolution(v Value) errcode.Status {
	if !a.bound {
		return errcode.InvalidState
	}
	return a.drv.SetResolution(v)
}

func (a *Adapter) Scale() (Value, errcode.Status) {
	if !a.bound {
		return Invalid, errcode.InvalidState
	}
	return a.drv.Scale()
}

func (a *Adapter) SetScale(v Value) errcode.Status {
	if !a.bound {
		return errcode.InvalidState
	}
	return a.drv.SetScale(v)
}

func (a *Adapter) DSP() (DSPFunction, Value, errcode.Status) {
	if !a.bound {
		return 0, Invalid, errcode.InvalidState
	}
	return a.drv.DSP()
}

func (a *Adapter) SetDSP(fn DSPFunction, param uint8) errcode.Status {
	if !a.bound {
		return errcode.InvalidState
	}
	return a.drv.SetDSP(fn, param)
}

func (a *Adapter) Mode() (Mode, errcode.Status) {
	if !a.bound {
		return ModeInvalid, errcode.InvalidState
	}
	return a.drv.Mode()
}

// SetMode changes the operating mode. ModeSingleBlocking returns once the
// conversion has settled, so the next DataGet sees the new sample.
func (a *Adapter) SetMode(m Mode) errcode.Status {
	if !a.bound {
		return errcode.InvalidState
	}
	if m == ModeInvalid {
		return errcode.InvalidParam
	}
	return a.drv.SetMode(m)
}

func (a *Adapter) Interrupt(n uint8) (InterruptConfig, errcode.Status) {
	if !a.bound {
		return InterruptConfig{}, errcode.InvalidState
	}
	return a.drv.Interrupt(n)
}

func (a *Adapter) SetInterrupt(n uint8, cfg InterruptConfig) errcode.Status {
	if !a.bound {
		return errcode.InvalidState
	}
	return a.drv.SetInterrupt(n, cfg)
}

// DataGet writes the latest sample into out.
func (a *Adapter) DataGet(out *Environmental) errcode.Status {
	if !a.bound {
		return errcode.InvalidState
	}
	if out == nil {
		return errcode.Null
	}
	return a.drv.Data(out)
}

// Configuration reads every setting back. Getters reporting NotSupported or
// NotImplemented fill the matching sentinel and do not count as errors.
func (a *Adapter) Configuration() (Configuration, errcode.Status) {
	if !a.bound {
		return Configuration{}, errcode.InvalidState
	}
	var (
		cfg   Configuration
		st, s errcode.Status
	)
	cfg.Samplerate, s = a.drv.Samplerate()
	cfg.Samplerate, s = absent(cfg.Samplerate, s)
	st |= s

	cfg.Resolution, s = a.drv.Resolution()
	cfg.Resolution, s = absent(cfg.Resolution, s)
	st |= s

	cfg.Scale, s = a.drv.Scale()
	cfg.Scale, s = absent(cfg.Scale, s)
	st |= s

	cfg.DSPFunction, cfg.DSPParameter, s = a.drv.DSP()
	if errcode.Optional(s) {
		cfg.DSPFunction = 0
	}
	cfg.DSPParameter, s = absent(cfg.DSPParameter, s)
	st |= s

	m, s := a.drv.Mode()
	cfg.Mode, s = absent(m.Value(), s)
	st |= s

	return cfg, st
}

func absent(v Value, s errcode.Status) (Value, errcode.Status) {
	if !errcode.Optional(s) {
		return v, s
	}
	if s.Has(errcode.NotImplemented) {
		return NotImplemented, errcode.Success
	}
	return NotSupported, errcode.Success
}

// Configure applies cfg in order: sample rate, resolution, scale, DSP and
// mode. NoChange fields are skipped. Every step runs and the statuses are
// combined. On return cfg holds what the device actually committed.
func (a *Adapter) Configure(cfg *Configuration) errcode.Status {
	if !a.bound {
		return errcode.InvalidState
	}
	if cfg == nil {
		return errcode.Null
	}
	var st errcode.Status
	if !cfg.Samplerate.Is(SentinelNoChange) {
		st |= a.drv.SetSamplerate(cfg.Samplerate)
	}
	if !cfg.Resolution.Is(SentinelNoChange) {
		st |= a.drv.SetResolution(cfg.Resolution)
	}
	if !cfg.Scale.Is(SentinelNoChange) {
		st |= a.drv.SetScale(cfg.Scale)
	}
	if !cfg.DSPParameter.Is(SentinelNoChange) {
		st |= a.drv.SetDSP(cfg.DSPFunction, cfg.DSPParameter.Raw())
	}
	if !cfg.Mode.Is(SentinelNoChange) {
		if m, ok := ModeFromValue(cfg.Mode); ok {
			st |= a.drv.SetMode(m)
		} else {
			st |= errcode.InvalidParam
		}
	}
	got, rst := a.Configuration()
	*cfg = got
	return st | rst
}

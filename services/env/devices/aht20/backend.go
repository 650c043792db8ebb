package aht20dev

import (
	"errors"
	"time"

	"envsensor-go/drivers/aht20"
	"envsensor-go/errcode"
	"envsensor-go/sensor"

	"tinygo.org/x/drivers"
)

// op is what a mode asks of the device. The AHT20 has no mode register;
// it idles between triggered conversions.
type op uint8

const (
	opIdle op = iota
	opTrigger
)

var modes = sensor.ModeTable[op]{Sleep: opIdle, Single: opTrigger}

// Config holds optional backend settings.
type Config struct {
	// Addr defaults to 0x38.
	Addr uint16
	// Delay is used for reset, calibration and conversion waits.
	Delay func(time.Duration)
}

// Backend implements sensor.Driver for an AHT20. Only single conversions
// are available and there is no configurable filtering.
type Backend struct {
	dev     aht20.Device
	pending bool
	have    bool
}

var _ sensor.Driver = (*Backend)(nil)

func New(bus drivers.I2C, cfg Config) *Backend {
	dev := aht20.New(bus)
	dev.Configure(aht20.Config{Address: cfg.Addr, Delay: cfg.Delay})
	return &Backend{dev: dev}
}

func (b *Backend) Name() string { return "aht20" }

func (b *Backend) Addr() uint16 { return b.dev.Address }

func classify(err error) sensor.Result {
	switch {
	case err == nil:
		return sensor.ResultOK
	case errors.Is(err, aht20.ErrNilBus):
		return sensor.ResultNull
	case errors.Is(err, aht20.ErrNotCalibrated):
		return sensor.ResultSelfTest
	}
	// Bus errors, timeouts and bad frames.
	return sensor.ResultCommFail
}

func status(err error) errcode.Status { return sensor.StatusOf(err, classify) }

func (b *Backend) Init() errcode.Status { return status(b.dev.Init()) }

// SelfTest checks that the calibration bit is set.
func (b *Backend) SelfTest() errcode.Status {
	ok, err := b.dev.Calibrated()
	if err == nil && !ok {
		err = aht20.ErrNotCalibrated
	}
	return status(err)
}

func (b *Backend) SoftReset() errcode.Status {
	b.pending = false
	return status(b.dev.Reset())
}

func (b *Backend) Samplerate() (sensor.Value, errcode.Status) {
	return sensor.NotSupported, errcode.NotSupported
}

func (b *Backend) SetSamplerate(v sensor.Value) errcode.Status {
	if v.Is(sensor.SentinelNoChange) {
		return errcode.Success
	}
	return errcode.NotSupported
}

func (b *Backend) Resolution() (sensor.Value, errcode.Status) {
	return sensor.NotSupported, errcode.NotSupported
}

func (b *Backend) SetResolution(sensor.Value) errcode.Status { return errcode.NotSupported }

func (b *Backend) Scale() (sensor.Value, errcode.Status) {
	return sensor.NotSupported, errcode.NotSupported
}

func (b *Backend) SetScale(sensor.Value) errcode.Status { return errcode.NotSupported }

// SetDSP accepts only the unfiltered baseline. Nothing is written.
func (b *Backend) SetDSP(fn sensor.DSPFunction, param uint8) errcode.Status {
	return sensor.CheckDSP(fn, param, 0)
}

func (b *Backend) DSP() (sensor.DSPFunction, sensor.Value, errcode.Status) {
	return 0, sensor.NotImplemented, errcode.NotImplemented
}

// Mode reports ModeSingleAsync while a triggered conversion has not been
// collected.
func (b *Backend) Mode() (sensor.Mode, errcode.Status) {
	if b.pending {
		return sensor.ModeSingleAsync, errcode.Success
	}
	return sensor.ModeSleep, errcode.Success
}

func (b *Backend) SetMode(m sensor.Mode) errcode.Status {
	code, blocking, st := modes.Encode(m)
	if st != errcode.Success {
		return st
	}
	switch {
	case code == opIdle:
		b.pending = false
		return errcode.Success
	case blocking:
		b.pending = false
		var s aht20.Sample
		if err := b.dev.Read(&s); err != nil {
			return status(err)
		}
		b.have = true
		return errcode.Success
	}
	if err := b.dev.Trigger(); err != nil {
		return status(err)
	}
	b.pending = true
	return errcode.Success
}

func (b *Backend) Interrupt(uint8) (sensor.InterruptConfig, errcode.Status) {
	return sensor.InterruptConfig{}, errcode.NotSupported
}

func (b *Backend) SetInterrupt(uint8, sensor.InterruptConfig) errcode.Status {
	return errcode.NotSupported
}

// Data collects a pending conversion if it is ready and reports the latest
// sample. Before the first conversion every field is NaN. Pressure is
// always NaN.
func (b *Backend) Data(out *sensor.Environmental) errcode.Status {
	if b.pending {
		switch err := b.dev.Collect(nil); err {
		case nil:
			b.pending, b.have = false, true
		case aht20.ErrNotReady:
		default:
			return status(err)
		}
	}
	*out = sensor.Unset()
	if b.have {
		s := b.dev.Last()
		out.Temperature = s.Celsius()
		out.Humidity = s.RelHumidity()
	}
	return errcode.Success
}

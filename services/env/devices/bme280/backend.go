package bme280dev

import (
	"errors"
	"time"

	"envsensor-go/drivers/bme280"
	"envsensor-go/errcode"
	"envsensor-go/sensor"

	"tinygo.org/x/drivers"
	tbme "tinygo.org/x/drivers/bme280"
)

// SettleDelay is how long a blocking single conversion waits before
// returning. It covers the slowest oversampling combination.
const SettleDelay = 100 * time.Millisecond

// rates maps sample rates to normal-mode standby times, slowest first.
var rates = sensor.Tiers[tbme.Period]{
	List: []sensor.Tier[tbme.Period]{
		{Code: tbme.Period1000ms, Rate: 1, Period: time.Second},
		{Code: tbme.Period500ms, Rate: 2, Period: 500 * time.Millisecond},
		{Code: tbme.Period250ms, Rate: 4, Period: 250 * time.Millisecond},
		{Code: tbme.Period125ms, Rate: 8, Period: 125 * time.Millisecond},
		{Code: tbme.Period62_5ms, Rate: 16, Period: 62500 * time.Microsecond},
		{Code: tbme.Period20ms, Rate: 50, Period: 20 * time.Millisecond},
		{Code: tbme.Period10ms, Rate: 100, Period: 10 * time.Millisecond},
		{Code: tbme.Period0_5ms, Rate: 200, Period: 500 * time.Microsecond},
	},
	Default: 7,
}

var modes = sensor.ModeTable[tbme.Mode]{
	Sleep:         tbme.ModeSleep,
	Single:        tbme.ModeForced,
	Continuous:    tbme.ModeNormal,
	HasContinuous: true,
}

// supportedDSP is the set SetDSP accepts besides LAST.
const supportedDSP = sensor.DSPIIR | sensor.DSPOS

// Config holds optional backend settings.
type Config struct {
	// Addr defaults to 0x76.
	Addr uint16
	// Delay is used for bring-up waits and SINGLE_BLOCKING. Defaults to
	// time.Sleep.
	Delay func(time.Duration)
}

// Backend implements sensor.Driver for a BME280.
type Backend struct {
	dev   bme280.Device
	delay func(time.Duration)
}

var _ sensor.Driver = (*Backend)(nil)

// New creates a backend. It does not touch the bus.
func New(bus drivers.I2C, cfg Config) *Backend {
	if cfg.Delay == nil {
		cfg.Delay = time.Sleep
	}
	dev := bme280.New(bus)
	dev.Configure(bme280.Config{Address: cfg.Addr, Delay: cfg.Delay})
	return &Backend{dev: dev, delay: cfg.Delay}
}

func (b *Backend) Name() string { return "bme280" }

// Addr returns the configured I2C address.
func (b *Backend) Addr() uint16 { return b.dev.Address }

func classify(err error) sensor.Result {
	switch {
	case err == nil:
		return sensor.ResultOK
	case errors.Is(err, bme280.ErrNotFound):
		return sensor.ResultNotFound
	case errors.Is(err, bme280.ErrNilBus):
		return sensor.ResultNull
	case errors.Is(err, bme280.ErrComm):
		return sensor.ResultCommFail
	case errors.Is(err, bme280.ErrSelfTest):
		return sensor.ResultSelfTest
	}
	return sensor.ResultOther
}

func status(err error) errcode.Status { return sensor.StatusOf(err, classify) }

func (b *Backend) Init() errcode.Status      { return status(b.dev.Init()) }
func (b *Backend) SelfTest() errcode.Status  { return status(b.dev.SelfTest()) }
func (b *Backend) SoftReset() errcode.Status { return status(b.dev.SoftReset()) }

// Samplerate reports the rate implied by the standby time.
func (b *Backend) Samplerate() (sensor.Value, errcode.Status) {
	s, err := b.dev.ReadSettings()
	if err != nil {
		return sensor.Invalid, status(err)
	}
	v, _ := rates.Lookup(s.Period)
	return v, errcode.Success
}

func (b *Backend) SetSamplerate(v sensor.Value) errcode.Status {
	if v.Is(sensor.SentinelNoChange) {
		return errcode.Success
	}
	p, st := rates.Quantize(v)
	if st != errcode.Success {
		return st
	}
	s := b.dev.Settings()
	s.Period = p
	return status(b.dev.ApplySettings(s))
}

func (b *Backend) Resolution() (sensor.Value, errcode.Status) {
	return sensor.NotSupported, errcode.NotSupported
}

func (b *Backend) SetResolution(sensor.Value) errcode.Status { return errcode.NotSupported }

func (b *Backend) Scale() (sensor.Value, errcode.Status) {
	return sensor.NotSupported, errcode.NotSupported
}

func (b *Backend) SetScale(sensor.Value) errcode.Status { return errcode.NotSupported }

// depth <-> register code. Oversampling code 0 skips the channel; filter
// code 0 is the filter off, which is a depth of 1.
func oversampling(depth uint8) tbme.Oversampling {
	return tbme.Oversampling(log2(depth) + 1)
}

func coefficient(depth uint8) tbme.FilterCoefficient {
	return tbme.FilterCoefficient(log2(depth))
}

func log2(depth uint8) uint8 {
	var n uint8
	for depth > 1 {
		depth >>= 1
		n++
	}
	return n
}

// SetDSP programs oversampling and the IIR filter together. LAST and the
// empty set restore the baseline: 1x oversampling on every channel and the
// filter off. A function left out of fn is reset to its baseline.
func (b *Backend) SetDSP(fn sensor.DSPFunction, param uint8) errcode.Status {
	if st := sensor.CheckDSP(fn, param, supportedDSP); st != errcode.Success {
		return st
	}
	s := b.dev.Settings()
	os, iir := tbme.Sampling1X, tbme.Coeff0
	if fn != sensor.DSPLast {
		if fn.Has(sensor.DSPOS) {
			os = oversampling(param)
		}
		if fn.Has(sensor.DSPIIR) {
			iir = coefficient(param)
		}
	}
	s.Temperature, s.Pressure, s.Humidity = os, os, os
	s.IIR = iir
	return status(b.dev.ApplySettings(s))
}

// DSP reads the filter and oversampling back. Settings SetDSP cannot
// produce, such as a skipped channel or mixed depths, are NOT_SUPPORTED.
func (b *Backend) DSP() (sensor.DSPFunction, sensor.Value, errcode.Status) {
	s, err := b.dev.ReadSettings()
	if err != nil {
		return 0, sensor.Invalid, status(err)
	}
	os := s.Temperature
	if os == tbme.SamplingOff || os != s.Pressure || os != s.Humidity || os > tbme.Sampling16X {
		return 0, sensor.NotSupported, errcode.NotSupported
	}
	osDepth := uint8(1) << (os - 1)
	iirDepth := uint8(1) << min(s.IIR, tbme.Coeff16)
	switch {
	case s.IIR == tbme.Coeff0 && os == tbme.Sampling1X:
		return sensor.DSPLast, sensor.Literal(1), errcode.Success
	case s.IIR == tbme.Coeff0:
		return sensor.DSPOS, sensor.Literal(osDepth), errcode.Success
	case os == tbme.Sampling1X:
		return sensor.DSPIIR, sensor.Literal(iirDepth), errcode.Success
	case osDepth == iirDepth:
		return sensor.DSPIIR | sensor.DSPOS, sensor.Literal(osDepth), errcode.Success
	}
	return 0, sensor.NotSupported, errcode.NotSupported
}

func (b *Backend) Mode() (sensor.Mode, errcode.Status) {
	m, err := b.dev.Mode()
	if err != nil {
		return sensor.ModeInvalid, status(err)
	}
	return modes.Decode(m), errcode.Success
}

// SetMode writes the power mode. ModeSingleBlocking starts a forced
// conversion and waits SettleDelay for it.
func (b *Backend) SetMode(m sensor.Mode) errcode.Status {
	code, blocking, st := modes.Encode(m)
	if st != errcode.Success {
		return st
	}
	if err := b.dev.SetMode(code); err != nil {
		return status(err)
	}
	if blocking {
		b.delay(SettleDelay)
	}
	return errcode.Success
}

func (b *Backend) Interrupt(uint8) (sensor.InterruptConfig, errcode.Status) {
	return sensor.InterruptConfig{}, errcode.NotSupported
}

func (b *Backend) SetInterrupt(uint8, sensor.InterruptConfig) errcode.Status {
	return errcode.NotSupported
}

// Data reads the data registers. Skipped channels are NaN.
func (b *Backend) Data(out *sensor.Environmental) errcode.Status {
	var s bme280.Sample
	if err := b.dev.Read(&s); err != nil {
		return status(err)
	}
	*out = sensor.Unset()
	if s.HasTemp {
		out.Temperature = s.Celsius()
	}
	if s.HasHumidity {
		out.Humidity = s.RelHumidity()
	}
	if s.HasPressure {
		out.Pressure = s.Pascal()
	}
	return errcode.Success
}

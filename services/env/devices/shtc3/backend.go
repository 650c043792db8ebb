package shtc3dev

import (
	"errors"
	"time"

	"envsensor-go/errcode"
	"envsensor-go/sensor"
	"envsensor-go/services/env/internal/drvshim"
	"envsensor-go/x/crcx"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/shtc3"
)

const cmdReadID = "\xEF\xC8"

var (
	errNotFound = errors.New("shtc3: unexpected id")
	errCRC      = errors.New("shtc3: crc mismatch")
)

type op uint8

const (
	opIdle op = iota
	opMeasure
)

// Conversions finish inside the measure transaction, so both single modes
// complete before SetMode returns.
var modes = sensor.ModeTable[op]{Sleep: opIdle, Single: opMeasure}

type Config struct {
	// Delay is used for the soft-reset wait. Defaults to time.Sleep.
	Delay func(time.Duration)
}

// Backend implements sensor.Driver for an SHTC3. Measurements go through
// tinygo.org/x/drivers/shtc3; the id read and soft reset are sent directly.
// The chip is woken for each operation and put back to sleep after it.
type Backend struct {
	latch drvshim.Latch
	drv   shtc3.Device
	delay func(time.Duration)

	milliC int32
	rhx100 int16
	have   bool
}

var _ sensor.Driver = (*Backend)(nil)

func New(bus drivers.I2C, cfg Config) *Backend {
	if cfg.Delay == nil {
		cfg.Delay = time.Sleep
	}
	b := &Backend{delay: cfg.Delay}
	b.latch.Bus = bus
	b.latch.Verify = verifyFrame
	b.drv = shtc3.New(&b.latch)
	return b
}

func (b *Backend) Name() string { return "shtc3" }

// verifyFrame checks the checksum after every 16-bit word read back.
func verifyFrame(_ uint16, _, r []byte) error {
	for i := 0; i+3 <= len(r); i += 3 {
		if crcx.CRC8(r[i:i+2], 0x31, 0xFF) != r[i+2] {
			return errCRC
		}
	}
	return nil
}

func classify(err error) sensor.Result {
	switch {
	case err == nil:
		return sensor.ResultOK
	case errors.Is(err, errNotFound):
		return sensor.ResultNotFound
	case drvshim.IsNoBus(err):
		return sensor.ResultNull
	}
	return sensor.ResultCommFail
}

func status(err error) errcode.Status { return sensor.StatusOf(err, classify) }

// awake runs fn between a wake-up and a sleep command.
func (b *Backend) awake(fn func() error) error {
	_ = b.latch.Take()
	_ = b.drv.WakeUp()
	if err := b.latch.Take(); err != nil {
		return err
	}
	err := fn()
	_ = b.drv.Sleep()
	if serr := b.latch.Take(); err == nil {
		err = serr
	}
	return err
}

func (b *Backend) send(cmd string, r []byte) error {
	_ = b.latch.Tx(shtc3.SHTC3_ADDRESS, []byte(cmd), r)
	return b.latch.Take()
}

func (b *Backend) measure() error {
	t, rh, _ := b.drv.ReadTemperatureHumidity()
	if err := b.latch.Take(); err != nil {
		return err
	}
	b.milliC, b.rhx100, b.have = t, rh, true
	return nil
}

// Init reads the id register and checks the SHTC3 signature bits.
func (b *Backend) Init() errcode.Status {
	return status(b.awake(func() error {
		var r [3]byte
		if err := b.send(cmdReadID, r[:]); err != nil {
			return err
		}
		if id := uint16(r[0])<<8 | uint16(r[1]); id&0x083F != 0x0807 {
			return errNotFound
		}
		return nil
	}))
}

// SelfTest takes one measurement. A frame with a bad checksum fails the
// test.
func (b *Backend) SelfTest() errcode.Status {
	err := b.awake(b.measure)
	if errors.Is(err, errCRC) {
		return errcode.SelfTest
	}
	return status(err)
}

func (b *Backend) SoftReset() errcode.Status {
	return status(b.awake(func() error {
		if err := b.send(shtc3.SHTC3_CMD_SOFT_RESET, nil); err != nil {
			return err
		}
		b.delay(time.Millisecond)
		return nil
	}))
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

func (b *Backend) SetDSP(fn sensor.DSPFunction, param uint8) errcode.Status {
	return sensor.CheckDSP(fn, param, 0)
}

func (b *Backend) DSP() (sensor.DSPFunction, sensor.Value, errcode.Status) {
	return 0, sensor.NotImplemented, errcode.NotImplemented
}

// Mode is always sleep between operations.
func (b *Backend) Mode() (sensor.Mode, errcode.Status) {
	return sensor.ModeSleep, errcode.Success
}

func (b *Backend) SetMode(m sensor.Mode) errcode.Status {
	code, _, st := modes.Encode(m)
	if st != errcode.Success || code == opIdle {
		return st
	}
	return status(b.awake(b.measure))
}

func (b *Backend) Interrupt(uint8) (sensor.InterruptConfig, errcode.Status) {
	return sensor.InterruptConfig{}, errcode.NotSupported
}

func (b *Backend) SetInterrupt(uint8, sensor.InterruptConfig) errcode.Status {
	return errcode.NotSupported
}

// Data reports the last measurement. Pressure is always NaN.
func (b *Backend) Data(out *sensor.Environmental) errcode.Status {
	*out = sensor.Unset()
	if b.have {
		out.Temperature = float32(b.milliC) / 1000
		out.Humidity = float32(b.rhx100) / 100
	}
	return errcode.Success
}

// Package aht20 provides a driver for the AHT20 temperature/humidity sensor.
// It exposes a two-phase measurement API:
//
//	d.Trigger()              // start a measurement (fast)
//	err := d.Collect(&s)     // fetch when ready; returns ErrNotReady while busy
//
// For convenience, d.Read() performs trigger + bounded polling until ready.
//
// NOTE: I2C.Tx MUST perform a write followed by a repeated-start read when both
// w and r are provided, without releasing the bus.
//
// The driver avoids floating-point on the hot path; fixed-point helpers return
// tenths of units (deci-°C and deci-%RH).
package aht20

import (
	"errors"
	"time"

	"envsensor-go/x/crcx"

	"tinygo.org/x/drivers"
)

// I2C address.
const Address = 0x38

// Commands and status bits (per datasheet/common driver practice).
const (
	cmdTrigger    = 0xAC
	cmdInitialize = 0xBE
	cmdSoftReset  = 0xBA
	cmdStatus     = 0x71

	statusBusy       = 0x80
	statusCalibrated = 0x08
)

// Errors returned by the driver. Bus errors are returned as-is.
var (
	ErrNilBus        = errors.New("aht20: nil bus")
	ErrTimeout       = errors.New("aht20: timeout")
	ErrNotReady      = errors.New("aht20: not ready")
	ErrNotCalibrated = errors.New("aht20: calibration bit not set")
	ErrCRC           = errors.New("aht20: crc mismatch")
)

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x38 if zero.
	Address uint16
	// PollInterval is used by Read() between Collect() attempts for ErrNotReady.
	// Default 15 ms.
	PollInterval time.Duration
	// CollectTimeout bounds the total wait in Read(). Default 250 ms.
	CollectTimeout time.Duration
	// TriggerHint is a nominal conversion time. Read waits this long before
	// the first Collect. Default 80 ms.
	TriggerHint time.Duration
	// Delay performs every wait. Defaults to time.Sleep.
	Delay func(time.Duration)
}

// Device wraps an I2C connection to an AHT20 device.
type Device struct {
	bus     drivers.I2C
	Address uint16

	cfg  Config
	buf  [7]byte // reuse buffer to avoid allocations
	last Sample
}

// New creates a new AHT20 connection. The I2C bus must already be configured.
// This function only creates the Device object; it does not touch the device.
func New(bus drivers.I2C) Device {
	return Device{
		bus:     bus,
		Address: Address,
	}
}

// Configure applies optional config. Zero fields take their defaults.
func (d *Device) Configure(c Config) {
	if c.Address != 0 {
		d.Address = c.Address
	}
	c.Address = d.Address
	if c.PollInterval <= 0 {
		c.PollInterval = 15 * time.Millisecond
	}
	if c.CollectTimeout <= 0 {
		c.CollectTimeout = 250 * time.Millisecond
	}
	if c.TriggerHint <= 0 {
		c.TriggerHint = 80 * time.Millisecond
	}
	if c.Delay == nil {
		c.Delay = time.Sleep
	}
	d.cfg = c
}

func (d *Device) ensure() {
	if d.cfg.Delay == nil {
		d.Configure(d.cfg)
	}
}

func (d *Device) tx(w, r []byte) error {
	if d.bus == nil {
		return ErrNilBus
	}
	return d.bus.Tx(d.Address, w, r)
}

// Init loads the calibration if the device does not report it yet.
func (d *Device) Init() error {
	d.ensure()
	st, err := d.Status()
	if err != nil {
		return err
	}
	if st&statusCalibrated != 0 {
		return nil
	}
	if err := d.tx([]byte{cmdInitialize, 0x08, 0x00}, nil); err != nil {
		return err
	}
	d.cfg.Delay(10 * time.Millisecond)
	if st, err = d.Status(); err != nil {
		return err
	}
	if st&statusCalibrated == 0 {
		return ErrNotCalibrated
	}
	return nil
}

// Reset issues a soft reset and waits the 20 ms the device needs.
func (d *Device) Reset() error {
	d.ensure()
	if err := d.tx([]byte{cmdSoftReset}, nil); err != nil {
		return err
	}
	d.cfg.Delay(20 * time.Millisecond)
	return nil
}

// Status reads and returns the status byte.
func (d *Device) Status() (byte, error) {
	var data [1]byte
	if err := d.tx([]byte{cmdStatus}, data[:]); err != nil {
		return 0, err
	}
	return data[0], nil
}

// Calibrated reports whether the device has loaded its calibration.
func (d *Device) Calibrated() (bool, error) {
	st, err := d.Status()
	return st&statusCalibrated != 0, err
}

// Trigger starts a measurement. It is a quick register write with no blocking.
// After Trigger, the device needs time to convert; see d.TriggerHint().
func (d *Device) Trigger() error {
	d.ensure()
	return d.tx([]byte{cmdTrigger, 0x33, 0x00}, nil)
}

// TriggerHint returns the nominal conversion time to wait before attempting Collect.
func (d *Device) TriggerHint() time.Duration {
	if d.cfg.TriggerHint > 0 {
		return d.cfg.TriggerHint
	}
	return 80 * time.Millisecond
}

// Collect attempts to read one measurement into the device cache and the
// provided sample. If the device is not ready yet, ErrNotReady is returned.
// A frame failing its checksum returns ErrCRC.
func (d *Device) Collect(out *Sample) error {
	data := d.buf[:]
	if err := d.tx(nil, data); err != nil {
		return err
	}
	if (data[0]&statusCalibrated) == 0 || (data[0]&statusBusy) != 0 {
		return ErrNotReady
	}
	if CRC8(data[:6]) != data[6] {
		return ErrCRC
	}
	d.last = Sample{
		RawHumidity: (uint32(data[1]) << 12) | (uint32(data[2]) << 4) | (uint32(data[3]) >> 4),
		RawTemp:     (uint32(data[3]&0x0F) << 16) | (uint32(data[4]) << 8) | uint32(data[5]),
	}
	if out != nil {
		*out = d.last
	}
	return nil
}

// Read performs a full measurement cycle: Trigger, the conversion hint, then
// bounded polling until Collect succeeds or CollectTimeout is used up.
func (d *Device) Read(out *Sample) error {
	if err := d.Trigger(); err != nil {
		return err
	}
	d.cfg.Delay(d.cfg.TriggerHint)
	for waited := time.Duration(0); ; waited += d.cfg.PollInterval {
		err := d.Collect(out)
		if err != ErrNotReady {
			return err
		}
		if waited >= d.cfg.CollectTimeout {
			return ErrTimeout
		}
		d.cfg.Delay(d.cfg.PollInterval)
	}
}

// Last returns the most recent collected sample.
func (d *Device) Last() Sample { return d.last }

// Sample holds raw readings.
type Sample struct {
	RawHumidity uint32
	RawTemp     uint32
}

// Fixed-point conversion helpers operating on Sample.

func (s Sample) DeciRelHumidity() int32 {
	return int32((uint64(s.RawHumidity) * 1000) >> 20)
}

func (s Sample) DeciCelsius() int32 {
	return int32((uint64(s.RawTemp)*2000)>>20) - 500
}

// RelHumidity returns relative humidity in percent.
func (s Sample) RelHumidity() float32 {
	return float32(s.RawHumidity) * 100 / 0x100000
}

// Celsius returns °C.
func (s Sample) Celsius() float32 {
	return float32(s.RawTemp)*200/0x100000 - 50
}

// CRC8 is the frame checksum: polynomial 0x31, initial value 0xFF.
func CRC8(b []byte) byte { return crcx.CRC8(b, 0x31, 0xFF) }

// Package bme280 provides a register-level driver for the Bosch BME280
// combined temperature, pressure and humidity sensor on I2C.
//
// Unlike tinygo.org/x/drivers/bme280 every bus transaction reports its
// error, so callers can tell a missing chip from a failing bus:
//
//	d := bme280.New(bus)
//	d.Configure(bme280.Config{})
//	if err := d.Init(); err != nil { ... }
//	s := d.Settings()
//	s.Temperature = tbme.Sampling1X
//	err := d.ApplySettings(s)
//
// Settings use the tinygo bme280.Config record so oversampling, filter and
// standby codes are shared with that driver.
package bme280

import (
	"errors"
	"time"

	"envsensor-go/x/crcx"

	"tinygo.org/x/drivers"
	tbme "tinygo.org/x/drivers/bme280"
)

// I2C addresses. SDO low selects Address.
const (
	Address    = tbme.Address
	AddressAlt = 0x77
)

// ChipID is the expected content of the id register.
const ChipID = tbme.CHIP_ID

// Registers not exported by tinygo.org/x/drivers/bme280.
const (
	regStatus  = 0xF3
	regCalibT  = tbme.REG_CALIBRATION
	regCalibH  = tbme.REG_CALIBRATION_H2LSB
	regCalibCR = 0xE8

	resetWord = 0xB6

	statusMeasuring = 0x08
	statusIMUpdate  = 0x01

	calibTLen = 26 // 0x88..0xA1
	calibHLen = 7  // 0xE1..0xE7
)

// Errors returned by the driver.
var (
	ErrNilBus   = errors.New("bme280: nil bus")
	ErrNotFound = errors.New("bme280: device not found")
	ErrComm     = errors.New("bme280: bus error")
	ErrSelfTest = errors.New("bme280: calibration crc mismatch")
	ErrNVMCopy  = errors.New("bme280: nvm copy did not finish")
)

// busError carries the transport error under ErrComm.
type busError struct{ err error }

func (e busError) Error() string        { return ErrComm.Error() + ": " + e.err.Error() }
func (e busError) Is(target error) bool { return target == ErrComm }
func (e busError) Unwrap() error        { return e.err }

// Config controls non-register behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x76 if zero.
	Address uint16
	// Delay is used for reset and polling waits. Defaults to time.Sleep.
	Delay func(time.Duration)
	// ResetPolls bounds how often the NVM copy flag is polled after reset.
	// Default 5.
	ResetPolls int
}

// Device wraps an I2C connection to a BME280.
type Device struct {
	bus     drivers.I2C
	Address uint16

	cfg      Config
	calib    calibration
	settings tbme.Config
}

// New creates a Device. It does not touch the bus.
func New(bus drivers.I2C) Device {
	return Device{bus: bus, Address: Address}
}

// Configure applies optional non-register settings.
func (d *Device) Configure(c Config) {
	if c.Address != 0 {
		d.Address = c.Address
	}
	if c.Delay == nil {
		c.Delay = time.Sleep
	}
	if c.ResetPolls <= 0 {
		c.ResetPolls = 5
	}
	c.Address = d.Address
	d.cfg = c
}

// ensure applies default Config when Configure was never called.
func (d *Device) ensure() {
	if d.cfg.Delay == nil {
		d.Configure(d.cfg)
	}
}

func (d *Device) tx(w, r []byte) error {
	if d.bus == nil {
		return ErrNilBus
	}
	if err := d.bus.Tx(d.Address, w, r); err != nil {
		return busError{err}
	}
	return nil
}

func (d *Device) read(reg byte, dst []byte) error {
	return d.tx([]byte{reg}, dst)
}

func (d *Device) write(reg, v byte) error {
	return d.tx([]byte{reg, v}, nil)
}

// Init checks the chip id, soft-resets the device and loads calibration.
func (d *Device) Init() error {
	d.ensure()
	var id [1]byte
	if err := d.read(tbme.WHO_AM_I, id[:]); err != nil {
		return err
	}
	if id[0] != ChipID {
		return ErrNotFound
	}
	if err := d.SoftReset(); err != nil {
		return err
	}
	return d.loadCalibration()
}

// SoftReset restores power-on register values and waits for the NVM copy.
func (d *Device) SoftReset() error {
	d.ensure()
	if err := d.write(tbme.CMD_RESET, resetWord); err != nil {
		return err
	}
	var st [1]byte
	for i := 0; i < d.cfg.ResetPolls; i++ {
		d.cfg.Delay(2 * time.Millisecond)
		if err := d.read(regStatus, st[:]); err != nil {
			return err
		}
		if st[0]&statusIMUpdate == 0 {
			d.settings = tbme.Config{}
			return nil
		}
	}
	return ErrNVMCopy
}

// SelfTest recomputes the CRC over the calibration memory and compares it
// with the one the factory stored in the chip.
func (d *Device) SelfTest() error {
	var mem [calibTLen + calibHLen]byte
	if err := d.read(regCalibT, mem[:calibTLen]); err != nil {
		return err
	}
	if err := d.read(regCalibH, mem[calibTLen:]); err != nil {
		return err
	}
	var stored [1]byte
	if err := d.read(regCalibCR, stored[:]); err != nil {
		return err
	}
	if CRC8(mem[:]) != stored[0] {
		return ErrSelfTest
	}
	return nil
}

// Settings returns the last settings read from or written to the device.
func (d *Device) Settings() tbme.Config { return d.settings }

// ReadSettings reads the control registers back from the device.
func (d *Device) ReadSettings() (tbme.Config, error) {
	// ctrl_hum, status, ctrl_meas, config
	var r [4]byte
	if err := d.read(tbme.CTRL_HUMIDITY_ADDR, r[:]); err != nil {
		return tbme.Config{}, err
	}
	s := tbme.Config{
		Humidity:    tbme.Oversampling(r[0] & 0x07),
		Temperature: tbme.Oversampling(r[2] >> 5),
		Pressure:    tbme.Oversampling((r[2] >> 2) & 0x07),
		Mode:        tbme.Mode(r[2] & 0x03),
		Period:      tbme.Period(r[3] >> 5),
		IIR:         tbme.FilterCoefficient((r[3] >> 2) & 0x07),
	}
	d.settings = s
	return s, nil
}

// ApplySettings writes oversampling, filter and standby in one pass. The
// registers are only writable in sleep mode, so the device is put to sleep
// first and normal mode is resumed afterwards. s.Mode is ignored; forced
// conversions are one-shot and are not re-triggered.
func (d *Device) ApplySettings(s tbme.Config) error {
	cur, err := d.ReadSettings()
	if err != nil {
		return err
	}
	if cur.Mode != tbme.ModeSleep {
		if err := d.write(tbme.CTRL_MEAS_ADDR, ctrlMeas(cur, tbme.ModeSleep)); err != nil {
			return err
		}
	}
	if err := d.write(tbme.CTRL_HUMIDITY_ADDR, byte(s.Humidity)&0x07); err != nil {
		return err
	}
	if err := d.write(tbme.CTRL_CONFIG, byte(s.Period)<<5|(byte(s.IIR)&0x07)<<2); err != nil {
		return err
	}
	mode := tbme.ModeSleep
	if cur.Mode == tbme.ModeNormal {
		mode = tbme.ModeNormal
	}
	// ctrl_hum only takes effect after a ctrl_meas write.
	if err := d.write(tbme.CTRL_MEAS_ADDR, ctrlMeas(s, mode)); err != nil {
		return err
	}
	s.Mode = mode
	d.settings = s
	return nil
}

// SetMode writes the power mode, keeping the current oversampling.
func (d *Device) SetMode(m tbme.Mode) error {
	if err := d.write(tbme.CTRL_MEAS_ADDR, ctrlMeas(d.settings, m)); err != nil {
		return err
	}
	d.settings.Mode = m
	return nil
}

// Mode reads the power mode bits. 0b10 is returned as-is.
func (d *Device) Mode() (tbme.Mode, error) {
	var r [1]byte
	if err := d.read(tbme.CTRL_MEAS_ADDR, r[:]); err != nil {
		return 0, err
	}
	return tbme.Mode(r[0] & 0x03), nil
}

// Measuring reports whether a conversion is running.
func (d *Device) Measuring() (bool, error) {
	var r [1]byte
	if err := d.read(regStatus, r[:]); err != nil {
		return false, err
	}
	return r[0]&statusMeasuring != 0, nil
}

// Read burst-reads the data registers and compensates them into out.
func (d *Device) Read(out *Sample) error {
	var data [8]byte
	if err := d.read(tbme.REG_PRESSURE, data[:]); err != nil {
		return err
	}
	s := Sample{
		RawPressure: int32(uint32(data[0])<<12 | uint32(data[1])<<4 | uint32(data[2])>>4),
		RawTemp:     int32(uint32(data[3])<<12 | uint32(data[4])<<4 | uint32(data[5])>>4),
		RawHumidity: int32(uint32(data[6])<<8 | uint32(data[7])),
	}
	d.calib.compensate(&s)
	if out != nil {
		*out = s
	}
	return nil
}

func ctrlMeas(s tbme.Config, m tbme.Mode) byte {
	return (byte(s.Temperature)&0x07)<<5 | (byte(s.Pressure)&0x07)<<2 | byte(m)&0x03
}

// CRC8 is the calibration-memory checksum: polynomial 0x1D, initial value
// 0xFF, result inverted.
func CRC8(mem []byte) byte { return crcx.CRC8(mem, 0x1D, 0xFF) ^ 0xFF }

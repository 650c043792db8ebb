// Package bme280sim is a register-level BME280 model that implements
// drivers.I2C. It runs on a virtual clock so forced conversions only land
// once the caller has waited for them.
package bme280sim

import (
	"errors"
	"sync"
	"time"

	"envsensor-go/drivers/bme280"

	"tinygo.org/x/drivers"
	tbme "tinygo.org/x/drivers/bme280"
)

var _ drivers.I2C = (*Chip)(nil)

// ErrNack is returned for transactions to another address.
var ErrNack = errors.New("bme280sim: nack")

// Datasheet example raw readings: 25.08 °C, 100653.25 Pa, ~55 %RH.
const (
	DefaultRawTemp     = 519888
	DefaultRawPressure = 415148
	DefaultRawHumidity = 30000
)

const (
	regStatus = 0xF3
	regCRC    = 0xE8

	statusMeasuring = 0x08
	statusIMUpdate  = 0x01
)

// Datasheet example calibration (T1..P9), then a typical humidity set.
var calibT = [26]byte{
	0x70, 0x6B, // T1 27504
	0x43, 0x67, // T2 26435
	0x18, 0xFC, // T3 -1000
	0x7D, 0x8E, // P1 36477
	0x43, 0xD6, // P2 -10685
	0xD0, 0x0B, // P3 3024
	0x27, 0x0B, // P4 2855
	0x8C, 0x00, // P5 140
	0xF9, 0xFF, // P6 -7
	0x8C, 0x3C, // P7 15500
	0xF8, 0xC6, // P8 -14600
	0x70, 0x17, // P9 6000
	0x00,       // reserved
	0x4B,       // H1 75
}

var calibH = [7]byte{
	0x6A, 0x01, // H2 362
	0x00,       // H3
	0x13, 0x29, // H4 313, H5 low nibble
	0x03, // H5 50
	0x1E, // H6 30
}

// Chip is a simulated BME280.
type Chip struct {
	mu sync.Mutex

	Addr uint16
	// ConvTime is how long a forced conversion takes. Default 10 ms.
	ConvTime time.Duration
	// Fail, when set, is returned by every transaction.
	Fail error

	regs      [256]byte
	now       time.Duration
	pending   bool
	pendingAt time.Duration
	nvmPolls  int

	rawT, rawP, rawH int32

	conversions int
	writes      [256]int
}

// New returns a chip at the default address with datasheet calibration.
func New() *Chip {
	c := &Chip{
		Addr:     bme280.Address,
		ConvTime: 10 * time.Millisecond,
		rawT:     DefaultRawTemp,
		rawP:     DefaultRawPressure,
		rawH:     DefaultRawHumidity,
	}
	c.regs[tbme.WHO_AM_I] = bme280.ChipID
	copy(c.regs[tbme.REG_CALIBRATION:], calibT[:])
	copy(c.regs[tbme.REG_CALIBRATION_H2LSB:], calibH[:])
	c.regs[regCRC] = c.crc()
	c.reset()
	return c
}

func (c *Chip) crc() byte {
	var mem [33]byte
	copy(mem[:26], c.regs[tbme.REG_CALIBRATION:])
	copy(mem[26:], c.regs[tbme.REG_CALIBRATION_H2LSB:tbme.REG_CALIBRATION_H2LSB+7])
	return bme280.CRC8(mem[:])
}

func (c *Chip) reset() {
	for r := tbme.CTRL_HUMIDITY_ADDR; r <= tbme.CTRL_CONFIG; r++ {
		c.regs[r] = 0
	}
	c.pending = false
	c.latchSkipped()
	c.nvmPolls = 1
	c.regs[regStatus] = statusIMUpdate
}

func (c *Chip) latchSkipped() {
	copy(c.regs[tbme.REG_PRESSURE:], []byte{0x80, 0x00, 0x00, 0x80, 0x00, 0x00, 0x80, 0x00})
}

// latch copies the current environment into the data registers, honouring
// the per-channel oversampling.
func (c *Chip) latch() {
	c.conversions++
	meas := c.regs[tbme.CTRL_MEAS_ADDR]
	put20 := func(at int, v int32, on bool) {
		if !on {
			v = 0x80000
		}
		c.regs[at] = byte(v >> 12)
		c.regs[at+1] = byte(v >> 4)
		c.regs[at+2] = byte(v << 4)
	}
	put20(tbme.REG_PRESSURE, c.rawP, (meas>>2)&0x07 != 0)
	put20(tbme.REG_PRESSURE+3, c.rawT, meas>>5 != 0)
	h := c.rawH
	if c.regs[tbme.CTRL_HUMIDITY_ADDR]&0x07 == 0 {
		h = 0x8000
	}
	c.regs[tbme.REG_PRESSURE+6] = byte(h >> 8)
	c.regs[tbme.REG_PRESSURE+7] = byte(h)
}

func (c *Chip) tick() {
	if c.pending && c.now >= c.pendingAt {
		c.pending = false
		c.latch()
		c.regs[tbme.CTRL_MEAS_ADDR] &^= 0x03
		c.regs[regStatus] &^= statusMeasuring
	}
}

// Tx implements drivers.I2C.
func (c *Chip) Tx(addr uint16, w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail != nil {
		return c.Fail
	}
	if addr != c.Addr {
		return ErrNack
	}
	c.tick()
	if len(r) > 0 {
		if len(w) != 1 {
			return ErrNack
		}
		c.read(w[0], r)
		return nil
	}
	for i := 0; i+1 < len(w); i += 2 {
		c.write(w[i], w[i+1])
	}
	return nil
}

func (c *Chip) read(reg byte, r []byte) {
	if c.regs[tbme.CTRL_MEAS_ADDR]&0x03 == byte(tbme.ModeNormal) && int(reg) <= tbme.REG_PRESSURE+7 && int(reg)+len(r) > tbme.REG_PRESSURE {
		c.latch()
	}
	for i := range r {
		r[i] = c.regs[(int(reg)+i)&0xFF]
	}
	if reg == regStatus && c.nvmPolls > 0 {
		c.nvmPolls--
		if c.nvmPolls == 0 {
			c.regs[regStatus] &^= statusIMUpdate
		}
	}
}

func (c *Chip) write(reg, v byte) {
	c.writes[reg]++
	switch reg {
	case tbme.CMD_RESET:
		if v == 0xB6 {
			c.reset()
		}
	case tbme.CTRL_HUMIDITY_ADDR, tbme.CTRL_CONFIG:
		c.regs[reg] = v
	case tbme.CTRL_MEAS_ADDR:
		c.regs[reg] = v
		switch v & 0x03 {
		case 0x01, 0x02:
			c.pending = true
			c.pendingAt = c.now + c.ConvTime
			c.regs[regStatus] |= statusMeasuring
		case 0x00:
			c.pending = false
			c.regs[regStatus] &^= statusMeasuring
		}
	}
}

// Advance moves the virtual clock. It has the signature of a delay func.
func (c *Chip) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.tick()
	c.mu.Unlock()
}

// SetRaw sets the raw ADC values the next conversion will latch.
func (c *Chip) SetRaw(temp, press, hum int32) {
	c.mu.Lock()
	c.rawT, c.rawP, c.rawH = temp, press, hum
	c.mu.Unlock()
}

// SetChipID overrides the id register.
func (c *Chip) SetChipID(id byte) {
	c.mu.Lock()
	c.regs[tbme.WHO_AM_I] = id
	c.mu.Unlock()
}

// CorruptCalibration flips a calibration bit without fixing the CRC.
func (c *Chip) CorruptCalibration() {
	c.mu.Lock()
	c.regs[tbme.REG_CALIBRATION+4] ^= 0x01
	c.mu.Unlock()
}

// ForceModeBits writes raw mode bits without starting a conversion.
func (c *Chip) ForceModeBits(bits byte) {
	c.mu.Lock()
	c.regs[tbme.CTRL_MEAS_ADDR] = c.regs[tbme.CTRL_MEAS_ADDR]&^0x03 | bits&0x03
	c.mu.Unlock()
}

// Reg returns a register value.
func (c *Chip) Reg(reg byte) byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regs[reg]
}

// Writes returns how many times reg was written.
func (c *Chip) Writes(reg byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes[reg]
}

// Conversions returns how many samples have been latched.
func (c *Chip) Conversions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversions
}

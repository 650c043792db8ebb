// Package shtc3sim is a command-level SHTC3 that implements drivers.I2C.
// Measurements complete inside the transaction, as with clock stretching.
package shtc3sim

import (
	"errors"
	"sync"

	"envsensor-go/x/crcx"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/shtc3"
)

var _ drivers.I2C = (*Chip)(nil)

var ErrNack = errors.New("shtc3sim: nack")

// Raw readings for about 25.0 °C and 50.0 %RH.
const (
	DefaultRawTemp     = 0x6666
	DefaultRawHumidity = 0x8000
	DefaultID          = 0x0887
)

const cmdReadID = 0xEFC8

// Chip is a simulated SHTC3. It starts asleep.
type Chip struct {
	mu sync.Mutex

	// Fail, when set, is returned by every transaction.
	Fail error
	// BadCRC corrupts the humidity checksum of every measurement.
	BadCRC bool

	id         uint16
	awake      bool
	rawT, rawH uint16

	measures, resets, wakes int
}

func New() *Chip {
	return &Chip{id: DefaultID, rawT: DefaultRawTemp, rawH: DefaultRawHumidity}
}

func word(s string) uint16 { return uint16(s[0])<<8 | uint16(s[1]) }

func put(dst []byte, v uint16) {
	dst[0], dst[1] = byte(v>>8), byte(v)
	dst[2] = crcx.CRC8(dst[:2], 0x31, 0xFF)
}

// Tx implements drivers.I2C.
func (c *Chip) Tx(addr uint16, w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail != nil {
		return c.Fail
	}
	if addr != shtc3.SHTC3_ADDRESS || len(w) != 2 {
		return ErrNack
	}
	cmd := uint16(w[0])<<8 | uint16(w[1])
	if cmd == word(shtc3.SHTC3_CMD_WAKEUP) {
		c.awake = true
		c.wakes++
		return nil
	}
	// Asleep, the chip only acknowledges the wake-up command.
	if !c.awake {
		return ErrNack
	}
	switch cmd {
	case word(shtc3.SHTC3_CMD_SLEEP):
		c.awake = false
	case word(shtc3.SHTC3_CMD_SOFT_RESET):
		c.resets++
	case cmdReadID:
		if len(r) != 3 {
			return ErrNack
		}
		put(r, c.id)
	case word(shtc3.SHTC3_CMD_MEASURE_HP):
		if len(r) != 6 {
			return ErrNack
		}
		c.measures++
		put(r[0:3], c.rawT)
		put(r[3:6], c.rawH)
		if c.BadCRC {
			r[5] ^= 0xFF
		}
	default:
		return ErrNack
	}
	return nil
}

// SetRaw sets the raw values of later measurements.
func (c *Chip) SetRaw(temp, hum uint16) {
	c.mu.Lock()
	c.rawT, c.rawH = temp, hum
	c.mu.Unlock()
}

// SetID overrides the id register.
func (c *Chip) SetID(id uint16) {
	c.mu.Lock()
	c.id = id
	c.mu.Unlock()
}

// Awake reports whether the chip is out of sleep.
func (c *Chip) Awake() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.awake
}

// Measures returns how many measurements were taken.
func (c *Chip) Measures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.measures
}

// Resets returns how many soft resets were received.
func (c *Chip) Resets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resets
}

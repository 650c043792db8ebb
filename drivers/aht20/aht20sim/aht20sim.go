// Package aht20sim is a scripted AHT20 that implements drivers.I2C on a
// virtual clock.
package aht20sim

import (
	"errors"
	"sync"
	"time"

	"envsensor-go/drivers/aht20"

	"tinygo.org/x/drivers"
)

var _ drivers.I2C = (*Chip)(nil)

var ErrNack = errors.New("aht20sim: nack")

// Raw readings for 25.0 °C and ~55.0 %RH.
const (
	DefaultRawTemp     = 393_216
	DefaultRawHumidity = 577_000
)

// Chip is a simulated AHT20.
type Chip struct {
	mu sync.Mutex

	Addr uint16
	// ConvTime is the conversion time after a trigger. Default 75 ms.
	ConvTime time.Duration
	// Fail, when set, is returned by every transaction.
	Fail error
	// BadCRC corrupts the checksum of every data frame.
	BadCRC bool

	calibrated bool
	busy       bool
	readyAt    time.Duration
	now        time.Duration

	hraw, traw uint32
	triggers   int
	resets     int
}

// New returns a calibrated chip.
func New() *Chip {
	return &Chip{
		Addr:       aht20.Address,
		ConvTime:   75 * time.Millisecond,
		calibrated: true,
		hraw:       DefaultRawHumidity,
		traw:       DefaultRawTemp,
	}
}

// Uncalibrated returns a chip that needs the initialise command.
func Uncalibrated() *Chip {
	c := New()
	c.calibrated = false
	return c
}

func (c *Chip) status() byte {
	var s byte
	if c.calibrated {
		s |= 0x08
	}
	if c.busy && c.now < c.readyAt {
		s |= 0x80
	} else {
		c.busy = false
	}
	return s
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
	switch {
	case len(w) == 1 && w[0] == 0x71 && len(r) == 1:
		r[0] = c.status()
	case len(w) == 3 && w[0] == 0xAC:
		c.triggers++
		c.busy = true
		c.readyAt = c.now + c.ConvTime
	case len(w) == 3 && w[0] == 0xBE:
		c.calibrated = true
	case len(w) == 1 && w[0] == 0xBA:
		c.resets++
		c.busy = false
	case len(w) == 0 && len(r) == 7:
		r[0] = c.status()
		h, t := c.hraw, c.traw
		r[1] = byte(h >> 12)
		r[2] = byte(h >> 4)
		r[3] = byte((h&0xF)<<4 | (t>>16)&0x0F)
		r[4] = byte(t >> 8)
		r[5] = byte(t)
		r[6] = aht20.CRC8(r[:6])
		if c.BadCRC {
			r[6] ^= 0xFF
		}
	default:
		return ErrNack
	}
	return nil
}

// Advance moves the virtual clock. It has the signature of a delay func.
func (c *Chip) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

// SetRaw sets the raw values returned by later frames.
func (c *Chip) SetRaw(temp, hum uint32) {
	c.mu.Lock()
	c.traw, c.hraw = temp&0xFFFFF, hum&0xFFFFF
	c.mu.Unlock()
}

// Triggers returns how many measurements were started.
func (c *Chip) Triggers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.triggers
}

// Resets returns how many soft resets were received.
func (c *Chip) Resets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resets
}

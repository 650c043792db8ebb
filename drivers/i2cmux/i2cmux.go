// Package i2cmux joins several single-device buses into one drivers.I2C.
// Transactions are routed by address; unknown addresses NACK.
package i2cmux

import (
	"errors"
	"sync"

	"tinygo.org/x/drivers"
)

var ErrNack = errors.New("i2cmux: no device at address")

type Bus struct {
	mu   sync.Mutex
	devs map[uint16]drivers.I2C
}

var _ drivers.I2C = (*Bus)(nil)

func New() *Bus { return &Bus{devs: map[uint16]drivers.I2C{}} }

// Attach routes addr to dev, replacing any earlier device.
func (b *Bus) Attach(addr uint16, dev drivers.I2C) *Bus {
	b.mu.Lock()
	b.devs[addr] = dev
	b.mu.Unlock()
	return b
}

// Detach removes the device at addr. Later transactions to it NACK.
func (b *Bus) Detach(addr uint16) {
	b.mu.Lock()
	delete(b.devs, addr)
	b.mu.Unlock()
}

// Tx implements drivers.I2C. The bus lock is held for the whole
// transaction.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	dev, ok := b.devs[addr]
	if !ok {
		return ErrNack
	}
	return dev.Tx(addr, w, r)
}

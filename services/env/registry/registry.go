// Package registry maps driver names to backend builders. Backend packages
// register themselves from init, so an executable selects its drivers by
// importing them.
package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"envsensor-go/sensor"
	"envsensor-go/types"

	"tinygo.org/x/drivers"
)

// BuildInput is passed to a backend builder.
type BuildInput struct {
	Ctx      context.Context
	DeviceID string
	Bus      drivers.I2C
	BusID    string // e.g. "i2c0"
	Addr     uint16 // 0 selects the driver default
	// Delay performs blocking waits. nil selects time.Sleep.
	Delay func(time.Duration)
}

// BuildOutput describes a constructed backend.
type BuildOutput struct {
	Driver sensor.Driver
	Info   types.Info
	// Kinds lists the measurements the backend publishes.
	Kinds []types.Kind
}

// Builder creates a backend from config.
type Builder interface {
	Build(in BuildInput) (BuildOutput, error)
}

var (
	mu       sync.RWMutex
	builders = map[string]Builder{}
)

func RegisterBuilder(driver string, b Builder) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := builders[driver]; exists {
		panic(fmt.Sprintf("sensor builder already registered for driver %q", driver))
	}
	builders[driver] = b
}

func Lookup(driver string) (Builder, bool) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := builders[driver]
	return b, ok
}

// Drivers returns the registered driver names in order.
func Drivers() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(builders))
	for n := range builders {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Package bme280dev is the BME280 backend: temperature, humidity and
// pressure with oversampling, an IIR filter and a free-running mode.
package bme280dev

import (
	"envsensor-go/drivers/bme280"
	"envsensor-go/services/env/internal/enverr"
	"envsensor-go/services/env/registry"
	"envsensor-go/types"
)

func init() { registry.RegisterBuilder("bme280", builder{}) }

type builder struct{}

func (builder) Build(in registry.BuildInput) (registry.BuildOutput, error) {
	if in.Bus == nil {
		return registry.BuildOutput{}, enverr.ErrUnknownBus
	}
	addr := in.Addr
	if addr == 0 {
		addr = bme280.Address
	}
	b := New(in.Bus, Config{Addr: addr, Delay: in.Delay})
	return registry.BuildOutput{
		Driver: b,
		Info: types.Info{
			SchemaVersion: 1, Driver: "bme280",
			Detail: types.SensorInfo{Sensor: "bme280", Addr: addr, Bus: in.BusID},
		},
		Kinds: []types.Kind{types.KindTemperature, types.KindHumidity, types.KindPressure},
	}, nil
}

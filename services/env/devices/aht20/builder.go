// Package aht20dev is the AHT20 backend: temperature and humidity from
// single triggered conversions.
package aht20dev

import (
	"envsensor-go/drivers/aht20"
	"envsensor-go/services/env/internal/enverr"
	"envsensor-go/services/env/registry"
	"envsensor-go/types"
)

func init() { registry.RegisterBuilder("aht20", builder{}) }

type builder struct{}

func (builder) Build(in registry.BuildInput) (registry.BuildOutput, error) {
	if in.Bus == nil {
		return registry.BuildOutput{}, enverr.ErrUnknownBus
	}
	addr := in.Addr
	if addr == 0 {
		addr = aht20.Address
	}
	return registry.BuildOutput{
		Driver: New(in.Bus, Config{Addr: addr, Delay: in.Delay}),
		Info: types.Info{
			SchemaVersion: 1, Driver: "aht20",
			Detail: types.SensorInfo{Sensor: "aht20", Addr: addr, Bus: in.BusID},
		},
		Kinds: []types.Kind{types.KindTemperature, types.KindHumidity},
	}, nil
}

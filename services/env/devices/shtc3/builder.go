// Package shtc3dev is the SHTC3 backend: temperature and humidity, one
// measurement per request.
package shtc3dev

import (
	"fmt"

	"envsensor-go/services/env/internal/enverr"
	"envsensor-go/services/env/registry"
	"envsensor-go/types"

	"tinygo.org/x/drivers/shtc3"
)

func init() { registry.RegisterBuilder("shtc3", builder{}) }

type builder struct{}

func (builder) Build(in registry.BuildInput) (registry.BuildOutput, error) {
	if in.Bus == nil {
		return registry.BuildOutput{}, enverr.ErrUnknownBus
	}
	if in.Addr != 0 && in.Addr != shtc3.SHTC3_ADDRESS {
		return registry.BuildOutput{}, fmt.Errorf("%w: shtc3 address is fixed at 0x70", enverr.ErrInvalidValue)
	}
	return registry.BuildOutput{
		Driver: New(in.Bus, Config{Delay: in.Delay}),
		Info: types.Info{
			SchemaVersion: 1, Driver: "shtc3",
			Detail: types.SensorInfo{Sensor: "shtc3", Addr: shtc3.SHTC3_ADDRESS, Bus: in.BusID},
		},
		Kinds: []types.Kind{types.KindTemperature, types.KindHumidity},
	}, nil
}

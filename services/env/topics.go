package env

import (
	"math"

	"envsensor-go/bus"
	"envsensor-go/errcode"
	"envsensor-go/sensor"
	"envsensor-go/types"
	"envsensor-go/x/mathx"
)

// Topic tokens.
const (
	tokEnv    = "env"
	tokStatus = "status"
	tokInfo   = "info"
	tokConfig = "config"
	tokGet    = "get"
)

// env/<kind>/<id>
func TopicValue(kind types.Kind, id string) bus.Topic { return bus.T(tokEnv, string(kind), id) }

// env/status/<id>, retained
func TopicStatus(id string) bus.Topic { return bus.T(tokEnv, tokStatus, id) }

// env/info/<id>, retained
func TopicInfo(id string) bus.Topic { return bus.T(tokEnv, tokInfo, id) }

// TopicConfigGet takes a sensor id as payload and is answered with a
// ConfigReply.
func TopicConfigGet() bus.Topic { return bus.T(tokEnv, tokConfig, tokGet) }

// ConfigReply answers a TopicConfigGet request.
type ConfigReply struct {
	ID     string
	Config sensor.Configuration
	Status errcode.Status
	Error  string
}

// ---- payload conversion ----

func temperature(c float32) types.TemperatureValue {
	v := mathx.Clamp(math.Round(float64(c)*10), math.MinInt16, math.MaxInt16)
	return types.TemperatureValue{DeciC: int16(v)}
}

func humidity(rh float32) types.HumidityValue {
	v := mathx.Clamp(math.Round(float64(rh)*100), 0, 10000)
	return types.HumidityValue{RHx100: uint16(v)}
}

func pressure(pa float32) types.PressureValue {
	v := mathx.Clamp(math.Round(float64(pa)), 0, math.MaxUint32)
	return types.PressureValue{Pa: uint32(v)}
}

// unit is the scale unit logged for a sensor's first measurement.
func unit(k types.Kind) string {
	switch k {
	case types.KindTemperature:
		return "C"
	case types.KindHumidity:
		return "%RH"
	case types.KindPressure:
		return "Pa"
	}
	return ""
}

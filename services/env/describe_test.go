package env

import (
	"testing"

	"envsensor-go/bus"
	"envsensor-go/types"
)

func TestDescribe(t *testing.T) {
	for _, tc := range []struct {
		name    string
		topic   bus.Topic
		payload any
		want    string
	}{
		{"temperature", TopicValue(types.KindTemperature, "env0"), types.TemperatureValue{DeciC: 231}, "env/temperature/env0 23.1 C"},
		{"below zero", TopicValue(types.KindTemperature, "env0"), types.TemperatureValue{DeciC: -5}, "env/temperature/env0 -0.5 C"},
		{"humidity", TopicValue(types.KindHumidity, "env0"), types.HumidityValue{RHx100: 5503}, "env/humidity/env0 55.03 %RH"},
		{"humidity tens", TopicValue(types.KindHumidity, "env0"), types.HumidityValue{RHx100: 4250}, "env/humidity/env0 42.50 %RH"},
		{"pressure", TopicValue(types.KindPressure, "env0"), types.PressureValue{Pa: 101325}, "env/pressure/env0 101325 Pa"},
		{"status up", TopicStatus("env0"), types.CapabilityStatus{Link: types.LinkUp}, "env/status/env0 up"},
		{"status error", TopicStatus("env0"), types.CapabilityStatus{Link: types.LinkDown, Error: "init_failed"}, "env/status/env0 down (init_failed)"},
		{"info", TopicInfo("env0"), types.Info{Driver: "bme280", Detail: types.SensorInfo{Sensor: "bme280", Addr: 0x76, Bus: "i2c0"}}, "env/info/env0 bme280 i2c0 0x76"},
		{"info ten bit", TopicInfo("env0"), types.Info{Driver: "x", Detail: types.SensorInfo{Sensor: "x", Addr: 0x2A0, Bus: "i2c1"}}, "env/info/env0 x i2c1 0x02A0"},
		{"info bare", TopicInfo("env0"), types.Info{Driver: "aht20"}, "env/info/env0 aht20"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Describe(&bus.Message{Topic: tc.topic, Payload: tc.payload})
			if !ok || got != tc.want {
				t.Fatalf("Describe = %q,%v want %q", got, ok, tc.want)
			}
		})
	}
	if _, ok := Describe(&bus.Message{Topic: TopicConfigGet(), Payload: 1}); ok {
		t.Fatal("unknown payload described")
	}
}

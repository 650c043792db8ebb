package env

import (
	"envsensor-go/bus"
	"envsensor-go/types"
	"envsensor-go/x/conv"
	"envsensor-go/x/fmtx"
	"envsensor-go/x/mathx"
)

// Describe renders an env/<kind>/<id> message as one log line. Only the
// %s and %d verbs are used so the line is the same on every target.
func Describe(m *bus.Message) (string, bool) {
	topic := m.Topic.String()
	switch v := m.Payload.(type) {
	case types.TemperatureValue:
		sign := ""
		if v.DeciC < 0 {
			sign = "-"
		}
		d := mathx.Abs(int32(v.DeciC))
		return fmtx.Sprintf("%s %s%d.%d C", topic, sign, d/10, d%10), true
	case types.HumidityValue:
		pad := ""
		if v.RHx100%100 < 10 {
			pad = "0"
		}
		return fmtx.Sprintf("%s %d.%s%d %%RH", topic, v.RHx100/100, pad, v.RHx100%100), true
	case types.PressureValue:
		return fmtx.Sprintf("%s %d Pa", topic, v.Pa), true
	case types.CapabilityStatus:
		if v.Error != "" {
			return fmtx.Sprintf("%s %s (%s)", topic, string(v.Link), v.Error), true
		}
		return fmtx.Sprintf("%s %s", topic, string(v.Link)), true
	case types.Info:
		si, ok := v.Detail.(types.SensorInfo)
		if !ok {
			return fmtx.Sprintf("%s %s", topic, v.Driver), true
		}
		var hex [8]byte
		addr := conv.U32Hex(hex[:], uint32(si.Addr))
		if si.Addr <= 0xFF {
			addr = addr[6:]
		} else {
			addr = addr[4:]
		}
		return fmtx.Sprintf("%s %s %s 0x%s", topic, si.Sensor, si.Bus, string(addr)), true
	}
	return "", false
}

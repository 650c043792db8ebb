package bme280

// Raw readings of a skipped channel (oversampling off).
const (
	skipped20 = 0x80000
	skipped16 = 0x8000
)

type calibration struct {
	t1                             uint16
	t2, t3                         int16
	p1                             uint16
	p2, p3, p4, p5, p6, p7, p8, p9 int16
	h1, h3                         uint8
	h2, h4, h5                     int16
	h6                             int8
}

// Sample holds one raw reading and its compensated values. Channels that
// were skipped report false in their Has flag.
type Sample struct {
	RawTemp, RawPressure, RawHumidity int32

	HasTemp, HasPressure, HasHumidity bool

	CentiC   int32  // 0.01 °C
	PaQ24_8  uint32 // Pa in Q24.8
	RHQ22_10 uint32 // %RH in Q22.10
}

// Celsius returns the temperature in °C.
func (s Sample) Celsius() float32 { return float32(s.CentiC) / 100 }

// Pascal returns the pressure in Pa.
func (s Sample) Pascal() float32 { return float32(s.PaQ24_8) / 256 }

// RelHumidity returns the relative humidity in percent.
func (s Sample) RelHumidity() float32 { return float32(s.RHQ22_10) / 1024 }

// DeciCelsius returns tenths of °C.
func (s Sample) DeciCelsius() int32 { return s.CentiC / 10 }

// RHx100 returns hundredths of %RH.
func (s Sample) RHx100() int32 { return int32(s.RHQ22_10 * 100 >> 10) }

func (d *Device) loadCalibration() error {
	var t [calibTLen]byte
	if err := d.read(regCalibT, t[:]); err != nil {
		return err
	}
	var h [calibHLen]byte
	if err := d.read(regCalibH, h[:]); err != nil {
		return err
	}
	le := func(i int) uint16 { return uint16(t[i]) | uint16(t[i+1])<<8 }
	d.calib = calibration{
		t1: le(0),
		t2: int16(le(2)),
		t3: int16(le(4)),
		p1: le(6),
		p2: int16(le(8)),
		p3: int16(le(10)),
		p4: int16(le(12)),
		p5: int16(le(14)),
		p6: int16(le(16)),
		p7: int16(le(18)),
		p8: int16(le(20)),
		p9: int16(le(22)),
		h1: t[25],
		h2: int16(uint16(h[0]) | uint16(h[1])<<8),
		h3: h[2],
		h4: int16(int8(h[3]))<<4 | int16(h[4]&0x0F),
		h5: int16(int8(h[5]))<<4 | int16(h[4]>>4),
		h6: int8(h[6]),
	}
	return nil
}

// compensate applies the integer formulas from the datasheet. Pressure and
// humidity depend on the temperature channel.
func (c *calibration) compensate(s *Sample) {
	if s.RawTemp == skipped20 {
		return
	}
	tFine := c.tFine(s.RawTemp)
	s.HasTemp = true
	s.CentiC = (tFine*5 + 128) >> 8

	if s.RawPressure != skipped20 {
		if p, ok := c.pressure(s.RawPressure, tFine); ok {
			s.HasPressure = true
			s.PaQ24_8 = p
		}
	}
	if s.RawHumidity != skipped16 {
		s.HasHumidity = true
		s.RHQ22_10 = c.humidity(s.RawHumidity, tFine)
	}
}

func (c *calibration) tFine(adc int32) int32 {
	v1 := ((adc>>3 - int32(c.t1)<<1) * int32(c.t2)) >> 11
	d := adc>>4 - int32(c.t1)
	v2 := (((d * d) >> 12) * int32(c.t3)) >> 14
	return v1 + v2
}

func (c *calibration) pressure(adc, tFine int32) (uint32, bool) {
	v1 := int64(tFine) - 128000
	v2 := v1 * v1 * int64(c.p6)
	v2 += (v1 * int64(c.p5)) << 17
	v2 += int64(c.p4) << 35
	v1 = (v1*v1*int64(c.p3))>>8 + (v1*int64(c.p2))<<12
	v1 = ((int64(1)<<47 + v1) * int64(c.p1)) >> 33
	if v1 == 0 {
		return 0, false
	}
	p := int64(1048576 - adc)
	p = ((p<<31 - v2) * 3125) / v1
	v1 = (int64(c.p9) * (p >> 13) * (p >> 13)) >> 25
	v2 = (int64(c.p8) * p) >> 19
	p = (p+v1+v2)>>8 + int64(c.p7)<<4
	return uint32(p), true
}

func (c *calibration) humidity(adc, tFine int32) uint32 {
	v := tFine - 76800
	a := (adc<<14 - int32(c.h4)<<20 - int32(c.h5)*v + 16384) >> 15
	b := ((v * int32(c.h6)) >> 10) * ((v*int32(c.h3))>>11 + 32768) >> 10
	b = ((b+2097152)*int32(c.h2) + 8192) >> 14
	v = a * b
	v -= (((v >> 15) * (v >> 15)) >> 7) * int32(c.h1) >> 4
	if v < 0 {
		v = 0
	}
	if v > 419430400 {
		v = 419430400
	}
	return uint32(v >> 12)
}

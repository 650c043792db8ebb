package shtc3dev

import (
	"errors"
	"math"
	"testing"
	"time"

	"envsensor-go/errcode"
	"envsensor-go/sensor"
	"envsensor-go/services/env/devices/shtc3/shtc3sim"
	"envsensor-go/services/env/internal/enverr"
	"envsensor-go/services/env/registry"
)

func noWait(time.Duration) {}

func bound(t *testing.T, chip *shtc3sim.Chip) *sensor.Adapter {
	t.Helper()
	a := sensor.NewAdapter(New(chip, Config{Delay: noWait}))
	if st := a.Init(); st != errcode.Success {
		t.Fatalf("Init: %v", st)
	}
	return a
}

func TestInitLeavesChipAsleep(t *testing.T) {
	chip := shtc3sim.New()
	bound(t, chip)
	if chip.Awake() {
		t.Fatal("chip left awake")
	}
	if chip.Resets() != 1 || chip.Measures() != 1 {
		t.Fatalf("resets=%d measures=%d", chip.Resets(), chip.Measures())
	}
}

func TestInitFailures(t *testing.T) {
	cases := []struct {
		name  string
		setup func(*shtc3sim.Chip)
		want  errcode.Status
	}{
		{"foreign id", func(c *shtc3sim.Chip) { c.SetID(0x1234) }, errcode.NotFound},
		{"bad checksum", func(c *shtc3sim.Chip) { c.BadCRC = true }, errcode.SelfTest},
		{"bus down", func(c *shtc3sim.Chip) { c.Fail = shtc3sim.ErrNack }, errcode.Busy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chip := shtc3sim.New()
			tc.setup(chip)
			a := sensor.NewAdapter(New(chip, Config{Delay: noWait}))
			if st := a.Init(); st != tc.want {
				t.Fatalf("Init=%v want %v", st, tc.want)
			}
			if a.Bound() {
				t.Fatal("bound")
			}
		})
	}
}

func TestNilBus(t *testing.T) {
	a := sensor.NewAdapter(New(nil, Config{Delay: noWait}))
	if st := a.Init(); st != errcode.Null {
		t.Fatalf("Init=%v", st)
	}
}

func TestMeasure(t *testing.T) {
	chip := shtc3sim.New()
	a := bound(t, chip)
	chip.SetRaw(0x6000, 0x4000)
	for _, m := range []sensor.Mode{sensor.ModeSingleAsync, sensor.ModeSingleBlocking} {
		before := chip.Measures()
		if st := a.SetMode(m); st != errcode.Success {
			t.Fatalf("SetMode(%v)=%v", m, st)
		}
		if chip.Measures() != before+1 {
			t.Fatalf("SetMode(%v) did not measure", m)
		}
	}
	var env sensor.Environmental
	if st := a.DataGet(&env); st != errcode.Success {
		t.Fatal(st)
	}
	// raw 0x6000 -> 20.625 °C, raw 0x4000 -> 25.00 %RH
	if env.Temperature != 20.625 || env.Humidity != 25 {
		t.Fatalf("env=%+v", env)
	}
	if !math.IsNaN(float64(env.Pressure)) {
		t.Fatalf("P=%v", env.Pressure)
	}
	if m, _ := a.Mode(); m != sensor.ModeSleep || chip.Awake() {
		t.Fatalf("mode=%v awake=%v", m, chip.Awake())
	}
}

func TestMeasureBadFrame(t *testing.T) {
	chip := shtc3sim.New()
	a := bound(t, chip)
	chip.BadCRC = true
	if st := a.SetMode(sensor.ModeSingleBlocking); st != errcode.Busy {
		t.Fatalf("SetMode=%v", st)
	}
	if chip.Awake() {
		t.Fatal("chip left awake after failed measurement")
	}
}

func TestSleepAndUnsupported(t *testing.T) {
	chip := shtc3sim.New()
	a := bound(t, chip)
	before := chip.Measures()
	if st := a.SetMode(sensor.ModeSleep); st != errcode.Success || chip.Measures() != before {
		t.Fatalf("sleep: %v", st)
	}
	if st := a.SetMode(sensor.ModeContinuous); st != errcode.NotSupported {
		t.Errorf("continuous: %v", st)
	}
	if st := a.SetDSP(sensor.DSPOS, 4); st != errcode.NotSupported {
		t.Errorf("os: %v", st)
	}
	if _, _, st := a.DSP(); st != errcode.NotImplemented {
		t.Errorf("DSP: %v", st)
	}
	if st := a.SetSamplerate(sensor.Max); st != errcode.NotSupported {
		t.Errorf("samplerate: %v", st)
	}
}

func TestBuilder(t *testing.T) {
	bld, ok := registry.Lookup("shtc3")
	if !ok {
		t.Fatal("shtc3 not registered")
	}
	if _, err := bld.Build(registry.BuildInput{Bus: shtc3sim.New(), Addr: 0x44}); !errors.Is(err, enverr.ErrInvalidValue) {
		t.Fatalf("err=%v", err)
	}
	out, err := bld.Build(registry.BuildInput{Bus: shtc3sim.New(), BusID: "i2c0", Delay: noWait})
	if err != nil {
		t.Fatal(err)
	}
	if st := sensor.NewAdapter(out.Driver).Init(); st != errcode.Success {
		t.Fatal(st)
	}
}

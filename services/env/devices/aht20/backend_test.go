package aht20dev

import (
	"math"
	"testing"
	"time"

	"envsensor-go/drivers/aht20/aht20sim"
	"envsensor-go/errcode"
	"envsensor-go/sensor"
	"envsensor-go/services/env/registry"
)

func bound(t *testing.T, chip *aht20sim.Chip) *sensor.Adapter {
	t.Helper()
	a := sensor.NewAdapter(New(chip, Config{Delay: chip.Advance}))
	if st := a.Init(); st != errcode.Success {
		t.Fatalf("Init: %v", st)
	}
	return a
}

func isNaN(f float32) bool { return math.IsNaN(float64(f)) }

func TestInit(t *testing.T) {
	for _, tc := range []struct {
		name string
		chip *aht20sim.Chip
	}{
		{"calibrated", aht20sim.New()},
		{"needs calibration", aht20sim.Uncalibrated()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			bound(t, tc.chip)
			if tc.chip.Resets() != 1 {
				t.Fatalf("resets=%d", tc.chip.Resets())
			}
		})
	}
}

func TestInitBusFailure(t *testing.T) {
	chip := aht20sim.New()
	chip.Fail = aht20sim.ErrNack
	a := sensor.NewAdapter(New(chip, Config{Delay: chip.Advance}))
	if st := a.Init(); st != errcode.Busy {
		t.Fatalf("Init=%v", st)
	}
	if a.Bound() {
		t.Fatal("bound")
	}
	a = sensor.NewAdapter(New(nil, Config{Delay: func(time.Duration) {}}))
	if st := a.Init(); st != errcode.Null {
		t.Fatalf("nil bus Init=%v", st)
	}
}

func TestSingleBlocking(t *testing.T) {
	chip := aht20sim.New()
	a := bound(t, chip)
	var env sensor.Environmental
	if st := a.DataGet(&env); st != errcode.Success || !isNaN(env.Temperature) {
		t.Fatalf("before first conversion: %+v %v", env, st)
	}
	if st := a.SetMode(sensor.ModeSingleBlocking); st != errcode.Success {
		t.Fatal(st)
	}
	if st := a.DataGet(&env); st != errcode.Success {
		t.Fatal(st)
	}
	if math.Abs(float64(env.Temperature-25)) > 0.01 {
		t.Errorf("T=%v", env.Temperature)
	}
	if math.Abs(float64(env.Humidity-55.03)) > 0.01 {
		t.Errorf("RH=%v", env.Humidity)
	}
	if !isNaN(env.Pressure) {
		t.Errorf("P=%v", env.Pressure)
	}
	if m, _ := a.Mode(); m != sensor.ModeSleep {
		t.Errorf("mode=%v", m)
	}
}

func TestSingleAsync(t *testing.T) {
	chip := aht20sim.New()
	a := bound(t, chip)
	if st := a.SetMode(sensor.ModeSingleAsync); st != errcode.Success {
		t.Fatal(st)
	}
	if m, _ := a.Mode(); m != sensor.ModeSingleAsync {
		t.Fatalf("mode=%v", m)
	}
	var env sensor.Environmental
	if st := a.DataGet(&env); st != errcode.Success || !isNaN(env.Temperature) {
		t.Fatalf("busy read: %+v %v", env, st)
	}
	chip.Advance(80 * time.Millisecond)
	if st := a.DataGet(&env); st != errcode.Success || isNaN(env.Temperature) {
		t.Fatalf("ready read: %+v %v", env, st)
	}
	if m, _ := a.Mode(); m != sensor.ModeSleep {
		t.Fatalf("mode after collect=%v", m)
	}
	if chip.Triggers() != 1 {
		t.Fatalf("triggers=%d", chip.Triggers())
	}
}

func TestSleepDropsPending(t *testing.T) {
	chip := aht20sim.New()
	a := bound(t, chip)
	_ = a.SetMode(sensor.ModeSingleAsync)
	if st := a.SetMode(sensor.ModeSleep); st != errcode.Success {
		t.Fatal(st)
	}
	if m, _ := a.Mode(); m != sensor.ModeSleep {
		t.Fatalf("mode=%v", m)
	}
}

func TestConversionErrors(t *testing.T) {
	chip := aht20sim.New()
	a := bound(t, chip)
	chip.BadCRC = true
	if st := a.SetMode(sensor.ModeSingleBlocking); st != errcode.Busy {
		t.Fatalf("bad crc: %v", st)
	}
	chip.BadCRC = false
	chip.ConvTime = time.Second
	if st := a.SetMode(sensor.ModeSingleBlocking); st != errcode.Busy {
		t.Fatalf("timeout: %v", st)
	}
}

func TestUnsupported(t *testing.T) {
	a := bound(t, aht20sim.New())
	if st := a.SetMode(sensor.ModeContinuous); st != errcode.NotSupported {
		t.Errorf("continuous: %v", st)
	}
	if st := a.SetSamplerate(sensor.Literal(1)); st != errcode.NotSupported {
		t.Errorf("samplerate: %v", st)
	}
	if st := a.SetDSP(sensor.DSPIIR, 2); st != errcode.NotSupported {
		t.Errorf("iir: %v", st)
	}
	if st := a.SetDSP(sensor.DSPLast, 1); st != errcode.Success {
		t.Errorf("last: %v", st)
	}
	cfg, st := a.Configuration()
	if st != errcode.Success {
		t.Fatal(st)
	}
	want := sensor.Configuration{
		Samplerate:   sensor.NotSupported,
		Resolution:   sensor.NotSupported,
		Scale:        sensor.NotSupported,
		DSPParameter: sensor.NotImplemented,
		Mode:         sensor.Sleep,
	}
	if cfg != want {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestBuilderRegistered(t *testing.T) {
	bld, ok := registry.Lookup("aht20")
	if !ok {
		t.Fatal("aht20 not registered")
	}
	chip := aht20sim.New()
	out, err := bld.Build(registry.BuildInput{Bus: chip, BusID: "i2c0", Delay: chip.Advance})
	if err != nil {
		t.Fatal(err)
	}
	if out.Driver.Name() != "aht20" || len(out.Kinds) != 2 {
		t.Fatalf("out=%+v", out)
	}
	if st := sensor.NewAdapter(out.Driver).Init(); st != errcode.Success {
		t.Fatal(st)
	}
}

package env

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"envsensor-go/bus"
	"envsensor-go/diag"
	"envsensor-go/drivers/aht20/aht20sim"
	"envsensor-go/drivers/bme280/bme280sim"
	"envsensor-go/drivers/i2cmux"
	"envsensor-go/sensor"
	"envsensor-go/services/env/config"
	"envsensor-go/services/env/internal/enverr"
	"envsensor-go/types"

	tbme "tinygo.org/x/drivers/bme280"

	_ "envsensor-go/services/env/devices/aht20"
	_ "envsensor-go/services/env/devices/bme280"
	_ "envsensor-go/services/env/devices/shtc3"
)

type lines []string

func (l *lines) Log(_ diag.Severity, line string) error {
	*l = append(*l, line)
	return nil
}

type rig struct {
	bme  *bme280sim.Chip
	bme2 *bme280sim.Chip
	aht  *aht20sim.Chip
	mux  *i2cmux.Bus
	b    *bus.Bus
	now  time.Time
	log  lines
}

func newRig() *rig {
	r := &rig{
		bme:  bme280sim.New(),
		bme2: bme280sim.New(),
		aht:  aht20sim.New(),
		b:    bus.NewBus(32),
		now:  time.Unix(1_700_000_000, 0),
	}
	r.bme2.Addr = 0x77
	r.mux = i2cmux.New().Attach(0x76, r.bme).Attach(0x77, r.bme2).Attach(0x38, r.aht)
	return r
}

func (r *rig) delay(d time.Duration) {
	r.bme.Advance(d)
	r.bme2.Advance(d)
	r.aht.Advance(d)
}

func (r *rig) service(t *testing.T, yaml string, maxFail int) *Service {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(context.Background(), r.b.NewConnection("env"), Buses{"i2c0": r.mux}, cfg, Options{
		Log:         &r.log,
		Delay:       r.delay,
		Clock:       func() time.Time { return r.now },
		MaxFailures: maxFail,
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func (r *rig) status(t *testing.T, id string) types.CapabilityStatus {
	t.Helper()
	m := r.b.Retained(TopicStatus(id))
	if m == nil {
		t.Fatalf("no status for %s", id)
	}
	return m.Payload.(types.CapabilityStatus)
}

// drain collects every value message queued on sub, keyed by topic.
func drain(sub *bus.Subscription) map[string]any {
	got := map[string]any{}
	for {
		select {
		case m := <-sub.Channel():
			got[m.Topic.String()] = m.Payload
		default:
			return got
		}
	}
}

const threeSensors = `
sensors:
  - {id: env0, driver: bme280, interval: 1s}
  - {id: env1, driver: aht20, interval: 1s, mode: single}
  - id: env2
    driver: bme280
    addr: 0x77
    interval: 1s
    samplerate: "1"
    dsp: {function: [iir, os], parameter: 4}
    mode: continuous
`

func TestPollPublishesReadings(t *testing.T) {
	r := newRig()
	s := r.service(t, threeSensors, 0)
	sub := r.b.NewConnection("test").Subscribe(bus.T("env", "+", "+"))

	s.start()
	for _, id := range []string{"env0", "env1", "env2"} {
		if st := r.status(t, id); st.Link != types.LinkUp || st.Error != "" {
			t.Fatalf("%s status=%+v", id, st)
		}
		if m := r.b.Retained(TopicInfo(id)); m == nil {
			t.Fatalf("%s: no info", id)
		}
	}
	_ = drain(sub)

	s.pollDue(r.now)
	got := drain(sub)
	if v, ok := got["env/temperature/env0"].(types.TemperatureValue); !ok || v.DeciC != 251 {
		t.Errorf("env0 T=%v", got["env/temperature/env0"])
	}
	if v, ok := got["env/pressure/env0"].(types.PressureValue); !ok || v.Pa != 100653 {
		t.Errorf("env0 P=%v", got["env/pressure/env0"])
	}
	if v, ok := got["env/humidity/env0"].(types.HumidityValue); !ok || v.RHx100 != 5500 {
		t.Errorf("env0 RH=%v", got["env/humidity/env0"])
	}
	if _, ok := got["env/temperature/env2"]; !ok {
		t.Error("continuous sensor did not publish")
	}
	// The first async poll only starts a conversion.
	if _, ok := got["env/temperature/env1"]; ok {
		t.Error("async sensor published before its conversion")
	}

	r.aht.Advance(100 * time.Millisecond)
	r.now = r.now.Add(time.Second)
	s.pollDue(r.now)
	got = drain(sub)
	if v, ok := got["env/temperature/env1"].(types.TemperatureValue); !ok || v.DeciC != 250 {
		t.Errorf("env1 T=%v", got["env/temperature/env1"])
	}
	if v, ok := got["env/humidity/env1"].(types.HumidityValue); !ok || v.RHx100 != 5503 {
		t.Errorf("env1 RH=%v", got["env/humidity/env1"])
	}
	if _, ok := got["env/pressure/env1"]; ok {
		t.Error("aht20 published pressure")
	}
}

func TestStartupLogsConfiguration(t *testing.T) {
	r := newRig()
	s := r.service(t, threeSensors, 0)
	s.start()
	want := []string{
		"env2 (bme280)",
		"Sample rate: 1 Hz",
		"Resolution:  Not supported bits",
		"Scale:       Not supported C",
		"DSP:         Infinite Impulse Response + Oversampling x 4",
		"Mode:        CONTINUOUS",
	}
	// env0 and env1 log six lines each before env2.
	if len(r.log) != 18 {
		t.Fatalf("log=%q", r.log)
	}
	for i, w := range want {
		if r.log[12+i] != w {
			t.Errorf("line %d = %q, want %q", 12+i, r.log[12+i], w)
		}
	}
}

func TestSleepModeIsWritten(t *testing.T) {
	meas := func(mode string) (*rig, int) {
		r := newRig()
		s := r.service(t, "sensors:\n  - {id: env0, driver: bme280, mode: "+mode+"}\n", 0)
		s.start()
		return r, r.bme.Writes(tbme.CTRL_MEAS_ADDR)
	}
	_, base := meas("single_blocking")
	r, got := meas("sleep")
	if got != base+1 {
		t.Fatalf("ctrl_meas writes=%d, want %d", got, base+1)
	}
	if r.bme.Reg(tbme.CTRL_MEAS_ADDR)&0x03 != 0 {
		t.Fatalf("ctrl_meas=%#x", r.bme.Reg(tbme.CTRL_MEAS_ADDR))
	}
	if r.log[len(r.log)-1] != "Mode:        Sleep" {
		t.Fatalf("log=%q", r.log)
	}
}

func TestInitFailureRetriedOnNextPoll(t *testing.T) {
	r := newRig()
	r.bme.Fail = bme280sim.ErrNack
	s := r.service(t, "sensors:\n  - {id: env0, driver: bme280, interval: 1s}\n", 0)
	s.start()
	if st := r.status(t, "env0"); st.Link != types.LinkDown || st.Error != enverr.ErrInitFailed.Error() {
		t.Fatalf("status=%+v", st)
	}
	s.pollDue(r.now)
	if st := r.status(t, "env0"); st.Link != types.LinkDown {
		t.Fatalf("status=%+v", st)
	}

	r.bme.Fail = nil
	sub := r.b.NewConnection("test").Subscribe(TopicValue(types.KindTemperature, "env0"))
	r.now = r.now.Add(time.Second)
	s.pollDue(r.now)
	if st := r.status(t, "env0"); st.Link != types.LinkUp {
		t.Fatalf("status=%+v", st)
	}
	if got := drain(sub); len(got) != 1 {
		t.Fatalf("published %v", got)
	}
}

func TestReadFailuresReinitialise(t *testing.T) {
	r := newRig()
	s := r.service(t, "sensors:\n  - {id: env0, driver: aht20, interval: 1s}\n", 2)
	s.start()
	ad := s.sensors[0].ad

	r.aht.Fail = aht20sim.ErrNack
	s.pollDue(r.now)
	if st := r.status(t, "env0"); st.Link != types.LinkDegraded || st.Error != enverr.ErrReadFailed.Error() {
		t.Fatalf("after one failure: %+v", st)
	}
	r.now = r.now.Add(time.Second)
	s.pollDue(r.now)
	if st := r.status(t, "env0"); st.Link != types.LinkDown {
		t.Fatalf("after two failures: %+v", st)
	}

	r.aht.Fail = nil
	r.now = r.now.Add(time.Second)
	s.pollDue(r.now)
	if st := r.status(t, "env0"); st.Link != types.LinkUp || !ad.Bound() {
		t.Fatalf("after recovery: %+v bound=%v", st, ad.Bound())
	}
	if r.aht.Resets() != 2 {
		t.Fatalf("resets=%d", r.aht.Resets())
	}
}

func TestConfigureShortfallIsDegraded(t *testing.T) {
	r := newRig()
	// The AHT20 has no sample rate.
	s := r.service(t, "sensors:\n  - {id: env0, driver: aht20, samplerate: \"4\"}\n", 0)
	s.start()
	if st := r.status(t, "env0"); st.Link != types.LinkDegraded || st.Error != "" {
		t.Fatalf("status=%+v", st)
	}
	s.pollDue(r.now)
	if st := r.status(t, "env0"); st.Link != types.LinkDegraded {
		t.Fatalf("status after read=%+v", st)
	}
}

func TestPollSchedule(t *testing.T) {
	r := newRig()
	s := r.service(t, "sensors:\n  - {id: env0, driver: aht20, interval: 2s}\n", 0)
	s.start()
	t0 := r.now
	s.pollDue(t0)
	if want := t0.Add(2 * time.Second); !s.nextDue().Equal(want) {
		t.Fatalf("next=%v want %v", s.nextDue(), want)
	}
	// A late poll does not try to catch up.
	late := t0.Add(7 * time.Second)
	s.pollDue(late)
	if want := late.Add(2 * time.Second); !s.nextDue().Equal(want) {
		t.Fatalf("next=%v want %v", s.nextDue(), want)
	}
}

func TestNewErrors(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.SensorConfig
		want error
	}{
		{"unknown driver", config.SensorConfig{ID: "a", Driver: "bmp180", Bus: "i2c0"}, enverr.ErrUnknownDriver},
		{"unknown bus", config.SensorConfig{ID: "a", Driver: "aht20", Bus: "i2c9"}, enverr.ErrUnknownBus},
		{"bad address", config.SensorConfig{ID: "a", Driver: "shtc3", Bus: "i2c0", Addr: 0x44}, enverr.ErrInvalidValue},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{Sensors: []config.SensorConfig{tc.cfg}}
			config.Normalize(cfg)
			_, err := New(context.Background(), bus.NewBus(4).NewConnection("env"), Buses{"i2c0": i2cmux.New()}, cfg, Options{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("err=%v want %v", err, tc.want)
			}
		})
	}
}

func TestRunAnswersConfigRequests(t *testing.T) {
	r := newRig()
	s := r.service(t, "sensors:\n  - {id: env0, driver: bme280, interval: 1h}\n", 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// The status is published after Run subscribes to requests.
	deadline := time.Now().Add(time.Second)
	for r.b.Retained(TopicStatus("env0")) == nil {
		if time.Now().After(deadline) {
			t.Fatal("service did not start")
		}
		time.Sleep(time.Millisecond)
	}

	client := r.b.NewConnection("client")
	ask := func(id string) ConfigReply {
		t.Helper()
		rctx, rcancel := context.WithTimeout(context.Background(), time.Second)
		defer rcancel()
		m, err := client.RequestWait(rctx, client.NewMessage(TopicConfigGet(), id, false))
		if err != nil {
			t.Fatal(err)
		}
		return m.Payload.(ConfigReply)
	}

	rep := ask("env0")
	if rep.Error != "" || rep.Config.Mode != sensor.Sleep || rep.Config.DSPFunction != sensor.DSPLast {
		t.Fatalf("reply=%+v", rep)
	}
	rep = ask("env9")
	if rep.Error != enverr.ErrUnknownSensor.Error() {
		t.Fatalf("reply=%+v", rep)
	}
}

func TestPayloadConversion(t *testing.T) {
	if v := temperature(-40.04); v.DeciC != -400 {
		t.Errorf("T=%d", v.DeciC)
	}
	if v := temperature(5000); v.DeciC != math.MaxInt16 {
		t.Errorf("T=%d", v.DeciC)
	}
	if v := humidity(-3); v.RHx100 != 0 {
		t.Errorf("RH=%d", v.RHx100)
	}
	if v := humidity(104.2); v.RHx100 != 10000 {
		t.Errorf("RH=%d", v.RHx100)
	}
	if v := pressure(101325.4); v.Pa != 101325 {
		t.Errorf("P=%d", v.Pa)
	}
}

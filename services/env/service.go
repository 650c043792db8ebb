// Package env is the sensor service. It builds one adapter per configured
// sensor, polls them from a single goroutine and publishes the readings on
// the bus.
package env

import (
	"context"
	"fmt"
	"math"
	"time"

	"envsensor-go/bus"
	"envsensor-go/diag"
	"envsensor-go/errcode"
	"envsensor-go/sensor"
	"envsensor-go/services/env/config"
	"envsensor-go/services/env/internal/enverr"
	"envsensor-go/services/env/internal/util"
	"envsensor-go/services/env/registry"
	"envsensor-go/types"

	"tinygo.org/x/drivers"
)

// I2CBusFactory injects configured I²C instances by id.
type I2CBusFactory interface {
	ByID(id string) (drivers.I2C, bool)
}

// Buses is a fixed I2CBusFactory.
type Buses map[string]drivers.I2C

func (b Buses) ByID(id string) (drivers.I2C, bool) {
	d, ok := b[id]
	return d, ok && d != nil
}

type Options struct {
	// Log receives diagnostics. Defaults to diag.PrintSink.
	Log diag.Sink
	// Delay is handed to every backend. Defaults to time.Sleep.
	Delay func(time.Duration)
	// Clock stamps statuses and schedules polls. Defaults to time.Now.
	Clock func() time.Time
	// MaxFailures is the number of consecutive failed reads after which a
	// sensor is marked down and reinitialised on its next poll. Default 3.
	MaxFailures int
}

type entry struct {
	id     string
	ad     *sensor.Adapter
	kinds  []types.Kind
	info   types.Info
	want   sensor.Configuration
	mode   sensor.Mode
	period time.Duration

	next    time.Time
	fails   int
	link    types.Link
	healthy types.Link // link after a good read: up, or degraded if Configure fell short
	primed  bool       // an async conversion is in flight
	logged  bool
}

type Service struct {
	conn    *bus.Connection
	log     diag.Sink
	clock   func() time.Time
	maxFail int
	sensors []*entry
	timer   *time.Timer
}

// New builds a backend for every sensor in cfg. It does not touch the
// hardware; bring-up happens in Run.
func New(ctx context.Context, conn *bus.Connection, buses I2CBusFactory, cfg *config.Config, opts Options) (*Service, error) {
	if opts.Log == nil {
		opts.Log = diag.PrintSink{}
	}
	if opts.Delay == nil {
		opts.Delay = time.Sleep
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = 3
	}
	s := &Service{conn: conn, log: opts.Log, clock: opts.Clock, maxFail: opts.MaxFailures}

	for _, sc := range cfg.Sensors {
		bld, ok := registry.Lookup(sc.Driver)
		if !ok {
			return nil, fmt.Errorf("sensor %q: %w", sc.ID, enverr.ErrUnknownDriver)
		}
		i2c, ok := buses.ByID(sc.Bus)
		if !ok {
			return nil, fmt.Errorf("sensor %q: bus %q: %w", sc.ID, sc.Bus, enverr.ErrUnknownBus)
		}
		want, mode, err := sc.Resolve()
		if err != nil {
			return nil, fmt.Errorf("sensor %q: %w", sc.ID, err)
		}
		out, err := bld.Build(registry.BuildInput{
			Ctx:      ctx,
			DeviceID: sc.ID,
			Bus:      i2c,
			BusID:    sc.Bus,
			Addr:     sc.Addr,
			Delay:    opts.Delay,
		})
		if err != nil {
			return nil, fmt.Errorf("sensor %q: %w", sc.ID, err)
		}
		s.sensors = append(s.sensors, &entry{
			id:      sc.ID,
			ad:      sensor.NewAdapter(out.Driver),
			kinds:   out.Kinds,
			info:    out.Info,
			want:    want,
			mode:    mode,
			period:  sc.Interval,
			link:    types.LinkDown,
			healthy: types.LinkUp,
		})
	}
	return s, nil
}

// Run brings every sensor up and polls until ctx is cancelled. A poll in
// progress always completes.
func (s *Service) Run(ctx context.Context) {
	reqSub := s.conn.Subscribe(TopicConfigGet())
	defer s.conn.Unsubscribe(reqSub)

	s.start()

	s.timer = time.NewTimer(time.Hour)
	if !s.timer.Stop() {
		util.DrainTimer(s.timer)
	}
	for {
		util.ResetTimer(s.timer, s.nextDue().Sub(s.clock()))
		select {
		case <-ctx.Done():
			return
		case msg := <-reqSub.Channel():
			s.handleConfigGet(msg)
		case <-s.timer.C:
			s.pollDue(s.clock())
		}
	}
}

func (s *Service) start() {
	now := s.clock()
	for _, e := range s.sensors {
		s.conn.Publish(s.conn.NewMessage(TopicInfo(e.id), e.info, true))
		s.bringUp(e)
		e.next = now
	}
}

func (s *Service) nextDue() time.Time {
	var min time.Time
	for _, e := range s.sensors {
		if min.IsZero() || e.next.Before(min) {
			min = e.next
		}
	}
	if min.IsZero() {
		return s.clock().Add(time.Hour)
	}
	return min
}

func (s *Service) pollDue(now time.Time) {
	for _, e := range s.sensors {
		if now.Before(e.next) {
			continue
		}
		s.poll(e)
		if e.next = e.next.Add(e.period); !e.next.After(now) {
			e.next = now.Add(e.period)
		}
	}
}

// bringUp initialises the adapter and applies the configured settings. It
// reports whether the adapter is bound.
func (s *Service) bringUp(e *entry) bool {
	e.primed = false
	if st := e.ad.Init(); st != errcode.Success {
		s.logStatus(diag.Error, e.id+" init", st)
		s.publishStatus(e, types.LinkDown, enverr.ErrInitFailed)
		return false
	}
	cfg := e.want
	switch e.mode {
	case sensor.ModeContinuous:
		cfg.Mode = sensor.Continuous
	case sensor.ModeSleep:
		cfg.Mode = sensor.Sleep
	}
	st := e.ad.Configure(&cfg)
	if !e.logged {
		_ = s.log.Log(diag.Info, e.id+" ("+e.ad.Name()+")")
		var u string
		if len(e.kinds) > 0 {
			u = unit(e.kinds[0])
		}
		_ = diag.FormatConfiguration(s.log, diag.Info, cfg, u)
		e.logged = true
	}
	e.fails = 0
	e.healthy = types.LinkUp
	if st != errcode.Success {
		s.logStatus(diag.Warning, e.id+" configure", st)
		e.healthy = types.LinkDegraded
	}
	s.publishStatus(e, e.healthy, nil)
	return true
}

func (s *Service) poll(e *entry) {
	if e.link == types.LinkDown && !s.bringUp(e) {
		return
	}
	var st errcode.Status
	switch e.mode {
	case sensor.ModeSingleBlocking:
		st = e.ad.SetMode(sensor.ModeSingleBlocking)
	case sensor.ModeSingleAsync:
		if !e.primed {
			// The first poll only starts a conversion.
			st = e.ad.SetMode(sensor.ModeSingleAsync)
			if st == errcode.Success {
				e.primed = true
				return
			}
		}
	}
	var env sensor.Environmental
	if st == errcode.Success {
		st = e.ad.DataGet(&env)
	}
	if st == errcode.Success && e.mode == sensor.ModeSingleAsync {
		st = e.ad.SetMode(sensor.ModeSingleAsync)
	}
	if st != errcode.Success {
		s.fail(e, st)
		return
	}
	e.fails = 0
	s.publishReading(e, env)
	if e.link != e.healthy {
		s.publishStatus(e, e.healthy, nil)
	}
}

func (s *Service) fail(e *entry, st errcode.Status) {
	e.fails++
	s.logStatus(diag.Warning, e.id+" read", st)
	if e.fails >= s.maxFail || errcode.IsFatal(st) {
		_ = e.ad.Uninit()
		e.primed = false
		s.publishStatus(e, types.LinkDown, enverr.ErrReadFailed)
		return
	}
	s.publishStatus(e, types.LinkDegraded, enverr.ErrReadFailed)
}

func (s *Service) publishReading(e *entry, env sensor.Environmental) {
	for _, k := range e.kinds {
		var (
			v       float32
			payload any
		)
		switch k {
		case types.KindTemperature:
			v = env.Temperature
			payload = temperature(v)
		case types.KindHumidity:
			v = env.Humidity
			payload = humidity(v)
		case types.KindPressure:
			v = env.Pressure
			payload = pressure(v)
		default:
			continue
		}
		if math.IsNaN(float64(v)) {
			continue
		}
		s.conn.Publish(s.conn.NewMessage(TopicValue(k, e.id), payload, false))
	}
}

func (s *Service) publishStatus(e *entry, link types.Link, err error) {
	e.link = link
	cs := types.CapabilityStatus{Link: link, TS: s.clock().UnixNano()}
	if err != nil {
		cs.Error = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(TopicStatus(e.id), cs, true))
}

func (s *Service) logStatus(sev diag.Severity, prefix string, st errcode.Status) {
	_ = diag.LogStatus(s.log, sev, prefix, st)
}

func (s *Service) handleConfigGet(msg *bus.Message) {
	id, _ := msg.Payload.(string)
	for _, e := range s.sensors {
		if e.id != id {
			continue
		}
		cfg, st := e.ad.Configuration()
		_ = s.conn.Reply(msg, ConfigReply{ID: id, Config: cfg, Status: st}, false)
		return
	}
	_ = s.conn.Reply(msg, ConfigReply{ID: id, Status: errcode.InvalidParam, Error: enverr.ErrUnknownSensor.Error()}, false)
}

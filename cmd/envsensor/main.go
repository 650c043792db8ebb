//go:build !tinygo

// Command envsensor runs the sensor service on a host against simulated
// chips. Logs and readings are printed to stdout.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"envsensor-go/bus"
	"envsensor-go/diag"
	"envsensor-go/drivers/aht20/aht20sim"
	"envsensor-go/drivers/bme280/bme280sim"
	"envsensor-go/drivers/i2cmux"
	"envsensor-go/services/env"
	"envsensor-go/services/env/config"
	"envsensor-go/services/env/devices/shtc3/shtc3sim"
	"envsensor-go/x/fmtx"

	"tinygo.org/x/drivers/shtc3"

	_ "envsensor-go/services/env/devices/aht20"
	_ "envsensor-go/services/env/devices/bme280"
	_ "envsensor-go/services/env/devices/shtc3"
)

func main() {
	cfgPath := flag.String("config", "", "YAML config file (default: embedded host config)")
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmtx.Fprintf(os.Stderr, "envsensor: %v\n", err)
		os.Exit(1)
	}
	level, _ := diag.ParseSeverity(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// One simulated bus with every supported chip at its default address.
	bme, aht, sht := bme280sim.New(), aht20sim.New(), shtc3sim.New()
	i2c0 := i2cmux.New().
		Attach(bme.Addr, bme).
		Attach(aht.Addr, aht).
		Attach(shtc3.SHTC3_ADDRESS, sht)
	delay := func(d time.Duration) {
		time.Sleep(d)
		bme.Advance(d)
		aht.Advance(d)
	}

	b := bus.NewBus(16)
	mon := b.NewConnection("monitor")
	logs := mon.Subscribe(bus.T("log", bus.SingleWild))
	values := mon.Subscribe(bus.T("env", bus.SingleWild, bus.SingleWild))

	svc, err := env.New(ctx, b.NewConnection("env"), env.Buses{"i2c0": i2c0}, cfg, env.Options{
		Log:   diag.Filter{Sink: diag.BusSink{Conn: b.NewConnection("diag")}, Max: level},
		Delay: delay,
	})
	if err != nil {
		fmtx.Fprintf(os.Stderr, "envsensor: %v\n", err)
		os.Exit(1)
	}
	go svc.Run(ctx)

	out := diag.WriterSink{W: os.Stdout}
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-logs.Channel():
			if line, ok := m.Payload.(string); ok {
				_ = out.Log(diag.Info, line)
			}
		case m := <-values.Channel():
			if line, ok := env.Describe(m); ok {
				_ = out.Log(diag.Info, line)
			}
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Embedded("host")
	}
	return config.Load(path)
}


//go:build rp2040 || rp2350

// Command pico-envsensor runs the sensor service on a Pico or Pico 2 with
// the sensors on i2c0 (GP4/GP5). Diagnostics go to UART0.
package main

import (
	"context"
	"machine"
	"time"

	"envsensor-go/bus"
	"envsensor-go/diag"
	"envsensor-go/services/env"
	"envsensor-go/services/env/config"
	"envsensor-go/x/fmtx"

	_ "envsensor-go/services/env/devices/aht20"
	_ "envsensor-go/services/env/devices/bme280"
	_ "envsensor-go/services/env/devices/shtc3"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] boot")

	u := uartx.UART0
	_ = u.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})
	fmtx.DefaultOutput = u
	var out diag.Sink = diag.WriterSink{W: u}

	cfg, err := config.Embedded("pico")
	if err != nil {
		fmtx.Printf("[main] config: %s\r\n", err.Error())
		return
	}
	if level, ok := diag.ParseSeverity(cfg.Log.Level); ok {
		out = diag.Filter{Sink: out, Max: level}
	}

	i2c0 := machine.I2C0
	_ = i2c0.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	})

	ctx := context.Background()
	b := bus.NewBus(8)
	svc, err := env.New(ctx, b.NewConnection("env"), env.Buses{"i2c0": i2c0}, cfg, env.Options{Log: out})
	if err != nil {
		fmtx.Printf("[main] env: %s\r\n", err.Error())
		return
	}

	mon := b.NewConnection("monitor").Subscribe(bus.T("env", bus.SingleWild, bus.SingleWild))
	go svc.Run(ctx)

	for m := range mon.Channel() {
		if line, ok := env.Describe(m); ok {
			_ = out.Log(diag.Info, line)
		}
	}
}

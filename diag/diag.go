// Package diag writes human-readable sensor diagnostics to a line sink.
//
// A Sink takes one line at a time with a severity. Lines carry no
// terminator; sinks that need one add it.
package diag

import (
	"errors"
	"io"

	"envsensor-go/bus"
	"envsensor-go/errcode"
	"envsensor-go/sensor"
)

// Severity orders log lines, most severe first.
type Severity uint8

const (
	Error Severity = iota
	Warning
	Info
	Debug
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Debug:
		return "debug"
	}
	return "unknown"
}

// ParseSeverity is the inverse of Severity.String.
func ParseSeverity(s string) (Severity, bool) {
	for sev := Error; sev <= Debug; sev++ {
		if sev.String() == s {
			return sev, true
		}
	}
	return Info, false
}

// Sink receives log lines.
type Sink interface {
	Log(sev Severity, line string) error
}

// PrintSink writes with the runtime println, which works before any UART
// or stdout is set up.
type PrintSink struct{}

func (PrintSink) Log(_ Severity, line string) error {
	println(line)
	return nil
}

var errNilWriter = errors.New("diag: nil writer")

// WriterSink writes each line to W terminated by "\r\n".
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Log(_ Severity, line string) error {
	if s.W == nil {
		return errNilWriter
	}
	buf := make([]byte, 0, len(line)+2)
	buf = append(buf, line...)
	buf = append(buf, '\r', '\n')
	_, err := s.W.Write(buf)
	return err
}

// BusSink publishes each line as a string payload on log/<severity>.
type BusSink struct {
	Conn *bus.Connection
}

func (s BusSink) Log(sev Severity, line string) error {
	if s.Conn == nil {
		return errors.New("diag: nil connection")
	}
	s.Conn.Publish(s.Conn.NewMessage(bus.T("log", sev.String()), line, false))
	return nil
}

// Filter drops lines less severe than Max.
type Filter struct {
	Sink Sink
	Max  Severity
}

func (f Filter) Log(sev Severity, line string) error {
	if sev > f.Max {
		return nil
	}
	return f.Sink.Log(sev, line)
}

// FormatConfiguration logs a configuration snapshot as five lines:
//
//	Sample rate: 1 Hz
//	Resolution:  Not supported bits
//	Scale:       Not supported C
//	DSP:         Infinite Impulse Response x 4
//	Mode:        CONTINUOUS
//
// The first sink error stops the output and is returned.
func FormatConfiguration(sink Sink, level Severity, cfg sensor.Configuration, unit string) error {
	var buf [64]byte
	lines := [...]func([]byte) []byte{
		func(b []byte) []byte {
			b = append(b, "Sample rate: "...)
			return append(cfg.Samplerate.AppendText(b), " Hz"...)
		},
		func(b []byte) []byte {
			b = append(b, "Resolution:  "...)
			return append(cfg.Resolution.AppendText(b), " bits"...)
		},
		func(b []byte) []byte {
			b = append(b, "Scale:       "...)
			b = append(cfg.Scale.AppendText(b), ' ')
			return append(b, unit...)
		},
		func(b []byte) []byte {
			b = append(b, "DSP:         "...)
			b = append(b, cfg.DSPFunction.String()...)
			b = append(b, " x "...)
			return cfg.DSPParameter.AppendText(b)
		},
		func(b []byte) []byte {
			b = append(b, "Mode:        "...)
			return cfg.Mode.AppendText(b)
		},
	}
	for _, line := range lines {
		if err := sink.Log(level, string(line(buf[:0]))); err != nil {
			return err
		}
	}
	return nil
}

// LogStatus logs s on one line as "<prefix>: NAME, NAME". Success, which
// has no kinds, is written as SUCCESS.
func LogStatus(sink Sink, level Severity, prefix string, s errcode.Status) error {
	var buf [96]byte
	b := append(buf[:0], prefix...)
	b = append(b, ": "...)
	if s == errcode.Success {
		b = append(b, "SUCCESS"...)
	} else {
		b = errcode.AppendTo(b, s)
	}
	return sink.Log(level, string(b))
}

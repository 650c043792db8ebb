package i2cmux

import (
	"errors"
	"testing"
)

type echo struct {
	addr  uint16
	calls int
}

func (e *echo) Tx(addr uint16, w, r []byte) error {
	e.calls++
	e.addr = addr
	copy(r, w)
	return nil
}

func TestRouting(t *testing.T) {
	a, b := &echo{}, &echo{}
	bus := New().Attach(0x38, a).Attach(0x76, b)

	r := make([]byte, 1)
	if err := bus.Tx(0x76, []byte{0xD0}, r); err != nil {
		t.Fatal(err)
	}
	if b.calls != 1 || a.calls != 0 || b.addr != 0x76 || r[0] != 0xD0 {
		t.Fatalf("a=%+v b=%+v r=%x", a, b, r)
	}
	if err := bus.Tx(0x70, []byte{0x35, 0x17}, nil); !errors.Is(err, ErrNack) {
		t.Fatalf("err=%v", err)
	}
	bus.Detach(0x38)
	if err := bus.Tx(0x38, []byte{0x71}, r); !errors.Is(err, ErrNack) {
		t.Fatalf("detached: err=%v", err)
	}
}

package drvshim

import "tinygo.org/x/drivers"

// Latch adapts a bus for drivers that drop transaction errors. It forwards
// every Tx and keeps the first error until Take is called.
type Latch struct {
	Bus drivers.I2C
	// Verify, if set, checks every completed transaction. Its error is
	// latched like a bus error.
	Verify func(addr uint16, w, r []byte) error
	err    error
}

func (l *Latch) Tx(addr uint16, w, r []byte) error {
	if l.Bus == nil {
		if l.err == nil {
			l.err = errNoBus
		}
		return errNoBus
	}
	err := l.Bus.Tx(addr, w, r)
	if err == nil && l.Verify != nil {
		err = l.Verify(addr, w, r)
	}
	if err != nil && l.err == nil {
		l.err = err
	}
	return err
}

// Take returns the first error since the last call and clears it.
func (l *Latch) Take() error {
	err := l.err
	l.err = nil
	return err
}

type noBus struct{}

func (noBus) Error() string { return "no_bus" }

// errNoBus is comparable so backends can classify it.
var errNoBus error = noBus{}

// IsNoBus reports whether err came from a Latch without a bus.
func IsNoBus(err error) bool { return err == errNoBus }

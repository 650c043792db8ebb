// Package errcode defines the composite status used across the sensor stack.
//
// A Status is a bit-set: every bit is one independent error kind and the zero
// value is success. Composite operations OR the statuses of their steps, so a
// single value can report failures from several subsystems at once:
//
//	st := drv.Init()
//	st |= drv.SelfTest()
//	st |= drv.SoftReset()
//	if st != errcode.Success {
//		println("bring-up:", st.String()) // e.g. "NOT_FOUND, BUSY"
//	}
package errcode

// Status is a stable, bus-facing bit-set of error kinds.
// It is comparable, allocation-free to combine, and implements error.
type Status uint32

// Success is the empty set.
const Success Status = 0

// Error kinds. Bit positions are part of the wire contract and must not move.
const (
	Internal Status = 1 << iota
	NotFound
	NoMem
	NotSupported
	InvalidParam
	InvalidState
	InvalidLength
	InvalidFlags
	InvalidData
	DataSize
	Timeout
	Null
	Forbidden
	InvalidAddr
	Busy
	Resources
	NotImplemented
	SelfTest
)

// Fatal marks a condition where continued operation is unsafe. Never retried.
const Fatal Status = 1 << 31

// Combine returns the union of a and b.
func Combine(a, b Status) Status { return a | b }

// Combine returns the union of s and every status in others.
func (s Status) Combine(others ...Status) Status {
	for _, o := range others {
		s |= o
	}
	return s
}

// Has reports whether every bit of kind is set in s. Has(Success) is false.
func (s Status) Has(kind Status) bool { return kind != 0 && s&kind == kind }

// Bits returns the raw bit pattern.
func (s Status) Bits() uint32 { return uint32(s) }

// IsSuccess reports whether no error bit is set.
func (s Status) IsSuccess() bool { return s == Success }

// Without returns s with the bits of kind cleared.
func (s Status) Without(kind Status) Status { return s &^ kind }

// Optional reports whether s only carries the "capability absent" kinds
// (NotSupported, NotImplemented). Callers may degrade gracefully on these.
func Optional(s Status) bool {
	return s != Success && s&^(NotSupported|NotImplemented) == 0
}

// IsFatal reports whether the Fatal bit is set.
func IsFatal(s Status) bool { return s.Has(Fatal) }

// Error implements error. A zero Status renders as "SUCCESS"; prefer Err when
// a nil error is wanted for success.
func (s Status) Error() string { return s.String() }

// String joins the rendered kind names with ", ".
func (s Status) String() string { return string(AppendTo(nil, s)) }

// Err returns nil for Success and s otherwise.
func (s Status) Err() error {
	if s == Success {
		return nil
	}
	return s
}

// Of extracts a Status from an error, defaulting to Internal.
func Of(err error) Status {
	if err == nil {
		return Success
	}
	if s, ok := err.(Status); ok {
		return s
	}
	type statuser interface{ Status() Status }
	if x, ok := err.(statuser); ok {
		return x.Status()
	}
	return Internal
}

package errcode

import (
	"io"
	"iter"
	"math/bits"
)

// Kind names indexed by bit position. Empty entries are unassigned bits.
var kindNames = [32]string{
	0:  "INTERNAL",
	1:  "NOT_FOUND",
	2:  "NO_MEM",
	3:  "NOT_SUPPORTED",
	4:  "INVALID_PARAM",
	5:  "INVALID_STATE",
	6:  "INVALID_LENGTH",
	7:  "INVALID_FLAGS",
	8:  "INVALID_DATA",
	9:  "DATA_SIZE",
	10: "TIMEOUT",
	11: "NULL",
	12: "FORBIDDEN",
	13: "INVALID_ADDR",
	14: "BUSY",
	15: "RESOURCES",
	16: "NOT_IMPLEMENTED",
	17: "SELFTEST",
	31: "FATAL",
}

const separator = ", "

// Kinds yields every single-bit kind set in s, lowest bit first.
// Success yields nothing.
func Kinds(s Status) iter.Seq[Status] {
	return func(yield func(Status) bool) {
		for rest := s; rest != 0; {
			low := rest & -rest
			rest &^= low
			if !yield(low) {
				return
			}
		}
	}
}

// Name returns the name of a single-bit kind, "SUCCESS" for zero and
// "UNKNOWN" for unassigned or multi-bit values.
func Name(kind Status) string {
	if kind == Success {
		return "SUCCESS"
	}
	if bits.OnesCount32(uint32(kind)) != 1 {
		return "UNKNOWN"
	}
	if n := kindNames[bits.TrailingZeros32(uint32(kind))]; n != "" {
		return n
	}
	return "UNKNOWN"
}

// Render yields the kind names set in s, lowest bit first. Success yields
// exactly "SUCCESS". The sequence is finite and may be ranged over repeatedly
// with identical results; s itself is never modified.
func Render(s Status) iter.Seq[string] {
	return func(yield func(string) bool) {
		if s == Success {
			yield(Name(Success))
			return
		}
		for k := range Kinds(s) {
			if !yield(Name(k)) {
				return
			}
		}
	}
}

// AppendTo appends the ", "-joined rendering of s to dst.
func AppendTo(dst []byte, s Status) []byte {
	first := true
	for name := range Render(s) {
		if !first {
			dst = append(dst, separator...)
		}
		dst = append(dst, name...)
		first = false
	}
	return dst
}

// Write renders s into w. A nil w is reported as Null, and a failing writer
// as Internal; both are reported through the same taxonomy they render.
func Write(w io.Writer, s Status) (int, Status) {
	if w == nil {
		return 0, Null
	}
	var buf [64]byte
	n, err := w.Write(AppendTo(buf[:0], s))
	if err != nil {
		return n, Internal
	}
	return n, Success
}

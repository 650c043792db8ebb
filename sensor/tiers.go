package sensor

import (
	"time"

	"envsensor-go/errcode"
	"envsensor-go/x/timex"
)

// Tier is one selectable sample rate of a device.
type Tier[T comparable] struct {
	Code   T
	Rate   uint8 // samples per second reported back to callers
	Period time.Duration
}

// Tiers is a device's sample-rate table, ordered slowest first.
type Tiers[T comparable] struct {
	List    []Tier[T]
	Default int // index into List used for the DEFAULT sentinel
}

// Quantize selects the tier for a requested rate. A literal picks the
// slowest tier that still samples at least as often as asked. MIN and MAX
// pick the ends of the table and DEFAULT the declared default. Everything
// else, STOP included, is NOT_SUPPORTED.
func (t Tiers[T]) Quantize(v Value) (T, errcode.Status) {
	var zero T
	if len(t.List) == 0 {
		return zero, errcode.NotSupported
	}
	if n, ok := v.Literal(); ok {
		want := time.Duration(timex.PeriodFromHz(uint32(n)))
		for _, tier := range t.List {
			if tier.Period <= want {
				return tier.Code, errcode.Success
			}
		}
		return t.List[len(t.List)-1].Code, errcode.Success
	}
	s, ok := v.Sentinel()
	if !ok {
		return zero, errcode.NotSupported
	}
	switch s {
	case SentinelMin:
		return t.List[0].Code, errcode.Success
	case SentinelMax:
		return t.List[len(t.List)-1].Code, errcode.Success
	case SentinelDefault:
		return t.List[t.Default].Code, errcode.Success
	}
	return zero, errcode.NotSupported
}

// Lookup returns the rate of the tier with the given code.
func (t Tiers[T]) Lookup(code T) (Value, bool) {
	for _, tier := range t.List {
		if tier.Code == code {
			return Literal(tier.Rate), true
		}
	}
	return Invalid, false
}

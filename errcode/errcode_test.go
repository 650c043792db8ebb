package errcode

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"testing"
)

var sample = []Status{
	Success, Internal, NotFound, Null, Busy, NotSupported, NotImplemented,
	SelfTest, Fatal, Busy | Null, NotFound | Timeout | Fatal, 1 << 20, 1<<25 | Busy,
}

func TestCombineIsCommutativeAndIdempotent(t *testing.T) {
	for _, a := range sample {
		if Combine(a, a) != a {
			t.Fatalf("Combine(%#x, itself) = %#x", uint32(a), uint32(Combine(a, a)))
		}
		for _, b := range sample {
			if Combine(a, b) != Combine(b, a) {
				t.Fatalf("Combine not commutative for %#x, %#x", uint32(a), uint32(b))
			}
		}
	}
}

func TestVariadicCombine(t *testing.T) {
	got := Success.Combine(Busy, Null, Busy)
	if got != Busy|Null {
		t.Fatalf("got %#x", uint32(got))
	}
	if Success.Combine() != Success {
		t.Fatal("empty combine must stay Success")
	}
}

func TestRenderLowestBitFirst(t *testing.T) {
	want := []string{"NULL", "BUSY"}
	for _, s := range []Status{Combine(Busy, Null), Combine(Null, Busy)} {
		got := slices.Collect(Render(s))
		if !slices.Equal(got, want) {
			t.Fatalf("Render(%#x) = %v, want %v", uint32(s), got, want)
		}
	}
}

func TestRenderSuccess(t *testing.T) {
	got := slices.Collect(Render(Success))
	if !slices.Equal(got, []string{"SUCCESS"}) {
		t.Fatalf("got %v", got)
	}
	if Success.String() != "SUCCESS" {
		t.Fatalf("String() = %q", Success.String())
	}
}

func TestRenderUnknownBits(t *testing.T) {
	s := NotFound | 1<<20 | Fatal
	got := slices.Collect(Render(s))
	want := []string{"NOT_FOUND", "UNKNOWN", "FATAL"}
	if !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRenderIsRestartableAndPure(t *testing.T) {
	s := Internal | InvalidState | SelfTest
	seq := Render(s)
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if !slices.Equal(first, second) {
		t.Fatalf("re-run differs: %v vs %v", first, second)
	}
	if s != Internal|InvalidState|SelfTest {
		t.Fatal("input mutated")
	}
}

func TestRenderEarlyStop(t *testing.T) {
	var got []string
	for name := range Render(Internal | NotFound | NoMem) {
		got = append(got, name)
		if len(got) == 2 {
			break
		}
	}
	if !slices.Equal(got, []string{"INTERNAL", "NOT_FOUND"}) {
		t.Fatalf("got %v", got)
	}
}

func TestEveryNamedKindRoundTrips(t *testing.T) {
	cases := map[Status]string{
		Internal:       "INTERNAL",
		NotFound:       "NOT_FOUND",
		NoMem:          "NO_MEM",
		NotSupported:   "NOT_SUPPORTED",
		InvalidParam:   "INVALID_PARAM",
		InvalidState:   "INVALID_STATE",
		InvalidLength:  "INVALID_LENGTH",
		InvalidFlags:   "INVALID_FLAGS",
		InvalidData:    "INVALID_DATA",
		DataSize:       "DATA_SIZE",
		Timeout:        "TIMEOUT",
		Null:           "NULL",
		Forbidden:      "FORBIDDEN",
		InvalidAddr:    "INVALID_ADDR",
		Busy:           "BUSY",
		Resources:      "RESOURCES",
		NotImplemented: "NOT_IMPLEMENTED",
		SelfTest:       "SELFTEST",
		Fatal:          "FATAL",
	}
	seen := Success
	for k, want := range cases {
		if Name(k) != want {
			t.Fatalf("Name(%#x) = %q, want %q", uint32(k), Name(k), want)
		}
		if seen&k != 0 {
			t.Fatalf("kind %s shares a bit", want)
		}
		seen |= k
	}
}

func TestStringJoinsWithSeparator(t *testing.T) {
	if got := (NotFound | Busy | Fatal).String(); got != "NOT_FOUND, BUSY, FATAL" {
		t.Fatalf("got %q", got)
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	n, st := Write(&buf, Timeout|Null)
	if st != Success || n != buf.Len() || buf.String() != "TIMEOUT, NULL" {
		t.Fatalf("n=%d st=%v out=%q", n, st, buf.String())
	}

	if _, st := Write(nil, Busy); st != Null {
		t.Fatalf("nil writer: got %v, want NULL", st)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestWriteReportsWriterFailure(t *testing.T) {
	if _, st := Write(failingWriter{}, Busy); st != Internal {
		t.Fatalf("got %v", st)
	}
}

type statusCarrier struct{ s Status }

func (e statusCarrier) Error() string  { return "carrier" }
func (e statusCarrier) Status() Status { return e.s }

func TestOfAndErr(t *testing.T) {
	if Success.Err() != nil {
		t.Fatal("Success.Err() must be nil")
	}
	if err := Busy.Err(); err == nil || Of(err) != Busy {
		t.Fatalf("Busy.Err() = %v", err)
	}
	if Of(nil) != Success {
		t.Fatal("Of(nil)")
	}
	if Of(statusCarrier{NotFound | Timeout}) != NotFound|Timeout {
		t.Fatal("Of(statuser)")
	}
	if Of(errors.New("x")) != Internal {
		t.Fatal("Of(plain error) must be Internal")
	}
	wrapped := fmt.Errorf("ctx: %w", Busy)
	if Of(wrapped) != Internal {
		t.Fatal("Of does not unwrap; wrapped errors map to Internal")
	}
}

func TestClassification(t *testing.T) {
	if !Optional(NotSupported) || !Optional(NotSupported|NotImplemented) {
		t.Fatal("absent-capability statuses must be optional")
	}
	if Optional(Success) || Optional(NotSupported|Busy) {
		t.Fatal("real errors must not be optional")
	}
	if !IsFatal(Fatal|Busy) || IsFatal(Busy) {
		t.Fatal("IsFatal")
	}
	if !(Busy | Null).Has(Busy) || (Busy).Has(Busy|Null) || Busy.Has(Success) {
		t.Fatal("Has")
	}
	if (Busy | Null).Without(Busy) != Null {
		t.Fatal("Without")
	}
}

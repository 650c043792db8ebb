package util

import (
	"testing"
	"time"
)

func TestResetTimerAfterFire(t *testing.T) {
	tm := time.NewTimer(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	ResetTimer(tm, 10*time.Millisecond)
	select {
	case <-tm.C:
		t.Fatal("stale fire was not drained")
	case <-time.After(2 * time.Millisecond):
	}
	select {
	case <-tm.C:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timer did not fire after reset")
	}
}

func TestResetTimerNegative(t *testing.T) {
	tm := time.NewTimer(time.Hour)
	ResetTimer(tm, -time.Second)
	select {
	case <-tm.C:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("negative duration must fire immediately")
	}
}

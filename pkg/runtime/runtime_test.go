package runtime

import (
	"testing"
	"time"
)

func TestNanoTime_Monotonic(t *testing.T) {
	prev := NanoTime()
	for i := 0; i < 1000; i++ {
		now := NanoTime()
		if now < prev {
			t.Fatalf("NanoTime went backwards: %d < %d", now, prev)
		}
		prev = now
	}
}

func TestNanoTime_TracksSleep(t *testing.T) {
	start := NanoTime()
	time.Sleep(10 * time.Millisecond)
	if elapsed := time.Duration(NanoTime() - start); elapsed < 10*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 10ms", elapsed)
	}
}

func TestProcyield_Returns(t *testing.T) {
	Procyield(30)
}

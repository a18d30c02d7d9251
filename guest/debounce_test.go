package guest

import (
	"testing"
	"time"
)

func TestDebouncer_BurstFiresOnce(t *testing.T) {
	d := newDebouncer(40 * time.Millisecond)

	for i := 0; i < 10; i++ {
		d.touch()
		time.Sleep(5 * time.Millisecond)
	}

	fired := 0
	deadline := time.After(300 * time.Millisecond)
loop:
	for {
		select {
		case <-d.timerC():
			fired++
			d.reset()
		case <-deadline:
			break loop
		}
	}
	if fired != 1 {
		t.Fatalf("fired %d times, want 1", fired)
	}
}

func TestDebouncer_TouchDelaysFire(t *testing.T) {
	d := newDebouncer(50 * time.Millisecond)
	start := time.Now()
	d.touch()
	time.Sleep(30 * time.Millisecond)
	d.touch()

	<-d.timerC()
	if elapsed := time.Since(start); elapsed < 75*time.Millisecond {
		t.Fatalf("fired after %v, before the restarted window", elapsed)
	}
}

func TestDebouncer_ResetCancels(t *testing.T) {
	d := newDebouncer(10 * time.Millisecond)
	d.touch()
	d.reset()
	if d.pending() {
		t.Fatal("pending after reset")
	}
	select {
	case <-d.timerC():
		t.Fatal("fired after reset")
	case <-time.After(40 * time.Millisecond):
	}
}

func TestDebouncer_DefaultWindow(t *testing.T) {
	if d := newDebouncer(0); d.window != DefaultDebounce {
		t.Fatalf("window = %v", d.window)
	}
}

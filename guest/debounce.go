package guest

import "time"

// DefaultDebounce is the idle window before extraction runs.
const DefaultDebounce = 200 * time.Millisecond

// debouncer restarts its timer on every touch and fires once the window
// passes without one. It is driven from the observer loop and is not safe
// for concurrent use.
type debouncer struct {
	window  time.Duration
	timer   *time.Timer
	timerCh <-chan time.Time
}

func newDebouncer(window time.Duration) *debouncer {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &debouncer{window: window}
}

// touch (re)starts the window.
func (d *debouncer) touch() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.NewTimer(d.window)
	d.timerCh = d.timer.C
}

// timerC returns the channel that fires when the window expires. It is nil
// while nothing is pending, which blocks forever in a select.
func (d *debouncer) timerC() <-chan time.Time {
	return d.timerCh
}

// reset drops any pending fire.
func (d *debouncer) reset() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = nil
	d.timerCh = nil
}

func (d *debouncer) pending() bool {
	return d.timerCh != nil
}

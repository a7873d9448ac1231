package binding

import (
	"sync"
	"time"
)

// Debouncer runs only the most recent function triggered within its delay.
// Each trigger takes a new token; a timer whose token is no longer current
// does nothing even if it already fired.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	token uint64
}

// NewDebouncer creates a debouncer with the given delay.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn after the delay, superseding any pending call.
// It returns the token assigned to this call.
func (d *Debouncer) Trigger(fn func()) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.token++
	token := d.token
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		if d.current(token) {
			fn()
		}
	})
	return token
}

// Cancel drops any pending call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.token++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) current(token uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return token == d.token
}

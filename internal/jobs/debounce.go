package jobs

import (
	"context"
	"sync"
	"time"
)

// Debouncer runs a function once its trigger has been quiet for a delay.
// Every Trigger supersedes the previous one: a pending run is dropped and a
// running one has its context cancelled. Each trigger gets a generation
// number, and Current tells a finished run whether its result may still be
// applied.
type Debouncer struct {
	delay time.Duration

	mu     sync.Mutex
	gen    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDebouncer creates a Debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn and returns its generation.
func (d *Debouncer) Trigger(fn func(ctx context.Context, gen uint64)) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.gen++
	gen := d.gen

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.wg.Add(1)
	d.timer = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		defer cancel()
		if ctx.Err() != nil {
			return
		}
		fn(ctx, gen)
	})
	return gen
}

// Current reports whether gen is still the newest trigger.
func (d *Debouncer) Current(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return gen == d.gen
}

// Cancel drops any pending run and invalidates any running one.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.gen++
}

// Wait blocks until no run is pending or in flight.
func (d *Debouncer) Wait() {
	d.wg.Wait()
}

// Close cancels and waits.
func (d *Debouncer) Close() {
	d.Cancel()
	d.Wait()
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil && d.timer.Stop() {
		// The callback will never run, so it cannot release its slot.
		d.wg.Done()
	}
	d.timer = nil
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

package file

import (
	"sync"
	"time"

	"github.com/aretw0/silt/pkg/core"
)

// debouncer coalesces rapid events per key: each add resets the key's
// timer and replaces its payload, so only the last event within the window
// is delivered.
type debouncer struct {
	window time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{
		window: window,
		timers: make(map[string]*time.Timer),
	}
}

// add schedules fn(event) after the debounce window. A pending timer for
// the same key is cancelled first.
func (d *debouncer) add(key string, event core.Event, fn func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if prev, ok := d.timers[key]; ok {
		if prev.Stop() {
			d.wg.Done()
		}
		delete(d.timers, key)
	}

	d.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(d.window, func() {
		defer d.wg.Done()

		d.mu.Lock()
		// Only clear the slot if it still belongs to this timer; a newer
		// add may have replaced it while we were firing.
		if d.timers[key] == timer {
			delete(d.timers, key)
		}
		stopped := d.stopped
		d.mu.Unlock()

		if stopped {
			return
		}
		fn(event)
	})
	d.timers[key] = timer
}

// stopAndWait refuses new events, cancels pending timers and waits up to
// timeout for timers already firing to finish.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	for key, timer := range d.timers {
		if timer.Stop() {
			d.wg.Done()
		}
		delete(d.timers, key)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
	}
}

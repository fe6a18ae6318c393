package playback

import (
	"sync"
	"time"
)

// countdown is a cancellable one-shot timer with explicit state. Arming an
// armed countdown is a no-op; cancelling disarms without firing. The fire
// callback runs outside the countdown lock.
type countdown struct {
	mu    sync.Mutex
	timer *time.Timer
	armed bool
}

// start arms the countdown for d and reports whether it armed. fire runs on
// completion unless cancel is called first.
func (c *countdown) start(d time.Duration, fire func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.armed {
		return false
	}
	c.armed = true
	c.timer = time.AfterFunc(d, func() {
		c.mu.Lock()
		wasArmed := c.armed
		c.armed = false
		c.mu.Unlock()
		if wasArmed {
			fire()
		}
	})
	return true
}

// cancel disarms the countdown and reports whether it was armed.
func (c *countdown) cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.armed {
		return false
	}
	c.armed = false
	if c.timer != nil {
		c.timer.Stop()
	}
	return true
}

func (c *countdown) isArmed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

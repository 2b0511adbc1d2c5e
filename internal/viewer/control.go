package viewer

import (
	"context"
	"sync"
)

// control lets the window pause, resume and restart the background run. A
// paused run blocks at its next snapshot; nothing inside a step is
// interrupted.
type control struct {
	mu      sync.Mutex
	paused  bool
	resume  chan struct{} // closed when a pause ends
	cancel  context.CancelFunc
	restart chan struct{}
}

func newControl() *control {
	return &control{restart: make(chan struct{}, 1)}
}

// Pause holds the run at its next snapshot.
func (c *control) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		c.paused = true
		c.resume = make(chan struct{})
	}
}

// Resume releases a paused run.
func (c *control) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		c.paused = false
		close(c.resume)
	}
}

// Paused reports whether a pause is in effect.
func (c *control) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Reset abandons the current run, if any, and asks for a new one from the
// initial state.
func (c *control) Reset() {
	c.Resume()
	select {
	case c.restart <- struct{}{}:
	default:
	}
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// begin derives the context of one run from parent.
func (c *control) begin(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	return ctx
}

// end releases the context handed out by begin.
func (c *control) end() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// restartRequested consumes a pending Reset without blocking.
func (c *control) restartRequested() bool {
	select {
	case <-c.restart:
		return true
	default:
		return false
	}
}

// wait blocks while paused. It returns ctx's error if ctx ends first.
func (c *control) wait(ctx context.Context) error {
	c.mu.Lock()
	if !c.paused {
		c.mu.Unlock()
		return nil
	}
	ch := c.resume
	c.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loop runs fn until parent is done. After fn returns it starts again only
// when Reset was called; otherwise it waits for a Reset or for parent to end.
// onDone sees the outcome of every run that was not abandoned by Reset.
func (c *control) loop(parent context.Context, fn func(ctx context.Context) error, onDone func(error)) {
	for {
		err := fn(c.begin(parent))
		c.end()
		if parent.Err() != nil {
			return
		}
		if c.restartRequested() {
			continue
		}
		onDone(err)

		select {
		case <-parent.Done():
			return
		case <-c.restart:
		}
	}
}

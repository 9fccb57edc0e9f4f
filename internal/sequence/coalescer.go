package sequence

import "sync"

// Coalescer collapses repeated same-key tasks into one run on a sequence.
// While a key is queued, newer callbacks replace the queued one, so only the
// latest runs.
type Coalescer struct {
	post func(func()) bool

	mu     sync.Mutex
	queued map[string]func()
	closed bool
}

// NewCoalescer returns a coalescer that schedules through post, usually a
// Runner's Post method.
func NewCoalescer(post func(func()) bool) *Coalescer {
	if post == nil {
		panic("sequence.NewCoalescer: nil post function")
	}
	return &Coalescer{post: post, queued: make(map[string]func())}
}

// Post queues fn under key and reports whether a new task was scheduled.
// It returns false when fn merely replaced an already queued callback, and
// when the coalescer is destroyed or the sequence rejected the task.
func (c *Coalescer) Post(key string, fn func()) bool {
	if fn == nil || key == "" {
		return false
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	_, already := c.queued[key]
	c.queued[key] = fn
	c.mu.Unlock()
	if already {
		return false
	}

	if c.post(func() { c.run(key) }) {
		return true
	}

	c.mu.Lock()
	delete(c.queued, key)
	c.mu.Unlock()
	return false
}

func (c *Coalescer) run(key string) {
	c.mu.Lock()
	fn, ok := c.queued[key]
	delete(c.queued, key)
	c.mu.Unlock()

	if ok {
		fn()
	}
}

// Pending reports whether a callback for key is queued and has not run.
func (c *Coalescer) Pending(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.queued[key]
	return ok
}

// Destroy drops all queued callbacks and ignores later posts.
func (c *Coalescer) Destroy() {
	c.mu.Lock()
	c.closed = true
	clear(c.queued)
	c.mu.Unlock()
}

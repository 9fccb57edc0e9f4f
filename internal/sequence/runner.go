// Package sequence provides sequenced task execution: a Runner owns one
// goroutine and runs posted tasks one at a time, in posting order.
package sequence

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when posting to a runner that has been closed.
var ErrClosed = errors.New("sequence: runner closed")

// Runner executes posted tasks serially on a dedicated goroutine.
// Its queue is unbounded so that two runners replying to each other
// can never deadlock on a full buffer.
type Runner struct {
	name   string
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

// NewRunner starts a runner. name is used for diagnostics only.
func NewRunner(name string) *Runner {
	r := &Runner{
		name: name,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go r.loop()
	return r
}

// Name returns the runner's diagnostic name.
func (r *Runner) Name() string {
	return r.name
}

// Post queues fn. It returns false if the runner is closed.
func (r *Runner) Post(fn func()) bool {
	if fn == nil {
		return false
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	r.queue = append(r.queue, fn)
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
	return true
}

// Close stops accepting tasks, runs the ones already queued, and waits for
// the goroutine to exit. It must not be called from a task on r.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
	<-r.done
}

func (r *Runner) loop() {
	defer close(r.done)

	for {
		r.mu.Lock()
		for len(r.queue) == 0 && !r.closed {
			r.mu.Unlock()
			<-r.wake
			r.mu.Lock()
		}
		if len(r.queue) == 0 {
			r.mu.Unlock()
			return
		}
		task := r.queue[0]
		r.queue[0] = nil
		r.queue = r.queue[1:]
		r.mu.Unlock()

		task()
	}
}

// PostTaskAndReply runs task on worker and then reply with its result on
// replyTo. It returns false if worker refused the task. If replyTo has been
// closed by the time task finishes, the reply is dropped.
func PostTaskAndReply[T any](worker, replyTo *Runner, task func() T, reply func(T)) bool {
	return worker.Post(func() {
		result := task()
		replyTo.Post(func() { reply(result) })
	})
}

// Call runs fn on r and waits for its result.
func Call[T any](ctx context.Context, r *Runner, fn func() T) (T, error) {
	var zero T
	result := make(chan T, 1)

	if !r.Post(func() { result <- fn() }) {
		return zero, ErrClosed
	}

	select {
	case v := <-result:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Flush waits until every task posted to r before the call has run.
func Flush(ctx context.Context, r *Runner) error {
	_, err := Call(ctx, r, func() struct{} { return struct{}{} })
	return err
}

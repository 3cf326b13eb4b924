// Package eventloop provides a single-threaded queue of deferred calls.
package eventloop

// Loop runs single-shot calls on the next iteration, in the order they were
// posted. It starts no goroutines; the owner drives it with RunPending.
//
// Loop is not safe for concurrent use.
type Loop struct {
	queue []func()
}

// New creates an empty loop.
func New() *Loop {
	return &Loop{queue: make([]func(), 0)}
}

// Post schedules fn for the next iteration.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.queue = append(l.queue, fn)
}

// RunPending runs every call queued before it was invoked and returns how
// many ran. Calls posted while running wait for the next iteration.
func (l *Loop) RunPending() int {
	pending := l.queue
	l.queue = make([]func(), 0)
	for _, fn := range pending {
		fn()
	}
	return len(pending)
}

// Drain runs iterations until the queue is empty or limit iterations have
// run, and returns the number of iterations.
func (l *Loop) Drain(limit int) int {
	n := 0
	for n < limit && len(l.queue) > 0 {
		l.RunPending()
		n++
	}
	return n
}

// Len returns the number of queued calls.
func (l *Loop) Len() int {
	return len(l.queue)
}

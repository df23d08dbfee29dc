package uploadform

import (
	"context"
	"sync"
)

// Loop runs posted callbacks one at a time on a single goroutine. Form state
// must only be touched from inside a callback.
type Loop struct {
	tasks    chan func()
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewLoop creates a loop. Call Run to start processing.
func NewLoop() *Loop {
	return &Loop{
		tasks:   make(chan func(), 64),
		stopped: make(chan struct{}),
	}
}

// Run processes callbacks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	defer l.stopOnce.Do(func() { close(l.stopped) })
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post queues fn. Callbacks run in the order they were posted. Post drops
// fn once the loop has stopped.
func (l *Loop) Post(fn func()) {
	select {
	case l.tasks <- fn:
	case <-l.stopped:
	}
}

// Do posts fn and waits for it to finish. It reports false when the loop
// stopped first. Never call Do from inside a callback.
func (l *Loop) Do(fn func()) bool {
	done := make(chan struct{})
	l.Post(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
		return true
	case <-l.stopped:
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
}

package core

import (
	"context"
	"errors"
)

var ErrLoopStopped = errors.New("event loop stopped")

// Loop runs every state-mutating handler on one goroutine, one job at a time.
// Jobs must not block; I/O runs elsewhere and posts its result back as a new job.
type Loop struct {
	jobs    chan func()
	stopped chan struct{}
}

func NewLoop(buffer int) *Loop {
	return &Loop{
		jobs:    make(chan func(), buffer),
		stopped: make(chan struct{}),
	}
}

// Run executes jobs until ctx is done. Should be called in a goroutine.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-l.jobs:
			job()
		}
	}
}

// Post queues a job. It reports false once the loop has stopped.
func (l *Loop) Post(job func()) bool {
	select {
	case <-l.stopped:
		return false
	default:
	}
	select {
	case <-l.stopped:
		return false
	case l.jobs <- job:
		return true
	}
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrLoopStopped
	}
	select {
	case <-done:
		return nil
	case <-l.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

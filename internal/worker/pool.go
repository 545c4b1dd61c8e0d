package worker

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

var (
	// ErrPoolClosed is returned when a task is submitted after shutdown.
	ErrPoolClosed = errors.New("worker pool closed")

	// ErrTaskPanicked is returned to a waiting submitter whose task panicked.
	ErrTaskPanicked = errors.New("worker task panicked")
)

// States of a task submitted with SubmitWaitContext.
const (
	taskPending int32 = iota
	taskStarted
	taskAbandoned
)

// Pool runs submitted tasks on a fixed number of goroutines.
// A pool of size 1 executes tasks strictly in submission order, which makes it
// usable as a serial event loop for state that must never be touched concurrently.
type Pool struct {
	tasks    chan func()
	wg       sync.WaitGroup
	shutdown chan struct{}
	done     chan struct{}
	mu       sync.Mutex
	closed   bool
	size     int
}

// New creates a pool with the given number of workers and a task buffer of
// the given depth. Non-positive values fall back to one worker and a buffer
// of eight tasks per worker.
func New(size, depth int) *Pool {
	if size <= 0 {
		size = 1
	}
	if depth <= 0 {
		depth = size * 8
	}

	p := &Pool{
		tasks:    make(chan func(), depth),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		size:     size,
	}

	for range size {
		p.wg.Add(1)
		go p.work()
	}

	go func() {
		p.wg.Wait()
		close(p.done)
	}()

	return p
}

func (p *Pool) work() {
	defer p.wg.Done()

	for {
		select {
		case task := <-p.tasks:
			run(task)
		case <-p.shutdown:
			// Drain what was accepted before shutdown.
			for {
				select {
				case task := <-p.tasks:
					run(task)
				default:
					return
				}
			}
		}
	}
}

// run executes task, logging a panic instead of letting it kill the worker.
func run(task func()) {
	if task == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("worker task panicked",
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	task()
}

// Submit enqueues a task without waiting for it to run.
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if closed {
		return ErrPoolClosed
	}

	select {
	case <-p.shutdown:
		return ErrPoolClosed
	case p.tasks <- task:
		return nil
	}
}

// SubmitWait enqueues a task and blocks until it has run.
func (p *Pool) SubmitWait(task func() error) error {
	return p.SubmitWaitContext(context.Background(), task)
}

// SubmitWaitContext enqueues a task and blocks until it has run or ctx is done.
// A task still queued when ctx is done is skipped. Once a task has started
// the call waits for it regardless of ctx.
func (p *Pool) SubmitWaitContext(ctx context.Context, task func() error) error {
	if task == nil {
		return nil
	}

	var state atomic.Int32
	result := make(chan error, 1)
	if err := p.Submit(func() {
		if ctx.Err() != nil || !state.CompareAndSwap(taskPending, taskStarted) {
			return
		}
		err := ErrTaskPanicked
		defer func() { result <- err }()
		err = task()
	}); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		if state.CompareAndSwap(taskPending, taskAbandoned) {
			return ctx.Err()
		}
		return <-result
	case err := <-result:
		return err
	case <-p.done:
		// Workers are gone; the task either ran already or never will.
		select {
		case err := <-result:
			return err
		default:
			return ErrPoolClosed
		}
	}
}

// Shutdown stops accepting tasks and waits for queued ones until ctx is done.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.StopNow()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return nil
	}
}

// StopNow stops accepting tasks without waiting for queued ones to finish.
func (p *Pool) StopNow() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		p.closed = true
		close(p.shutdown)
	}
}

// Size returns the worker count.
func (p *Pool) Size() int {
	return p.size
}

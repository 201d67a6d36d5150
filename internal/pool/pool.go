// Package pool provides the worker pool shared by task driver loops and
// operation executions.
//
// Operation executions run in a bounded number of slots. Driver loops only
// coordinate: each one blocks until its current operation returns, so they
// are spawned outside the slots and can never starve the operations they
// wait on.
//
// The pool is an explicit dependency: create it with New, hand it to every
// component that schedules work, and Shutdown it when the engine stops.
// Tests substitute Inline to run everything synchronously.
package pool

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultSize is the default number of concurrently running jobs.
const DefaultSize = 32

// ErrClosed is returned by Submit after Shutdown has been called.
var ErrClosed = errors.New("pool: closed")

// Executor runs submitted functions.
type Executor interface {
	// Submit schedules fn and returns without waiting for it to run.
	Submit(fn func()) error
}

// Spawner is implemented by executors that run coordinating work outside
// their bounded slots.
type Spawner interface {
	// Spawn schedules fn without taking a slot.
	Spawn(fn func()) error
}

// Spawn runs fn through exec's Spawn when exec is a Spawner, and through
// Submit otherwise.
func Spawn(exec Executor, fn func()) error {
	if s, ok := exec.(Spawner); ok {
		return s.Spawn(fn)
	}
	return exec.Submit(fn)
}

// Pool runs at most size functions at a time. Submit never blocks: excess
// work waits in line for a free slot.
type Pool struct {
	sem  *semaphore.Weighted
	size int

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a pool with the given number of slots.
// A size below 1 selects DefaultSize.
func New(size int) *Pool {
	if size < 1 {
		size = DefaultSize
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
	}
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return p.size
}

// Submit schedules fn. Returns ErrClosed after Shutdown.
func (p *Pool) Submit(fn func()) error {
	if err := p.track(); err != nil {
		return err
	}

	go func() {
		defer p.wg.Done()
		// Acquire with a background context never fails.
		_ = p.sem.Acquire(context.Background(), 1)
		defer p.sem.Release(1)
		fn()
	}()
	return nil
}

// Spawn runs fn on its own goroutine without taking a slot. Shutdown waits
// for it like for submitted work. Returns ErrClosed after Shutdown.
func (p *Pool) Spawn(fn func()) error {
	if err := p.track(); err != nil {
		return err
	}

	go func() {
		defer p.wg.Done()
		fn()
	}()
	return nil
}

func (p *Pool) track() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.wg.Add(1)
	return nil
}

// Shutdown rejects new work and waits until all submitted work has finished
// or ctx is done. Work still running when ctx expires keeps running; Shutdown
// only stops waiting for it.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inline runs every submitted function synchronously on the caller's
// goroutine. Intended for deterministic tests and simulations.
type Inline struct{}

// Submit runs fn before returning.
func (Inline) Submit(fn func()) error {
	fn()
	return nil
}

package sched

import "sync"

// CountedEvent tracks a count of outstanding work items.
//
// Add increments the count, Done decrements it, and Wait blocks until the
// count reaches zero. The renderer bumps the count once per submitted draw
// and releases it during teardown, letting an external waiter observe when
// all work attached to the event has fully retired.
//
// Thread safety: CountedEvent is safe for concurrent use. The zero value is
// ready to use with a count of zero.
type CountedEvent struct {
	mu    sync.Mutex
	cond  *sync.Cond
	count int
}

// Add increments the outstanding-work count.
func (e *CountedEvent) Add() {
	e.mu.Lock()
	e.count++
	e.mu.Unlock()
}

// Done decrements the outstanding-work count, waking waiters when it
// reaches zero. Done panics if called more times than Add.
func (e *CountedEvent) Done() {
	e.mu.Lock()
	e.count--
	if e.count < 0 {
		e.mu.Unlock()
		panic("sched: CountedEvent count went negative")
	}
	if e.count == 0 && e.cond != nil {
		e.cond.Broadcast()
	}
	e.mu.Unlock()
}

// Count returns the current outstanding-work count.
func (e *CountedEvent) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}

// Wait blocks until the outstanding-work count is zero.
func (e *CountedEvent) Wait() {
	e.mu.Lock()
	if e.cond == nil {
		e.cond = sync.NewCond(&e.mu)
	}
	for e.count > 0 {
		e.cond.Wait()
	}
	e.mu.Unlock()
}

// Package sched provides the scheduling infrastructure for the software
// renderer: ticket-ordered FIFO queues, a work-stealing worker pool, bounded
// object pools with back-pressure, and counted completion events.
//
// The ticket queue is the ordering primitive the renderer is built on.
// Reserving a ticket is cheap and non-blocking; the reservation order, not
// the completion order, fixes the order in which waiters and continuations
// observe completion. This lets independent work run on any worker while
// side effects are applied in submission order.
package sched

import "sync"

// Queue is a FIFO ticket sequencer.
//
// Take reserves the next position in the queue and returns a Ticket for it.
// A ticket "reaches the head" once every ticket reserved before it has been
// released with Done. Waiters block until their ticket reaches the head;
// continuations registered with OnReady run at that point instead.
//
// Thread safety: Queue is safe for concurrent use. The zero value is ready
// to use.
type Queue struct {
	mu      sync.Mutex
	next    uint64
	serving uint64
	pending map[uint64]*ticketState
}

type ticketState struct {
	// ready is closed when the ticket reaches the head of the queue.
	ready chan struct{}
	// conts holds continuations to run when the ticket reaches the head.
	conts []func()
	// called is true once the ticket has reached the head.
	called bool
	// done is true once the holder has released the ticket.
	done bool
}

// Ticket is a reservation in a Queue. Tickets are value types and may be
// copied freely; all copies refer to the same reservation.
type Ticket struct {
	q  *Queue
	st *ticketState
}

// Take reserves the next position in the queue. It never blocks.
func (q *Queue) Take() Ticket {
	q.mu.Lock()
	if q.pending == nil {
		q.pending = make(map[uint64]*ticketState)
	}
	seq := q.next
	q.next++
	st := &ticketState{ready: make(chan struct{})}
	q.pending[seq] = st
	if seq == q.serving {
		st.called = true
		close(st.ready)
	}
	q.mu.Unlock()
	return Ticket{q: q, st: st}
}

// Wait blocks until the ticket reaches the head of the queue.
func (t Ticket) Wait() {
	<-t.st.ready
}

// OnReady registers fn to run when the ticket reaches the head of the queue.
// If the ticket is already at the head, fn runs immediately on the calling
// goroutine. Otherwise fn runs on whichever goroutine releases the ticket
// ahead of it. OnReady itself never blocks the caller on queue order.
func (t Ticket) OnReady(fn func()) {
	t.q.mu.Lock()
	if t.st.called {
		t.q.mu.Unlock()
		fn()
		return
	}
	t.st.conts = append(t.st.conts, fn)
	t.q.mu.Unlock()
}

// Done releases the ticket. It may be called before the ticket reaches the
// head; the queue advances past it once it becomes the head. When the head
// advances, the new head's waiters are woken and its continuations run on
// the calling goroutine, in registration order.
func (t Ticket) Done() {
	q := t.q
	q.mu.Lock()
	t.st.done = true
	var runs []func()
	for {
		st := q.pending[q.serving]
		if st == nil {
			break
		}
		if !st.called {
			st.called = true
			close(st.ready)
			runs = append(runs, st.conts...)
			st.conts = nil
		}
		if !st.done {
			break
		}
		delete(q.pending, q.serving)
		q.serving++
	}
	q.mu.Unlock()

	for _, fn := range runs {
		fn()
	}
}

package sched

// Pool is a bounded object pool with back-pressure.
//
// Unlike sync.Pool, capacity is fixed: Borrow blocks when every item is in
// use and resumes when one is returned. For draw and batch objects this
// bounds the number of in-flight units of work instead of allocating without
// limit, and keeps the working set cache-resident.
//
// Thread safety: Pool is safe for concurrent use.
type Pool[T any] struct {
	items chan *T
}

// NewPool creates a pool holding capacity items, each produced by newItem.
// All items are allocated up front so the hot path never allocates.
func NewPool[T any](capacity int, newItem func() *T) *Pool[T] {
	if capacity < 1 {
		capacity = 1
	}
	p := &Pool[T]{items: make(chan *T, capacity)}
	for i := 0; i < capacity; i++ {
		p.items <- newItem()
	}
	return p
}

// Borrow takes an item from the pool, blocking until one is available.
func (p *Pool[T]) Borrow() *T {
	return <-p.items
}

// Return puts an item back into the pool, waking one blocked borrower.
// The item must have been borrowed from this pool.
func (p *Pool[T]) Return(item *T) {
	if item == nil {
		return
	}
	p.items <- item
}

// Cap returns the pool capacity.
func (p *Pool[T]) Cap() int {
	return cap(p.items)
}

// Available returns the number of items not currently borrowed.
// This is an approximation when borrowers run concurrently.
func (p *Pool[T]) Available() int {
	return len(p.items)
}

package queue

import "context"

// Mailbox couples an unbounded queue with a wake-up signal.
//
// Post never blocks. A single consumer goroutine runs Serve, which drains the queue each
// time it is woken.
type Mailbox[T any] struct {
	q    Queue[T]
	wake chan struct{}
}

// NewMailbox creates an empty mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{
		q:    NewLockFreeQueue[T](),
		wake: make(chan struct{}, 1),
	}
}

// Post enqueues v and wakes the consumer.
func (m *Mailbox[T]) Post(v T) {
	m.q.Enqueue(v)
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued messages.
func (m *Mailbox[T]) Pending() int {
	return m.q.Length()
}

// Drain calls fn for every queued message and returns how many were handled.
func (m *Mailbox[T]) Drain(fn func(T)) int {
	n := 0
	for {
		v, ok := m.q.Dequeue()
		if !ok {
			return n
		}
		fn(v)
		n++
	}
}

// Serve drains the mailbox whenever it is woken, until ctx is done. Messages still queued
// when ctx ends are left in the mailbox.
func (m *Mailbox[T]) Serve(ctx context.Context, fn func(T)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.wake:
			m.Drain(fn)
		}
	}
}

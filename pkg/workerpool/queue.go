package workerpool

import "sync"

// queue is an unbounded multi-producer/multi-consumer FIFO of jobs.
// Consumers block in pop until a job arrives or the queue is closed and empty.
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []Job
	head   int
	closed bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends a job. It fails only after close.
func (q *queue) push(job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrPoolClosed
	}
	q.items = append(q.items, job)
	q.mu.Unlock()

	q.cond.Signal()
	return nil
}

// pop removes the oldest job. ok is false once the queue is closed and drained.
func (q *queue) pop() (job Job, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.head == len(q.items) && !q.closed {
		q.cond.Wait()
	}
	if q.head == len(q.items) {
		return nil, false
	}

	job = q.items[q.head]
	q.items[q.head] = nil
	q.head++

	// Compact once the consumed prefix dominates the backing array.
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}

	return job, true
}

// close stops intake and wakes every blocked consumer. Closing twice is a no-op.
func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.cond.Broadcast()
}

// len returns the number of jobs waiting to be picked up.
func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

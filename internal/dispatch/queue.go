package dispatch

import (
	"sync"
	"time"
)

// Frame is one inbound MESSAGE waiting for delivery.
type Frame struct {
	Topic      string
	Body       []byte
	Headers    map[string]string
	ReceivedAt time.Time
	Generation uint64 // Connection generation the frame arrived on
}

// Queue is an unbounded FIFO between a connection's read pump and the
// delivery goroutine. It doubles its capacity when it reaches 70% full, so
// the read pump never blocks on slow handlers.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      []Frame
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	closed   bool

	// Stats
	totalReceived int64
	totalSent     int64
	resizeCount   int
}

// NewQueue creates a queue with the given initial capacity.
func NewQueue(initialCapacity int) *Queue {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	q := &Queue{
		buf:      make([]Frame, initialCapacity),
		capacity: initialCapacity,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends a frame. Returns false if the queue is closed.
func (q *Queue) Push(f Frame) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	threshold := (q.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if q.count+1 >= threshold {
		q.grow()
	}

	q.buf[q.tail] = f
	q.tail = (q.tail + 1) % q.capacity
	q.count++
	q.totalReceived++

	q.cond.Signal()
	return true
}

// Pop removes the oldest frame, blocking until one is available.
// Returns false once the queue is closed and empty.
func (q *Queue) Pop() (Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.cond.Wait()
	}

	if q.count == 0 {
		return Frame{}, false
	}

	f := q.buf[q.head]
	q.buf[q.head] = Frame{}
	q.head = (q.head + 1) % q.capacity
	q.count--
	q.totalSent++

	return f, true
}

// Close stops accepting frames. Pop drains what is left, then reports false.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Len returns the number of queued frames.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// QueueStats contains queue statistics.
type QueueStats struct {
	Count         int
	Capacity      int
	TotalReceived int64
	TotalSent     int64
	ResizeCount   int
}

// Stats returns queue statistics.
func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Count:         q.count,
		Capacity:      q.capacity,
		TotalReceived: q.totalReceived,
		TotalSent:     q.totalSent,
		ResizeCount:   q.resizeCount,
	}
}

// grow doubles the capacity. Must be called with lock held.
func (q *Queue) grow() {
	newCapacity := q.capacity * 2
	newBuf := make([]Frame, newCapacity)

	if q.count > 0 {
		if q.head < q.tail {
			copy(newBuf, q.buf[q.head:q.tail])
		} else {
			n := copy(newBuf, q.buf[q.head:])
			copy(newBuf[n:], q.buf[:q.tail])
		}
	}

	q.buf = newBuf
	q.head = 0
	q.tail = q.count
	q.capacity = newCapacity
	q.resizeCount++
}

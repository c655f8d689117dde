// Package samples buffers video samples between a player and the host that
// presents them.
package samples

import (
	"sync"

	"github.com/smazurov/sdinode/internal/media"
	"github.com/smazurov/sdinode/internal/metrics"
)

// DefaultCapacity holds a few frames of slack at display cadence.
const DefaultCapacity = 4

// Queue is a bounded FIFO implementing media.SampleSink. When full, the
// oldest sample is released to make room.
type Queue struct {
	mu      sync.Mutex
	buf     []*media.VideoSample
	head    int
	size    int
	dropped uint64
}

// NewQueue creates a queue holding up to capacity samples.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Queue{buf: make([]*media.VideoSample, capacity)}
}

// AddVideo implements media.SampleSink.
func (q *Queue) AddVideo(s *media.VideoSample) {
	q.mu.Lock()
	var evicted *media.VideoSample
	if q.size == len(q.buf) {
		evicted = q.buf[q.head]
		q.buf[q.head] = nil
		q.head = (q.head + 1) % len(q.buf)
		q.size--
		q.dropped++
	}
	q.buf[(q.head+q.size)%len(q.buf)] = s
	q.size++
	q.mu.Unlock()

	if evicted != nil {
		evicted.Release()
		metrics.IncQueueDropped()
	}
}

// Pop removes the oldest sample. The caller owns it and must Release it.
func (q *Queue) Pop() (*media.VideoSample, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size == 0 {
		return nil, false
	}
	s := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return s, true
}

// Drain removes every queued sample, oldest first.
func (q *Queue) Drain() []*media.VideoSample {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*media.VideoSample, 0, q.size)
	for q.size > 0 {
		out = append(out, q.buf[q.head])
		q.buf[q.head] = nil
		q.head = (q.head + 1) % len(q.buf)
		q.size--
	}
	return out
}

// Flush releases every queued sample.
func (q *Queue) Flush() {
	for _, s := range q.Drain() {
		s.Release()
	}
}

// Len returns the number of queued samples.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Dropped returns how many samples were evicted.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

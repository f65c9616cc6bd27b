// Package memory provides the in-process URL queue.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/linkprobe/internal/checker"
)

// ErrClosed is returned by Dequeue once the queue is closed and drained, and
// by Enqueue after Close.
var ErrClosed = checker.ErrQueueClosed

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch      chan checker.QueueItem
	closeMu sync.RWMutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		ch: make(chan checker.QueueItem, capacity),
	}
}

// Enqueue pushes a URL into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, item checker.QueueItem) error {
	q.closeMu.RLock()
	defer q.closeMu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- item:
		return nil
	}
}

// Dequeue pops the next URL, respecting context cancellation. Items already
// buffered are still delivered after Close.
func (q *Queue) Dequeue(ctx context.Context) (checker.QueueItem, error) {
	select {
	case <-ctx.Done():
		return checker.QueueItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case item, ok := <-q.ch:
		if !ok {
			return checker.QueueItem{}, ErrClosed
		}
		return item, nil
	}
}

// Close stops accepting items; consumers drain what is buffered.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}

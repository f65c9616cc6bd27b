package checker

import (
	"context"
	"errors"
	"time"
)

// ErrQueueClosed is returned by Queue.Dequeue once the queue is closed and
// fully drained.
var ErrQueueClosed = errors.New("queue closed")

// Fetcher performs one reachability check. A non-nil error means the check
// could not be classified and the URL stays unresolved for this run.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Outcome, error)
}

// Store tracks recorded URLs and appends classified results.
type Store interface {
	HasBeenRecorded(url string) bool
	Save(ctx context.Context, url string, outcome Outcome) (bool, error)
}

// Queue provides enqueue/dequeue semantics for pending URLs.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// QueueItem wraps a URL ready to be checked.
type QueueItem struct {
	RunID string
	URL   string
	Seq   int
}

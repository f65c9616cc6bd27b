package progress

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config tunes how a Hub groups events before handing them to sinks. Zero
// values select the package defaults.
type Config struct {
	// Buffer is how many events may wait for the batcher before Emit blocks.
	Buffer int
	// BatchSize flushes as soon as this many events are pending.
	BatchSize int
	// FlushEvery bounds how long the first event of a partial batch waits.
	FlushEvery time.Duration
	// SinkTimeout bounds each Consume call.
	SinkTimeout time.Duration
	// BaseContext is the parent of every sink context.
	BaseContext context.Context
	Logger      *zap.Logger
}

const (
	defaultBuffer      = 256
	defaultBatchSize   = 32
	defaultFlushEvery  = 100 * time.Millisecond
	defaultSinkTimeout = 5 * time.Second
)

func (c Config) withDefaults() Config {
	if c.Buffer <= 0 {
		c.Buffer = defaultBuffer
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.FlushEvery <= 0 {
		c.FlushEvery = defaultFlushEvery
	}
	if c.SinkTimeout <= 0 {
		c.SinkTimeout = defaultSinkTimeout
	}
	if c.BaseContext == nil {
		c.BaseContext = context.Background()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Hub collects events from many workers and delivers them to sinks in
// batches from a single goroutine. Every event accepted before Close reaches
// the sinks; a full buffer makes Emit wait rather than discard.
type Hub struct {
	cfg   Config
	sinks []Sink

	in      chan Event
	stop    chan struct{}
	done    chan struct{}
	closing atomic.Bool

	stopOnce sync.Once
	closeCtx context.Context
}

// NewHub starts the batching goroutine for sinks.
func NewHub(cfg Config, sinks ...Sink) *Hub {
	cfg = cfg.withDefaults()
	h := &Hub{
		cfg:   cfg,
		sinks: append([]Sink(nil), sinks...),
		in:    make(chan Event, cfg.Buffer),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go h.loop()
	return h
}

// Emit hands evt to the batcher. Invalid events and events emitted after
// Close are ignored.
func (h *Hub) Emit(evt Event) {
	if h == nil || h.closing.Load() {
		return
	}
	if err := evt.Validate(); err != nil {
		h.cfg.Logger.Debug("ignoring invalid progress event", zap.Error(err))
		return
	}
	select {
	case h.in <- evt:
	case <-h.stop:
	}
}

// Close delivers everything still buffered, closes the sinks with ctx, and
// waits for the batcher to exit. Repeated calls only wait.
func (h *Hub) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h.stopOnce.Do(func() {
		h.closing.Store(true)
		h.closeCtx = ctx
		close(h.stop)
	})
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for progress hub: %w", ctx.Err())
	}
}

func (h *Hub) loop() {
	defer close(h.done)

	timer := time.NewTimer(h.cfg.FlushEvery)
	timer.Stop()
	defer timer.Stop()

	var batch []Event
	for {
		select {
		case evt := <-h.in:
			if len(batch) == 0 {
				timer.Reset(h.cfg.FlushEvery)
			}
			batch = append(batch, evt)
			if len(batch) >= h.cfg.BatchSize {
				timer.Stop()
				h.deliver(batch)
				batch = nil
			}
		case <-timer.C:
			h.deliver(batch)
			batch = nil
		case <-h.stop:
			h.drain(batch)
			h.closeSinks()
			return
		}
	}
}

// drain moves whatever is still buffered into final batches.
func (h *Hub) drain(batch []Event) {
	for {
		select {
		case evt := <-h.in:
			batch = append(batch, evt)
			if len(batch) >= h.cfg.BatchSize {
				h.deliver(batch)
				batch = nil
			}
		default:
			h.deliver(batch)
			return
		}
	}
}

// deliver passes batch to every sink. The batch is not reused afterwards.
func (h *Hub) deliver(batch []Event) {
	if len(batch) == 0 {
		return
	}
	for _, sink := range h.sinks {
		if sink == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(h.cfg.BaseContext, h.cfg.SinkTimeout)
		err := sink.Consume(ctx, batch)
		cancel()
		if err != nil {
			h.cfg.Logger.Warn("progress sink rejected batch", zap.Int("events", len(batch)), zap.Error(err))
		}
	}
}

func (h *Hub) closeSinks() {
	for _, sink := range h.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Close(h.closeCtx); err != nil {
			h.cfg.Logger.Warn("progress sink close failed", zap.Error(err))
		}
	}
}

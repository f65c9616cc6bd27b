// Package worker implements the per-URL check loop.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/linkprobe/internal/checker"
	"github.com/JakeFAU/linkprobe/internal/clock/system"
	"github.com/JakeFAU/linkprobe/internal/metrics"
	"github.com/JakeFAU/linkprobe/internal/progress"
)

// Counts summarizes what a pool of workers did during a run.
type Counts struct {
	Succeeded       int
	HTTPErrors      int
	TransportErrors int
	Duplicates      int
	Unresolved      int
}

// Completed reports URLs that reached a terminal outcome this run.
func (c Counts) Completed() int {
	return c.Succeeded + c.HTTPErrors + c.TransportErrors + c.Duplicates
}

// Tally accumulates Counts across concurrently running workers.
type Tally struct {
	succeeded       atomic.Int64
	httpErrors      atomic.Int64
	transportErrors atomic.Int64
	duplicates      atomic.Int64
	unresolved      atomic.Int64
}

func (t *Tally) record(kind checker.Kind) {
	switch kind {
	case checker.KindSuccess:
		t.succeeded.Add(1)
	case checker.KindHTTPError:
		t.httpErrors.Add(1)
	case checker.KindTransportError:
		t.transportErrors.Add(1)
	}
}

// Snapshot returns the current counts.
func (t *Tally) Snapshot() Counts {
	return Counts{
		Succeeded:       int(t.succeeded.Load()),
		HTTPErrors:      int(t.httpErrors.Load()),
		TransportErrors: int(t.transportErrors.Load()),
		Duplicates:      int(t.duplicates.Load()),
		Unresolved:      int(t.unresolved.Load()),
	}
}

// Worker consumes queue items and runs fetch, classify, and persist for each.
type Worker struct {
	queue   checker.Queue
	store   checker.Store
	fetcher checker.Fetcher
	emitter progress.Emitter
	clock   checker.Clock
	tally   *Tally
	logger  *zap.Logger
}

// New constructs a Worker. emitter, clock, tally, and logger may be nil.
func New(
	queue checker.Queue,
	store checker.Store,
	fetcher checker.Fetcher,
	emitter progress.Emitter,
	clock checker.Clock,
	tally *Tally,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = system.New()
	}
	if tally == nil {
		tally = &Tally{}
	}
	return &Worker{
		queue:   queue,
		store:   store,
		fetcher: fetcher,
		emitter: emitter,
		clock:   clock,
		tally:   tally,
		logger:  logger,
	}
}

// Run blocks, consuming queue items until the queue is drained or the
// context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, checker.ErrQueueClosed) || ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.process(ctx, item)
	}
}

// process checks one URL. Panics and unclassified failures leave the URL
// unresolved; nothing is written for it.
func (w *Worker) process(ctx context.Context, item checker.QueueItem) {
	logger := w.logger.With(zap.String("run_id", item.RunID), zap.String("url", item.URL))
	defer metrics.DecPending()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("url check panicked", zap.Any("panic", r), zap.Stack("stack"))
			w.unresolved(item, fmt.Sprint(r))
		}
	}()

	outcome, err := w.fetcher.Fetch(ctx, item.URL)
	if err != nil {
		logger.Error("url check failed", zap.Error(err))
		w.unresolved(item, err.Error())
		return
	}

	wrote, err := w.store.Save(ctx, item.URL, outcome)
	if err != nil {
		logger.Error("persist result failed", zap.Error(err))
		w.unresolved(item, err.Error())
		return
	}
	class := progress.ClassifyStatus(outcome.StatusCode)
	if !wrote {
		w.tally.duplicates.Add(1)
		metrics.ObserveSkippedRecord()
		logger.Debug("result already recorded")
	} else {
		w.tally.record(outcome.Kind)
		metrics.ObserveCheck(string(outcome.Kind), string(class), outcome.Duration)
		logger.Debug("url checked",
			zap.String("outcome", string(outcome.Kind)),
			zap.Int("status", outcome.StatusCode),
			zap.Duration("dur", outcome.Duration),
		)
	}

	evt := w.event(item, progress.StageURLDone)
	evt.Outcome = outcome.Kind
	evt.Dur = outcome.Duration
	evt.Note = outcome.Message
	if outcome.StatusCode > 0 {
		evt.StatusClass = class
	}
	w.emit(evt)
}

func (w *Worker) unresolved(item checker.QueueItem, note string) {
	w.tally.unresolved.Add(1)
	metrics.ObserveUnresolved()
	evt := w.event(item, progress.StageURLFailure)
	evt.Note = note
	w.emit(evt)
}

func (w *Worker) event(item checker.QueueItem, stage progress.Stage) progress.Event {
	evt := progress.Event{
		TS:    w.clock.Now(),
		Stage: stage,
		URL:   item.URL,
	}
	if id, err := uuid.Parse(item.RunID); err == nil {
		evt.RunID = progress.UUIDToBytes(id)
	}
	return evt
}

func (w *Worker) emit(evt progress.Event) {
	if w.emitter == nil {
		return
	}
	w.emitter.Emit(evt)
}

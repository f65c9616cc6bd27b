// Package app wires the reachability pipeline for a single run: input,
// persisted checkpoint, rate-limited fetcher, worker pool, and progress sinks.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/linkprobe/internal/checker"
	"github.com/JakeFAU/linkprobe/internal/clock/system"
	"github.com/JakeFAU/linkprobe/internal/config"
	"github.com/JakeFAU/linkprobe/internal/dispatcher"
	collyfetcher "github.com/JakeFAU/linkprobe/internal/fetcher/colly"
	idgen "github.com/JakeFAU/linkprobe/internal/id/uuid"
	"github.com/JakeFAU/linkprobe/internal/input"
	"github.com/JakeFAU/linkprobe/internal/metrics"
	"github.com/JakeFAU/linkprobe/internal/policy/ratelimit"
	"github.com/JakeFAU/linkprobe/internal/progress"
	"github.com/JakeFAU/linkprobe/internal/progress/sinks"
	"github.com/JakeFAU/linkprobe/internal/queue/memory"
	"github.com/JakeFAU/linkprobe/internal/storage/local"
	"github.com/JakeFAU/linkprobe/internal/worker"
)

const shutdownTimeout = 5 * time.Second

// Summary reports what a run saw and did.
type Summary struct {
	RunID            string
	Total            int
	AlreadyProcessed int
	Pending          int
	worker.Counts
	Interrupted bool
	Elapsed     time.Duration
}

// Options carries the run configuration and optional overrides. Zero-value
// overrides fall back to the production implementations.
type Options struct {
	Config config.Config
	Logger *zap.Logger

	// Fetcher replaces the colly fetcher.
	Fetcher checker.Fetcher
	Clock   checker.Clock
	IDs     checker.IDGenerator
	// Stdout receives the operator-facing count lines.
	Stdout io.Writer
	// ProgressOut receives the progress bar.
	ProgressOut io.Writer
}

// Runner executes one pass over the input list.
type Runner struct {
	cfg         config.Config
	logger      *zap.Logger
	fetcher     checker.Fetcher
	clock       checker.Clock
	ids         checker.IDGenerator
	stdout      io.Writer
	progressOut io.Writer
}

// New constructs a Runner.
func New(opts Options) *Runner {
	r := &Runner{
		cfg:         opts.Config,
		logger:      opts.Logger,
		fetcher:     opts.Fetcher,
		clock:       opts.Clock,
		ids:         opts.IDs,
		stdout:      opts.Stdout,
		progressOut: opts.ProgressOut,
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.clock == nil {
		r.clock = system.New()
	}
	if r.ids == nil {
		r.ids = idgen.New()
	}
	if r.stdout == nil {
		r.stdout = os.Stdout
	}
	if r.progressOut == nil {
		r.progressOut = os.Stderr
	}
	return r
}

// Run loads the input and checkpoint, checks every pending URL, and returns
// the run summary. Errors are limited to setup failures; per-URL failures are
// logged and counted but never abort the run. A cancelled ctx stops dispatch
// early and is reported through Summary.Interrupted.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := r.clock.Now()

	urls, err := input.Load(r.cfg.Input.Path)
	if err != nil {
		return Summary{}, fmt.Errorf("load input: %w", err)
	}
	store, err := local.New(local.Config{Dir: r.cfg.Output.Dir})
	if err != nil {
		return Summary{}, fmt.Errorf("open output store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			r.logger.Warn("store close failed", zap.Error(cerr))
		}
	}()

	runID, err := r.ids.NewID()
	if err != nil {
		return Summary{}, fmt.Errorf("run id: %w", err)
	}
	runUUID, err := uuid.Parse(runID)
	if err != nil {
		return Summary{}, fmt.Errorf("parse run id: %w", err)
	}

	pending := input.Pending(urls, store.Processed())
	sum := Summary{
		RunID:            runID,
		Total:            len(urls),
		AlreadyProcessed: store.ProcessedCount(),
		Pending:          len(pending),
	}
	logger := r.logger.With(zap.String("run_id", runID))
	r.printf("Total URLs to check: %d\n", sum.Total)
	r.printf("URLs already processed: %d\n", sum.AlreadyProcessed)
	r.printf("URLs to be processed in this run: %d\n", sum.Pending)
	logger.Info("run starting",
		zap.Int("total", sum.Total),
		zap.Int("already_processed", sum.AlreadyProcessed),
		zap.Int("pending", sum.Pending),
		zap.String("output_dir", store.Dir()),
	)

	stopMetrics, err := r.startMetricsServer(logger)
	if err != nil {
		return Summary{}, err
	}
	defer stopMetrics()

	hub := progress.NewHub(progress.Config{
		BaseContext: context.WithoutCancel(ctx),
		Logger:      logger.Named("progress"),
	}, r.sinks(len(pending), logger)...)
	runEvent := progress.UUIDToBytes(runUUID)
	hub.Emit(progress.Event{RunID: runEvent, TS: r.clock.Now(), Stage: progress.StageRunStart, Total: len(pending)})

	metrics.SetPending(len(pending))
	tally := &worker.Tally{}
	q := memory.NewQueue(r.cfg.Checker.QueueDepth)
	fetcher := r.buildFetcher()
	size := r.cfg.Workers()
	if size <= 0 {
		size = ratelimit.DefaultMaxInFlight
	}
	workers := make([]*worker.Worker, 0, size)
	for i := range size {
		workers = append(workers, worker.New(
			q,
			store,
			fetcher,
			hub,
			r.clock,
			tally,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	dispatch := dispatcher.New(q, workers)

	done := make(chan struct{})
	go func() {
		defer close(done)
		dispatch.Run(ctx)
	}()

	for i, u := range pending {
		if err := dispatch.Enqueue(ctx, checker.QueueItem{RunID: runID, URL: u, Seq: i}); err != nil {
			logger.Warn("enqueue stopped", zap.Int("enqueued", i), zap.Error(err))
			break
		}
	}
	q.Close()
	<-done

	sum.Counts = tally.Snapshot()
	// URLs never dispatched because of cancellation are unresolved too.
	sum.Unresolved = sum.Pending - sum.Completed()
	sum.Interrupted = ctx.Err() != nil
	sum.Elapsed = r.clock.Now().Sub(start)

	hub.Emit(progress.Event{RunID: runEvent, TS: r.clock.Now(), Stage: progress.StageRunDone, Dur: sum.Elapsed})
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := hub.Close(closeCtx); err != nil {
		logger.Warn("progress hub close failed", zap.Error(err))
	}

	logger.Info("run finished",
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("http_errors", sum.HTTPErrors),
		zap.Int("transport_errors", sum.TransportErrors),
		zap.Int("duplicates", sum.Duplicates),
		zap.Int("unresolved", sum.Unresolved),
		zap.Bool("interrupted", sum.Interrupted),
		zap.Duration("elapsed", sum.Elapsed),
	)
	if sum.Interrupted {
		r.printf("Interrupted: %d URLs left for the next run.\n", sum.Unresolved)
		return sum, nil
	}
	r.printf("Finished processing!\n")
	return sum, nil
}

func (r *Runner) buildFetcher() checker.Fetcher {
	if r.fetcher != nil {
		return r.fetcher
	}
	limiter := ratelimit.New(ratelimit.Config{MaxInFlight: r.cfg.Checker.RateLimit})
	return collyfetcher.New(collyfetcher.Config{
		UserAgent:      r.cfg.Checker.UserAgent,
		Timeout:        r.cfg.Timeout(),
		MaxTitleLength: r.cfg.Checker.MaxTitleLength,
	}, limiter)
}

func (r *Runner) sinks(total int, logger *zap.Logger) []progress.Sink {
	var out []progress.Sink
	if r.cfg.Progress.Bar {
		out = append(out, sinks.NewBarSink(sinks.BarConfig{
			Writer:      r.progressOut,
			Total:       total,
			Description: "Checking URLs",
		}))
	}
	if r.cfg.Progress.LogEvents {
		out = append(out, sinks.NewLogSink(logger.Named("events")))
	}
	return out
}

// startMetricsServer serves /metrics and /healthz when metrics.addr is set.
// The listener is opened synchronously so a bad address is a setup error.
func (r *Runner) startMetricsServer(logger *zap.Logger) (func(), error) {
	addr := r.cfg.Metrics.Addr
	if addr == "" {
		return func() {}, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           metrics.NewRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics server started", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown error", zap.Error(err))
		}
	}, nil
}

func (r *Runner) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(r.stdout, format, args...); err != nil {
		r.logger.Debug("console write failed", zap.Error(err))
	}
}

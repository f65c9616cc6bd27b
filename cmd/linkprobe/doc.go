// Package main hosts the linkprobe command.
//
// Architecture overview:
//   - Input & checkpoint: the URL list is read from input.path (one URL per line) and the processed checkpoint from
//     output.dir/processed_urls.txt. URLs already in the checkpoint are skipped, so an interrupted run resumes where it
//     stopped.
//   - Dispatcher & queue: pending URLs flow through a bounded in-memory queue sized by checker.queue_depth and are
//     fanned out to a fixed worker pool sized by checker.concurrency (defaulting to checker.rate_limit).
//   - Fetch pipeline: each worker calls the Colly-based fetcher, which holds one permit from the shared limiter for
//     the whole request. checker.rate_limit bounds in-flight requests; there is no per-second pacing.
//   - Persistence: outcomes are appended to useful_links.txt or discarded_links.txt, then the URL is appended to
//     processed_urls.txt. Every append is fsynced before the worker moves on.
//   - Plumbing: Viper populates config from flags, env (LINKPROBE_*), and an optional YAML file; zap provides
//     structured logging; progress events drive a console bar; Prometheus metrics are served when metrics.addr is set.
//
// Quick checklist:
//   - Run locally: go run ./cmd/linkprobe --input urls.txt --output results --rate-limit 10
//   - SIGINT/SIGTERM stop dispatch; in-flight URLs are left unrecorded and retried on the next run.
package main

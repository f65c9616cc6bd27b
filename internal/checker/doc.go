// Package checker defines the core types shared by the reachability pipeline:
// fetch outcomes, their classification into log records, and the interfaces
// the fetcher, store, and worker pool are wired through.
package checker

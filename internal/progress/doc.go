// Package progress provides the event primitives and non-blocking hub that
// workers use to report run progress. Events are batched on a background
// goroutine and fanned out to pluggable sinks such as the console bar and
// structured logs.
package progress

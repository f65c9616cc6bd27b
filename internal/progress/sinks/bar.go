package sinks

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/JakeFAU/linkprobe/internal/progress"
)

// BarConfig configures the console progress bar.
type BarConfig struct {
	// Writer receives the rendered bar; nil disables rendering.
	Writer io.Writer
	// Total is the number of URLs scheduled for the run.
	Total int
	// Description prefixes the bar.
	Description string
}

// BarSink advances a console progress bar once per completed URL.
type BarSink struct {
	mu     sync.Mutex
	bar    *progressbar.ProgressBar
	closed bool
}

// NewBarSink builds a bar sized to cfg.Total.
func NewBarSink(cfg BarConfig) *BarSink {
	desc := cfg.Description
	if desc == "" {
		desc = "Checking URLs"
	}
	w := cfg.Writer
	visible := w != nil
	if w == nil {
		w = io.Discard
	}
	bar := progressbar.NewOptions(cfg.Total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("URL"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetVisibility(visible),
	)
	return &BarSink{bar: bar}
}

// Consume advances the bar for every URL_DONE or URL_UNRESOLVED event.
func (s *BarSink) Consume(_ context.Context, batch []progress.Event) error {
	n := 0
	for _, evt := range batch {
		if evt.Completes() {
			n++
		}
	}
	if n == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if err := s.bar.Add(n); err != nil {
		return fmt.Errorf("advance progress bar: %w", err)
	}
	return nil
}

// Close finishes the bar. Subsequent calls are no-ops.
func (s *BarSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.bar.Finish(); err != nil {
		return fmt.Errorf("finish progress bar: %w", err)
	}
	return nil
}

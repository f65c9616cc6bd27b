package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/linkprobe/internal/progress"
)

// LogSink emits structured logs for each progress event. It is useful for
// audits where a terminal bar is unavailable.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunUUID().String()),
			zap.String("stage", string(evt.Stage)),
			zap.Duration("dur", evt.Dur),
		}
		switch evt.Stage {
		case progress.StageRunStart:
			fields = append(fields, zap.Int("total", evt.Total))
		case progress.StageURLDone:
			fields = append(fields,
				zap.String("url", evt.URL),
				zap.String("outcome", string(evt.Outcome)),
				zap.String("status_class", string(evt.StatusClass)),
			)
		case progress.StageURLFailure:
			fields = append(fields, zap.String("url", evt.URL))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		s.logger.Info("progress event", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}

package sinks

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/linkprobe/internal/checker"
	"github.com/JakeFAU/linkprobe/internal/progress"
)

func event(stage progress.Stage) progress.Event {
	return progress.Event{
		RunID:   progress.UUIDToBytes(uuid.New()),
		TS:      time.Now(),
		Stage:   stage,
		URL:     "https://example.com",
		Outcome: checker.KindSuccess,
	}
}

func TestLogSinkConsume(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	sink := NewLogSink(zap.New(core))

	batch := []progress.Event{
		event(progress.StageRunStart),
		event(progress.StageURLDone),
		event(progress.StageURLFailure),
	}
	require.NoError(t, sink.Consume(context.Background(), batch))
	require.NoError(t, sink.Close(context.Background()))

	entries := logs.FilterMessage("progress event").All()
	require.Len(t, entries, 3)
	require.Equal(t, "URL_DONE", entries[1].ContextMap()["stage"])
	require.Equal(t, "success", entries[1].ContextMap()["outcome"])
}

func TestLogSinkNilLogger(t *testing.T) {
	t.Parallel()

	sink := NewLogSink(nil)
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{event(progress.StageRunDone)}))
}

func TestBarSinkCountsCompletions(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sink := NewBarSink(BarConfig{Writer: &buf, Total: 3})

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		event(progress.StageRunStart),
		event(progress.StageURLDone),
		event(progress.StageURLFailure),
	}))
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{event(progress.StageURLDone)}))
	require.EqualValues(t, 3, sink.bar.State().CurrentNum)

	require.NoError(t, sink.Close(context.Background()))
	require.NoError(t, sink.Close(context.Background()))
	require.Contains(t, buf.String(), "Checking URLs")

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{event(progress.StageURLDone)}))
	require.EqualValues(t, 3, sink.bar.State().CurrentNum)
}

func TestBarSinkHidden(t *testing.T) {
	t.Parallel()

	sink := NewBarSink(BarConfig{Total: 1})
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{event(progress.StageURLDone)}))
	require.EqualValues(t, 1, sink.bar.State().CurrentNum)
	require.NoError(t, sink.Close(context.Background()))
}

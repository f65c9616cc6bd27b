package progress

import "context"

// Sink receives batches from a Hub. The Hub calls Consume from one goroutine
// and calls Close once, after the last batch. A batch is owned by the sink
// for the duration of the call only.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Emitter is what workers publish through.
type Emitter interface {
	Emit(evt Event)
}

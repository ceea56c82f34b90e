// Package chat orchestrates one streaming conversation turn: context setup,
// client resolution, token-stream multiplexing into typed events, and the
// asynchronous bookkeeping that follows a completed stream.
package chat

// EventType is the kind of a typed output event.
type EventType string

const (
	// EventReasoning carries a chunk of the model's reasoning trace.
	EventReasoning EventType = "reasoning"
	// EventAnswer carries a chunk of answer text.
	EventAnswer EventType = "answer"
	// EventDone terminates a successful stream. Emitted exactly once; a
	// stream that fails upstream ends without it.
	EventDone EventType = "done"
)

// Event is one typed output event delivered to the transport layer.
type Event struct {
	Type EventType
	Data string
}

// Sink receives events in emission order. A non-nil return stops the stream;
// the transport uses this to signal caller disconnect.
type Sink func(Event) error

package chat

import "time"

// Event is the closed union of everything the coordinator emits toward the
// UI boundary. The emitted sequence for one turn is exactly
// Start, Chunk*, End, Message on success or Start, Chunk*, Error on failure.
type Event interface {
	Name() string
}

// Emitter receives events in emission order. The event bridge implements
// this; tests substitute a recording emitter.
type Emitter interface {
	Emit(ev Event)
}

type StreamStart struct {
	MessageID string `json:"message_id"`
}

func (StreamStart) Name() string { return "stream-start" }

type StreamChunk struct {
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
}

func (StreamChunk) Name() string { return "stream-chunk" }

type StreamEnd struct {
	MessageID string `json:"message_id"`
}

func (StreamEnd) Name() string { return "stream-end" }

// MessageEvent carries the completed assistant message. Its Content always
// equals the ordered concatenation of the preceding chunk contents.
type MessageEvent struct {
	MessageID string    `json:"message_id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (MessageEvent) Name() string { return "message" }

type ErrorEvent struct {
	Message string `json:"message"`
}

func (ErrorEvent) Name() string { return "error" }

type SessionStarted struct {
	SessionID string `json:"session_id"`
}

func (SessionStarted) Name() string { return "session-started" }

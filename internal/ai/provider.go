package ai

import "context"

// Message is one turn of provider-facing conversation context.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider answers a prompt with a complete response.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// StreamProvider is an optional interface. Providers may implement streaming
// chat; both channels are closed when the stream ends. A closed chunk channel
// with no error means the stream completed normally.
type StreamProvider interface {
	StreamChat(ctx context.Context, messages []Message) (<-chan string, <-chan error)
}

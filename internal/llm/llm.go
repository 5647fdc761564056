package llm

import "context"

// ChatClient is an interface for chat-style language model backends.
// Implementations return the raw model text; interpreting it is the
// caller's job.
type ChatClient interface {
	Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Closer is an interface for backends holding resources.
type Closer interface {
	Close() error
}

// Pinger is an interface for backends that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

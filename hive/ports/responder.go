package ports

import "context"

// Responder generates the text of a conversational reply. Implementations
// wrap an external model provider; calls may block for the duration of the
// remote generation, which is why the router runs them on a bounded pool.
type Responder interface {
	Respond(ctx context.Context, prompt string, history []ContextLine, input string) (string, error)
}

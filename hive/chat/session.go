package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/openhive/hivecore/hive/ports"
)

// Handler processes the volleys of one live session.
type Handler interface {
	// HandleTurn generates a reply for a speech turn. Errors drop the turn;
	// the device re-prompts on its own timeout.
	HandleTurn(ctx context.Context, v *Volley) error
	// IngestNotify folds a context-only report into the session history.
	IngestNotify(v *Volley)
}

// Completer is implemented by handlers that want a callback when their
// session ends, either by supersession or device release. The volley is
// data-only; Complete must not assume a reply can be sent.
type Completer interface {
	Complete(ctx context.Context, v *Volley)
}

// SessionKind discriminates SessionSpec.
type SessionKind int

const (
	// KindPromptChat is a free-form conversation driven by a prompt.
	KindPromptChat SessionKind = iota
)

// SessionSpec describes how to build a handler for a registered module
// entry. Exactly one of the kind-specific fields is set.
type SessionSpec struct {
	Kind       SessionKind
	PromptChat *PromptChatSpec
}

// PromptChatSpec configures a prompt-driven conversation session.
type PromptChatSpec struct {
	Def ports.ChatDefinition
}

// NewHandler instantiates the handler this spec describes.
func (s SessionSpec) NewHandler(responder ports.Responder, log zerolog.Logger) Handler {
	switch s.Kind {
	case KindPromptChat:
		return &promptChatHandler{
			def:       s.PromptChat.Def,
			responder: responder,
			log:       log,
		}
	default:
		return nil
	}
}

// promptChatHandler runs a multi-turn conversation against a Responder.
// History is built from notify reports and user speech; the handler never
// assumes its own replies were actually spoken.
type promptChatHandler struct {
	def       ports.ChatDefinition
	responder ports.Responder
	log       zerolog.Logger

	mu      sync.Mutex
	history []ports.ContextLine
	turns   int
	started time.Time
}

func (h *promptChatHandler) HandleTurn(ctx context.Context, v *Volley) error {
	h.mu.Lock()
	if h.started.IsZero() {
		h.started = time.Now()
	}
	if h.turns == 0 && v.Request.Speech == "" && h.def.OpeningLine != "" {
		// Session launch with no speech yet: open with the scripted line
		// instead of burning a generation round-trip.
		h.turns++
		h.mu.Unlock()
		v.SetOutput(h.def.OpeningLine, "", "")
		return nil
	}
	if v.Request.Speech != "" {
		h.history = append(h.history, ports.ContextLine{ContextType: "input", Text: v.Request.Speech})
	}
	history := make([]ports.ContextLine, len(h.history))
	copy(history, h.history)
	h.mu.Unlock()

	text, err := h.responder.Respond(ctx, h.def.Prompt, history, v.Request.Speech)
	if err != nil {
		return fmt.Errorf("respond for %s/%s: %w", h.def.ModuleID, h.def.ContentID, err)
	}

	h.mu.Lock()
	h.turns++
	h.mu.Unlock()
	v.SetOutput(text, "", "")
	return nil
}

func (h *promptChatHandler) IngestNotify(v *Volley) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, line := range v.Request.ExtraLines {
		if line.Text != "" {
			h.history = append(h.history, line)
		}
	}
	if v.Request.Speech != "" {
		h.history = append(h.history, ports.ContextLine{ContextType: "output", Text: v.Request.Speech})
	}
}

// Complete records the finished conversation into the device's persistent
// document so later sessions can refer back to it.
func (h *promptChatHandler) Complete(ctx context.Context, v *Volley) {
	h.mu.Lock()
	turns := h.turns
	started := h.started
	h.mu.Unlock()
	if turns == 0 {
		return
	}
	if v.Data.Persist == nil {
		return
	}
	record := map[string]any{
		"module_id":  h.def.ModuleID,
		"content_id": h.def.ContentID,
		"turns":      turns,
		"ended_ms":   time.Now().UnixMilli(),
	}
	if !started.IsZero() {
		record["started_ms"] = started.UnixMilli()
	}
	v.Data.Persist["last_chat"] = record
	h.log.Info().
		Str("module_id", h.def.ModuleID).
		Str("content_id", h.def.ContentID).
		Int("turns", turns).
		Msg("chat session complete")
}

// StaticResponder answers every turn with the same line. It keeps a
// deployment functional before a real generation backend is wired in.
type StaticResponder struct {
	Line string
}

func (r StaticResponder) Respond(_ context.Context, _ string, _ []ports.ContextLine, _ string) (string, error) {
	return r.Line, nil
}

package chat

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhive/hivecore/hive/ports"
)

// fakeTransport records everything sent through it.
type fakeTransport struct {
	mu        sync.Mutex
	replies   []*ports.Reply
	synthesis []*ports.SynthesisRequest
	replyErr  error
}

func (f *fakeTransport) SendReply(_ string, reply *ports.Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replyErr != nil {
		return f.replyErr
	}
	f.replies = append(f.replies, reply)
	return nil
}

func (f *fakeTransport) SendSynthesis(_ string, req *ports.SynthesisRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synthesis = append(f.synthesis, req)
	return nil
}

func (f *fakeTransport) sentReplies() []*ports.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*ports.Reply(nil), f.replies...)
}

func (f *fakeTransport) sentSynthesis() []*ports.SynthesisRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*ports.SynthesisRequest(nil), f.synthesis...)
}

func ttsConfig(enabled string) ports.Document {
	return ports.Document{
		"settings": map[string]any{
			"props": map[string]any{"cloud_tts": enabled},
		},
	}
}

// TestTTS_EmitsWhenEnabled checks an opted-in device gets a synthesis
// request correlated with the reply.
func TestTTS_EmitsWhenEnabled(t *testing.T) {
	transport := &fakeTransport{}
	tts := NewTTSCorrelator(transport, zerolog.Nop())

	reply := &ports.Reply{
		EventID: "ev-1",
		Output:  ports.Output{Text: "hello", Markup: "hello"},
	}
	tts.MaybeEmit("d-1", ttsConfig("1"), reply)

	sent := transport.sentSynthesis()
	require.Len(t, sent, 1)
	assert.Equal(t, "ev-1", sent[0].EventID)
	assert.Equal(t, "hello", sent[0].Markup)
	assert.Equal(t, "remote_chat", sent[0].ModuleName)
	assert.NotZero(t, sent[0].Timestamp)
}

// TestTTS_GateClosed checks nothing is emitted when the setting is off,
// missing, or the whole settings tree is absent.
func TestTTS_GateClosed(t *testing.T) {
	transport := &fakeTransport{}
	tts := NewTTSCorrelator(transport, zerolog.Nop())
	reply := &ports.Reply{EventID: "ev-1", Output: ports.Output{Markup: "m"}}

	tts.MaybeEmit("d-1", ttsConfig("0"), reply)
	tts.MaybeEmit("d-1", ports.Document{}, reply)
	tts.MaybeEmit("d-1", nil, reply)

	assert.Empty(t, transport.sentSynthesis())
}

// TestTTS_SkipsUncorrelatableReplies checks replies without an event id
// or markup are not mirrored to synthesis.
func TestTTS_SkipsUncorrelatableReplies(t *testing.T) {
	transport := &fakeTransport{}
	tts := NewTTSCorrelator(transport, zerolog.Nop())

	tts.MaybeEmit("d-1", ttsConfig("1"), &ports.Reply{Output: ports.Output{Markup: "m"}})
	tts.MaybeEmit("d-1", ttsConfig("1"), &ports.Reply{EventID: "ev-1"})

	assert.Empty(t, transport.sentSynthesis())
}

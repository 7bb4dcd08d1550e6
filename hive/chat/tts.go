package chat

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/openhive/hivecore/hive"
	"github.com/openhive/hivecore/hive/ports"
)

// TTSCorrelator mirrors outgoing replies as synthesis requests for
// devices that have cloud speech enabled. Synthesis shares the reply's
// correlation id so the device can pair audio with text.
type TTSCorrelator struct {
	transport ports.Transport
	log       zerolog.Logger
}

func NewTTSCorrelator(transport ports.Transport, log zerolog.Logger) *TTSCorrelator {
	return &TTSCorrelator{transport: transport, log: log}
}

// MaybeEmit sends a synthesis request when the device opted in and the
// reply is correlatable. Failures are logged, never propagated: speech
// synthesis is best-effort on top of an already-delivered reply.
func (t *TTSCorrelator) MaybeEmit(deviceID string, cfg ports.Document, reply *ports.Reply) {
	if !cloudTTSEnabled(cfg) {
		return
	}
	if reply.EventID == "" || reply.Output.Markup == "" {
		t.log.Debug().Str("device", deviceID).
			Msg("skipping synthesis for uncorrelatable reply")
		return
	}
	req := &ports.SynthesisRequest{
		EventID:         reply.EventID,
		Markup:          reply.Output.Markup,
		Timestamp:       time.Now().UnixMilli(),
		ChunkNum:        0,
		SoftwareVersion: hive.SoftwareVersion,
		ModuleName:      "remote_chat",
	}
	t.log.Debug().Str("device", deviceID).Str("event_id", req.EventID).
		Msg("sending synthesis request")
	if err := t.transport.SendSynthesis(deviceID, req); err != nil {
		t.log.Error().Err(err).Str("device", deviceID).
			Msg("failed to send synthesis request")
	}
}

func cloudTTSEnabled(cfg ports.Document) bool {
	settings, _ := cfg["settings"].(map[string]any)
	props, _ := settings["props"].(map[string]any)
	return props["cloud_tts"] == "1"
}

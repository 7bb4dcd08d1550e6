package ports

// Transport delivers logical envelopes to a device. Framing, serialization
// and delivery to offline devices are its problem, not the core's; a send
// to a device that has gone away is a best-effort, possibly-discarded
// operation.
type Transport interface {
	// SendReply delivers a conversational reply on the primary channel.
	SendReply(deviceID string, reply *Reply) error
	// SendSynthesis delivers an audio-synthesis request on the secondary
	// channel.
	SendSynthesis(deviceID string, req *SynthesisRequest) error
}

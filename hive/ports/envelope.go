package ports

// Document is a free-form JSON-style document. Documents handed across a
// port boundary are treated as immutable values; anything that needs to
// change one makes a structural copy first.
type Document = map[string]any

// ContextLine is one line of conversational context attached to a request.
// Devices report both what they said and what they heard.
type ContextLine struct {
	ContextType string `json:"context_type"`
	Text        string `json:"text"`
}

// Request is the logical form of an inbound conversational request. The
// transport owns the wire encoding; by the time a request reaches the core
// it is already parsed into this shape.
type Request struct {
	ModuleID   string        `json:"module_id"`
	ContentID  string        `json:"content_id"`
	Command    string        `json:"command"`
	Speech     string        `json:"speech,omitempty"`
	EventID    string        `json:"event_id,omitempty"`
	ExtraLines []ContextLine `json:"extra_lines,omitempty"`
}

// Key returns the module/content pair used for session identity.
func (r *Request) Key() string {
	return r.ModuleID + "/" + r.ContentID
}

// IsNotify reports whether this is a context-only notification carrying no
// reply obligation.
func (r *Request) IsNotify() bool {
	return r.Command == "notify"
}

// Output is the spoken payload of a reply.
type Output struct {
	Text   string `json:"text"`
	Markup string `json:"markup,omitempty"`
}

// ResponseAction asks the device to do something alongside the reply, such
// as launching a module.
type ResponseAction struct {
	Action    string `json:"action"`
	ModuleID  string `json:"module_id,omitempty"`
	ContentID string `json:"content_id,omitempty"`
}

// Reply is the logical outbound reply envelope. EventID correlates it with
// the request that produced it and with any secondary synthesis request.
type Reply struct {
	EventID    string           `json:"event_id"`
	Output     Output           `json:"output"`
	OutputType string           `json:"output_type,omitempty"`
	Actions    []ResponseAction `json:"response_actions,omitempty"`
}

// SynthesisRequest is the secondary audio-synthesis request emitted in
// parallel with a reply. It reuses the reply's EventID so the device can
// pair the two messages however they arrive.
type SynthesisRequest struct {
	EventID         string `json:"event_id"`
	Markup          string `json:"markup"`
	Timestamp       int64  `json:"timestamp"`
	ChunkNum        int    `json:"chunk_num"`
	SoftwareVersion string `json:"software_version"`
	ModuleName      string `json:"module_name"`
}

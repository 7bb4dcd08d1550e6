// Package chat routes inbound conversational requests to per-device
// session handlers.
//
// Conversational context uses a notify tracking approach: the device
// reports everything it says, and those reports accumulate the true
// history of the conversation. That keeps multi-turn context consistent
// even when the user speaks across several speech windows before hearing
// a response.
package chat

import (
	"github.com/google/uuid"

	"github.com/openhive/hivecore/hive/fleet"
	"github.com/openhive/hivecore/hive/ports"
)

// Volley binds one inbound request, the reply being built for it, and the
// device data snapshot a handler needs to process the turn.
type Volley struct {
	DeviceID string
	Request  *ports.Request
	Reply    *ports.Reply
	Data     fleet.VolleyData
	// Local is the session-private document, shared across the session's
	// volleys.
	Local ports.Document

	dataOnly bool
}

// NewVolley builds a volley for a reply-producing turn. The reply inherits
// the request's correlation id; requests without one get a fresh id so the
// reply and any synthesis request can still be paired downstream.
func NewVolley(deviceID string, req *ports.Request, data fleet.VolleyData, local ports.Document) *Volley {
	eventID := req.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}
	return &Volley{
		DeviceID: deviceID,
		Request:  req,
		Reply:    &ports.Reply{EventID: eventID},
		Data:     data,
		Local:    local,
	}
}

// NewDataVolley builds a volley with no reply obligation, used for notify
// ingestion and completion hooks.
func NewDataVolley(deviceID string, req *ports.Request, data fleet.VolleyData, local ports.Document) *Volley {
	v := NewVolley(deviceID, req, data, local)
	v.dataOnly = true
	return v
}

// Config returns the device's effective configuration snapshot.
func (v *Volley) Config() ports.Document {
	return v.Data.Config
}

// SetOutput fills the reply's spoken payload. An empty outputType leaves
// the current one alone.
func (v *Volley) SetOutput(text, markup, outputType string) {
	v.Reply.Output = ports.Output{Text: text, Markup: markup}
	if outputType != "" {
		v.Reply.OutputType = outputType
	}
}

// AddAction attaches a device action to the reply.
func (v *Volley) AddAction(action, moduleID, contentID string) {
	v.Reply.Actions = append(v.Reply.Actions, ports.ResponseAction{
		Action:    action,
		ModuleID:  moduleID,
		ContentID: contentID,
	})
}

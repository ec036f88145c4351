// Package rtc is the client-side orchestration layer for a multimodal chat
// runtime. It owns local view state (session phase, conversation log,
// uploaded resources, media toggles) and issues named action calls to the
// remote peer over a pluggable transport.
//
// Example usage:
//
//	transport := rtc.NewHTTPTransport("http://localhost:8000")
//	session := rtc.NewSession(transport)
//	gateway := rtc.NewGateway(session, transport)
//
//	if err := session.Connect(ctx); err != nil { ... }
//	result, err := gateway.Dispatch(ctx, "media_control", "toggle_microphone")
package rtc

import "encoding/json"

// Phase is the discrete connection lifecycle state of a Session. Phases are
// driven exclusively by transport-emitted events, never set speculatively.
type Phase string

const (
	PhaseDisconnected  Phase = "disconnected"
	PhaseConnecting    Phase = "connecting"
	PhaseConnected     Phase = "connected"
	PhaseReady         Phase = "ready"
	PhaseDisconnecting Phase = "disconnecting"
	PhaseError         Phase = "error"
)

// Usable reports whether dispatches are permitted in this phase.
func (p Phase) Usable() bool {
	return p == PhaseConnected || p == PhaseReady
}

// Arg is a single named argument of an action call. Argument order is
// preserved on the wire.
type Arg struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// ActionRequest is the capability-addressed request sent to the remote peer.
// It exists only for the duration of one dispatch.
type ActionRequest struct {
	ID      string `json:"id"`
	Service string `json:"service"`
	Action  string `json:"action"`
	Args    []Arg  `json:"arguments"`
}

// EventType discriminates inbound transport events.
type EventType string

const (
	// EventPhase is a connection lifecycle notification.
	EventPhase EventType = "phase"
	// EventMessage is an inbound message from the bot.
	EventMessage EventType = "message"
)

// Event is one inbound notification from the transport's event stream.
type Event struct {
	Type EventType `json:"type"`

	// Phase is set for EventPhase events.
	Phase Phase `json:"phase,omitempty"`

	// Message fields, set for EventMessage events.
	Sender   Sender          `json:"sender,omitempty"`
	Content  string          `json:"content,omitempty"`
	Modality Modality        `json:"modality,omitempty"`
	Raw      json.RawMessage `json:"-"`
}

package rtc

import (
	"context"
	"encoding/json"
)

// Transport is the channel a Session maintains to the remote runtime. The
// orchestration layer treats it as opaque: Connect and Disconnect are
// requests whose effects are observed only via the event stream, and Invoke
// carries one correlated action call.
//
// Implementations must return *RemoteError from Invoke when the peer
// explicitly rejects a request, so the Gateway can distinguish rejection from
// channel failure. Tests substitute fakes.
type Transport interface {
	// Connect asks the remote runtime to establish the session. It does not
	// block until the session is usable; watch Events for phase changes.
	Connect(ctx context.Context) error

	// Disconnect asks the remote runtime to tear the session down.
	Disconnect(ctx context.Context) error

	// Invoke sends one action request and waits for its correlated response.
	Invoke(ctx context.Context, req ActionRequest) (json.RawMessage, error)

	// Events is the inbound stream of lifecycle notifications and bot
	// messages. The channel is closed when the transport shuts down.
	Events() <-chan Event

	// Close releases the transport. In-flight invokes fail.
	Close() error
}

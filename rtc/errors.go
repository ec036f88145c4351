package rtc

import "fmt"

// ActionCode classifies a dispatch failure.
type ActionCode string

const (
	// CodeNotConnected means the dispatch was refused locally because the
	// session is not usable. The remote peer was never contacted.
	CodeNotConnected ActionCode = "not_connected"
	// CodeTimeout means no response arrived within the configured window.
	// A late response, if any, is discarded.
	CodeTimeout ActionCode = "timeout"
	// CodeRemoteRejected means the peer returned an explicit failure.
	CodeRemoteRejected ActionCode = "remote_rejected"
	// CodeTransportFault means the underlying channel failed opaquely.
	CodeTransportFault ActionCode = "transport_fault"
)

// ActionError is the failure result of a dispatch through the Gateway.
type ActionError struct {
	Code    ActionCode
	Service string
	Action  string
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("action %s/%s: %s: %s", e.Service, e.Action, e.Code, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("action %s/%s: %s: %v", e.Service, e.Action, e.Code, e.Err)
	}
	return fmt.Sprintf("action %s/%s: %s", e.Service, e.Action, e.Code)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// ActionCodeOf extracts the ActionCode from an error, or "" if the error is
// not an ActionError.
func ActionCodeOf(err error) ActionCode {
	if ae, ok := err.(*ActionError); ok {
		return ae.Code
	}
	return ""
}

// IntakeCode classifies a resource intake failure.
type IntakeCode string

const (
	// CodeTooLarge means the resource exceeds the configured size ceiling.
	CodeTooLarge IntakeCode = "too_large"
	// CodeReadFailed means the underlying byte read failed. Local and
	// transient; not retried automatically.
	CodeReadFailed IntakeCode = "read_failed"
	// CodeUnsupportedType means the declared MIME type is outside the
	// configured allow-set.
	CodeUnsupportedType IntakeCode = "unsupported_type"
)

// IntakeError is the failure result of a resource submission. Validation
// failures are always local and recoverable by picking another file.
type IntakeError struct {
	Code IntakeCode
	Name string
	Err  error
}

func (e *IntakeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("intake %q: %s: %v", e.Name, e.Code, e.Err)
	}
	return fmt.Sprintf("intake %q: %s", e.Name, e.Code)
}

func (e *IntakeError) Unwrap() error {
	return e.Err
}

// IntakeCodeOf extracts the IntakeCode from an error, or "" if the error is
// not an IntakeError.
func IntakeCodeOf(err error) IntakeCode {
	if ie, ok := err.(*IntakeError); ok {
		return ie.Code
	}
	return ""
}

// RemoteError is an explicit rejection returned by the peer for a correlated
// request. Transports surface it so the Gateway can map it to
// CodeRemoteRejected with the peer's message intact.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

package rtc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultDispatchTimeout is used when no timeout option is given.
const DefaultDispatchTimeout = 30 * time.Second

// Dispatcher sends a named action call to the remote peer and awaits its
// correlated result. Intake and toggles depend on this interface so tests can
// inject fakes.
type Dispatcher interface {
	Dispatch(ctx context.Context, service, action string, args ...Arg) (json.RawMessage, error)
}

// Gateway dispatches action requests over the session's transport. It never
// retries (actions may have remote side effects) and never mutates the
// conversation log or session state; callers decide what to do with results.
type Gateway struct {
	session   *Session
	transport Transport
	timeout   time.Duration
	logger    *Logger
}

// GatewayOption configures the gateway.
type GatewayOption func(*Gateway)

// WithDispatchTimeout sets the per-dispatch timeout.
func WithDispatchTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithGatewayLogger sets the logger used by the gateway.
func WithGatewayLogger(l *Logger) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGateway creates a gateway bound to a session and its transport.
func NewGateway(session *Session, transport Transport, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		session:   session,
		transport: transport,
		timeout:   DefaultDispatchTimeout,
		logger:    GetLogger(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

type invokeResult struct {
	value json.RawMessage
	err   error
}

// Dispatch sends one action call and waits for its correlated response.
//
// Preconditions: the session must be usable; otherwise the dispatch fails
// immediately with CodeNotConnected and the peer is never contacted.
// Multiple dispatches may be in flight concurrently; callers that require
// ordering must await one result before issuing the next. On timeout the
// dispatch resolves as CodeTimeout and a late response is discarded.
func (g *Gateway) Dispatch(ctx context.Context, service, action string, args ...Arg) (json.RawMessage, error) {
	if !g.session.Usable() {
		return nil, &ActionError{
			Code:    CodeNotConnected,
			Service: service,
			Action:  action,
			Message: "session phase is " + string(g.session.Phase()),
		}
	}

	req := ActionRequest{
		ID:      uuid.NewString(),
		Service: service,
		Action:  action,
		Args:    args,
	}

	dl := g.logger.StartDispatch(service, action, req.ID)

	resultCh := make(chan invokeResult, 1)
	go func() {
		value, err := g.transport.Invoke(ctx, req)
		resultCh <- invokeResult{value: value, err: err}
	}()

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		g.discardLate(req.ID, resultCh)
		err := &ActionError{Code: CodeTimeout, Service: service, Action: action, Err: context.DeadlineExceeded}
		dl.Failed(err)
		return nil, err

	case <-ctx.Done():
		g.discardLate(req.ID, resultCh)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err := &ActionError{Code: CodeTimeout, Service: service, Action: action, Err: ctx.Err()}
			dl.Failed(err)
			return nil, err
		}
		// Caller cancellation is not a channel failure; surface it without a
		// failure code so TransportFault keeps meaning the channel broke.
		err := fmt.Errorf("dispatch %s/%s: %w", service, action, ctx.Err())
		dl.Failed(err)
		return nil, err

	case r := <-resultCh:
		if r.err != nil {
			err := g.mapInvokeError(service, action, r.err)
			dl.Failed(err)
			return nil, err
		}
		dl.Settled()
		return r.value, nil
	}
}

// discardLate drains a response that arrives after the dispatch has settled.
// Intentional discard, not a swallowed error.
func (g *Gateway) discardLate(id string, resultCh <-chan invokeResult) {
	go func() {
		r := <-resultCh
		g.logger.Debug("late response discarded", "id", id, "err", r.err)
	}()
}

func (g *Gateway) mapInvokeError(service, action string, err error) *ActionError {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return &ActionError{
			Code:    CodeRemoteRejected,
			Service: service,
			Action:  action,
			Message: remote.Message,
			Err:     err,
		}
	}
	return &ActionError{
		Code:    CodeTransportFault,
		Service: service,
		Action:  action,
		Err:     err,
	}
}

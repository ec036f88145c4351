package rtc_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"omnichat/rtc"
)

// fakeTransport is a scriptable in-memory transport. Tests drive the event
// stream with emit and inspect every invoke that reached the channel.
type fakeTransport struct {
	mu              sync.Mutex
	invokes         []rtc.ActionRequest
	connectCalls    int
	disconnectCalls int
	invokeFn        func(ctx context.Context, req rtc.ActionRequest) (json.RawMessage, error)

	events    chan rtc.Event
	closeOnce sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		events: make(chan rtc.Event, 32),
	}
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.mu.Lock()
	f.connectCalls++
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	f.disconnectCalls++
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Invoke(ctx context.Context, req rtc.ActionRequest) (json.RawMessage, error) {
	f.mu.Lock()
	f.invokes = append(f.invokes, req)
	fn := f.invokeFn
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return json.RawMessage(`{}`), nil
}

func (f *fakeTransport) Events() <-chan rtc.Event {
	return f.events
}

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.events) })
	return nil
}

func (f *fakeTransport) emit(ev rtc.Event) {
	f.events <- ev
}

func (f *fakeTransport) emitPhase(p rtc.Phase) {
	f.emit(rtc.Event{Type: rtc.EventPhase, Phase: p})
}

func (f *fakeTransport) invokeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.invokes)
}

func (f *fakeTransport) lastInvoke() rtc.ActionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.invokes) == 0 {
		return rtc.ActionRequest{}
	}
	return f.invokes[len(f.invokes)-1]
}

// waitForPhase polls until the session reaches the phase or the deadline
// passes. Phase application is asynchronous to the emitting test.
func waitForPhase(t *testing.T, s *rtc.Session, want rtc.Phase) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Phase() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session never reached phase %q, stuck at %q", want, s.Phase())
}

// readySession builds a session over a fake transport and walks it to ready.
func readySession(t *testing.T) (*rtc.Session, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	s := rtc.NewSession(ft)
	t.Cleanup(func() { s.Close() })

	ft.emitPhase(rtc.PhaseConnecting)
	ft.emitPhase(rtc.PhaseConnected)
	ft.emitPhase(rtc.PhaseReady)
	waitForPhase(t, s, rtc.PhaseReady)
	return s, ft
}

// dispatchCall records one call through a fakeDispatcher.
type dispatchCall struct {
	Service string
	Action  string
	Args    []rtc.Arg
}

// fakeDispatcher lets intake and toggle tests script gateway results without
// a live session.
type fakeDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
	fn    func(service, action string, args []rtc.Arg) (json.RawMessage, error)
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, service, action string, args ...rtc.Arg) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, dispatchCall{Service: service, Action: action, Args: args})
	fn := f.fn
	f.mu.Unlock()

	if fn != nil {
		return fn(service, action, args)
	}
	return json.RawMessage(`{}`), nil
}

func (f *fakeDispatcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeDispatcher) lastCall() dispatchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return dispatchCall{}
	}
	return f.calls[len(f.calls)-1]
}

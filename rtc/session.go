package rtc

import (
	"context"
	"sync"
)

// Session holds the connection lifecycle state for one client instance. The
// phase is updated only in response to transport-emitted events; Connect and
// Disconnect are requests, not synchronous state changes.
type Session struct {
	mu        sync.RWMutex
	phase     Phase
	transport Transport
	logger    *Logger

	out  chan Event
	done chan struct{}
}

// SessionOption configures the session.
type SessionOption func(*Session)

// WithSessionLogger sets the logger used by the session.
func WithSessionLogger(l *Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession creates a session over the given transport and starts consuming
// its event stream.
func NewSession(t Transport, opts ...SessionOption) *Session {
	s := &Session{
		phase:     PhaseDisconnected,
		transport: t,
		logger:    GetLogger(),
		out:       make(chan Event, 100),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	go s.pump()
	return s
}

// pump applies inbound phase events and re-exports the stream for the
// presentation layer.
func (s *Session) pump() {
	defer close(s.out)

	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.transport.Events():
			if !ok {
				return
			}

			if ev.Type == EventPhase {
				s.mu.Lock()
				prev := s.phase
				s.phase = ev.Phase
				s.mu.Unlock()
				s.logger.Info("phase changed", "from", prev, "to", ev.Phase)
			}

			// Slow consumers must not stall phase tracking.
			select {
			case s.out <- ev:
			default:
				s.logger.Debug("event dropped, consumer behind", "type", ev.Type)
			}
		}
	}
}

// Phase returns the current connection phase.
func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Usable reports whether dispatches are currently permitted.
func (s *Session) Usable() bool {
	return s.Phase().Usable()
}

// Connect requests session establishment from the transport. Calling it
// while already connecting or usable is a no-op.
func (s *Session) Connect(ctx context.Context) error {
	switch s.Phase() {
	case PhaseConnecting, PhaseConnected, PhaseReady:
		return nil
	}
	return s.transport.Connect(ctx)
}

// Disconnect requests session teardown from the transport.
func (s *Session) Disconnect(ctx context.Context) error {
	return s.transport.Disconnect(ctx)
}

// Events is the inbound stream of lifecycle notifications and bot messages,
// re-exported for the presentation layer. Closed on session teardown.
func (s *Session) Events() <-chan Event {
	return s.out
}

// Close tears the session down and releases the transport.
func (s *Session) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return s.transport.Close()
}

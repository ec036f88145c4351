package rtc_test

import (
	"context"
	"testing"
	"time"

	"omnichat/rtc"
)

func TestSessionStartsDisconnected(t *testing.T) {
	ft := newFakeTransport()
	s := rtc.NewSession(ft)
	defer s.Close()

	if s.Phase() != rtc.PhaseDisconnected {
		t.Errorf("expected disconnected, got %q", s.Phase())
	}
	if s.Usable() {
		t.Error("a disconnected session must not be usable")
	}
}

func TestSessionFollowsTransportEvents(t *testing.T) {
	ft := newFakeTransport()
	s := rtc.NewSession(ft)
	defer s.Close()

	steps := []struct {
		phase  rtc.Phase
		usable bool
	}{
		{rtc.PhaseConnecting, false},
		{rtc.PhaseConnected, true},
		{rtc.PhaseReady, true},
		{rtc.PhaseDisconnecting, false},
		{rtc.PhaseDisconnected, false},
	}

	for _, step := range steps {
		ft.emitPhase(step.phase)
		waitForPhase(t, s, step.phase)
		if s.Usable() != step.usable {
			t.Errorf("phase %q: expected usable=%v", step.phase, step.usable)
		}
	}
}

func TestSessionErrorPhaseDistinctFromDisconnected(t *testing.T) {
	ft := newFakeTransport()
	s := rtc.NewSession(ft)
	defer s.Close()

	ft.emitPhase(rtc.PhaseConnected)
	waitForPhase(t, s, rtc.PhaseConnected)

	ft.emitPhase(rtc.PhaseError)
	waitForPhase(t, s, rtc.PhaseError)

	if s.Usable() {
		t.Error("an errored session must not be usable")
	}
	if s.Phase() == rtc.PhaseDisconnected {
		t.Error("error must be distinguishable from disconnected")
	}
}

func TestSessionConnectIsNoOpWhenUsable(t *testing.T) {
	ctx := context.Background()
	ft := newFakeTransport()
	s := rtc.NewSession(ft)
	defer s.Close()

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	ft.emitPhase(rtc.PhaseReady)
	waitForPhase(t, s, rtc.PhaseReady)

	// Connecting again while usable must not touch the transport.
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	ft.mu.Lock()
	calls := ft.connectCalls
	ft.mu.Unlock()
	if calls != 1 {
		t.Errorf("expected exactly 1 transport connect, got %d", calls)
	}
}

func TestSessionConnectForwardsAfterDisconnect(t *testing.T) {
	ctx := context.Background()
	ft := newFakeTransport()
	s := rtc.NewSession(ft)
	defer s.Close()

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	ft.emitPhase(rtc.PhaseReady)
	waitForPhase(t, s, rtc.PhaseReady)

	ft.emitPhase(rtc.PhaseDisconnected)
	waitForPhase(t, s, rtc.PhaseDisconnected)

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	ft.mu.Lock()
	calls := ft.connectCalls
	ft.mu.Unlock()
	if calls != 2 {
		t.Errorf("expected 2 transport connects, got %d", calls)
	}
}

func TestSessionReExportsMessageEvents(t *testing.T) {
	ft := newFakeTransport()
	s := rtc.NewSession(ft)
	defer s.Close()

	ft.emit(rtc.Event{
		Type:     rtc.EventMessage,
		Sender:   rtc.SenderBot,
		Content:  "hello there",
		Modality: rtc.ModalityText,
	})

	ev := <-s.Events()
	if ev.Type != rtc.EventMessage {
		t.Fatalf("expected message event, got %q", ev.Type)
	}
	if ev.Content != "hello there" {
		t.Errorf("expected content to pass through, got %q", ev.Content)
	}
}

func TestSessionCloseClosesEventStream(t *testing.T) {
	ft := newFakeTransport()
	s := rtc.NewSession(ft)

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case _, ok := <-s.Events():
		if ok {
			t.Error("expected event stream to be closed")
		}
	case <-time.After(2 * time.Second):
		t.Error("event stream never closed")
	}
}

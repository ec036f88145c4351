package rtc_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"omnichat/rtc"
)

// sseRuntime is a minimal HTTP runtime for transport tests: it walks the
// lifecycle on subscriber attach and answers action posts from a script.
type sseRuntime struct {
	t        *testing.T
	onAction func(req rtc.ActionRequest) (any, string)
}

func (rt *sseRuntime) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/session/events", func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			rt.t.Error("response writer is not a flusher")
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)

		for _, phase := range []rtc.Phase{rtc.PhaseConnecting, rtc.PhaseConnected, rtc.PhaseReady} {
			fmt.Fprintf(w, "event: phase\ndata: {\"type\":\"phase\",\"phase\":%q}\n\n", phase)
			flusher.Flush()
		}

		<-r.Context().Done()
	})

	mux.HandleFunc("/session/disconnect", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/action", func(w http.ResponseWriter, r *http.Request) {
		var req rtc.ActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, errMsg := any(map[string]any{}), ""
		if rt.onAction != nil {
			result, errMsg = rt.onAction(req)
		}

		w.Header().Set("Content-Type", "application/json")
		if errMsg != "" {
			json.NewEncoder(w).Encode(map[string]any{"id": req.ID, "error": errMsg})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": req.ID, "result": result})
	})

	return mux
}

func TestHTTPTransportLifecycle(t *testing.T) {
	rt := &sseRuntime{t: t}
	srv := httptest.NewServer(rt.handler())
	defer srv.Close()

	transport := rtc.NewHTTPTransport(srv.URL)
	defer transport.Close()

	if err := transport.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	var phases []rtc.Phase
	deadline := time.After(2 * time.Second)
	for len(phases) < 3 {
		select {
		case ev := <-transport.Events():
			if ev.Type == rtc.EventPhase {
				phases = append(phases, ev.Phase)
			}
		case <-deadline:
			t.Fatalf("timed out waiting for phase events, got %v", phases)
		}
	}

	want := []rtc.Phase{rtc.PhaseConnecting, rtc.PhaseConnected, rtc.PhaseReady}
	for i, p := range want {
		if phases[i] != p {
			t.Errorf("phase %d: expected %q, got %q", i, p, phases[i])
		}
	}
}

func TestHTTPTransportInvoke(t *testing.T) {
	rt := &sseRuntime{
		t: t,
		onAction: func(req rtc.ActionRequest) (any, string) {
			if req.Service != "chat" || req.Action != "send_message" {
				t.Errorf("unexpected action request %+v", req)
			}
			return map[string]any{"delivered": true}, ""
		},
	}
	srv := httptest.NewServer(rt.handler())
	defer srv.Close()

	transport := rtc.NewHTTPTransport(srv.URL)
	defer transport.Close()

	result, err := transport.Invoke(context.Background(), rtc.ActionRequest{
		ID:      "r-1",
		Service: "chat",
		Action:  "send_message",
		Args:    []rtc.Arg{{Name: "content", Value: "hi"}},
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	var decoded struct {
		Delivered bool `json:"delivered"`
	}
	if err := json.Unmarshal(result, &decoded); err != nil || !decoded.Delivered {
		t.Errorf("unexpected result %s (err %v)", result, err)
	}
}

func TestHTTPTransportInvokeRejection(t *testing.T) {
	rt := &sseRuntime{
		t: t,
		onAction: func(req rtc.ActionRequest) (any, string) {
			return nil, "file too large for remote store"
		},
	}
	srv := httptest.NewServer(rt.handler())
	defer srv.Close()

	transport := rtc.NewHTTPTransport(srv.URL)
	defer transport.Close()

	_, err := transport.Invoke(context.Background(), rtc.ActionRequest{
		ID: "r-2", Service: "file_processor", Action: "upload_file",
	})

	var remote *rtc.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected *RemoteError, got %v", err)
	}
	if remote.Message != "file too large for remote store" {
		t.Errorf("expected the peer's message verbatim, got %q", remote.Message)
	}
}

func TestHTTPTransportConnectRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "runtime at capacity", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	transport := rtc.NewHTTPTransport(srv.URL)
	defer transport.Close()

	if err := transport.Connect(context.Background()); err == nil {
		t.Fatal("expected connect to fail against a refusing runtime")
	}

	// The failure must also surface as an error phase so the status bar can
	// render it distinctly from disconnected.
	select {
	case ev := <-transport.Events():
		if ev.Type != rtc.EventPhase || ev.Phase != rtc.PhaseError {
			t.Errorf("expected an error phase event, got %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no error phase event after the failed connect")
	}
}

func TestHTTPTransportStreamEndEmitsDisconnected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: phase\ndata: {\"type\":\"phase\",\"phase\":\"ready\"}\n\n")
		flusher.Flush()
		// Handler returns, ending the stream cleanly.
	}))
	defer srv.Close()

	transport := rtc.NewHTTPTransport(srv.URL)
	defer transport.Close()

	if err := transport.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-transport.Events():
			if ev.Type == rtc.EventPhase && ev.Phase == rtc.PhaseDisconnected {
				return
			}
		case <-deadline:
			t.Fatal("never saw the disconnected phase after stream end")
		}
	}
}

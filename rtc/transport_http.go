package rtc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// HTTPTransport carries the session over HTTP: action invokes are JSON POSTs
// and the inbound event stream is server-sent events. Connect attaches the
// SSE stream; the runtime answers with lifecycle phase events.
type HTTPTransport struct {
	baseURL    string
	httpClient *http.Client
	logger     *Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	streaming bool

	events    chan Event
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// HTTPOption configures the HTTP transport.
type HTTPOption func(*HTTPTransport)

// WithHTTPClient sets a custom HTTP client for action invokes.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		t.httpClient = c
	}
}

// WithHTTPLogger sets the logger used by the transport.
func WithHTTPLogger(l *Logger) HTTPOption {
	return func(t *HTTPTransport) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewHTTPTransport creates an HTTP+SSE transport for the given runtime base
// URL.
func NewHTTPTransport(baseURL string, opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: GetLogger(),
		events: make(chan Event, 100),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Connect opens the event stream. The runtime treats the subscriber attach
// as the connect request and answers with phase events on the stream.
func (t *HTTPTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.streaming {
		t.mu.Unlock()
		return nil
	}
	streamCtx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.streaming = true
	t.mu.Unlock()

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, t.baseURL+"/session/events", nil)
	if err != nil {
		cancel()
		t.setStreaming(false)
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// A client without timeout; the stream lives as long as the session.
	sseClient := &http.Client{}
	resp, err := sseClient.Do(req)
	if err != nil {
		cancel()
		t.setStreaming(false)
		// A failed connect is a transport fault; the status bar renders it
		// from the phase event, not the returned error.
		t.emit(Event{Type: EventPhase, Phase: PhaseError})
		return fmt.Errorf("open event stream: %w", err)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		t.setStreaming(false)
		t.emit(Event{Type: EventPhase, Phase: PhaseError})
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	t.wg.Add(1)
	go t.readStream(streamCtx, resp.Body)
	return nil
}

func (t *HTTPTransport) setStreaming(v bool) {
	t.mu.Lock()
	t.streaming = v
	t.mu.Unlock()
}

// readStream parses SSE events off the response body and forwards them.
func (t *HTTPTransport) readStream(ctx context.Context, body io.ReadCloser) {
	defer t.wg.Done()
	defer body.Close()
	defer t.setStreaming(false)

	reader := bufio.NewReader(body)
	var eventType string
	var dataLines []string

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			select {
			case <-ctx.Done():
				// Stream torn down locally; the disconnect path already
				// produced the phase events.
			default:
				if err != io.EOF {
					t.logger.Warn("event stream failed", "error", err)
					t.emit(Event{Type: EventPhase, Phase: PhaseError})
				} else {
					t.emit(Event{Type: EventPhase, Phase: PhaseDisconnected})
				}
			}
			return
		}

		line = strings.TrimSpace(line)

		if line == "" {
			// Empty line = end of event
			if eventType != "" || len(dataLines) > 0 {
				data := strings.Join(dataLines, "\n")
				if data != "" {
					var ev Event
					if err := json.Unmarshal([]byte(data), &ev); err != nil {
						ev = Event{Type: EventType(eventType), Raw: json.RawMessage(data)}
					}
					if ev.Type == "" {
						ev.Type = EventType(eventType)
					}
					ev.Raw = json.RawMessage(data)
					t.emit(ev)
				}
				eventType = ""
				dataLines = nil
			}
			continue
		}

		if strings.HasPrefix(line, "event:") {
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		} else if strings.HasPrefix(line, "data:") {
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
}

func (t *HTTPTransport) emit(ev Event) {
	select {
	case t.events <- ev:
	default:
		t.logger.Debug("event dropped, buffer full", "type", ev.Type)
	}
}

// Disconnect asks the runtime to tear the session down. The resulting
// disconnecting/disconnected phases arrive on the event stream.
func (t *HTTPTransport) Disconnect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/session/disconnect", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

type actionResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// Invoke POSTs one action request and decodes its correlated response. An
// explicit peer rejection is returned as *RemoteError.
func (t *HTTPTransport) Invoke(ctx context.Context, ar ActionRequest) (json.RawMessage, error) {
	body, err := json.Marshal(ar)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/action", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var ares actionResponse
	if err := json.Unmarshal(respBody, &ares); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &RemoteError{Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(respBody))}
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 400 || ares.Error != "" {
		msg := ares.Error
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return nil, &RemoteError{Message: msg}
	}

	return ares.Result, nil
}

// Events is the inbound stream of lifecycle and message events.
func (t *HTTPTransport) Events() <-chan Event {
	return t.events
}

// Close cancels the event stream and closes the event channel.
func (t *HTTPTransport) Close() error {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.mu.Unlock()

	t.wg.Wait()
	t.closeOnce.Do(func() { close(t.events) })
	return nil
}

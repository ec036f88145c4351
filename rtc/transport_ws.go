package rtc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// wsFrame is the wire envelope for the duplex channel. Action requests and
// correlated results share it with inbound phase/message events.
type wsFrame struct {
	Type    string          `json:"type"` // "action", "disconnect", "result", "phase", "message"
	ID      string          `json:"id,omitempty"`
	Service string          `json:"service,omitempty"`
	Action  string          `json:"action,omitempty"`
	Args    []Arg           `json:"arguments,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`

	Phase    Phase    `json:"phase,omitempty"`
	Sender   Sender   `json:"sender,omitempty"`
	Content  string   `json:"content,omitempty"`
	Modality Modality `json:"modality,omitempty"`
}

type wsResult struct {
	value json.RawMessage
	err   error
}

// WSTransport carries the session over a single duplex WebSocket connection.
// Requests and responses are correlated by ID; a response for an unknown or
// already-settled ID is dropped.
type WSTransport struct {
	url    string
	dialer *websocket.Dialer
	logger *Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	send     chan []byte
	connDone chan struct{}
	pending  map[string]chan wsResult
	closing  bool

	events    chan Event
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// WSOption configures the WebSocket transport.
type WSOption func(*WSTransport)

// WithWSDialer sets a custom dialer.
func WithWSDialer(d *websocket.Dialer) WSOption {
	return func(t *WSTransport) {
		t.dialer = d
	}
}

// WithWSLogger sets the logger used by the transport.
func WithWSLogger(l *Logger) WSOption {
	return func(t *WSTransport) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewWSTransport creates a WebSocket transport for the given ws:// or wss://
// URL.
func NewWSTransport(url string, opts ...WSOption) *WSTransport {
	t := &WSTransport{
		url:     url,
		dialer:  websocket.DefaultDialer,
		logger:  GetLogger(),
		pending: make(map[string]chan wsResult),
		events:  make(chan Event, 100),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Connect dials the runtime and starts the read and write pumps. Lifecycle
// phases arrive as frames from the peer.
func (t *WSTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.conn != nil {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	conn, resp, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		// A failed connect is a transport fault; the status bar renders it
		// from the phase event, not the returned error.
		t.emit(Event{Type: EventPhase, Phase: PhaseError})
		if resp != nil {
			return fmt.Errorf("dial %s: HTTP %d: %w", t.url, resp.StatusCode, err)
		}
		return fmt.Errorf("dial %s: %w", t.url, err)
	}

	t.mu.Lock()
	t.conn = conn
	t.send = make(chan []byte, 256)
	t.connDone = make(chan struct{})
	t.closing = false
	t.mu.Unlock()

	t.wg.Add(2)
	go t.writePump(conn, t.send, t.connDone)
	go t.readPump(conn)
	return nil
}

// writePump serializes outbound frames. It stops when done closes; the send
// channel itself is never closed, so a racing sender can always be released
// through done instead of panicking on a closed channel.
func (t *WSTransport) writePump(conn *websocket.Conn, send <-chan []byte, done <-chan struct{}) {
	defer t.wg.Done()
	for {
		select {
		case <-done:
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-send:
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				t.logger.Warn("websocket write failed", "error", err)
				return
			}
		}
	}
}

func (t *WSTransport) readPump(conn *websocket.Conn) {
	defer t.wg.Done()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.handleStreamEnd(err)
			return
		}

		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			t.logger.Debug("unparseable frame dropped", "error", err)
			continue
		}

		switch frame.Type {
		case "result":
			t.settle(frame)
		case "phase":
			t.emit(Event{Type: EventPhase, Phase: frame.Phase, Raw: data})
		case "message":
			t.emit(Event{
				Type:     EventMessage,
				Sender:   frame.Sender,
				Content:  frame.Content,
				Modality: frame.Modality,
				Raw:      data,
			})
		default:
			t.logger.Debug("unknown frame type dropped", "type", frame.Type)
		}
	}
}

// settle routes a result frame to its waiting caller. Unknown correlation
// IDs mean the caller already timed out; the reply is dropped.
func (t *WSTransport) settle(frame wsFrame) {
	t.mu.Lock()
	ch, ok := t.pending[frame.ID]
	if ok {
		delete(t.pending, frame.ID)
	}
	t.mu.Unlock()

	if !ok {
		t.logger.Debug("uncorrelated result dropped", "id", frame.ID)
		return
	}

	if frame.Error != "" {
		ch <- wsResult{err: &RemoteError{Message: frame.Error}}
		return
	}
	ch <- wsResult{value: frame.Result}
}

// handleStreamEnd fails all in-flight invokes and reports the final phase.
// A teardown we initiated ends with disconnected; anything else is a
// transport fault.
func (t *WSTransport) handleStreamEnd(err error) {
	t.mu.Lock()
	closing := t.closing
	pending := t.pending
	t.pending = make(map[string]chan wsResult)
	t.conn = nil
	t.send = nil
	if t.connDone != nil {
		close(t.connDone)
		t.connDone = nil
	}
	t.mu.Unlock()

	fault := fmt.Errorf("session channel closed: %w", err)
	for id, ch := range pending {
		t.logger.Debug("in-flight dispatch abandoned", "id", id)
		ch <- wsResult{err: fault}
	}

	if closing || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		t.emit(Event{Type: EventPhase, Phase: PhaseDisconnected})
		return
	}
	t.logger.Warn("websocket read failed", "error", err)
	t.emit(Event{Type: EventPhase, Phase: PhaseError})
}

func (t *WSTransport) emit(ev Event) {
	select {
	case t.events <- ev:
	default:
		t.logger.Debug("event dropped, buffer full", "type", ev.Type)
	}
}

// Disconnect sends the teardown request. The peer answers with
// disconnecting/disconnected phase frames and closes the connection.
func (t *WSTransport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	t.closing = true
	send := t.send
	done := t.connDone
	t.mu.Unlock()

	if send == nil {
		return nil
	}

	frame, _ := json.Marshal(wsFrame{Type: "disconnect"})
	select {
	case send <- frame:
		return nil
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Invoke sends one correlated action frame and waits for its result frame.
func (t *WSTransport) Invoke(ctx context.Context, ar ActionRequest) (json.RawMessage, error) {
	frame, err := json.Marshal(wsFrame{
		Type:    "action",
		ID:      ar.ID,
		Service: ar.Service,
		Action:  ar.Action,
		Args:    ar.Args,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal frame: %w", err)
	}

	ch := make(chan wsResult, 1)

	t.mu.Lock()
	if t.conn == nil || t.send == nil {
		t.mu.Unlock()
		return nil, fmt.Errorf("session channel not established")
	}
	t.pending[ar.ID] = ch
	send := t.send
	done := t.connDone
	t.mu.Unlock()

	select {
	case send <- frame:
	case <-done:
		t.unregister(ar.ID)
		return nil, fmt.Errorf("session channel closed")
	case <-ctx.Done():
		t.unregister(ar.ID)
		return nil, ctx.Err()
	}

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		t.unregister(ar.ID)
		return nil, ctx.Err()
	}
}

func (t *WSTransport) unregister(id string) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}

// Events is the inbound stream of lifecycle and message events.
func (t *WSTransport) Events() <-chan Event {
	return t.events
}

// Close tears the connection down and closes the event channel.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	t.closing = true
	conn := t.conn
	t.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	t.wg.Wait()
	t.closeOnce.Do(func() { close(t.events) })
	return nil
}

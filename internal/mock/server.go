// Package mock is a stand-in chat runtime for demos and manual testing. It
// speaks both channels the client knows: HTTP action posts with an SSE event
// stream, and the duplex WebSocket frame protocol.
package mock

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

type Server struct {
	port int

	mu          sync.Mutex
	subscribers map[chan string]struct{}

	upgrader websocket.Upgrader
}

func NewServer(port int) *Server {
	return &Server{
		port:        port,
		subscribers: make(map[chan string]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/session/events", s.eventsHandler)
	mux.HandleFunc("/session/disconnect", s.disconnectHandler)
	mux.HandleFunc("/action", s.actionHandler)
	mux.HandleFunc("/ws", s.wsHandler)

	addr := fmt.Sprintf(":%d", s.port)
	fmt.Printf("Mock runtime listening on http://localhost%s\n", addr)
	return http.ListenAndServe(addr, mux)
}

// subscribe registers an SSE consumer.
func (s *Server) subscribe() chan string {
	ch := make(chan string, 32)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan string) {
	s.mu.Lock()
	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.mu.Unlock()
}

func (s *Server) broadcast(payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- payload:
		default:
		}
	}
}

func phasePayload(phase string) string {
	p, _ := sjson.Set("", "type", "phase")
	p, _ = sjson.Set(p, "phase", phase)
	return p
}

func messagePayload(content string) string {
	p, _ := sjson.Set("", "type", "message")
	p, _ = sjson.Set(p, "sender", "bot")
	p, _ = sjson.Set(p, "content", content)
	p, _ = sjson.Set(p, "modality", "text")
	return p
}

// eventsHandler attaches one SSE subscriber and walks it through the connect
// lifecycle before relaying broadcast events.
func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	for _, phase := range []string{"connecting", "connected", "ready"} {
		sendSSE(w, flusher, phasePayload(phase))
		time.Sleep(50 * time.Millisecond)
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case payload, ok := <-ch:
			if !ok {
				return
			}
			sendSSE(w, flusher, payload)
		}
	}
}

func (s *Server) disconnectHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.broadcast(phasePayload("disconnecting"))
	s.broadcast(phasePayload("disconnected"))

	// Drop the subscribers so their streams end.
	s.mu.Lock()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.mu.Unlock()

	w.WriteHeader(http.StatusOK)
}

// actionHandler answers correlated action posts from the HTTP transport.
func (s *Server) actionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	raw := string(body)

	result, rejectMsg := s.route(raw)

	w.Header().Set("Content-Type", "application/json")
	if rejectMsg != "" {
		resp, _ := sjson.Set("", "error", rejectMsg)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, resp)
		return
	}
	resp, _ := sjson.SetRaw("", "result", result)
	fmt.Fprint(w, resp)
}

// route handles one action request and returns the result JSON, or a
// rejection message.
func (s *Server) route(raw string) (result string, rejectMsg string) {
	service := gjson.Get(raw, "service").String()
	action := gjson.Get(raw, "action").String()

	switch service {
	case "media_control", "screen_share":
		enabled := argValue(raw, "enabled").Bool()
		res, _ := sjson.Set("", "enabled", enabled)
		return res, ""

	case "file_processor":
		if action != "upload_file" {
			return "", "unknown action " + action
		}
		res, _ := sjson.Set("", "file_id", "file_"+uuid.NewString()[:8])
		res, _ = sjson.Set(res, "status", "stored")
		return res, ""

	case "chat":
		content := argValue(raw, "content").String()
		go func() {
			time.Sleep(300 * time.Millisecond)
			s.broadcast(messagePayload(cannedReply(content)))
		}()
		res, _ := sjson.Set("", "status", "delivered")
		return res, ""
	}

	return "", "unknown service " + service
}

// argValue extracts a named argument from the ordered arguments list.
func argValue(raw, name string) gjson.Result {
	return gjson.Get(raw, `arguments.#(name=="`+name+`").value`)
}

func cannedReply(userMessage string) string {
	lower := strings.ToLower(userMessage)

	switch {
	case strings.Contains(lower, "hello"), strings.Contains(lower, "hi"):
		return "Hello! I can chat, analyze your uploads, and follow along on voice or video. What would you like to do?"
	case strings.Contains(lower, "file"), strings.Contains(lower, "upload"):
		return "Upload a file with **Ctrl+U** and I will take a look at it."
	case strings.Contains(lower, "voice"), strings.Contains(lower, "mic"):
		return "Your microphone toggle is in the status bar. Flip it with **Ctrl+O**."
	}
	return "Got it. Ask me about your uploaded files, or toggle media devices from the status bar."
}

func sendSSE(w http.ResponseWriter, flusher http.Flusher, payload string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", gjson.Get(payload, "type").String(), payload)
	flusher.Flush()
}

// wsHandler speaks the duplex frame protocol for the WebSocket transport.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	write := func(payload string) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteMessage(websocket.TextMessage, []byte(payload))
	}

	for _, phase := range []string{"connecting", "connected", "ready"} {
		if err := write(phasePayload(phase)); err != nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		raw := string(data)

		switch gjson.Get(raw, "type").String() {
		case "disconnect":
			_ = write(phasePayload("disconnecting"))
			_ = write(phasePayload("disconnected"))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case "action":
			id := gjson.Get(raw, "id").String()
			result, rejectMsg := s.route(raw)

			frame, _ := sjson.Set("", "type", "result")
			frame, _ = sjson.Set(frame, "id", id)
			if rejectMsg != "" {
				frame, _ = sjson.Set(frame, "error", rejectMsg)
			} else {
				frame, _ = sjson.SetRaw(frame, "result", result)
			}
			if err := write(frame); err != nil {
				return
			}

			// Chat replies ride the event side of the same connection.
			if gjson.Get(raw, "service").String() == "chat" {
				content := argValue(raw, "content").String()
				go func() {
					time.Sleep(300 * time.Millisecond)
					_ = write(messagePayload(cannedReply(content)))
				}()
			}
		}
	}
}

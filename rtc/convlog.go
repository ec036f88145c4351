package rtc

import (
	"sync"
	"time"
)

// Sender identifies who produced a conversation entry.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderBot    Sender = "bot"
	SenderSystem Sender = "system"
)

// Modality tags how a message was produced.
type Modality string

const (
	ModalityText   Modality = "text"
	ModalityVoice  Modality = "voice"
	ModalitySystem Modality = "system"
)

// Message is one immutable entry of the conversation log.
type Message struct {
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	Modality  Modality  `json:"modality"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats are the live analytics counters. They are a cache over the log; the
// source of truth is the message sequence itself (see Recompute).
type Stats struct {
	TotalMessages int `json:"totalMessages"`
	TextMessages  int `json:"textMessages"`
	VoiceMessages int `json:"voiceMessages"`
}

// Log is the ordered, append-only record of exchanged messages. Entries are
// never reordered, mutated, or removed; the log lives for the session and is
// dropped with it. Safe for concurrent use.
type Log struct {
	mu       sync.RWMutex
	messages []Message
	stats    Stats
}

// NewLog creates an empty conversation log.
func NewLog() *Log {
	return &Log{}
}

// Append records a message. Synchronous, local, always succeeds. An empty
// timestamp is filled with the current time.
func (l *Log) Append(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = append(l.messages, msg)
	l.count(&l.stats, msg)
}

// System appends a client-generated entry narrating a state change or
// failure. Not counted as a text or voice message.
func (l *Log) System(content string) {
	l.Append(Message{
		Sender:   SenderSystem,
		Content:  content,
		Modality: ModalitySystem,
	})
}

// All returns the messages in insertion order. The returned slice is a copy.
func (l *Log) All() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Stats returns the live counters.
func (l *Log) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stats
}

// Recompute rebuilds the counters from the log alone and returns them. The
// result always satisfies TotalMessages == TextMessages + VoiceMessages.
func (l *Log) Recompute() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	var s Stats
	for _, msg := range l.messages {
		l.count(&s, msg)
	}
	l.stats = s
	return s
}

// count tallies one message into s. System entries are narration, not
// conversation, and do not count toward any bucket.
func (l *Log) count(s *Stats, msg Message) {
	switch msg.Modality {
	case ModalityText:
		s.TotalMessages++
		s.TextMessages++
	case ModalityVoice:
		s.TotalMessages++
		s.VoiceMessages++
	}
}

package orchestrator

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// SentinelPrefix marks a chunk that carries a structured side-channel
// event instead of narrative text. Wire form:
// CONVERSATION_UPDATE:<conversation_id>:<summary>:<updated_at>
const SentinelPrefix = "CONVERSATION_UPDATE:"

// Chunk is one unit of orchestrator output handed to the transport
type Chunk struct {
	Role    string
	Content string
}

// EmitFunc receives orchestrator output chunks in order
type EmitFunc func(Chunk) error

// MessageFrame is the wire frame for narrative text
type MessageFrame struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// ControlFrame is the wire frame for a structured event
type ControlFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	Summary        string `json:"summary"`
	UpdatedAt      string `json:"updated_at"`
}

// ParseSentinel interprets a chunk that starts with the sentinel prefix.
// The summary field must not contain colons; the trailing RFC3339
// timestamp keeps its own. A chunk that does not parse cleanly is not a
// sentinel and must be forwarded as plain text.
func ParseSentinel(content string) (*ControlFrame, bool) {
	if !strings.HasPrefix(content, SentinelPrefix) {
		return nil, false
	}

	parts := strings.SplitN(content, ":", 4)
	if len(parts) != 4 {
		return nil, false
	}

	conversationID := parts[1]
	summary := parts[2]
	updatedAt := strings.TrimSpace(parts[3])
	if conversationID == "" || summary == "" {
		return nil, false
	}
	if _, err := time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, false
	}

	return &ControlFrame{
		Type:           "conversation_update",
		ConversationID: conversationID,
		Summary:        summary,
		UpdatedAt:      updatedAt,
	}, true
}

// Transport writes orchestrator output as newline-delimited JSON frames.
// Chunks starting with a well-formed sentinel become exactly one control
// frame; everything else becomes a message frame. Frames are flushed as
// they are written so the client sees them in real time.
type Transport struct {
	w      io.Writer
	flush  func() error
	logger *logrus.Entry
	now    func() time.Time
}

// NewTransport creates a transport writing frames to w. flush is called
// after every frame; pass nil when w needs no explicit flushing.
func NewTransport(w io.Writer, flush func() error) *Transport {
	if flush == nil {
		flush = func() error { return nil }
	}
	return &Transport{
		w:      w,
		flush:  flush,
		logger: logrus.WithField("component", "stream"),
		now:    time.Now,
	}
}

// Emit forwards one orchestrator chunk to the client
func (t *Transport) Emit(chunk Chunk) error {
	if frame, ok := ParseSentinel(chunk.Content); ok {
		return t.writeFrame(frame)
	}

	return t.writeFrame(MessageFrame{
		Role:      chunk.Role,
		Content:   chunk.Content,
		Timestamp: t.now().UTC().Format(time.RFC3339),
	})
}

func (t *Transport) writeFrame(frame any) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	if _, err := t.w.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return t.flush()
}

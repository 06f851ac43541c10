package orchestrator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/memegen/memegen-backend/internal/providers"
)

// Turn roles. Summary turns are produced by history trimming and are never
// written by the model or the user.
const (
	RoleUser    = "user"
	RoleModel   = "model"
	RoleTool    = "tool"
	RoleSummary = "summary"
)

// Turn is one entry of a conversation transcript: a user prompt, a model
// response (possibly carrying tool invocations), a tool result, or a
// spliced-in history summary.
type Turn struct {
	Role       string               `json:"role"`
	Content    string               `json:"content,omitempty"`
	ToolCalls  []providers.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string               `json:"tool_call_id,omitempty"`
	ToolName   string               `json:"tool_name,omitempty"`
	Timestamp  time.Time            `json:"timestamp"`
}

// EncodeSegment serializes the turns produced by one run into the opaque
// payload stored as a transcript segment.
func EncodeSegment(turns []Turn) ([]byte, error) {
	payload, err := json.Marshal(turns)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transcript segment: %w", err)
	}
	return payload, nil
}

// DecodeSegment restores the turns of one stored transcript segment
func DecodeSegment(payload []byte) ([]Turn, error) {
	var turns []Turn
	if err := json.Unmarshal(payload, &turns); err != nil {
		return nil, fmt.Errorf("failed to decode transcript segment: %w", err)
	}
	return turns, nil
}

// toProviderMessages converts transcript turns into the message list sent
// to the chat provider. Summary turns become system messages so the model
// treats them as established context rather than something it said.
func toProviderMessages(turns []Turn) []providers.Message {
	messages := make([]providers.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case RoleUser:
			messages = append(messages, providers.Message{Role: "user", Content: turn.Content})
		case RoleModel:
			messages = append(messages, providers.Message{
				Role:      "assistant",
				Content:   turn.Content,
				ToolCalls: turn.ToolCalls,
			})
		case RoleTool:
			messages = append(messages, providers.Message{
				Role:       "tool",
				Content:    turn.Content,
				ToolCallID: turn.ToolCallID,
				Name:       turn.ToolName,
			})
		case RoleSummary:
			messages = append(messages, providers.Message{
				Role:    "system",
				Content: "Summary of the conversation so far: " + turn.Content,
			})
		}
	}
	return messages
}

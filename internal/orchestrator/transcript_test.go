package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memegen/memegen-backend/internal/providers"
)

func TestSegmentRoundTripPreservesToolCalls(t *testing.T) {
	turns := []Turn{
		{Role: RoleUser, Content: "make a meme about cats", Timestamp: time.Unix(10, 0).UTC()},
		{
			Role: RoleModel,
			ToolCalls: []providers.ToolCall{{
				ID:       "call_1",
				Type:     "function",
				Function: providers.FunctionCall{Name: "summarize_request", Arguments: `{"description":"cats"}`},
			}},
			Timestamp: time.Unix(11, 0).UTC(),
		},
		{Role: RoleTool, ToolCallID: "call_1", ToolName: "summarize_request", Content: `{"summary":"cats"}`, Timestamp: time.Unix(12, 0).UTC()},
	}

	payload, err := EncodeSegment(turns)
	require.NoError(t, err)

	decoded, err := DecodeSegment(payload)
	require.NoError(t, err)
	assert.Equal(t, turns, decoded)
}

func TestToProviderMessagesMapsRoles(t *testing.T) {
	turns := []Turn{
		{Role: RoleSummary, Content: "they picked a cat meme"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleModel, Content: "hello"},
		{Role: RoleTool, ToolCallID: "call_1", ToolName: "web_search", Content: `{"results":[]}`},
	}

	messages := toProviderMessages(turns)
	require.Len(t, messages, 4)

	assert.Equal(t, "system", messages[0].Role)
	assert.Contains(t, messages[0].Content, "they picked a cat meme")
	assert.Equal(t, "user", messages[1].Role)
	assert.Equal(t, "assistant", messages[2].Role)
	assert.Equal(t, "tool", messages[3].Role)
	assert.Equal(t, "call_1", messages[3].ToolCallID)
	assert.Equal(t, "web_search", messages[3].Name)
}

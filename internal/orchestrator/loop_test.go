package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runLoop(t *testing.T, h *harness, prompt string, history []Turn, retryCap int) ([]Turn, []Chunk) {
	t.Helper()

	var chunks []Chunk
	turns, err := h.orchestrator(retryCap).Run(context.Background(), RunInput{
		ConversationID: "conv-1",
		Prompt:         prompt,
		History:        history,
	}, collectEmits(&chunks))
	require.NoError(t, err)
	return turns, chunks
}

func sentinelChunks(chunks []Chunk) []*ControlFrame {
	var frames []*ControlFrame
	for _, chunk := range chunks {
		if frame, ok := ParseSentinel(chunk.Content); ok {
			frames = append(frames, frame)
		}
	}
	return frames
}

func TestRunCatsScenario(t *testing.T) {
	captions := `{"variants":[
		{"text_boxes":["cat","laptop"],"context":"a"},
		{"text_boxes":["cat 2"],"context":"b"},
		{"text_boxes":["cat 3"],"context":"c"}]}`

	h := newHarness(
		toolResponse("call_1", "summarize_request", `{"description":"a meme about cats"}`),
		textResponse("A meme about cats"), // summary sub-task
		toolResponse("call_2", "generate_captions", `{"keywords":["cats"]}`),
		textResponse(captions), // captions sub-task
		textResponse("Here are 3 options. Which one do you like?"),
	)

	turns, chunks := runLoop(t, h, "make a meme about cats", nil, 2)

	// Exactly one sentinel, emitted after the summary was persisted
	frames := sentinelChunks(chunks)
	require.Len(t, frames, 1)
	assert.Equal(t, "conv-1", frames[0].ConversationID)
	assert.Equal(t, "A meme about cats", frames[0].Summary)
	assert.Equal(t, "A meme about cats", h.conversations.summaries["conv-1"])

	// Final narrative reaches the user
	last := chunks[len(chunks)-1]
	assert.Equal(t, RoleModel, last.Role)
	assert.Contains(t, last.Content, "3 options")

	// The transcript records the full run in order
	require.GreaterOrEqual(t, len(turns), 5)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, "make a meme about cats", turns[0].Content)
	var toolNames []string
	for _, turn := range turns {
		if turn.Role == RoleTool {
			toolNames = append(toolNames, turn.ToolName)
		}
	}
	assert.Equal(t, []string{"summarize_request", "generate_captions"}, toolNames)
	assert.Equal(t, RoleModel, turns[len(turns)-1].Role)

	// No image was rendered without confirmation
	assert.Zero(t, h.images.generateCalls)
}

func TestRunSelectionTriggersSingleRender(t *testing.T) {
	history := []Turn{
		{Role: RoleUser, Content: "make a meme about cats"},
		{Role: RoleTool, ToolName: string(ToolSummarizeRequest), ToolCallID: "c0", Content: `{"summary":"cats"}`},
		{Role: RoleModel, Content: "Here are 3 options."},
	}

	h := newHarness(
		toolResponse("call_1", "render_image", `{"text_boxes":["cat","laptop"],"visual_context":"a cat at a desk"}`),
		textResponse("Done! Here is your meme."),
	)

	turns, chunks := runLoop(t, h, "I choose #2", history, 2)

	assert.Equal(t, 1, h.images.generateCalls)
	assert.Len(t, h.storage.objects, 1)

	latest, err := h.memes.LatestByConversation(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "resp_1", latest.ProviderHandle)

	assert.Contains(t, chunks[len(chunks)-1].Content, "your meme")
	assert.Equal(t, RoleModel, turns[len(turns)-1].Role)
}

func TestRunAmbiguousReplyBlocksModification(t *testing.T) {
	history := []Turn{
		{Role: RoleUser, Content: "make a meme about cats"},
		{Role: RoleTool, ToolName: string(ToolSummarizeRequest), ToolCallID: "c0", Content: `{"summary":"cats"}`},
		{Role: RoleTool, ToolName: string(ToolRenderImage), ToolCallID: "c1", Content: `{"meme_id":"m1","provider_handle":"resp_9"}`},
	}

	h := newHarness(
		toolResponse("call_1", "modify_image", `{"instruction":"bigger text","provider_handle":"resp_9"}`),
		textResponse("Just to confirm, should I make the caption text bigger?"),
	)

	_, chunks := runLoop(t, h, "make the text bigger", history, 2)

	// The modification never executed; the user got a confirmation question
	assert.Zero(t, h.images.modifyCalls)
	assert.Contains(t, chunks[len(chunks)-1].Content, "confirm")
}

func TestRunFreshnessGateForcesLookupFirst(t *testing.T) {
	h := newHarness(
		toolResponse("call_1", "generate_captions", `{"keywords":["game score"]}`),
		toolResponse("call_2", "web_search", `{"query":"today's game score"}`),
		textResponse("Here's what I found about the game. Want captions based on this?"),
	)

	turns, chunks := runLoop(t, h, "meme about today's game score", nil, 2)

	// The premature caption call was rejected and the lookup happened
	assert.Equal(t, 1, h.searcher.calls)

	var captionTurn, searchTurn *Turn
	for i := range turns {
		switch turns[i].ToolName {
		case string(ToolGenerateCaptions):
			captionTurn = &turns[i]
		case string(ToolWebSearch):
			searchTurn = &turns[i]
		}
	}
	require.NotNil(t, captionTurn)
	require.NotNil(t, searchTurn)
	assert.Contains(t, captionTurn.Content, "web_search")
	assert.Contains(t, searchTurn.Content, "example.com")

	// The run paused for the user instead of generating captions
	assert.Contains(t, chunks[len(chunks)-1].Content, "found")
}

func TestRunFreshnessLookupPausesBeforeCaptions(t *testing.T) {
	h := newHarness(
		toolResponse("call_1", "web_search", `{"query":"today's game score"}`),
		toolResponse("call_2", "summarize_request", `{"description":"a meme about today's game"}`),
		textResponse("A meme about today's game"), // summary sub-task
		toolResponse("call_3", "generate_captions", `{"keywords":["game"]}`),
		textResponse("Here's what I found about the game. Want captions based on this?"),
	)

	turns, chunks := runLoop(t, h, "meme about today's game score", nil, 2)

	assert.Equal(t, 1, h.searcher.calls)

	// The caption call in the same run as the lookup was rejected; the
	// sub-task never ran and no variants exist anywhere in the transcript
	var captionTurn *Turn
	for i := range turns {
		if turns[i].ToolName == string(ToolGenerateCaptions) {
			captionTurn = &turns[i]
		}
		assert.NotContains(t, turns[i].Content, `"variants"`)
	}
	require.NotNil(t, captionTurn)
	assert.Contains(t, captionTurn.Content, "not been shown")

	// Only the summary sub-task reached the model beyond the loop rounds
	assert.Len(t, h.chat.requests, 5)

	// The run ended with the digest, waiting for the user's reply
	assert.Contains(t, chunks[len(chunks)-1].Content, "found")
}

func TestRunCorrectionCapSurfacesGenericFailure(t *testing.T) {
	h := newHarness(
		toolResponse("call_1", "order_pizza", `{}`),
		toolResponse("call_2", "order_pizza", `{}`),
	)

	turns, chunks := runLoop(t, h, "make a meme about cats", nil, 1)

	last := chunks[len(chunks)-1]
	assert.Equal(t, msgGenericFailure, last.Content)
	assert.Equal(t, msgGenericFailure, turns[len(turns)-1].Content)

	// The validation errors never reached the user as frames
	for _, chunk := range chunks[:len(chunks)-1] {
		assert.NotContains(t, chunk.Content, "unknown tool")
	}
}

func TestRunRetriesExhaustedSurfacesTryAgain(t *testing.T) {
	h := newHarness(
		toolResponse("call_1", "summarize_request", `{"description":"cats"}`),
		textResponse("A meme about cats"),
	)
	h.conversations.updateErr = MarkTransient(errors.New("connection dropped"))

	turns, chunks := runLoop(t, h, "make a meme about cats", nil, 2)

	assert.Equal(t, 3, h.conversations.updateCalls)
	assert.Equal(t, msgTryAgain, chunks[len(chunks)-1].Content)
	assert.Equal(t, msgTryAgain, turns[len(turns)-1].Content)
	assert.Empty(t, sentinelChunks(chunks))
}

func TestRunStaleReferenceRecoversViaFetch(t *testing.T) {
	h := newHarness(
		toolResponse("call_1", "modify_image", `{"instruction":"bigger text","provider_handle":"resp_gone"}`),
		textResponse("I couldn't find that image anymore. Want me to render a fresh one?"),
	)

	turns, chunks := runLoop(t, h, "yes, do it", nil, 2)

	// The stale handle became a corrective tool result, not a crash
	var modifyTurn *Turn
	for i := range turns {
		if turns[i].ToolName == string(ToolModifyImage) {
			modifyTurn = &turns[i]
		}
	}
	require.NotNil(t, modifyTurn)
	assert.Contains(t, modifyTurn.Content, "stale image reference")

	var payload struct {
		Error  string          `json:"error"`
		Latest json.RawMessage `json:"latest"`
	}
	require.NoError(t, json.Unmarshal([]byte(modifyTurn.Content), &payload))
	assert.NotEmpty(t, payload.Latest)

	assert.Contains(t, chunks[len(chunks)-1].Content, "render a fresh one")
}

func TestRunEmptyModelOutputGetsOneCorrectiveReprompt(t *testing.T) {
	h := newHarness(
		textResponse(""),
		textResponse(""),
	)

	_, chunks := runLoop(t, h, "make a meme about cats", nil, 2)

	require.NotEmpty(t, chunks)
	assert.Equal(t, msgGenericFailure, chunks[len(chunks)-1].Content)
	// One re-prompt happened before giving up
	assert.Len(t, h.chat.requests, 2)
}

func TestRunCancelledContextStopsWithoutPersisting(t *testing.T) {
	h := newHarness(
		toolResponse("call_1", "summarize_request", `{"description":"cats"}`),
		textResponse("A meme about cats"),
		textResponse("All set."),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var chunks []Chunk
	_, err := h.orchestrator(2).Run(ctx, RunInput{
		ConversationID: "conv-1",
		Prompt:         "make a meme about cats",
		History:        nil,
	}, collectEmits(&chunks))

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.conversations.summaries)
}

package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderThenFetchHandleRoundTrip(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	rendered, err := h.executor.Dispatch(ctx, ToolRenderImage, &RenderImageInput{
		TextBoxes:     []string{"top text", "bottom text"},
		VisualContext: "a cat staring at a laptop",
	})
	require.NoError(t, err)

	var renderResult imageToolResult
	require.NoError(t, json.Unmarshal([]byte(rendered), &renderResult))
	assert.NotEmpty(t, renderResult.MemeID)
	assert.Contains(t, renderResult.PublicURL, "https://cdn.test/conv-1/")
	assert.NotEmpty(t, renderResult.ProviderHandle)

	fetched, err := h.executor.Dispatch(ctx, ToolFetchLastImageHandle, nil)
	require.NoError(t, err)

	var fetchResult map[string]string
	require.NoError(t, json.Unmarshal([]byte(fetched), &fetchResult))
	assert.Equal(t, renderResult.ProviderHandle, fetchResult["provider_handle"])
}

func TestFetchHandleWithNoImagesIsDistinguishable(t *testing.T) {
	h := newHarness()

	result, err := h.executor.Dispatch(context.Background(), ToolFetchLastImageHandle, nil)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(result), &payload))
	assert.Nil(t, payload["provider_handle"])
	assert.Contains(t, payload["message"], "no image")
}

func TestModifyImageWithStaleHandle(t *testing.T) {
	h := newHarness()

	_, err := h.executor.Dispatch(context.Background(), ToolModifyImage, &ModifyImageInput{
		Instruction:    "make the text bigger",
		ProviderHandle: "resp_gone",
	})
	require.Error(t, err)
	assert.True(t, IsStaleReference(err), "expected a stale reference error, got %v", err)
}

func TestModifyImageWithoutHandle(t *testing.T) {
	h := newHarness()

	_, err := h.executor.Dispatch(context.Background(), ToolModifyImage, &ModifyImageInput{
		Instruction: "make the text bigger",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStaleReference))
}

func TestModifyImageAdvancesHandle(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	rendered, err := h.executor.Dispatch(ctx, ToolRenderImage, &RenderImageInput{
		TextBoxes:     []string{"one"},
		VisualContext: "scene",
	})
	require.NoError(t, err)
	var renderResult imageToolResult
	require.NoError(t, json.Unmarshal([]byte(rendered), &renderResult))

	modified, err := h.executor.Dispatch(ctx, ToolModifyImage, &ModifyImageInput{
		Instruction:    "add sunglasses",
		ProviderHandle: renderResult.ProviderHandle,
	})
	require.NoError(t, err)
	var modifyResult imageToolResult
	require.NoError(t, json.Unmarshal([]byte(modified), &modifyResult))
	assert.NotEqual(t, renderResult.ProviderHandle, modifyResult.ProviderHandle)

	// The newest handle is now the modified one
	fetched, err := h.executor.Dispatch(ctx, ToolFetchLastImageHandle, nil)
	require.NoError(t, err)
	var fetchResult map[string]string
	require.NoError(t, json.Unmarshal([]byte(fetched), &fetchResult))
	assert.Equal(t, modifyResult.ProviderHandle, fetchResult["provider_handle"])
}

func TestMarkFavoriteWithNoMemes(t *testing.T) {
	h := newHarness()

	result, err := h.executor.Dispatch(context.Background(), ToolMarkFavorite, nil)
	require.NoError(t, err)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(result), &payload))
	assert.Contains(t, payload["message"], "nothing to favorite")
}

func TestMarkFavoriteMarksNewestMeme(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.executor.Dispatch(ctx, ToolRenderImage, &RenderImageInput{
		TextBoxes: []string{"first"}, VisualContext: "scene",
	})
	require.NoError(t, err)
	rendered, err := h.executor.Dispatch(ctx, ToolRenderImage, &RenderImageInput{
		TextBoxes: []string{"second"}, VisualContext: "scene",
	})
	require.NoError(t, err)
	var renderResult imageToolResult
	require.NoError(t, json.Unmarshal([]byte(rendered), &renderResult))

	result, err := h.executor.Dispatch(ctx, ToolMarkFavorite, nil)
	require.NoError(t, err)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(result), &payload))
	assert.Equal(t, renderResult.MemeID, payload["meme_id"])

	latest, err := h.memes.LatestByConversation(ctx, "conv-1")
	require.NoError(t, err)
	assert.True(t, latest.IsFavorite)
}

func TestSummarizeRequestPersistsThroughRetryRunner(t *testing.T) {
	h := newHarness(textResponse("A meme about cats at work"))
	ctx := context.Background()

	result, err := h.executor.Dispatch(ctx, ToolSummarizeRequest, &SummarizeRequestInput{
		Description: "the user wants a cat meme set in an office",
	})
	require.NoError(t, err)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(result), &payload))
	assert.Equal(t, "A meme about cats at work", payload["summary"])
	assert.Equal(t, "A meme about cats at work", h.conversations.summaries["conv-1"])

	update := h.executor.TakeSummaryUpdate()
	require.NotNil(t, update)
	assert.Equal(t, "conv-1", update.ConversationID)
	assert.Equal(t, "A meme about cats at work", update.Summary)
	_, terr := time.Parse(time.RFC3339, update.UpdatedAt)
	assert.NoError(t, terr)

	// The update is consumed exactly once
	assert.Nil(t, h.executor.TakeSummaryUpdate())
}

func TestSummarizeSanitizesColons(t *testing.T) {
	h := newHarness(textResponse("Cats: the office edition"))

	_, err := h.executor.Dispatch(context.Background(), ToolSummarizeRequest, &SummarizeRequestInput{
		Description: "office cats",
	})
	require.NoError(t, err)

	update := h.executor.TakeSummaryUpdate()
	require.NotNil(t, update)
	assert.NotContains(t, update.Summary, ":")
	_, ok := ParseSentinel(SentinelPrefix + update.ConversationID + ":" + update.Summary + ":" + update.UpdatedAt)
	assert.True(t, ok, "sanitized summary must survive sentinel encoding")
}

func TestSummarizeRequestExhaustsRetries(t *testing.T) {
	h := newHarness(textResponse("A meme about cats"))
	h.conversations.updateErr = MarkTransient(errors.New("connection dropped"))

	_, err := h.executor.Dispatch(context.Background(), ToolSummarizeRequest, &SummarizeRequestInput{
		Description: "cats",
	})
	require.Error(t, err)
	assert.True(t, IsRetriesExhausted(err))
	assert.Equal(t, 3, h.conversations.updateCalls)
	assert.Nil(t, h.executor.TakeSummaryUpdate())
}

func TestGenerateCaptionsRequiresExactlyThreeVariants(t *testing.T) {
	two := `{"variants":[{"text_boxes":["a"],"context":"x"},{"text_boxes":["b"],"context":"y"}]}`
	h := newHarness(textResponse(two))

	_, err := h.executor.Dispatch(context.Background(), ToolGenerateCaptions, &GenerateCaptionsInput{
		Keywords: []string{"cats"},
	})
	require.Error(t, err)

	var malformed *MalformedOutputError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Reason, "3")
}

func TestGenerateCaptionsReturnsThreeVariants(t *testing.T) {
	three := `{"variants":[
		{"text_boxes":["me","also me"],"context":"split panel"},
		{"text_boxes":["one does not simply"],"context":"boromir"},
		{"text_boxes":["top","bottom"],"context":"classic"}]}`
	h := newHarness(textResponse(three))

	result, err := h.executor.Dispatch(context.Background(), ToolGenerateCaptions, &GenerateCaptionsInput{
		Keywords:      []string{"cats", "monday"},
		VisualContext: "office",
	})
	require.NoError(t, err)

	var payload struct {
		Variants []CaptionVariant `json:"variants"`
	}
	require.NoError(t, json.Unmarshal([]byte(result), &payload))
	assert.Len(t, payload.Variants, 3)
}

func TestRefineCaptionSplitsSingleLine(t *testing.T) {
	h := newHarness(textResponse(`{"variant":{"text_boxes":["when the meeting could have been an email"],"context":"tired office worker"}}`))

	result, err := h.executor.Dispatch(context.Background(), ToolRefineCaption, &RefineCaptionInput{
		Caption: "when the meeting could have been an email",
	})
	require.NoError(t, err)

	var payload struct {
		Variant CaptionVariant `json:"variant"`
	}
	require.NoError(t, json.Unmarshal([]byte(result), &payload))
	assert.Len(t, payload.Variant.TextBoxes, 2)
}

func TestWebSearchFormatsResults(t *testing.T) {
	h := newHarness()

	result, err := h.executor.Dispatch(context.Background(), ToolWebSearch, &WebSearchInput{
		Query: "today's game score",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, h.searcher.calls)
	assert.Contains(t, result, "https://example.com")
}

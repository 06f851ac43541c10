package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memegen/memegen-backend/internal/providers"
)

func call(name, args string) providers.ToolCall {
	return providers.ToolCall{
		ID:       "call_1",
		Type:     "function",
		Function: providers.FunctionCall{Name: name, Arguments: args},
	}
}

func TestParseInvocationValid(t *testing.T) {
	name, input, err := ParseInvocation(call("generate_captions", `{"keywords":["cats","monday"]}`))
	require.NoError(t, err)
	assert.Equal(t, ToolGenerateCaptions, name)

	typed, ok := input.(*GenerateCaptionsInput)
	require.True(t, ok)
	assert.Equal(t, []string{"cats", "monday"}, typed.Keywords)
}

func TestParseInvocationUnknownTool(t *testing.T) {
	_, _, err := ParseInvocation(call("order_pizza", `{}`))

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Reason, "unknown tool")
}

func TestParseInvocationRejectsBadArguments(t *testing.T) {
	tests := []struct {
		name string
		call providers.ToolCall
	}{
		{"invalid json", call("generate_captions", `{"keywords": [`)},
		{"empty keywords", call("generate_captions", `{"keywords":[]}`)},
		{"blank keyword", call("generate_captions", `{"keywords":[" "]}`)},
		{"empty caption", call("refine_caption", `{"caption":""}`)},
		{"render without context", call("render_image", `{"text_boxes":["top","bottom"]}`)},
		{"modify without instruction", call("modify_image", `{"provider_handle":"resp_1"}`)},
		{"empty search query", call("web_search", `{"query":""}`)},
		{"empty description", call("summarize_request", `{}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseInvocation(tt.call)
			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
		})
	}
}

func TestParseInvocationInputlessTools(t *testing.T) {
	for _, name := range []string{"random_inspiration", "fetch_last_image_handle", "mark_favorite"} {
		parsed, input, err := ParseInvocation(call(name, ""))
		require.NoError(t, err, name)
		assert.Equal(t, ToolName(name), parsed)
		assert.Nil(t, input)
	}
}

func TestCatalogueCoversEveryTool(t *testing.T) {
	catalogue := Catalogue()
	require.Len(t, catalogue, 9)

	names := make(map[string]bool)
	for _, tool := range catalogue {
		assert.Equal(t, "function", tool.Type)
		assert.NotEmpty(t, tool.Function.Description)
		require.NotNil(t, tool.Function.Parameters)
		names[tool.Function.Name] = true
	}

	for _, expected := range []ToolName{
		ToolGenerateCaptions, ToolRefineCaption, ToolRandomInspiration,
		ToolSummarizeRequest, ToolRenderImage, ToolModifyImage,
		ToolFetchLastImageHandle, ToolMarkFavorite, ToolWebSearch,
	} {
		assert.True(t, names[string(expected)], "missing %s", expected)
	}
}

func TestSplitCaption(t *testing.T) {
	boxes := splitCaption("when the code compiles on the first try")
	require.Len(t, boxes, 2)
	assert.Equal(t, "when the code compiles on the first try", boxes[0]+" "+boxes[1])

	assert.Equal(t, []string{"meme"}, splitCaption("meme"))
}

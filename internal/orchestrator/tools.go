package orchestrator

import (
	"encoding/json"
	"strings"

	"github.com/memegen/memegen-backend/internal/providers"
)

// ToolName identifies one of the fixed sub-tasks the manager loop may
// invoke. The set is closed: anything else is a validation error.
type ToolName string

const (
	ToolGenerateCaptions     ToolName = "generate_captions"
	ToolRefineCaption        ToolName = "refine_caption"
	ToolRandomInspiration    ToolName = "random_inspiration"
	ToolSummarizeRequest     ToolName = "summarize_request"
	ToolRenderImage          ToolName = "render_image"
	ToolModifyImage          ToolName = "modify_image"
	ToolFetchLastImageHandle ToolName = "fetch_last_image_handle"
	ToolMarkFavorite         ToolName = "mark_favorite"
	ToolWebSearch            ToolName = "web_search"
)

// CaptionVariant is one candidate caption: the text boxes to draw on the
// image plus a free-form description of the visual scene. Variants are
// ephemeral until the user picks one and an image is rendered.
type CaptionVariant struct {
	TextBoxes []string `json:"text_boxes"`
	Context   string   `json:"context"`
}

type GenerateCaptionsInput struct {
	Keywords      []string `json:"keywords"`
	VisualContext string   `json:"visual_context,omitempty"`
}

func (in *GenerateCaptionsInput) Validate() error {
	if len(in.Keywords) == 0 {
		return &ValidationError{Tool: ToolGenerateCaptions, Reason: "keywords must not be empty"}
	}
	for _, kw := range in.Keywords {
		if strings.TrimSpace(kw) == "" {
			return &ValidationError{Tool: ToolGenerateCaptions, Reason: "keywords must not contain blank entries"}
		}
	}
	return nil
}

type RefineCaptionInput struct {
	Caption       string `json:"caption"`
	VisualContext string `json:"visual_context,omitempty"`
}

func (in *RefineCaptionInput) Validate() error {
	if strings.TrimSpace(in.Caption) == "" {
		return &ValidationError{Tool: ToolRefineCaption, Reason: "caption must not be empty"}
	}
	return nil
}

type SummarizeRequestInput struct {
	Description string `json:"description"`
}

func (in *SummarizeRequestInput) Validate() error {
	if strings.TrimSpace(in.Description) == "" {
		return &ValidationError{Tool: ToolSummarizeRequest, Reason: "description must not be empty"}
	}
	return nil
}

type RenderImageInput struct {
	TextBoxes     []string `json:"text_boxes"`
	VisualContext string   `json:"visual_context"`
}

func (in *RenderImageInput) Validate() error {
	if len(in.TextBoxes) == 0 {
		return &ValidationError{Tool: ToolRenderImage, Reason: "text_boxes must not be empty"}
	}
	if strings.TrimSpace(in.VisualContext) == "" {
		return &ValidationError{Tool: ToolRenderImage, Reason: "visual_context is required"}
	}
	return nil
}

type ModifyImageInput struct {
	Instruction    string `json:"instruction"`
	ProviderHandle string `json:"provider_handle"`
}

func (in *ModifyImageInput) Validate() error {
	if strings.TrimSpace(in.Instruction) == "" {
		return &ValidationError{Tool: ToolModifyImage, Reason: "instruction must not be empty"}
	}
	return nil
}

type WebSearchInput struct {
	Query string `json:"query"`
}

func (in *WebSearchInput) Validate() error {
	if strings.TrimSpace(in.Query) == "" {
		return &ValidationError{Tool: ToolWebSearch, Reason: "query must not be empty"}
	}
	return nil
}

// ParseInvocation validates a raw tool call from the model and returns the
// typed input for dispatch. Unknown tool names and malformed arguments are
// validation errors fed back to the model.
func ParseInvocation(call providers.ToolCall) (ToolName, any, error) {
	name := ToolName(call.Function.Name)
	args := call.Function.Arguments
	if strings.TrimSpace(args) == "" {
		args = "{}"
	}

	decode := func(dst interface{ Validate() error }) (any, error) {
		if err := json.Unmarshal([]byte(args), dst); err != nil {
			return nil, &ValidationError{Tool: name, Reason: "arguments are not valid JSON: " + err.Error()}
		}
		if err := dst.Validate(); err != nil {
			return nil, err
		}
		return dst, nil
	}

	switch name {
	case ToolGenerateCaptions:
		input, err := decode(&GenerateCaptionsInput{})
		return name, input, err
	case ToolRefineCaption:
		input, err := decode(&RefineCaptionInput{})
		return name, input, err
	case ToolRandomInspiration:
		return name, nil, nil
	case ToolSummarizeRequest:
		input, err := decode(&SummarizeRequestInput{})
		return name, input, err
	case ToolRenderImage:
		input, err := decode(&RenderImageInput{})
		return name, input, err
	case ToolModifyImage:
		input, err := decode(&ModifyImageInput{})
		return name, input, err
	case ToolFetchLastImageHandle:
		return name, nil, nil
	case ToolMarkFavorite:
		return name, nil, nil
	case ToolWebSearch:
		input, err := decode(&WebSearchInput{})
		return name, input, err
	default:
		return name, nil, &ValidationError{Tool: name, Reason: "unknown tool"}
	}
}

// Catalogue returns the tool definitions advertised to the model on every
// iteration of the loop.
func Catalogue() []providers.Tool {
	return []providers.Tool{
		tool(ToolGenerateCaptions,
			"Generate exactly 3 caption variants for a meme from topic keywords.",
			object(map[string]any{
				"keywords":       array("string", "Topic keywords extracted from the user request"),
				"visual_context": str("Optional description of the desired visual scene"),
			}, "keywords")),
		tool(ToolRefineCaption,
			"Refine a caption supplied by the user into a polished variant.",
			object(map[string]any{
				"caption":        str("The raw caption text to refine"),
				"visual_context": str("Optional description of the desired visual scene"),
			}, "caption")),
		tool(ToolRandomInspiration,
			"Invent one random meme caption variant when the user has no topic in mind.",
			object(map[string]any{})),
		tool(ToolSummarizeRequest,
			"Store a one-sentence summary of what the user wants. Call once intent is confidently known and before generating captions.",
			object(map[string]any{
				"description": str("Free-text description of the user's request"),
			}, "description")),
		tool(ToolRenderImage,
			"Render the meme image for a confirmed caption. Only call after the user explicitly confirmed.",
			object(map[string]any{
				"text_boxes":     array("string", "The caption text boxes to draw on the image"),
				"visual_context": str("Description of the visual scene"),
			}, "text_boxes", "visual_context")),
		tool(ToolModifyImage,
			"Apply a modification to the most recently rendered image.",
			object(map[string]any{
				"instruction":     str("What to change about the image"),
				"provider_handle": str("Handle of the image to modify, from the last render or fetch_last_image_handle"),
			}, "instruction", "provider_handle")),
		tool(ToolFetchLastImageHandle,
			"Fetch the handle of the most recently rendered image in this conversation.",
			object(map[string]any{})),
		tool(ToolMarkFavorite,
			"Mark the most recent meme in this conversation as a favorite.",
			object(map[string]any{})),
		tool(ToolWebSearch,
			"Look up fresh information on the web. Required before captions when the request is time-sensitive.",
			object(map[string]any{
				"query": str("The search query"),
			}, "query")),
	}
}

func tool(name ToolName, description string, params map[string]any) providers.Tool {
	return providers.Tool{
		Type: "function",
		Function: providers.Function{
			Name:        string(name),
			Description: description,
			Parameters:  params,
		},
	}
}

func object(props map[string]any, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func str(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func array(itemType, description string) map[string]any {
	return map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": itemType},
		"description": description,
	}
}

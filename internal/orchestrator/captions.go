package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Caption sub-tasks. Each is a single bounded model call with JSON output;
// a response that does not match the contract is malformed output, not a
// user-facing failure.

func (e *Executor) generateCaptions(ctx context.Context, in *GenerateCaptionsInput) (string, error) {
	request := fmt.Sprintf("Keywords: %s", strings.Join(in.Keywords, ", "))
	if in.VisualContext != "" {
		request += "\nVisual context: " + in.VisualContext
	}

	raw, err := e.subCall(ctx, e.deps.Prompts.Captions, request, true)
	if err != nil {
		return "", err
	}

	var out struct {
		Variants []CaptionVariant `json:"variants"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return "", &MalformedOutputError{Reason: "caption response is not valid JSON: " + err.Error()}
	}
	if len(out.Variants) != 3 {
		return "", &MalformedOutputError{Reason: fmt.Sprintf("expected exactly 3 caption variants, got %d", len(out.Variants))}
	}
	for i, variant := range out.Variants {
		if len(variant.TextBoxes) == 0 {
			return "", &MalformedOutputError{Reason: fmt.Sprintf("caption variant %d has no text boxes", i+1)}
		}
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func (e *Executor) refineCaption(ctx context.Context, in *RefineCaptionInput) (string, error) {
	request := "Caption: " + in.Caption
	if in.VisualContext != "" {
		request += "\nVisual context: " + in.VisualContext
	}

	variant, err := e.variantSubCall(ctx, e.deps.Prompts.Refine, request)
	if err != nil {
		return "", err
	}

	// Single-line refinements still get a top/bottom split
	if len(variant.TextBoxes) == 1 {
		variant.TextBoxes = splitCaption(variant.TextBoxes[0])
	}

	return marshalVariant(variant)
}

func (e *Executor) randomInspiration(ctx context.Context) (string, error) {
	variant, err := e.variantSubCall(ctx, e.deps.Prompts.Random, "Surprise me.")
	if err != nil {
		return "", err
	}
	return marshalVariant(variant)
}

func (e *Executor) summarizeRequest(ctx context.Context, in *SummarizeRequestInput) (string, error) {
	summary, err := e.subCall(ctx, e.deps.Prompts.Summary, in.Description, false)
	if err != nil {
		return "", err
	}
	summary = sanitizeSummary(summary)
	if summary == "" {
		return "", &MalformedOutputError{Reason: "summary sub-task returned empty text"}
	}

	err = e.deps.Retry.Execute(ctx, "update conversation summary", func(ctx context.Context) error {
		return e.deps.Conversations.UpdateSummary(ctx, e.deps.UserID, e.deps.ConversationID, summary)
	})
	if err != nil {
		return "", err
	}

	e.summaryUpdate = &SummaryUpdate{
		ConversationID: e.deps.ConversationID,
		Summary:        summary,
		UpdatedAt:      time.Now().UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(map[string]string{"summary": summary})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func (e *Executor) variantSubCall(ctx context.Context, system, request string) (*CaptionVariant, error) {
	raw, err := e.subCall(ctx, system, request, true)
	if err != nil {
		return nil, err
	}

	var out struct {
		Variant *CaptionVariant `json:"variant"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, &MalformedOutputError{Reason: "variant response is not valid JSON: " + err.Error()}
	}
	if out.Variant == nil || len(out.Variant.TextBoxes) == 0 {
		return nil, &MalformedOutputError{Reason: "variant response has no text boxes"}
	}
	return out.Variant, nil
}

func marshalVariant(variant *CaptionVariant) (string, error) {
	payload, err := json.Marshal(map[string]*CaptionVariant{"variant": variant})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

// splitCaption breaks a single caption line into a top/bottom pair at the
// nearest word boundary to the middle.
func splitCaption(caption string) []string {
	words := strings.Fields(caption)
	if len(words) < 2 {
		return []string{caption}
	}

	mid := 0
	half := len(caption) / 2
	length := 0
	for i, word := range words {
		length += len(word) + 1
		if length >= half {
			mid = i + 1
			break
		}
	}
	if mid <= 0 || mid >= len(words) {
		mid = len(words) / 2
	}

	return []string{
		strings.Join(words[:mid], " "),
		strings.Join(words[mid:], " "),
	}
}

// sanitizeSummary keeps the stored summary on a single line and free of
// colons so it survives the sentinel encoding unambiguously.
func sanitizeSummary(summary string) string {
	summary = strings.Join(strings.Fields(summary), " ")
	summary = strings.ReplaceAll(summary, ":", " -")
	return strings.TrimSpace(summary)
}

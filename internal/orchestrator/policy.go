package orchestrator

import (
	"fmt"
	"regexp"
)

// The workflow rules of the manager loop are enforced here as hard
// preconditions, not just stated in the prompt. A violation is returned to
// the model as a corrective tool result, the same channel as a validation
// failure.

var (
	freshnessPattern = regexp.MustCompile(`(?i)\b(today|tonight|latest|news|current|currently|trending|breaking|this (week|morning|evening))\b`)

	affirmativePattern = regexp.MustCompile(`(?i)\b(yes|yep|yeah|yup|confirm(ed)?|go ahead|do it|proceed|please do|make it|render it|generate it|apply it)\b`)

	selectionPattern = regexp.MustCompile(`(?i)(#\d+|\b(choose|pick|select|option|variant|number)\b|\b(first|second|third) one\b|\bi('ll| will)? (take|go with)\b)`)
)

// NeedsFreshLookup reports whether a prompt contains time-sensitive
// language that requires a web lookup before caption generation.
func NeedsFreshLookup(prompt string) bool {
	return freshnessPattern.MatchString(prompt)
}

// IsAffirmative reports whether a reply is an unambiguous go-ahead
func IsAffirmative(reply string) bool {
	return affirmativePattern.MatchString(reply)
}

// IsSelection reports whether a reply picks one of the presented caption
// variants, which counts as explicit confirmation for rendering.
func IsSelection(reply string) bool {
	return selectionPattern.MatchString(reply)
}

// runState is the workflow state of a conversation, reconstructed from the
// transcript on every run. Nothing is persisted between runs.
//
// searched means a lookup completed in a PRIOR run, so the user has seen
// the results and replied. searchedThisRun means the lookup happened in
// the current run and its results have not reached the user yet; caption
// tools stay blocked until the run ends and the user responds.
type runState struct {
	searched        bool
	searchedThisRun bool
	summarized      bool
	rendered        bool
}

// deriveState scans the transcript (history plus the turns of the current
// run) for completed tool calls.
func deriveState(turns []Turn) runState {
	var state runState
	for _, turn := range turns {
		if turn.Role != RoleTool || turn.ToolName == "" {
			continue
		}
		switch ToolName(turn.ToolName) {
		case ToolWebSearch:
			state.searched = true
		case ToolSummarizeRequest:
			state.summarized = true
		case ToolRenderImage, ToolModifyImage:
			state.rendered = true
		}
	}
	return state
}

// checkPolicy decides whether a tool call is allowed given the current
// state and the latest user message. The returned error, if any, is a
// PolicyViolationError to be fed back to the model.
func checkPolicy(name ToolName, state runState, userPrompt string) error {
	switch name {
	case ToolGenerateCaptions, ToolRefineCaption, ToolRandomInspiration:
		if NeedsFreshLookup(userPrompt) {
			if state.searchedThisRun {
				return &PolicyViolationError{
					Tool:   name,
					Reason: "the lookup results have not been shown to the user yet; reply with a digest of what you found and wait for the user before generating captions",
				}
			}
			if !state.searched {
				return &PolicyViolationError{
					Tool:   name,
					Reason: "the request is time-sensitive; call web_search first and show the user what you found before generating captions",
				}
			}
		}
		if name == ToolGenerateCaptions && !state.summarized {
			return &PolicyViolationError{
				Tool:   name,
				Reason: "call summarize_request first to record what the user wants",
			}
		}
	case ToolRenderImage:
		if !IsAffirmative(userPrompt) && !IsSelection(userPrompt) {
			return &PolicyViolationError{
				Tool:   name,
				Reason: "the user has not explicitly confirmed; present the caption and ask for confirmation instead",
			}
		}
	case ToolModifyImage:
		if !IsAffirmative(userPrompt) {
			return &PolicyViolationError{
				Tool:   name,
				Reason: fmt.Sprintf("the reply %q is not an explicit confirmation; describe the change and ask the user to confirm before modifying", userPrompt),
			}
		}
	}
	return nil
}

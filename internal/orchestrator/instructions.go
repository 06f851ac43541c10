package orchestrator

import (
	_ "embed"
)

// Workflow prompts are versioned template data, not inline strings, so
// policy wording can change without touching loop code.

//go:embed instructions/manager.md
var managerInstructions string

//go:embed instructions/captions.md
var captionsInstructions string

//go:embed instructions/refine.md
var refineInstructions string

//go:embed instructions/random.md
var randomInstructions string

//go:embed instructions/summary.md
var summaryInstructions string

//go:embed instructions/history.md
var historyInstructions string

// Instructions bundles the prompt templates used by the loop and its
// caption sub-tasks.
type Instructions struct {
	Manager  string
	Captions string
	Refine   string
	Random   string
	Summary  string
	History  string
}

// DefaultInstructions returns the embedded prompt templates
func DefaultInstructions() *Instructions {
	return &Instructions{
		Manager:  managerInstructions,
		Captions: captionsInstructions,
		Refine:   refineInstructions,
		Random:   randomInstructions,
		Summary:  summaryInstructions,
		History:  historyInstructions,
	}
}

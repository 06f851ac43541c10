package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/google/uuid"
	"github.com/memegen/memegen-backend/internal/providers"
	"github.com/memegen/memegen-backend/internal/repository"
	"github.com/memegen/memegen-backend/internal/search"
	"github.com/memegen/memegen-backend/internal/storage"
)

// SummaryUpdate records that a run persisted a new conversation summary.
// The loop turns it into the CONVERSATION_UPDATE sentinel.
type SummaryUpdate struct {
	ConversationID string
	Summary        string
	UpdatedAt      string
}

// ExecutorDeps are the collaborators one run needs to execute tools.
// A fresh set is built per run; nothing here is shared mutable state.
type ExecutorDeps struct {
	ConversationID string
	UserID         uuid.UUID
	Chat           providers.ChatProvider
	Model          string
	Images         providers.ImageProvider
	Storage        storage.ObjectStorage
	Searcher       search.Searcher
	Conversations  repository.ConversationRepository
	Memes          repository.MemeRepository
	Retry          *Runner
	Prompts        *Instructions
}

// Executor runs validated tool invocations against the run's collaborators.
// Every persistence side effect goes through the retry runner.
type Executor struct {
	deps          ExecutorDeps
	logger        *logrus.Entry
	summaryUpdate *SummaryUpdate
}

// NewExecutor creates a tool executor for one run
func NewExecutor(deps ExecutorDeps) *Executor {
	return &Executor{
		deps: deps,
		logger: logrus.WithFields(logrus.Fields{
			"component":    "executor",
			"conversation": deps.ConversationID,
		}),
	}
}

// Dispatch executes one validated tool invocation and returns the result
// payload to fold back into the model context.
func (e *Executor) Dispatch(ctx context.Context, name ToolName, input any) (string, error) {
	switch name {
	case ToolGenerateCaptions:
		return e.generateCaptions(ctx, input.(*GenerateCaptionsInput))
	case ToolRefineCaption:
		return e.refineCaption(ctx, input.(*RefineCaptionInput))
	case ToolRandomInspiration:
		return e.randomInspiration(ctx)
	case ToolSummarizeRequest:
		return e.summarizeRequest(ctx, input.(*SummarizeRequestInput))
	case ToolRenderImage:
		return e.renderImage(ctx, input.(*RenderImageInput))
	case ToolModifyImage:
		return e.modifyImage(ctx, input.(*ModifyImageInput))
	case ToolFetchLastImageHandle:
		return e.fetchLastImageHandle(ctx)
	case ToolMarkFavorite:
		return e.markFavorite(ctx)
	case ToolWebSearch:
		return e.webSearch(ctx, input.(*WebSearchInput))
	default:
		return "", &ValidationError{Tool: name, Reason: "unknown tool"}
	}
}

// TakeSummaryUpdate returns the pending summary update, if any, and clears
// it. Exactly one sentinel is emitted per successful summarize call.
func (e *Executor) TakeSummaryUpdate() *SummaryUpdate {
	update := e.summaryUpdate
	e.summaryUpdate = nil
	return update
}

// Summarize condenses transcript turns for the history manager. A failure
// here is non-fatal; the caller falls back to the untrimmed transcript.
func (e *Executor) Summarize(ctx context.Context, turns []Turn) (string, error) {
	var b strings.Builder
	for _, turn := range turns {
		if turn.Role == RoleTool || turn.Content == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
	}

	return e.subCall(ctx, e.deps.Prompts.History, b.String(), false)
}

// subCall makes a single completion against the run's model for a caption
// or summary sub-task.
func (e *Executor) subCall(ctx context.Context, system, user string, jsonOutput bool) (string, error) {
	req := providers.CompletionRequest{
		Model: e.deps.Model,
		Messages: []providers.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	if jsonOutput {
		req.ResponseFormat = &providers.ResponseFormat{Type: "json_object"}
	}

	resp, err := e.deps.Chat.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &MalformedOutputError{Reason: "completion returned no choices"}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (e *Executor) webSearch(ctx context.Context, in *WebSearchInput) (string, error) {
	results, err := e.deps.Searcher.Search(ctx, in.Query)
	if err != nil {
		return "", fmt.Errorf("web search failed: %w", err)
	}

	payload, err := json.Marshal(map[string]any{"results": results})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

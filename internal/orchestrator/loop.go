package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/memegen/memegen-backend/internal/providers"
)

// User-facing fallback messages. Internal error details never cross the
// HTTP boundary; failures arrive at the client as ordinary message frames.
const (
	msgGenericFailure = "Sorry, something went wrong on my end. Please try again."
	msgTryAgain       = "Sorry, I'm having trouble saving your meme right now. Please try again in a moment."
	msgContentPolicy  = "I can't generate that one. Could we try a different idea?"
)

// RunInput is everything one orchestrator run starts from
type RunInput struct {
	ConversationID string
	Prompt         string
	History        []Turn
}

// Orchestrator drives the model/tool loop for one conversational turn.
// State is reconstructed from the transcript each run; nothing persists
// between HTTP calls.
type Orchestrator struct {
	chat      providers.ChatProvider
	model     string
	executor  *Executor
	history   *HistoryManager
	prompts   *Instructions
	retryCap  int
	maxRounds int
	logger    *logrus.Entry
	now       func() time.Time
}

// New creates an orchestrator for one run
func New(chat providers.ChatProvider, model string, executor *Executor, history *HistoryManager, prompts *Instructions, retryCap, maxRounds int) *Orchestrator {
	if maxRounds <= 0 {
		maxRounds = 12
	}
	return &Orchestrator{
		chat:      chat,
		model:     model,
		executor:  executor,
		history:   history,
		prompts:   prompts,
		retryCap:  retryCap,
		maxRounds: maxRounds,
		logger:    logrus.WithField("component", "orchestrator"),
		now:       time.Now,
	}
}

// Run executes the loop for one user message: bound the history, then
// alternate model calls and sequential tool dispatches until the model
// produces user-facing output. The returned turns are the transcript
// segment of this run; the caller persists them after the stream
// completes. Run returns an error only for cancellation or a broken
// client connection; every other failure ends the run with a plain
// user-facing message.
func (o *Orchestrator) Run(ctx context.Context, in RunInput, emit EmitFunc) ([]Turn, error) {
	bounded := o.history.Assemble(ctx, in.History)
	state := deriveState(in.History)

	messages := make([]providers.Message, 0, len(bounded)+2)
	messages = append(messages, providers.Message{Role: "system", Content: o.prompts.Manager})
	messages = append(messages, toProviderMessages(bounded)...)
	messages = append(messages, providers.Message{Role: "user", Content: in.Prompt})

	newTurns := []Turn{{Role: RoleUser, Content: in.Prompt, Timestamp: o.now().UTC()}}

	corrections := make(map[string]int)
	malformedRetried := false

	for round := 0; round < o.maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return newTurns, err
		}

		resp, err := o.chat.Complete(ctx, providers.CompletionRequest{
			Model:    o.model,
			Messages: messages,
			Tools:    Catalogue(),
		})
		if err != nil {
			if ctx.Err() != nil {
				return newTurns, ctx.Err()
			}
			o.logger.WithError(err).Error("Model call failed")
			return o.finish(emit, newTurns, msgGenericFailure)
		}
		if len(resp.Choices) == 0 {
			return o.finish(emit, newTurns, msgGenericFailure)
		}

		choice := resp.Choices[0]
		content := strings.TrimSpace(choice.Message.Content)
		calls := choice.Message.ToolCalls

		if len(calls) == 0 {
			if content == "" {
				// Malformed output gets one corrective re-prompt
				if malformedRetried {
					return o.finish(emit, newTurns, msgGenericFailure)
				}
				malformedRetried = true
				messages = append(messages, providers.Message{
					Role:    "system",
					Content: "Your previous reply was empty. Reply with text for the user or call one of the tools.",
				})
				continue
			}
			return o.finish(emit, newTurns, content)
		}

		if content != "" {
			if err := emit(Chunk{Role: RoleModel, Content: content}); err != nil {
				return newTurns, err
			}
		}
		newTurns = append(newTurns, Turn{
			Role:      RoleModel,
			Content:   content,
			ToolCalls: calls,
			Timestamp: o.now().UTC(),
		})
		messages = append(messages, providers.Message{Role: "assistant", Content: content, ToolCalls: calls})

		// Tools run sequentially, never concurrently, to keep transcript
		// ordering deterministic.
		for _, call := range calls {
			result, terminal, err := o.invokeTool(ctx, call, &state, in.Prompt, corrections)
			if err != nil {
				return newTurns, err
			}

			newTurns = append(newTurns, Turn{
				Role:       RoleTool,
				Content:    result,
				ToolCallID: call.ID,
				ToolName:   call.Function.Name,
				Timestamp:  o.now().UTC(),
			})
			messages = append(messages, providers.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: call.ID,
				Name:       call.Function.Name,
			})

			if terminal != "" {
				return o.finish(emit, newTurns, terminal)
			}

			if update := o.executor.TakeSummaryUpdate(); update != nil {
				sentinel := fmt.Sprintf("%s%s:%s:%s", SentinelPrefix, update.ConversationID, update.Summary, update.UpdatedAt)
				if err := emit(Chunk{Role: RoleModel, Content: sentinel}); err != nil {
					return newTurns, err
				}
			}
		}
	}

	o.logger.Warn("Tool round cap reached without user-facing output")
	return o.finish(emit, newTurns, msgGenericFailure)
}

// invokeTool validates, policy-checks and dispatches one tool call. It
// returns the result payload to fold back to the model, plus a non-empty
// terminal message when the run must end with user-facing text. The error
// return is reserved for cancellation and broken streams.
func (o *Orchestrator) invokeTool(ctx context.Context, call providers.ToolCall, state *runState, prompt string, corrections map[string]int) (string, string, error) {
	name, input, err := ParseInvocation(call)
	if err == nil {
		err = checkPolicy(name, *state, prompt)
	}

	var result string
	if err == nil {
		result, err = o.executor.Dispatch(ctx, name, input)
	}

	if err == nil {
		switch name {
		case ToolWebSearch:
			state.searchedThisRun = true
		case ToolSummarizeRequest:
			state.summarized = true
		case ToolRenderImage, ToolModifyImage:
			state.rendered = true
		}
		return result, "", nil
	}

	if ctx.Err() != nil {
		return "", "", ctx.Err()
	}

	switch {
	case IsRecoverable(err):
		corrections[string(name)]++
		if corrections[string(name)] > o.retryCap {
			o.logger.WithError(err).WithField("tool", name).Warn("Correction cap exhausted")
			return toolErrorPayload(err), msgGenericFailure, nil
		}
		return toolErrorPayload(err), "", nil

	case IsStaleReference(err):
		// Recover by looking up the newest handle and handing both facts
		// back to the model so it can re-ask the user.
		latest, ferr := o.executor.fetchLastImageHandle(ctx)
		if ferr != nil {
			latest = `{"provider_handle":null}`
		}
		return fmt.Sprintf(`{"error":"stale image reference","latest":%s}`, latest), "", nil

	case IsContentPolicy(err):
		o.logger.WithField("tool", name).Info("Provider refused generation")
		return toolErrorPayload(err), msgContentPolicy, nil

	case IsRetriesExhausted(err):
		o.logger.WithError(err).WithField("tool", name).Error("Retries exhausted")
		return toolErrorPayload(err), msgTryAgain, nil

	default:
		o.logger.WithError(err).WithField("tool", name).Error("Tool execution failed")
		return toolErrorPayload(err), msgGenericFailure, nil
	}
}

// finish emits the closing user-facing message and records it as the
// run's final model turn.
func (o *Orchestrator) finish(emit EmitFunc, turns []Turn, message string) ([]Turn, error) {
	if err := emit(Chunk{Role: RoleModel, Content: message}); err != nil {
		return turns, err
	}
	turns = append(turns, Turn{Role: RoleModel, Content: message, Timestamp: o.now().UTC()})
	return turns, nil
}

// toolErrorPayload encodes an error as a tool result for the model.
// Internal details stay out of user-facing frames; this payload only ever
// travels back into the model context.
func toolErrorPayload(err error) string {
	payload, merr := json.Marshal(map[string]string{"error": err.Error()})
	if merr != nil {
		return `{"error":"tool execution failed"}`
	}
	return string(payload)
}

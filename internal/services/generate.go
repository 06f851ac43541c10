package services

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/memegen/memegen-backend/internal/config"
	"github.com/memegen/memegen-backend/internal/orchestrator"
	"github.com/memegen/memegen-backend/internal/providers"
	"github.com/memegen/memegen-backend/internal/repository"
	"github.com/memegen/memegen-backend/internal/search"
	"github.com/memegen/memegen-backend/internal/storage"
)

// ErrEmptyPrompt rejects requests with nothing to say
var ErrEmptyPrompt = errors.New("prompt must not be empty")

// GenerateRequest is the body of a meme generation call
type GenerateRequest struct {
	Prompt         string `json:"prompt"`
	ConversationID string `json:"conversation_id,omitempty"`
	ModelSelector  string `json:"model_selector,omitempty"`
}

// GenerateDeps are the long-lived collaborators shared by all runs.
// They must be safe for concurrent use; everything run-scoped is built
// fresh inside Stream.
type GenerateDeps struct {
	Config        *config.Config
	Registry      *providers.Registry
	Storage       storage.ObjectStorage
	Searcher      search.Searcher
	Conversations repository.ConversationRepository
	Transcripts   repository.TranscriptRepository
	Memes         repository.MemeRepository
}

// GenerateService executes one orchestrator run per streaming request
type GenerateService struct {
	deps   GenerateDeps
	logger *logrus.Entry
}

// NewGenerateService creates the generate service
func NewGenerateService(deps GenerateDeps) *GenerateService {
	return &GenerateService{
		deps:   deps,
		logger: logrus.WithField("component", "generate"),
	}
}

// Stream runs the full manager loop for one user message and writes
// newline-delimited JSON frames to w. The completed transcript segment is
// persisted only after the stream finishes; a cancelled run persists
// nothing.
func (s *GenerateService) Stream(ctx context.Context, userID uuid.UUID, req GenerateRequest, w io.Writer, flush func() error) error {
	if req.Prompt == "" {
		return ErrEmptyPrompt
	}

	conversation, history, err := s.loadConversation(ctx, userID, req.ConversationID)
	if err != nil {
		return err
	}

	selector := req.ModelSelector
	if selector == "" {
		selector = s.deps.Config.DefaultSelector
	}
	chat, model, err := s.deps.Registry.Resolve(selector)
	if err != nil {
		return err
	}
	images, err := s.deps.Registry.ResolveImage(selector)
	if err != nil {
		return err
	}

	orchCfg := s.deps.Config.Orchestrator
	retry := orchestrator.NewRunner(orchCfg.RetryAttempts, orchCfg.RetryBackoff)
	prompts := orchestrator.DefaultInstructions()

	executor := orchestrator.NewExecutor(orchestrator.ExecutorDeps{
		ConversationID: conversation.ID,
		UserID:         userID,
		Chat:           chat,
		Model:          model,
		Images:         images,
		Storage:        s.deps.Storage,
		Searcher:       s.deps.Searcher,
		Conversations:  s.deps.Conversations,
		Memes:          s.deps.Memes,
		Retry:          retry,
		Prompts:        prompts,
	})

	historyManager := orchestrator.NewHistoryManager(
		orchCfg.HistoryThreshold, orchCfg.TrimBlock, orchCfg.KeepRecent, executor)
	loop := orchestrator.New(chat, model, executor, historyManager, prompts,
		orchCfg.ToolRetryCap, orchCfg.MaxToolRounds)

	transport := orchestrator.NewTransport(w, flush)

	// The client sees its own prompt echoed back as the first frame
	if err := transport.Emit(orchestrator.Chunk{Role: orchestrator.RoleUser, Content: req.Prompt}); err != nil {
		return nil
	}

	turns, err := loop.Run(ctx, orchestrator.RunInput{
		ConversationID: conversation.ID,
		Prompt:         req.Prompt,
		History:        history,
	}, transport.Emit)
	if err != nil {
		// Cancellation or a broken client; stop quietly, persist nothing
		s.logger.WithError(err).WithField("conversation", conversation.ID).Debug("Run aborted")
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}

	payload, err := orchestrator.EncodeSegment(turns)
	if err != nil {
		return err
	}
	err = retry.Execute(ctx, "append transcript segment", func(ctx context.Context) error {
		return s.deps.Transcripts.Append(ctx, &repository.TranscriptSegment{
			ID:             uuid.New().String(),
			ConversationID: conversation.ID,
			Payload:        payload,
		})
	})
	if err != nil {
		s.logger.WithError(err).WithField("conversation", conversation.ID).Error("Failed to persist transcript segment")
		return err
	}

	return nil
}

// loadConversation resolves or creates the conversation and replays its
// stored transcript segments into the run's history.
func (s *GenerateService) loadConversation(ctx context.Context, userID uuid.UUID, conversationID string) (*repository.Conversation, []orchestrator.Turn, error) {
	if conversationID == "" {
		conv := &repository.Conversation{
			ID:     uuid.New().String(),
			UserID: userID,
		}
		if err := s.deps.Conversations.Create(ctx, conv); err != nil {
			return nil, nil, err
		}
		return conv, nil, nil
	}

	conv, err := s.deps.Conversations.Get(ctx, userID, conversationID)
	if err != nil {
		return nil, nil, err
	}

	segments, err := s.deps.Transcripts.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}

	var history []orchestrator.Turn
	for _, segment := range segments {
		turns, err := orchestrator.DecodeSegment(segment.Payload)
		if err != nil {
			return nil, nil, err
		}
		history = append(history, turns...)
	}

	return conv, history, nil
}

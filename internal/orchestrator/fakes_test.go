package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/memegen/memegen-backend/internal/providers"
	"github.com/memegen/memegen-backend/internal/repository"
	"github.com/memegen/memegen-backend/internal/search"
)

// fakeChat pops scripted completions in order. Both loop iterations and
// caption/summary sub-calls consume from the same script.
type fakeChat struct {
	responses []*providers.CompletionResponse
	requests  []providers.CompletionRequest
}

func (f *fakeChat) Name() string { return "fake" }

func (f *fakeChat) Complete(_ context.Context, req providers.CompletionRequest) (*providers.CompletionResponse, error) {
	f.requests = append(f.requests, req)
	if len(f.responses) == 0 {
		return nil, errors.New("script exhausted")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeChat) StreamComplete(context.Context, providers.CompletionRequest) (<-chan providers.StreamChunk, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeChat) GetModels(context.Context) ([]providers.Model, error) {
	return nil, nil
}

func (f *fakeChat) ValidateConfig() error { return nil }

func textResponse(content string) *providers.CompletionResponse {
	return &providers.CompletionResponse{
		Choices: []providers.Choice{{Message: providers.Message{Role: "assistant", Content: content}, FinishReason: "stop"}},
	}
}

func toolResponse(callID, name, args string) *providers.CompletionResponse {
	return &providers.CompletionResponse{
		Choices: []providers.Choice{{
			Message: providers.Message{
				Role: "assistant",
				ToolCalls: []providers.ToolCall{{
					ID:       callID,
					Type:     "function",
					Function: providers.FunctionCall{Name: name, Arguments: args},
				}},
			},
			FinishReason: "tool_calls",
		}},
	}
}

// fakeImages hands out sequential handles and only modifies handles it
// has previously issued.
type fakeImages struct {
	counter       int
	generateCalls int
	modifyCalls   int
	issued        map[string]bool
}

func newFakeImages() *fakeImages {
	return &fakeImages{issued: make(map[string]bool)}
}

func (f *fakeImages) Name() string { return "fake-images" }

func (f *fakeImages) Generate(context.Context, providers.ImageRequest) (*providers.ImageResult, error) {
	f.generateCalls++
	f.counter++
	handle := fmt.Sprintf("resp_%d", f.counter)
	f.issued[handle] = true
	return &providers.ImageResult{Data: []byte("png-bytes"), MimeType: "image/png", Handle: handle}, nil
}

func (f *fakeImages) Modify(_ context.Context, handle string, _ string) (*providers.ImageResult, error) {
	f.modifyCalls++
	if !f.issued[handle] {
		return nil, fmt.Errorf("%w: %s", providers.ErrHandleNotFound, handle)
	}
	f.counter++
	next := fmt.Sprintf("resp_%d", f.counter)
	f.issued[next] = true
	return &providers.ImageResult{Data: []byte("png-bytes-2"), MimeType: "image/png", Handle: next}, nil
}

type fakeStorage struct {
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	f.objects[key] = data
	return "https://cdn.test/" + key, nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

type fakeSearcher struct {
	calls   int
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]search.Result, error) {
	f.calls++
	f.queries = append(f.queries, query)
	return []search.Result{{Title: "Result", Link: "https://example.com", Snippet: "snippet"}}, nil
}

// memConversations is an in-memory ConversationRepository
type memConversations struct {
	mu          sync.Mutex
	summaries   map[string]string
	updateErr   error
	updateCalls int
}

func newMemConversations() *memConversations {
	return &memConversations{summaries: make(map[string]string)}
}

func (m *memConversations) Create(context.Context, *repository.Conversation) error { return nil }

func (m *memConversations) Get(_ context.Context, _ uuid.UUID, id string) (*repository.Conversation, error) {
	return &repository.Conversation{ID: id}, nil
}

func (m *memConversations) List(context.Context, uuid.UUID) ([]*repository.Conversation, error) {
	return nil, nil
}

func (m *memConversations) UpdateSummary(_ context.Context, _ uuid.UUID, id string, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	m.summaries[id] = summary
	return nil
}

func (m *memConversations) Delete(context.Context, uuid.UUID, string) error { return nil }

// memMemes is an in-memory MemeRepository ordered by creation time
type memMemes struct {
	mu    sync.Mutex
	rows  []*repository.Meme
	clock int
}

func newMemMemes() *memMemes { return &memMemes{} }

func (m *memMemes) Create(_ context.Context, meme *repository.Meme) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock++
	stored := *meme
	stored.CreatedAt = time.Unix(int64(m.clock), 0)
	m.rows = append(m.rows, &stored)
	return nil
}

func (m *memMemes) byConversation(conversationID string) []*repository.Meme {
	var out []*repository.Meme
	for _, row := range m.rows {
		if row.ConversationID == conversationID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memMemes) LatestByConversation(_ context.Context, conversationID string) (*repository.Meme, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.byConversation(conversationID)
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	return rows[0], nil
}

func (m *memMemes) ListByConversation(_ context.Context, conversationID string) ([]*repository.Meme, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byConversation(conversationID), nil
}

func (m *memMemes) ListByUser(context.Context, uuid.UUID) ([]*repository.Meme, error) {
	return nil, nil
}

func (m *memMemes) MarkLatestFavorite(_ context.Context, conversationID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.byConversation(conversationID)
	if len(rows) == 0 {
		return "", repository.ErrNotFound
	}
	rows[0].IsFavorite = true
	return rows[0].ID, nil
}

func (m *memMemes) SetFavorite(context.Context, uuid.UUID, string, bool) error { return nil }

func (m *memMemes) Delete(context.Context, uuid.UUID, string) error { return nil }

// harness bundles a fully wired executor over in-memory collaborators
type harness struct {
	chat          *fakeChat
	images        *fakeImages
	storage       *fakeStorage
	searcher      *fakeSearcher
	conversations *memConversations
	memes         *memMemes
	executor      *Executor
}

func newHarness(responses ...*providers.CompletionResponse) *harness {
	h := &harness{
		chat:          &fakeChat{responses: responses},
		images:        newFakeImages(),
		storage:       newFakeStorage(),
		searcher:      &fakeSearcher{},
		conversations: newMemConversations(),
		memes:         newMemMemes(),
	}
	h.executor = NewExecutor(ExecutorDeps{
		ConversationID: "conv-1",
		UserID:         uuid.New(),
		Chat:           h.chat,
		Model:          "test-model",
		Images:         h.images,
		Storage:        h.storage,
		Searcher:       h.searcher,
		Conversations:  h.conversations,
		Memes:          h.memes,
		Retry:          NewRunner(3, time.Millisecond),
		Prompts:        DefaultInstructions(),
	})
	return h
}

func (h *harness) orchestrator(retryCap int) *Orchestrator {
	historyManager := NewHistoryManager(15, 10, 5, h.executor)
	return New(h.chat, "test-model", h.executor, historyManager, DefaultInstructions(), retryCap, 12)
}

// collectEmits returns an EmitFunc appending to the given slice
func collectEmits(chunks *[]Chunk) EmitFunc {
	return func(chunk Chunk) error {
		*chunks = append(*chunks, chunk)
		return nil
	}
}

package orchestrator

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Summarizer condenses a block of transcript turns into a short paragraph.
// The production implementation is a model call; tests stub it.
type Summarizer interface {
	Summarize(ctx context.Context, turns []Turn) (string, error)
}

// HistoryManager bounds the transcript supplied to the model. When a
// conversation grows past threshold turns, the oldest trimBlock turns are
// replaced by a single summary turn. The most recent keepRecent turns are
// never summarized away.
type HistoryManager struct {
	threshold  int
	trimBlock  int
	keepRecent int
	summarizer Summarizer
	logger     *logrus.Entry
	now        func() time.Time
}

// NewHistoryManager creates a history manager with the given bounds
func NewHistoryManager(threshold, trimBlock, keepRecent int, summarizer Summarizer) *HistoryManager {
	return &HistoryManager{
		threshold:  threshold,
		trimBlock:  trimBlock,
		keepRecent: keepRecent,
		summarizer: summarizer,
		logger:     logrus.WithField("component", "history"),
		now:        time.Now,
	}
}

// Assemble returns the bounded context for the next run. Trimming happens
// at most once per call. A summarization failure degrades to the untrimmed
// transcript rather than failing the run.
func (h *HistoryManager) Assemble(ctx context.Context, turns []Turn) []Turn {
	if len(turns) <= h.threshold {
		return turns
	}

	block := h.trimBlock
	if max := len(turns) - h.keepRecent; block > max {
		block = max
	}
	if block <= 0 {
		return turns
	}

	summary, err := h.summarizer.Summarize(ctx, turns[:block])
	if err != nil {
		h.logger.WithError(err).Warn("History summarization failed, using untrimmed transcript")
		return turns
	}

	bounded := make([]Turn, 0, len(turns)-block+1)
	bounded = append(bounded, Turn{
		Role:      RoleSummary,
		Content:   summary,
		Timestamp: h.now().UTC(),
	})
	bounded = append(bounded, turns[block:]...)
	return bounded
}

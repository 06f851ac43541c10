package openai

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/memegen/memegen-backend/internal/providers"
)

func TestClassifyAPIError(t *testing.T) {
	c := &ImageClient{}

	tests := []struct {
		name   string
		status int
		apiErr *apiError
		target error
	}{
		{
			name:   "moderation code",
			status: http.StatusBadRequest,
			apiErr: &apiError{Code: "moderation_blocked", Message: "blocked"},
			target: providers.ErrContentPolicy,
		},
		{
			name:   "safety system message",
			status: http.StatusBadRequest,
			apiErr: &apiError{Message: "Your request was rejected by our safety system."},
			target: providers.ErrContentPolicy,
		},
		{
			name:   "not found status",
			status: http.StatusNotFound,
			apiErr: &apiError{Message: "no such response"},
			target: providers.ErrHandleNotFound,
		},
		{
			name:   "capitalized previous response on non-404",
			status: http.StatusBadRequest,
			apiErr: &apiError{Message: "Previous response with id 'resp_abc' not found."},
			target: providers.ErrHandleNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.classifyAPIError(tt.status, tt.apiErr)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	// Anything else stays a generic error
	err := c.classifyAPIError(http.StatusInternalServerError, &apiError{Code: "server_error", Message: "boom"})
	assert.NotErrorIs(t, err, providers.ErrContentPolicy)
	assert.NotErrorIs(t, err, providers.ErrHandleNotFound)
}

package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/memegen/memegen-backend/internal/config"
	"github.com/memegen/memegen-backend/internal/providers"
)

const responsesAPIURL = "https://api.openai.com/v1/responses"

// ImageClient implements providers.ImageProvider against the OpenAI
// Responses API. The response ID doubles as the provider handle: passing it
// back as previous_response_id lets the API modify the prior image instead
// of generating from scratch.
type ImageClient struct {
	id     string
	config config.ProviderConfig
	client *http.Client
}

// responsesRequest is the subset of the Responses API request we use
type responsesRequest struct {
	Model              string          `json:"model"`
	Input              string          `json:"input"`
	Tools              []responsesTool `json:"tools"`
	PreviousResponseID string          `json:"previous_response_id,omitempty"`
}

type responsesTool struct {
	Type string `json:"type"`
}

// responsesResponse is the subset of the Responses API response we use
type responsesResponse struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Output []outputItem `json:"output"`
	Error  *apiError    `json:"error,omitempty"`
}

type outputItem struct {
	Type   string `json:"type"`
	Result string `json:"result,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error *apiError `json:"error"`
}

// NewImageClient creates a new OpenAI image client
func NewImageClient(id string, cfg config.ProviderConfig) (*ImageClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if cfg.ImageModel == "" {
		return nil, errors.New("OpenAI image model is required")
	}

	return &ImageClient{
		id:     id,
		config: cfg,
		client: &http.Client{},
	}, nil
}

// Name returns the provider name
func (c *ImageClient) Name() string {
	return c.config.Name
}

// Generate renders a new image from a prompt
func (c *ImageClient) Generate(ctx context.Context, req providers.ImageRequest) (*providers.ImageResult, error) {
	return c.invoke(ctx, responsesRequest{
		Model: c.config.ImageModel,
		Input: req.Prompt,
		Tools: []responsesTool{{Type: "image_generation"}},
	})
}

// Modify applies an instruction to a previously generated image
func (c *ImageClient) Modify(ctx context.Context, handle string, instruction string) (*providers.ImageResult, error) {
	if handle == "" {
		return nil, providers.ErrHandleNotFound
	}

	return c.invoke(ctx, responsesRequest{
		Model:              c.config.ImageModel,
		Input:              instruction,
		Tools:              []responsesTool{{Type: "image_generation"}},
		PreviousResponseID: handle,
	})
}

func (c *ImageClient) invoke(ctx context.Context, apiReq responsesRequest) (*providers.ImageResult, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, responsesAPIURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.classifyError(resp.StatusCode, respBody)
	}

	var apiResp responsesResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if apiResp.Error != nil {
		return nil, c.classifyAPIError(resp.StatusCode, apiResp.Error)
	}

	for _, item := range apiResp.Output {
		if item.Type != "image_generation_call" || item.Result == "" {
			continue
		}

		// Strip any data-url header before decoding
		b64 := item.Result
		if strings.HasPrefix(b64, "data:") {
			if idx := strings.Index(b64, ","); idx >= 0 {
				b64 = b64[idx+1:]
			}
		}

		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image payload: %w", err)
		}

		return &providers.ImageResult{
			Data:     data,
			MimeType: "image/png",
			Handle:   apiResp.ID,
		}, nil
	}

	return nil, fmt.Errorf("no image payload in response %s", apiResp.ID)
}

func (c *ImageClient) classifyError(status int, body []byte) error {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		return c.classifyAPIError(status, envelope.Error)
	}
	return fmt.Errorf("openai responses API error (status %d): %s", status, string(body))
}

func (c *ImageClient) classifyAPIError(status int, apiErr *apiError) error {
	// Error text comparisons are case-insensitive; the API capitalizes
	// sentence starts ("Previous response with id ... not found").
	message := strings.ToLower(apiErr.Message)
	if apiErr.Code == "moderation_blocked" || strings.Contains(message, "safety system") {
		return fmt.Errorf("%w: %s", providers.ErrContentPolicy, apiErr.Message)
	}
	if status == http.StatusNotFound || strings.Contains(message, "previous response") {
		return fmt.Errorf("%w: %s", providers.ErrHandleNotFound, apiErr.Message)
	}
	return fmt.Errorf("openai responses API error (status %d, code %s): %s", status, apiErr.Code, apiErr.Message)
}

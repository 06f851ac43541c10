package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

const searchEndpoint = "https://google.serper.dev/search"

// Result is a single organic search hit
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Client queries the Serper search API
type Client struct {
	httpClient *resty.Client
	apiKey     string
}

// Searcher is the capability the lookup tool needs
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// NewClient creates a new Serper API client
func NewClient(apiKey string) *Client {
	client := resty.New()
	client.SetHeader("User-Agent", "memegen-backend/1.0")

	return &Client{
		httpClient: client,
		apiKey:     apiKey,
	}
}

type searchResponse struct {
	Organic []Result `json:"organic"`
}

// Search performs a web search and returns the organic results
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, fmt.Errorf("SERPER_API_KEY not configured")
	}

	var result searchResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("X-API-KEY", c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"q": query, "num": 5}).
		SetResult(&result).
		Post(searchEndpoint)

	if err != nil {
		return nil, fmt.Errorf("failed to query Serper search API: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("Serper search API error (status %d): %s", resp.StatusCode(), resp.String())
	}

	return result.Organic, nil
}

package providers

import (
	"fmt"
	"strings"
)

// ErrUnknownProvider indicates a model selector naming a provider that is
// not configured. This is a fatal configuration error, never retried.
type ErrUnknownProvider struct {
	Provider string
}

func (e *ErrUnknownProvider) Error() string {
	return fmt.Sprintf("unknown provider: %s", e.Provider)
}

// ParseSelector splits a "<provider>:<model>" selector, e.g. "openai:gpt-4.1"
func ParseSelector(selector string) (provider string, model string, err error) {
	parts := strings.SplitN(selector, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid model selector %q, expected \"provider:model\"", selector)
	}
	return parts[0], parts[1], nil
}

// Resolve parses a selector and looks up the chat provider behind it
func (r *Registry) Resolve(selector string) (ChatProvider, string, error) {
	providerID, model, err := ParseSelector(selector)
	if err != nil {
		return nil, "", err
	}

	provider := r.Chat(providerID)
	if provider == nil {
		return nil, "", &ErrUnknownProvider{Provider: providerID}
	}

	return provider, model, nil
}

// ResolveImage looks up the image provider for a selector's provider part
func (r *Registry) ResolveImage(selector string) (ImageProvider, error) {
	providerID, _, err := ParseSelector(selector)
	if err != nil {
		return nil, err
	}

	provider := r.Image(providerID)
	if provider == nil {
		return nil, &ErrUnknownProvider{Provider: providerID}
	}

	return provider, nil
}

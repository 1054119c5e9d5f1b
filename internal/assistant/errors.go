package assistant

import "errors"

// ErrMissingCredential is returned by Complete when no API key is stored.
// The session resolves it interactively before the provider is ever called.
var ErrMissingCredential = errors.New("assistant: api key is not configured")

// ErrInvalidCredential is returned when the provider rejects the API key.
// The stored credential has already been cleared when this is returned, so
// the next attempt re-prompts.
var ErrInvalidCredential = errors.New("assistant: api key rejected by provider")

// ProviderError reports any other provider failure: rate limits, malformed
// requests, transport errors. The turn is abandoned; the user may resubmit.
type ProviderError struct {
	Message string // provider's message when available, else generic
	err     error
}

func (e *ProviderError) Error() string {
	return "assistant: provider error: " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.err }

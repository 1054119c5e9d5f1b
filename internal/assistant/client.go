// Package assistant wraps the completion-provider request/response cycle.
// One request per call, no retries; failures are translated into the
// pipeline's error taxonomy and never leak provider types to callers.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/traveltogether/planner/internal/config"
	"github.com/traveltogether/planner/internal/credentials"
)

// EmptyResponseFallback is returned when the provider answers with an empty
// payload. The session never shows an empty assistant message.
const EmptyResponseFallback = "I'm sorry, I don't have a response for that. Could you rephrase your question?"

// Client issues completion requests. Concurrency control is the caller's
// concern: the session guarantees at most one in-flight call per session.
type Client struct {
	creds       *credentials.Store
	model       string
	persona     string
	maxTokens   int64
	temperature float64
	baseURL     string
	httpClient  *http.Client
}

// ClientOpts holds parameters for creating a Client. Zero-value fields fall
// back to the config package defaults.
type ClientOpts struct {
	Credentials *credentials.Store
	Model       string
	Persona     string
	MaxTokens   int64
	Temperature float64
	BaseURL     string       // override for tests and proxies
	HTTPClient  *http.Client // optional transport override
}

// NewClient creates a Client.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.Credentials == nil {
		return nil, fmt.Errorf("assistant: credential store is required")
	}
	c := &Client{
		creds:       opts.Credentials,
		model:       opts.Model,
		persona:     opts.Persona,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		baseURL:     opts.BaseURL,
		httpClient:  opts.HTTPClient,
	}
	if c.model == "" {
		c.model = config.DefaultModel
	}
	if c.persona == "" {
		c.persona = config.DefaultPersona
	}
	if c.maxTokens <= 0 {
		c.maxTokens = config.DefaultMaxTokens
	}
	if c.temperature == 0 {
		c.temperature = config.DefaultTemperature
	}
	return c, nil
}

// Complete sends prompt as the sole conversational turn under the fixed
// travel-assistant persona and returns the assistant's text. Exactly one
// attempt per call. A 401 clears the stored credential and returns
// ErrInvalidCredential; any other provider failure returns a *ProviderError.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	key, ok := c.creds.Get()
	if !ok {
		return "", ErrMissingCredential
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
	}
	if c.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(c.baseURL))
	}
	if c.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(c.httpClient))
	}

	client := openai.NewClient(reqOpts...)
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.persona),
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(c.maxTokens),
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return "", c.translate(err)
	}

	if len(resp.Choices) == 0 {
		return EmptyResponseFallback, nil
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return EmptyResponseFallback, nil
	}
	return text, nil
}

// translate maps a provider error into the pipeline taxonomy.
func (c *Client) translate(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		if apierr.StatusCode == http.StatusUnauthorized {
			if cerr := c.creds.Clear(); cerr != nil {
				log.Printf("assistant: clear rejected api key: %v", cerr)
			}
			return ErrInvalidCredential
		}
		msg := apierr.Message
		if msg == "" {
			msg = fmt.Sprintf("request failed with status %d", apierr.StatusCode)
		}
		return &ProviderError{Message: msg, err: err}
	}
	return &ProviderError{Message: "could not reach the completion provider", err: err}
}

package provider

import (
	"context"
	"fmt"

	"github.com/juggyai/juggy/internal/config"
	"github.com/juggyai/juggy/internal/llm/tools"
	"github.com/juggyai/juggy/internal/message"
)

type EventType string

const maxRetries = 3

const (
	EventToolUseStart EventType = "tool_use_start"
	EventToolUseDelta EventType = "tool_use_delta"
	EventContentDelta EventType = "content_delta"
	EventUsage        EventType = "usage"
	EventComplete     EventType = "complete"
	EventError        EventType = "error"
	EventWarning      EventType = "warning"
)

type TokenUsage struct {
	InputTokens     int64
	OutputTokens    int64
	CacheReadTokens int64
	TotalTokens     int64
}

type ProviderResponse struct {
	Content      string
	ToolCalls    []message.ToolCall
	Usage        TokenUsage
	Model        string
	FinishReason message.FinishReason
}

// ProviderEvent is one normalized event of a streamed response. Model and
// Usage describe the chunk the event came from when the provider reports
// them.
type ProviderEvent struct {
	Type EventType

	Content  string
	Model    string
	Usage    *TokenUsage
	Response *ProviderResponse
	ToolCall *message.ToolCall
	Error    error
}

type Provider interface {
	SendMessages(ctx context.Context, messages []message.Message, tools []tools.BaseTool, opts ...CallOption) (*ProviderResponse, error)

	StreamResponse(ctx context.Context, messages []message.Message, tools []tools.BaseTool, opts ...CallOption) <-chan ProviderEvent

	Model() string
}

// ResponseFormat asks the model for JSON matching Schema.
type ResponseFormat struct {
	Name   string
	Schema map[string]any
}

// CallOptions are the per request settings collected from CallOption
// values.
type CallOptions struct {
	SystemMessage  string
	Model          string
	Temperature    *float64
	ResponseFormat *ResponseFormat
}

// CallOption adjusts a single request.
type CallOption func(*CallOptions)

func WithSystemMessage(systemMessage string) CallOption {
	return func(o *CallOptions) {
		o.SystemMessage = systemMessage
	}
}

// WithCallModel overrides the configured model for one request.
func WithCallModel(model string) CallOption {
	return func(o *CallOptions) {
		o.Model = model
	}
}

func WithTemperature(t *float64) CallOption {
	return func(o *CallOptions) {
		o.Temperature = t
	}
}

func WithResponseFormat(format ResponseFormat) CallOption {
	return func(o *CallOptions) {
		o.ResponseFormat = &format
	}
}

func NewCallOptions(opts ...CallOption) CallOptions {
	var o CallOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type providerClientOptions struct {
	resolver         func(string) (string, error)
	baseURL          string
	apiKeyRef        string
	apiKey           string
	model            string
	maxTokens        int64
	temperature      *float64
	extraHeaders     map[string]string
	extraBody        map[string]any
	disableStreaming bool
	debug            bool
}

type ProviderClientOption func(*providerClientOptions)

type ProviderClient interface {
	send(ctx context.Context, messages []message.Message, tools []tools.BaseTool, opts CallOptions) (*ProviderResponse, error)
	stream(ctx context.Context, messages []message.Message, tools []tools.BaseTool, opts CallOptions) <-chan ProviderEvent

	Model() string
}

type baseProvider[C ProviderClient] struct {
	options providerClientOptions
	client  C
}

func (p *baseProvider[C]) cleanMessages(messages []message.Message) (cleaned []message.Message) {
	for _, msg := range messages {
		// The message has no content
		if len(msg.Parts) == 0 {
			continue
		}
		cleaned = append(cleaned, msg)
	}
	return cleaned
}

func (p *baseProvider[C]) SendMessages(ctx context.Context, messages []message.Message, tools []tools.BaseTool, opts ...CallOption) (*ProviderResponse, error) {
	messages = p.cleanMessages(messages)
	return p.client.send(ctx, messages, tools, NewCallOptions(opts...))
}

// StreamResponse streams the model output. When streaming is disabled the
// full response is fetched with send and delivered as a single
// EventComplete.
func (p *baseProvider[C]) StreamResponse(ctx context.Context, messages []message.Message, tools []tools.BaseTool, opts ...CallOption) <-chan ProviderEvent {
	messages = p.cleanMessages(messages)
	callOpts := NewCallOptions(opts...)
	if !p.options.disableStreaming {
		return p.client.stream(ctx, messages, tools, callOpts)
	}

	eventChan := make(chan ProviderEvent, 1)
	go func() {
		defer close(eventChan)
		response, err := p.client.send(ctx, messages, tools, callOpts)
		if err != nil {
			eventChan <- ProviderEvent{Type: EventError, Error: err}
			return
		}
		eventChan <- ProviderEvent{Type: EventComplete, Response: response}
	}()
	return eventChan
}

func (p *baseProvider[C]) Model() string {
	return p.client.Model()
}

func WithResolver(resolver func(string) (string, error)) ProviderClientOption {
	return func(options *providerClientOptions) {
		options.resolver = resolver
	}
}

func WithMaxTokens(maxTokens int64) ProviderClientOption {
	return func(options *providerClientOptions) {
		options.maxTokens = maxTokens
	}
}

func WithDisableStreaming(disable bool) ProviderClientOption {
	return func(options *providerClientOptions) {
		options.disableStreaming = disable
	}
}

// NewProvider builds the OpenAI compatible provider described by cfg.
func NewProvider(cfg *config.Config, opts ...ProviderClientOption) (Provider, error) {
	pcfg := cfg.Provider
	clientOptions := providerClientOptions{
		resolver:         cfg.Resolve,
		baseURL:          pcfg.BaseURL,
		apiKeyRef:        pcfg.APIKey,
		model:            pcfg.Model,
		maxTokens:        pcfg.MaxTokens,
		temperature:      pcfg.Temperature,
		extraBody:        pcfg.ExtraBody,
		disableStreaming: pcfg.DisableStreaming,
		debug:            cfg.Options != nil && cfg.Options.Debug,
	}
	for _, o := range opts {
		o(&clientOptions)
	}

	resolvedAPIKey, err := clientOptions.resolver(pcfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve provider API key: %w", err)
	}

	resolvedBaseURL, err := clientOptions.resolver(pcfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve provider base URL: %w", err)
	}

	// Resolve extra headers
	resolvedExtraHeaders := make(map[string]string)
	for key, value := range pcfg.ExtraHeaders {
		resolvedValue, err := clientOptions.resolver(value)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve extra header %s: %w", key, err)
		}
		resolvedExtraHeaders[key] = resolvedValue
	}

	clientOptions.apiKey = resolvedAPIKey
	clientOptions.baseURL = resolvedBaseURL
	clientOptions.extraHeaders = resolvedExtraHeaders

	return &baseProvider[OpenAIClient]{
		options: clientOptions,
		client:  newOpenAIClient(clientOptions),
	}, nil
}

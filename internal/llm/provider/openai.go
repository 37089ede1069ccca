package provider

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juggyai/juggy/internal/llm/tools"
	"github.com/juggyai/juggy/internal/log"
	"github.com/juggyai/juggy/internal/message"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

type openaiClient struct {
	providerOptions providerClientOptions
	client          openai.Client
}

type OpenAIClient ProviderClient

func newOpenAIClient(opts providerClientOptions) OpenAIClient {
	return &openaiClient{
		providerOptions: opts,
		client:          createOpenAIClient(opts),
	}
}

func createOpenAIClient(opts providerClientOptions) openai.Client {
	var reqOpts []option.RequestOption
	if opts.apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.apiKey))
	}
	if opts.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.baseURL))
	}
	if opts.debug {
		reqOpts = append(reqOpts, option.WithHTTPClient(log.NewHTTPClient()))
	}
	for key, value := range opts.extraHeaders {
		reqOpts = append(reqOpts, option.WithHeader(key, value))
	}
	for key, value := range opts.extraBody {
		reqOpts = append(reqOpts, option.WithJSONSet(key, value))
	}
	// Retries are ours so the key can be refreshed between attempts.
	reqOpts = append(reqOpts, option.WithMaxRetries(0))
	return openai.NewClient(reqOpts...)
}

func (o *openaiClient) convertMessages(systemMessage string, messages []message.Message) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	if systemMessage != "" {
		out = append(out, openai.SystemMessage(systemMessage))
	}
	for _, msg := range messages {
		switch msg.Role {
		case message.User:
			out = append(out, openai.UserMessage(msg.Content().Text))
		case message.System:
			out = append(out, openai.SystemMessage(msg.Content().Text))
		case message.Assistant:
			if m, ok := assistantParam(msg); ok {
				out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &m})
			}
		case message.Tool:
			for _, result := range msg.ToolResults() {
				out = append(out, openai.ToolMessage(result.Content, result.ToolCallID))
			}
		}
	}
	return out
}

// assistantParam converts an assistant message. Unfinished tool calls are
// never resent, and a message left with nothing to say is skipped.
func assistantParam(msg message.Message) (openai.ChatCompletionAssistantMessageParam, bool) {
	m := openai.ChatCompletionAssistantMessageParam{Role: "assistant"}
	for _, call := range msg.ToolCalls() {
		if !call.Finished {
			continue
		}
		m.ToolCalls = append(m.ToolCalls, openai.ChatCompletionMessageToolCallParam{
			ID:   call.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      call.Name,
				Arguments: call.Input,
			},
		})
	}
	text := msg.Content().Text
	if text != "" {
		m.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: param.NewOpt(text)}
	}
	return m, text != "" || len(m.ToolCalls) > 0
}

func (o *openaiClient) convertTools(tools []tools.BaseTool) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, tool := range tools {
		info := tool.Info()
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        info.Name,
				Description: openai.String(info.Description),
				Parameters: openai.FunctionParameters{
					"type":       "object",
					"properties": info.Parameters,
					"required":   info.Required,
				},
			},
		})
	}
	return out
}

func (o *openaiClient) finishReason(reason string) message.FinishReason {
	switch reason {
	case "stop":
		return message.FinishReasonEndTurn
	case "length":
		return message.FinishReasonMaxTokens
	case "tool_calls":
		return message.FinishReasonToolUse
	default:
		return message.FinishReasonUnknown
	}
}

func (o *openaiClient) preparedParams(messages []message.Message, tools []tools.BaseTool, opts CallOptions) openai.ChatCompletionNewParams {
	model := o.providerOptions.model
	if opts.Model != "" {
		model = opts.Model
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: o.convertMessages(opts.SystemMessage, messages),
	}
	if len(tools) > 0 {
		params.Tools = o.convertTools(tools)
	}
	if o.providerOptions.maxTokens > 0 {
		params.MaxTokens = openai.Int(o.providerOptions.maxTokens)
	}

	temperature := o.providerOptions.temperature
	if opts.Temperature != nil {
		temperature = opts.Temperature
	}
	if temperature != nil {
		params.Temperature = openai.Float(*temperature)
	}

	if opts.ResponseFormat != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   opts.ResponseFormat.Name,
					Schema: opts.ResponseFormat.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}
	return params
}

func (o *openaiClient) send(ctx context.Context, messages []message.Message, tools []tools.BaseTool, opts CallOptions) (*ProviderResponse, error) {
	params := o.preparedParams(messages, tools, opts)
	for attempt := 1; ; attempt++ {
		completion, err := o.client.Chat.Completions.New(ctx, params)
		if err == nil {
			return o.response(*completion)
		}
		delay, err := o.retryDelay(attempt, err)
		if err != nil {
			return nil, err
		}
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (o *openaiClient) response(completion openai.ChatCompletion) (*ProviderResponse, error) {
	if len(completion.Choices) == 0 {
		return nil, errors.New("received empty response from OpenAI API - check endpoint configuration")
	}
	calls := completedToolCalls(completion.Choices[0].Message.ToolCalls)
	reason := o.finishReason(string(completion.Choices[0].FinishReason))
	if len(calls) > 0 {
		reason = message.FinishReasonToolUse
	}
	return &ProviderResponse{
		Content:      completion.Choices[0].Message.Content,
		ToolCalls:    calls,
		Usage:        o.usage(completion.Usage),
		Model:        completion.Model,
		FinishReason: reason,
	}, nil
}

func (o *openaiClient) stream(ctx context.Context, messages []message.Message, tools []tools.BaseTool, opts CallOptions) <-chan ProviderEvent {
	params := o.preparedParams(messages, tools, opts)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	events := make(chan ProviderEvent)
	emit := func(ev ProviderEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(events)
		for attempt := 1; ; attempt++ {
			err := o.streamOnce(ctx, params, emit)
			if err == nil {
				return
			}
			delay, err := o.retryDelay(attempt, err)
			if err == nil {
				err = sleep(ctx, delay)
			}
			if err != nil {
				emit(ProviderEvent{Type: EventError, Error: err})
				return
			}
		}
	}()
	return events
}

var errEmptyStream = errors.New("received empty streaming response from OpenAI API - check endpoint configuration")

// streamOnce runs one streaming request. A nil return means a terminal
// event was emitted; any other error may be retried.
func (o *openaiClient) streamOnce(ctx context.Context, params openai.ChatCompletionNewParams, emit func(ProviderEvent) bool) error {
	s := o.client.Chat.Completions.NewStreaming(ctx, params)
	defer s.Close()

	var (
		acc     openai.ChatCompletionAccumulator
		content strings.Builder
		calls   = newToolCallAssembler()
	)
	for s.Next() {
		chunk := s.Current()
		acc.AddChunk(chunk)

		var usage *TokenUsage
		if chunk.Usage.TotalTokens > 0 {
			u := o.usage(chunk.Usage)
			usage = &u
		}
		if len(chunk.Choices) == 0 {
			if usage != nil && !emit(ProviderEvent{Type: EventUsage, Model: chunk.Model, Usage: usage}) {
				return nil
			}
			continue
		}

		for _, choice := range chunk.Choices {
			ev := ProviderEvent{Model: chunk.Model, Usage: usage}
			switch {
			case choice.Delta.Content != "":
				content.WriteString(choice.Delta.Content)
				ev.Type = EventContentDelta
				ev.Content = choice.Delta.Content
			case len(choice.Delta.ToolCalls) > 0:
				for _, delta := range choice.Delta.ToolCalls {
					if started := calls.add(delta); started != nil {
						if !emit(ProviderEvent{Type: EventToolUseStart, ToolCall: started, Model: chunk.Model, Usage: usage}) {
							return nil
						}
					}
				}
				continue
			case usage != nil:
				ev.Type = EventUsage
			default:
				continue
			}
			if !emit(ev) {
				return nil
			}
		}
	}

	if err := s.Err(); err != nil && !errors.Is(err, io.EOF) {
		if content.Len() > 0 || len(calls.order) > 0 {
			// Part of the turn already reached the caller.
			emit(ProviderEvent{Type: EventError, Error: err})
			return nil
		}
		return err
	}
	if len(acc.Choices) == 0 {
		emit(ProviderEvent{Type: EventError, Error: errEmptyStream})
		return nil
	}

	// Some compatible servers never report a finish reason.
	reason := cmp.Or(acc.Choices[0].FinishReason, "stop")
	finish := o.finishReason(reason)
	toolCalls := calls.finished()
	if len(toolCalls) > 0 {
		finish = message.FinishReasonToolUse
	}
	emit(ProviderEvent{
		Type: EventComplete,
		Response: &ProviderResponse{
			Content:      content.String(),
			ToolCalls:    toolCalls,
			Usage:        o.usage(acc.Usage),
			Model:        acc.Model,
			FinishReason: finish,
		},
	})
	return nil
}

// toolCallAssembler joins streamed tool call fragments. Fragments are keyed
// by index, and an id that differs from the one at that index starts a new
// call unless it matches another known call.
type toolCallAssembler struct {
	byIndex map[int64]*message.ToolCall
	byID    map[string]*message.ToolCall
	order   []*message.ToolCall
	// Some compatible servers use "functions.<name>:<n>" ids that repeat
	// across turns.
	aliases map[string]string
	next    int64
}

func newToolCallAssembler() *toolCallAssembler {
	return &toolCallAssembler{
		byIndex: make(map[int64]*message.ToolCall),
		byID:    make(map[string]*message.ToolCall),
		aliases: make(map[string]string),
	}
}

// add merges a fragment and returns the call when the fragment starts one.
func (a *toolCallAssembler) add(delta openai.ChatCompletionChunkChoiceDeltaToolCall) *message.ToolCall {
	index := delta.Index
	if index < 0 {
		// Some compatible servers send -1 for the first tool index.
		index = 0
	}
	id := delta.ID
	if strings.HasPrefix(id, "functions.") {
		alias, ok := a.aliases[id]
		if !ok {
			alias = uuid.NewString()
			a.aliases[id] = alias
		}
		id = alias
	}

	if id != "" {
		if call, ok := a.byID[id]; ok {
			call.Input += delta.Function.Arguments
			return nil
		}
	}
	if call, ok := a.byIndex[index]; ok && (id == "" || id == call.ID) {
		call.Input += delta.Function.Arguments
		return nil
	}

	if id == "" {
		id = uuid.NewString()
	}
	call := &message.ToolCall{ID: id, Name: delta.Function.Name, Input: delta.Function.Arguments}
	a.byIndex[index] = call
	a.byID[id] = call
	a.order = append(a.order, call)
	started := *call
	return &started
}

// finished returns the named calls in the order they started.
func (a *toolCallAssembler) finished() []message.ToolCall {
	var out []message.ToolCall
	for _, call := range a.order {
		if call.Name == "" {
			continue
		}
		c := *call
		c.Finished = true
		out = append(out, c)
	}
	return out
}

func completedToolCalls(calls []openai.ChatCompletionMessageToolCall) []message.ToolCall {
	var out []message.ToolCall
	for _, call := range calls {
		if call.Function.Name == "" {
			continue
		}
		out = append(out, message.ToolCall{
			ID:       call.ID,
			Name:     call.Function.Name,
			Input:    call.Function.Arguments,
			Finished: true,
		})
	}
	return out
}

// retryDelay decides whether a failed attempt is worth repeating and how
// long to wait first. A non-nil error ends the request.
func (o *openaiClient) retryDelay(attempt int, err error) (time.Duration, error) {
	if attempt > maxRetries {
		return 0, fmt.Errorf("maximum retry attempts reached: %d retries: %w", maxRetries, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, err
	}

	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		slog.Error("OpenAI request failed", "error", err, "attempt", attempt, "max_retries", maxRetries)
		return backoff(attempt), nil
	}

	switch {
	case apiErr.StatusCode == http.StatusUnauthorized:
		return 0, o.refreshKey(apiErr)
	case apiErr.StatusCode == http.StatusTooManyRequests:
		if apiErr.Type == "insufficient_quota" || apiErr.Code == "insufficient_quota" {
			return 0, fmt.Errorf("OpenAI quota exceeded: %s. Please check your plan and billing details", apiErr.Message)
		}
	case apiErr.StatusCode >= http.StatusInternalServerError:
	default:
		return 0, err
	}

	slog.Warn("Retrying OpenAI request", "status_code", apiErr.StatusCode, "message", apiErr.Message, "attempt", attempt)
	if apiErr.Response != nil {
		if secs, perr := strconv.Atoi(apiErr.Response.Header.Get("Retry-After")); perr == nil && secs >= 0 {
			return time.Duration(secs) * time.Second, nil
		}
	}
	return backoff(attempt), nil
}

// refreshKey re-resolves the API key after a 401. The request is only
// retried when the key changed, in case it comes from the environment.
func (o *openaiClient) refreshKey(apiErr *openai.Error) error {
	prev := o.providerOptions.apiKey
	key, err := o.providerOptions.resolver(o.providerOptions.apiKeyRef)
	if err != nil {
		return fmt.Errorf("failed to resolve API key: %w", err)
	}
	if key == prev {
		return apiErr
	}
	o.providerOptions.apiKey = key
	o.client = createOpenAIClient(o.providerOptions)
	return nil
}

// backoff is 2s doubled per attempt plus 20%.
func backoff(attempt int) time.Duration {
	base := 2 * time.Second << (attempt - 1)
	return base + base/5
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (o *openaiClient) usage(usage openai.CompletionUsage) TokenUsage {
	cached := usage.PromptTokensDetails.CachedTokens
	return TokenUsage{
		InputTokens:     usage.PromptTokens - cached,
		OutputTokens:    usage.CompletionTokens,
		CacheReadTokens: cached,
		TotalTokens:     usage.TotalTokens,
	}
}

func (o *openaiClient) Model() string {
	return o.providerOptions.model
}

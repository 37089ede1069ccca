package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/juggyai/juggy/internal/message"
	"golang.org/x/sync/errgroup"
)

// Dispatcher runs the tool calls a model asks for. Tool failures never
// escape: each call yields a result the model can read.
type Dispatcher struct {
	tools      []BaseTool
	byName     map[string]BaseTool
	concurrent bool
}

// NewDispatcher returns a dispatcher over tools. With concurrent set, the
// calls of one round run in parallel; otherwise they run in order.
func NewDispatcher(concurrent bool, tools ...BaseTool) *Dispatcher {
	byName := make(map[string]BaseTool, len(tools))
	for _, t := range tools {
		byName[t.Name()] = t
	}
	return &Dispatcher{
		tools:      tools,
		byName:     byName,
		concurrent: concurrent,
	}
}

// Tools returns the declared tools in registration order.
func (d *Dispatcher) Tools() []BaseTool {
	return d.tools
}

// Run executes a single call.
func (d *Dispatcher) Run(ctx context.Context, call message.ToolCall) (result message.ToolResult) {
	result = message.ToolResult{
		ToolCallID: call.ID,
		Name:       call.Name,
	}

	tool, ok := d.byName[call.Name]
	if !ok {
		slog.Warn("Model called an unknown tool", "name", call.Name)
		result.Content = fmt.Sprintf("Tool not found: %s", call.Name)
		result.IsError = true
		return result
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Tool panicked", "name", call.Name, "panic", r)
			result.Content = ""
			result.IsError = true
		}
	}()

	response, err := tool.Run(ctx, call)
	if err != nil {
		slog.Error("Tool failed", "name", call.Name, "error", err)
		result.Content = ""
		result.IsError = true
		return result
	}
	result.Content = response.Content
	result.Metadata = response.Metadata
	result.IsError = response.IsError
	return result
}

// RunAll executes the calls of one round and returns their results in call
// order.
func (d *Dispatcher) RunAll(ctx context.Context, calls []message.ToolCall) []message.ToolResult {
	results := make([]message.ToolResult, len(calls))
	if !d.concurrent || len(calls) < 2 {
		for i, call := range calls {
			results[i] = d.Run(ctx, call)
		}
		return results
	}

	var g errgroup.Group
	for i, call := range calls {
		g.Go(func() error {
			results[i] = d.Run(ctx, call)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

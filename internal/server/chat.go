package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/juggyai/juggy/internal/bridge"
	"github.com/juggyai/juggy/internal/proto"
)

// agentHeader selects the agent for a turn when the query has no "agent".
const agentHeader = "X-Juggy-Agent"

func (c *controllerV1) handlePostChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req proto.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.logError(r, "failed to decode request", "error", err)
		jsonError(w, http.StatusBadRequest, "failed to decode request")
		return
	}

	agent := r.URL.Query().Get("agent")
	if agent == "" {
		agent = r.Header.Get(agentHeader)
	}

	stream, err := c.app.Turn(r.Context(), req, agent)
	if err != nil {
		c.logDebug(r, "rejected turn", "error", err)
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !req.IsStreaming() {
		c.writeCompletion(w, r, stream)
		return
	}

	flusher := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for ev := range stream.Events() {
		if err := bridge.Encode(w, ev); err != nil {
			c.logDebug(r, "caller went away mid stream", "stream_id", stream.ID, "error", err)
			for range stream.Events() {
			}
			return
		}
		if err := flusher.Flush(); err != nil {
			c.logDebug(r, "failed to flush chunk", "stream_id", stream.ID, "error", err)
		}
	}
}

// writeCompletion collects the stream into a single chat.completion
// object.
func (c *controllerV1) writeCompletion(w http.ResponseWriter, r *http.Request, stream *bridge.Stream) {
	var (
		content strings.Builder
		model   string
		created = time.Now().Unix()
		failure string
	)
	for ev := range stream.Events() {
		switch {
		case ev.Error != nil:
			failure = ev.Error.Error
		case ev.Chunk != nil:
			if model == "" {
				model = ev.Chunk.Model
				created = ev.Chunk.Created
			}
			for _, choice := range ev.Chunk.Choices {
				content.WriteString(choice.Delta.Content)
			}
		}
	}

	if failure != "" {
		c.logError(r, "turn failed", "stream_id", stream.ID, "error", failure)
		jsonError(w, http.StatusBadGateway, failure)
		return
	}

	jsonEncode(w, proto.ChatCompletion{
		ID:      stream.ID,
		Object:  proto.CompletionObject,
		Created: created,
		Model:   model,
		Choices: []proto.CompletionChoice{{
			Message: proto.ChatMessage{
				Role:    "assistant",
				Content: content.String(),
			},
			FinishReason: "stop",
		}},
	})
}

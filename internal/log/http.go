package log

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// NewHTTPClient returns a client that logs every request and response at
// debug level. Authorization headers are masked.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &HTTPRoundTripLogger{
			Transport: http.DefaultTransport,
		},
	}
}

// HTTPRoundTripLogger is an [http.RoundTripper] that logs traffic.
type HTTPRoundTripLogger struct {
	Transport http.RoundTripper
}

func (h *HTTPRoundTripLogger) RoundTrip(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		bts, err := io.ReadAll(req.Body)
		if err == nil {
			body = string(bts)
			req.Body = io.NopCloser(bytes.NewReader(bts))
		}
	}

	slog.Debug(
		"HTTP Request",
		"method", req.Method,
		"url", req.URL.String(),
		"headers", maskHeaders(req.Header),
		"body", truncate(body, 2000),
	)

	start := time.Now()
	resp, err := h.Transport.RoundTrip(req)
	duration := time.Since(start)
	if err != nil {
		slog.Debug(
			"HTTP Request failed",
			"method", req.Method,
			"url", req.URL.String(),
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return resp, err
	}

	slog.Debug(
		"HTTP Response",
		"status_code", resp.StatusCode,
		"status", resp.Status,
		"headers", maskHeaders(resp.Header),
		"content_length", resp.ContentLength,
		"duration_ms", duration.Milliseconds(),
	)
	return resp, nil
}

func maskHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for key, values := range headers {
		value := strings.Join(values, ", ")
		lower := strings.ToLower(key)
		if lower == "authorization" || lower == "api-key" || lower == "x-api-key" {
			value = MaskAPIKey(value)
		}
		out[key] = value
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

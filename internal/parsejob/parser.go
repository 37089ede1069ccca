package parsejob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// Parser turns a stored document into text.
type Parser interface {
	Parse(ctx context.Context, mediaID string) (Result, error)
}

// HTTPParser calls the document parsing service. It posts
// {"media_id": ...} and reads "raw_result" and "structured_result" from
// the response; the structured result may be any JSON value.
type HTTPParser struct {
	url    string
	client *http.Client
}

func NewHTTPParser(url string, timeout time.Duration, client *http.Client) *HTTPParser {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPParser{url: url, client: client}
}

func (p *HTTPParser) Parse(ctx context.Context, mediaID string) (Result, error) {
	body, err := json.Marshal(map[string]string{"media_id": mediaID})
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	rsp, err := p.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to call parser: %w", err)
	}
	defer rsp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(rsp.Body, 8<<20))
	if err != nil {
		return Result{}, fmt.Errorf("failed to read parser response: %w", err)
	}
	if rsp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("parser returned status %d: %s", rsp.StatusCode, bytes.TrimSpace(data))
	}
	if !gjson.ValidBytes(data) {
		return Result{}, fmt.Errorf("parser returned invalid JSON")
	}

	result := Result{Raw: gjson.GetBytes(data, "raw_result").String()}
	structured := gjson.GetBytes(data, "structured_result")
	switch {
	case !structured.Exists() || structured.Type == gjson.Null:
	case structured.Type == gjson.String:
		result.Structured = structured.String()
	default:
		result.Structured = structured.Raw
	}
	return result, nil
}

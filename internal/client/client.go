package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	stdpath "path"
	"time"

	"github.com/juggyai/juggy/internal/config"
	"github.com/juggyai/juggy/internal/proto"
	"github.com/juggyai/juggy/internal/server"
)

// DummyHost is used to satisfy the http.Client's requirement for a URL.
const DummyHost = "api.juggy.localhost"

// Client talks to a juggy server over HTTP.
type Client struct {
	h       *http.Client
	network string
	addr    string
}

// HostClient creates a new [Client] for a host URL such as
// "tcp://127.0.0.1:8080" or "unix:///tmp/juggy.sock".
func HostClient(host string) (*Client, error) {
	u, err := server.ParseHostURL(host)
	if err != nil {
		return nil, err
	}
	return NewClient(u.Scheme, u.Host)
}

// NewClient creates a new [Client] connected to the server at the given
// network and address.
func NewClient(network, address string) (*Client, error) {
	c := new(Client)
	c.network = network
	c.addr = address
	p := &http.Protocols{}
	p.SetHTTP1(true)
	p.SetUnencryptedHTTP2(true)
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Protocols = p
	tr.DialContext = c.dialer
	if c.network == "npipe" || c.network == "unix" {
		// We don't need compression for local connections.
		tr.DisableCompression = true
	}
	c.h = &http.Client{
		Transport: tr,
		Timeout:   0, // we need this to be 0 for long-lived connections and SSE streams
	}
	return c, nil
}

// GetConfig retrieves the server's configuration.
func (c *Client) GetConfig(ctx context.Context) (*config.Config, error) {
	var cfg config.Config
	if err := c.do(ctx, http.MethodGet, "/config", nil, nil, &cfg); err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}
	return &cfg, nil
}

// Health checks the server's health status.
func (c *Client) Health(ctx context.Context) error {
	rsp, err := c.get(ctx, "/health", nil, nil)
	if err != nil {
		return err
	}
	defer rsp.Body.Close()
	if rsp.StatusCode != http.StatusOK {
		return fmt.Errorf("server health check failed: %s", rsp.Status)
	}
	return nil
}

// VersionInfo retrieves the server's version information.
func (c *Client) VersionInfo(ctx context.Context) (*proto.VersionInfo, error) {
	var vi proto.VersionInfo
	if err := c.do(ctx, http.MethodGet, "/version", nil, nil, &vi); err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return &vi, nil
}

// ShutdownServer sends a shutdown request to the server.
func (c *Client) ShutdownServer(ctx context.Context) error {
	rsp, err := c.post(ctx, "/control", nil, jsonBody(proto.ServerControl{
		Command: "shutdown",
	}), nil)
	if err != nil {
		return err
	}
	defer rsp.Body.Close()
	if rsp.StatusCode != http.StatusOK {
		return fmt.Errorf("server shutdown failed: %s", rsp.Status)
	}
	return nil
}

func (c *Client) dialer(ctx context.Context, network, address string) (net.Conn, error) {
	d := net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	// It's important to use the client's addr for npipe/unix and not the
	// address param because the address param is always "localhost:port" for
	// HTTP clients and npipe/unix don't have a concept of ports.
	switch c.network {
	case "npipe":
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		return dialPipeContext(ctx, c.addr)
	case "unix":
		return d.DialContext(ctx, "unix", c.addr)
	default:
		return d.DialContext(ctx, network, address)
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, headers http.Header) (*http.Response, error) {
	return c.sendReq(ctx, http.MethodGet, path, query, nil, headers)
}

func (c *Client) post(ctx context.Context, path string, query url.Values, body io.Reader, headers http.Header) (*http.Response, error) {
	return c.sendReq(ctx, http.MethodPost, path, query, body, headers)
}

// do sends a JSON request and decodes a JSON reply into out. Replies
// with an error status are returned as [*Error].
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		body = jsonBody(in)
	}
	rsp, err := c.sendReq(ctx, method, path, query, body, http.Header{
		"Content-Type": []string{"application/json"},
	})
	if err != nil {
		return err
	}
	defer rsp.Body.Close()
	if err := checkStatus(rsp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(rsp.Body).Decode(out)
}

func (c *Client) sendReq(ctx context.Context, method, path string, query url.Values, body io.Reader, headers http.Header) (*http.Response, error) {
	url := (&url.URL{
		Path:     stdpath.Join("/v1", path), // Right now, we only have v1
		RawQuery: query.Encode(),
	}).String()
	req, err := c.buildReq(ctx, method, url, body, headers)
	if err != nil {
		return nil, err
	}

	return c.doReq(req)
}

func (c *Client) doReq(req *http.Request) (*http.Response, error) {
	rsp, err := c.h.Do(req)
	if err != nil {
		return nil, err
	}
	return rsp, nil
}

func (c *Client) buildReq(ctx context.Context, method, url string, body io.Reader, headers http.Header) (*http.Request, error) {
	r, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	for k, v := range headers {
		r.Header[http.CanonicalHeaderKey(k)] = v
	}

	r.URL.Scheme = "http" // This is always http because we don't use TLS
	r.URL.Host = c.addr
	if c.network == "npipe" || c.network == "unix" {
		// We use a dummy host for non-tcp connections.
		r.Host = DummyHost
	}

	if body != nil && r.Header.Get("Content-Type") == "" {
		r.Header.Set("Content-Type", "text/plain")
	}

	return r, nil
}

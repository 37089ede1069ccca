package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/juggyai/juggy/internal/app"
	"github.com/juggyai/juggy/internal/config"
)

// ErrServerClosed is returned when the server is closed.
var ErrServerClosed = http.ErrServerClosed

// ParseHostURL parses a host URL into a [url.URL].
func ParseHostURL(host string) (*url.URL, error) {
	proto, addr, ok := strings.Cut(host, "://")
	if !ok {
		return nil, fmt.Errorf("invalid host format: %s", host)
	}

	var basePath string
	if proto == "tcp" {
		parsed, err := url.Parse("tcp://" + addr)
		if err != nil {
			return nil, fmt.Errorf("invalid tcp address: %v", err)
		}
		addr = parsed.Host
		basePath = parsed.Path
	}
	return &url.URL{
		Scheme: proto,
		Host:   addr,
		Path:   basePath,
	}, nil
}

// Server serves the juggy API for one [app.App] on a specific address.
type Server struct {
	// Addr can be a TCP address, a Unix socket path, or a Windows named pipe.
	Addr    string
	network string

	h  *http.Server
	ln net.Listener

	app    *app.App
	cfg    *config.Config
	logger *slog.Logger
}

// SetLogger sets the logger for the server.
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// NewServer is a helper to create a new [Server] instance with the given
// address. On Windows, if the address is not a "tcp" address, it will be
// converted to a named pipe format.
func NewServer(a *app.App, network, address string) *Server {
	s := new(Server)
	s.Addr = address
	s.network = network
	s.app = a
	s.cfg = a.Config()

	var p http.Protocols
	p.SetHTTP1(true)
	p.SetUnencryptedHTTP2(true)
	c := &controllerV1{Server: s}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", c.handleGetHealth)
	mux.HandleFunc("GET /v1/version", c.handleGetVersion)
	mux.HandleFunc("GET /v1/config", c.handleGetConfig)
	mux.HandleFunc("POST /v1/control", c.handlePostControl)
	mux.HandleFunc("GET /v1/events", c.handleGetEvents)
	mux.HandleFunc("POST /v1/chat/completions", c.handlePostChatCompletions)
	mux.HandleFunc("GET /v1/turns", c.handleGetTurns)
	mux.HandleFunc("GET /v1/turns/{id}", c.handleGetTurn)
	mux.HandleFunc("POST /v1/accounts", c.handlePostAccounts)
	mux.HandleFunc("GET /v1/accounts/{id}", c.handleGetAccount)
	mux.HandleFunc("POST /v1/accounts/{id}/credits", c.handlePostAccountCredits)
	mux.HandleFunc("GET /v1/accounts/{id}/sessions", c.handleGetAccountSessions)
	mux.HandleFunc("GET /v1/accounts/{id}/sessions/to-analyse", c.handleGetAccountSessionsToAnalyse)
	mux.HandleFunc("POST /v1/sessions", c.handlePostSessions)
	mux.HandleFunc("GET /v1/sessions/{id}", c.handleGetSession)
	mux.HandleFunc("POST /v1/sessions/{id}/link", c.handlePostSessionLink)
	mux.HandleFunc("POST /v1/sessions/{id}/end", c.handlePostSessionEnd)
	mux.HandleFunc("POST /v1/sessions/{id}/analyse", c.handlePostSessionAnalyse)
	mux.HandleFunc("GET /v1/sessions/{id}/status", c.handleGetSessionStatus)
	mux.HandleFunc("GET /v1/sessions/{id}/exchanges", c.handleGetSessionExchanges)
	mux.HandleFunc("GET /v1/agents", c.handleGetAgents)
	mux.HandleFunc("POST /v1/agents", c.handlePostAgents)
	mux.HandleFunc("POST /v1/agents/{id}/activate", c.handlePostAgentActivate)
	mux.HandleFunc("POST /v1/parse-jobs", c.handlePostParseJobs)
	mux.HandleFunc("GET /v1/parse-jobs/{id}", c.handleGetParseJob)
	s.h = &http.Server{
		Protocols: &p,
		Handler:   s.loggingHandler(mux),
	}
	if network == "tcp" {
		s.h.Addr = address
	}
	return s
}

// Handler returns the root handler of the server.
func (s *Server) Handler() http.Handler {
	return s.h.Handler
}

// Serve accepts incoming connections on the listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.h.Serve(ln)
}

// ListenAndServe starts the server and begins accepting connections.
func (s *Server) ListenAndServe() error {
	if s.ln != nil {
		return fmt.Errorf("server already started")
	}
	ln, err := listen(s.network, s.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr, err)
	}
	return s.Serve(ln)
}

func (s *Server) closeListener() {
	if s.ln != nil {
		s.ln.Close()
		s.ln = nil
	}
}

// Close force close all listeners and connections.
func (s *Server) Close() error {
	defer func() { s.closeListener() }()
	return s.h.Close()
}

// Shutdown gracefully shuts down the server without interrupting active
// connections. It stops accepting new connections and waits for existing
// connections to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	defer func() { s.closeListener() }()
	return s.h.Shutdown(ctx)
}

func (s *Server) logDebug(r *http.Request, msg string, args ...any) {
	if s.logger != nil {
		s.logger.With(
			slog.String("method", r.Method),
			slog.String("url", r.URL.String()),
			slog.String("remote_addr", r.RemoteAddr),
		).Debug(msg, args...)
	}
}

func (s *Server) logError(r *http.Request, msg string, args ...any) {
	if s.logger != nil {
		s.logger.With(
			slog.String("method", r.Method),
			slog.String("url", r.URL.String()),
			slog.String("remote_addr", r.RemoteAddr),
		).Error(msg, args...)
	}
}

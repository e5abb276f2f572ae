package infra

import (
	"context"
	"net/http"
	"time"
)

// HTTPTimeouts bounds how long one connection may hold a server worker.
type HTTPTimeouts struct {
	Read  time.Duration
	Write time.Duration
	Idle  time.Duration
}

// HTTPServer wraps http.Server with graceful startup and shutdown. Both
// binaries use it: the API for its public surface, the worker for its
// operational endpoints.
type HTTPServer struct {
	server *http.Server
}

// NewHTTPServer builds a server listening on addr with the given timeouts.
func NewHTTPServer(addr string, handler http.Handler, t HTTPTimeouts) *HTTPServer {
	return &HTTPServer{server: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       t.Read,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      t.Write,
		IdleTimeout:       t.Idle,
	}}
}

// Start runs the server in the current goroutine.
func (s *HTTPServer) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

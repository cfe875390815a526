package receiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// HTTP serves the JSON submission API. It binds eagerly in Start so a
// port conflict surfaces there, then serves in the background. Each
// connection carries a single request; responses close the connection.
type HTTP struct {
	port    int
	handler http.Handler

	ln  net.Listener
	srv *http.Server
}

// NewHTTP creates the REST receiver with the given router.
func NewHTTP(port int, handler http.Handler) *HTTP {
	return &HTTP{port: port, handler: handler}
}

func (h *HTTP) Name() string { return "http" }

// Port returns the bound port; useful when started on port 0.
func (h *HTTP) Port() int {
	if h.ln == nil {
		return h.port
	}
	return h.ln.Addr().(*net.TCPAddr).Port
}

// Start binds the listener and serves in a goroutine.
func (h *HTTP) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", h.port))
	if err != nil {
		return fmt.Errorf("bind http port %d: %w", h.port, err)
	}
	h.ln = ln

	h.srv = &http.Server{
		Handler:      h.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	// One request per connection.
	h.srv.SetKeepAlivesEnabled(false)

	go func() {
		if err := h.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped", slog.String("error", err.Error()))
		}
	}()

	slog.Info("http receiver listening", slog.Int("port", h.Port()))
	return nil
}

// Stop shuts the server down, letting in-flight requests finish.
func (h *HTTP) Stop() error {
	if h.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return h.srv.Shutdown(ctx)
}

// Package httpserver builds the guardian HTTP server.
package httpserver

import (
	"net/http"
	"time"

	"guardian/internal/platform/config"
)

const (
	readHeaderTimeout = 5 * time.Second
	// Voice uploads carry audio in the body.
	readTimeout = 20 * time.Second
	idleTimeout = 90 * time.Second
)

func New(cfg config.Server, handler http.Handler) *http.Server {
	write := cfg.WriteTimeout
	if write <= 0 {
		write = 30 * time.Second
	}
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      write,
		IdleTimeout:       idleTimeout,
	}
}

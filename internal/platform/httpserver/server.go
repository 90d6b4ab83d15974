// Package httpserver builds the http.Server with sane timeouts so main
// stays focused on wiring.
package httpserver

import (
	"net/http"
	"time"
)

// New returns an http.Server with conservative timeouts. Form submissions
// are small JSON bodies; anything slow enough to hit these limits is abuse
// or a broken client.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

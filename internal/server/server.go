package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/M4RKUS28/TicTacToeUltimate/pkg/handlers"
)

// StartHTTPServer serves the plain HTTP surface: an index page and a health
// check. Blocks until ctx is canceled.
func StartHTTPServer(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", handlers.IndexHandler)
	mux.HandleFunc("/ping", handlers.PingHandler)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

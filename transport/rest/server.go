package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Start - starts the HTTP server exposing identity and profile endpoints.
func Start(ctx context.Context, logger *slog.Logger, port string, auth AuthService, users UserService) error {
	handler := newHandler(logger, auth, users)

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", pingHandler)
	mux.HandleFunc("/auth/anonymous", handler.AnonymousSignIn)
	mux.HandleFunc("/auth/username", handler.RegisterUsername)
	mux.HandleFunc("/profile", handler.Profile)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

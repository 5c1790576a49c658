// Package server wires the Reverie HTTP surface: routes, middleware and the
// websocket event hub, with lifecycle tied to a context.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/reveriehq/reverie/internal/config"
	"github.com/reveriehq/reverie/internal/engine"
	"github.com/reveriehq/reverie/web/handlers"
)

// securityHeadersMiddleware adds security headers to all HTTP responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Start builds the router and starts the HTTP server. It returns the actual
// listen address (useful with port 0 in tests) and the websocket hub so the
// caller can wire extraction events into it. The server shuts down when ctx
// is cancelled.
func Start(ctx context.Context, cfg *config.Config, eng *engine.Engine) (string, *handlers.WebSocketHub, error) {
	hostPort := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	wsHub := handlers.NewWebSocketHub([]string{
		fmt.Sprintf("localhost:%d", cfg.Server.Port),
		fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port),
	})
	go wsHub.Run()

	api := handlers.NewAPIHandlers(eng)

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/api/turns", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		api.PostTurn(w, r)
	})
	apiMux.HandleFunc("/api/recall", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		api.PostRecall(w, r)
	})
	apiMux.HandleFunc("/api/queue", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		api.GetQueue(w, r)
	})
	apiMux.HandleFunc("/api/mood", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		api.GetMood(w, r)
	})

	mux := http.NewServeMux()

	// Health endpoint stays outside auth so monitors can reach it.
	mux.HandleFunc("/api/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handlers.Health(w, r)
	})

	mux.Handle("/api/", handlers.RequireAuth(apiMux, cfg))

	// Websocket endpoint; origin validation handles access control.
	mux.Handle("/ws", wsHub)

	rateLimiter := handlers.NewRateLimiter(10.0, 20)
	handler := handlers.RateLimitMiddleware(mux, rateLimiter)
	handler = securityHeadersMiddleware(handler)

	srv := &http.Server{
		Addr:         hostPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", hostPort)
	if err != nil {
		wsHub.Stop()
		return "", nil, fmt.Errorf("server: failed to listen on %s: %w", hostPort, err)
	}
	actualAddr := listener.Addr().String()

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("ERROR: server: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("ERROR: server: shutdown: %v", err)
		}
		wsHub.Stop()
	}()

	log.Printf("server: listening on %s", actualAddr)
	return actualAddr, wsHub, nil
}

// Package http implements the HTTP/WebSocket transport for mediai.
//
// This transport serves the browser UI, a small JSON API for submitting
// typed and spoken turns, and a WebSocket that pushes the session view on
// every change. It is the default presentation surface.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/nadzzz/mediai/internal/config"
	_ "github.com/nadzzz/mediai/internal/docs" // registers the OpenAPI spec
	"github.com/nadzzz/mediai/internal/transport"
	"github.com/nadzzz/mediai/web"
)

// maxAudioBytes caps a voice upload.
const maxAudioBytes = 25 << 20

// Transport implements transport.Transport over HTTP and WebSocket.
type Transport struct {
	port           int
	allowedOrigins []string
	server         *http.Server
}

// New creates a new HTTP transport from config.
func New(cfg config.HTTPConfig) *Transport {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Transport{port: cfg.Port, allowedOrigins: origins}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Router builds the HTTP handler for a conversation.
func (t *Transport) Router(conv transport.Conversation) http.Handler {
	h := &handler{conv: conv, originPatterns: originPatterns(t.allowedOrigins)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors(t.allowedOrigins))

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", h.getSession)
		r.Post("/session/reset", h.resetSession)
		r.Get("/session/ws", h.watchSession)
		r.Post("/turns", h.submitText)
		r.Post("/voice", h.submitVoice)
	})

	// Swagger UI for the docs registered by internal/docs.
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Handle("/*", web.Handler())
	return r
}

// Listen starts the HTTP server and serves the conversation.
func (t *Transport) Listen(ctx context.Context, conv transport.Conversation) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Router(conv),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		_ = t.Close()
	}()

	if err := t.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return t.server.Shutdown(ctx)
}

// originPatterns turns allowed origins into websocket host patterns.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(o, "https://")
		o = strings.TrimPrefix(o, "http://")
		out = append(out, o)
	}
	return out
}

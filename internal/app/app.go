// Package app contains the application core: upload management, chat
// orchestration, question generation, contacts and accounts. Handlers in
// internal/server stay thin and call into this package.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"studyportal/pkg/ai"
	"studyportal/pkg/auth"
	"studyportal/pkg/cache"
	"studyportal/pkg/extract"
	"studyportal/pkg/queue"
	"studyportal/pkg/storage"
	"studyportal/pkg/store"
)

// JobQueue enqueues background question-generation work.
type JobQueue interface {
	Enqueue(ctx context.Context, uploadID string) (queue.JobStatus, error)
}

// Config wires the application's dependencies.
type Config struct {
	Store     store.Store
	Objects   storage.ObjectStore
	Cache     cache.DocTextCache
	Queue     JobQueue
	Generator ai.TextGenerator
	Streamer  ai.StreamGenerator
	OCR       *extract.OCR
	Tokens    *auth.TokenIssuer

	// HTTPClient fetches stored PDFs back for text extraction. Defaults
	// to a client with a 30s timeout.
	HTTPClient *http.Client

	// FetchTimeout bounds the whole context-gathering phase of a chat
	// request.
	FetchTimeout time.Duration

	// WordDelay paces word-by-word SSE streaming. Zero disables pacing.
	WordDelay time.Duration
}

// App is the application core shared by all HTTP handlers and workers.
type App struct {
	store      store.Store
	objects    storage.ObjectStore
	cache      cache.DocTextCache
	queue      JobQueue
	gen        ai.TextGenerator
	streamer   ai.StreamGenerator
	ocr        *extract.OCR
	tokens     *auth.TokenIssuer
	httpClient *http.Client

	fetchTimeout time.Duration
	wordDelay    time.Duration
}

// New validates required dependencies and constructs the App.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Objects == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if cfg.Generator == nil || cfg.Streamer == nil {
		return nil, fmt.Errorf("text generators are required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token issuer is required")
	}
	if cfg.OCR == nil {
		cfg.OCR = extract.NewOCR("", 0, 0)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 20 * time.Second
	}
	return &App{
		store:        cfg.Store,
		objects:      cfg.Objects,
		cache:        cfg.Cache,
		queue:        cfg.Queue,
		gen:          cfg.Generator,
		streamer:     cfg.Streamer,
		ocr:          cfg.OCR,
		tokens:       cfg.Tokens,
		httpClient:   cfg.HTTPClient,
		fetchTimeout: cfg.FetchTimeout,
		wordDelay:    cfg.WordDelay,
	}, nil
}

// Tokens exposes the issuer for the auth middleware.
func (a *App) Tokens() *auth.TokenIssuer { return a.tokens }

package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"studyportal/internal/app"
	"studyportal/internal/config"
	"studyportal/internal/ratelimit"
	"studyportal/internal/server"
	"studyportal/internal/util"
	"studyportal/pkg/ai"
	"studyportal/pkg/auth"
	"studyportal/pkg/cache"
	"studyportal/pkg/extract"
	"studyportal/pkg/queue"
	"studyportal/pkg/storage"
	"studyportal/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel, "studyportal")

	st, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}

	objects, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("failed to init object store: %v", err)
	}

	docCache := cache.NewRedisDocTextCache(cfg.RedisAddr, cfg.RedisPassword, time.Hour)

	jobQueue, err := queue.NewRedisJobQueue(queue.RedisQueueConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		Stream:   cfg.QuestionStream,
		Group:    "workers",
	})
	if err != nil {
		log.Fatalf("failed to init job queue: %v", err)
	}

	groq, err := ai.NewGroqGenerator(cfg.GroqBaseURL, cfg.GroqAPIKey, cfg.GroqModel)
	if err != nil {
		log.Fatalf("failed to init text generator: %v", err)
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, "studyportal", time.Duration(cfg.TokenTTLMinutes)*time.Minute)
	if err != nil {
		log.Fatalf("failed to init token issuer: %v", err)
	}

	limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "studyportal:ratelimit", cfg.RateLimitPerMinute, time.Minute)
	if err != nil {
		log.Fatalf("failed to init rate limiter: %v", err)
	}

	appCore, err := app.New(app.Config{
		Store:        st,
		Objects:      objects,
		Cache:        docCache,
		Queue:        jobQueue,
		Generator:    groq,
		Streamer:     groq,
		OCR:          extract.NewOCR(cfg.OCRLanguages, cfg.OCRDensity, cfg.OCRMaxConcurrent),
		Tokens:       tokens,
		FetchTimeout: time.Duration(cfg.FetchTimeoutSecs) * time.Second,
		WordDelay:    time.Duration(cfg.StreamWordDelayMs) * time.Millisecond,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	jobQueue.Start(context.Background(), cfg.QuestionWorkers, func(ctx context.Context, job queue.JobStatus) error {
		return appCore.GenerateUploadQuestions(ctx, job.UploadID)
	})

	httpServer := server.New(server.Config{
		App:            appCore,
		Limiter:        limiter,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:        addr,
		Handler:     httpServer.Router(),
		ReadTimeout: 15 * time.Second,
		// Chat and upload responses stream over SSE for as long as the
		// model produces output, so no fixed write timeout.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("studyportal server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

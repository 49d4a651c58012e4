package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cardex-cloud/cardex/internal/config"
	"github.com/cardex-cloud/cardex/internal/db"
	dbRedis "github.com/cardex-cloud/cardex/internal/db/redis"
	"github.com/cardex-cloud/cardex/internal/domain"
	logpkg "github.com/cardex-cloud/cardex/internal/logger"
	"github.com/cardex-cloud/cardex/internal/metrics"
	contactrepo "github.com/cardex-cloud/cardex/internal/repository/contact"
	"github.com/cardex-cloud/cardex/internal/repository/embcache"
	chiTransport "github.com/cardex-cloud/cardex/internal/transport/chi"
	openaiTransport "github.com/cardex-cloud/cardex/internal/transport/openai"
	contactuc "github.com/cardex-cloud/cardex/internal/usecase/contact"
	searchuc "github.com/cardex-cloud/cardex/internal/usecase/search"
	"github.com/cardex-cloud/cardex/internal/version"
)

// contactRepository is what both usecases need from storage.
type contactRepository interface {
	contactuc.Repository
	searchuc.Repository
}

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting cardex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	domain.KeyPrefix = cfg.Storage.KeyPrefix

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterExtractionMetrics()

	ctx := context.Background()

	vecCfg := domain.DefaultVectorConfig()
	vecCfg.Model = cfg.Embedding.Model
	vecCfg.Dimensions = cfg.Embedding.Dimensions

	// Storage: redis with a vector index, or in-memory for local runs.
	var (
		repo   contactRepository
		store  db.Store
		pinger chiTransport.Pinger
	)
	switch cfg.Database.Driver {
	case "redis":
		redisStore, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer redisStore.Close()

		if err := redisStore.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}

		if err := contactrepo.EnsureIndex(ctx, redisStore, vecCfg, cfg.Storage.HNSWM, cfg.Storage.HNSWEFConstruct); err != nil {
			logger.Fatal("Failed to ensure contact index", zap.Error(err))
		}

		redisRepo := contactrepo.New(redisStore)
		if total, err := redisRepo.Total(ctx); err == nil {
			logger.Info("Connected to database", zap.Int("contacts_total", total))
		} else {
			logger.Warn("Connected to database, count unavailable", zap.Error(err))
		}

		repo, store, pinger = redisRepo, redisStore, redisStore
	case "memory":
		logger.Warn("Using in-memory contact store, data will not survive restarts")
		repo = contactrepo.NewMemory()
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}

	// Embedder chain: OpenAI -> cache (redis only).
	openaiEmbedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	var embedder domain.Embedder = openaiEmbedder
	if store != nil {
		embedder = embcache.New(
			embedder, store,
			time.Duration(cfg.Embedding.CacheTTLSec)*time.Second,
			metrics.EmbeddingCacheTotal, logger,
		)
	}

	extractor := openaiTransport.NewExtractor(&openaiTransport.ExtractorConfig{
		APIKey:    cfg.Extraction.APIKey,
		BaseURL:   cfg.Extraction.BaseURL,
		Model:     cfg.Extraction.Model,
		MaxTokens: cfg.Extraction.MaxTokens,
		Detail:    cfg.Extraction.Detail,
		Logger:    logger,
	})

	relParams := searchuc.DefaultConfig().Relevance
	relParams.MinCombinedScore = cfg.Search.MinScore
	searchSvc := searchuc.New(repo, embedder, searchuc.Config{
		Relevance:       relParams,
		OverFetchFactor: cfg.Search.OverFetchFactor,
		DefaultLimit:    cfg.Search.DefaultLimit,
		MaxLimit:        cfg.Search.MaxLimit,
	}, logger)

	contactCfg := contactuc.DefaultConfig()
	contactCfg.ImageMaxSide = cfg.Extraction.ImageMaxSide
	contactCfg.TokenBudget = cfg.Extraction.TokenBudget
	contactSvc := contactuc.New(repo, extractor, embedder, contactCfg, logger)

	server := chiTransport.NewServer(contactSvc, searchSvc, pinger, openaiEmbedder, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

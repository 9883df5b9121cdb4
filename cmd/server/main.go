package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-access/internal/config"
	"github.com/stemsi/exstem-access/internal/database"
	"github.com/stemsi/exstem-access/internal/handler"
	"github.com/stemsi/exstem-access/internal/logger"
	"github.com/stemsi/exstem-access/internal/repository"
	"github.com/stemsi/exstem-access/internal/repository/memory"
	"github.com/stemsi/exstem-access/internal/router"
	"github.com/stemsi/exstem-access/internal/service"
	"github.com/stemsi/exstem-access/internal/validator"
	"github.com/stemsi/exstem-access/internal/worker"
)

// storage is the set of stores the services are built from.
type storage struct {
	uow     repository.UnitOfWork
	tests   repository.TestStore
	codes   repository.CodeStore
	results repository.ResultStore
	admins  repository.AdminStore
	events  repository.ProctorEventStore
	close   func()
}

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("storage", cfg.StorageDriver).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ExStem Access")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Storage ───────────────────────────────────────────────────────
	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.close()

	// ─── Connect to Redis (optional) ───────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, store.admins, log)
	codeService := service.NewAccessCodeService(store.codes, store.tests, cfg, log)
	catalogService := service.NewCatalogService(store.tests, rdb, cfg, log)
	testService := service.NewTestService(store.uow, store.tests, log)
	examService := service.NewExamService(codeService, catalogService, store.uow, log)
	resultService := service.NewResultService(store.results, store.tests, log)
	proctorService := service.NewProctorService(codeService, store.events, rdb, log)
	mediaService := service.NewMediaService(cfg)

	bootstrapAdmin(ctx, cfg, authService, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(authService, log),
		Candidate: handler.NewCandidateHandler(examService, log),
		Test:      handler.NewTestHandler(testService, catalogService, codeService, resultService, proctorService, log),
		Media:     handler.NewMediaHandler(mediaService),
		WS:        handler.NewWSHandler(proctorService, log, cfg.AllowedOrigins),
		System:    handler.NewSystemHandler(rdb, cfg.StorageDriver, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workerDone := startWorkers(workerCtx, store.events, rdb, log)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg, log)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and let them flush their buffers.
	workerCancel()
	select {
	case <-workerDone:
	case <-time.After(5 * time.Second):
		log.Warn().Msg("Workers did not stop in time")
	}

	log.Info().Msg("Shutdown complete")
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
		m := memory.New()
		return &storage{
			uow:     m,
			tests:   m.Tests(),
			codes:   m.Codes(),
			results: m.Results(),
			admins:  m.Admins(),
			events:  m.ProctorEvents(),
			close:   func() {},
		}, nil
	case config.StorageDriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return &storage{
			uow:     repository.NewPostgresUnitOfWork(pool),
			tests:   repository.NewTestRepository(pool),
			codes:   repository.NewAccessCodeRepository(pool),
			results: repository.NewResultRepository(pool),
			admins:  repository.NewAdminRepository(pool),
			events:  repository.NewProctorEventRepository(pool),
			close:   pool.Close,
		}, nil
	}
	return nil, errors.New("unknown STORAGE_DRIVER " + cfg.StorageDriver)
}

// startWorkers runs the Redis-backed workers. The returned channel closes
// once all of them have returned.
func startWorkers(ctx context.Context, events repository.ProctorEventStore, rdb *redis.Client, log zerolog.Logger) <-chan struct{} {
	done := make(chan struct{})
	if rdb == nil {
		close(done)
		return done
	}

	proctorWorker := worker.NewProctorWorker(events, rdb, log)
	go func() {
		defer close(done)
		proctorWorker.Start(ctx)
	}()
	return done
}

func bootstrapAdmin(ctx context.Context, cfg *config.Config, auth *service.AuthService, log zerolog.Logger) {
	if cfg.BootstrapAdminUsername == "" || cfg.BootstrapAdminPassword == "" {
		return
	}
	_, err := auth.CreateAdmin(ctx, cfg.BootstrapAdminUsername, cfg.BootstrapAdminPassword)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrDuplicateUser):
		log.Debug().Str("username", cfg.BootstrapAdminUsername).Msg("Bootstrap admin already exists")
	default:
		log.Error().Err(err).Msg("Failed to create bootstrap admin")
	}
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alcyxob/protocol-engine/internal/api"
	"alcyxob/protocol-engine/internal/assembler"
	"alcyxob/protocol-engine/internal/config"
	"alcyxob/protocol-engine/internal/generation"
	"alcyxob/protocol-engine/internal/knowledge"
	"alcyxob/protocol-engine/internal/logger"
	"alcyxob/protocol-engine/internal/repository"
	"alcyxob/protocol-engine/internal/repository/memory"
	"alcyxob/protocol-engine/internal/repository/mongo"
	"alcyxob/protocol-engine/internal/safety"
	"alcyxob/protocol-engine/internal/sanitize"
	"alcyxob/protocol-engine/internal/service"
	"alcyxob/protocol-engine/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type repositories struct {
	users     repository.UserRepository
	plans     repository.ProtocolPlanRepository
	instances repository.ProtocolInstanceRepository
	close     func()
}

// @title Protocol Engine API
// @version 1.0
// @description Generates and assigns health protocols for trainers and their customers.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	logg, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	if err := run(cfg, logg); err != nil {
		logg.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg config.Config, logg *zap.Logger) error {
	ctx := context.Background()
	logg.Info("Starting protocol engine", zap.String("dbDriver", cfg.Database.Driver), zap.String("provider", cfg.Generation.Provider))

	// --- Knowledge base ---
	base, err := loadKnowledge(cfg.Knowledge)
	if err != nil {
		return err
	}
	logg.Info("Condition table loaded", zap.Int("conditions", len(base.All())))

	// --- Repositories ---
	repos, err := openRepositories(ctx, cfg.Database, logg.Named("db"))
	if err != nil {
		return err
	}
	defer repos.close()

	// --- Snapshot storage ---
	var snapshots storage.FileStorage
	if cfg.S3.BucketName != "" {
		snapshots, err = storage.NewS3Storage(ctx, cfg.S3, logg.Named("s3"))
		if err != nil {
			return fmt.Errorf("initialize S3 storage: %w", err)
		}
	} else {
		logg.Warn("No S3 bucket configured; artifact snapshots are kept in memory")
		snapshots = storage.NewMemoryStorage("")
	}

	// --- Generation pipeline ---
	completer, err := newCompleter(ctx, cfg.Generation)
	if err != nil {
		return err
	}
	sanitizer := sanitize.Default()
	validator := safety.NewValidator(base, safety.DefaultLimits())
	orchestrator := generation.NewOrchestrator(completer, sanitizer, generation.Config{
		Provider:       cfg.Generation.Provider,
		Timeout:        cfg.Generation.Timeout,
		AttemptTimeout: cfg.Generation.AttemptTimeout,
		RatePerSecond:  cfg.Generation.RatePerSecond,
		Burst:          cfg.Generation.Burst,
		Retry: generation.RetryPolicy{
			MaxAttempts:    cfg.Generation.MaxAttempts,
			InitialBackoff: cfg.Generation.InitialBackoff,
			MaxBackoff:     cfg.Generation.MaxBackoff,
			Multiplier:     2,
			JitterFactor:   0.2,
		},
	}, logg.Named("generation"))

	// --- Services ---
	protocolService := service.NewProtocolService(base, sanitizer, validator, orchestrator, assembler.New(base), logg.Named("protocol"))
	authService := service.NewAuthService(repos.users, cfg.JWT.Secret, cfg.JWT.Expiration)
	trainerService := service.NewTrainerService(repos.users, validator)
	planService := service.NewPlanService(repos.plans, repos.instances, repos.users, protocolService, sanitizer, snapshots, logg.Named("plans"))
	customerService := service.NewCustomerService(repos.instances, snapshots, logg.Named("customer"))

	// --- HTTP ---
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(logg.Named("http")))
	api.SetupRoutes(router, cfg.JWT.Secret, cfg.Server.RequestTimeout,
		authService, trainerService, protocolService, planService, customerService)

	server := &http.Server{
		Addr:        cfg.Server.Address,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// Generation can run for the whole request timeout.
		WriteTimeout: cfg.Server.RequestTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logg.Info("Server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("listen: %w", err)
	case sig := <-quit:
		logg.Info("Shutting down server", zap.String("signal", sig.String()))
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logg.Info("Server exiting")
	return nil
}

func loadKnowledge(cfg config.KnowledgeConfig) (*knowledge.Base, error) {
	if cfg.File == "" {
		return knowledge.Default()
	}
	base, err := knowledge.LoadFile(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("load condition table %s: %w", cfg.File, err)
	}
	return base, nil
}

func openRepositories(ctx context.Context, cfg config.DatabaseConfig, logg *zap.Logger) (*repositories, error) {
	if cfg.Driver == "memory" {
		logg.Warn("Using in-memory repositories; data is lost on restart")
		return &repositories{
			users:     memory.NewUserRepository(),
			plans:     memory.NewProtocolPlanRepository(),
			instances: memory.NewProtocolInstanceRepository(),
			close:     func() {},
		}, nil
	}

	client, err := mongo.ConnectDB(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	db := client.Database(cfg.Name)
	logg.Info("Database connection established", zap.String("database", cfg.Name))

	indexCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := mongo.EnsureIndexes(indexCtx, db); err != nil {
		_ = mongo.DisconnectDB(client)
		return nil, err
	}

	return &repositories{
		users:     mongo.NewMongoUserRepository(db),
		plans:     mongo.NewMongoProtocolPlanRepository(db),
		instances: mongo.NewMongoProtocolInstanceRepository(db),
		close: func() {
			if err := mongo.DisconnectDB(client); err != nil {
				logg.Error("Failed to disconnect MongoDB", zap.Error(err))
			}
		},
	}, nil
}

func newCompleter(ctx context.Context, cfg config.GenerationConfig) (generation.Completer, error) {
	switch cfg.Provider {
	case "gemini":
		c, err := generation.NewGeminiCompleter(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("initialize gemini completer: %w", err)
		}
		return c, nil
	default:
		c, err := generation.NewOpenAICompleter(cfg.APIKey, cfg.BaseURL, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("initialize openai completer: %w", err)
		}
		return c, nil
	}
}

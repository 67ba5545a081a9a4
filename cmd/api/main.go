package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tourdesk/internal/api"
	"tourdesk/internal/auth"
	"tourdesk/internal/config"
	"tourdesk/internal/database"
	"tourdesk/internal/domain"
	"tourdesk/internal/events"
	"tourdesk/internal/google"
	"tourdesk/internal/logging"
	"tourdesk/internal/metrics"
	"tourdesk/internal/models"
	"tourdesk/internal/repository"
	"tourdesk/internal/service"
	"tourdesk/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	sheetsCacheRefresh  = 10 * time.Minute
	healthCheckInterval = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database.Path, database.Options{BusyTimeoutMS: cfg.Database.BusyTimeoutMS}, logging.Component(&logger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	cache := initCache(cfg, redisClient, &logger)

	bus := events.NewEventBus()
	tokens := auth.NewTokenService(cfg.API.Auth.JWTSecret, cfg.API.Auth.TokenTTL)
	services := api.Services{
		Bookings:       service.NewBookingService(db, service.NewBookingValidator(nil), bus, cache, logging.Component(&logger, "bookings")),
		Tours:          service.NewTourService(db, cache, logging.Component(&logger, "tours")),
		Customers:      service.NewCustomerService(db, cache, logging.Component(&logger, "customers")),
		Dashboard:      service.NewDashboardService(db, cache, logging.Component(&logger, "dashboard")),
		Auth:           service.NewAuthService(db, db, tokens, logging.Component(&logger, "auth")),
		Tokens:         tokens,
		BookingLimiter: cache,
	}

	if err := seed(ctx, cfg, services, &logger); err != nil {
		return err
	}

	startSheetsSync(ctx, cfg, db, redisClient, bus, &logger)
	startTelegramNotifier(ctx, cfg, bus, &logger)
	startMetrics(ctx, cfg, &logger)

	backup := database.NewBackupService(db, cfg.Backup, logging.Component(&logger, "backup"))
	go backup.Start(ctx)

	grpcServer, err := api.NewGRPCServer(cfg.API, db, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("create grpc server")
		return err
	}
	go grpcServer.WatchHealth(ctx, healthCheckInterval)

	httpServer := api.NewHTTPServer(cfg.API, services, logging.Component(&logger, "http"))

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initCache prefers redis with an in-process fallback; without redis the
// in-process store is used alone.
func initCache(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.CacheRepository {
	memory := repository.NewMemoryCacheRepository(cfg.Redis.StatsTTL)
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisCacheRepository(redisClient, cfg.Redis.StatsTTL)
	return repository.NewFailoverCacheRepository(primary, memory, logging.Component(logger, "cache"))
}

func seed(ctx context.Context, cfg *config.Config, services api.Services, logger *zerolog.Logger) error {
	if cfg.Seed.ToursPath != "" {
		tours, err := loadTours(cfg.Seed.ToursPath)
		if err != nil {
			logger.Error().Err(err).Str("tours_path", cfg.Seed.ToursPath).Msg("load seed tours")
			return err
		}
		n, err := services.Tours.Seed(ctx, tours)
		if err != nil {
			return fmt.Errorf("seed tours: %w", err)
		}
		if n > 0 {
			logger.Info().Int("count", n).Msg("seed tours inserted")
		}
	}

	if cfg.Seed.AdminEmail != "" {
		created, err := services.Auth.EnsureAdmin(ctx, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword)
		if err != nil {
			return fmt.Errorf("ensure admin: %w", err)
		}
		if created {
			logger.Info().Str("email", cfg.Seed.AdminEmail).Msg("admin account created")
		}
	}
	return nil
}

func loadTours(path string) ([]models.Tour, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var toursConfig struct {
		Tours []models.Tour `yaml:"tours"`
	}
	if err := yaml.Unmarshal(data, &toursConfig); err != nil {
		return nil, err
	}
	return toursConfig.Tours, nil
}

func startSheetsSync(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	redisClient *redis.Client,
	bus *events.EventBus,
	logger *zerolog.Logger,
) {
	if !cfg.Google.Enabled() {
		logger.Info().Msg("google sheets sync disabled")
		return
	}

	sheets, err := google.NewSheetsService(ctx, cfg.Google.GoogleCredentialsFile, cfg.Google.BookingSpreadSheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return
	}
	if err := sheets.TestConnection(ctx); err != nil {
		email, _ := google.ServiceAccountEmail(cfg.Google.GoogleCredentialsFile)
		logger.Warn().Err(err).Str("service_account", email).Msg("google sheets unreachable, share the spreadsheet with the service account")
		return
	}
	if err := sheets.EnsureHeader(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to write sheet header")
	}
	if err := sheets.WarmUpCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to warm up sheet row cache")
	}
	go sheets.RefreshCache(ctx, sheetsCacheRefresh)

	w := worker.NewSheetsWorker(db, sheets, redisClient, worker.RetryPolicyFromConfig(cfg.Sync), logging.Component(logger, "sheets-worker"))
	go w.Start(ctx)
	service.NewSyncEnqueuer(w, logging.Component(logger, "sync")).Subscribe(bus)

	logger.Info().Msg("google sheets connected")
}

func startTelegramNotifier(ctx context.Context, cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if !cfg.Telegram.Enabled() {
		return
	}

	client := &http.Client{Timeout: cfg.Telegram.Timeout}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Telegram.BotToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram bot init failed, continuing without notifications")
		return
	}
	bot.Debug = cfg.Telegram.Debug

	notifier := service.NewTelegramNotifier(bot, cfg.Telegram.ChatIDs, logging.Component(logger, "telegram"))
	notifier.Subscribe(bus)
	go notifier.Run(ctx)
	logger.Info().Str("bot", bot.Self.UserName).Int("chats", len(cfg.Telegram.ChatIDs)).Msg("telegram notifications enabled")
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	metrics.Register()
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	go func() {
		if err := grpcServer.Serve(); err != nil {
			logger.Error().Err(err).Msg("grpc server stopped")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Str("grpc_addr", grpcServer.Addr()).Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case serveErr = <-errCh:
		logger.Error().Err(serveErr).Msg("http server stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.Shutdown(shutdownCtx)
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return serveErr
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

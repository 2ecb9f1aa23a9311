package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"dailyquest/internal/api"
	"dailyquest/internal/batch"
	"dailyquest/internal/config"
	"dailyquest/internal/metrics"
	"dailyquest/internal/middleware"
	"dailyquest/internal/notify"
	"dailyquest/internal/repository"
	"dailyquest/internal/service"
	"dailyquest/pkg/auth"
	"dailyquest/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	flag "github.com/spf13/pflag"
)

func main() {
	configPath := flag.StringP("config", "c", "./", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	loc, err := cfg.Location()
	if err != nil {
		zapLogger.Fatal("Failed to load timezone", zap.Error(err))
	}

	repo, err := repository.New(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	if err = repo.Migrate(); err != nil {
		zapLogger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	store, err := repository.NewRedisStore(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer store.Close()

	hub := notify.NewHub()
	defer hub.Close()

	channels := []notify.Channel{{Name: "websocket", Pusher: hub}}
	if cfg.Notifier.TelegramEnabled {
		sender, err := notify.NewTelegramSender(cfg.Auth.TelegramBotToken, cfg.Auth.Debug)
		if err != nil {
			zapLogger.Fatal("Failed to initialize telegram sender", zap.Error(err))
		}
		channels = append(channels, notify.Channel{Name: "telegram", Pusher: sender})
	}

	tokens, err := auth.NewTokenProvider(cfg.Auth.JWT)
	if err != nil {
		zapLogger.Fatal("Failed to initialize token provider", zap.Error(err))
	}
	telegramAuth := auth.NewTelegramAuth(cfg.Auth.TelegramBotToken, cfg.Auth.Debug)

	searchService, err := service.NewSearchService(store, cfg.SearchCacheSize)
	if err != nil {
		zapLogger.Fatal("Failed to initialize search", zap.Error(err))
	}

	settingsService := service.NewSettingsService(store, cfg.Defaults.Settings, cfg.Defaults.ExpTable)
	userService := service.NewUserService(repo, settingsService)
	authService := service.NewAuthService(userService, tokens, store)
	notificationService := service.NewNotificationService(repo, repo, notify.NewDispatcher(channels...))
	achievementService := service.NewAchievementService(repo, repo, settingsService, notificationService,
		cfg.Notifier.AchievementWorkers, cfg.Notifier.AchievementQueueSize)
	questService := service.NewQuestService(repo, repo, settingsService, searchService, achievementService, loc)
	questLogService := service.NewQuestLogService(repo)
	preferenceQuestService := service.NewPreferenceQuestService(repo, questService)

	achievementService.Start()
	defer achievementService.Stop()

	runner := batch.NewRunner(batch.Deps{
		Quests:       repo,
		Users:        repo,
		QuestLogs:    repo,
		Jobs:         repo,
		Indexer:      searchService,
		Notifier:     notificationService,
		Achievements: achievementService,
	}, cfg.Batch.ChunkSize, loc)

	if cfg.Batch.Enabled {
		scheduler, err := batch.NewScheduler(runner, cfg.Batch.Schedule, cfg.Batch.Timeout)
		if err != nil {
			zapLogger.Fatal("Failed to initialize batch scheduler", zap.Error(err))
		}
		scheduler.Start()
		defer scheduler.Stop()
		zapLogger.Info("Batch scheduler started", zap.Int("entries", scheduler.Entries()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiter := middleware.NewRateLimiter(cfg.RateLimit)
	limiter.StartCleanup(time.Minute, ctx.Done())
	authorization := middleware.NewAuthorization(userService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.Middleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	corsConfig.AllowHeaders = []string{"*"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour

	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	authenticated := []gin.HandlerFunc{tokens.Middleware(), limiter.Handler()}
	admin := []gin.HandlerFunc{tokens.Middleware(), limiter.Handler(), authorization.AdminOnly()}

	public := router.Group("/api/v1", limiter.Handler())
	api.NewAuthRoutes(public, authService, telegramAuth, cfg.Auth.Cookie)

	a := router.Group("/api/v1")
	api.NewUserRoutes(a, userService, authenticated...)
	api.NewQuestRoutes(a, questService, questLogService, authenticated...)
	api.NewPreferenceQuestRoutes(a, preferenceQuestService, authenticated...)
	api.NewAchievementRoutes(a, achievementService, authenticated...)
	api.NewNotificationRoutes(a, notificationService, hub, authenticated...)
	api.NewAdminRoutes(a, settingsService, achievementService, runner, admin...)

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router,
	}

	go func() {
		zapLogger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shut down server gracefully", zap.Error(err))
	}
}

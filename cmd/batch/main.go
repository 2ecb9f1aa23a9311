package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dailyquest/internal/batch"
	"dailyquest/internal/config"
	"dailyquest/internal/notify"
	"dailyquest/internal/repository"
	"dailyquest/internal/service"
	"dailyquest/pkg/logger"
	"go.uber.org/zap"

	flag "github.com/spf13/pflag"
)

type options struct {
	configPath string
	job        string
	at         string
	date       string
}

func parseFlags() options {
	var opts options
	flag.StringVarP(&opts.configPath, "config", "c", "./", "directory containing config.yaml")
	flag.StringVarP(&opts.job, "job", "j", "", "job to run: deadline, reset or perfect-day")
	flag.StringVar(&opts.at, "at", "", "target time for deadline and reset jobs (RFC3339, default now)")
	flag.StringVar(&opts.date, "date", "", "logged date for the perfect-day job (2006-01-02, default yesterday)")
	flag.Parse()
	return opts
}

func main() {
	opts := parseFlags()
	if opts.job == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err = logger.Initialize(cfg.Logger); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, cfg, opts); err != nil {
		if errors.Is(err, batch.ErrJobAlreadyCompleted) {
			zapLogger.Info("Job already completed for these parameters", zap.String("job", opts.job))
			return
		}
		zapLogger.Error("Job failed", zap.String("job", opts.job), zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	zapLogger.Info("Job completed", zap.String("job", opts.job))
}

func run(ctx context.Context, cfg *config.Config, opts options) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	repo, err := repository.New(cfg.Database)
	if err != nil {
		return err
	}
	defer repo.Close()

	store, err := repository.NewRedisStore(cfg.Redis)
	if err != nil {
		return err
	}
	defer store.Close()

	var pusher service.Pusher
	if cfg.Notifier.TelegramEnabled {
		sender, err := notify.NewTelegramSender(cfg.Auth.TelegramBotToken, cfg.Auth.Debug)
		if err != nil {
			return err
		}
		pusher = notify.NewDispatcher(notify.Channel{Name: "telegram", Pusher: sender})
	}

	searchService, err := service.NewSearchService(store, cfg.SearchCacheSize)
	if err != nil {
		return err
	}
	settingsService := service.NewSettingsService(store, cfg.Defaults.Settings, cfg.Defaults.ExpTable)
	notificationService := service.NewNotificationService(repo, repo, pusher)
	achievementService := service.NewAchievementService(repo, repo, settingsService, notificationService, 1, 1)

	runner := batch.NewRunner(batch.Deps{
		Quests:       repo,
		Users:        repo,
		QuestLogs:    repo,
		Jobs:         repo,
		Indexer:      searchService,
		Notifier:     notificationService,
		Achievements: achievementService,
	}, cfg.Batch.ChunkSize, loc)

	if cfg.Batch.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Batch.Timeout)
		defer cancel()
	}

	switch opts.job {
	case batch.JobDeadline, batch.JobReset:
		if opts.at == "" {
			return runner.Run(ctx, opts.job)
		}
		at, err := time.ParseInLocation(time.RFC3339, opts.at, loc)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		if opts.job == batch.JobDeadline {
			return runner.RunDeadline(ctx, at.In(loc).Truncate(time.Minute))
		}
		return runner.RunReset(ctx, at.In(loc))
	case batch.JobPerfectDay:
		if opts.date == "" {
			return runner.Run(ctx, opts.job)
		}
		date, err := time.Parse(time.DateOnly, opts.date)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		return runner.RunPerfectDay(ctx, date)
	}
	return runner.Run(ctx, opts.job)
}

package config

import (
	"fmt"
	"strings"
	"time"

	"dailyquest/internal/api"
	"dailyquest/internal/batch"
	"dailyquest/internal/middleware"
	"dailyquest/internal/model"
	"dailyquest/internal/repository"
	"dailyquest/pkg/auth"
	"dailyquest/pkg/logger"

	"github.com/spf13/viper"
)

const (
	configName   = "config"
	configFormat = "yaml"
	envPrefix    = "APP"
)

type Config struct {
	Server    ServerConfig               `yaml:"server"`
	Database  repository.Config          `yaml:"database"`
	Redis     repository.RedisConfig     `yaml:"redis"`
	Auth      AuthConfig                 `yaml:"auth"`
	Notifier  NotifierConfig             `yaml:"notifier"`
	Batch     BatchConfig                `yaml:"batch"`
	RateLimit middleware.RateLimitConfig `yaml:"rateLimit"`
	Defaults  DefaultsConfig             `yaml:"defaults"`
	Logger    logger.Config              `yaml:"logger"`

	Timezone        string `yaml:"timezone"`
	SearchCacheSize int    `yaml:"searchCacheSize"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type AuthConfig struct {
	JWT              auth.JWTConfig   `yaml:"jwt"`
	Cookie           api.CookieConfig `yaml:"cookie"`
	TelegramBotToken string           `yaml:"telegramBotToken"`
	Debug            bool             `yaml:"debug"`
}

type NotifierConfig struct {
	TelegramEnabled      bool `yaml:"telegramEnabled"`
	AchievementWorkers   int  `yaml:"achievementWorkers"`
	AchievementQueueSize int  `yaml:"achievementQueueSize"`
}

type BatchConfig struct {
	Enabled   bool           `yaml:"enabled"`
	Schedule  batch.Schedule `yaml:"schedule"`
	ChunkSize int            `yaml:"chunkSize"`
	Timeout   time.Duration  `yaml:"timeout"`
}

type DefaultsConfig struct {
	Settings model.SystemSettings `yaml:"settings"`
	ExpTable model.ExpTable       `yaml:"expTable"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdownTimeout", 15*time.Second)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("notifier.achievementWorkers", 4)
	v.SetDefault("notifier.achievementQueueSize", 256)
	v.SetDefault("batch.enabled", true)
	v.SetDefault("batch.schedule.deadline", batch.DefaultSchedule.Deadline)
	v.SetDefault("batch.schedule.reset", batch.DefaultSchedule.Reset)
	v.SetDefault("batch.schedule.perfectDay", batch.DefaultSchedule.PerfectDay)
	v.SetDefault("batch.chunkSize", 100)
	v.SetDefault("batch.timeout", 10*time.Minute)
	v.SetDefault("rateLimit.requestsPerSecond", 10)
	v.SetDefault("rateLimit.burst", 20)
	v.SetDefault("defaults.settings.questClearExp", 10)
	v.SetDefault("defaults.settings.questClearGold", 5)
	v.SetDefault("defaults.settings.maxRewardCount", 10)
	v.SetDefault("timezone", "Asia/Seoul")
	v.SetDefault("searchCacheSize", 1024)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")
}

// Load reads config.yaml from path. Every key can be overridden from the
// environment, e.g. APP_DATABASE_PASSWORD for database.password.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.AddConfigPath(path)
	v.SetConfigType(configFormat)

	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.JWT.Secret == "" {
		return nil, fmt.Errorf("auth.jwt.secret must be set")
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

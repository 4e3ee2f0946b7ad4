package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"realestate-watch/internal/scheduler"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	FeedURL            string
	ListingURLTemplate string

	StateBackend string
	StatePath    string

	Window           time.Duration
	Tolerance        time.Duration
	RetentionHorizon time.Duration
	ThrottleMin      time.Duration
	ThrottleMax      time.Duration
	FeedTimeout      time.Duration
	ScrapeTimeout    time.Duration
	MaxBatch         int
	Location         *time.Location

	PlanCron     string
	DispatchCron string
	PruneCron    string

	TelegramToken    string
	TelegramChat     string
	TelegramThreadID *int

	HTTPPort string

	LogFormat string
	LogDebug  bool
	LogFile   string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		DBHost:             envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:             envOrDefault("POSTGRES_EXPOSED_PORT", "5432"),
		DBUser:             envOrDefault("POSTGRES_USER", "postgres"),
		DBPassword:         envOrDefault("POSTGRES_PASSWORD", "postgres"),
		DBName:             envOrDefault("POSTGRES_DB", "realestate"),
		DBSSLMode:          envOrDefault("POSTGRES_SSLMODE", "disable"),
		FeedURL:            envOrDefault("FEED_URL", "https://www.realestatecroatia.com/hrv/rss.asp"),
		ListingURLTemplate: envOrDefault("LISTING_URL_TEMPLATE", "http://www.realestatecroatia.com/hrv/detail.asp?id={id}"),
		StateBackend:       envOrDefault("STATE_BACKEND", "file"),
		StatePath:          envOrDefault("STATE_PATH", "job_data/job_runner_data.json"),
		PlanCron:           envOrDefault("PLAN_CRON", "59 23 * * *"),
		DispatchCron:       envOrDefault("DISPATCH_CRON", scheduler.DefaultDispatchSpec),
		PruneCron:          envOrDefault("PRUNE_CRON", "0 6 * * *"),
		TelegramToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChat:       os.Getenv("TELEGRAM_CHAT_ID"),
		HTTPPort:           envOrDefault("HTTP_PORT", "3000"),
		LogFormat:          envOrDefault("LOG_FORMAT", "text"),
		LogFile:            os.Getenv("LOG_FILE"),
	}

	var err error
	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"WINDOW_DURATION", 5 * time.Hour, &cfg.Window},
		{"DISPATCH_TOLERANCE", time.Minute, &cfg.Tolerance},
		{"RETENTION_HORIZON", 24 * time.Hour, &cfg.RetentionHorizon},
		{"THROTTLE_MIN", time.Second, &cfg.ThrottleMin},
		{"THROTTLE_MAX", 3 * time.Second, &cfg.ThrottleMax},
		{"FEED_TIMEOUT", 30 * time.Second, &cfg.FeedTimeout},
		{"SCRAPE_TIMEOUT", 2 * time.Minute, &cfg.ScrapeTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = envOrDuration(d.key, d.fallback); err != nil {
			return cfg, err
		}
	}

	if cfg.MaxBatch, err = envOrInt("MAX_BATCH", 5000); err != nil {
		return cfg, err
	}

	if cfg.LogDebug, err = envOrBool("LOG_DEBUG", false); err != nil {
		return cfg, err
	}

	if cfg.TelegramThreadID, err = envOrIntPtr("TELEGRAM_CHAT_THREAD_ID"); err != nil {
		return cfg, err
	}

	if cfg.Location, err = time.LoadLocation(envOrDefault("TIMEZONE", "Local")); err != nil {
		return cfg, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Window <= 0 {
		errs = append(errs, errors.New("WINDOW_DURATION must be positive"))
	}
	if c.Tolerance <= 0 {
		errs = append(errs, errors.New("DISPATCH_TOLERANCE must be positive"))
	}
	if c.RetentionHorizon <= 0 {
		errs = append(errs, errors.New("RETENTION_HORIZON must be positive"))
	}
	if c.ThrottleMin < 0 || c.ThrottleMax < c.ThrottleMin {
		errs = append(errs, errors.New("THROTTLE_MIN must be >= 0 and <= THROTTLE_MAX"))
	}
	if c.MaxBatch <= 0 {
		errs = append(errs, errors.New("MAX_BATCH must be positive"))
	}
	if c.DispatchCron != "" && c.Window > 0 && c.Tolerance > 0 {
		if err := scheduler.CheckCoverage(c.DispatchCron, c.Location, c.Window, c.Tolerance, time.Now()); err != nil {
			errs = append(errs, fmt.Errorf("DISPATCH_CRON: %w", err))
		}
	}
	if c.StateBackend != "file" && c.StateBackend != "sqlite" {
		errs = append(errs, fmt.Errorf("unknown STATE_BACKEND %q", c.StateBackend))
	}
	if c.StatePath == "" {
		errs = append(errs, errors.New("missing STATE_PATH"))
	}
	if (c.TelegramToken == "") != (c.TelegramChat == "") {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together"))
	}
	if c.DBHost == "" || c.DBUser == "" || c.DBName == "" {
		errs = append(errs, errors.New("missing database configuration"))
	}
	return errors.Join(errs...)
}

func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChat != ""
}

func (c Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envOrInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func envOrIntPtr(key string) (*int, error) {
	val := os.Getenv(key)
	if val == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &parsed, nil
}

func envOrDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func envOrBool(key string, fallback bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

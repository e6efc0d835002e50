package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Where projects come from. Root is scanned for navtreedata.js files;
	// RemoteURL adds one project served over HTTP.
	Root          string
	RemoteURL     string
	RemoteName    string
	RemoteAPIKey  string
	HTTPRetries   int
	HTTPRetryWait time.Duration

	// Auth
	APIKey string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Job state
	JobTTL time.Duration

	// Reload on change
	Watch         bool
	WatchDebounce time.Duration

	// Checks run after every load
	ValidateDeep  bool
	ValidatePages bool

	OutlineDepth int
	StatsWindow  time.Duration
	LogLevel     string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		Root:          os.Getenv("DOCNAV_ROOT"),
		RemoteURL:     os.Getenv("DOCNAV_REMOTE_URL"),
		RemoteName:    os.Getenv("DOCNAV_REMOTE_NAME"),
		RemoteAPIKey:  os.Getenv("DOCNAV_REMOTE_API_KEY"),
		HTTPRetries:   envInt("HTTP_RETRIES", 3),
		HTTPRetryWait: envDuration("HTTP_RETRY_WAIT", time.Second),

		APIKey: os.Getenv("DOCNAV_API_KEY"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		Watch:         envBool("WATCH", true),
		WatchDebounce: envDuration("WATCH_DEBOUNCE", 500*time.Millisecond),

		ValidateDeep:  envBool("VALIDATE_DEEP", true),
		ValidatePages: envBool("VALIDATE_PAGES", false),

		OutlineDepth: envInt("OUTLINE_DEPTH", 0),
		StatsWindow:  envDuration("STATS_WINDOW", 1*time.Hour),
		LogLevel:     envOr("LOG_LEVEL", "info"),
	}

	if cfg.Root == "" && cfg.RemoteURL == "" {
		cfg.Root = "./docs"
	}
	if cfg.RemoteURL != "" && cfg.RemoteName == "" {
		cfg.RemoteName = "remote"
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.HTTPRetries <= 0 {
		cfg.HTTPRetries = 3
	}
	if cfg.HTTPRetryWait <= 0 {
		cfg.HTTPRetryWait = time.Second
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.WatchDebounce <= 0 {
		cfg.WatchDebounce = 500 * time.Millisecond
	}
	if cfg.OutlineDepth < 0 {
		cfg.OutlineDepth = 0
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.Root == "" && c.RemoteURL == "" {
		return fmt.Errorf("DOCNAV_ROOT or DOCNAV_REMOTE_URL is required")
	}
	if c.Root != "" {
		fi, err := os.Stat(c.Root)
		if err != nil {
			return fmt.Errorf("DOCNAV_ROOT: %w", err)
		}
		if !fi.IsDir() {
			return fmt.Errorf("DOCNAV_ROOT: %s is not a directory", c.Root)
		}
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT: %q is not a number", c.Port)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

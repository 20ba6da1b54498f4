package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Feed       FeedConfig       `yaml:"feed"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Events     EventsConfig     `yaml:"events"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-"`
}

// FeedConfig describes the upstream machine status feed.
type FeedConfig struct {
	URL               string            `yaml:"url"`
	OrganizationID    string            `yaml:"organization_id"`
	AdditionalHeaders string            `yaml:"additional_headers"` // "key=value,key2=value2"
	Headers           map[string]string `yaml:"headers"`
	HTTPProxy         string            `yaml:"http_proxy"`
	TimeoutSeconds    int               `yaml:"timeout_seconds"`
	Timeout           time.Duration     `yaml:"-"`
	IntervalSeconds   int               `yaml:"interval_seconds"`
	Interval          time.Duration     `yaml:"-"` // Ignored by YAML parser
	Debug             bool              `yaml:"debug"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// EventsConfig controls publishing of transition events to NATS.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// applyEnv lets the variables used by earlier deployments override the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("WASHING_MACHINE_API_URL"); v != "" {
		cfg.Feed.URL = v
	}
	if v := os.Getenv("ALLIANCELS_ORGANIZATION_ID"); v != "" {
		cfg.Feed.OrganizationID = v
	}
	if v := os.Getenv("API_ADDITIONAL_HEADERS"); v != "" {
		cfg.Feed.AdditionalHeaders = v
	}
	if v := os.Getenv("POLLING_INTERVAL"); v != "" {
		// Milliseconds, rounded up to whole seconds.
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.Feed.IntervalSeconds = (ms + 999) / 1000
		} else {
			log.Printf("ignoring invalid POLLING_INTERVAL %q", v)
		}
	}
	if os.Getenv("DEBUG") == "true" {
		cfg.Feed.Debug = true
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 5
	}
	cfg.Server.CacheTTL = time.Duration(cfg.Server.CacheTTLSeconds) * time.Second

	if cfg.Feed.IntervalSeconds <= 0 {
		cfg.Feed.IntervalSeconds = 30
	}
	cfg.Feed.Interval = time.Duration(cfg.Feed.IntervalSeconds) * time.Second

	if cfg.Feed.TimeoutSeconds <= 0 {
		cfg.Feed.TimeoutSeconds = 10
	}
	cfg.Feed.Timeout = time.Duration(cfg.Feed.TimeoutSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Events.Subject == "" {
		cfg.Events.Subject = "laundry.transitions"
	}
}

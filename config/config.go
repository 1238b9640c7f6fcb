package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Auth         AuthConfig         `yaml:"auth"`
	Notification NotificationConfig `yaml:"notification"`
	Jobs         JobsConfig         `yaml:"jobs"`
	Display      DisplayConfig      `yaml:"display"`
	Log          LogConfig          `yaml:"log"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	CookieSecure    bool    `yaml:"cookie_secure"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogQueries             bool   `yaml:"log_queries"`
}

// AuthConfig holds the phone login and session settings.
type AuthConfig struct {
	JWTSecret         string        `yaml:"jwt_secret"`
	SessionTTLMinutes int           `yaml:"session_ttl_minutes"`
	SessionTTL        time.Duration `yaml:"-"`
	OTPTTLSeconds     int           `yaml:"otp_ttl_seconds"`
	OTPTTL            time.Duration `yaml:"-"`
	OTPLength         int           `yaml:"otp_length"`
	OTPMaxAttempts    int           `yaml:"otp_max_attempts"`
	OTPSendPerMinute  float64       `yaml:"otp_send_per_minute"`
	ChallengeStore    string        `yaml:"challenge_store"` // memory or redis
	Redis             RedisConfig   `yaml:"redis"`
}

// RedisConfig is only read when the challenge store is redis.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// NotificationConfig configures OTP delivery.
type NotificationConfig struct {
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Sender     string           `yaml:"sender"` // log or gateway
	Gateway    GatewayConfig    `yaml:"gateway"`
}

// WorkerPoolConfig holds the configuration for the delivery worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// GatewayConfig describes the HTTP SMS gateway.
type GatewayConfig struct {
	URL       string            `yaml:"url"`
	Headers   map[string]string `yaml:"headers"`
	HTTPProxy string            `yaml:"http_proxy"`
}

// JobsConfig holds the job form settings.
type JobsConfig struct {
	NameLookupDebounceMS int           `yaml:"name_lookup_debounce_ms"`
	NameLookupDebounce   time.Duration `yaml:"-"`
	DraftTTLMinutes      int           `yaml:"draft_ttl_minutes"`
	DraftTTL             time.Duration `yaml:"-"`
	MaxDevices           int           `yaml:"max_devices"`
}

// DisplayConfig controls how timestamps are rendered in views.
type DisplayConfig struct {
	Timezone string `yaml:"timezone"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
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

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills every unset or invalid value with its default.
func (cfg *Config) ApplyDefaults() {
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
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Auth.SessionTTLMinutes <= 0 {
		cfg.Auth.SessionTTLMinutes = 7 * 24 * 60
	}
	cfg.Auth.SessionTTL = time.Duration(cfg.Auth.SessionTTLMinutes) * time.Minute
	if cfg.Auth.OTPTTLSeconds <= 0 {
		cfg.Auth.OTPTTLSeconds = 300
	}
	cfg.Auth.OTPTTL = time.Duration(cfg.Auth.OTPTTLSeconds) * time.Second
	if cfg.Auth.OTPLength <= 0 {
		cfg.Auth.OTPLength = 6
	}
	if cfg.Auth.OTPMaxAttempts <= 0 {
		cfg.Auth.OTPMaxAttempts = 5
	}
	if cfg.Auth.OTPSendPerMinute <= 0 {
		cfg.Auth.OTPSendPerMinute = 3
	}
	if cfg.Auth.ChallengeStore == "" {
		cfg.Auth.ChallengeStore = "memory"
	}

	if cfg.Notification.WorkerPool.Size <= 0 {
		log.Printf("notification.worker_pool.size is not set or invalid; defaulting to 1")
		cfg.Notification.WorkerPool.Size = 1
	}
	if cfg.Notification.Sender == "" {
		cfg.Notification.Sender = "log"
	}

	if cfg.Jobs.NameLookupDebounceMS <= 0 {
		cfg.Jobs.NameLookupDebounceMS = 500
	}
	cfg.Jobs.NameLookupDebounce = time.Duration(cfg.Jobs.NameLookupDebounceMS) * time.Millisecond
	if cfg.Jobs.DraftTTLMinutes <= 0 {
		cfg.Jobs.DraftTTLMinutes = 30
	}
	cfg.Jobs.DraftTTL = time.Duration(cfg.Jobs.DraftTTLMinutes) * time.Minute
	if cfg.Jobs.MaxDevices <= 0 {
		cfg.Jobs.MaxDevices = 10000
	}

	if cfg.Display.Timezone == "" {
		cfg.Display.Timezone = "Asia/Kolkata"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Location resolves the display timezone, falling back to UTC.
func (d DisplayConfig) Location() *time.Location {
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		log.Printf("invalid display.timezone %q: %v; using UTC", d.Timezone, err)
		return time.UTC
	}
	return loc
}

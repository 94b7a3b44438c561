// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`   // trace|debug|info|warn|error
	Format   string `yaml:"format" envconfig:"FORMAT"` // json|console
	Sampling bool   `yaml:"sampling" envconfig:"SAMPLING"`
}

type HTTPConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	RedeemTimeout   time.Duration `yaml:"redeem_timeout" envconfig:"REDEEM_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	// code-bearing requests allowed per caller per minute; 0 disables the limit
	CodeRateLimit int `yaml:"code_rate_limit" envconfig:"CODE_RATE_LIMIT"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url" envconfig:"URL"`
	MaxConns int32  `yaml:"max_conns" envconfig:"MAX_CONNS"`
}

type RedisConfig struct {
	URL      string        `yaml:"url" envconfig:"URL"`
	Password string        `yaml:"password" envconfig:"PASSWORD"`
	DB       int           `yaml:"db" envconfig:"DB"`
	TTL      time.Duration `yaml:"ttl" envconfig:"TTL"`
}

type SecurityConfig struct {
	CodeHashSecret string `yaml:"code_hash_secret" envconfig:"CODE_HASH_SECRET"`
	JWTSecret      string `yaml:"jwt_secret" envconfig:"JWT_SECRET"`
}

type PinCodeConfig struct {
	Timezone string `yaml:"timezone" envconfig:"TIMEZONE"`
}

type SchedulerConfig struct {
	RenewalCron string        `yaml:"renewal_cron" envconfig:"CRON"`
	LockTTL     time.Duration `yaml:"lock_ttl" envconfig:"LOCK_TTL"`
	RunTimeout  time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT"`
}

type NotifyConfig struct {
	TelegramToken string  `yaml:"telegram_token" envconfig:"TELEGRAM_TOKEN"`
	AdminIDs      []int64 `yaml:"admin_ids" envconfig:"ADMIN_IDS"`
	Language      string  `yaml:"language" envconfig:"LANGUAGE"` // en|fa
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Security  SecurityConfig  `yaml:"security"`
	PinCode   PinCodeConfig   `yaml:"pincode"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Notify    NotifyConfig    `yaml:"notify"`

	Runtime RuntimeConfig `yaml:"-" ignored:"true"`
}

// LoadConfig reads the YAML file at path (optional when empty or missing),
// then a .env file if present, then applies PIN_* environment overrides.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	_ = godotenv.Load()
	if err := envconfig.Process("PIN", &cfg); err != nil {
		return nil, fmt.Errorf("env config: %w", err)
	}

	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.ReadTimeout <= 0 {
		cfg.HTTP.ReadTimeout = 10 * time.Second
	}
	if cfg.HTTP.WriteTimeout <= 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.RedeemTimeout <= 0 {
		cfg.HTTP.RedeemTimeout = 10 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		cfg.HTTP.ShutdownTimeout = 15 * time.Second
	}
	if cfg.HTTP.CodeRateLimit < 0 {
		cfg.HTTP.CodeRateLimit = 0
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.PinCode.Timezone == "" {
		cfg.PinCode.Timezone = "UTC"
	}
	if cfg.Notify.Language == "" {
		cfg.Notify.Language = "en"
	}
	if cfg.Scheduler.RenewalCron == "" {
		// 00:05 on the first day of every month
		cfg.Scheduler.RenewalCron = "5 0 1 * *"
	}
	if cfg.Scheduler.LockTTL <= 0 {
		cfg.Scheduler.LockTTL = 30 * time.Minute
	}
	if cfg.Scheduler.RunTimeout <= 0 {
		cfg.Scheduler.RunTimeout = 25 * time.Minute
	}
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if len(c.Security.CodeHashSecret) < 16 {
		return errors.New("security.code_hash_secret must be at least 16 bytes")
	}
	if _, err := time.LoadLocation(c.PinCode.Timezone); err != nil {
		return fmt.Errorf("pincode.timezone: %w", err)
	}
	return nil
}

// Location returns the time zone calendar periods are evaluated in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.PinCode.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}

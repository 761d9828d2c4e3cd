package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string          `yaml:"env"`
	DBDSN       string          `yaml:"db_dsn"`
	HTTP        HTTPConfig      `yaml:"http"`
	Auth        AuthConfig      `yaml:"auth"`
	Redis       RedisConfig     `yaml:"redis"`
	Telegram    TelegramConfig  `yaml:"telegram"`
	Admin       AdminConfig     `yaml:"admin"`
	Scheduler   SchedulerConfig `yaml:"scheduler"`
	Notify      NotifyConfig    `yaml:"notify"`

	// Sources файлы, из которых была загружена конфигурация
	Sources []string `yaml:"-"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	AllowOrigins    []string      `yaml:"allow_origins"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

// RedisConfig пустой Addr означает хранение отозванных токенов в PostgreSQL
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// TelegramConfig пустой токен отключает бота и уведомления
type TelegramConfig struct {
	Token string `yaml:"token"`
}

type AdminConfig struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type SchedulerConfig struct {
	SweepInterval      time.Duration `yaml:"sweep_interval"`
	GenerationInterval time.Duration `yaml:"generation_interval"`
	WeeksAhead         int           `yaml:"weeks_ahead"`
	Timezone           string        `yaml:"timezone"`
}

type NotifyConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// Default значения, поверх которых применяются файл и окружение
func Default() *Config {
	return &Config{
		Environment: "development",
		HTTP: HTTPConfig{
			Addr:            ":8080",
			RateLimitPerSec: 10,
			RateLimitBurst:  20,
			CacheTTL:        30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL:   24 * time.Hour,
			BcryptCost: 10,
		},
		Admin: AdminConfig{Username: "admin"},
		Scheduler: SchedulerConfig{
			SweepInterval:      time.Minute,
			GenerationInterval: 24 * time.Hour,
			WeeksAhead:         4,
			Timezone:           "UTC",
		},
		Notify: NotifyConfig{Workers: 2, QueueSize: 100},
	}
}

// Load читает .env, затем CONFIG_FILE (yaml), затем переменные окружения
func Load() (*Config, error) {
	var sources []string
	// .env необязателен
	if err := godotenv.Load(".env"); err == nil {
		sources = append(sources, ".env")
	}

	cfg, err := LoadFrom(os.Getenv("CONFIG_FILE"), os.Getenv)
	if err != nil {
		return nil, err
	}
	cfg.Sources = append(sources, cfg.Sources...)
	return cfg, nil
}

// LoadFrom собирает конфигурацию из yaml файла (если path не пуст) и getenv
func LoadFrom(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		cfg.Sources = append(cfg.Sources, path)
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	var errs criterio.FieldErrorsBuilder

	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = errs.Append(key, errors.New("must be an integer"))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = errs.Append(key, fmt.Errorf("must be a duration like 30s or 5m: %w", err))
				return
			}
			*dst = d
		}
	}

	str("ENV", &c.Environment)
	str("DB_DSN", &c.DBDSN)

	str("HTTP_ADDR", &c.HTTP.Addr)
	if v := getenv("ALLOW_ORIGINS"); v != "" {
		c.HTTP.AllowOrigins = strings.Split(v, ",")
	}
	if v := getenv("RATE_LIMIT_PER_SEC"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = errs.Append("RATE_LIMIT_PER_SEC", errors.New("must be a number"))
		} else {
			c.HTTP.RateLimitPerSec = f
		}
	}
	integer("RATE_LIMIT_BURST", &c.HTTP.RateLimitBurst)
	duration("CACHE_TTL", &c.HTTP.CacheTTL)

	str("JWT_SECRET", &c.Auth.JWTSecret)
	duration("TOKEN_TTL", &c.Auth.TokenTTL)
	integer("BCRYPT_COST", &c.Auth.BcryptCost)

	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	integer("REDIS_DB", &c.Redis.DB)

	str("TELEGRAM_TOKEN", &c.Telegram.Token)

	str("ADMIN_USERNAME", &c.Admin.Username)
	str("ADMIN_EMAIL", &c.Admin.Email)
	str("ADMIN_PASSWORD", &c.Admin.Password)

	duration("SWEEP_INTERVAL", &c.Scheduler.SweepInterval)
	duration("GENERATION_INTERVAL", &c.Scheduler.GenerationInterval)
	integer("TEMPLATE_WEEKS_AHEAD", &c.Scheduler.WeeksAhead)
	str("TIMEZONE", &c.Scheduler.Timezone)

	integer("NOTIFY_WORKERS", &c.Notify.Workers)
	integer("NOTIFY_QUEUE_SIZE", &c.Notify.QueueSize)

	return errs.ToError()
}

// Validate проверяет конфигурацию; requireDB=false для режима --in-memory
func (c *Config) Validate(requireDB bool) error {
	dsn := func(s string) error {
		if requireDB && s == "" {
			return errors.New("is required")
		}
		return nil
	}
	return criterio.ValidateStruct(
		criterio.Run("db_dsn", c.DBDSN, dsn),
		criterio.Run("auth.jwt_secret", c.Auth.JWTSecret, minLength(32)),
		criterio.Run("auth.token_ttl", c.Auth.TokenTTL, positive),
		criterio.Run("auth.bcrypt_cost", c.Auth.BcryptCost, between(4, 31)),
		criterio.Run("http.rate_limit_burst", c.HTTP.RateLimitBurst, between(1, 1<<20)),
		criterio.Run("scheduler.sweep_interval", c.Scheduler.SweepInterval, positive),
		criterio.Run("scheduler.generation_interval", c.Scheduler.GenerationInterval, positive),
		criterio.Run("scheduler.weeks_ahead", c.Scheduler.WeeksAhead, between(1, 52)),
		criterio.Run("scheduler.timezone", c.Scheduler.Timezone, validTimezone),
		criterio.Run("notify.workers", c.Notify.Workers, between(1, 64)),
		criterio.Run("notify.queue_size", c.Notify.QueueSize, between(1, 100000)),
		c.validateAdmin(),
	)
}

func (c *Config) validateAdmin() error {
	if c.Admin.Email == "" {
		return nil
	}
	var errs criterio.FieldErrorsBuilder
	if c.Admin.Username == "" {
		errs = errs.Append("admin.username", errors.New("is required when admin.email is set"))
	}
	if len(c.Admin.Password) < 8 {
		errs = errs.Append("admin.password", errors.New("must be at least 8 characters"))
	}
	return errs.ToError()
}

// Location часовой пояс для генерации слотов по шаблонам
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func minLength(n int) func(string) error {
	return func(s string) error {
		if len(s) < n {
			return fmt.Errorf("must be at least %d characters", n)
		}
		return nil
	}
}

func positive(d time.Duration) error {
	if d <= 0 {
		return errors.New("must be positive")
	}
	return nil
}

func between(lo, hi int) func(int) error {
	return func(n int) error {
		if n < lo || n > hi {
			return fmt.Errorf("must be between %d and %d", lo, hi)
		}
		return nil
	}
}

func validTimezone(name string) error {
	if _, err := time.LoadLocation(name); err != nil {
		return fmt.Errorf("unknown timezone %q", name)
	}
	return nil
}

// Package config содержит логику чтения конфигурации сервиса Bistro Boss.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/mmeshcher/bistro-boss/internal/notify"
)

// Драйверы хранилища.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
)

const (
	defaultRunAddress  = "localhost:5000"
	defaultStoreDriver = StoreDriverPostgres
)

// Config содержит параметры конфигурации сервиса Bistro Boss.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	StoreDriver string `env:"STORE_DRIVER"`
	DatabaseURI string `env:"DATABASE_URI"`

	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"bistroBoss"`

	AccessTokenSecret string `env:"ACCESS_TOKEN_SECRET"`

	StripeSecretKey string `env:"STRIPE_SECRET_KEY"`
	StripeAPIURL    string `env:"STRIPE_API_URL"`
	PaymentCurrency string `env:"PAYMENT_CURRENCY" envDefault:"usd"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	MailHost     string `env:"MAIL_HOST"`
	MailPort     int    `env:"MAIL_PORT" envDefault:"587"`
	MailUsername string `env:"MAIL_USERNAME"`
	MailPassword string `env:"MAIL_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"no-reply@bistro-boss.local"`
	MailTo       string `env:"MAIL_TO"`

	NotifyMaxRetries int `env:"NOTIFY_MAX_RETRIES" envDefault:"3"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envStoreDriver := cfg.StoreDriver
	envDatabaseURI := cfg.DatabaseURI
	envSecret := cfg.AccessTokenSecret

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.StoreDriver, "s", defaultStoreDriver, "store driver: postgres or mongo")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AccessTokenSecret, "k", "", "access token signing secret")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envStoreDriver != "" {
		cfg.StoreDriver = envStoreDriver
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envSecret != "" {
		cfg.AccessTokenSecret = envSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = defaultStoreDriver
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMongo:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.NotifyMaxRetries < 0 {
		return fmt.Errorf("notify max retries must not be negative, got %d", c.NotifyMaxRetries)
	}
	return nil
}

// Mailer собирает параметры SMTP для отправителя квитанций.
func (c *Config) Mailer() notify.MailerConfig {
	return notify.MailerConfig{
		Host:     c.MailHost,
		Port:     c.MailPort,
		Username: c.MailUsername,
		Password: c.MailPassword,
		From:     c.MailFrom,
		To:       c.MailTo,
	}
}

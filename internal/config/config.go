package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config holds the process-wide settings shared by the api and worker binaries.
// Database settings live in storage/postgres.Config.
type Config struct {
	HTTP    HTTPConfig    `env:", prefix=HTTP_"`
	Mailer  MailerConfig  `env:", prefix=MAILER_"`
	Contact ContactConfig `env:", prefix=CONTACT_"`
	Worker  WorkerConfig  `env:", prefix=WORKER_"`
	Admin   AdminConfig   `env:", prefix=ADMIN_"`

	LogLevel    string `env:"LOG_LEVEL,default=info"`
	RunWorkers  bool   `env:"RUN_WORKERS,default=false"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE,default=true"`
}

type HTTPConfig struct {
	Addr            string        `env:"ADDR,default=:8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT,default=5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT,default=5s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=15s"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES,default=65536"`
	TrustedProxies  []string      `env:"TRUSTED_PROXIES"`
}

// MailerConfig configures SMTP delivery. An empty Host selects the
// logging sender.
type MailerConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT,default=587"`
	Login    string `env:"LOGIN"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM,default=noreply@powermaps.tech"`
	FromName string `env:"FROM_NAME,default=PowerMaps"`
}

type ContactConfig struct {
	Recipient      string        `env:"RECIPIENT,default=saif@powermaps.tech"`
	MaxRetries     int           `env:"MAX_RETRIES,default=3"`
	WebhookURL     string        `env:"WEBHOOK_URL"`
	WebhookTimeout time.Duration `env:"WEBHOOK_TIMEOUT,default=10s"`
}

type WorkerConfig struct {
	Count           int           `env:"COUNT,default=10"`
	Queues          []string      `env:"QUEUES,default=email,webhooks,default"`
	LockDuration    time.Duration `env:"LOCK_DURATION,default=1m"`
	PollMin         time.Duration `env:"POLL_MIN,default=1s"`
	PollMax         time.Duration `env:"POLL_MAX,default=60s"`
	RetryBase       time.Duration `env:"RETRY_BASE,default=10s"`
	RetryMax        time.Duration `env:"RETRY_MAX,default=10m"`
	JanitorInterval time.Duration `env:"JANITOR_INTERVAL,default=30s"`
}

// AdminConfig enables the /admin routes when both fields are set.
// PasswordHash is a bcrypt hash.
type AdminConfig struct {
	User         string `env:"USER"`
	PasswordHash string `env:"PASSWORD_HASH"`
}

func (a AdminConfig) Enabled() bool {
	return a.User != "" && a.PasswordHash != ""
}

// to help with testing
var envProcess = envconfig.Process

// Load reads envPath (if it exists) into the environment and then parses
// the environment into a Config.
func Load(ctx context.Context, envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}

	var cfg Config
	if err := envProcess(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.HTTP.Addr) == "" {
		problems = append(problems, "HTTP_ADDR is required")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		problems = append(problems, "HTTP_MAX_BODY_BYTES must be positive")
	}
	if c.HTTP.RequestTimeout <= 0 {
		problems = append(problems, "HTTP_REQUEST_TIMEOUT must be positive")
	}

	if strings.TrimSpace(c.Contact.Recipient) == "" {
		problems = append(problems, "CONTACT_RECIPIENT is required")
	}
	if c.Contact.MaxRetries < 0 || c.Contact.MaxRetries > 20 {
		problems = append(problems, "CONTACT_MAX_RETRIES must be between 0 and 20")
	}
	if c.Contact.WebhookURL != "" {
		u, err := url.Parse(c.Contact.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			problems = append(problems, "CONTACT_WEBHOOK_URL must be an absolute http(s) URL")
		}
	}

	if c.Mailer.Host != "" {
		if c.Mailer.Port < 1 || c.Mailer.Port > 65535 {
			problems = append(problems, "MAILER_PORT must be between 1 and 65535")
		}
		if strings.TrimSpace(c.Mailer.From) == "" {
			problems = append(problems, "MAILER_FROM is required when MAILER_HOST is set")
		}
	}

	if c.Worker.Count < 1 {
		problems = append(problems, "WORKER_COUNT must be at least 1")
	}
	if len(c.Worker.Queues) == 0 {
		problems = append(problems, "WORKER_QUEUES must not be empty")
	}
	if c.Worker.PollMin <= 0 || c.Worker.PollMax < c.Worker.PollMin {
		problems = append(problems, "WORKER_POLL_MIN must be positive and not exceed WORKER_POLL_MAX")
	}
	if c.Worker.RetryBase <= 0 || c.Worker.RetryMax < c.Worker.RetryBase {
		problems = append(problems, "WORKER_RETRY_BASE must be positive and not exceed WORKER_RETRY_MAX")
	}
	if c.Worker.LockDuration <= 0 {
		problems = append(problems, "WORKER_LOCK_DURATION must be positive")
	}
	if c.Worker.JanitorInterval <= 0 {
		problems = append(problems, "WORKER_JANITOR_INTERVAL must be positive")
	}

	if (c.Admin.User == "") != (c.Admin.PasswordHash == "") {
		problems = append(problems, "ADMIN_USER and ADMIN_PASSWORD_HASH must be set together")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}

	return nil
}

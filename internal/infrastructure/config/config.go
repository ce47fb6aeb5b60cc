package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config is the API process configuration.
type Config struct {
	Port       string `env:"PORT,       default=8080"`
	Env        string `env:"ENV,        default=development"`
	LogLevel   string `env:"LOG_LEVEL,  default=info"`
	BcryptCost int    `env:"BCRYPT_COST, default=10"`

	JWT          JWTConfig
	Mongo        MongoConfig
	Redis        RedisConfig
	RabbitMQ     RabbitMQConfig
	Conversion   ConversionConfig
	InitialAdmin InitialAdminConfig
}

type JWTConfig struct {
	Secret string `env:"JWT_SECRET, required"`
	// TTL of zero issues tokens without an exp claim.
	TTL time.Duration `env:"JWT_TTL, default=24h"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=crm"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	DB       int    `env:"REDIS_DB,       default=0"`
	Password string `env:"REDIS_PASSWORD"`
}

// RabbitMQConfig leaves URL empty to log events instead of publishing them.
type RabbitMQConfig struct {
	URL     string `env:"RABBITMQ_URL"`
	Workers int    `env:"EVENT_WORKERS, default=4"`
}

type ConversionConfig struct {
	LockTTL       time.Duration `env:"CONVERSION_LOCK_TTL,       default=30s"`
	SweepInterval time.Duration `env:"CONVERSION_SWEEP_INTERVAL, default=1m"`
	SweepAfter    time.Duration `env:"CONVERSION_SWEEP_AFTER,    default=5m"`
}

// InitialAdminConfig seeds the first admin when no admin exists yet. An empty
// email disables seeding.
type InitialAdminConfig struct {
	Name     string `env:"INITIAL_ADMIN_NAME, default=Administrator"`
	Email    string `env:"INITIAL_ADMIN_EMAIL"`
	Password string `env:"INITIAL_ADMIN_PASSWORD"`
}

// NotifierConfig is the mail worker configuration.
type NotifierConfig struct {
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`
	RabbitMQ string `env:"RABBITMQ_URL, required"`

	SMTP SMTPConfig
}

type SMTPConfig struct {
	Host        string        `env:"SMTP_HOST, required"`
	Port        int           `env:"SMTP_PORT, default=587"`
	Username    string        `env:"SMTP_USERNAME"`
	Password    string        `env:"SMTP_PASSWORD"`
	From        string        `env:"SMTP_FROM, required"`
	SSL         bool          `env:"SMTP_SSL,  default=false"`
	DialTimeout time.Duration `env:"SMTP_DIAL_TIMEOUT, default=10s"`
}

// IsDevelopment reports whether human-readable logs should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *NotifierConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.TTL < 0 {
		return fmt.Errorf("JWT_TTL must not be negative")
	}
	if c.InitialAdmin.Email != "" && len(c.InitialAdmin.Password) < 6 {
		return fmt.Errorf("INITIAL_ADMIN_PASSWORD must be at least 6 characters")
	}
	return nil
}

// LoadNotifier reads the mail worker configuration.
func LoadNotifier(ctx context.Context) (*NotifierConfig, error) {
	return loadNotifier(ctx, envconfig.OsLookuper())
}

func loadNotifier(ctx context.Context, lookuper envconfig.Lookuper) (*NotifierConfig, error) {
	var cfg NotifierConfig
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

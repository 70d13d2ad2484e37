// Package config reads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"settlement/entity"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	HTTPAddr    string       `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel    logrus.Level `env:"LOG_LEVEL" envDefault:"info"`
	Storage     string       `env:"STORAGE" envDefault:"postgres"`
	PostgresURL string       `env:"POSTGRES_URL"`
	RedisAddr   string       `env:"REDIS_ADDR"`

	PubNubPublishKey   string `env:"PUBNUB_PUBLISH_KEY"`
	PubNubSubscribeKey string `env:"PUBNUB_SUBSCRIBE_KEY"`
	PubNubSecretKey    string `env:"PUBNUB_SECRET_KEY"`
	PubNubUserID       string `env:"PUBNUB_USER_ID" envDefault:"settlement-ledger"`

	PlatformFeeRate  decimal.Decimal `env:"PLATFORM_FEE_RATE" envDefault:"0.02"`
	StatusPrecedence []string        `env:"STATUS_PRECEDENCE" envSeparator:","`
	OperationTimeout time.Duration   `env:"OPERATION_TIMEOUT" envDefault:"5s"`
	MaxAttempts      int             `env:"MAX_ATTEMPTS" envDefault:"3"`
	SummaryCacheTTL  time.Duration   `env:"SUMMARY_CACHE_TTL" envDefault:"1m"`

	// Precedence is parsed from StatusPrecedence.
	Precedence entity.Precedence `env:"-"`
}

// Load parses and validates the environment.
func Load() (Config, error) {
	var cfg Config
	err := env.ParseWithOptions(&cfg, env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(decimal.Decimal{}): func(v string) (any, error) {
				return decimal.NewFromString(v)
			},
		},
	})
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage {
	case StoragePostgres:
		if c.PostgresURL == "" {
			return errors.New("POSTGRES_URL is required for postgres storage")
		}
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for postgres storage")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}

	if c.PlatformFeeRate.IsNegative() || c.PlatformFeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("platform fee rate must be in [0, 1), got %s", c.PlatformFeeRate)
	}

	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	}

	if c.OperationTimeout <= 0 {
		return fmt.Errorf("operation timeout must be positive, got %s", c.OperationTimeout)
	}

	c.Precedence = entity.DefaultPrecedence
	if len(c.StatusPrecedence) > 0 {
		p, err := entity.ParsePrecedence(c.StatusPrecedence)
		if err != nil {
			return err
		}
		c.Precedence = p
	}

	return nil
}

func (c Config) PubNubEnabled() bool {
	return c.PubNubPublishKey != "" && c.PubNubSubscribeKey != ""
}

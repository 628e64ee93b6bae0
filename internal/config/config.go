package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config хранит параметры запуска шарда. Читается из окружения.
type Config struct {
	Port    string `env:"SHARD_PORT" envDefault:"8080"`
	ShardID uint8  `env:"SHARD_ID" envDefault:"0"`

	DBPath      string `env:"SHARD_DB_PATH" envDefault:"data/shard.db"`
	CatalogDir  string `env:"SHARD_CATALOG_DIR" envDefault:"data/catalog"`
	JournalPath string `env:"SHARD_JOURNAL_PATH" envDefault:"data/pending.imjl"`

	// Ёмкости полос очереди записи.
	CriticalQueueSize   int `env:"SHARD_QUEUE_CRITICAL" envDefault:"4096"`
	BestEffortQueueSize int `env:"SHARD_QUEUE_BEST_EFFORT" envDefault:"1024"`

	RetryInitial time.Duration `env:"SHARD_RETRY_INITIAL" envDefault:"50ms"`
	RetryMax     time.Duration `env:"SHARD_RETRY_MAX" envDefault:"5s"`

	// Как часто акторы проверяют истёкшие баффы.
	BuffExpiryInterval time.Duration `env:"SHARD_BUFF_EXPIRY_INTERVAL" envDefault:"500ms"`
	// Ёмкость почтового ящика актора.
	MailboxSize int `env:"SHARD_MAILBOX_SIZE" envDefault:"256"`

	ShutdownTimeout time.Duration `env:"SHARD_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load читает конфиг из окружения и проверяет его.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Port == "":
		return fmt.Errorf("SHARD_PORT is required")
	case c.CriticalQueueSize <= 0 || c.BestEffortQueueSize <= 0:
		return fmt.Errorf("queue sizes must be positive")
	case c.BuffExpiryInterval <= 0:
		return fmt.Errorf("SHARD_BUFF_EXPIRY_INTERVAL must be positive")
	case c.MailboxSize <= 0:
		return fmt.Errorf("SHARD_MAILBOX_SIZE must be positive")
	}
	return nil
}

package engine

import (
	"time"

	"github.com/Mun1z/Imgeneus/internal/domain"
)

// Config хранит параметры запуска движка
type Config struct {
	ShardID uint8

	MailboxSize        int
	BuffExpiryInterval time.Duration

	// Стартовые параметры нового персонажа (нет записи в хранилище).
	StartProfile domain.Profile
	StartGold    int64
}

// NewConfig создает конфиг по умолчанию
func NewConfig() Config {
	return Config{
		MailboxSize:        256,
		BuffExpiryInterval: 500 * time.Millisecond,
		StartProfile: domain.Profile{
			Level:      1,
			Attributes: domain.Attributes{Str: 10, Dex: 10, Rec: 10, Int: 10, Luc: 10, Wis: 10},
			HP:         200,
			SP:         100,
			MP:         100,
			MoveSpeed:  2,
		},
		StartGold: 1000,
	}
}

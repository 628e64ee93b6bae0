package domain

import (
	"time"

	"github.com/Mun1z/Imgeneus/internal/core/types"
	"github.com/Mun1z/Imgeneus/internal/persist"
)

// Enqueuer - вход очереди отложенной записи. Не блокирует и не возвращает ошибок.
type Enqueuer interface {
	Enqueue(kind persist.ActionKind, owner types.EntityID, payload persist.Payload)
}

// TickScheduler запускает fn каждые period внутри контекста сущности.
// Возвращаемая функция отменяет расписание; уже поставленный тик может
// всё равно выполниться, поэтому fn обязана проверять актуальность.
type TickScheduler interface {
	Every(period time.Duration, fn func()) (stop func())
}

// Catalog - справочник предметов и умений. Только чтение.
type Catalog interface {
	LookupItem(itemType, typeID uint8) (*ItemTemplate, bool)
	LookupSkill(id uint16, level uint8) (*Skill, bool)
}

// Env - внешние зависимости одной сущности.
type Env struct {
	Sink  NotificationSink
	Queue Enqueuer
	Ticks TickScheduler
	Now   func() time.Time
}

func (env Env) withDefaults() Env {
	if env.Sink == nil {
		env.Sink = NopSink{}
	}
	if env.Queue == nil {
		env.Queue = nopQueue{}
	}
	if env.Ticks == nil {
		env.Ticks = nopTicks{}
	}
	if env.Now == nil {
		env.Now = time.Now
	}
	return env
}

type nopQueue struct{}

func (nopQueue) Enqueue(persist.ActionKind, types.EntityID, persist.Payload) {}

type nopTicks struct{}

func (nopTicks) Every(time.Duration, func()) func() { return func() {} }

package persist

import (
	"context"

	"github.com/Mun1z/Imgeneus/internal/core/types"
)

//go:generate go tool mockgen -destination=./mocks/store_mock.go -package=mocks . Store

// Store - долговременное хранилище, в которое очередь применяет записи.
// Apply обязан быть идемпотентным: при повторной доставке состояние не дублируется.
type Store interface {
	Apply(ctx context.Context, e Entry) error
	LoadCharacter(ctx context.Context, owner types.EntityID) (CharacterRecord, error)
}

// CharacterRecord - всё, что хранится о персонаже.
type CharacterRecord struct {
	Owner  types.EntityID
	Gold   int64
	Vitals *VitalsRecord // nil - персонаж ещё не сохранялся
	Items  []ItemRecord
	Buffs  []BuffRecord
}

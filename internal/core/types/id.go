package types

import (
	"fmt"
	"strconv"

	"github.com/Mun1z/Imgeneus/internal/core/types/enums"
)

// EntityID - 64-битный идентификатор сущности шарда (персонаж, моб).
//
// Формат битов (от старших к младшим):
//
//	[ Shard (8) | Kind (8) | Generation (16) | Index (32) ]
//
// Index для персонажей совпадает с ID персонажа в хранилище,
// поэтому ID переживает перезапуск процесса.
type EntityID uint64

// NilEntityID - идентификатор ещё не назначен.
const NilEntityID EntityID = 0

const (
	bitsIndex = 32
	bitsGen   = 16
	bitsKind  = 8
	bitsShard = 8

	shiftGen   = bitsIndex
	shiftKind  = bitsIndex + bitsGen
	shiftShard = bitsIndex + bitsGen + bitsKind

	maskIndex = (1 << bitsIndex) - 1
	maskGen   = (1 << bitsGen) - 1
	maskKind  = (1 << bitsKind) - 1
	maskShard = (1 << bitsShard) - 1
)

// PackEntityID собирает EntityID из составных частей.
// Диапазоны не проверяются: лишние старшие биты отрезаются масками.
func PackEntityID(shard uint8, kind enums.EntityKind, gen uint16, index uint32) EntityID {
	return EntityID(
		(uint64(shard)&maskShard)<<shiftShard |
			(uint64(kind)&maskKind)<<shiftKind |
			(uint64(gen)&maskGen)<<shiftGen |
			uint64(index)&maskIndex,
	)
}

// Index возвращает индекс сущности (для персонажа - ID в базе).
func (id EntityID) Index() uint32 {
	return uint32(id & maskIndex)
}

// Generation возвращает поколение слота.
func (id EntityID) Generation() uint16 {
	return uint16((id >> shiftGen) & maskGen)
}

// Kind возвращает тип сущности.
func (id EntityID) Kind() enums.EntityKind {
	return enums.EntityKind((id >> shiftKind) & maskKind)
}

// Shard возвращает идентификатор шарда.
func (id EntityID) Shard() uint8 {
	return uint8((id >> shiftShard) & maskShard)
}

func (id EntityID) IsNil() bool {
	return id == NilEntityID
}

// String - для логов.
func (id EntityID) String() string {
	if id.IsNil() {
		return "<nil>"
	}
	return fmt.Sprintf("[shard=%d kind=%s gen=%d idx=%d]", id.Shard(), id.Kind(), id.Generation(), id.Index())
}

// MarshalJSON пишет ID строкой: JS не умеет uint64 без потери точности.
func (id EntityID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + strconv.FormatUint(uint64(id), 10) + `"`), nil
}

// UnmarshalJSON принимает и строку, и число.
func (id *EntityID) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) > 1 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" {
		*id = NilEntityID
		return nil
	}

	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*id = EntityID(v)
	return nil
}

// ParseEntityID разбирает десятичное представление (токен сессии).
func ParseEntityID(s string) (EntityID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return NilEntityID, fmt.Errorf("parse entity id %q: %w", s, err)
	}
	return EntityID(v), nil
}

// MarshalString - десятичная форма без кавычек (токен сессии, ключ подписки).
func (id EntityID) MarshalString() string {
	return strconv.FormatUint(uint64(id), 10)
}

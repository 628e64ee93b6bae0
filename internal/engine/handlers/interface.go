package handlers

import (
	"encoding/json"
	"time"

	"github.com/Mun1z/Imgeneus/internal/core/types"
	"github.com/Mun1z/Imgeneus/internal/domain"
)

// EntityFinder отправляет работу в контекст другой сущности.
// Service неявно реализует этот интерфейс.
type EntityFinder interface {
	// Dispatch ставит fn в почтовый ящик цели. fn выполнится позже,
	// внутри контекста цели; результат вызывающему не возвращается.
	// Занятая цель (полный ящик или загрузка) даёт domain.ErrTargetBusy.
	Dispatch(target types.EntityID, fn func(target domain.Killable)) error
}

// Context передает хендлеру состояние персонажа.
// Хендлер выполняется в контексте Actor и может менять только его.
type Context struct {
	Finder  EntityFinder
	Catalog domain.Catalog
	Actor   *domain.Character
	Now     time.Time
}

// Result - возвращает результат выполнения команды.
// Хендлер НЕ пишет клиенту напрямую, он возвращает данные.
type Result struct {
	Msg     string // Текст для клиента
	MsgType string // INFO, ERROR
	Data    any    // Полезная нагрузка ответа (снимок, слоты)
}

// HandlerFunc - это контракт для любой команды (MOVE_ITEM, CAST, etc).
type HandlerFunc func(ctx Context, payload json.RawMessage) (Result, error)

// EmptyResult - вспомогательная функция для пустого успешного ответа
func EmptyResult() Result {
	return Result{}
}

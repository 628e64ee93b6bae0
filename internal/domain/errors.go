package domain

import "errors"

// Некорректный запрос клиента: возможная попытка читерства. Состояние не меняется.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrItemNotFound   = errors.New("item not found")
	ErrInvalidSlot    = errors.New("invalid equipment slot")
	ErrBuffNotFound   = errors.New("buff not found")
	ErrEntityDead     = errors.New("entity is dead")
)

// Исчерпание ёмкости. Отдаются вызывающему как типизированный результат.
var (
	ErrNoFreeSlot        = errors.New("no free inventory slot")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrTargetBusy        = errors.New("target is busy")
)

// Ошибки контента: данные каталога ссылаются на то, чего движок не умеет.
var (
	ErrUnimplementedEffect = errors.New("unimplemented effect")
	ErrSkillNotFound       = errors.New("skill not found")
	ErrCureNotSupported    = errors.New("cure type is not supported")
)

// ErrIdentityReassigned - повторное назначение ID сущности. Ошибка программиста.
var ErrIdentityReassigned = errors.New("entity id already assigned")

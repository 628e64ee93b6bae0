package handlers

import (
	"errors"

	"github.com/Mun1z/Imgeneus/internal/domain"
)

// Severity - как сервис логирует отказ.
type Severity uint8

const (
	// SeverityInfo - обычный отказ (нет денег, нет места).
	SeverityInfo Severity = iota
	// SeveritySuspicious - клиент прислал то, чего честный клиент не шлёт.
	SeveritySuspicious
	// SeverityContent - ошибка данных каталога.
	SeverityContent
)

var reasons = []struct {
	err      error
	reason   string
	severity Severity
}{
	{ErrInvalidPayload, "INVALID_PAYLOAD", SeveritySuspicious},
	{domain.ErrInvalidRequest, "INVALID_REQUEST", SeveritySuspicious},
	{domain.ErrItemNotFound, "ITEM_NOT_FOUND", SeveritySuspicious},
	{domain.ErrInvalidSlot, "INVALID_SLOT", SeveritySuspicious},
	{domain.ErrBuffNotFound, "BUFF_NOT_FOUND", SeverityInfo},
	{domain.ErrEntityDead, "ENTITY_DEAD", SeverityInfo},
	{domain.ErrNoFreeSlot, "NO_FREE_SLOT", SeverityInfo},
	{domain.ErrInsufficientFunds, "INSUFFICIENT_FUNDS", SeverityInfo},
	{domain.ErrTargetBusy, "TARGET_BUSY", SeverityInfo},
	{domain.ErrUnimplementedEffect, "UNIMPLEMENTED_EFFECT", SeverityContent},
	{domain.ErrSkillNotFound, "SKILL_NOT_FOUND", SeverityContent},
	{domain.ErrCureNotSupported, "CURE_NOT_SUPPORTED", SeverityContent},
}

// Reason переводит ошибку хендлера в код для клиента.
func Reason(err error) (string, Severity) {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason, r.severity
		}
	}
	return "INTERNAL", SeverityContent
}

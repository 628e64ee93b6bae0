package domain

import (
	"github.com/Mun1z/Imgeneus/internal/core/types"
)

// Vital - один из трёх пулов.
type Vital uint8

const (
	VitalHP Vital = iota
	VitalSP
	VitalMP
)

func (v Vital) String() string {
	switch v {
	case VitalHP:
		return "HP"
	case VitalSP:
		return "SP"
	case VitalMP:
		return "MP"
	}
	return "UNKNOWN"
}

// TickResult - итог одного тика периодического эффекта.
type TickResult struct {
	Heal bool `json:"heal"`
	HP   int  `json:"hp"`
	SP   int  `json:"sp"`
	MP   int  `json:"mp"`
}

// NotificationSink - исходящие события ядра (сетевой слой).
// Вызывается синхронно изнутри контекста сущности: реализация не должна
// блокироваться и не должна менять состояние ядра.
type NotificationSink interface {
	HasSubscriber(id types.EntityID) bool

	EquipmentChanged(e Killable, item *Item, slot EquipSlot)
	BuffAdded(e Killable, b *ActiveBuff)
	BuffRemoved(e Killable, b *ActiveBuff)
	StatsChanged(e Killable)
	SpeedChanged(e Killable)
	MaxVitalChanged(e Killable, v Vital, newMax int)
	VitalsChanged(e Killable, v Vital, oldValue, newValue int)
	Died(e Killable, killer Killable)
	SkillKeep(e Killable, b *ActiveBuff, result TickResult)
}

// NopSink глотает все события. Используется для мобов без наблюдателей и в тестах.
type NopSink struct{}

func (NopSink) HasSubscriber(types.EntityID) bool { return false }
func (NopSink) EquipmentChanged(Killable, *Item, EquipSlot) {}
func (NopSink) BuffAdded(Killable, *ActiveBuff) {}
func (NopSink) BuffRemoved(Killable, *ActiveBuff) {}
func (NopSink) StatsChanged(Killable) {}
func (NopSink) SpeedChanged(Killable) {}
func (NopSink) MaxVitalChanged(Killable, Vital, int) {}
func (NopSink) VitalsChanged(Killable, Vital, int, int) {}
func (NopSink) Died(Killable, Killable) {}
func (NopSink) SkillKeep(Killable, *ActiveBuff, TickResult) {}

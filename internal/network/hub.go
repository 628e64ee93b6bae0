package network

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Mun1z/Imgeneus/internal/core/types"
	"github.com/Mun1z/Imgeneus/internal/domain"
	"github.com/Mun1z/Imgeneus/pkg/api"
	"github.com/Mun1z/Imgeneus/pkg/logger"
)

// subscriberBuffer - ёмкость личного канала сессии.
const subscriberBuffer = 256

// Broadcaster раздаёт события ядра подписанным сессиям.
// Реализует domain.NotificationSink: методы вызываются синхронно из
// контекста сущности и никогда не блокируются.
type Broadcaster struct {
	mu sync.RWMutex
	// Мапа: EntityID -> Личный канал
	subscribers map[types.EntityID]chan api.Notification

	now func() time.Time
}

var _ domain.NotificationSink = (*Broadcaster)(nil)

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[types.EntityID]chan api.Notification),
		now:         time.Now,
	}
}

// Register создает личный канал для сущности.
// Предыдущий канал той же сущности закрывается (переподключение).
func (b *Broadcaster) Register(id types.EntityID) <-chan api.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	if old, ok := b.subscribers[id]; ok {
		close(old)
	}

	ch := make(chan api.Notification, subscriberBuffer)
	b.subscribers[id] = ch
	return ch
}

// Unregister удаляет подписчика, если канал всё ещё его.
// false - сущность уже перехвачена другой сессией (или не была подписана).
func (b *Broadcaster) Unregister(id types.EntityID, ch <-chan api.Notification) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, ok := b.subscribers[id]
	if !ok || (ch != nil && (<-chan api.Notification)(cur) != ch) {
		return false
	}
	close(cur)
	delete(b.subscribers, id)
	return true
}

// SendTo отправляет сообщение конкретному ID (Unicast).
func (b *Broadcaster) SendTo(id types.EntityID, msg api.Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if ch, ok := b.subscribers[id]; ok {
		select {
		case ch <- msg:
		default:
			logger.Component("hub").WithFields(logrus.Fields{
				"entity_id": id,
				"type":      msg.Type,
			}).Warn("Subscriber channel full, notification dropped")
		}
	}
}

// HasSubscriber проверяет, смотрит ли кто-то на сущность.
func (b *Broadcaster) HasSubscriber(id types.EntityID) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.subscribers[id]
	return ok
}

// SubscriberCount возвращает количество активных подписчиков.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *Broadcaster) notify(e domain.Killable, typ string, payload any) {
	b.sendTo(e.ID(), e.ID(), typ, payload)
}

func (b *Broadcaster) sendTo(to, about types.EntityID, typ string, payload any) {
	if !b.HasSubscriber(to) {
		return
	}
	b.SendTo(to, api.Notification{
		Type:      typ,
		EntityID:  about.MarshalString(),
		Payload:   payload,
		Timestamp: b.now().UnixMilli(),
	})
}

// --- domain.NotificationSink ---

func (b *Broadcaster) EquipmentChanged(e domain.Killable, item *domain.Item, slot domain.EquipSlot) {
	b.notify(e, api.EventEquipmentChanged, api.EquipmentView{
		Slot:     int(slot),
		SlotName: slot.String(),
		Item:     ItemView(item),
	})
}

func (b *Broadcaster) BuffAdded(e domain.Killable, buff *domain.ActiveBuff) {
	view := BuffView(buff, b.now())
	b.notify(e, api.EventBuffAdded, view)
	// наложивший тоже видит результат
	if buff.Creator != nil && buff.Creator.ID() != e.ID() {
		b.sendTo(buff.Creator.ID(), e.ID(), api.EventBuffAdded, view)
	}
}

func (b *Broadcaster) BuffRemoved(e domain.Killable, buff *domain.ActiveBuff) {
	b.notify(e, api.EventBuffRemoved, BuffView(buff, b.now()))
}

func (b *Broadcaster) StatsChanged(e domain.Killable) {
	if !b.HasSubscriber(e.ID()) {
		return
	}
	b.notify(e, api.EventStats, StatsView(e))
}

func (b *Broadcaster) SpeedChanged(e domain.Killable) {
	if !b.HasSubscriber(e.ID()) {
		return
	}
	b.notify(e, api.EventSpeed, SpeedView(e))
}

// MaxVitalChanged: клиент должен перечитать все пулы, поэтому шлём полный StatsView.
func (b *Broadcaster) MaxVitalChanged(e domain.Killable, v domain.Vital, newMax int) {
	if !b.HasSubscriber(e.ID()) {
		return
	}
	b.notify(e, api.EventMaxVital, api.VitalView{Vital: v.String(), New: e.Stats().Current(v), Max: newMax})
	b.notify(e, api.EventStats, StatsView(e))
}

func (b *Broadcaster) VitalsChanged(e domain.Killable, v domain.Vital, oldValue, newValue int) {
	b.notify(e, api.EventVitals, api.VitalView{
		Vital: v.String(),
		Old:   oldValue,
		New:   newValue,
		Max:   e.Stats().Max(v),
	})
}

func (b *Broadcaster) Died(e domain.Killable, killer domain.Killable) {
	view := api.DeathView{}
	if killer != nil {
		view.KillerID = killer.ID().MarshalString()
		view.KillerName = killer.Name()
	}
	b.notify(e, api.EventDied, view)
	if killer != nil && killer.ID() != e.ID() {
		b.sendTo(killer.ID(), e.ID(), api.EventDied, view)
	}
}

func (b *Broadcaster) SkillKeep(e domain.Killable, buff *domain.ActiveBuff, result domain.TickResult) {
	b.notify(e, api.EventSkillKeep, api.SkillKeepView{
		SkillID: buff.SkillID(),
		Level:   buff.SkillLevel(),
		Heal:    result.Heal,
		HP:      result.HP,
		SP:      result.SP,
		MP:      result.MP,
	})
}

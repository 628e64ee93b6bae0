package api

import (
	"encoding/json"
)

// --- СЕРВЕР -> КЛИЕНТ ---

// Notification - одно исходящее событие. Сервер шлёт их по мере изменений
// состояния сущности, которой управляет клиент.
type Notification struct {
	// Type тип события (EQUIPMENT_CHANGED, BUFF_ADDED, VITALS, ...).
	Type string `json:"type"`

	// EntityID сущность, с которой произошло событие.
	EntityID string `json:"entityId,omitempty"`

	// Payload данные события, структура зависит от Type.
	Payload any `json:"payload,omitempty"`

	// Timestamp Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// Типы исходящих событий.
const (
	EventState            = "STATE"
	EventResult           = "RESULT"
	EventEquipmentChanged = "EQUIPMENT_CHANGED"
	EventBuffAdded        = "BUFF_ADDED"
	EventBuffRemoved      = "BUFF_REMOVED"
	EventStats            = "STATS"
	EventSpeed            = "SPEED"
	EventMaxVital         = "MAX_VITAL"
	EventVitals           = "VITALS"
	EventDied             = "DIED"
	EventSkillKeep        = "SKILL_KEEP"
)

// CharacterView - полный снимок персонажа (ответ на INIT).
type CharacterView struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Level     int        `json:"level"`
	Gold      int64      `json:"gold"`
	Stats     StatsView  `json:"stats"`
	Speed     SpeedView  `json:"speed"`
	Equipment []ItemView `json:"equipment"`
	Inventory []ItemView `json:"inventory"`
	Buffs     []BuffView `json:"buffs"`
	IsStealth bool       `json:"isStealth,omitempty"`
}

// StatsView - итоговые характеристики и пулы.
type StatsView struct {
	HP    int `json:"hp"`
	MaxHP int `json:"maxHp"`
	SP    int `json:"sp"`
	MaxSP int `json:"maxSp"`
	MP    int `json:"mp"`
	MaxMP int `json:"maxMp"`

	Str int `json:"str"`
	Dex int `json:"dex"`
	Rec int `json:"rec"`
	Int int `json:"int"`
	Luc int `json:"luc"`
	Wis int `json:"wis"`

	Defense    int `json:"defense"`
	Resistance int `json:"resistance"`

	IsDead bool `json:"isDead"`
}

// SpeedView - скорости передвижения и атаки.
type SpeedView struct {
	Move   int `json:"move"`
	Attack int `json:"attack"`
}

// ItemView представляет предмет для клиента.
type ItemView struct {
	UID    string `json:"uid"`
	Type   uint8  `json:"type"`
	TypeID uint8  `json:"typeId"`
	Name   string `json:"name"`
	Count  int    `json:"count"`
	Bag    int    `json:"bag"`
	Slot   int    `json:"slot"`
}

// SlotView - содержимое координаты после перемещения. Item == nil - пусто.
type SlotView struct {
	Bag  int       `json:"bag"`
	Slot int       `json:"slot"`
	Item *ItemView `json:"item,omitempty"`
}

// EquipmentView - событие смены экипировки.
type EquipmentView struct {
	Slot     int       `json:"slot"`
	SlotName string    `json:"slotName"`
	Item     *ItemView `json:"item,omitempty"`
}

// BuffView - бафф с оставшимся временем.
type BuffView struct {
	SkillID     uint16 `json:"skillId"`
	Level       uint8  `json:"level"`
	Name        string `json:"name"`
	Passive     bool   `json:"passive,omitempty"`
	RemainingMs int64  `json:"remainingMs"`
	CreatorID   string `json:"creatorId,omitempty"`
}

// VitalView - изменение одного пула.
type VitalView struct {
	Vital string `json:"vital"`
	Old   int    `json:"old,omitempty"`
	New   int    `json:"new"`
	Max   int    `json:"max"`
}

// DeathView - смерть сущности.
type DeathView struct {
	KillerID   string `json:"killerId,omitempty"`
	KillerName string `json:"killerName,omitempty"`
}

// SkillKeepView - итог тика периодического эффекта.
type SkillKeepView struct {
	SkillID uint16 `json:"skillId"`
	Level   uint8  `json:"level"`
	Heal    bool   `json:"heal"`
	HP      int    `json:"hp"`
	SP      int    `json:"sp"`
	MP      int    `json:"mp"`
}

// ResultView - ответ на команду клиента.
type ResultView struct {
	Action string `json:"action"`
	Msg    string `json:"msg"`
	Type   string `json:"type"` // INFO, ERROR
	Reason string `json:"reason,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// --- КЛИЕНТ -> СЕРВЕР ---

// Действия клиента.
const (
	ActionLogin      = "LOGIN"
	ActionInit       = "INIT"
	ActionMoveItem   = "MOVE_ITEM"
	ActionUseItem    = "USE_ITEM"
	ActionCast       = "CAST"
	ActionCancelBuff = "CANCEL_BUFF"
	ActionDamage     = "DAMAGE"
	ActionRebirth    = "REBIRTH"
	ActionBuy        = "BUY"
	ActionDrop       = "DROP"
)

// Типы ResultView.
const (
	ResultInfo  = "INFO"
	ResultError = "ERROR"
)

// ClientCommand это корневой объект для всех сообщений от клиента к серверу.
type ClientCommand struct {
	// Token ID персонажа. В первом сообщении (LOGIN) - номер персонажа в хранилище,
	// дальше сервер подставляет его сам.
	Token string `json:"token,omitempty"`

	// Action название действия, которое нужно выполнить.
	Action string `json:"action"`

	// Payload JSON-объект с данными для действия. Его структура зависит от Action.
	Payload json.RawMessage `json:"payload"`
}

// --- Payloads ---

// LoginPayload - первое сообщение сессии.
type LoginPayload struct {
	CharacterID uint32 `json:"characterId"`
	Name        string `json:"name"`
}

// MoveItemPayload - перемещение между координатами (MOVE_ITEM).
type MoveItemPayload struct {
	SrcBag  int `json:"srcBag"`
	SrcSlot int `json:"srcSlot"`
	DstBag  int `json:"dstBag"`
	DstSlot int `json:"dstSlot"`
}

// ItemSlotPayload - действие с предметом в координате (USE_ITEM, DROP).
type ItemSlotPayload struct {
	Bag   int `json:"bag"`
	Slot  int `json:"slot"`
	Count int `json:"count,omitempty"` // для DROP: 0 - вся пачка
}

// CastPayload - наложение умения (CAST). Пустой TargetID - на себя.
type CastPayload struct {
	SkillID  uint16 `json:"skillId"`
	Level    uint8  `json:"level"`
	TargetID string `json:"targetId,omitempty"`
}

// SkillPayload - действие над своим баффом (CANCEL_BUFF).
type SkillPayload struct {
	SkillID uint16 `json:"skillId"`
}

// DamagePayload - прямой урон по цели (DAMAGE).
type DamagePayload struct {
	TargetID string `json:"targetId"`
	Amount   int    `json:"amount"`
}

// BuyPayload - покупка (BUY).
type BuyPayload struct {
	Type   uint8 `json:"type"`
	TypeID uint8 `json:"typeId"`
	Count  int   `json:"count"`
}

package persist

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Mun1z/Imgeneus/internal/core/types"
)

// ActionKind - вид операции над хранилищем.
type ActionKind uint8

const (
	ActionUnknown ActionKind = iota
	ActionSaveItem
	ActionRemoveItem
	ActionSaveBuff
	ActionRemoveBuff
	ActionSaveGold
	ActionSaveVitals
)

var actionToString = map[ActionKind]string{
	ActionSaveItem:   "SAVE_ITEM",
	ActionRemoveItem: "REMOVE_ITEM",
	ActionSaveBuff:   "SAVE_BUFF",
	ActionRemoveBuff: "REMOVE_BUFF",
	ActionSaveGold:   "SAVE_GOLD",
	ActionSaveVitals: "SAVE_VITALS",
}

var stringToAction = map[string]ActionKind{
	"SAVE_ITEM":   ActionSaveItem,
	"REMOVE_ITEM": ActionRemoveItem,
	"SAVE_BUFF":   ActionSaveBuff,
	"REMOVE_BUFF": ActionRemoveBuff,
	"SAVE_GOLD":   ActionSaveGold,
	"SAVE_VITALS": ActionSaveVitals,
}

func (k ActionKind) String() string {
	if s, ok := actionToString[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// ParseAction конвертирует строку в ActionKind.
func ParseAction(s string) ActionKind {
	if k, ok := stringToAction[strings.ToUpper(s)]; ok {
		return k
	}
	return ActionUnknown
}

// Lane - класс надёжности записи.
type Lane uint8

const (
	// LaneCritical - предметы, золото, баффы. Не теряются никогда.
	LaneCritical Lane = iota
	// LaneBestEffort - косметика (текущие HP/SP/MP). При переполнении отбрасывается.
	LaneBestEffort
)

func (l Lane) String() string {
	if l == LaneBestEffort {
		return "best_effort"
	}
	return "critical"
}

// Lane возвращает класс надёжности. Каждый вид записи живёт ровно в одном классе,
// поэтому порядок операций над одной записью сохраняется внутри класса.
func (k ActionKind) Lane() Lane {
	if k == ActionSaveVitals {
		return LaneBestEffort
	}
	return LaneCritical
}

// Entry - одна операция журнала. После Enqueue не меняется.
type Entry struct {
	Seq        uint64
	Kind       ActionKind
	Owner      types.EntityID
	Payload    Payload
	EnqueuedAt time.Time
}

// Payload - снимок данных, сделанный в момент постановки в очередь.
// Потребитель очереди видит только его, а не живые объекты.
type Payload interface {
	actionKind() ActionKind
}

// ItemRecord - предмет в координате (bag, slot). Ключ upsert: (owner, bag, slot).
type ItemRecord struct {
	Bag    int   `json:"bag"`
	Slot   int   `json:"slot"`
	Type   uint8 `json:"type"`
	TypeID uint8 `json:"typeId"`
	Count  int   `json:"count"`
}

// ItemKey адресует удаляемый предмет.
type ItemKey struct {
	Bag  int `json:"bag"`
	Slot int `json:"slot"`
}

// BuffRecord - бафф персонажа. Ключ upsert: (owner, skillId, passive).
type BuffRecord struct {
	SkillID    uint16    `json:"skillId"`
	SkillLevel uint8     `json:"skillLevel"`
	ResetTime  time.Time `json:"resetTime"`
	Passive    bool      `json:"passive"`
}

// BuffKey адресует удаляемый бафф.
type BuffKey struct {
	SkillID uint16 `json:"skillId"`
	Passive bool   `json:"passive"`
}

type GoldRecord struct {
	Gold int64 `json:"gold"`
}

type VitalsRecord struct {
	HP int `json:"hp"`
	SP int `json:"sp"`
	MP int `json:"mp"`
}

func (ItemRecord) actionKind() ActionKind { return ActionSaveItem }
func (ItemKey) actionKind() ActionKind { return ActionRemoveItem }
func (BuffRecord) actionKind() ActionKind { return ActionSaveBuff }
func (BuffKey) actionKind() ActionKind { return ActionRemoveBuff }
func (GoldRecord) actionKind() ActionKind { return ActionSaveGold }
func (VitalsRecord) actionKind() ActionKind { return ActionSaveVitals }

// EncodePayload сериализует payload для журнала.
func EncodePayload(p Payload) ([]byte, error) {
	return json.Marshal(p)
}

// DecodePayload восстанавливает payload по виду операции.
func DecodePayload(kind ActionKind, data []byte) (Payload, error) {
	var (
		p   Payload
		err error
	)

	switch kind {
	case ActionSaveItem:
		var v ItemRecord
		err = json.Unmarshal(data, &v)
		p = v
	case ActionRemoveItem:
		var v ItemKey
		err = json.Unmarshal(data, &v)
		p = v
	case ActionSaveBuff:
		var v BuffRecord
		err = json.Unmarshal(data, &v)
		p = v
	case ActionRemoveBuff:
		var v BuffKey
		err = json.Unmarshal(data, &v)
		p = v
	case ActionSaveGold:
		var v GoldRecord
		err = json.Unmarshal(data, &v)
		p = v
	case ActionSaveVitals:
		var v VitalsRecord
		err = json.Unmarshal(data, &v)
		p = v
	default:
		return nil, fmt.Errorf("unknown action kind %d", kind)
	}

	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return p, nil
}

// KindOf возвращает вид операции, которому соответствует payload.
func KindOf(p Payload) ActionKind {
	if p == nil {
		return ActionUnknown
	}
	return p.actionKind()
}

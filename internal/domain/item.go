package domain

import (
	"github.com/google/uuid"

	"github.com/Mun1z/Imgeneus/internal/core/types"
	"github.com/Mun1z/Imgeneus/internal/persist"
)

// WeaponKind - вид оружия (для таблицы мастерства).
type WeaponKind uint8

const (
	WeaponNone WeaponKind = iota
	WeaponOneHandedSword
	WeaponTwoHandedSword
	WeaponAxe
	WeaponDagger
	WeaponSpear
	WeaponBow
	WeaponStaff
)

var weaponKindNames = []string{
	"none", "oneHandedSword", "twoHandedSword", "axe", "dagger", "spear", "bow", "staff",
}

func (w WeaponKind) String() string { return enumName(weaponKindNames, w) }

func (w *WeaponKind) UnmarshalYAML(unmarshal func(any) error) error {
	v, err := unmarshalEnum[WeaponKind](unmarshal, weaponKindNames)
	*w = v
	return err
}

// ItemStats - вклад предмета в характеристики владельца.
type ItemStats struct {
	Str         int `yaml:"str" json:"str"`
	Dex         int `yaml:"dex" json:"dex"`
	Rec         int `yaml:"rec" json:"rec"`
	Int         int `yaml:"int" json:"int"`
	Luc         int `yaml:"luc" json:"luc"`
	Wis         int `yaml:"wis" json:"wis"`
	HP          int `yaml:"hp" json:"hp"`
	SP          int `yaml:"sp" json:"sp"`
	MP          int `yaml:"mp" json:"mp"`
	Defense     int `yaml:"defense" json:"defense"`
	Resistance  int `yaml:"resistance" json:"resistance"`
	MoveSpeed   int `yaml:"moveSpeed" json:"moveSpeed"`
	AttackSpeed int `yaml:"attackSpeed" json:"attackSpeed"`
}

// ItemTemplate - запись каталога. Разделяется всеми экземплярами, не меняется.
type ItemTemplate struct {
	Type   uint8  `yaml:"type"`
	TypeID uint8  `yaml:"typeId"`
	Name   string `yaml:"name"`

	Stats ItemStats `yaml:"stats"`

	Joinable bool `yaml:"joinable"`
	MaxCount int  `yaml:"maxCount"`

	// Slot - слот экипировки; SlotNone для неэкипируемых.
	Slot   EquipSlot  `yaml:"slot"`
	Weapon WeaponKind `yaml:"weapon"`
	Price  int64      `yaml:"price"`

	// Расходуемые предметы.
	Consumable bool      `yaml:"consumable"`
	HealHP     int       `yaml:"healHp"`
	HealSP     int       `yaml:"healSp"`
	HealMP     int       `yaml:"healMp"`
	SkillID    uint16    `yaml:"skillId"`
	SkillLevel uint8     `yaml:"skillLevel"`
	Cure       StateType `yaml:"cure"`
}

// CanEquipIn проверяет, можно ли надеть предмет в слот.
// Кольца и браслеты подходят в любой из двух парных слотов.
func (t *ItemTemplate) CanEquipIn(slot EquipSlot) bool {
	switch t.Slot {
	case SlotRing1, SlotRing2:
		return slot == SlotRing1 || slot == SlotRing2
	case SlotBracelet1, SlotBracelet2:
		return slot == SlotBracelet1 || slot == SlotBracelet2
	case SlotNone:
		return false
	}
	return t.Slot == slot
}

// NoBag - координата предмета вне инвентаря (клон при частичной передаче, лут на земле).
const NoBag = -1

// Item - экземпляр предмета. После создания меняются только Count и координаты
// (плюс временное TradeQuantity для частичных передач).
type Item struct {
	*ItemTemplate

	UID   string
	Count int
	Bag   int
	Slot  int

	// Owner - персонаж, в инвентаре которого лежит предмет.
	Owner types.EntityID

	// TradeQuantity - сколько штук забрать при частичном удалении (0 - всё).
	TradeQuantity int
}

// NewItem создаёт экземпляр по шаблону. Count ограничивается MaxCount.
func NewItem(tpl *ItemTemplate, count int) *Item {
	if count < 1 {
		count = 1
	}
	if tpl.MaxCount > 0 && count > tpl.MaxCount {
		count = tpl.MaxCount
	}
	return &Item{
		ItemTemplate: tpl,
		UID:          uuid.NewString(),
		Count:        count,
		Bag:          NoBag,
		Slot:         NoBag,
	}
}

// Clone делает копию с новым UID и указанным количеством, без координат.
func (it *Item) Clone(count int) *Item {
	return &Item{
		ItemTemplate: it.ItemTemplate,
		UID:          uuid.NewString(),
		Count:        count,
		Bag:          NoBag,
		Slot:         NoBag,
	}
}

// SameKind - совпадают ли тип и подтип.
func (it *Item) SameKind(other *Item) bool {
	return other != nil && it.Type == other.Type && it.TypeID == other.TypeID
}

// Record - снимок для очереди записи.
func (it *Item) Record() persist.ItemRecord {
	return persist.ItemRecord{
		Bag:    it.Bag,
		Slot:   it.Slot,
		Type:   it.Type,
		TypeID: it.TypeID,
		Count:  it.Count,
	}
}

func (it *Item) coord() Coord {
	return Coord{Bag: it.Bag, Slot: it.Slot}
}

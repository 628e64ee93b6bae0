package domain

import (
	"fmt"
	"strings"
)

// EquipSlot - индекс слота экипировки (0..16).
type EquipSlot uint8

const (
	SlotHelmet EquipSlot = iota
	SlotArmor
	SlotPants
	SlotGauntlet
	SlotBoots
	SlotWeapon
	SlotShield
	SlotCape
	SlotAmulet
	SlotRing1
	SlotRing2
	SlotBracelet1
	SlotBracelet2
	SlotMount
	SlotPet
	SlotCostume
	SlotWings

	SlotCount

	SlotNone EquipSlot = 0xFF
)

var slotNames = [SlotCount]string{
	"helmet", "armor", "pants", "gauntlet", "boots", "weapon", "shield", "cape",
	"amulet", "ring1", "ring2", "bracelet1", "bracelet2", "mount", "pet", "costume", "wings",
}

func (s EquipSlot) String() string {
	if s < SlotCount {
		return slotNames[s]
	}
	return "none"
}

// ParseEquipSlot разбирает имя слота (для каталога). Неизвестное имя - SlotNone.
func ParseEquipSlot(name string) EquipSlot {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range slotNames {
		if n == name {
			return EquipSlot(i)
		}
	}
	return SlotNone
}

// UnmarshalYAML позволяет писать в каталоге slot: weapon.
func (s *EquipSlot) UnmarshalYAML(unmarshal func(any) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	*s = ParseEquipSlot(name)
	if *s == SlotNone && name != "" && !strings.EqualFold(name, "none") {
		return fmt.Errorf("unknown equipment slot %q", name)
	}
	return nil
}

// EquipmentSlots - 17 слотов надетых вещей персонажа.
//
// Смена предмета транзакционна: сначала полностью снимается вклад старого,
// потом применяется вклад нового. Скорость атаки оружия и скорость маунта
// хранятся как собственные ("intrinsic") скорости, а не как модификаторы.
type EquipmentSlots struct {
	owner *Character
	items [SlotCount]*Item

	weaponSpeed int
	mountSpeed  int
}

func newEquipmentSlots(owner *Character) *EquipmentSlots {
	return &EquipmentSlots{owner: owner}
}

// Get возвращает предмет в слоте или nil.
func (eq *EquipmentSlots) Get(slot EquipSlot) *Item {
	if slot >= SlotCount {
		return nil
	}
	return eq.items[slot]
}

// Weapon - надетое оружие.
func (eq *EquipmentSlots) Weapon() *Item { return eq.items[SlotWeapon] }

// WeaponSpeed - собственная скорость атаки оружия.
func (eq *EquipmentSlots) WeaponSpeed() int { return eq.weaponSpeed }

// MountSpeed - собственная скорость передвижения маунта.
func (eq *EquipmentSlots) MountSpeed() int { return eq.mountSpeed }

// Equip кладёт item в slot (nil - снять) и возвращает предыдущий предмет.
func (eq *EquipmentSlots) Equip(slot EquipSlot, item *Item) (*Item, error) {
	if slot >= SlotCount {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}

	ch := eq.owner
	prev := eq.items[slot]

	// take off
	if prev != nil {
		eq.applyItem(slot, prev, -1)
	}

	// take on
	eq.items[slot] = item
	if item != nil {
		eq.applyItem(slot, item, +1)
	}

	switch slot {
	case SlotWeapon:
		eq.weaponSpeed = 0
		if item != nil {
			eq.weaponSpeed = item.Stats.AttackSpeed
		}
		ch.env.Sink.SpeedChanged(ch)
	case SlotMount:
		eq.mountSpeed = 0
		if item != nil {
			eq.mountSpeed = item.Stats.MoveSpeed
		}
		ch.env.Sink.SpeedChanged(ch)
	}

	if ch.env.Sink.HasSubscriber(ch.ID()) {
		ch.env.Sink.StatsChanged(ch)
	}
	ch.env.Sink.EquipmentChanged(ch, item, slot)

	return prev, nil
}

// Init надевает всё, что лежит в сумке 0, ровно один раз (загрузка персонажа).
func (eq *EquipmentSlots) Init() error {
	for slot := EquipSlot(0); slot < SlotCount; slot++ {
		item := eq.owner.inventory.Get(WornBag, int(slot))
		if item == nil || eq.items[slot] == item {
			continue
		}
		if _, err := eq.Equip(slot, item); err != nil {
			return err
		}
	}
	return nil
}

func (eq *EquipmentSlots) applyItem(slot EquipSlot, item *Item, sign int) {
	st := eq.owner.stats
	s := item.Stats

	st.ApplyDelta(StatStr, sign*s.Str)
	st.ApplyDelta(StatDex, sign*s.Dex)
	st.ApplyDelta(StatRec, sign*s.Rec)
	st.ApplyDelta(StatInt, sign*s.Int)
	st.ApplyDelta(StatLuc, sign*s.Luc)
	st.ApplyDelta(StatWis, sign*s.Wis)
	st.ApplyDelta(StatHP, sign*s.HP)
	st.ApplyDelta(StatSP, sign*s.SP)
	st.ApplyDelta(StatMP, sign*s.MP)
	st.ApplyDelta(StatDefense, sign*s.Defense)
	st.ApplyDelta(StatResistance, sign*s.Resistance)

	if slot != SlotWeapon {
		st.ApplyDelta(StatAttackSpeed, sign*s.AttackSpeed)
	}
	if slot != SlotMount {
		st.ApplyDelta(StatMoveSpeed, sign*s.MoveSpeed)
	}
}

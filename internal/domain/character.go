package domain

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Mun1z/Imgeneus/internal/core/types/enums"
	"github.com/Mun1z/Imgeneus/internal/persist"
	"github.com/Mun1z/Imgeneus/pkg/logger"
)

// Character - персонаж игрока: статы, баффы, экипировка, инвентарь и золото.
type Character struct {
	entity

	equipment *EquipmentSlots
	inventory *InventoryStore
	gold      int64
	moveSpeed int
}

func NewCharacter(p Profile, env Env) *Character {
	c := &Character{moveSpeed: p.MoveSpeed}
	c.init(c, enums.EntityKindCharacter, p, env)
	c.equipment = newEquipmentSlots(c)
	c.inventory = newInventoryStore(c)
	return c
}

func (c *Character) Equipment() *EquipmentSlots { return c.equipment }
func (c *Character) Inventory() *InventoryStore { return c.inventory }
func (c *Character) Gold() int64 { return c.gold }

// AttackSpeed = скорость оружия + модификатор + мастерство для вида надетого оружия.
func (c *Character) AttackSpeed() int {
	speed := c.equipment.WeaponSpeed() + c.stats.AttackSpeedModifier
	if w := c.equipment.Weapon(); w != nil {
		speed += c.effects.WeaponSpeedModifier(w.Weapon)
	}
	return speed
}

// MoveSpeed - скорость маунта, если он надет, иначе базовая плюс бонусы.
func (c *Character) MoveSpeed() int {
	if s := c.equipment.MountSpeed(); s > 0 {
		return s
	}
	return c.moveSpeed + c.stats.ExtraMoveSpeed
}

// --- Золото ---

func (c *Character) AddGold(amount int64) {
	if amount <= 0 {
		return
	}
	c.gold += amount
	c.saveGold()
}

func (c *Character) SpendGold(amount int64) error {
	if amount < 0 {
		return fmt.Errorf("%w: negative amount %d", ErrInvalidRequest, amount)
	}
	if c.gold < amount {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, amount, c.gold)
	}
	if amount == 0 {
		return nil
	}
	c.gold -= amount
	c.saveGold()
	return nil
}

func (c *Character) saveGold() {
	c.env.Queue.Enqueue(persist.ActionSaveGold, c.id, persist.GoldRecord{Gold: c.gold})
}

// Buy покупает count штук по шаблону. Деньги и место проверяются до изменений.
func (c *Character) Buy(tpl *ItemTemplate, count int) (*Item, error) {
	if tpl == nil || count <= 0 {
		return nil, fmt.Errorf("%w: buy", ErrInvalidRequest)
	}
	if c.IsDead() {
		return nil, ErrEntityDead
	}

	item := NewItem(tpl, count)
	price := tpl.Price * int64(item.Count)
	if c.gold < price {
		return nil, fmt.Errorf("%w: %s costs %d, have %d", ErrInsufficientFunds, tpl.Name, price, c.gold)
	}
	if _, ok := c.inventory.FindFreeSlot(); !ok {
		return nil, ErrNoFreeSlot
	}

	if err := c.SpendGold(price); err != nil {
		return nil, err
	}
	return c.inventory.AddItem(item)
}

// Drop выбрасывает count штук из координаты (0 - всю пачку).
func (c *Character) Drop(bag, slot, count int) (*Item, error) {
	item := c.inventory.Get(bag, slot)
	if item == nil {
		return nil, fmt.Errorf("%w: nothing at %d/%d", ErrItemNotFound, bag, slot)
	}
	if count < 0 || count > item.Count {
		return nil, fmt.Errorf("%w: drop %d of %d", ErrInvalidRequest, count, item.Count)
	}
	if count > 0 && count < item.Count {
		item.TradeQuantity = count
	}
	return c.inventory.RemoveItem(item)
}

// UseItem применяет расходуемый предмет: лечение, умение на себя, снятие состояния.
// Все проверки выполняются до расхода предмета.
func (c *Character) UseItem(bag, slot int, cat Catalog) error {
	item := c.inventory.Get(bag, slot)
	if item == nil {
		return fmt.Errorf("%w: nothing at %d/%d", ErrItemNotFound, bag, slot)
	}
	if !item.Consumable {
		return fmt.Errorf("%w: %s is not consumable", ErrInvalidRequest, item.Name)
	}
	if c.IsDead() {
		return ErrEntityDead
	}

	var skill *Skill
	if item.SkillID != 0 {
		s, ok := cat.LookupSkill(item.SkillID, item.SkillLevel)
		if !ok {
			return fmt.Errorf("%w: %d/%d from %s", ErrSkillNotFound, item.SkillID, item.SkillLevel, item.Name)
		}
		if err := s.Validate(); err != nil {
			return err
		}
		skill = s
	}
	if item.Cure != StateNone {
		if err := c.effects.CanCure(item.Cure); err != nil {
			return err
		}
	}

	c.stats.IncreaseVital(VitalHP, item.HealHP)
	c.stats.IncreaseVital(VitalSP, item.HealSP)
	c.stats.IncreaseVital(VitalMP, item.HealMP)

	if skill != nil {
		if _, err := c.effects.AddOrRefresh(skill, c); err != nil {
			return err
		}
	}
	if item.Cure != StateNone {
		if _, err := c.effects.CureByStateType(item.Cure); err != nil {
			return err
		}
	}

	if item.Count > 1 {
		item.TradeQuantity = 1
	}
	_, err := c.inventory.RemoveItem(item)
	return err
}

// Rebirth воскрешает персонажа с полным HP.
func (c *Character) Rebirth() error {
	if !c.IsDead() {
		return fmt.Errorf("%w: %s is alive", ErrInvalidRequest, c.name)
	}
	c.stats.Rebirth(c.stats.MaxHP())
	c.SaveVitals()
	return nil
}

// SaveVitals ставит текущие пулы на сохранение (best-effort).
func (c *Character) SaveVitals() {
	c.env.Queue.Enqueue(persist.ActionSaveVitals, c.id, persist.VitalsRecord{
		HP: c.stats.HP(),
		SP: c.stats.SP(),
		MP: c.stats.MP(),
	})
}

// Load восстанавливает состояние из хранилища при входе.
// Порядок: предметы, экипировка, баффы, затем пулы (максимумы уже с бонусами).
func (c *Character) Load(rec persist.CharacterRecord, cat Catalog) error {
	log := logger.Component("character").WithFields(logrus.Fields{
		"actor_id": c.id,
		"name":     c.name,
	})

	for _, ir := range rec.Items {
		tpl, ok := cat.LookupItem(ir.Type, ir.TypeID)
		if !ok {
			log.WithFields(logrus.Fields{"type": ir.Type, "type_id": ir.TypeID}).Warn("Stored item is missing from catalog, skipped")
			continue
		}
		item := NewItem(tpl, ir.Count)
		if err := c.inventory.Place(item, ir.Bag, ir.Slot); err != nil {
			log.WithError(err).Warn("Stored item has invalid coordinate, skipped")
			continue
		}
	}

	if err := c.equipment.Init(); err != nil {
		return err
	}

	for _, br := range rec.Buffs {
		skill, ok := cat.LookupSkill(br.SkillID, br.SkillLevel)
		if !ok {
			log.WithFields(logrus.Fields{"skill_id": br.SkillID, "level": br.SkillLevel}).Warn("Stored buff is missing from catalog, skipped")
			continue
		}
		if _, err := c.effects.Restore(skill, br.ResetTime); err != nil {
			if errors.Is(err, ErrUnimplementedEffect) {
				log.WithError(err).Error("Stored buff cannot be applied")
				continue
			}
			return err
		}
	}

	c.gold = rec.Gold

	if rec.Vitals != nil {
		// мёртвым из хранилища не входят
		c.stats.hp = min(max(rec.Vitals.HP, 1), c.stats.MaxHP())
		c.stats.sp = min(max(rec.Vitals.SP, 0), c.stats.MaxSP())
		c.stats.mp = min(max(rec.Vitals.MP, 0), c.stats.MaxMP())
	} else {
		c.stats.hp, c.stats.sp, c.stats.mp = c.stats.MaxHP(), c.stats.MaxSP(), c.stats.MaxMP()
	}

	log.WithFields(logrus.Fields{
		"items": c.inventory.Len(),
		"buffs": len(rec.Buffs),
		"gold":  c.gold,
	}).Info("Character loaded")
	return nil
}

// Unload сохраняет пулы и снимок баффов, затем останавливает тики.
func (c *Character) Unload() {
	c.SaveVitals()
	for _, rec := range c.effects.Snapshot() {
		c.env.Queue.Enqueue(persist.ActionSaveBuff, c.id, rec)
	}
	c.effects.Release()
}

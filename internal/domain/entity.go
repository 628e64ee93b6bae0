package domain

import (
	"fmt"

	"github.com/Mun1z/Imgeneus/internal/core/types"
	"github.com/Mun1z/Imgeneus/internal/core/types/enums"
)

// Killable - общее для всех сущностей, которые можно бить и баффать.
// Конкретные возможности (инвентарь, экипировка) - только у *Character.
type Killable interface {
	ID() types.EntityID
	Kind() enums.EntityKind
	Name() string
	Level() int
	Stats() *StatBlock
	Effects() *EffectEngine
	IsDead() bool
}

// Position - координаты сущности на карте.
type Position struct {
	Map uint16  `json:"map"`
	X   float32 `json:"x"`
	Y   float32 `json:"y"`
	Z   float32 `json:"z"`
}

// Profile - стартовые параметры сущности.
type Profile struct {
	Name       string
	Level      int
	Attributes Attributes
	HP, SP, MP int
	MoveSpeed  int
	Position   Position
}

// entity - общая часть Character и Mob.
type entity struct {
	id    types.EntityID
	kind  enums.EntityKind
	name  string
	level int
	pos   Position

	env     Env
	stats   *StatBlock
	effects *EffectEngine
}

func (e *entity) ID() types.EntityID { return e.id }
func (e *entity) Kind() enums.EntityKind { return e.kind }
func (e *entity) Name() string { return e.name }
func (e *entity) Level() int { return e.level }
func (e *entity) Stats() *StatBlock { return e.stats }
func (e *entity) Effects() *EffectEngine { return e.effects }
func (e *entity) IsDead() bool { return e.stats.IsDead() }
func (e *entity) Position() Position { return e.pos }
func (e *entity) SetPosition(p Position) { e.pos = p }

// AssignID выдаёт сущности идентификатор. Повторное назначение - ошибка.
func (e *entity) AssignID(id types.EntityID) error {
	if !e.id.IsNil() {
		return fmt.Errorf("%w: %s -> %s", ErrIdentityReassigned, e.id, id)
	}
	if id.IsNil() {
		return fmt.Errorf("%w: nil id", ErrInvalidRequest)
	}
	if id.Kind() != e.kind {
		return fmt.Errorf("%w: id kind %s for %s", ErrInvalidRequest, id.Kind(), e.kind)
	}
	e.id = id
	return nil
}

// init собирает компоненты. owner - внешняя сущность (*Character или *Mob),
// чтобы события уходили с правильным типом.
func (e *entity) init(owner Killable, kind enums.EntityKind, p Profile, env Env) {
	e.kind = kind
	e.name = p.Name
	e.level = p.Level
	e.pos = p.Position
	e.env = env.withDefaults()

	e.stats = newStatBlock(owner, e.env.Sink)
	e.stats.Base = p.Attributes
	e.stats.BaseHP, e.stats.BaseSP, e.stats.BaseMP = p.HP, p.SP, p.MP
	e.stats.hp, e.stats.sp, e.stats.mp = e.stats.MaxHP(), e.stats.MaxSP(), e.stats.MaxMP()

	e.effects = newEffectEngine(owner, e.env)

	// смерть снимает активные баффы
	e.stats.onDeath = e.effects.ClearActive
}

// Mob - сущность без инвентаря и экипировки.
type Mob struct {
	entity
	moveSpeed int
}

func NewMob(p Profile, env Env) *Mob {
	m := &Mob{moveSpeed: p.MoveSpeed}
	m.init(m, enums.EntityKindMob, p, env)
	return m
}

func (m *Mob) MoveSpeed() int {
	return m.moveSpeed + m.stats.ExtraMoveSpeed
}

func (m *Mob) AttackSpeed() int {
	return m.stats.AttackSpeedModifier
}

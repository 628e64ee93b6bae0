package domain

import (
	"github.com/Mun1z/Imgeneus/pkg/logger"
)

// Stat - адресуемое поле StatBlock для ApplyDelta.
type Stat uint8

const (
	StatStr Stat = iota
	StatDex
	StatRec
	StatInt
	StatLuc
	StatWis
	StatHP
	StatSP
	StatMP
	StatDefense
	StatResistance
	StatMoveSpeed
	StatAttackSpeed
	StatPhysicalHitting
	StatShootingHitting
	StatMagicHitting
	StatPhysicalEvasion
	StatShootingEvasion
	StatMagicEvasion
	StatCritical
	StatPhysicalAttack
	StatShootingAttack
	StatMagicAttack
)

// Attributes - шесть основных характеристик.
type Attributes struct {
	Str int `json:"str"`
	Dex int `json:"dex"`
	Rec int `json:"rec"`
	Int int `json:"int"`
	Luc int `json:"luc"`
	Wis int `json:"wis"`
}

// Rates - бонусы к шансам попадания/уклонения/крита (в процентах).
type Rates struct {
	PhysicalHitting int `json:"physicalHitting"`
	ShootingHitting int `json:"shootingHitting"`
	MagicHitting    int `json:"magicHitting"`
	PhysicalEvasion int `json:"physicalEvasion"`
	ShootingEvasion int `json:"shootingEvasion"`
	MagicEvasion    int `json:"magicEvasion"`
	Critical        int `json:"critical"`
}

// AttackPower - бонус к силе атаки по видам урона.
type AttackPower struct {
	Physical int `json:"physical"`
	Shooting int `json:"shooting"`
	Magic    int `json:"magic"`
}

// StatBlock хранит базовые и дополнительные ("extra") характеристики сущности
// и её текущие пулы. Инвариант: 0 <= Current <= Max для HP/SP/MP.
//
// StatBlock не проверяет, что каждому прибавлению соответствует вычитание:
// за парность apply/retract отвечают EquipmentSlots и EffectEngine.
type StatBlock struct {
	owner Killable
	sink  NotificationSink

	Base  Attributes
	Extra Attributes

	// Базовые максимумы пулов (уровень + класс).
	BaseHP int
	BaseSP int
	BaseMP int

	extraHP int
	extraSP int
	extraMP int

	ExtraDefense    int
	ExtraResistance int
	ExtraMoveSpeed  int

	// AttackSpeedModifier - аддитивный модификатор; скорость оружия сюда не входит.
	AttackSpeedModifier int

	Rates       Rates
	AttackPower AttackPower

	hp, sp, mp int

	dead   bool
	killer Killable

	// onDeath вызывается один раз при переходе в состояние смерти (после уведомления).
	onDeath func()
}

func newStatBlock(owner Killable, sink NotificationSink) *StatBlock {
	return &StatBlock{owner: owner, sink: sink}
}

// --- Максимумы ---

func (s *StatBlock) MaxHP() int {
	// HP не может упасть до нуля от снятия бонусов: это убило бы сущность без убийцы.
	return max(s.BaseHP+s.extraHP, 1)
}

func (s *StatBlock) MaxSP() int {
	return max(s.BaseSP+s.extraSP, 0)
}

func (s *StatBlock) MaxMP() int {
	return max(s.BaseMP+s.extraMP, 0)
}

func (s *StatBlock) ExtraHP() int { return s.extraHP }
func (s *StatBlock) ExtraSP() int { return s.extraSP }
func (s *StatBlock) ExtraMP() int { return s.extraMP }

// SetExtraHP меняет бонус к максимуму HP, поджимает текущее значение
// и сообщает о новом максимуме. Потребитель должен переслать все пулы целиком.
func (s *StatBlock) SetExtraHP(v int) {
	s.extraHP = v
	s.clampVital(VitalHP)
	s.sink.MaxVitalChanged(s.owner, VitalHP, s.MaxHP())
}

func (s *StatBlock) SetExtraSP(v int) {
	s.extraSP = v
	s.clampVital(VitalSP)
	s.sink.MaxVitalChanged(s.owner, VitalSP, s.MaxSP())
}

func (s *StatBlock) SetExtraMP(v int) {
	s.extraMP = v
	s.clampVital(VitalMP)
	s.sink.MaxVitalChanged(s.owner, VitalMP, s.MaxMP())
}

func (s *StatBlock) clampVital(v Vital) {
	cur, limit := s.Current(v), s.Max(v)
	if cur > limit {
		s.setVital(v, limit)
	}
}

// --- Текущие пулы ---

func (s *StatBlock) HP() int { return s.hp }
func (s *StatBlock) SP() int { return s.sp }
func (s *StatBlock) MP() int { return s.mp }

func (s *StatBlock) IsDead() bool { return s.dead }

// Killer - последний, кто наносил урон.
func (s *StatBlock) Killer() Killable { return s.killer }

func (s *StatBlock) Current(v Vital) int {
	switch v {
	case VitalSP:
		return s.sp
	case VitalMP:
		return s.mp
	default:
		return s.hp
	}
}

func (s *StatBlock) Max(v Vital) int {
	switch v {
	case VitalSP:
		return s.MaxSP()
	case VitalMP:
		return s.MaxMP()
	default:
		return s.MaxHP()
	}
}

// SetHP выставляет HP с зажимом в [0, MaxHP]. Падение до нуля убивает.
// Мёртвым HP не меняется до Rebirth.
func (s *StatBlock) SetHP(v int) { s.SetVital(VitalHP, v) }
func (s *StatBlock) SetSP(v int) { s.SetVital(VitalSP, v) }
func (s *StatBlock) SetMP(v int) { s.SetVital(VitalMP, v) }

func (s *StatBlock) SetVital(v Vital, value int) {
	if s.dead {
		return
	}
	s.setVital(v, value)
}

// DecreaseHP наносит урон от имени by. by становится текущим убийцей.
func (s *StatBlock) DecreaseHP(amount int, by Killable) {
	if s.dead || amount <= 0 {
		return
	}
	if by != nil {
		s.killer = by
	}
	s.setVital(VitalHP, s.hp-amount)
}

// IncreaseVital лечит пул на amount (с зажимом по максимуму).
func (s *StatBlock) IncreaseVital(v Vital, amount int) {
	if s.dead || amount <= 0 {
		return
	}
	s.setVital(v, s.Current(v)+amount)
}

// DecreaseVital тратит/отнимает SP или MP (для HP используйте DecreaseHP).
func (s *StatBlock) DecreaseVital(v Vital, amount int, by Killable) {
	if v == VitalHP {
		s.DecreaseHP(amount, by)
		return
	}
	if s.dead || amount <= 0 {
		return
	}
	s.setVital(v, s.Current(v)-amount)
}

// FullRestore заполняет все пулы до максимума (загрузка нового персонажа).
func (s *StatBlock) FullRestore() {
	if s.dead {
		return
	}
	s.setVital(VitalHP, s.MaxHP())
	s.setVital(VitalSP, s.MaxSP())
	s.setVital(VitalMP, s.MaxMP())
}

// Rebirth снимает флаг смерти и выставляет HP. Единственный выход из смерти.
func (s *StatBlock) Rebirth(hp int) {
	s.dead = false
	s.killer = nil
	if hp <= 0 {
		hp = 1
	}
	s.setVital(VitalHP, hp)
}

func (s *StatBlock) setVital(v Vital, value int) {
	limit := s.Max(v)
	if value < 0 {
		value = 0
	}
	if value > limit {
		value = limit
	}

	var old int
	switch v {
	case VitalSP:
		old, s.sp = s.sp, value
	case VitalMP:
		old, s.mp = s.mp, value
	default:
		old, s.hp = s.hp, value
	}

	if old != value {
		s.sink.VitalsChanged(s.owner, v, old, value)
	}

	if v == VitalHP && value == 0 && !s.dead {
		s.dead = true
		s.sink.Died(s.owner, s.killer)
		if s.onDeath != nil {
			s.onDeath()
		}
	}
}

// --- Дельты ---

// ApplyDelta прибавляет amount (может быть отрицательным) к полю stat.
func (s *StatBlock) ApplyDelta(stat Stat, amount int) {
	if amount == 0 {
		return
	}

	switch stat {
	case StatStr:
		s.Extra.Str += amount
	case StatDex:
		s.Extra.Dex += amount
	case StatRec:
		s.Extra.Rec += amount
	case StatInt:
		s.Extra.Int += amount
	case StatLuc:
		s.Extra.Luc += amount
	case StatWis:
		s.Extra.Wis += amount
	case StatHP:
		s.SetExtraHP(s.extraHP + amount)
	case StatSP:
		s.SetExtraSP(s.extraSP + amount)
	case StatMP:
		s.SetExtraMP(s.extraMP + amount)
	case StatDefense:
		s.ExtraDefense += amount
	case StatResistance:
		s.ExtraResistance += amount
	case StatMoveSpeed:
		s.ExtraMoveSpeed += amount
	case StatAttackSpeed:
		s.AttackSpeedModifier += amount
	case StatPhysicalHitting:
		s.Rates.PhysicalHitting += amount
	case StatShootingHitting:
		s.Rates.ShootingHitting += amount
	case StatMagicHitting:
		s.Rates.MagicHitting += amount
	case StatPhysicalEvasion:
		s.Rates.PhysicalEvasion += amount
	case StatShootingEvasion:
		s.Rates.ShootingEvasion += amount
	case StatMagicEvasion:
		s.Rates.MagicEvasion += amount
	case StatCritical:
		s.Rates.Critical += amount
	case StatPhysicalAttack:
		s.AttackPower.Physical += amount
	case StatShootingAttack:
		s.AttackPower.Shooting += amount
	case StatMagicAttack:
		s.AttackPower.Magic += amount
	default:
		logger.Component("stats").WithField("stat", stat).Error("Unknown stat in ApplyDelta")
	}
}

// Total возвращает итоговое значение характеристики (база + extra).
func (s *StatBlock) Total() Attributes {
	return Attributes{
		Str: s.Base.Str + s.Extra.Str,
		Dex: s.Base.Dex + s.Extra.Dex,
		Rec: s.Base.Rec + s.Extra.Rec,
		Int: s.Base.Int + s.Extra.Int,
		Luc: s.Base.Luc + s.Extra.Luc,
		Wis: s.Base.Wis + s.Extra.Wis,
	}
}

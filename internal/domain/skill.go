package domain

import (
	"fmt"
	"strings"
	"time"
)

// MaxAbilities - число слотов способностей у умения.
const MaxAbilities = 10

// TypeDetail - категория эффекта умения, определяет способ применения.
type TypeDetail uint8

const (
	TypeDetailUnknown TypeDetail = iota
	TypeDetailBuff
	TypeDetailPassiveDefence
	TypeDetailSubtractingDebuff
	TypeDetailPeriodicalHeal
	TypeDetailPeriodicalDebuff
	TypeDetailPreventAttack
	TypeDetailImmobilize
	TypeDetailStealth
	TypeDetailWeaponMastery
)

var typeDetailNames = []string{
	"unknown", "buff", "passiveDefence", "subtractingDebuff", "periodicalHeal",
	"periodicalDebuff", "preventAttack", "immobilize", "stealth", "weaponMastery",
}

func (t TypeDetail) String() string { return enumName(typeDetailNames, t) }

func (t TypeDetail) known() bool {
	return t > TypeDetailUnknown && int(t) < len(typeDetailNames)
}

// UnmarshalYAML: неизвестное имя превращается в TypeDetailUnknown,
// ошибка всплывёт при попытке применить умение.
func (t *TypeDetail) UnmarshalYAML(unmarshal func(any) error) error {
	v, err := unmarshalEnum[TypeDetail](unmarshal, typeDetailNames)
	*t = v
	return err
}

// StateType - состояние, которое снимают лечебные предметы.
type StateType uint8

const (
	StateNone StateType = iota
	StatePoison
	StateDisease
	StateSleep
	StateStun
	StateSilence
	StateDarkness
	StateSlow
	StateDisorder
)

var stateTypeNames = []string{
	"none", "poison", "disease", "sleep", "stun", "silence", "darkness", "slow", "disorder",
}

func (s StateType) String() string { return enumName(stateTypeNames, s) }

func (s *StateType) UnmarshalYAML(unmarshal func(any) error) error {
	v, err := unmarshalEnum[StateType](unmarshal, stateTypeNames)
	*s = v
	return err
}

// DamageMode - как считается урон периодического дебаффа.
type DamageMode uint8

const (
	DamageFixed DamageMode = iota
	// DamagePercent - процент от текущего пула цели на момент тика.
	DamagePercent
)

var damageModeNames = []string{"fixed", "percent"}

func (m DamageMode) String() string { return enumName(damageModeNames, m) }

func (m *DamageMode) UnmarshalYAML(unmarshal func(any) error) error {
	v, err := unmarshalEnum[DamageMode](unmarshal, damageModeNames)
	*m = v
	return err
}

// Ability - один слот способности умения.
type Ability struct {
	Type  AbilityType `yaml:"type"`
	Value int         `yaml:"value"`
}

// Skill - определение умения одного уровня. Данные каталога, не меняются.
type Skill struct {
	ID    uint16 `yaml:"id"`
	Level uint8  `yaml:"level"`
	Name  string `yaml:"name"`

	TypeDetail TypeDetail `yaml:"typeDetail"`
	Passive    bool       `yaml:"passive"`

	// KeepTime - длительность в секундах; 0 - "навсегда" (до явного снятия).
	KeepTime int `yaml:"keepTime"`
	// TickSeconds - период тика периодических эффектов; 0 - одна секунда.
	TickSeconds int `yaml:"tickSeconds"`

	Abilities []Ability `yaml:"abilities"`

	HealHP int `yaml:"healHp"`
	HealSP int `yaml:"healSp"`
	HealMP int `yaml:"healMp"`

	DamageHP   int        `yaml:"damageHp"`
	DamageSP   int        `yaml:"damageSp"`
	DamageMP   int        `yaml:"damageMp"`
	DamageMode DamageMode `yaml:"damageMode"`

	Weapon1     WeaponKind `yaml:"weapon1"`
	Weapon2     WeaponKind `yaml:"weapon2"`
	WeaponValue int        `yaml:"weaponValue"`

	StateType StateType `yaml:"stateType"`
}

// permanentKeep - срок для умений без KeepTime.
const permanentKeep = 10 * 24 * time.Hour

// ResetTime - момент истечения баффа, наложенного в now.
func (s *Skill) ResetTime(now time.Time) time.Time {
	if s.KeepTime <= 0 {
		return now.Add(permanentKeep)
	}
	return now.Add(time.Duration(s.KeepTime) * time.Second)
}

// TickPeriod - период срабатывания периодического эффекта.
func (s *Skill) TickPeriod() time.Duration {
	if s.TickSeconds <= 0 {
		return time.Second
	}
	return time.Duration(s.TickSeconds) * time.Second
}

// Validate проверяет, что движок умеет применить умение целиком.
// Вызывается до любых изменений состояния.
func (s *Skill) Validate() error {
	if !s.TypeDetail.known() {
		return fmt.Errorf("%w: skill %d/%d type detail %d", ErrUnimplementedEffect, s.ID, s.Level, uint8(s.TypeDetail))
	}
	if len(s.Abilities) > MaxAbilities {
		return fmt.Errorf("%w: skill %d/%d has %d ability slots", ErrUnimplementedEffect, s.ID, s.Level, len(s.Abilities))
	}
	for _, a := range s.Abilities {
		if _, ok := abilityTargets[a.Type]; !ok {
			return fmt.Errorf("%w: skill %d/%d ability %d", ErrUnimplementedEffect, s.ID, s.Level, uint8(a.Type))
		}
	}
	return nil
}

func (s *Skill) String() string {
	return fmt.Sprintf("%s(%d/%d)", s.Name, s.ID, s.Level)
}

// --- имена перечислений ---

func enumName[T ~uint8](names []string, v T) string {
	if int(v) < len(names) {
		return names[v]
	}
	return "unknown"
}

func parseEnum[T ~uint8](names []string, s string) (T, bool) {
	s = strings.TrimSpace(s)
	for i, n := range names {
		if strings.EqualFold(n, s) {
			return T(i), true
		}
	}
	return 0, false
}

// unmarshalEnum понимает и имя, и число. Неизвестное имя даёт нулевое значение.
func unmarshalEnum[T ~uint8](unmarshal func(any) error, names []string) (T, error) {
	var n uint8
	if err := unmarshal(&n); err == nil {
		return T(n), nil
	}
	var s string
	if err := unmarshal(&s); err != nil {
		return 0, err
	}
	v, _ := parseEnum[T](names, s)
	return v, nil
}

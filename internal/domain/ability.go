package domain

import "fmt"

// AbilityType - вид способности в слоте умения.
type AbilityType uint8

const (
	AbilityUnknown AbilityType = iota
	AbilityPhysicalHitting
	AbilityShootingHitting
	AbilityMagicHitting
	AbilityPhysicalEvasion
	AbilityShootingEvasion
	AbilityMagicEvasion
	AbilityCritical
	AbilityPhysicalAttackPower
	AbilityShootingAttackPower
	AbilityMagicAttackPower
	// AbilityPhysicalShootingAttackPower - одновременно ближний и дальний урон.
	AbilityPhysicalShootingAttackPower
	AbilityStr
	AbilityDex
	AbilityRec
	AbilityInt
	AbilityLuc
	AbilityWis
	AbilityHP
	AbilitySP
	AbilityMP
	AbilityDefense
	AbilityResistance
	AbilityMoveSpeed
	AbilityAttackSpeed
)

var abilityTypeNames = []string{
	"unknown",
	"physicalHitting", "shootingHitting", "magicHitting",
	"physicalEvasion", "shootingEvasion", "magicEvasion",
	"critical",
	"physicalAttackPower", "shootingAttackPower", "magicAttackPower", "physicalShootingAttackPower",
	"str", "dex", "rec", "int", "luc", "wis",
	"hp", "sp", "mp",
	"defense", "resistance",
	"moveSpeed", "attackSpeed",
}

func (a AbilityType) String() string { return enumName(abilityTypeNames, a) }

func (a *AbilityType) UnmarshalYAML(unmarshal func(any) error) error {
	v, err := unmarshalEnum[AbilityType](unmarshal, abilityTypeNames)
	*a = v
	return err
}

// abilityTargets - какие поля StatBlock меняет способность.
var abilityTargets = map[AbilityType][]Stat{
	AbilityPhysicalHitting:             {StatPhysicalHitting},
	AbilityShootingHitting:             {StatShootingHitting},
	AbilityMagicHitting:                {StatMagicHitting},
	AbilityPhysicalEvasion:             {StatPhysicalEvasion},
	AbilityShootingEvasion:             {StatShootingEvasion},
	AbilityMagicEvasion:                {StatMagicEvasion},
	AbilityCritical:                    {StatCritical},
	AbilityPhysicalAttackPower:         {StatPhysicalAttack},
	AbilityShootingAttackPower:         {StatShootingAttack},
	AbilityMagicAttackPower:            {StatMagicAttack},
	AbilityPhysicalShootingAttackPower: {StatPhysicalAttack, StatShootingAttack},
	AbilityStr:                         {StatStr},
	AbilityDex:                         {StatDex},
	AbilityRec:                         {StatRec},
	AbilityInt:                         {StatInt},
	AbilityLuc:                         {StatLuc},
	AbilityWis:                         {StatWis},
	AbilityHP:                          {StatHP},
	AbilitySP:                          {StatSP},
	AbilityMP:                          {StatMP},
	AbilityDefense:                     {StatDefense},
	AbilityResistance:                  {StatResistance},
	AbilityMoveSpeed:                   {StatMoveSpeed},
	AbilityAttackSpeed:                 {StatAttackSpeed},
}

// ApplyAbility прибавляет (adding) или вычитает value из поля StatBlock.
// Шесть основных характеристик дополнительно шлют StatsChanged,
// скорости шлют SpeedChanged.
func (e *EffectEngine) ApplyAbility(t AbilityType, value int, adding bool) error {
	targets, ok := abilityTargets[t]
	if !ok {
		return fmt.Errorf("%w: ability %d", ErrUnimplementedEffect, uint8(t))
	}

	amount := value
	if !adding {
		amount = -value
	}

	st := e.owner.Stats()
	for _, stat := range targets {
		st.ApplyDelta(stat, amount)
	}

	switch t {
	case AbilityStr, AbilityDex, AbilityRec, AbilityInt, AbilityLuc, AbilityWis:
		e.env.Sink.StatsChanged(e.owner)
	case AbilityMoveSpeed, AbilityAttackSpeed:
		e.env.Sink.SpeedChanged(e.owner)
	}
	return nil
}

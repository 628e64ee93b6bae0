package domain

import (
	"container/heap"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Mun1z/Imgeneus/internal/persist"
	"github.com/Mun1z/Imgeneus/pkg/logger"
)

// Умения "спринта": снимаются при входе в стелс. Старый и текущий ID.
const (
	SprintSkillLegacy uint16 = 681
	SprintSkill       uint16 = 114
)

// EffectEngine - активные и пассивные баффы одной сущности.
//
// Для каждого (skillID, passive) не больше одного баффа. Переходы состояния
// выполняются явно: AddOrRefresh применяет эффект, Remove снимает ровно то,
// что было применено.
type EffectEngine struct {
	owner Killable
	env   Env

	active  map[uint16]*ActiveBuff
	passive map[uint16]*ActiveBuff
	expiry  expiryQueue

	stealth     bool
	weaponSpeed map[WeaponKind]int

	log *logrus.Entry
}

func newEffectEngine(owner Killable, env Env) *EffectEngine {
	return &EffectEngine{
		owner:       owner,
		env:         env,
		active:      make(map[uint16]*ActiveBuff),
		passive:     make(map[uint16]*ActiveBuff),
		weaponSpeed: make(map[WeaponKind]int),
		log:         logger.Component("effects"),
	}
}

func (e *EffectEngine) bucket(passive bool) map[uint16]*ActiveBuff {
	if passive {
		return e.passive
	}
	return e.active
}

// Get возвращает бафф по умению или nil.
func (e *EffectEngine) Get(skillID uint16, passive bool) *ActiveBuff {
	return e.bucket(passive)[skillID]
}

// Active - активные баффы, отсортированные по ID умения.
func (e *EffectEngine) Active() []*ActiveBuff { return sortedBuffs(e.active) }

// Passive - пассивные баффы, отсортированные по ID умения.
func (e *EffectEngine) Passive() []*ActiveBuff { return sortedBuffs(e.passive) }

// IsStealth - есть ли на сущности стелс.
func (e *EffectEngine) IsStealth() bool { return e.stealth }

// WeaponSpeedModifier - бонус мастерства к скорости атаки для вида оружия.
func (e *EffectEngine) WeaponSpeedModifier(kind WeaponKind) int {
	return e.weaponSpeed[kind]
}

// NextExpiry - ближайший момент истечения.
func (e *EffectEngine) NextExpiry() (time.Time, bool) {
	if b := e.expiry.peek(); b != nil {
		return b.ResetTime, true
	}
	return time.Time{}, false
}

// AddOrRefresh накладывает умение от имени creator.
//
//   - баффа нет: создать, применить, уведомить (только активные);
//   - есть с большим уровнем: ничего не менять, вернуть существующий;
//   - тот же уровень: продлить срок, повторно уведомить;
//   - есть с меньшим уровнем: снять старый, наложить новый.
func (e *EffectEngine) AddOrRefresh(skill *Skill, creator Killable) (*ActiveBuff, error) {
	if skill == nil {
		return nil, ErrSkillNotFound
	}
	return e.add(skill, creator, skill.ResetTime(e.env.Now()), true)
}

// Restore накладывает сохранённый бафф при входе персонажа, сохраняя его срок.
// В очередь записи ничего не ставится: запись уже в хранилище.
func (e *EffectEngine) Restore(skill *Skill, resetTime time.Time) (*ActiveBuff, error) {
	if skill == nil {
		return nil, ErrSkillNotFound
	}
	if !e.env.Now().Before(resetTime) {
		return nil, nil
	}
	return e.add(skill, nil, resetTime, false)
}

func (e *EffectEngine) add(skill *Skill, creator Killable, reset time.Time, persistent bool) (*ActiveBuff, error) {
	if err := skill.Validate(); err != nil {
		return nil, err
	}
	if e.owner.IsDead() && !skill.Passive {
		return nil, ErrEntityDead
	}

	bucket := e.bucket(skill.Passive)

	if existing := bucket[skill.ID]; existing != nil {
		switch {
		case existing.Skill.Level > skill.Level:
			return existing, nil

		case existing.Skill.Level == skill.Level:
			existing.ResetTime = reset
			if existing.index >= 0 {
				heap.Fix(&e.expiry, existing.index)
			}
			if persistent {
				e.save(existing)
			}
			if !existing.Passive {
				e.env.Sink.BuffAdded(e.owner, existing)
			}
			return existing, nil

		default:
			e.remove(existing, true, persistent)
		}
	}

	b := &ActiveBuff{
		Skill:     skill,
		Creator:   creator,
		ResetTime: reset,
		Passive:   skill.Passive,
		index:     -1,
	}

	bucket[skill.ID] = b
	heap.Push(&e.expiry, b)
	e.apply(b)

	if persistent {
		e.save(b)
	}
	if !b.Passive {
		e.env.Sink.BuffAdded(e.owner, b)
	}

	e.log.WithFields(logrus.Fields{
		"owner_id": e.owner.ID(),
		"skill":    skill.String(),
		"passive":  b.Passive,
		"reset_at": reset,
	}).Debug("Buff added")

	return b, nil
}

// Remove снимает бафф умения skillID.
func (e *EffectEngine) Remove(skillID uint16, passive bool) error {
	b := e.bucket(passive)[skillID]
	if b == nil {
		return fmt.Errorf("%w: skill %d", ErrBuffNotFound, skillID)
	}
	e.remove(b, true, true)
	return nil
}

// CancelBuff снимает активный бафф (отмена игроком или лечение).
func (e *EffectEngine) CancelBuff(skillID uint16) error {
	return e.Remove(skillID, false)
}

// CanCure проверяет, поддерживается ли лечение состояния.
func (e *EffectEngine) CanCure(st StateType) error {
	switch st {
	case StateNone:
		return fmt.Errorf("%w: cure of %s", ErrInvalidRequest, st)
	case StateDisorder:
		// поведение не определено, состояние не трогаем
		return fmt.Errorf("%w: %s", ErrCureNotSupported, st)
	}
	if int(st) >= len(stateTypeNames) {
		return fmt.Errorf("%w: state %d", ErrUnimplementedEffect, uint8(st))
	}
	return nil
}

// CureByStateType снимает все активные баффы с данным состоянием.
// Возвращает количество снятых.
func (e *EffectEngine) CureByStateType(st StateType) (int, error) {
	if err := e.CanCure(st); err != nil {
		return 0, err
	}
	n := 0
	for _, b := range e.Active() {
		if b.Skill.StateType == st {
			e.remove(b, true, true)
			n++
		}
	}
	return n, nil
}

// RemoveExpired снимает баффы, у которых now >= ResetTime.
func (e *EffectEngine) RemoveExpired(now time.Time) []*ActiveBuff {
	var expired []*ActiveBuff
	for {
		b := e.expiry.peek()
		if b == nil || !b.Expired(now) {
			break
		}
		e.remove(b, true, true)
		expired = append(expired, b)
	}
	return expired
}

// ClearActive снимает все активные баффы (смерть). Пассивные остаются.
func (e *EffectEngine) ClearActive() {
	for _, b := range e.Active() {
		e.remove(b, true, true)
	}
}

// Release останавливает все тики при выгрузке сущности.
// Ни статы, ни хранилище не трогаются: сущность уничтожается.
func (e *EffectEngine) Release() {
	for _, bucket := range []map[uint16]*ActiveBuff{e.active, e.passive} {
		for id, b := range bucket {
			b.removed = true
			if b.stopTick != nil {
				b.stopTick()
				b.stopTick = nil
			}
			delete(bucket, id)
		}
	}
	e.expiry = e.expiry[:0]
}

// Snapshot - записи всех баффов для сохранения при выходе.
func (e *EffectEngine) Snapshot() []persist.BuffRecord {
	out := make([]persist.BuffRecord, 0, len(e.active)+len(e.passive))
	for _, b := range e.Passive() {
		out = append(out, b.Record())
	}
	for _, b := range e.Active() {
		out = append(out, b.Record())
	}
	return out
}

func (e *EffectEngine) remove(b *ActiveBuff, notify, persistent bool) {
	bucket := e.bucket(b.Passive)
	if bucket[b.Skill.ID] != b {
		return
	}
	delete(bucket, b.Skill.ID)
	if b.index >= 0 {
		heap.Remove(&e.expiry, b.index)
	}
	b.removed = true

	e.retract(b)

	if persistent {
		e.env.Queue.Enqueue(persist.ActionRemoveBuff, e.owner.ID(), persist.BuffKey{SkillID: b.Skill.ID, Passive: b.Passive})
	}
	if notify && !b.Passive {
		e.env.Sink.BuffRemoved(e.owner, b)
	}
}

func (e *EffectEngine) save(b *ActiveBuff) {
	e.env.Queue.Enqueue(persist.ActionSaveBuff, e.owner.ID(), b.Record())
}

// apply - вклад баффа по категории. Умение уже провалидировано.
func (e *EffectEngine) apply(b *ActiveBuff) {
	s := b.Skill
	switch s.TypeDetail {
	case TypeDetailBuff, TypeDetailPassiveDefence:
		e.applyAbilities(s, true)

	case TypeDetailSubtractingDebuff:
		// дебафф отнимает бонусы, а не добавляет штрафы
		e.applyAbilities(s, false)

	case TypeDetailPeriodicalHeal, TypeDetailPeriodicalDebuff:
		b.stopTick = e.env.Ticks.Every(s.TickPeriod(), func() { e.tick(b) })

	case TypeDetailPreventAttack, TypeDetailImmobilize:
		e.env.Sink.SpeedChanged(e.owner)

	case TypeDetailStealth:
		e.stealth = true
		for _, id := range []uint16{SprintSkillLegacy, SprintSkill} {
			if sprint := e.active[id]; sprint != nil {
				e.remove(sprint, true, true)
			}
		}

	case TypeDetailWeaponMastery:
		e.setWeaponSpeed(s, true)
		e.env.Sink.SpeedChanged(e.owner)
	}
}

// retract - обратное к apply.
func (e *EffectEngine) retract(b *ActiveBuff) {
	s := b.Skill
	switch s.TypeDetail {
	case TypeDetailBuff, TypeDetailPassiveDefence:
		e.applyAbilities(s, false)

	case TypeDetailSubtractingDebuff:
		e.applyAbilities(s, true)

	case TypeDetailPeriodicalHeal, TypeDetailPeriodicalDebuff:
		if b.stopTick != nil {
			b.stopTick()
			b.stopTick = nil
		}

	case TypeDetailPreventAttack, TypeDetailImmobilize:
		e.env.Sink.SpeedChanged(e.owner)

	case TypeDetailStealth:
		// b уже удалён из коллекции; пассивная невидимость тоже считается
		e.stealth = e.hasStealth(e.active) || e.hasStealth(e.passive)

	case TypeDetailWeaponMastery:
		e.setWeaponSpeed(s, false)
		e.env.Sink.SpeedChanged(e.owner)
	}
}

func (e *EffectEngine) hasStealth(bucket map[uint16]*ActiveBuff) bool {
	for _, b := range bucket {
		if b.Skill.TypeDetail == TypeDetailStealth {
			return true
		}
	}
	return false
}

func (e *EffectEngine) applyAbilities(s *Skill, adding bool) {
	for _, a := range s.Abilities {
		if err := e.ApplyAbility(a.Type, a.Value, adding); err != nil {
			e.log.WithError(err).WithField("skill", s.String()).Error("Ability apply failed after validation")
		}
	}
}

func (e *EffectEngine) setWeaponSpeed(s *Skill, adding bool) {
	for _, kind := range []WeaponKind{s.Weapon1, s.Weapon2} {
		if kind == WeaponNone {
			continue
		}
		if adding {
			e.weaponSpeed[kind] = s.WeaponValue
		} else {
			delete(e.weaponSpeed, kind)
		}
	}
}

// tick - одно срабатывание периодического эффекта. Выполняется в контексте
// сущности. Тик снятого баффа игнорируется.
func (e *EffectEngine) tick(b *ActiveBuff) {
	if b.removed || e.bucket(b.Passive)[b.Skill.ID] != b {
		return
	}
	if e.owner.IsDead() {
		return
	}

	s := b.Skill
	st := e.owner.Stats()

	if s.TypeDetail == TypeDetailPeriodicalHeal {
		result := TickResult{Heal: true, HP: s.HealHP, SP: s.HealSP, MP: s.HealMP}
		e.env.Sink.SkillKeep(e.owner, b, result)
		st.IncreaseVital(VitalHP, result.HP)
		st.IncreaseVital(VitalSP, result.SP)
		st.IncreaseVital(VitalMP, result.MP)
		return
	}

	result := TickResult{HP: s.DamageHP, SP: s.DamageSP, MP: s.DamageMP}
	if s.DamageMode == DamagePercent {
		// процент от текущего пула на момент тика
		result.HP = st.HP() * s.DamageHP / 100
		result.SP = st.SP() * s.DamageSP / 100
		result.MP = st.MP() * s.DamageMP / 100
	}
	e.env.Sink.SkillKeep(e.owner, b, result)
	st.DecreaseVital(VitalSP, result.SP, b.Creator)
	st.DecreaseVital(VitalMP, result.MP, b.Creator)
	st.DecreaseHP(result.HP, b.Creator)
}

func sortedBuffs(m map[uint16]*ActiveBuff) []*ActiveBuff {
	out := make([]*ActiveBuff, 0, len(m))
	for _, b := range m {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Skill.ID < out[j].Skill.ID })
	return out
}

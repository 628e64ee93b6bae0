package domain

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Mun1z/Imgeneus/internal/core/types"
	"github.com/Mun1z/Imgeneus/internal/core/types/enums"
	"github.com/Mun1z/Imgeneus/internal/persist"
	"github.com/Mun1z/Imgeneus/pkg/logger"
)

func TestMain(m *testing.M) {
	// Initialize the global logger before running any tests
	logger.Init()

	os.Exit(m.Run())
}

// --- fakes ---

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// manualTicks запускает тики только по команде теста.
type manualTicks struct {
	tasks []*manualTask
}

type manualTask struct {
	period  time.Duration
	fn      func()
	stopped bool
}

func (m *manualTicks) Every(period time.Duration, fn func()) func() {
	t := &manualTask{period: period, fn: fn}
	m.tasks = append(m.tasks, t)
	return func() { t.stopped = true }
}

// fire выполняет один тик всех активных расписаний.
func (m *manualTicks) fire() {
	for _, t := range m.tasks {
		if !t.stopped {
			t.fn()
		}
	}
}

func (m *manualTicks) active() int {
	n := 0
	for _, t := range m.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}

// recordingSink запоминает события в виде строк.
type recordingSink struct {
	NopSink
	events []string
	ticks  []TickResult
	deaths int
}

func (s *recordingSink) HasSubscriber(types.EntityID) bool { return true }

func (s *recordingSink) add(format string, args ...any) {
	s.events = append(s.events, fmt.Sprintf(format, args...))
}

func (s *recordingSink) EquipmentChanged(_ Killable, item *Item, slot EquipSlot) {
	name := "nil"
	if item != nil {
		name = item.Name
	}
	s.add("equipment %s %s", slot, name)
}

func (s *recordingSink) BuffAdded(_ Killable, b *ActiveBuff) {
	s.add("buff+ %d/%d", b.SkillID(), b.SkillLevel())
}

func (s *recordingSink) BuffRemoved(_ Killable, b *ActiveBuff) {
	s.add("buff- %d/%d", b.SkillID(), b.SkillLevel())
}

func (s *recordingSink) SpeedChanged(Killable) { s.add("speed") }

func (s *recordingSink) Died(Killable, Killable) {
	s.deaths++
	s.add("died")
}

func (s *recordingSink) SkillKeep(_ Killable, b *ActiveBuff, r TickResult) {
	s.ticks = append(s.ticks, r)
	s.add("keep %d", b.SkillID())
}

func (s *recordingSink) count(event string) int {
	n := 0
	for _, e := range s.events {
		if e == event {
			n++
		}
	}
	return n
}

func (s *recordingSink) reset() { s.events, s.ticks = nil, nil }

type queued struct {
	kind    persist.ActionKind
	owner   types.EntityID
	payload persist.Payload
}

type recordingQueue struct {
	entries []queued
}

func (q *recordingQueue) Enqueue(kind persist.ActionKind, owner types.EntityID, payload persist.Payload) {
	q.entries = append(q.entries, queued{kind, owner, payload})
}

func (q *recordingQueue) kinds() []persist.ActionKind {
	out := make([]persist.ActionKind, 0, len(q.entries))
	for _, e := range q.entries {
		out = append(out, e.kind)
	}
	return out
}

func (q *recordingQueue) reset() { q.entries = nil }

// testCatalog - каталог в памяти.
type testCatalog struct {
	items  map[[2]uint8]*ItemTemplate
	skills map[[2]uint16]*Skill
}

func newTestCatalog() *testCatalog {
	c := &testCatalog{
		items:  make(map[[2]uint8]*ItemTemplate),
		skills: make(map[[2]uint16]*Skill),
	}
	for _, t := range []*ItemTemplate{swordTpl, axeTpl, helmetTpl, ringTpl, horseTpl, potionTpl, antidoteTpl, scrollTpl, peltTpl} {
		c.items[[2]uint8{t.Type, t.TypeID}] = t
	}
	for _, s := range []*Skill{mightL1, mightL2, regen, poisonSting, sprint, shadowVeil, swordMastery, toughness, stunBlow, weaken} {
		c.skills[[2]uint16{s.ID, uint16(s.Level)}] = s
	}
	return c
}

func (c *testCatalog) LookupItem(itemType, typeID uint8) (*ItemTemplate, bool) {
	t, ok := c.items[[2]uint8{itemType, typeID}]
	return t, ok
}

func (c *testCatalog) LookupSkill(id uint16, level uint8) (*Skill, bool) {
	s, ok := c.skills[[2]uint16{id, uint16(level)}]
	return s, ok
}

// --- контент ---

var (
	swordTpl = &ItemTemplate{Type: 1, TypeID: 1, Name: "Short Sword", Slot: SlotWeapon, Weapon: WeaponOneHandedSword,
		Stats: ItemStats{Str: 5, AttackSpeed: 4}, MaxCount: 1, Price: 100}
	axeTpl = &ItemTemplate{Type: 1, TypeID: 2, Name: "War Axe", Slot: SlotWeapon, Weapon: WeaponAxe,
		Stats: ItemStats{Str: 8, AttackSpeed: 2}, MaxCount: 1, Price: 250}
	helmetTpl = &ItemTemplate{Type: 2, TypeID: 1, Name: "Leather Helmet", Slot: SlotHelmet,
		Stats: ItemStats{HP: 50, Defense: 3}, MaxCount: 1, Price: 40}
	ringTpl = &ItemTemplate{Type: 3, TypeID: 1, Name: "Copper Ring", Slot: SlotRing1,
		Stats: ItemStats{Luc: 2}, MaxCount: 1, Price: 60}
	horseTpl = &ItemTemplate{Type: 4, TypeID: 1, Name: "Brown Horse", Slot: SlotMount,
		Stats: ItemStats{MoveSpeed: 4}, MaxCount: 1, Price: 500}
	potionTpl = &ItemTemplate{Type: 10, TypeID: 1, Name: "Healing Potion", Slot: SlotNone,
		Joinable: true, MaxCount: 10, Consumable: true, HealHP: 100, Price: 10}
	antidoteTpl = &ItemTemplate{Type: 10, TypeID: 3, Name: "Antidote", Slot: SlotNone,
		Joinable: true, MaxCount: 10, Consumable: true, Cure: StatePoison, Price: 15}
	scrollTpl = &ItemTemplate{Type: 10, TypeID: 4, Name: "Scroll of Strength", Slot: SlotNone,
		Joinable: true, MaxCount: 10, Consumable: true, SkillID: 200, SkillLevel: 1, Price: 30}
	peltTpl = &ItemTemplate{Type: 20, TypeID: 1, Name: "Wolf Pelt", Slot: SlotNone,
		Joinable: true, MaxCount: 5, Price: 2}
)

var (
	mightL1 = &Skill{ID: 200, Level: 1, Name: "Might", TypeDetail: TypeDetailBuff, KeepTime: 60,
		Abilities: []Ability{{Type: AbilityStr, Value: 3}}}
	mightL2 = &Skill{ID: 200, Level: 2, Name: "Might", TypeDetail: TypeDetailBuff, KeepTime: 60,
		Abilities: []Ability{{Type: AbilityStr, Value: 6}, {Type: AbilityPhysicalAttackPower, Value: 10}}}
	weaken = &Skill{ID: 210, Level: 1, Name: "Weaken", TypeDetail: TypeDetailSubtractingDebuff, KeepTime: 30,
		Abilities: []Ability{{Type: AbilityDex, Value: 4}}}
	regen = &Skill{ID: 220, Level: 1, Name: "Regeneration", TypeDetail: TypeDetailPeriodicalHeal, KeepTime: 30,
		TickSeconds: 2, HealHP: 15}
	poisonSting = &Skill{ID: 230, Level: 1, Name: "Poison Sting", TypeDetail: TypeDetailPeriodicalDebuff, KeepTime: 30,
		DamageHP: 10, DamageMode: DamagePercent, StateType: StatePoison}
	stunBlow = &Skill{ID: 240, Level: 1, Name: "Stun Blow", TypeDetail: TypeDetailPreventAttack, KeepTime: 3,
		StateType: StateStun}
	sprint = &Skill{ID: SprintSkill, Level: 1, Name: "Sprint", TypeDetail: TypeDetailBuff, KeepTime: 20,
		Abilities: []Ability{{Type: AbilityMoveSpeed, Value: 2}}}
	shadowVeil = &Skill{ID: 250, Level: 1, Name: "Shadow Veil", TypeDetail: TypeDetailStealth, KeepTime: 40}
	swordMastery = &Skill{ID: 260, Level: 1, Name: "Sword Mastery", TypeDetail: TypeDetailWeaponMastery, Passive: true,
		Weapon1: WeaponOneHandedSword, Weapon2: WeaponTwoHandedSword, WeaponValue: 2}
	toughness = &Skill{ID: 270, Level: 1, Name: "Toughness", TypeDetail: TypeDetailPassiveDefence, Passive: true,
		Abilities: []Ability{{Type: AbilityHP, Value: 40}}}
)

// --- фикстура ---

type fixture struct {
	clock *fakeClock
	ticks *manualTicks
	sink  *recordingSink
	queue *recordingQueue
	cat   *testCatalog
}

func (f *fixture) env() Env {
	return Env{Sink: f.sink, Queue: f.queue, Ticks: f.ticks, Now: f.clock.Now}
}

func newFixture() *fixture {
	return &fixture{
		clock: newFakeClock(),
		ticks: &manualTicks{},
		sink:  &recordingSink{},
		queue: &recordingQueue{},
		cat:   newTestCatalog(),
	}
}

var testProfile = Profile{
	Name:       "Tester",
	Level:      10,
	Attributes: Attributes{Str: 10, Dex: 10, Rec: 10, Int: 10, Luc: 10, Wis: 10},
	HP:         200,
	SP:         100,
	MP:         100,
	MoveSpeed:  2,
}

func newTestCharacter(t *testing.T) (*Character, *fixture) {
	t.Helper()
	f := newFixture()
	c := NewCharacter(testProfile, f.env())
	if err := c.AssignID(types.PackEntityID(0, enums.EntityKindCharacter, 0, 1)); err != nil {
		t.Fatalf("AssignID: %v", err)
	}
	return c, f
}

func newTestMob(t *testing.T, f *fixture, index uint32) *Mob {
	t.Helper()
	m := NewMob(Profile{Name: "Wolf", Level: 5, HP: 100, SP: 10, MP: 10, MoveSpeed: 3}, f.env())
	if err := m.AssignID(types.PackEntityID(0, enums.EntityKindMob, 0, index)); err != nil {
		t.Fatalf("AssignID: %v", err)
	}
	return m
}

// give кладёт предмет в первый свободный слот.
func give(t *testing.T, c *Character, tpl *ItemTemplate, count int) *Item {
	t.Helper()
	it, err := c.Inventory().AddItem(NewItem(tpl, count))
	if err != nil {
		t.Fatalf("AddItem(%s): %v", tpl.Name, err)
	}
	return it
}

package domain

import (
	"testing"

	"pgregory.net/rapid"
)

func TestStatBlock_HPClampAndSingleDeath(t *testing.T) {
	c, f := newTestCharacter(t)
	mob := newTestMob(t, f, 1)
	st := c.Stats()

	st.SetHP(10_000)
	if st.HP() != st.MaxHP() {
		t.Fatalf("HP = %d, want clamp to %d", st.HP(), st.MaxHP())
	}

	st.DecreaseHP(150, mob)
	if st.HP() != 50 {
		t.Fatalf("HP = %d, want 50", st.HP())
	}

	st.DecreaseHP(500, mob)
	if st.HP() != 0 || !st.IsDead() {
		t.Fatalf("HP = %d dead=%v, want 0 and dead", st.HP(), st.IsDead())
	}
	if st.Killer() != Killable(mob) {
		t.Errorf("Killer = %v, want mob", st.Killer())
	}

	st.DecreaseHP(10, mob)
	st.SetHP(0)
	st.IncreaseVital(VitalHP, 50)

	if f.sink.deaths != 1 {
		t.Errorf("death notifications = %d, want exactly 1", f.sink.deaths)
	}
	if st.HP() != 0 {
		t.Errorf("dead HP changed to %d", st.HP())
	}
}

func TestStatBlock_Rebirth(t *testing.T) {
	c, f := newTestCharacter(t)
	st := c.Stats()

	if err := c.Rebirth(); err == nil {
		t.Fatal("Rebirth of a living character must fail")
	}

	st.DecreaseHP(st.HP(), nil)
	if !c.IsDead() {
		t.Fatal("character should be dead")
	}
	f.queue.reset()

	if err := c.Rebirth(); err != nil {
		t.Fatalf("Rebirth: %v", err)
	}
	if c.IsDead() || st.HP() != st.MaxHP() {
		t.Errorf("after rebirth dead=%v HP=%d/%d", c.IsDead(), st.HP(), st.MaxHP())
	}
	if st.Killer() != nil {
		t.Error("killer must be cleared")
	}
	if len(f.queue.entries) != 1 {
		t.Errorf("rebirth must persist vitals once, got %v", f.queue.kinds())
	}
}

func TestStatBlock_ExtraMaxClampsCurrent(t *testing.T) {
	c, _ := newTestCharacter(t)
	st := c.Stats()

	st.ApplyDelta(StatHP, 100)
	st.SetHP(300)
	if st.HP() != 300 {
		t.Fatalf("HP = %d, want 300", st.HP())
	}

	st.ApplyDelta(StatHP, -100)
	if st.HP() != 200 {
		t.Errorf("HP = %d, want clamp to 200 after losing bonus", st.HP())
	}

	// бонус не может убить
	st.ApplyDelta(StatHP, -1000)
	if st.MaxHP() != 1 || st.HP() != 1 || st.IsDead() {
		t.Errorf("MaxHP=%d HP=%d dead=%v, want floor 1 and alive", st.MaxHP(), st.HP(), st.IsDead())
	}
}

func TestStatBlock_ApplyDeltaTargets(t *testing.T) {
	tests := []struct {
		stat  Stat
		check func(*StatBlock) int
	}{
		{StatStr, func(s *StatBlock) int { return s.Extra.Str }},
		{StatWis, func(s *StatBlock) int { return s.Extra.Wis }},
		{StatDefense, func(s *StatBlock) int { return s.ExtraDefense }},
		{StatResistance, func(s *StatBlock) int { return s.ExtraResistance }},
		{StatMoveSpeed, func(s *StatBlock) int { return s.ExtraMoveSpeed }},
		{StatAttackSpeed, func(s *StatBlock) int { return s.AttackSpeedModifier }},
		{StatCritical, func(s *StatBlock) int { return s.Rates.Critical }},
		{StatMagicEvasion, func(s *StatBlock) int { return s.Rates.MagicEvasion }},
		{StatShootingAttack, func(s *StatBlock) int { return s.AttackPower.Shooting }},
		{StatSP, func(s *StatBlock) int { return s.ExtraSP() }},
	}

	for _, tt := range tests {
		c, _ := newTestCharacter(t)
		st := c.Stats()
		st.ApplyDelta(tt.stat, 7)
		if got := tt.check(st); got != 7 {
			t.Errorf("stat %d: got %d, want 7", tt.stat, got)
		}
		st.ApplyDelta(tt.stat, -7)
		if got := tt.check(st); got != 0 {
			t.Errorf("stat %d: residual %d after revert", tt.stat, got)
		}
	}
}

// HP всегда в [0, MaxHP], смерть ровно одна, что бы ни делали с пулом.
func TestStatBlock_HPInvariantProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture()
		c := NewCharacter(testProfile, f.env())
		st := c.Stats()

		ops := rapid.SliceOfN(rapid.IntRange(0, 3), 1, 50).Draw(rt, "ops")
		for i, op := range ops {
			amount := rapid.IntRange(-300, 300).Draw(rt, "amount")
			switch op {
			case 0:
				st.DecreaseHP(amount, nil)
			case 1:
				st.IncreaseVital(VitalHP, amount)
			case 2:
				st.ApplyDelta(StatHP, amount)
			case 3:
				st.SetHP(amount)
			}

			if st.HP() < 0 || st.HP() > st.MaxHP() {
				rt.Fatalf("step %d: HP %d outside [0, %d]", i, st.HP(), st.MaxHP())
			}
			if st.IsDead() != (f.sink.deaths == 1) || f.sink.deaths > 1 {
				rt.Fatalf("step %d: dead=%v deaths=%d", i, st.IsDead(), f.sink.deaths)
			}
		}
	})
}

package network

import (
	"time"

	"github.com/Mun1z/Imgeneus/internal/domain"
	"github.com/Mun1z/Imgeneus/pkg/api"
)

// Функции ниже читают живое состояние сущности, поэтому вызываются
// только из её контекста (актора).

func ItemView(it *domain.Item) *api.ItemView {
	if it == nil {
		return nil
	}
	return &api.ItemView{
		UID:    it.UID,
		Type:   it.Type,
		TypeID: it.TypeID,
		Name:   it.Name,
		Count:  it.Count,
		Bag:    it.Bag,
		Slot:   it.Slot,
	}
}

func SlotView(s domain.SlotState) api.SlotView {
	return api.SlotView{Bag: s.Bag, Slot: s.Slot, Item: ItemView(s.Item)}
}

func StatsView(e domain.Killable) api.StatsView {
	st := e.Stats()
	total := st.Total()
	return api.StatsView{
		HP:         st.HP(),
		MaxHP:      st.MaxHP(),
		SP:         st.SP(),
		MaxSP:      st.MaxSP(),
		MP:         st.MP(),
		MaxMP:      st.MaxMP(),
		Str:        total.Str,
		Dex:        total.Dex,
		Rec:        total.Rec,
		Int:        total.Int,
		Luc:        total.Luc,
		Wis:        total.Wis,
		Defense:    st.ExtraDefense,
		Resistance: st.ExtraResistance,
		IsDead:     st.IsDead(),
	}
}

type speeder interface {
	MoveSpeed() int
	AttackSpeed() int
}

func SpeedView(e domain.Killable) api.SpeedView {
	if s, ok := e.(speeder); ok {
		return api.SpeedView{Move: s.MoveSpeed(), Attack: s.AttackSpeed()}
	}
	return api.SpeedView{}
}

func BuffView(b *domain.ActiveBuff, now time.Time) api.BuffView {
	v := api.BuffView{
		SkillID:     b.SkillID(),
		Level:       b.SkillLevel(),
		Name:        b.Skill.Name,
		Passive:     b.Passive,
		RemainingMs: b.Remaining(now).Milliseconds(),
	}
	if b.Creator != nil {
		v.CreatorID = b.Creator.ID().MarshalString()
	}
	return v
}

// CharacterView - полный снимок персонажа для INIT.
func CharacterView(c *domain.Character, now time.Time) api.CharacterView {
	v := api.CharacterView{
		ID:        c.ID().MarshalString(),
		Name:      c.Name(),
		Level:     c.Level(),
		Gold:      c.Gold(),
		Stats:     StatsView(c),
		Speed:     SpeedView(c),
		Equipment: []api.ItemView{},
		Inventory: []api.ItemView{},
		Buffs:     []api.BuffView{},
		IsStealth: c.Effects().IsStealth(),
	}

	for _, it := range c.Inventory().Items() {
		if it.Bag == domain.WornBag {
			v.Equipment = append(v.Equipment, *ItemView(it))
		} else {
			v.Inventory = append(v.Inventory, *ItemView(it))
		}
	}
	for _, b := range c.Effects().Passive() {
		v.Buffs = append(v.Buffs, BuffView(b, now))
	}
	for _, b := range c.Effects().Active() {
		v.Buffs = append(v.Buffs, BuffView(b, now))
	}
	return v
}

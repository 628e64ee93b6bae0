package api

import "errors"

// Validator - интерфейс, который могут реализовать DTO
type Validator interface {
	Validate() error
}

func (p LoginPayload) Validate() error {
	if p.CharacterID == 0 {
		return errors.New("characterId is required")
	}
	return nil
}

func (p MoveItemPayload) Validate() error {
	if p.SrcBag < 0 || p.SrcSlot < 0 || p.DstBag < 0 || p.DstSlot < 0 {
		return errors.New("coordinates cannot be negative")
	}
	if p.SrcBag == p.DstBag && p.SrcSlot == p.DstSlot {
		return errors.New("source and destination are the same")
	}
	return nil
}

func (p ItemSlotPayload) Validate() error {
	if p.Bag < 0 || p.Slot < 0 {
		return errors.New("coordinates cannot be negative")
	}
	if p.Count < 0 {
		return errors.New("count cannot be negative")
	}
	return nil
}

func (p CastPayload) Validate() error {
	if p.SkillID == 0 {
		return errors.New("skillId is required")
	}
	if p.Level == 0 {
		return errors.New("level is required")
	}
	return nil
}

func (p SkillPayload) Validate() error {
	if p.SkillID == 0 {
		return errors.New("skillId is required")
	}
	return nil
}

func (p DamagePayload) Validate() error {
	if p.TargetID == "" {
		return errors.New("targetId is required")
	}
	if p.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	return nil
}

func (p BuyPayload) Validate() error {
	if p.Count <= 0 {
		return errors.New("count must be positive")
	}
	return nil
}

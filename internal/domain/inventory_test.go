package domain

import (
	"errors"
	"testing"

	"github.com/Mun1z/Imgeneus/internal/persist"
)

func TestInventory_FreeSlotRouting(t *testing.T) {
	c, _ := newTestCharacter(t)
	inv := c.Inventory()

	first := give(t, c, peltTpl, 1)
	if first.Bag != 1 || first.Slot != 0 {
		t.Fatalf("first item at %d/%d, want 1/0", first.Bag, first.Slot)
	}

	for i := 1; i < BagSlots; i++ {
		give(t, c, peltTpl, 1)
	}
	next := give(t, c, peltTpl, 1)
	if next.Bag != 2 || next.Slot != 0 {
		t.Errorf("item after full bag 1 at %d/%d, want 2/0", next.Bag, next.Slot)
	}
	if inv.Len() != BagSlots+1 {
		t.Errorf("Len = %d", inv.Len())
	}
}

func TestInventory_NoFreeSlot(t *testing.T) {
	c, _ := newTestCharacter(t)
	for i := 0; i < (LastBag-FirstBag+1)*BagSlots; i++ {
		give(t, c, peltTpl, 1)
	}
	_, err := c.Inventory().AddItem(NewItem(peltTpl, 1))
	if !errors.Is(err, ErrNoFreeSlot) {
		t.Fatalf("err = %v, want ErrNoFreeSlot", err)
	}
}

func TestInventory_MoveItem(t *testing.T) {
	tests := []struct {
		name       string
		srcCount   int
		dstCount   int
		wantMerge  bool
		wantSrcCnt int // количество в src после операции (0 - пусто)
		wantDstCnt int
	}{
		{name: "merge fits", srcCount: 2, dstCount: 3, wantMerge: true, wantDstCnt: 5},
		{name: "merge exceeds max swaps", srcCount: 3, dstCount: 4, wantSrcCnt: 4, wantDstCnt: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, f := newTestCharacter(t)
			src := give(t, c, peltTpl, tt.srcCount) // 1/0
			dst := give(t, c, peltTpl, tt.dstCount) // 1/1
			f.queue.reset()

			from, to, err := c.Inventory().MoveItem(1, 0, 1, 1)
			if err != nil {
				t.Fatalf("MoveItem: %v", err)
			}

			if tt.wantMerge {
				if from.Item != nil || c.Inventory().Get(1, 0) != nil {
					t.Error("source slot must be empty after merge")
				}
				if to.Item != dst || dst.Count != tt.wantDstCnt {
					t.Errorf("dst count = %d, want %d", dst.Count, tt.wantDstCnt)
				}
				want := []persist.ActionKind{persist.ActionRemoveItem, persist.ActionRemoveItem, persist.ActionSaveItem}
				assertKinds(t, f.queue.kinds(), want)
				return
			}

			if from.Item != dst || to.Item != src {
				t.Fatalf("swap: from=%v to=%v", from.Item, to.Item)
			}
			if c.Inventory().Get(1, 0).Count != tt.wantSrcCnt || c.Inventory().Get(1, 1).Count != tt.wantDstCnt {
				t.Errorf("counts after swap: %d %d", c.Inventory().Get(1, 0).Count, c.Inventory().Get(1, 1).Count)
			}
		})
	}
}

func TestInventory_MoveToEmptySlot(t *testing.T) {
	c, f := newTestCharacter(t)
	it := give(t, c, peltTpl, 2)
	f.queue.reset()

	from, to, err := c.Inventory().MoveItem(1, 0, 3, 7)
	if err != nil {
		t.Fatal(err)
	}
	if from.Item != nil || to.Item != it || it.Bag != 3 || it.Slot != 7 {
		t.Fatalf("relocate: from=%v to=%v at %d/%d", from.Item, to.Item, it.Bag, it.Slot)
	}
	assertKinds(t, f.queue.kinds(), []persist.ActionKind{persist.ActionRemoveItem, persist.ActionSaveItem})
}

func TestInventory_WornBagEquips(t *testing.T) {
	c, _ := newTestCharacter(t)
	sword := give(t, c, swordTpl, 1)

	if _, _, err := c.Inventory().MoveItem(sword.Bag, sword.Slot, WornBag, int(SlotWeapon)); err != nil {
		t.Fatalf("equip via move: %v", err)
	}
	if c.Equipment().Weapon() != sword || c.Stats().Extra.Str != 5 {
		t.Fatalf("weapon=%v Str+%d", c.Equipment().Weapon(), c.Stats().Extra.Str)
	}

	// снять обратно в сумку
	if _, _, err := c.Inventory().MoveItem(WornBag, int(SlotWeapon), 2, 0); err != nil {
		t.Fatalf("unequip via move: %v", err)
	}
	if c.Equipment().Weapon() != nil || c.Stats().Extra.Str != 0 {
		t.Errorf("after unequip weapon=%v Str+%d", c.Equipment().Weapon(), c.Stats().Extra.Str)
	}
}

func TestInventory_WornBagSwapBetweenRings(t *testing.T) {
	c, _ := newTestCharacter(t)
	ring := give(t, c, ringTpl, 1)

	if _, _, err := c.Inventory().MoveItem(ring.Bag, ring.Slot, WornBag, int(SlotRing2)); err != nil {
		t.Fatalf("ring into ring2: %v", err)
	}
	if c.Equipment().Get(SlotRing2) != ring || c.Stats().Extra.Luc != 2 {
		t.Fatalf("ring2=%v Luc+%d", c.Equipment().Get(SlotRing2), c.Stats().Extra.Luc)
	}
	if _, _, err := c.Inventory().MoveItem(WornBag, int(SlotRing2), WornBag, int(SlotRing1)); err != nil {
		t.Fatalf("ring2 -> ring1: %v", err)
	}
	if c.Equipment().Get(SlotRing1) != ring || c.Equipment().Get(SlotRing2) != nil || c.Stats().Extra.Luc != 2 {
		t.Errorf("ring1=%v ring2=%v Luc+%d", c.Equipment().Get(SlotRing1), c.Equipment().Get(SlotRing2), c.Stats().Extra.Luc)
	}
}

func TestInventory_MoveRejected(t *testing.T) {
	c, f := newTestCharacter(t)
	pelt := give(t, c, peltTpl, 1)
	sword := give(t, c, swordTpl, 1)
	if _, _, err := c.Inventory().MoveItem(sword.Bag, sword.Slot, WornBag, int(SlotWeapon)); err != nil {
		t.Fatal(err)
	}
	f.queue.reset()
	f.sink.reset()

	tests := []struct {
		name            string
		srcBag, srcSlot int
		dstBag, dstSlot int
		want            error
	}{
		{"pelt cannot be worn", pelt.Bag, pelt.Slot, WornBag, int(SlotHelmet), ErrInvalidRequest},
		{"weapon swap with pelt", WornBag, int(SlotWeapon), pelt.Bag, pelt.Slot, ErrInvalidRequest},
		{"empty source", 4, 4, 4, 5, ErrItemNotFound},
		{"bag out of range", 6, 0, 1, 0, ErrInvalidRequest},
		{"slot out of range", 1, BagSlots, 1, 0, ErrInvalidRequest},
		{"same coordinate", 1, 0, 1, 0, ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := c.Inventory().MoveItem(tt.srcBag, tt.srcSlot, tt.dstBag, tt.dstSlot)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if len(f.queue.entries) != 0 || len(f.sink.events) != 0 {
		t.Errorf("rejected moves changed state: queue=%v events=%v", f.queue.kinds(), f.sink.events)
	}
	if c.Equipment().Weapon() != sword {
		t.Error("weapon must stay equipped")
	}
}

func TestInventory_RemovePartialAndWorn(t *testing.T) {
	c, _ := newTestCharacter(t)
	pelts := give(t, c, peltTpl, 5)

	pelts.TradeQuantity = 2
	clone, err := c.Inventory().RemoveItem(pelts)
	if err != nil {
		t.Fatal(err)
	}
	if clone == pelts || clone.Count != 2 || pelts.Count != 3 || clone.UID == pelts.UID {
		t.Fatalf("partial remove: clone=%d left=%d", clone.Count, pelts.Count)
	}
	if clone.Bag != NoBag || c.Inventory().Get(1, 0) != pelts {
		t.Error("clone must be outside the inventory, rest stays in place")
	}

	helmet := give(t, c, helmetTpl, 1)
	if _, _, err := c.Inventory().MoveItem(helmet.Bag, helmet.Slot, WornBag, int(SlotHelmet)); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Inventory().RemoveItem(helmet); err != nil {
		t.Fatal(err)
	}
	if c.Equipment().Get(SlotHelmet) != nil || c.Stats().ExtraDefense != 0 {
		t.Error("removing a worn item must unequip it")
	}
}

func assertKinds(t *testing.T, got, want []persist.ActionKind) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("queued %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("queued %v, want %v", got, want)
		}
	}
}

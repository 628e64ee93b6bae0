package domain

import (
	"fmt"
	"sort"

	"github.com/Mun1z/Imgeneus/internal/persist"
)

// Геометрия инвентаря.
const (
	WornBag  = 0 // надетые вещи, slot = EquipSlot
	FirstBag = 1
	LastBag  = 5
	BagSlots = 24
)

// Coord - координата (сумка, слот).
type Coord struct {
	Bag  int `json:"bag"`
	Slot int `json:"slot"`
}

func (c Coord) valid() bool {
	if c.Bag == WornBag {
		return c.Slot >= 0 && c.Slot < int(SlotCount)
	}
	return c.Bag >= FirstBag && c.Bag <= LastBag && c.Slot >= 0 && c.Slot < BagSlots
}

// SlotState - содержимое координаты после операции. Item == nil - пусто.
type SlotState struct {
	Coord
	Item *Item
}

// InventoryStore - предметы персонажа по координатам (bag, slot).
// Каждая координата занята не более чем одним предметом.
type InventoryStore struct {
	owner *Character
	items map[Coord]*Item
}

func newInventoryStore(owner *Character) *InventoryStore {
	return &InventoryStore{owner: owner, items: make(map[Coord]*Item)}
}

// Get возвращает предмет в координате или nil.
func (inv *InventoryStore) Get(bag, slot int) *Item {
	return inv.items[Coord{Bag: bag, Slot: slot}]
}

// Len - количество предметов, включая надетые.
func (inv *InventoryStore) Len() int { return len(inv.items) }

// Items возвращает предметы, отсортированные по (bag, slot).
func (inv *InventoryStore) Items() []*Item {
	out := make([]*Item, 0, len(inv.items))
	for _, it := range inv.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bag != out[j].Bag {
			return out[i].Bag < out[j].Bag
		}
		return out[i].Slot < out[j].Slot
	})
	return out
}

// FindFreeSlot ищет первую пустую координату в сумках 1..5.
func (inv *InventoryStore) FindFreeSlot() (Coord, bool) {
	if len(inv.items) == 0 {
		return Coord{Bag: FirstBag, Slot: 0}, true
	}
	for bag := FirstBag; bag <= LastBag; bag++ {
		for slot := 0; slot < BagSlots; slot++ {
			c := Coord{Bag: bag, Slot: slot}
			if _, busy := inv.items[c]; !busy {
				return c, true
			}
		}
	}
	return Coord{}, false
}

// AddItem кладёт предмет в первый свободный слот и ставит его на сохранение.
func (inv *InventoryStore) AddItem(item *Item) (*Item, error) {
	c, ok := inv.FindFreeSlot()
	if !ok {
		return nil, ErrNoFreeSlot
	}
	if c.Bag == WornBag {
		// обычный подбор никогда не попадает в сумку надетых вещей
		return nil, fmt.Errorf("%w: free slot search returned worn bag", ErrNoFreeSlot)
	}

	item.Bag, item.Slot = c.Bag, c.Slot
	item.Owner = inv.owner.ID()
	item.TradeQuantity = 0
	inv.items[c] = item

	inv.save(item)
	return item, nil
}

// Place кладёт предмет в заданную координату без записи в хранилище (загрузка).
func (inv *InventoryStore) Place(item *Item, bag, slot int) error {
	c := Coord{Bag: bag, Slot: slot}
	if !c.valid() {
		return fmt.Errorf("%w: coordinate %d/%d", ErrInvalidRequest, bag, slot)
	}
	if _, busy := inv.items[c]; busy {
		return fmt.Errorf("%w: coordinate %d/%d is occupied", ErrInvalidRequest, bag, slot)
	}
	item.Bag, item.Slot = bag, slot
	item.Owner = inv.owner.ID()
	inv.items[c] = item
	return nil
}

// RemoveItem удаляет предмет. Если задано TradeQuantity меньше Count,
// отделяется клон с этим количеством, а остаток остаётся на месте.
func (inv *InventoryStore) RemoveItem(item *Item) (*Item, error) {
	c := item.coord()
	if inv.items[c] != item {
		return nil, fmt.Errorf("%w: %s at %d/%d", ErrItemNotFound, item.UID, c.Bag, c.Slot)
	}

	if item.TradeQuantity > 0 && item.TradeQuantity < item.Count {
		clone := item.Clone(item.TradeQuantity)
		item.Count -= item.TradeQuantity
		item.TradeQuantity = 0
		inv.save(item)
		return clone, nil
	}

	delete(inv.items, c)
	inv.remove(c)
	item.TradeQuantity = 0

	if c.Bag == WornBag {
		if _, err := inv.owner.equipment.Equip(EquipSlot(c.Slot), nil); err != nil {
			return nil, err
		}
	}

	item.Bag, item.Slot = NoBag, NoBag
	item.Owner = 0
	return item, nil
}

// MoveItem перемещает предмет из (srcBag, srcSlot) в (dstBag, dstSlot).
//
// Порядок разбора:
//  1. назначение пусто - перенос;
//  2. тот же соединяемый предмет и сумма не больше MaxCount - слияние;
//  3. иначе - обмен местами.
//
// Если одна из сторон - сумка 0, экипировка обновляется после изменения инвентаря.
func (inv *InventoryStore) MoveItem(srcBag, srcSlot, dstBag, dstSlot int) (SlotState, SlotState, error) {
	src := Coord{Bag: srcBag, Slot: srcSlot}
	dst := Coord{Bag: dstBag, Slot: dstSlot}

	if !src.valid() || !dst.valid() || src == dst {
		return SlotState{}, SlotState{}, fmt.Errorf("%w: move %d/%d -> %d/%d", ErrInvalidRequest, srcBag, srcSlot, dstBag, dstSlot)
	}

	srcItem := inv.items[src]
	if srcItem == nil {
		return SlotState{}, SlotState{}, fmt.Errorf("%w: nothing at %d/%d", ErrItemNotFound, srcBag, srcSlot)
	}
	dstItem := inv.items[dst]

	merge := dstItem != nil &&
		dstItem.SameKind(srcItem) &&
		dstItem.Joinable &&
		dstItem.Count+srcItem.Count <= dstItem.MaxCount

	// В надетые можно положить только то, что подходит к слоту.
	if dst.Bag == WornBag && !merge && !srcItem.CanEquipIn(EquipSlot(dst.Slot)) {
		return SlotState{}, SlotState{}, fmt.Errorf("%w: %s cannot be worn in %s", ErrInvalidRequest, srcItem.Name, EquipSlot(dst.Slot))
	}
	if src.Bag == WornBag && dstItem != nil && !merge && !dstItem.CanEquipIn(EquipSlot(src.Slot)) {
		return SlotState{}, SlotState{}, fmt.Errorf("%w: %s cannot be worn in %s", ErrInvalidRequest, dstItem.Name, EquipSlot(src.Slot))
	}

	var from, to SlotState

	switch {
	case dstItem == nil:
		delete(inv.items, src)
		inv.remove(src)

		srcItem.Bag, srcItem.Slot = dst.Bag, dst.Slot
		inv.items[dst] = srcItem
		inv.save(srcItem)

		from = SlotState{Coord: src}
		to = SlotState{Coord: dst, Item: srcItem}

	case merge:
		inv.remove(dst)
		inv.remove(src)
		delete(inv.items, src)

		dstItem.Count += srcItem.Count
		srcItem.Bag, srcItem.Slot = NoBag, NoBag
		inv.save(dstItem)

		from = SlotState{Coord: src}
		to = SlotState{Coord: dst, Item: dstItem}

	default:
		inv.remove(src)
		inv.remove(dst)

		srcItem.Bag, srcItem.Slot = dst.Bag, dst.Slot
		dstItem.Bag, dstItem.Slot = src.Bag, src.Slot
		inv.items[dst] = srcItem
		inv.items[src] = dstItem

		inv.save(srcItem)
		inv.save(dstItem)

		from = SlotState{Coord: src, Item: dstItem}
		to = SlotState{Coord: dst, Item: srcItem}
	}

	// Экипировка видит уже итоговое состояние инвентаря.
	if src.Bag == WornBag {
		if _, err := inv.owner.equipment.Equip(EquipSlot(src.Slot), from.Item); err != nil {
			return from, to, err
		}
	}
	if dst.Bag == WornBag {
		if _, err := inv.owner.equipment.Equip(EquipSlot(dst.Slot), to.Item); err != nil {
			return from, to, err
		}
	}

	return from, to, nil
}

func (inv *InventoryStore) save(item *Item) {
	inv.owner.env.Queue.Enqueue(persist.ActionSaveItem, inv.owner.ID(), item.Record())
}

func (inv *InventoryStore) remove(c Coord) {
	inv.owner.env.Queue.Enqueue(persist.ActionRemoveItem, inv.owner.ID(), persist.ItemKey{Bag: c.Bag, Slot: c.Slot})
}

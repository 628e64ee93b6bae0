package engine

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Mun1z/Imgeneus/internal/catalog"
	"github.com/Mun1z/Imgeneus/internal/core/types"
	"github.com/Mun1z/Imgeneus/internal/core/types/enums"
	"github.com/Mun1z/Imgeneus/internal/domain"
	"github.com/Mun1z/Imgeneus/internal/infrastructure/storage/sqlite"
	"github.com/Mun1z/Imgeneus/internal/network"
	"github.com/Mun1z/Imgeneus/internal/persist"
	"github.com/Mun1z/Imgeneus/pkg/api"
)

// memLoader - хранилище персонажей в памяти.
type memLoader struct {
	mu      sync.Mutex
	records map[types.EntityID]persist.CharacterRecord
	err     error
	delay   time.Duration
}

func (l *memLoader) LoadCharacter(_ context.Context, owner types.EntityID) (persist.CharacterRecord, error) {
	time.Sleep(l.delay)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return persist.CharacterRecord{}, l.err
	}
	if rec, ok := l.records[owner]; ok {
		return rec, nil
	}
	return persist.CharacterRecord{Owner: owner}, nil
}

// syncQueue записывает очередь из разных акторов.
type syncQueue struct {
	mu    sync.Mutex
	kinds map[persist.ActionKind]int
}

func (q *syncQueue) Enqueue(kind persist.ActionKind, _ types.EntityID, _ persist.Payload) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.kinds[kind]++
}

func (q *syncQueue) count(kind persist.ActionKind) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.kinds[kind]
}

// slowStore - хранилище, которое применяет записи с задержкой.
type slowStore struct {
	*sqlite.Store
	delay time.Duration
}

func (s *slowStore) Apply(ctx context.Context, e persist.Entry) error {
	time.Sleep(s.delay)
	return s.Store.Apply(ctx, e)
}

type harness struct {
	svc    *Service
	loader *memLoader
	queue  *syncQueue
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cat, err := catalog.Load("../../data/catalog")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	h := &harness{
		loader: &memLoader{records: make(map[types.EntityID]persist.CharacterRecord)},
		queue:  &syncQueue{kinds: make(map[persist.ActionKind]int)},
	}
	cfg := NewConfig()
	cfg.BuffExpiryInterval = 5 * time.Millisecond
	h.svc = NewService(cfg, cat, h.loader, h.queue, network.NewBroadcaster())

	t.Cleanup(func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = h.svc.Run(ctx, time.Second)
	})
	return h
}

func (h *harness) login(t *testing.T, charID uint32) (types.EntityID, <-chan api.Notification) {
	t.Helper()
	id, err := h.svc.Login(context.Background(), charID, "Tester")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return id, h.svc.Hub.Register(id)
}

func (h *harness) send(t *testing.T, id types.EntityID, action string, payload any) {
	t.Helper()
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		raw = data
	}
	if err := h.svc.ProcessCommand(context.Background(), id, api.ClientCommand{Action: action, Payload: raw}); err != nil {
		t.Fatalf("ProcessCommand(%s): %v", action, err)
	}
}

// inspect читает состояние сущности в её контексте.
func (h *harness) inspect(t *testing.T, id types.EntityID, fn func(domain.Killable)) {
	t.Helper()
	a := h.svc.actor(id)
	if a == nil {
		t.Fatalf("no actor for %s", id)
	}
	if err := a.Call(context.Background(), func() error {
		fn(a.Entity())
		return nil
	}); err != nil {
		t.Fatal(err)
	}
}

// awaitResult пропускает события и возвращает первый RESULT.
func awaitResult(t *testing.T, ch <-chan api.Notification) api.ResultView {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case n, ok := <-ch:
			if !ok {
				t.Fatal("subscription closed")
			}
			if n.Type == api.EventResult {
				return n.Payload.(api.ResultView)
			}
		case <-timeout:
			t.Fatal("no RESULT notification")
		}
	}
}

func TestService_LoginAndInit(t *testing.T) {
	h := newHarness(t)
	id, ch := h.login(t, 17)

	if id.Kind() != enums.EntityKindCharacter || id.Index() != 17 {
		t.Errorf("id = %s", id)
	}
	if h.svc.ActorCount() != 1 {
		t.Errorf("actors = %d", h.svc.ActorCount())
	}

	// повторный вход не создаёт второго актора
	again, err := h.svc.Login(context.Background(), 17, "Tester")
	if err != nil || again != id || h.svc.ActorCount() != 1 {
		t.Errorf("relogin = %s, %v (actors %d)", again, err, h.svc.ActorCount())
	}

	h.send(t, id, api.ActionInit, nil)
	res := awaitResult(t, ch)
	view, ok := res.Data.(api.CharacterView)
	if res.Type != api.ResultInfo || !ok {
		t.Fatalf("INIT result %+v", res)
	}
	if view.ID != id.MarshalString() || view.Gold != NewConfig().StartGold || view.Stats.HP != view.Stats.MaxHP {
		t.Errorf("view = %+v", view)
	}
	if h.queue.count(persist.ActionSaveGold) != 1 {
		t.Error("first login must persist start gold")
	}
}

func TestService_LoginErrors(t *testing.T) {
	h := newHarness(t)

	if _, err := h.svc.Login(context.Background(), 0, ""); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("charID 0: %v", err)
	}

	h.loader.err = errors.New("db offline")
	if _, err := h.svc.Login(context.Background(), 5, ""); err == nil {
		t.Error("loader failure must fail login")
	}
	if h.svc.ActorCount() != 0 {
		t.Errorf("failed login left %d actors", h.svc.ActorCount())
	}
}

func TestService_LoginRestoresSavedState(t *testing.T) {
	h := newHarness(t)
	id := h.svc.CharacterID(3)
	h.loader.records[id] = persist.CharacterRecord{
		Owner:  id,
		Gold:   50,
		Vitals: &persist.VitalsRecord{HP: 80, SP: 10, MP: 10},
		Items:  []persist.ItemRecord{{Bag: 0, Slot: int(domain.SlotWeapon), Type: 1, TypeID: 1, Count: 1}},
	}

	h.login(t, 3)
	h.inspect(t, id, func(e domain.Killable) {
		c := e.(*domain.Character)
		if c.Gold() != 50 || c.Stats().HP() != 80 || c.Equipment().Weapon() == nil {
			t.Errorf("gold=%d hp=%d weapon=%v", c.Gold(), c.Stats().HP(), c.Equipment().Weapon())
		}
	})
	if h.queue.count(persist.ActionSaveGold) != 0 {
		t.Error("returning character must not get start gold")
	}
}

func TestService_CommandErrors(t *testing.T) {
	h := newHarness(t)
	id, ch := h.login(t, 1)

	tests := []struct {
		name    string
		action  string
		payload any
		reason  string
	}{
		{"unknown action", "TELEPORT", nil, "UNKNOWN_ACTION"},
		{"missing payload", api.ActionBuy, nil, "INVALID_PAYLOAD"},
		{"invalid payload", api.ActionBuy, api.BuyPayload{Type: 1, TypeID: 1, Count: 0}, "INVALID_PAYLOAD"},
		{"unknown item", api.ActionBuy, api.BuyPayload{Type: 200, TypeID: 1, Count: 1}, "ITEM_NOT_FOUND"},
		{"empty slot", api.ActionUseItem, api.ItemSlotPayload{Bag: 1, Slot: 0}, "ITEM_NOT_FOUND"},
		{"cancel absent buff", api.ActionCancelBuff, api.SkillPayload{SkillID: 200}, "BUFF_NOT_FOUND"},
		{"rebirth alive", api.ActionRebirth, nil, "INVALID_REQUEST"},
		{"bad target", api.ActionDamage, api.DamagePayload{TargetID: "abc", Amount: 5}, "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.send(t, id, tt.action, tt.payload)
			res := awaitResult(t, ch)
			if res.Type != api.ResultError || res.Reason != tt.reason {
				t.Errorf("result %+v, want reason %s", res, tt.reason)
			}
		})
	}
}

func TestService_BuyAndMove(t *testing.T) {
	h := newHarness(t)
	id, ch := h.login(t, 2)

	h.send(t, id, api.ActionBuy, api.BuyPayload{Type: 1, TypeID: 1, Count: 1})
	if res := awaitResult(t, ch); res.Type != api.ResultInfo {
		t.Fatalf("BUY: %+v", res)
	}

	h.send(t, id, api.ActionMoveItem, api.MoveItemPayload{SrcBag: 1, SrcSlot: 0, DstBag: 0, DstSlot: int(domain.SlotWeapon)})
	if res := awaitResult(t, ch); res.Type != api.ResultInfo {
		t.Fatalf("MOVE_ITEM: %+v", res)
	}

	h.inspect(t, id, func(e domain.Killable) {
		c := e.(*domain.Character)
		if c.Equipment().Weapon() == nil || c.Stats().Extra.Str != 5 {
			t.Errorf("weapon not equipped: Str+%d", c.Stats().Extra.Str)
		}
	})
}

func TestService_CrossEntityCommands(t *testing.T) {
	h := newHarness(t)
	id, ch := h.login(t, 4)
	mobID, err := h.svc.SpawnMob(domain.Profile{Name: "Wolf", Level: 3, HP: 100, MoveSpeed: 2})
	if err != nil {
		t.Fatal(err)
	}

	h.send(t, id, api.ActionCast, api.CastPayload{SkillID: 200, Level: 1, TargetID: mobID.MarshalString()})
	if res := awaitResult(t, ch); res.Type != api.ResultInfo {
		t.Fatalf("CAST: %+v", res)
	}
	h.send(t, id, api.ActionDamage, api.DamagePayload{TargetID: mobID.MarshalString(), Amount: 30})
	if res := awaitResult(t, ch); res.Type != api.ResultInfo {
		t.Fatalf("DAMAGE: %+v", res)
	}

	// Dispatch асинхронный: ждём, пока цель обработает оба сообщения
	deadline := time.Now().Add(2 * time.Second)
	for {
		var hp, str int
		h.inspect(t, mobID, func(e domain.Killable) {
			hp, str = e.Stats().HP(), e.Stats().Extra.Str
		})
		if hp == 70 && str == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("mob hp=%d str=%d", hp, str)
		}
		time.Sleep(time.Millisecond)
	}

	if err := h.svc.Dispatch(h.svc.CharacterID(999), func(domain.Killable) {}); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("dispatch to absent entity: %v", err)
	}
}

func TestService_LogoutPersists(t *testing.T) {
	h := newHarness(t)
	id, _ := h.login(t, 6)

	h.inspect(t, id, func(e domain.Killable) {
		if _, err := e.Effects().AddOrRefresh(&domain.Skill{ID: 77, Level: 1, Name: "Ward",
			TypeDetail: domain.TypeDetailBuff, KeepTime: 60}, e); err != nil {
			t.Error(err)
		}
	})
	saved := h.queue.count(persist.ActionSaveBuff)

	if err := h.svc.Logout(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	if h.svc.ActorCount() != 0 {
		t.Error("actor not removed")
	}
	if h.queue.count(persist.ActionSaveVitals) == 0 || h.queue.count(persist.ActionSaveBuff) != saved+1 {
		t.Errorf("unload writes: vitals %d buffs %d", h.queue.count(persist.ActionSaveVitals), h.queue.count(persist.ActionSaveBuff))
	}

	if err := h.svc.Logout(context.Background(), id); err != nil {
		t.Errorf("second logout: %v", err)
	}
	if err := h.svc.ProcessCommand(context.Background(), id, api.ClientCommand{Action: api.ActionInit}); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("command after logout: %v", err)
	}
}

func TestService_RunUnloadsEverything(t *testing.T) {
	h := newHarness(t)
	h.login(t, 8)
	h.login(t, 9)
	if _, err := h.svc.SpawnMob(domain.Profile{Name: "Bat", Level: 1, HP: 10}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.svc.Run(ctx, time.Second) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
	}
	if h.svc.ActorCount() != 0 || h.queue.count(persist.ActionSaveVitals) != 2 {
		t.Errorf("actors %d, vitals saves %d", h.svc.ActorCount(), h.queue.count(persist.ActionSaveVitals))
	}
}

func TestService_ReloginSeesQueuedWrites(t *testing.T) {
	cat, err := catalog.Load("../../data/catalog")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "shard.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := &slowStore{Store: db, delay: 30 * time.Millisecond}
	queue := persist.NewQueue(store, nil, persist.QueueConfig{RetryInitial: time.Millisecond})
	qctx, qcancel := context.WithCancel(context.Background())
	go func() { _ = queue.Run(qctx) }()
	t.Cleanup(func() {
		qcancel()
		<-queue.Done()
	})

	h := &harness{svc: NewService(NewConfig(), cat, store, queue, network.NewBroadcaster())}
	t.Cleanup(func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = h.svc.Run(ctx, time.Second)
	})

	id, ch := h.login(t, 21)
	h.send(t, id, api.ActionBuy, api.BuyPayload{Type: 1, TypeID: 1, Count: 1})
	if res := awaitResult(t, ch); res.Type != api.ResultInfo {
		t.Fatalf("BUY: %+v", res)
	}
	if err := queue.Flush(context.Background(), id); err != nil {
		t.Fatal(err)
	}

	// REMOVE_ITEM и выгрузка ещё в очереди, когда персонаж входит снова
	h.send(t, id, api.ActionDrop, api.ItemSlotPayload{Bag: 1, Slot: 0})
	if res := awaitResult(t, ch); res.Type != api.ResultInfo {
		t.Fatalf("DROP: %+v", res)
	}
	if err := h.svc.Logout(context.Background(), id); err != nil {
		t.Fatal(err)
	}

	again, _ := h.login(t, 21)
	h.inspect(t, again, func(e domain.Killable) {
		c := e.(*domain.Character)
		if n := c.Inventory().Len(); n != 0 {
			t.Errorf("dropped item is back after relogin: %d items", n)
		}
	})
}

func TestService_ConcurrentLoginWaitsForLoad(t *testing.T) {
	h := newHarness(t)
	id := h.svc.CharacterID(11)
	h.loader.delay = 100 * time.Millisecond
	h.loader.records[id] = persist.CharacterRecord{
		Owner:  id,
		Gold:   500,
		Vitals: &persist.VitalsRecord{HP: 100},
		Items:  []persist.ItemRecord{{Bag: 1, Slot: 0, Type: 1, TypeID: 2, Count: 1}},
	}

	first := make(chan error, 1)
	go func() {
		_, err := h.svc.Login(context.Background(), 11, "Tester")
		first <- err
	}()

	deadline := time.Now().Add(time.Second)
	for h.svc.ActorCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first login did not start")
		}
		time.Sleep(time.Millisecond)
	}

	// пока персонаж грузится, чужие эффекты к нему не доходят
	if err := h.svc.Dispatch(id, func(domain.Killable) {}); !errors.Is(err, domain.ErrTargetBusy) {
		t.Errorf("dispatch to loading character: %v", err)
	}

	second, ch := h.login(t, 11)
	if err := <-first; err != nil {
		t.Fatalf("first login: %v", err)
	}
	if second != id {
		t.Fatalf("second login id = %s", second)
	}

	h.send(t, id, api.ActionBuy, api.BuyPayload{Type: 1, TypeID: 1, Count: 1})
	if res := awaitResult(t, ch); res.Type != api.ResultInfo {
		t.Fatalf("BUY: %+v", res)
	}
	h.inspect(t, id, func(e domain.Killable) {
		inv := e.(*domain.Character).Inventory()
		stored, bought := inv.Get(1, 0), inv.Get(1, 1)
		if stored == nil || stored.Name != "War Axe" {
			t.Errorf("stored item at 1/0 = %v", stored)
		}
		if bought == nil || bought.Name != "Short Sword" {
			t.Errorf("bought item at 1/1 = %v", bought)
		}
	})
}

func TestService_ConcurrentLoginSharesLoadError(t *testing.T) {
	h := newHarness(t)
	h.loader.delay = 50 * time.Millisecond
	h.loader.err = errors.New("db offline")

	first := make(chan error, 1)
	go func() {
		_, err := h.svc.Login(context.Background(), 12, "")
		first <- err
	}()
	deadline := time.Now().Add(time.Second)
	for h.svc.ActorCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first login did not start")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := h.svc.Login(context.Background(), 12, ""); err == nil {
		t.Error("second login must see the load failure")
	}
	if err := <-first; err == nil {
		t.Error("first login must fail")
	}
	if h.svc.ActorCount() != 0 {
		t.Errorf("failed login left %d actors", h.svc.ActorCount())
	}
}

func TestService_DispatchToBusyTarget(t *testing.T) {
	h := newHarness(t)

	// актор не запущен, ящик на одну задачу уже занят
	a := newActor(1, time.Hour, nil)
	m := domain.NewMob(domain.Profile{Name: "Golem", Level: 1, HP: 100}, h.svc.newEnv(a, false))
	target := types.PackEntityID(0, enums.EntityKindMob, 0, 900)
	if err := m.AssignID(target); err != nil {
		t.Fatal(err)
	}
	a.bind(m)
	a.markReady(nil)
	h.svc.mu.Lock()
	h.svc.actors[target] = a
	h.svc.mu.Unlock()

	var order []int
	if err := h.svc.Dispatch(target, func(domain.Killable) { order = append(order, 1) }); err != nil {
		t.Fatal(err)
	}
	if err := h.svc.Dispatch(target, func(domain.Killable) { order = append(order, 2) }); !errors.Is(err, domain.ErrTargetBusy) {
		t.Fatalf("dispatch to full mailbox: %v", err)
	}

	go a.Run()
	if err := a.Call(context.Background(), func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	if len(order) != 1 || order[0] != 1 {
		t.Errorf("executed %v, want only the accepted task", order)
	}
}

package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Mun1z/Imgeneus/internal/core/types"
	"github.com/Mun1z/Imgeneus/internal/core/types/enums"
	"github.com/Mun1z/Imgeneus/internal/domain"
	"github.com/Mun1z/Imgeneus/internal/engine/handlers"
	"github.com/Mun1z/Imgeneus/internal/engine/handlers/actions"
	"github.com/Mun1z/Imgeneus/internal/network"
	"github.com/Mun1z/Imgeneus/internal/persist"
	"github.com/Mun1z/Imgeneus/pkg/api"
	"github.com/Mun1z/Imgeneus/pkg/logger"
)

// CharacterLoader читает сохранённое состояние персонажа.
type CharacterLoader interface {
	LoadCharacter(ctx context.Context, owner types.EntityID) (persist.CharacterRecord, error)
}

// flusher - очередь записи, умеющая дождаться записей одного владельца.
type flusher interface {
	Flush(ctx context.Context, owner types.EntityID) error
}

// Service владеет акторами всех живых сущностей шарда и маршрутизирует
// команды клиентов в контекст нужной сущности.
type Service struct {
	cfg     Config
	catalog domain.Catalog
	loader  CharacterLoader
	queue   domain.Enqueuer

	Hub *network.Broadcaster

	mu     sync.RWMutex
	actors map[types.EntityID]*Actor
	// leaving - персонажи, чей Logout ещё не закончил выгрузку.
	leaving map[types.EntityID]*Actor

	mobIndex atomic.Uint32

	actionHandlers map[string]handlers.HandlerFunc

	now func() time.Time
	log *logrus.Entry
}

func NewService(cfg Config, cat domain.Catalog, loader CharacterLoader, queue domain.Enqueuer, hub *network.Broadcaster) *Service {
	def := NewConfig()
	if cfg.MailboxSize <= 0 {
		cfg.MailboxSize = def.MailboxSize
	}
	if cfg.BuffExpiryInterval <= 0 {
		cfg.BuffExpiryInterval = def.BuffExpiryInterval
	}

	s := &Service{
		cfg:            cfg,
		catalog:        cat,
		loader:         loader,
		queue:          queue,
		Hub:            hub,
		actors:         make(map[types.EntityID]*Actor),
		leaving:        make(map[types.EntityID]*Actor),
		actionHandlers: make(map[string]handlers.HandlerFunc),
		now:            time.Now,
		log:            logger.Component("engine"),
	}

	s.registerHandlers()
	return s
}

func (s *Service) registerHandlers() {
	s.actionHandlers[api.ActionInit] = handlers.WithEmptyPayload(actions.HandleInit)
	s.actionHandlers[api.ActionMoveItem] = handlers.WithPayload(actions.HandleMoveItem)
	s.actionHandlers[api.ActionUseItem] = handlers.WithPayload(actions.HandleUseItem)
	s.actionHandlers[api.ActionCast] = handlers.WithPayload(actions.HandleCast)
	s.actionHandlers[api.ActionCancelBuff] = handlers.WithPayload(actions.HandleCancelBuff)
	s.actionHandlers[api.ActionDamage] = handlers.WithPayload(actions.HandleDamage)
	s.actionHandlers[api.ActionRebirth] = handlers.WithEmptyPayload(actions.HandleRebirth)
	s.actionHandlers[api.ActionBuy] = handlers.WithPayload(actions.HandleBuy)
	s.actionHandlers[api.ActionDrop] = handlers.WithPayload(actions.HandleDrop)
}

// CharacterID - ID персонажа с номером charID на этом шарде.
func (s *Service) CharacterID(charID uint32) types.EntityID {
	return types.PackEntityID(s.cfg.ShardID, enums.EntityKindCharacter, 0, charID)
}

func (s *Service) newEnv(a *Actor, persistent bool) domain.Env {
	env := domain.Env{
		Sink:  s.Hub,
		Ticks: a,
		Now:   s.now,
	}
	if persistent {
		env.Queue = s.queue
	}
	return env
}

func (s *Service) actor(id types.EntityID) *Actor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actors[id]
}

// Login поднимает персонажа из хранилища и запускает его актор.
// Повторный вход уже живого персонажа дожидается его загрузки и возвращает
// тот же ID. Пока персонаж загружается, команды и чужие эффекты к нему не идут.
func (s *Service) Login(ctx context.Context, charID uint32, name string) (types.EntityID, error) {
	if charID == 0 {
		return types.NilEntityID, fmt.Errorf("%w: character id 0", domain.ErrInvalidRequest)
	}
	id := s.CharacterID(charID)

	s.mu.Lock()
	if a, ok := s.actors[id]; ok {
		s.mu.Unlock()
		if err := a.awaitReady(ctx); err != nil {
			return types.NilEntityID, fmt.Errorf("login character %d: %w", charID, err)
		}
		return id, nil
	}
	prev := s.leaving[id]
	a := newActor(s.cfg.MailboxSize, s.cfg.BuffExpiryInterval, s.now)
	s.actors[id] = a
	s.mu.Unlock()

	fail := func(err error) (types.EntityID, error) {
		a.markReady(err)
		s.forget(id, a)
		a.Stop()
		return types.NilEntityID, err
	}

	profile := s.cfg.StartProfile
	if name != "" {
		profile.Name = name
	} else {
		profile.Name = fmt.Sprintf("char-%d", charID)
	}

	c := domain.NewCharacter(profile, s.newEnv(a, true))
	if err := c.AssignID(id); err != nil {
		a.markReady(err)
		s.forget(id, a)
		return types.NilEntityID, err
	}
	a.bind(c)
	go a.Run()

	// прошлая сессия могла ещё не поставить свои записи в очередь
	if prev != nil {
		select {
		case <-prev.Done():
		case <-ctx.Done():
			return fail(fmt.Errorf("wait for previous logout of %d: %w", charID, ctx.Err()))
		}
	}
	if f, ok := s.queue.(flusher); ok {
		if err := f.Flush(ctx, id); err != nil {
			return fail(fmt.Errorf("flush pending writes of %d: %w", charID, err))
		}
	}

	rec, err := s.loader.LoadCharacter(ctx, id)
	if err != nil {
		return fail(fmt.Errorf("load character %d: %w", charID, err))
	}

	err = a.Call(ctx, func() error {
		if err := c.Load(rec, s.catalog); err != nil {
			return err
		}
		if rec.Vitals == nil && s.cfg.StartGold > 0 {
			// первый вход
			c.AddGold(s.cfg.StartGold)
		}
		return nil
	})
	if err != nil {
		return fail(err)
	}
	a.markReady(nil)

	s.log.WithFields(logrus.Fields{
		"entity_id": id,
		"name":      profile.Name,
	}).Info("Character logged in")
	return id, nil
}

// SpawnMob создаёт моба со своим актором. Состояние мобов не сохраняется.
func (s *Service) SpawnMob(p domain.Profile) (types.EntityID, error) {
	id := types.PackEntityID(s.cfg.ShardID, enums.EntityKindMob, 0, s.mobIndex.Add(1))
	a := newActor(s.cfg.MailboxSize, s.cfg.BuffExpiryInterval, s.now)

	m := domain.NewMob(p, s.newEnv(a, false))
	if err := m.AssignID(id); err != nil {
		return types.NilEntityID, err
	}
	a.bind(m)
	a.markReady(nil)

	s.mu.Lock()
	s.actors[id] = a
	s.mu.Unlock()

	go a.Run()

	s.log.WithFields(logrus.Fields{
		"entity_id": id,
		"name":      p.Name,
	}).Info("Mob spawned")
	return id, nil
}

// Logout сохраняет и выгружает сущность, затем останавливает её актор.
// Если персонаж ещё загружается, Logout сначала дожидается загрузки.
func (s *Service) Logout(ctx context.Context, id types.EntityID) error {
	a := s.actor(id)
	if a == nil {
		return nil
	}
	if err := a.awaitReady(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		// неудачный Login убирает актор сам
		return nil
	}

	s.mu.Lock()
	if s.actors[id] != a {
		s.mu.Unlock()
		return nil
	}
	delete(s.actors, id)
	s.leaving[id] = a
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.leaving[id] == a {
			delete(s.leaving, id)
		}
		s.mu.Unlock()
	}()

	err := a.Call(ctx, func() error {
		switch e := a.Entity().(type) {
		case *domain.Character:
			e.Unload()
		default:
			e.Effects().Release()
		}
		return nil
	})
	a.Stop()

	if err != nil {
		s.log.WithError(err).WithField("entity_id", id).Error("Unload failed, state may be lost")
		return err
	}
	s.log.WithField("entity_id", id).Info("Entity unloaded")
	return nil
}

func (s *Service) forget(id types.EntityID, a *Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.actors[id] == a {
		delete(s.actors, id)
	}
}

// Dispatch реализует handlers.EntityFinder.
// Не ждёт: если ящик цели полон или цель ещё загружается, возвращает
// ErrTargetBusy. Так актор-отправитель не блокируется, а задачи одного
// отправителя приходят к цели в том порядке, в котором он их отправил.
func (s *Service) Dispatch(target types.EntityID, fn func(domain.Killable)) error {
	a := s.actor(target)
	if a == nil {
		return fmt.Errorf("%w: target %s not found", domain.ErrInvalidRequest, target)
	}
	if !a.isReady() {
		return fmt.Errorf("%w: target %s is loading", domain.ErrTargetBusy, target)
	}

	if !a.TryPost(func() { fn(a.Entity()) }) {
		return fmt.Errorf("%w: target %s mailbox is full", domain.ErrTargetBusy, target)
	}
	return nil
}

// ProcessCommand выполняет команду клиента в контексте его персонажа.
// Ответ уходит подписчику как RESULT.
func (s *Service) ProcessCommand(ctx context.Context, id types.EntityID, cmd api.ClientCommand) error {
	a := s.actor(id)
	if a == nil {
		return fmt.Errorf("%w: %s is not logged in", domain.ErrInvalidRequest, id)
	}
	if err := a.awaitReady(ctx); err != nil {
		return err
	}

	handler, ok := s.actionHandlers[cmd.Action]
	if !ok {
		s.log.WithFields(logrus.Fields{
			"actor_id": id,
			"action":   cmd.Action,
		}).Warn("Unknown action")
		s.reply(id, api.ResultView{
			Action: cmd.Action,
			Type:   api.ResultError,
			Reason: "UNKNOWN_ACTION",
			Msg:    "unknown action " + cmd.Action,
		})
		return nil
	}

	return a.Post(ctx, func() {
		s.executeCommand(a, cmd, handler)
	})
}

// executeCommand выполняет хендлер и отправляет результат. Только внутри актора.
func (s *Service) executeCommand(a *Actor, cmd api.ClientCommand, handler handlers.HandlerFunc) {
	c, ok := a.Entity().(*domain.Character)
	if !ok {
		return
	}

	hctx := handlers.Context{
		Finder:  s,
		Catalog: s.catalog,
		Actor:   c,
		Now:     s.now(),
	}

	result, err := handler(hctx, cmd.Payload)
	if err != nil {
		reason, severity := handlers.Reason(err)
		log := s.log.WithFields(logrus.Fields{
			"component": "command",
			"actor_id":  c.ID(),
			"action":    cmd.Action,
			"reason":    reason,
		}).WithError(err)

		switch severity {
		case handlers.SeveritySuspicious:
			log.Warn("Rejected client request")
		case handlers.SeverityContent:
			log.Error("Command failed on content")
		default:
			log.Debug("Command refused")
		}

		s.reply(c.ID(), api.ResultView{
			Action: cmd.Action,
			Type:   api.ResultError,
			Reason: reason,
			Msg:    err.Error(),
		})
		return
	}

	msgType := result.MsgType
	if msgType == "" {
		msgType = api.ResultInfo
	}
	s.reply(c.ID(), api.ResultView{
		Action: cmd.Action,
		Type:   msgType,
		Msg:    result.Msg,
		Data:   result.Data,
	})
}

func (s *Service) reply(id types.EntityID, view api.ResultView) {
	s.Hub.SendTo(id, api.Notification{
		Type:      api.EventResult,
		EntityID:  id.MarshalString(),
		Payload:   view,
		Timestamp: s.now().UnixMilli(),
	})
}

// ActorCount - количество живых акторов.
func (s *Service) ActorCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.actors)
}

// Run ждёт отмены ctx и выгружает все сущности.
// Очередь записи должна работать до возврата Run.
func (s *Service) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.log.Info("Engine started")
	<-ctx.Done()

	s.mu.RLock()
	ids := make([]types.EntityID, 0, len(s.actors))
	for id := range s.actors {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, id := range ids {
		if err := s.Logout(shutdownCtx, id); err != nil {
			s.log.WithError(err).WithField("entity_id", id).Warn("Logout on shutdown failed")
		}
	}

	s.log.WithField("unloaded", len(ids)).Info("Engine stopped")
	return nil
}

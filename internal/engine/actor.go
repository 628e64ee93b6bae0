package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Mun1z/Imgeneus/internal/domain"
	"github.com/Mun1z/Imgeneus/pkg/logger"
)

// ErrActorStopped - почтовый ящик закрыт (сущность вышла или шард останавливается).
var ErrActorStopped = errors.New("actor stopped")

// ErrTaskPanicked - задача, переданная в Call, запаниковала.
var ErrTaskPanicked = errors.New("actor task panicked")

// Actor - единственный писатель состояния одной сущности.
// Всё, что меняет сущность, выполняется внутри Run как замыкание из mailbox.
type Actor struct {
	entity  domain.Killable
	mailbox chan func()

	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	// ready закрывается, когда сущность загружена (или загрузка провалилась - loadErr).
	ready     chan struct{}
	readyOnce sync.Once
	loadErr   error

	expiryInterval time.Duration
	now            func() time.Time

	log *logrus.Entry
}

// actor реализует domain.TickScheduler для своей сущности.
var _ domain.TickScheduler = (*Actor)(nil)

func newActor(mailboxSize int, expiryInterval time.Duration, now func() time.Time) *Actor {
	if now == nil {
		now = time.Now
	}
	return &Actor{
		mailbox:        make(chan func(), mailboxSize),
		quit:           make(chan struct{}),
		done:           make(chan struct{}),
		ready:          make(chan struct{}),
		expiryInterval: expiryInterval,
		now:            now,
		log:            logger.Component("actor"),
	}
}

// bind привязывает сущность. Вызывается один раз до Run:
// сущности нужен планировщик ещё при создании.
func (a *Actor) bind(e domain.Killable) {
	a.entity = e
	a.log = a.log.WithField("entity_id", e.ID())
}

func (a *Actor) Entity() domain.Killable { return a.entity }

// markReady завершает загрузку. Повторные вызовы игнорируются.
func (a *Actor) markReady(err error) {
	a.readyOnce.Do(func() {
		a.loadErr = err
		close(a.ready)
	})
}

// awaitReady ждёт окончания загрузки и возвращает её ошибку.
func (a *Actor) awaitReady(ctx context.Context) error {
	select {
	case <-a.ready:
		return a.loadErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Actor) isReady() bool {
	select {
	case <-a.ready:
		return a.loadErr == nil
	default:
		return false
	}
}

// Run - цикл актора. Завершается после Stop.
func (a *Actor) Run() {
	defer close(a.done)

	expiry := time.NewTicker(a.expiryInterval)
	defer expiry.Stop()

	a.log.Debug("Actor loop started")

	for {
		select {
		case <-a.quit:
			a.log.Debug("Actor loop stopped")
			return

		case fn := <-a.mailbox:
			a.exec(fn)

		case <-expiry.C:
			a.exec(a.removeExpired)
		}
	}
}

func (a *Actor) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			a.log.WithField("panic", r).Error("Actor task panicked")
		}
	}()
	fn()
}

func (a *Actor) removeExpired() {
	expired := a.entity.Effects().RemoveExpired(a.now())
	if len(expired) > 0 {
		a.log.WithField("count", len(expired)).Debug("Buffs expired")
	}
}

// Post ставит fn в очередь, ожидая места. Ошибка - если актор остановлен
// или ctx закончился раньше.
func (a *Actor) Post(ctx context.Context, fn func()) error {
	select {
	case <-a.quit:
		return ErrActorStopped
	default:
	}

	select {
	case a.mailbox <- fn:
		return nil
	case <-a.quit:
		return ErrActorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPost ставит fn без ожидания. false - ящик полон или актор остановлен.
func (a *Actor) TryPost(fn func()) bool {
	select {
	case <-a.quit:
		return false
	default:
	}

	select {
	case a.mailbox <- fn:
		return true
	default:
		return false
	}
}

// Call выполняет fn в контексте актора и ждёт результата.
// Нельзя вызывать изнутри самого актора: это deadlock.
// Паника в fn возвращается как ErrTaskPanicked, цикл актора продолжает работу.
func (a *Actor) Call(ctx context.Context, fn func() error) error {
	res := make(chan error, 1)
	task := func() {
		defer func() {
			if r := recover(); r != nil {
				res <- fmt.Errorf("%w: %v", ErrTaskPanicked, r)
				// дальше паника уходит в exec и попадает в лог актора
				panic(r)
			}
		}()
		res <- fn()
	}
	if err := a.Post(ctx, task); err != nil {
		return err
	}
	select {
	case err := <-res:
		return err
	case <-a.done:
		return ErrActorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Every реализует domain.TickScheduler. Тик, не влезший в ящик, пропускается:
// периодический эффект не копит долг.
func (a *Actor) Every(period time.Duration, fn func()) func() {
	t := time.NewTicker(period)
	stop := make(chan struct{})
	var once sync.Once

	go func() {
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-a.quit:
				return
			case <-t.C:
				if !a.TryPost(fn) {
					a.log.Warn("Mailbox full, tick skipped")
				}
			}
		}
	}()

	return func() { once.Do(func() { close(stop) }) }
}

// Stop закрывает ящик и ждёт выхода из Run. Задачи в очереди отбрасываются.
func (a *Actor) Stop() {
	a.stopOnce.Do(func() { close(a.quit) })
	<-a.done
}

// Done закрывается, когда цикл актора завершён.
func (a *Actor) Done() <-chan struct{} { return a.done }

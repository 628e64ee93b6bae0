package persist

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mun1z/Imgeneus/internal/core/types"
	"github.com/Mun1z/Imgeneus/pkg/logger"
)

// ErrInvalidEntry - запись, которую хранилище никогда не сможет применить
// (payload не соответствует виду операции). Повторять бессмысленно.
var ErrInvalidEntry = errors.New("invalid persistence entry")

// Spiller принимает записи, которые не успели попасть в хранилище.
type Spiller interface {
	Append(e Entry) error
}

// QueueConfig - ёмкости и параметры повторов.
type QueueConfig struct {
	CriticalCapacity   int
	BestEffortCapacity int
	RetryInitial       time.Duration
	RetryMax           time.Duration
}

func (c QueueConfig) withDefaults() QueueConfig {
	if c.CriticalCapacity <= 0 {
		c.CriticalCapacity = 4096
	}
	if c.BestEffortCapacity <= 0 {
		c.BestEffortCapacity = 1024
	}
	if c.RetryInitial <= 0 {
		c.RetryInitial = 50 * time.Millisecond
	}
	if c.RetryMax <= 0 {
		c.RetryMax = 5 * time.Second
	}
	return c
}

// QueueStats - счётчики очереди.
type QueueStats struct {
	Enqueued uint64 `json:"enqueued"`
	Applied  uint64 `json:"applied"`
	Dropped  uint64 `json:"dropped"`
	Spilled  uint64 `json:"spilled"`
	Failed   uint64 `json:"failed"`
}

// Queue - очередь отложенной записи (write-behind).
//
// Две полосы: critical (предметы, золото, баффы) при переполнении блокирует
// производителя, best-effort (пулы) при переполнении отбрасывает запись.
// Один потребитель применяет записи в порядке постановки внутри полосы.
// Всё, что не применено к моменту остановки, уходит в Spiller.
type Queue struct {
	store Store
	spill Spiller
	cfg   QueueConfig

	critical   chan Entry
	bestEffort chan Entry

	// mu: производители держат RLock на время отправки,
	// остановка берёт Lock, чтобы после неё никто не писал в каналы.
	mu      sync.RWMutex
	stopped bool
	stopCh  chan struct{}
	done    chan struct{}

	// owners - сколько записей владельца ещё не применено или не сброшено,
	// flushers - кто ждёт обнуления этого счётчика.
	ownersMu sync.Mutex
	owners   map[types.EntityID]int
	flushers map[types.EntityID][]chan struct{}

	seq                                         atomic.Uint64
	enqueued, applied, dropped, spilled, failed atomic.Uint64

	now    func() time.Time
	tracer trace.Tracer
	log    *logrus.Entry
}

func NewQueue(store Store, spill Spiller, cfg QueueConfig) *Queue {
	cfg = cfg.withDefaults()
	return &Queue{
		store:      store,
		spill:      spill,
		cfg:        cfg,
		critical:   make(chan Entry, cfg.CriticalCapacity),
		bestEffort: make(chan Entry, cfg.BestEffortCapacity),
		stopCh:     make(chan struct{}),
		owners:     make(map[types.EntityID]int),
		flushers:   make(map[types.EntityID][]chan struct{}),
		done:       make(chan struct{}),
		now:        time.Now,
		tracer:     otel.Tracer("github.com/Mun1z/Imgeneus/internal/persist"),
		log:        logger.Component("persist_queue"),
	}
}

// Enqueue ставит запись в очередь. Ошибок не возвращает: переполнение
// critical блокирует, переполнение best-effort отбрасывает с предупреждением.
func (q *Queue) Enqueue(kind ActionKind, owner types.EntityID, payload Payload) {
	if KindOf(payload) != kind {
		q.log.WithFields(logrus.Fields{
			"action":   kind,
			"owner_id": owner,
			"payload":  KindOf(payload),
		}).Error("Payload does not match action, entry rejected")
		q.failed.Add(1)
		return
	}

	e := Entry{
		Seq:        q.seq.Add(1),
		Kind:       kind,
		Owner:      owner,
		Payload:    payload,
		EnqueuedAt: q.now(),
	}
	q.enqueued.Add(1)

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.stopped {
		q.spillEntry(e)
		return
	}

	// учитываем до отправки: потребитель может закончить раньше, чем мы вернёмся
	q.track(owner)

	if kind.Lane() == LaneBestEffort {
		select {
		case q.bestEffort <- e:
		default:
			q.untrack(owner)
			q.dropped.Add(1)
			q.log.WithFields(logrus.Fields{"action": kind, "owner_id": owner}).Warn("Best-effort lane is full, entry dropped")
		}
		return
	}

	select {
	case q.critical <- e:
		return
	default:
	}

	q.log.WithFields(logrus.Fields{
		"action":   kind,
		"owner_id": owner,
		"capacity": cap(q.critical),
	}).Warn("Critical lane is full, producer blocked")

	select {
	case q.critical <- e:
	case <-q.stopCh:
		q.spillEntry(e)
		q.untrack(owner)
	}
}

// Flush ждёт, пока все записи owner, уже принятые очередью, не будут
// применены хранилищем или сброшены в Spiller.
// Нужен перед чтением состояния из хранилища: иначе повторный вход
// прочитает строки, которые очередь ещё не успела обновить.
func (q *Queue) Flush(ctx context.Context, owner types.EntityID) error {
	q.ownersMu.Lock()
	if q.owners[owner] == 0 {
		q.ownersMu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	q.flushers[owner] = append(q.flushers[owner], ch)
	q.ownersMu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) track(owner types.EntityID) {
	q.ownersMu.Lock()
	q.owners[owner]++
	q.ownersMu.Unlock()
}

func (q *Queue) untrack(owner types.EntityID) {
	q.ownersMu.Lock()
	defer q.ownersMu.Unlock()

	q.owners[owner]--
	if q.owners[owner] > 0 {
		return
	}
	delete(q.owners, owner)
	for _, ch := range q.flushers[owner] {
		close(ch)
	}
	delete(q.flushers, owner)
}

// Run - цикл потребителя. Возвращается после отмены ctx, когда всё
// непринятое хранилищем сброшено в Spiller.
func (q *Queue) Run(ctx context.Context) error {
	defer close(q.done)
	q.log.Info("Persistence queue started")

	for {
		select {
		case <-ctx.Done():
			q.stop()
			return nil
		case e := <-q.critical:
			q.process(ctx, e)
			q.untrack(e.Owner)
		case e := <-q.bestEffort:
			q.process(ctx, e)
			q.untrack(e.Owner)
		}
	}
}

// Done закрывается, когда Run завершился.
func (q *Queue) Done() <-chan struct{} { return q.done }

// Stats возвращает снимок счётчиков.
func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Enqueued: q.enqueued.Load(),
		Applied:  q.applied.Load(),
		Dropped:  q.dropped.Load(),
		Spilled:  q.spilled.Load(),
		Failed:   q.failed.Load(),
	}
}

// Pending - сколько записей ждёт в полосах.
func (q *Queue) Pending() int {
	return len(q.critical) + len(q.bestEffort)
}

func (q *Queue) process(ctx context.Context, e Entry) {
	err := q.apply(ctx, e)
	switch {
	case err == nil:
		q.applied.Add(1)
	case errors.Is(err, ErrInvalidEntry):
		q.failed.Add(1)
		q.log.WithError(err).WithFields(logrus.Fields{
			"action":   e.Kind,
			"owner_id": e.Owner,
			"seq":      e.Seq,
		}).Error("Entry rejected by store")
	default:
		// контекст закончился посреди повторов
		q.spillEntry(e)
	}
}

func (q *Queue) apply(ctx context.Context, e Entry) error {
	ctx, span := q.tracer.Start(ctx, "persist.apply", trace.WithAttributes(
		attribute.String("persist.action", e.Kind.String()),
		attribute.String("persist.owner", e.Owner.String()),
		attribute.Int64("persist.seq", int64(e.Seq)),
	))
	defer span.End()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = q.cfg.RetryInitial
	b.MaxInterval = q.cfg.RetryMax

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		err := q.store.Apply(ctx, e)
		if errors.Is(err, ErrInvalidEntry) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			q.log.WithError(err).WithFields(logrus.Fields{
				"action":   e.Kind,
				"owner_id": e.Owner,
				"retry_in": next,
			}).Warn("Store apply failed, retrying")
		}),
	)

	span.SetAttributes(attribute.Int("persist.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// stop запрещает запись в каналы и сбрасывает остаток в Spiller.
func (q *Queue) stop() {
	close(q.stopCh)

	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()

	n := 0
	for {
		select {
		case e := <-q.critical:
			q.spillEntry(e)
			q.untrack(e.Owner)
			n++
		case e := <-q.bestEffort:
			q.spillEntry(e)
			q.untrack(e.Owner)
			n++
		default:
			q.log.WithField("spilled", n).Info("Persistence queue stopped")
			return
		}
	}
}

func (q *Queue) spillEntry(e Entry) {
	if q.spill == nil {
		q.failed.Add(1)
		q.log.WithFields(logrus.Fields{"action": e.Kind, "owner_id": e.Owner, "seq": e.Seq}).Error("No journal configured, entry lost")
		return
	}
	if err := q.spill.Append(e); err != nil {
		q.failed.Add(1)
		q.log.WithError(err).WithFields(logrus.Fields{"action": e.Kind, "owner_id": e.Owner, "seq": e.Seq}).Error("Journal append failed, entry lost")
		return
	}
	q.spilled.Add(1)
}

package ledger

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"miluim/internal/domain/dates"
	"miluim/internal/domain/importer"
)

type Options struct {
	DefaultRate        decimal.Decimal
	Grouping           importer.Grouping
	DateOrder          dates.Order
	Vocabulary         importer.Vocabulary
	DutySentinels      []string
	Holidays           []string
	StrictNameIdentity bool
	BackupBeforeImport bool
	Now                func() time.Time
}

func (o Options) withDefaults() Options {
	if o.DefaultRate.IsZero() {
		o.DefaultRate = decimal.NewFromInt(500)
	}
	if o.Grouping == "" {
		o.Grouping = importer.GroupByMonth
	}
	if o.Vocabulary == nil {
		o.Vocabulary = importer.DefaultVocabulary()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Ledger owns the employee, duty period and payment data. Reads work on an
// immutable snapshot. Every change runs on a single writer goroutine, which
// applies it to a copy, persists the copy and only then publishes it.
type Ledger struct {
	backend  Backend
	opts     Options
	calendar dates.Calendar
	logger   *zap.Logger

	current atomic.Pointer[Document]
	queue   chan mutation
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

type mutation struct {
	ctx   context.Context
	apply func(doc *Document) (any, bool, error)
	reply chan result
}

type result struct {
	value any
	err   error
}

func Open(ctx context.Context, backend Backend, opts Options, logger *zap.Logger) (*Ledger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	doc, err := backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	l := &Ledger{
		backend:  backend,
		opts:     opts,
		calendar: dates.NewCalendar(opts.Holidays),
		logger:   logger,
		queue:    make(chan mutation),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	l.current.Store(doc)
	go l.run()
	logger.Info("ledger opened",
		zap.Int("employees", len(doc.Employees)),
		zap.Int("dutyPeriods", len(doc.DutyPeriods)),
		zap.Int("payments", len(doc.Payments)),
	)
	return l, nil
}

// Close stops the writer after the mutation in progress, if any.
func (l *Ledger) Close() error {
	l.once.Do(func() { close(l.stop) })
	<-l.done
	return nil
}

func (l *Ledger) Ping(ctx context.Context) error {
	return l.backend.Ping(ctx)
}

func (l *Ledger) snapshot() *Document {
	return l.current.Load()
}

func (l *Ledger) now() time.Time {
	return l.opts.Now().UTC()
}

func (l *Ledger) run() {
	defer close(l.done)
	for {
		select {
		case <-l.stop:
			return
		case m := <-l.queue:
			m.reply <- l.handle(m)
		}
	}
}

func (l *Ledger) handle(m mutation) (res result) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("ledger mutation panicked", zap.Any("panic", r))
			res = result{err: fmt.Errorf("ledger mutation panicked: %v", r)}
		}
	}()
	next := l.snapshot().Clone()
	value, changed, err := m.apply(next)
	if err != nil {
		return result{err: err}
	}
	if !changed {
		return result{value: value}
	}
	next.Meta.LastModified = l.now()
	if err := l.backend.Save(m.ctx, next); err != nil {
		l.logger.Error("ledger save failed", zap.Error(err))
		return result{err: fmt.Errorf("%w: %v", ErrPersist, err)}
	}
	l.current.Store(next)
	return result{value: value}
}

// mutate queues fn on the writer. fn reports whether it changed the
// document; unchanged documents are not saved. Once queued, a mutation
// runs to completion even if ctx is cancelled.
func mutate[T any](ctx context.Context, l *Ledger, fn func(doc *Document) (T, bool, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	m := mutation{
		ctx: context.WithoutCancel(ctx),
		apply: func(doc *Document) (any, bool, error) {
			return fn(doc)
		},
		reply: make(chan result, 1),
	}
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-l.stop:
		return zero, ErrClosed
	case l.queue <- m:
	}
	res := <-m.reply
	if res.err != nil {
		return zero, res.err
	}
	return res.value.(T), nil
}

// Backup copies the current document through the backend.
func (l *Ledger) Backup(ctx context.Context, label string) (string, error) {
	location, err := l.backend.Backup(ctx, l.snapshot(), label)
	if err != nil {
		return "", err
	}
	l.logger.Info("ledger backup written", zap.String("location", location), zap.String("label", label))
	return location, nil
}

// Reset replaces the ledger with an empty document after backing up the
// old one. It returns the backup location, if any.
func (l *Ledger) Reset(ctx context.Context) (string, error) {
	return mutate(ctx, l, func(doc *Document) (string, bool, error) {
		location := l.backupBefore(ctx, doc, "pre-reset")
		*doc = *NewDocument(l.now())
		return location, true, nil
	})
}

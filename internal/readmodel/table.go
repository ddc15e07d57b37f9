// Package readmodel keeps in-memory copies of remote tables current. Every
// change notification triggers a full re-read; results are applied only if
// they belong to the live activation and are newer than what is shown.
package readmodel

import (
	"context"
	stderrors "errors"
	"reflect"
	"sync"

	"github.com/citysmiles/dental-admin/internal/remote"
	"github.com/citysmiles/dental-admin/pkg/logger"
	"github.com/citysmiles/dental-admin/pkg/metrics"
)

// ErrInactive is returned by operations that need an active table.
var ErrInactive = stderrors.New("read model is not active")

// Spec selects what a Table mirrors.
type Spec struct {
	Table     string
	OrderBy   string
	Ascending bool
	Columns   []string
	Joins     []remote.Join
	// Also lists further tables whose changes invalidate this one.
	Also []string
}

// Query is the full read issued for the spec.
func (s Spec) Query() remote.Query {
	q := remote.Query{Columns: s.Columns, Joins: s.Joins}
	if s.OrderBy != "" {
		q.Order = &remote.Order{Column: s.OrderBy, Ascending: s.Ascending}
	}
	return q
}

// FetchFunc performs one full read for spec.
type FetchFunc[T any] func(ctx context.Context, r remote.Reader, spec Spec) ([]T, error)

// DecodeFetch selects spec.Query() and decodes the rows into T.
func DecodeFetch[T any](ctx context.Context, r remote.Reader, spec Spec) ([]T, error) {
	res, err := r.Select(ctx, spec.Table, spec.Query())
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := remote.Decode(res.Rows, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type Option[T any] func(*Table[T])

func WithFetch[T any](fn FetchFunc[T]) Option[T] {
	return func(t *Table[T]) { t.fetch = fn }
}

func WithLogger[T any](l *logger.Logger) Option[T] {
	return func(t *Table[T]) { t.log = l }
}

func WithMetrics[T any](m *metrics.Metrics) Option[T] {
	return func(t *Table[T]) { t.metrics = m }
}

// Table mirrors one remote table as an ordered collection of T.
type Table[T any] struct {
	svc     remote.Service
	fetch   FetchFunc[T]
	log     *logger.Logger
	metrics *metrics.Metrics

	// applyMu makes applying a collection and notifying listeners one step,
	// so listeners observe collections in the order they were applied.
	applyMu sync.Mutex

	mu        sync.Mutex
	spec      Spec
	rows      []T
	loading   bool
	listeners map[int]func([]T)
	nextID    int
	act       *activation
}

// activation is one subscribe/read lifetime. A Close or Reconfigure ends it
// and anything it still produces is dropped.
type activation struct {
	ctx     context.Context
	cancel  context.CancelFunc
	unsubs  []remote.CancelFunc
	pending int
	wake    chan struct{}
	issued  uint64
	applied uint64
}

func New[T any](svc remote.Service, spec Spec, opts ...Option[T]) *Table[T] {
	t := &Table[T]{
		svc:       svc,
		spec:      spec,
		fetch:     DecodeFetch[T],
		log:       logger.Nop(),
		rows:      []T{},
		listeners: make(map[int]func([]T)),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.With("table", spec.Table)
	return t
}

// Activate loads the table and subscribes to its changes. It returns once
// the initial read has been applied. Activating an active table is a no-op.
func (t *Table[T]) Activate(ctx context.Context) error {
	t.mu.Lock()
	if t.act != nil {
		t.mu.Unlock()
		return nil
	}
	actx, cancel := context.WithCancel(ctx)
	act := &activation{ctx: actx, cancel: cancel, wake: make(chan struct{}, 1)}
	t.act = act
	t.loading = true
	spec := t.spec
	t.mu.Unlock()

	for _, table := range append([]string{spec.Table}, spec.Also...) {
		unsub, err := t.svc.Subscribe(actx, table, func(remote.ChangeEvent) {
			t.enqueue(act)
		})
		if err != nil {
			t.deactivate(act)
			return err
		}
		t.mu.Lock()
		act.unsubs = append(act.unsubs, unsub)
		t.mu.Unlock()
	}

	t.load(act.ctx, act, "activate")
	go t.run(act)
	return nil
}

// Refresh issues one full read now and applies it. A read abandoned
// because ctx ended is dropped and the collection stays as it was.
func (t *Table[T]) Refresh(ctx context.Context) error {
	t.mu.Lock()
	act := t.act
	t.mu.Unlock()
	if act == nil {
		return ErrInactive
	}
	t.load(ctx, act, "manual")
	return ctx.Err()
}

// Reconfigure switches the table to spec. When anything changed, the old
// subscription is torn down and the full activation runs again.
func (t *Table[T]) Reconfigure(ctx context.Context, spec Spec) error {
	t.mu.Lock()
	same := reflect.DeepEqual(t.spec, spec)
	active := t.act != nil
	t.mu.Unlock()
	if same && active {
		return nil
	}

	t.Close()
	t.mu.Lock()
	t.spec = spec
	t.log = t.log.With("table", spec.Table)
	t.mu.Unlock()
	return t.Activate(ctx)
}

// Close cancels the subscription. Reads still in flight are discarded.
func (t *Table[T]) Close() {
	t.mu.Lock()
	act := t.act
	t.mu.Unlock()
	if act != nil {
		t.deactivate(act)
	}
}

func (t *Table[T]) deactivate(act *activation) {
	t.mu.Lock()
	if t.act == act {
		t.act = nil
		t.loading = false
	}
	unsubs := act.unsubs
	act.unsubs = nil
	t.mu.Unlock()

	act.cancel()
	for _, unsub := range unsubs {
		unsub()
	}
}

// Rows returns a copy of the current collection.
func (t *Table[T]) Rows() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]T, len(t.rows))
	copy(out, t.rows)
	return out
}

func (t *Table[T]) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

func (t *Table[T]) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.act != nil
}

func (t *Table[T]) Spec() Spec {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spec
}

// OnChange registers fn to receive every applied collection. The returned
// func unregisters it. fn must not call Refresh or Reconfigure.
func (t *Table[T]) OnChange(fn func([]T)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := t.nextID
	t.listeners[id] = fn
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.listeners, id)
	}
}

// enqueue schedules one more full read. Events are never merged.
func (t *Table[T]) enqueue(act *activation) {
	t.mu.Lock()
	if t.act != act {
		t.mu.Unlock()
		return
	}
	act.pending++
	t.mu.Unlock()

	select {
	case act.wake <- struct{}{}:
	default:
	}
}

func (t *Table[T]) run(act *activation) {
	for {
		select {
		case <-act.ctx.Done():
			return
		case <-act.wake:
		}
		for {
			t.mu.Lock()
			if t.act != act || act.pending == 0 {
				t.mu.Unlock()
				break
			}
			act.pending--
			t.mu.Unlock()

			t.load(act.ctx, act, "change")
		}
	}
}

func (t *Table[T]) load(ctx context.Context, act *activation, trigger string) {
	t.mu.Lock()
	if t.act != act {
		t.mu.Unlock()
		return
	}
	act.issued++
	seq := act.issued
	t.loading = true
	spec := t.spec
	log := t.log
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.SyncReads.WithLabelValues(spec.Table, trigger).Inc()
	}

	rows, err := t.fetch(ctx, t.svc, spec)
	if err != nil && ctx.Err() != nil {
		// the caller gave up; that says nothing about the table
		t.mu.Lock()
		if t.act == act && seq == act.issued {
			t.loading = false
		}
		t.mu.Unlock()
		if t.metrics != nil {
			t.metrics.SyncDiscarded.WithLabelValues(spec.Table).Inc()
		}
		return
	}
	if err != nil {
		if act.ctx.Err() == nil {
			log.Warn(err, "table read failed, showing no rows")
		}
		if t.metrics != nil {
			t.metrics.SyncReadErrors.WithLabelValues(spec.Table).Inc()
		}
		rows = []T{}
	}
	if rows == nil {
		rows = []T{}
	}

	t.applyMu.Lock()
	defer t.applyMu.Unlock()

	t.mu.Lock()
	if t.act != act || seq <= act.applied {
		t.mu.Unlock()
		if t.metrics != nil {
			t.metrics.SyncDiscarded.WithLabelValues(spec.Table).Inc()
		}
		return
	}
	act.applied = seq
	t.rows = rows
	t.loading = act.applied < act.issued
	listeners := make([]func([]T), 0, len(t.listeners))
	for _, fn := range t.listeners {
		listeners = append(listeners, fn)
	}
	t.mu.Unlock()

	for _, fn := range listeners {
		snapshot := make([]T, len(rows))
		copy(snapshot, rows)
		fn(snapshot)
	}
}

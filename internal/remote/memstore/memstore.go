// Package memstore is an in-process remote.Service. Every call is counted and
// any call can be made to fail once, which makes it the backbone of the
// package tests above it.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/citysmiles/dental-admin/internal/model"
	"github.com/citysmiles/dental-admin/internal/remote"
	"github.com/citysmiles/dental-admin/pkg/errors"
)

// Operation names accepted by FailNext.
const (
	OpSelect = "select"
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// foreign keys that cascade on delete: child table -> column -> parent table
var cascades = []struct {
	child, column, parent string
}{
	{model.TableAppointments, "patient_id", model.TablePatients},
	{model.TableTreatments, "patient_id", model.TablePatients},
	{model.TablePrescriptions, "patient_id", model.TablePatients},
	{model.TablePrescriptionItems, "prescription_id", model.TablePrescriptions},
}

type Store struct {
	mu       sync.Mutex
	tables   map[string][]remote.Row
	subs     map[string]map[int]func(remote.ChangeEvent)
	nextSub  int
	reads    map[string]int
	writes   map[string]int
	failures map[string]error
	now      func() time.Time
}

func New() *Store {
	return &Store{
		tables:   make(map[string][]remote.Row),
		subs:     make(map[string]map[int]func(remote.ChangeEvent)),
		reads:    make(map[string]int),
		writes:   make(map[string]int),
		failures: make(map[string]error),
		now:      time.Now,
	}
}

// Seed stores rows without counting writes or emitting changes.
func (s *Store) Seed(table string, rows ...remote.Row) []remote.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]remote.Row, 0, len(rows))
	for _, r := range rows {
		stored := s.prepare(r)
		s.tables[table] = append(s.tables[table], stored)
		out = append(out, clone(stored))
	}
	return out
}

// FailNext makes the next op on table fail with err.
func (s *Store) FailNext(op, table string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op+":"+table] = err
}

// Reads returns how many selects hit table.
func (s *Store) Reads(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[table]
}

// Writes returns how many insert, update and delete calls hit table.
func (s *Store) Writes(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[table]
}

// Rows returns a copy of everything stored in table.
func (s *Store) Rows(table string) []remote.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]remote.Row, 0, len(s.tables[table]))
	for _, r := range s.tables[table] {
		out = append(out, clone(r))
	}
	return out
}

// Emit delivers ev to the subscribers of ev.Table as if the remote had sent it.
func (s *Store) Emit(ev remote.ChangeEvent) {
	if ev.At.IsZero() {
		ev.At = s.now()
	}
	s.publish([]remote.ChangeEvent{ev})
}

func (s *Store) Select(ctx context.Context, table string, q remote.Query) (*remote.Result, error) {
	if err := remote.CheckQuery(table, q); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads[table]++
	if err := s.takeFailure(OpSelect, table); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var matched []remote.Row
	for _, r := range s.tables[table] {
		if matches(r, q.Filters) {
			matched = append(matched, r)
		}
	}
	res := &remote.Result{Count: len(matched)}
	if q.CountOnly {
		return res, nil
	}

	if q.Order != nil {
		col, asc := q.Order.Column, q.Order.Ascending
		sort.SliceStable(matched, func(i, j int) bool {
			return less(matched[i][col], matched[j][col], asc)
		})
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	res.Rows = make([]remote.Row, 0, len(matched))
	for _, r := range matched {
		out := project(r, q.Columns)
		for _, j := range q.Joins {
			out[j.Table] = s.joined(j, r)
		}
		res.Rows = append(res.Rows, out)
	}
	return res, nil
}

func (s *Store) Insert(ctx context.Context, table string, rows ...remote.Row) ([]remote.Row, error) {
	if err := remote.CheckTable(table); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.writes[table]++
	if err := s.takeFailure(OpInsert, table); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	out := make([]remote.Row, 0, len(rows))
	events := make([]remote.ChangeEvent, 0, len(rows))
	for _, r := range rows {
		stored := s.prepare(r)
		s.tables[table] = append(s.tables[table], stored)
		out = append(out, clone(stored))
		events = append(events, s.event(table, model.ChangeInsert, stored.ID()))
	}
	s.mu.Unlock()

	s.publish(events)
	return out, nil
}

func (s *Store) Update(ctx context.Context, table, id string, patch remote.Row) error {
	if err := remote.CheckTable(table); err != nil {
		return err
	}
	s.mu.Lock()
	s.writes[table]++
	if err := s.takeFailure(OpUpdate, table); err != nil {
		s.mu.Unlock()
		return err
	}
	row := s.find(table, id)
	if row == nil {
		s.mu.Unlock()
		return errors.NotFound(fmt.Sprintf("%s row %s", table, id), nil)
	}
	for k, v := range normalize(patch) {
		if k == "id" || k == "created_at" {
			continue
		}
		row[k] = v
	}
	row["updated_at"] = s.now().UTC().Format(time.RFC3339Nano)
	ev := s.event(table, model.ChangeUpdate, id)
	s.mu.Unlock()

	s.publish([]remote.ChangeEvent{ev})
	return nil
}

func (s *Store) Delete(ctx context.Context, table, id string) error {
	if err := remote.CheckTable(table); err != nil {
		return err
	}
	s.mu.Lock()
	s.writes[table]++
	if err := s.takeFailure(OpDelete, table); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.find(table, id) == nil {
		s.mu.Unlock()
		return errors.NotFound(fmt.Sprintf("%s row %s", table, id), nil)
	}
	events := s.remove(table, id)
	s.mu.Unlock()

	s.publish(events)
	return nil
}

func (s *Store) Subscribe(ctx context.Context, table string, fn func(remote.ChangeEvent)) (remote.CancelFunc, error) {
	if err := remote.CheckTable(table); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.nextSub++
	key := s.nextSub
	if s.subs[table] == nil {
		s.subs[table] = make(map[int]func(remote.ChangeEvent))
	}
	s.subs[table][key] = fn
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs[table], key)
			s.mu.Unlock()
		})
	}
	stop := context.AfterFunc(ctx, cancel)
	return func() {
		stop()
		cancel()
	}, nil
}

// Subscribers reports how many live subscriptions table has.
func (s *Store) Subscribers(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[table])
}

// remove deletes a row and everything that references it. Callers hold mu.
func (s *Store) remove(table, id string) []remote.ChangeEvent {
	kept := s.tables[table][:0]
	for _, r := range s.tables[table] {
		if r.ID() != id {
			kept = append(kept, r)
		}
	}
	s.tables[table] = kept
	events := []remote.ChangeEvent{s.event(table, model.ChangeDelete, id)}

	for _, c := range cascades {
		if c.parent != table {
			continue
		}
		var children []string
		for _, r := range s.tables[c.child] {
			if r[c.column] == id {
				children = append(children, r.ID())
			}
		}
		for _, childID := range children {
			events = append(events, s.remove(c.child, childID)...)
		}
	}
	return events
}

func (s *Store) publish(events []remote.ChangeEvent) {
	for _, ev := range events {
		s.mu.Lock()
		fns := make([]func(remote.ChangeEvent), 0, len(s.subs[ev.Table]))
		keys := make([]int, 0, len(s.subs[ev.Table]))
		for k := range s.subs[ev.Table] {
			keys = append(keys, k)
		}
		sort.Ints(keys)
		for _, k := range keys {
			fns = append(fns, s.subs[ev.Table][k])
		}
		s.mu.Unlock()

		for _, fn := range fns {
			fn(ev)
		}
	}
}

func (s *Store) event(table string, typ model.ChangeType, id string) remote.ChangeEvent {
	return remote.ChangeEvent{Table: table, Type: typ, ID: id, At: s.now()}
}

func (s *Store) takeFailure(op, table string) error {
	key := op + ":" + table
	if err, ok := s.failures[key]; ok {
		delete(s.failures, key)
		return err
	}
	return nil
}

func (s *Store) find(table, id string) remote.Row {
	for _, r := range s.tables[table] {
		if r.ID() == id {
			return r
		}
	}
	return nil
}

func (s *Store) joined(j remote.Join, r remote.Row) any {
	fk, _ := r[j.ForeignKey].(string)
	parent := s.find(j.Table, fk)
	if parent == nil {
		return nil
	}
	return map[string]any(project(parent, j.Columns))
}

// prepare fills generated columns. Callers hold mu.
func (s *Store) prepare(r remote.Row) remote.Row {
	stored := normalize(r)
	if stored.ID() == "" {
		stored["id"] = uuid.NewString()
	}
	ts := s.now().UTC().Format(time.RFC3339Nano)
	if _, ok := stored["created_at"]; !ok {
		stored["created_at"] = ts
	}
	stored["updated_at"] = ts
	return stored
}

func project(r remote.Row, columns []string) remote.Row {
	out := remote.Row{}
	if len(columns) == 0 {
		for k, v := range r {
			out[k] = v
		}
		return out
	}
	for _, c := range columns {
		out[c] = r[c]
	}
	return out
}

func matches(r remote.Row, filters []remote.Filter) bool {
	for _, f := range filters {
		switch f.Op {
		case remote.OpEq:
			if !equal(r[f.Column], f.Value) {
				return false
			}
		case remote.OpIn:
			found := false
			for _, v := range f.Values {
				if equal(r[f.Column], v) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// less orders like Postgres: nulls sort as the largest value.
func less(a, b any, asc bool) bool {
	if a == nil || b == nil {
		if a == nil && b == nil {
			return false
		}
		return (b == nil) == asc
	}
	var lt, gt bool
	switch av := a.(type) {
	case float64:
		bv, _ := b.(float64)
		lt, gt = av < bv, av > bv
	default:
		as, bs := fmt.Sprint(a), fmt.Sprint(b)
		lt, gt = as < bs, as > bs
	}
	if asc {
		return lt
	}
	return gt
}

// normalize gives a row the shape it would have after a JSON round trip.
func normalize(r remote.Row) remote.Row {
	b, err := json.Marshal(r)
	if err != nil {
		return clone(r)
	}
	out := remote.Row{}
	if err := json.Unmarshal(b, &out); err != nil {
		return clone(r)
	}
	return out
}

func clone(r remote.Row) remote.Row {
	out := make(remote.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

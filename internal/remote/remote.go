// Package remote defines the narrow contract the clinic consumes from its
// hosted data service: table reads, writes and change subscriptions.
package remote

import (
	"context"
	"fmt"
	"regexp"

	"github.com/citysmiles/dental-admin/internal/model"
	"github.com/citysmiles/dental-admin/pkg/errors"
)

// Row is one JSON-shaped record. Joined projections are nested maps keyed by
// the related table name.
type Row map[string]any

// ID returns the row identifier, or "" when absent.
func (r Row) ID() string {
	if v, ok := r["id"].(string); ok {
		return v
	}
	return ""
}

// ChangeEvent is re-exported so callers of this package need only one import.
type ChangeEvent = model.ChangeEvent

type FilterOp string

const (
	OpEq FilterOp = "eq"
	OpIn FilterOp = "in"
)

type Filter struct {
	Column string
	Op     FilterOp
	Value  any
	Values []any
}

func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

func In(column string, values ...any) Filter {
	return Filter{Column: column, Op: OpIn, Values: values}
}

// Join embeds named columns of the row referenced by ForeignKey under the
// key Table.
type Join struct {
	Table      string
	ForeignKey string
	Columns    []string
}

type Order struct {
	Column    string
	Ascending bool
}

type Query struct {
	Columns   []string
	Joins     []Join
	Filters   []Filter
	Order     *Order
	Limit     int
	CountOnly bool
}

type Result struct {
	Rows  []Row
	Count int
}

// CancelFunc ends a subscription. It is safe to call more than once.
type CancelFunc func()

type Reader interface {
	Select(ctx context.Context, table string, q Query) (*Result, error)
}

type Writer interface {
	// Insert writes rows and returns them as stored, generated fields included.
	Insert(ctx context.Context, table string, rows ...Row) ([]Row, error)
	Update(ctx context.Context, table, id string, patch Row) error
	Delete(ctx context.Context, table, id string) error
}

type Subscriber interface {
	// Subscribe calls fn for every change on table until the returned
	// CancelFunc is called or ctx is done.
	Subscribe(ctx context.Context, table string, fn func(ChangeEvent)) (CancelFunc, error)
}

type Store interface {
	Reader
	Writer
}

type Service interface {
	Store
	Subscriber
}

type composed struct {
	Store
	Subscriber
}

// Compose pairs a store with a change feed from somewhere else.
func Compose(store Store, sub Subscriber) Service {
	return composed{Store: store, Subscriber: sub}
}

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// CheckTable rejects tables the clinic does not own.
func CheckTable(table string) error {
	for _, t := range model.Tables {
		if t == table {
			return nil
		}
	}
	return errors.BadRequest(fmt.Sprintf("unknown table %q", table), nil)
}

// CheckColumn rejects anything that is not a plain lower-case identifier.
func CheckColumn(column string) error {
	if !identifier.MatchString(column) {
		return errors.BadRequest(fmt.Sprintf("invalid column %q", column), nil)
	}
	return nil
}

// CheckQuery validates every identifier a query refers to.
func CheckQuery(table string, q Query) error {
	if err := CheckTable(table); err != nil {
		return err
	}
	for _, c := range q.Columns {
		if err := CheckColumn(c); err != nil {
			return err
		}
	}
	for _, j := range q.Joins {
		if err := CheckTable(j.Table); err != nil {
			return err
		}
		if err := CheckColumn(j.ForeignKey); err != nil {
			return err
		}
		for _, c := range j.Columns {
			if err := CheckColumn(c); err != nil {
				return err
			}
		}
	}
	for _, f := range q.Filters {
		if err := CheckColumn(f.Column); err != nil {
			return err
		}
		if f.Op != OpEq && f.Op != OpIn {
			return errors.BadRequest(fmt.Sprintf("unsupported filter %q", f.Op), nil)
		}
	}
	if q.Order != nil {
		if err := CheckColumn(q.Order.Column); err != nil {
			return err
		}
	}
	if q.Limit < 0 {
		return errors.BadRequest("limit must not be negative", nil)
	}
	return nil
}

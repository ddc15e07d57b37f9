// Package form stages drafts of clinic records and writes them with a single
// create or update call once they pass local validation.
package form

import (
	"context"
	"sync"

	"github.com/citysmiles/dental-admin/internal/model"
	"github.com/citysmiles/dental-admin/internal/remote"
	"github.com/citysmiles/dental-admin/pkg/errors"
	"github.com/citysmiles/dental-admin/pkg/validator"
)

// Record is a draft that knows whether it already exists remotely.
type Record interface {
	RecordID() string
}

// SavedFunc is called after a successful write, typically a view refresh.
type SavedFunc func(ctx context.Context)

// NewValidator knows the clinic vocabularies that oneof cannot express.
func NewValidator() validator.Validator {
	return validator.New(
		validator.WithVocabulary("procedure", model.Procedures...),
		validator.WithVocabulary("category", model.InventoryCategories...),
		validator.WithVocabulary("unit", model.InventoryUnits...),
	)
}

var errNotOpen = errors.BadRequest("form is not open", nil)

type Form[D Record] struct {
	table     string
	writer    remote.Writer
	validator validator.Validator
	onSaved   SavedFunc

	mu    sync.Mutex
	open  bool
	draft D
}

func New[D Record](table string, writer remote.Writer, v validator.Validator, onSaved SavedFunc) *Form[D] {
	if onSaved == nil {
		onSaved = func(context.Context) {}
	}
	return &Form[D]{
		table:     table,
		writer:    writer,
		validator: v,
		onSaved:   onSaved,
	}
}

// Open starts editing initial: defaults for a new record, or an existing row.
func (f *Form[D]) Open(initial D) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = true
	f.draft = initial
}

func (f *Form[D]) Draft() D {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

func (f *Form[D]) Edit(fn func(*D)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return errNotOpen
	}
	fn(&f.draft)
	return nil
}

func (f *Form[D]) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// Close discards the draft.
func (f *Form[D]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	var zero D
	f.draft = zero
}

// Submit validates the draft and writes it: an insert when it has no id, an
// update otherwise. On any failure the form stays open with the draft as it
// was.
func (f *Form[D]) Submit(ctx context.Context) error {
	f.mu.Lock()
	if !f.open {
		f.mu.Unlock()
		return errNotOpen
	}
	draft := f.draft
	f.mu.Unlock()

	if err := f.validator.Validate(draft); err != nil {
		return errors.Validation(err.Error())
	}
	row, err := remote.Encode(draft)
	if err != nil {
		return errors.Internal(err)
	}

	if id := draft.RecordID(); id == "" {
		_, err = f.writer.Insert(ctx, f.table, row)
	} else {
		err = f.writer.Update(ctx, f.table, id, row)
	}
	if err != nil {
		if errors.HasCode(err, errors.ErrNotFound) {
			return err
		}
		return errors.Remote(err)
	}

	f.onSaved(ctx)
	f.Close()
	return nil
}

package form

import (
	"context"
	"fmt"
	"sync"

	"github.com/citysmiles/dental-admin/internal/model"
	"github.com/citysmiles/dental-admin/internal/remote"
	"github.com/citysmiles/dental-admin/pkg/errors"
	"github.com/citysmiles/dental-admin/pkg/logger"
	"github.com/citysmiles/dental-admin/pkg/validator"
)

type PrescriptionOption func(*PrescriptionForm)

// WithCompensation deletes the prescription header again when its items
// could not be written.
func WithCompensation(on bool) PrescriptionOption {
	return func(f *PrescriptionForm) { f.compensate = on }
}

func WithLogger(l *logger.Logger) PrescriptionOption {
	return func(f *PrescriptionForm) { f.log = l }
}

// PrescriptionForm writes a prescription in two steps: the header, then all
// items in one batch tagged with the header id. The steps are not atomic.
type PrescriptionForm struct {
	writer     remote.Writer
	validator  validator.Validator
	onSaved    SavedFunc
	compensate bool
	log        *logger.Logger

	mu    sync.Mutex
	open  bool
	draft model.PrescriptionDraft
}

func NewPrescriptionForm(writer remote.Writer, v validator.Validator, onSaved SavedFunc, opts ...PrescriptionOption) *PrescriptionForm {
	if onSaved == nil {
		onSaved = func(context.Context) {}
	}
	f := &PrescriptionForm{
		writer:    writer,
		validator: v,
		onSaved:   onSaved,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *PrescriptionForm) Open(initial model.PrescriptionDraft) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = true
	f.draft = initial
	f.draft.Items = append([]model.PrescriptionItem(nil), initial.Items...)
}

func (f *PrescriptionForm) Draft() model.PrescriptionDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.draft
	d.Items = append([]model.PrescriptionItem(nil), f.draft.Items...)
	return d
}

func (f *PrescriptionForm) Edit(fn func(*model.PrescriptionDraft)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return errNotOpen
	}
	fn(&f.draft)
	return nil
}

// AddItem appends a blank item.
func (f *PrescriptionForm) AddItem() error {
	return f.Edit(func(d *model.PrescriptionDraft) {
		d.Items = append(d.Items, model.PrescriptionItem{})
	})
}

// RemoveItem drops item i. The last remaining item cannot be removed.
func (f *PrescriptionForm) RemoveItem(i int) error {
	var err error
	editErr := f.Edit(func(d *model.PrescriptionDraft) {
		if i < 0 || i >= len(d.Items) {
			err = errors.BadRequest(fmt.Sprintf("no item at position %d", i), nil)
			return
		}
		if len(d.Items) == 1 {
			err = errors.BadRequest("a prescription needs at least one item", nil)
			return
		}
		d.Items = append(d.Items[:i:i], d.Items[i+1:]...)
	})
	if editErr != nil {
		return editErr
	}
	return err
}

func (f *PrescriptionForm) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *PrescriptionForm) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	f.draft = model.PrescriptionDraft{}
}

// Submit validates the patient and every item, then writes the header and
// the items. A failed header write leaves nothing behind. A failed item
// write is reported as a partial write; the header stays unless
// compensation is on.
func (f *PrescriptionForm) Submit(ctx context.Context) error {
	f.mu.Lock()
	if !f.open {
		f.mu.Unlock()
		return errNotOpen
	}
	draft := f.draft
	draft.Items = append([]model.PrescriptionItem(nil), f.draft.Items...)
	f.mu.Unlock()

	if err := f.validator.Validate(draft); err != nil {
		return errors.Validation(err.Error())
	}

	header, err := remote.Encode(draft.Header())
	if err != nil {
		return errors.Internal(err)
	}
	inserted, err := f.writer.Insert(ctx, model.TablePrescriptions, header)
	if err != nil {
		return errors.Remote(err)
	}
	if len(inserted) != 1 || inserted[0].ID() == "" {
		return errors.Internal(fmt.Errorf("prescription insert returned no id"))
	}
	id := inserted[0].ID()

	items := make([]remote.Row, 0, len(draft.Items))
	for _, it := range draft.Items {
		it.PrescriptionID = id
		row, err := remote.Encode(it)
		if err != nil {
			return errors.Internal(err)
		}
		items = append(items, row)
	}

	if _, err := f.writer.Insert(ctx, model.TablePrescriptionItems, items...); err != nil {
		return f.partialWrite(ctx, id, err)
	}

	f.onSaved(ctx)
	f.Close()
	return nil
}

func (f *PrescriptionForm) partialWrite(ctx context.Context, id string, itemErr error) error {
	if !f.compensate {
		f.log.Warn(itemErr, "prescription saved without items", "prescription_id", id)
		return errors.PartialWrite("prescription saved without items", itemErr)
	}
	if err := f.writer.Delete(ctx, model.TablePrescriptions, id); err != nil {
		f.log.Error(err, "failed to remove prescription after item write failed", "prescription_id", id)
		return errors.PartialWrite("prescription saved without items", itemErr)
	}
	return errors.PartialWrite("prescription discarded", itemErr)
}

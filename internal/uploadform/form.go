package uploadform

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Options configure a Form.
type Options struct {
	Variant      Variant
	Decoder      Decoder
	Destinations []Destination // defaults to DefaultDestinations
	CharLimit    int
	AltCols      int
	OnPreview    func(*PreviewRow) // see RowBuilder.OnPreview
}

// Form is the state of the upload page. Except for Settle, every method must
// run on the form's loop.
type Form struct {
	loop  *Loop
	guard Guard

	Rows         *RowBuilder
	Text         string
	Hashtags     string
	HashtagOptIn *Checkbox
	Destinations []*Checkbox
	Counter      *Counter
	Error        *MessageArea
	SubmitButton *SubmitControl
}

// NewForm builds an empty form bound to loop.
func NewForm(loop *Loop, opts Options) *Form {
	dests := opts.Destinations
	if len(dests) == 0 {
		dests = DefaultDestinations
	}
	boxes := make([]*Checkbox, 0, len(dests))
	for _, d := range dests {
		boxes = append(boxes, &Checkbox{Name: d.Field, Label: d.Label})
	}
	rows := NewRowBuilder(loop, opts.Decoder, opts.Variant, opts.AltCols)
	rows.OnPreview = opts.OnPreview
	return &Form{
		loop:         loop,
		Rows:         rows,
		HashtagOptIn: &Checkbox{Name: HashtagOptInField, Label: "Add hashtags"},
		Destinations: boxes,
		Counter:      NewCounter(opts.CharLimit),
		Error:        &MessageArea{},
		SubmitButton: &SubmitControl{Label: SubmitLabel},
	}
}

// SelectFiles handles a file-selection change.
func (f *Form) SelectFiles(ctx context.Context, files []SelectedFile) {
	f.Rows.Select(ctx, files)
}

// Settle waits for pending previews. Call it off the loop.
func (f *Form) Settle() { f.Rows.Settle() }

// SetText updates the main text and the counter.
func (f *Form) SetText(text string) {
	f.Text = text
	f.recount()
}

// SetHashtags updates the hashtag text and the counter.
func (f *Form) SetHashtags(text string) {
	f.Hashtags = text
	f.recount()
}

// SetHashtagOptIn toggles whether hashtags count and are submitted.
func (f *Form) SetHashtagOptIn(checked bool) {
	f.HashtagOptIn.Checked = checked
	f.recount()
}

func (f *Form) recount() {
	f.Counter.Update(f.Text, f.Hashtags, f.HashtagOptIn.Checked)
}

// SetDestination checks or unchecks the destination with the given field.
func (f *Form) SetDestination(field string, checked bool) error {
	for _, cb := range f.Destinations {
		if cb.Name == field {
			cb.Checked = checked
			return nil
		}
	}
	return fmt.Errorf("unknown destination %q", field)
}

// SetOrder picks a position for row i. The value must be one of the row's
// choices.
func (f *Form) SetOrder(i, order int) error {
	row, err := f.row(i)
	if err != nil {
		return err
	}
	if f.Rows.Variant() != Ordering {
		return fmt.Errorf("row %d has no order control", i)
	}
	if order < 1 || order > len(row.Choices) {
		return fmt.Errorf("order %d out of range 1..%d", order, len(row.Choices))
	}
	row.Order = order
	return nil
}

// SetNewName types a replacement file name into row i.
func (f *Form) SetNewName(i int, name string) error {
	row, err := f.row(i)
	if err != nil {
		return err
	}
	if f.Rows.Variant() != Rename {
		return fmt.Errorf("row %d has no rename control", i)
	}
	row.NewName = name
	return nil
}

// SetAlt types alt text into row i.
func (f *Form) SetAlt(i int, text string) error {
	row, err := f.row(i)
	if err != nil {
		return err
	}
	row.Alt.Set(text)
	return nil
}

func (f *Form) row(i int) (*PreviewRow, error) {
	row := f.Rows.Row(i)
	if row == nil {
		return nil, fmt.Errorf("no row %d", i)
	}
	return row, nil
}

// Submit handles the submit event and reports whether it may proceed. On
// failure the message is shown and nothing else changes. On success the
// message is hidden and the submit control is locked.
func (f *Form) Submit() bool {
	if err := f.guard.Check(f.Rows.Rows(), f.Rows.Variant(), f.Destinations); err != nil {
		f.Error.Show(err.Error())
		return false
	}
	f.Error.Hide()
	f.SubmitButton.Lock()
	return true
}

// Values returns the form fields as they are posted to the server.
func (f *Form) Values() url.Values {
	v := url.Values{}
	v.Set(TextField, f.Text)
	v.Set(HashtagTextField, f.Hashtags)
	if f.HashtagOptIn.Checked {
		v.Set(HashtagOptInField, "on")
	}
	for _, cb := range f.Destinations {
		if cb.Checked {
			v.Set(cb.Name, "on")
		}
	}
	for _, row := range f.Rows.Rows() {
		switch f.Rows.Variant() {
		case Rename:
			v.Set(row.OrderField(), row.NewName)
		default:
			v.Set(row.OrderField(), strconv.Itoa(row.Order))
			v.Set(row.ExtField(), row.PreservedExtension)
		}
		v.Set(row.AltField(), row.Alt.Value)
	}
	return v
}

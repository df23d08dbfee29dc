package uploadform

import (
	"context"
	"log"
	"strings"
	"sync"
	"unicode/utf8"
)

// DefaultAltCols is the column width used to size alt text controls.
const DefaultAltCols = 50

// AltText is a multi-line control whose height follows its content.
type AltText struct {
	Value  string
	Cols   int
	Height int // visible lines
}

// NewAltText returns an empty control one line high.
func NewAltText(cols int) *AltText {
	if cols <= 0 {
		cols = DefaultAltCols
	}
	return &AltText{Cols: cols, Height: 1}
}

// Set replaces the content and recomputes the height from scratch.
func (a *AltText) Set(value string) {
	a.Value = value
	a.Height = ScrollHeight(value, a.Cols)
}

// ScrollHeight is the number of visual lines text occupies when wrapped at
// cols characters. It is never less than one.
func ScrollHeight(text string, cols int) int {
	if cols <= 0 {
		cols = DefaultAltCols
	}
	lines := 0
	for _, line := range strings.Split(text, "\n") {
		n := utf8.RuneCountInString(line)
		if n == 0 {
			lines++
			continue
		}
		lines += (n + cols - 1) / cols
	}
	return lines
}

// PreviewRow is the form row of one selected file.
type PreviewRow struct {
	Index    int
	FileName string
	Preview  Preview

	// Ordering variant.
	Order              int
	Choices            []int
	PreservedExtension string

	// Rename variant.
	NewName     string
	Placeholder string

	Alt *AltText
}

// OrderField is the wire name of the row's order or rename control.
func (r *PreviewRow) OrderField() string { return NewNameField(r.Index) }

// AltField is the wire name of the row's alt text control.
func (r *PreviewRow) AltField() string { return AltTextField(r.Index) }

// ExtField is the wire name of the row's hidden extension field.
func (r *PreviewRow) ExtField() string { return OriginalExtField(r.Index) }

func newRow(i, total int, file SelectedFile, variant Variant, altCols int) *PreviewRow {
	row := &PreviewRow{
		Index:    i,
		FileName: file.Name,
		Alt:      NewAltText(altCols),
	}
	switch variant {
	case Rename:
		row.Placeholder = "New name for " + file.Name
	default:
		row.Choices = make([]int, total)
		for n := range row.Choices {
			row.Choices[n] = n + 1
		}
		row.Order = i + 1
		row.PreservedExtension = file.Extension()
	}
	return row
}

// RowBuilder rebuilds the preview rows whenever the file selection changes.
type RowBuilder struct {
	loop    *Loop
	decoder Decoder
	variant Variant
	altCols int

	// OnPreview, when set, runs on the loop after a row's preview was
	// applied. It also runs for rows a newer selection already discarded.
	OnPreview func(*PreviewRow)

	rows []*PreviewRow

	mu       sync.Mutex
	idle     *sync.Cond
	inflight int
}

// NewRowBuilder creates a builder whose decode callbacks are posted to loop.
func NewRowBuilder(loop *Loop, decoder Decoder, variant Variant, altCols int) *RowBuilder {
	if decoder == nil {
		decoder = ImageDecoder{}
	}
	b := &RowBuilder{loop: loop, decoder: decoder, variant: variant, altCols: altCols}
	b.idle = sync.NewCond(&b.mu)
	return b
}

// Variant returns the control variant rows are built with.
func (b *RowBuilder) Variant() Variant { return b.variant }

// Select discards every existing row and builds one row per file, in
// selection order. It must run on the loop.
func (b *RowBuilder) Select(ctx context.Context, files []SelectedFile) {
	b.rows = nil
	if len(files) == 0 {
		return
	}
	rows := make([]*PreviewRow, 0, len(files))
	for i, file := range files {
		row := newRow(i, len(files), file, b.variant, b.altCols)
		b.decode(ctx, row, file)
		rows = append(rows, row)
	}
	b.rows = rows
}

// decode starts the preview decode of one row. The callback only ever
// touches the row it was started for, so a decode finishing after a newer
// selection lands on a discarded row.
func (b *RowBuilder) decode(ctx context.Context, row *PreviewRow, file SelectedFile) {
	b.mu.Lock()
	b.inflight++
	b.mu.Unlock()
	go func() {
		defer b.decodeDone()
		preview, err := b.decoder.Decode(ctx, file)
		if err != nil {
			log.Printf("preview of %q failed: %v", file.Name, err)
			return
		}
		b.loop.Post(func() {
			row.Preview = preview
			if b.OnPreview != nil {
				b.OnPreview(row)
			}
		})
	}()
}

func (b *RowBuilder) decodeDone() {
	b.mu.Lock()
	b.inflight--
	if b.inflight == 0 {
		b.idle.Broadcast()
	}
	b.mu.Unlock()
}

// Settle blocks until no decode is in flight and every finished decode's
// callback has run on the loop. Selections may keep arriving meanwhile.
// Call it off the loop.
func (b *RowBuilder) Settle() {
	b.mu.Lock()
	for b.inflight > 0 {
		b.idle.Wait()
	}
	b.mu.Unlock()
	b.loop.Do(func() {})
}

// Rows returns the current rows. It must run on the loop.
func (b *RowBuilder) Rows() []*PreviewRow {
	out := make([]*PreviewRow, len(b.rows))
	copy(out, b.rows)
	return out
}

// Row returns row i, or nil when out of range. It must run on the loop.
func (b *RowBuilder) Row(i int) *PreviewRow {
	if i < 0 || i >= len(b.rows) {
		return nil
	}
	return b.rows[i]
}

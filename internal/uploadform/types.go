// Package uploadform models the multi-image upload form: preview rows built
// from a file selection, the character counter and the submit guard.
//
// Every DOM handle of the page is an explicit state container owned by Form.
// All state is mutated on a single Loop goroutine, the Go counterpart of the
// browser's main thread.
package uploadform

import (
	"context"
	"fmt"
	"strings"
)

// Wire field prefixes consumed positionally by the server.
const (
	NewNamePrefix     = "new_name_"
	AltTextPrefix     = "alt_text_"
	OriginalExtPrefix = "original_ext_"

	FilesField        = "files"
	TextField         = "text"
	HashtagTextField  = "txt_hashtags"
	HashtagOptInField = "hashtagCheckbox"
	ScheduledField    = "scheduled_time"
)

// NewNameField returns the name of the order (or rename) control of row i.
func NewNameField(i int) string { return fmt.Sprintf("%s%d", NewNamePrefix, i) }

// AltTextField returns the name of the alt text control of row i.
func AltTextField(i int) string { return fmt.Sprintf("%s%d", AltTextPrefix, i) }

// OriginalExtField returns the name of the hidden extension field of row i.
func OriginalExtField(i int) string { return fmt.Sprintf("%s%d", OriginalExtPrefix, i) }

// Variant selects which control a row carries next to its preview.
type Variant int

const (
	// Ordering rows carry a 1..N position choice and a preserved extension.
	Ordering Variant = iota
	// Rename rows carry a free-text replacement file name.
	Rename
)

func (v Variant) String() string {
	switch v {
	case Ordering:
		return "ordering"
	case Rename:
		return "rename"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// Destination is a target site a post can be published to.
type Destination struct {
	Field string // form checkbox name, e.g. "chkTW"
	Label string // human readable name, e.g. "Twitter"
}

// DefaultDestinations are the sites offered by the form.
var DefaultDestinations = []Destination{
	{Field: "chkTW", Label: "Twitter"},
	{Field: "chkIG", Label: "Instagram"},
	{Field: "chkPH", Label: "Posthaven"},
	{Field: "chkBS", Label: "Bluesky"},
	{Field: "chkMS", Label: "Mastodon"},
	{Field: "chkFB", Label: "Facebook"},
}

// LookupDestinations filters DefaultDestinations by field name, keeping the
// order of DefaultDestinations. Unknown names are ignored.
func LookupDestinations(fields []string) []Destination {
	wanted := make(map[string]bool, len(fields))
	for _, f := range fields {
		wanted[strings.TrimSpace(f)] = true
	}
	var out []Destination
	for _, d := range DefaultDestinations {
		if wanted[d.Field] {
			out = append(out, d)
		}
	}
	return out
}

// ReadFunc lazily reads the binary content of a selected file.
type ReadFunc func(ctx context.Context) ([]byte, error)

// SelectedFile is one entry of the user's file selection. It is immutable.
type SelectedFile struct {
	Name string
	read ReadFunc
}

// NewSelectedFile wraps a file handle exposing a name and a read capability.
func NewSelectedFile(name string, read ReadFunc) SelectedFile {
	return SelectedFile{Name: name, read: read}
}

// BytesFile is a SelectedFile backed by an in-memory buffer.
func BytesFile(name string, data []byte) SelectedFile {
	return NewSelectedFile(name, func(context.Context) ([]byte, error) {
		return data, nil
	})
}

// Extension returns the final dot segment of the name, without the dot.
func (f SelectedFile) Extension() string {
	i := strings.LastIndex(f.Name, ".")
	if i < 0 {
		return ""
	}
	return f.Name[i+1:]
}

// Read returns the file's binary content.
func (f SelectedFile) Read(ctx context.Context) ([]byte, error) {
	if f.read == nil {
		return nil, fmt.Errorf("file %q has no content", f.Name)
	}
	return f.read(ctx)
}

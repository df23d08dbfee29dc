// Package compose turns a posted upload form into a post ready to publish.
package compose

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"crosspost/internal/uploadform"
)

// DefaultMaxFiles is the number of images a post may carry.
const DefaultMaxFiles = 4

// ScheduledTimeLayout is the format of the scheduled_time field.
const ScheduledTimeLayout = "2006-01-02T15:04"

var (
	ErrTooManyFiles    = errors.New("too many files")
	ErrInvalidOrder    = errors.New("invalid order position")
	ErrInvalidSchedule = errors.New("invalid scheduled time")
	errNoForm          = errors.New("no multipart form")
)

// LimitError reports a submission with more files than allowed.
type LimitError struct {
	Max int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("Error: Maximum of %d files are allowed.", e.Max)
}

// Is makes errors.Is(err, ErrTooManyFiles) match.
func (e *LimitError) Is(target error) bool { return target == ErrTooManyFiles }

// Attachment is one uploaded file with the fields of its form row.
type Attachment struct {
	Index       int
	File        *multipart.FileHeader
	Order       int    // ordering variant
	NewName     string // rename variant
	OriginalExt string // ordering variant, as snapshotted by the browser
	Alt         string
}

// Submission is the parsed upload form.
type Submission struct {
	Text         string
	Hashtags     string
	HashtagOptIn bool
	Destinations []uploadform.Destination
	Variant      uploadform.Variant
	Attachments  []Attachment
	ScheduledAt  *time.Time
}

// ParseSubmission reads the submission of r, keeping up to maxMemory bytes
// of file parts in memory. A form posted without files may arrive url
// encoded and is read the same way.
func ParseSubmission(r *http.Request, maxMemory int64, offered []uploadform.Destination, loc *time.Location) (*Submission, error) {
	err := r.ParseMultipartForm(maxMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
		return FromMultipart(&multipart.Form{Value: r.PostForm}, offered, loc)
	}
	if err != nil {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}
	return FromMultipart(r.MultipartForm, offered, loc)
}

// FromMultipart reads a submission. Row fields are matched to files by
// their zero-based index; offered limits the destinations that are honoured.
func FromMultipart(form *multipart.Form, offered []uploadform.Destination, loc *time.Location) (*Submission, error) {
	if form == nil {
		return nil, errNoForm
	}
	get := func(name string) string {
		if vs := form.Value[name]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}
	_, hasExt := form.Value[uploadform.OriginalExtField(0)]

	sub := &Submission{
		Text:         get(uploadform.TextField),
		Hashtags:     get(uploadform.HashtagTextField),
		HashtagOptIn: get(uploadform.HashtagOptInField) == "on",
		Variant:      uploadform.Rename,
	}
	if hasExt {
		sub.Variant = uploadform.Ordering
	}
	for _, d := range offered {
		if get(d.Field) == "on" {
			sub.Destinations = append(sub.Destinations, d)
		}
	}

	scheduled, err := ParseScheduledTime(get(uploadform.ScheduledField), loc)
	if err != nil {
		return nil, err
	}
	sub.ScheduledAt = scheduled

	i := 0
	for _, fh := range form.File[uploadform.FilesField] {
		// an empty file input still posts one nameless part
		if fh == nil || fh.Filename == "" {
			continue
		}
		att := Attachment{
			Index: i,
			File:  fh,
			Alt:   get(uploadform.AltTextField(i)),
		}
		raw := strings.TrimSpace(get(uploadform.NewNameField(i)))
		if sub.Variant == uploadform.Ordering {
			order, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d has %q", ErrInvalidOrder, i, raw)
			}
			att.Order = order
			att.OriginalExt = get(uploadform.OriginalExtField(i))
		} else {
			att.NewName = raw
		}
		sub.Attachments = append(sub.Attachments, att)
		i++
	}
	return sub, nil
}

// ParseScheduledTime parses a datetime-local value in loc. An empty value
// means "post now" and returns nil.
func ParseScheduledTime(value string, loc *time.Location) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(ScheduledTimeLayout, value, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSchedule, value)
	}
	return &t, nil
}

// Validate applies the same checks as the browser guard, then the server
// side limits.
func (s *Submission) Validate(maxFiles int) error {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	var orders []int
	if s.Variant == uploadform.Ordering {
		for _, a := range s.Attachments {
			orders = append(orders, a.Order)
		}
	}
	if err := uploadform.Validate(orders, len(s.Destinations)); err != nil {
		return err
	}
	for _, o := range orders {
		if o < 1 || o > len(orders) {
			return fmt.Errorf("%w: %d is outside 1..%d", ErrInvalidOrder, o, len(orders))
		}
	}
	if len(s.Attachments) > maxFiles {
		return &LimitError{Max: maxFiles}
	}
	return nil
}

// UserMessage is the text shown in the form's error area for err.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, uploadform.ErrDuplicateOrderPosition),
		errors.Is(err, uploadform.ErrNoDestinationSelected),
		errors.Is(err, ErrTooManyFiles):
		return err.Error()
	case errors.Is(err, ErrInvalidOrder):
		return "Order positions must be between 1 and the number of images."
	case errors.Is(err, ErrInvalidSchedule):
		return "Scheduled time format is incorrect."
	default:
		return "The form could not be read."
	}
}

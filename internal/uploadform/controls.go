package uploadform

import "unicode/utf8"

// DefaultCharLimit is the count above which the counter warns.
const DefaultCharLimit = 240

// Submit control labels.
const (
	SubmitLabel     = "Submit"
	SubmittingLabel = "Submitting..."
)

// MessageArea is the form's error message element.
type MessageArea struct {
	Text    string
	Visible bool
}

// Show sets the text and makes the area visible.
func (m *MessageArea) Show(text string) {
	m.Text = text
	m.Visible = true
}

// Hide makes the area invisible. The text is kept.
func (m *MessageArea) Hide() {
	m.Visible = false
}

// SubmitControl is the form's submit button.
type SubmitControl struct {
	Label    string
	Disabled bool
}

// Lock disables the control and relabels it as in progress.
func (s *SubmitControl) Lock() {
	s.Disabled = true
	s.Label = SubmittingLabel
}

// Checkbox is a named toggle of the form.
type Checkbox struct {
	Name    string
	Label   string
	Checked bool
}

// Counter displays the effective character count of the post.
type Counter struct {
	Limit          int
	Count          int
	WarningVisible bool
}

// NewCounter returns a counter warning above limit characters.
func NewCounter(limit int) *Counter {
	if limit <= 0 {
		limit = DefaultCharLimit
	}
	return &Counter{Limit: limit}
}

// Update recomputes the count and the warning visibility.
func (c *Counter) Update(text, hashtags string, hashtagOptIn bool) int {
	c.Count = CharCount(text, hashtags, hashtagOptIn)
	c.WarningVisible = c.Count > c.Limit
	return c.Count
}

// CharCount is the length of text, plus the hashtags when opted in.
func CharCount(text, hashtags string, hashtagOptIn bool) int {
	n := utf8.RuneCountInString(text)
	if hashtagOptIn {
		n += utf8.RuneCountInString(hashtags)
	}
	return n
}

package compose

import (
	"html"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"crosspost/internal/uploadform"
)

// AltMarker is appended to the text when any image carries alt text.
const AltMarker = "[prompt in the alt]"

var (
	urlPattern   = regexp.MustCompile(`https?://[^\s<>"']+`)
	nameReplacer = strings.NewReplacer("/", "_", `\`, "_")
)

// htmlPolicy allows the line breaks and links TextHTML puts into the body.
var htmlPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("br")
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.RequireParseableURLs(true)
	return p
}()

// OrderedAttachment is an attachment placed at its final position.
type OrderedAttachment struct {
	Attachment
	FileName string // name to store the image under
}

// Extension returns the extension to store the file with, without the dot.
func (a OrderedAttachment) Extension() string {
	if a.OriginalExt != "" {
		return a.OriginalExt
	}
	return strings.TrimPrefix(filepath.Ext(a.File.Filename), ".")
}

// Post is a composed submission.
type Post struct {
	Subject      string
	Text         string // plain text, hashtags and alt marker included
	TextHTML     string
	Destinations []uploadform.Destination
	Attachments  []OrderedAttachment
	ScheduledAt  *time.Time
}

// DestinationLabels lists the destination names in form order.
func (p *Post) DestinationLabels() []string {
	out := make([]string, 0, len(p.Destinations))
	for _, d := range p.Destinations {
		out = append(out, d.Label)
	}
	return out
}

// Compose builds the post of a validated submission. now and loc date the
// subject line.
func Compose(sub *Submission, now time.Time, loc *time.Location) *Post {
	if loc == nil {
		loc = time.UTC
	}
	text := normalizeNewlines(sub.Text)

	plain := text
	if hasAlt(sub.Attachments) {
		plain += "\n\n" + AltMarker
	}
	if sub.HashtagOptIn && sub.Hashtags != "" {
		plain += "\n\n" + normalizeNewlines(sub.Hashtags)
	}

	return &Post{
		Subject:      Subject(text, now.In(loc)),
		Text:         plain,
		TextHTML:     TextHTML(text),
		Destinations: sub.Destinations,
		Attachments:  orderAttachments(sub.Variant, sub.Attachments),
		ScheduledAt:  sub.ScheduledAt,
	}
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func hasAlt(atts []Attachment) bool {
	for _, a := range atts {
		if a.Alt != "" {
			return true
		}
	}
	return false
}

// Subject is "[YYYY/MM/DD] <first ten characters> ...".
func Subject(text string, now time.Time) string {
	preview := strings.ReplaceAll(text, "\n", " ")
	if utf8.RuneCountInString(preview) > 10 {
		preview = string([]rune(preview)[:10])
	}
	return "[" + now.Format("2006/01/02") + "] " + preview + " ..."
}

// TextHTML renders text as escaped HTML: line breaks become <br>, URLs
// become links, and the result is wrapped in <big>…</big><hr>.
func TextHTML(text string) string {
	lines := strings.Split(normalizeNewlines(text), "\n")
	for i, line := range lines {
		lines[i] = linkURLs(html.EscapeString(line))
	}
	return "<big>" + htmlPolicy.Sanitize(strings.Join(lines, "<br>")) + "</big><hr>"
}

func linkURLs(escaped string) string {
	return urlPattern.ReplaceAllStringFunc(escaped, func(u string) string {
		return `<a href="` + u + `">` + u + `</a>`
	})
}

// orderAttachments sorts by order position, or for renamed files by the new
// name falling back to the uploaded name, and names each file.
func orderAttachments(variant uploadform.Variant, atts []Attachment) []OrderedAttachment {
	out := make([]OrderedAttachment, 0, len(atts))
	for _, a := range atts {
		out = append(out, OrderedAttachment{Attachment: a})
	}
	if variant == uploadform.Ordering {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	} else {
		key := func(a OrderedAttachment) string {
			if a.NewName != "" {
				return a.NewName
			}
			return a.File.Filename
		}
		sort.SliceStable(out, func(i, j int) bool { return key(out[i]) < key(out[j]) })
	}
	for i := range out {
		out[i].FileName = storedName(variant, out[i])
	}
	return out
}

func storedName(variant uploadform.Variant, a OrderedAttachment) string {
	base := nameReplacer.Replace(strings.TrimSpace(a.NewName))
	if variant == uploadform.Ordering {
		base = strconv.Itoa(a.Order)
	}
	if base == "" || base == "." || base == ".." {
		// empty name: storage generates one
		return ""
	}
	if ext := a.Extension(); ext != "" {
		return base + "." + ext
	}
	return base
}

package compose

import (
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"crosspost/internal/uploadform"
)

func fileHeaders(names ...string) []*multipart.FileHeader {
	out := make([]*multipart.FileHeader, 0, len(names))
	for _, n := range names {
		out = append(out, &multipart.FileHeader{Filename: n})
	}
	return out
}

func orderingForm() *multipart.Form {
	return &multipart.Form{
		Value: map[string][]string{
			"text":            {"Hello https://example.com/x"},
			"txt_hashtags":    {"#art #ai"},
			"hashtagCheckbox": {"on"},
			"chkMS":           {"on"},
			"chkBS":           {"on"},
			"new_name_0":      {"2"},
			"original_ext_0":  {"JPEG"},
			"alt_text_0":      {"a cat"},
			"new_name_1":      {"1"},
			"original_ext_1":  {"png"},
			"alt_text_1":      {""},
		},
		File: map[string][]*multipart.FileHeader{
			"files": fileHeaders("photo.JPEG", "b.png"),
		},
	}
}

func TestFromMultipartOrdering(t *testing.T) {
	sub, err := FromMultipart(orderingForm(), uploadform.DefaultDestinations, time.UTC)
	if err != nil {
		t.Fatalf("FromMultipart: %v", err)
	}
	if sub.Variant != uploadform.Ordering || !sub.HashtagOptIn || sub.ScheduledAt != nil {
		t.Errorf("unexpected submission %+v", sub)
	}
	wantDest := []uploadform.Destination{{Field: "chkBS", Label: "Bluesky"}, {Field: "chkMS", Label: "Mastodon"}}
	if diff := cmp.Diff(wantDest, sub.Destinations); diff != "" {
		t.Errorf("destinations mismatch (-want +got):\n%s", diff)
	}
	got := []Attachment{
		{Index: sub.Attachments[0].Index, Order: sub.Attachments[0].Order, OriginalExt: sub.Attachments[0].OriginalExt, Alt: sub.Attachments[0].Alt},
		{Index: sub.Attachments[1].Index, Order: sub.Attachments[1].Order, OriginalExt: sub.Attachments[1].OriginalExt, Alt: sub.Attachments[1].Alt},
	}
	want := []Attachment{
		{Index: 0, Order: 2, OriginalExt: "JPEG", Alt: "a cat"},
		{Index: 1, Order: 1, OriginalExt: "png"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("attachments mismatch (-want +got):\n%s", diff)
	}
	if err := sub.Validate(4); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestFromMultipartSkipsEmptyFilePart(t *testing.T) {
	form := &multipart.Form{
		Value: map[string][]string{"text": {"only text"}, "chkTW": {"on"}},
		File:  map[string][]*multipart.FileHeader{"files": fileHeaders("")},
	}
	sub, err := FromMultipart(form, uploadform.DefaultDestinations, time.UTC)
	if err != nil {
		t.Fatalf("FromMultipart: %v", err)
	}
	if len(sub.Attachments) != 0 {
		t.Errorf("got %d attachments, want 0", len(sub.Attachments))
	}
	if err := sub.Validate(4); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestFromMultipartRejectsBadOrder(t *testing.T) {
	form := orderingForm()
	form.Value["new_name_1"] = []string{"first"}
	if _, err := FromMultipart(form, uploadform.DefaultDestinations, time.UTC); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("err = %v, want ErrInvalidOrder", err)
	}
}

func TestFromMultipartIgnoresUnofferedDestinations(t *testing.T) {
	offered := uploadform.LookupDestinations([]string{"chkBS"})
	sub, err := FromMultipart(orderingForm(), offered, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if len(sub.Destinations) != 1 || sub.Destinations[0].Field != "chkBS" {
		t.Errorf("destinations = %+v", sub.Destinations)
	}
}

func TestValidate(t *testing.T) {
	dest := []uploadform.Destination{uploadform.DefaultDestinations[0]}
	ordered := func(orders ...int) []Attachment {
		var out []Attachment
		for i, o := range orders {
			out = append(out, Attachment{Index: i, Order: o, File: &multipart.FileHeader{Filename: "x.png"}})
		}
		return out
	}
	tests := []struct {
		name string
		sub  Submission
		want error
	}{
		{"ok", Submission{Variant: uploadform.Ordering, Destinations: dest, Attachments: ordered(2, 1, 3)}, nil},
		{"duplicate", Submission{Variant: uploadform.Ordering, Destinations: dest, Attachments: ordered(1, 1)}, uploadform.ErrDuplicateOrderPosition},
		{"duplicate before destinations", Submission{Variant: uploadform.Ordering, Attachments: ordered(2, 2)}, uploadform.ErrDuplicateOrderPosition},
		{"no destination", Submission{Variant: uploadform.Ordering, Attachments: ordered(1, 2)}, uploadform.ErrNoDestinationSelected},
		{"out of range", Submission{Variant: uploadform.Ordering, Destinations: dest, Attachments: ordered(1, 5)}, ErrInvalidOrder},
		{"too many", Submission{Variant: uploadform.Ordering, Destinations: dest, Attachments: ordered(1, 2, 3, 4, 5)}, ErrTooManyFiles},
		{"rename ignores orders", Submission{Variant: uploadform.Rename, Destinations: dest, Attachments: ordered(0, 0)}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sub.Validate(4)
			if tt.want == nil && err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{uploadform.ErrDuplicateOrderPosition, "Order positions must be unique!"},
		{uploadform.ErrNoDestinationSelected, "You need to select at least one site"},
		{&LimitError{Max: 4}, "Error: Maximum of 4 files are allowed."},
		{ErrInvalidSchedule, "Scheduled time format is incorrect."},
	}
	for _, tt := range tests {
		if got := UserMessage(tt.err); got != tt.want {
			t.Errorf("UserMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestParseScheduledTime(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("no tzdata: %v", err)
	}
	got, err := ParseScheduledTime("2024-07-01T09:30", berlin)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, 7, 1, 7, 30, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("got %v, want %v", got.UTC(), want)
	}
	if got, err := ParseScheduledTime("  ", berlin); got != nil || err != nil {
		t.Errorf("empty value: got %v, %v", got, err)
	}
	if _, err := ParseScheduledTime("tomorrow", berlin); !errors.Is(err, ErrInvalidSchedule) {
		t.Errorf("err = %v, want ErrInvalidSchedule", err)
	}
}

func TestComposeOrdering(t *testing.T) {
	sub, err := FromMultipart(orderingForm(), uploadform.DefaultDestinations, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)
	post := Compose(sub, now, time.FixedZone("CET", 3600))

	if post.Subject != "[2024/03/10] Hello http ..." {
		t.Errorf("subject = %q", post.Subject)
	}
	wantText := "Hello https://example.com/x\n\n[prompt in the alt]\n\n#art #ai"
	if post.Text != wantText {
		t.Errorf("text = %q, want %q", post.Text, wantText)
	}
	var names []string
	for _, a := range post.Attachments {
		names = append(names, a.FileName)
	}
	if diff := cmp.Diff([]string{"1.png", "2.JPEG"}, names); diff != "" {
		t.Errorf("attachment order mismatch (-want +got):\n%s", diff)
	}
	if post.Attachments[1].Alt != "a cat" {
		t.Errorf("alt text did not follow its file: %+v", post.Attachments[1])
	}
	if diff := cmp.Diff([]string{"Bluesky", "Mastodon"}, post.DestinationLabels()); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestComposeWithoutOptIn(t *testing.T) {
	sub := &Submission{Text: "plain", Hashtags: "#tag", Variant: uploadform.Rename}
	post := Compose(sub, time.Now(), nil)
	if post.Text != "plain" {
		t.Errorf("text = %q, want hashtags and marker left out", post.Text)
	}
}

func TestComposeRename(t *testing.T) {
	sub := &Submission{
		Variant: uploadform.Rename,
		Attachments: []Attachment{
			{Index: 0, File: &multipart.FileHeader{Filename: "zebra.png"}, NewName: ""},
			{Index: 1, File: &multipart.FileHeader{Filename: "b.jpg"}, NewName: "apple"},
			{Index: 2, File: &multipart.FileHeader{Filename: "c.gif"}, NewName: "../m"},
		},
	}
	post := Compose(sub, time.Now(), time.UTC)
	var names []string
	for _, a := range post.Attachments {
		names = append(names, a.FileName)
	}
	if diff := cmp.Diff([]string{".._m.gif", "apple.jpg", ""}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestTextHTML(t *testing.T) {
	out := TextHTML("Look <b>here</b>\r\nhttps://example.com/x\n<script>alert(1)</script>")
	for _, want := range []string{
		"<big>",
		"&lt;b&gt;here&lt;/b&gt;",
		`<a href="https://example.com/x">https://example.com/x</a>`,
		"&lt;script&gt;",
		"<hr",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("%q missing from %q", want, out)
		}
	}
	if strings.Contains(out, "<script") || strings.Count(out, "<br") != 2 {
		t.Errorf("unexpected markup %q", out)
	}
	if !strings.HasPrefix(out, "<big>") || !strings.HasSuffix(out, "</big><hr>") {
		t.Errorf("body not framed by <big>...</big><hr>: %q", out)
	}
}

func TestComposeWhitespaceAltAddsMarker(t *testing.T) {
	sub := &Submission{
		Text:    "text",
		Variant: uploadform.Ordering,
		Attachments: []Attachment{
			{Index: 0, Order: 1, OriginalExt: "png", Alt: " "},
		},
	}
	post := Compose(sub, time.Now(), time.UTC)
	if want := "text\n\n" + AltMarker; post.Text != want {
		t.Errorf("text = %q, want %q", post.Text, want)
	}
}

func TestSubjectShortText(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if got := Subject("héllo", now); got != "[2024/01/02] héllo ..." {
		t.Errorf("got %q", got)
	}
}

func TestParseSubmissionURLEncoded(t *testing.T) {
	form := url.Values{"text": {"text only"}, "chkTW": {"on"}}
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	sub, err := ParseSubmission(req, 1<<20, uploadform.DefaultDestinations, time.UTC)
	if err != nil {
		t.Fatalf("ParseSubmission: %v", err)
	}
	if sub.Text != "text only" || len(sub.Attachments) != 0 {
		t.Errorf("unexpected submission %+v", sub)
	}
	if len(sub.Destinations) != 1 || sub.Destinations[0].Label != "Twitter" {
		t.Errorf("destinations = %+v", sub.Destinations)
	}
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"crosspost/internal/auth"
	"crosspost/internal/config"
	"crosspost/internal/models"
)

type sentMessage struct {
	topic string
	key   string
	body  DestinationMessage
}

type fakeProducer struct {
	mu     sync.Mutex
	fail   map[string]bool // keyed by message key
	sent   []sentMessage
	closed bool
}

func (p *fakeProducer) SendMessage(ctx context.Context, topic string, key []byte, payload []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail[string(key)] {
		return errors.New("broker unavailable")
	}
	var msg DestinationMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return err
	}
	p.sent = append(p.sent, sentMessage{topic: topic, key: string(key), body: msg})
	return nil
}

func (p *fakeProducer) Close() { p.closed = true }

type fakeRepo struct {
	mu      sync.Mutex
	nextID  uint
	posts   map[uint]*models.ScheduledPost
	deleted []uint
	posted  []uint
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{posts: map[uint]*models.ScheduledPost{}}
}

func (r *fakeRepo) Create(ctx context.Context, post *models.ScheduledPost) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	post.ID = r.nextID
	r.posts[post.ID] = post
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id uint) (*models.ScheduledPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return p, nil
}

func (r *fakeRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*models.ScheduledPost
	for _, p := range r.posts {
		if !p.Posted && !p.ScheduledAt.After(now) {
			due = append(due, p)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(due[j].ScheduledAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *fakeRepo) MarkPosted(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.posts[id]; ok {
		p.Posted = true
	}
	r.posted = append(r.posted, id)
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, id)
	r.deleted = append(r.deleted, id)
	return nil
}

type memRevocations struct {
	mu  sync.Mutex
	ids map[string]time.Time
}

func (b *memRevocations) Revoke(ctx context.Context, jti string, exp time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ids == nil {
		b.ids = map[string]time.Time{}
	}
	b.ids[jti] = exp
	return nil
}

func (b *memRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.ids[jti]
	return ok, nil
}

var _ auth.RevocationStore = (*memRevocations)(nil)

func testPayload(dest ...string) models.PostPayload {
	return models.PostPayload{
		Subject:      "[2024/05/01] Hello worl ...",
		Text:         "Hello world",
		TextHTML:     "<big>Hello world</big><hr>",
		Destinations: dest,
		Images:       []models.PostImage{{FileName: "1.jpg", URL: "http://localhost/uploads/x/1.jpg", Alt: "a cat"}},
	}
}

func TestDispatchResultMessage(t *testing.T) {
	tests := []struct {
		name   string
		result DispatchResult
		want   string
	}{
		{"all ok", DispatchResult{Succeeded: []string{"Twitter", "Bluesky"}}, "Successfully posted to: Twitter, Bluesky."},
		{"mixed", DispatchResult{Succeeded: []string{"Twitter", "Bluesky"}, Failed: []string{"Mastodon"}},
			"Successfully posted to: Twitter, Bluesky. Failed to post to: Mastodon."},
		{"all failed", DispatchResult{Failed: []string{"Mastodon"}}, "Failed to post to: Mastodon."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Message(); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
	if (DispatchResult{}).AllFailed() {
		t.Error("empty result reported as all failed")
	}
}

func TestKafkaDispatcherOneMessagePerDestination(t *testing.T) {
	producer := &fakeProducer{fail: map[string]bool{"mastodon": true}}
	d := NewKafkaDispatcher(producer, "crosspost-posts")

	result := d.Dispatch(context.Background(), testPayload("Twitter", "Mastodon", "Bluesky"))

	want := DispatchResult{Succeeded: []string{"Twitter", "Bluesky"}, Failed: []string{"Mastodon"}}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if len(producer.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(producer.sent))
	}
	for _, m := range producer.sent {
		if m.topic != "crosspost-posts" {
			t.Errorf("topic = %q", m.topic)
		}
		if m.body.Text != "Hello world" || len(m.body.Images) != 1 {
			t.Errorf("unexpected body %+v", m.body)
		}
	}
	if producer.sent[0].key != "twitter" || producer.sent[0].body.Destination != "Twitter" {
		t.Errorf("first message = %+v", producer.sent[0])
	}
}

func TestPostServiceImmediate(t *testing.T) {
	producer := &fakeProducer{}
	repo := newFakeRepo()
	svc := NewPostService(repo, NewKafkaDispatcher(producer, "t"))

	res, err := svc.Submit(context.Background(), testPayload("Twitter"), nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Scheduled {
		t.Error("immediate post reported as scheduled")
	}
	if got := res.Message(); got != "Successfully posted to: Twitter." {
		t.Errorf("Message() = %q", got)
	}
	if len(repo.posts) != 0 {
		t.Errorf("immediate post stored: %d", len(repo.posts))
	}
}

func TestPostServiceScheduled(t *testing.T) {
	producer := &fakeProducer{}
	repo := newFakeRepo()
	svc := NewPostService(repo, NewKafkaDispatcher(producer, "t"))

	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatal(err)
	}
	at := time.Date(2024, 5, 1, 18, 30, 0, 0, berlin)
	res, err := svc.Submit(context.Background(), testPayload("Twitter", "Bluesky"), &at)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.Scheduled || res.Message() != "Post has been scheduled!" {
		t.Errorf("result = %+v", res)
	}
	if len(producer.sent) != 0 {
		t.Errorf("scheduled post dispatched early")
	}
	stored, err := repo.GetByID(context.Background(), res.PostID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.ScheduledAt.Equal(at) || stored.ScheduledAt.Location() != time.UTC {
		t.Errorf("ScheduledAt = %v", stored.ScheduledAt)
	}
	payload, err := stored.Payload()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(testPayload("Twitter", "Bluesky"), *payload); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestSchedulerRunOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	add := func(at time.Time, dest ...string) uint {
		p := &models.ScheduledPost{Text: "x", ScheduledAt: at}
		if err := p.SetPayload(testPayload(dest...)); err != nil {
			t.Fatal(err)
		}
		if err := repo.Create(ctx, p); err != nil {
			t.Fatal(err)
		}
		return p.ID
	}
	due := add(now.Add(-time.Minute), "Twitter")
	failing := add(now.Add(-2*time.Minute), "Mastodon")
	future := add(now.Add(time.Hour), "Twitter")

	producer := &fakeProducer{fail: map[string]bool{"mastodon": true}}
	s := NewScheduler(repo, NewKafkaDispatcher(producer, "t"), time.Second)
	s.now = func() time.Time { return now }

	sent, err := s.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if sent != 1 {
		t.Errorf("sent = %d, want 1", sent)
	}
	if diff := cmp.Diff([]uint{due}, repo.deleted); diff != "" {
		t.Errorf("deleted mismatch (-want +got):\n%s", diff)
	}
	if _, err := repo.GetByID(ctx, failing); err != nil {
		t.Errorf("failed post should stay for retry: %v", err)
	}
	if _, err := repo.GetByID(ctx, future); err != nil {
		t.Errorf("future post should stay: %v", err)
	}

	// the failing destination recovers on a later run
	producer.fail = nil
	if sent, _ := s.RunOnce(ctx); sent != 1 {
		t.Errorf("retry sent = %d, want 1", sent)
	}
	if _, err := repo.GetByID(ctx, failing); err == nil {
		t.Error("retried post not deleted")
	}
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	s := NewScheduler(newFakeRepo(), NewKafkaDispatcher(&fakeProducer{}, "t"), time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func testAuthConfig(t *testing.T) config.AuthConfig {
	t.Helper()
	hash, err := auth.HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	return config.AuthConfig{
		PasswordHash: hash,
		JWTSecretKey: "test-secret",
		JWTExpiry:    time.Hour,
		CookieName:   "crosspost_session",
	}
}

func TestAuthServiceLoginLogout(t *testing.T) {
	ctx := context.Background()
	bl := &memRevocations{}
	svc := NewAuthService(testAuthConfig(t), bl)

	if _, _, err := svc.Login(ctx, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login(wrong) err = %v, want ErrInvalidCredentials", err)
	}

	token, exp, err := svc.Login(ctx, "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Errorf("expiry %v not in the future", exp)
	}
	claims, err := svc.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if claims.Subject != OwnerSubject {
		t.Errorf("subject = %q", claims.Subject)
	}

	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, token); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Authenticate after logout err = %v", err)
	}
	if err := svc.Logout(ctx, "garbage"); err != nil {
		t.Errorf("Logout(garbage) = %v", err)
	}
	if _, err := svc.Authenticate(ctx, ""); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Authenticate(\"\") err = %v", err)
	}
}

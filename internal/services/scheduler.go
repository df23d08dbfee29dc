package services

import (
	"context"
	"log"
	"time"

	"crosspost/internal/storage"
)

const schedulerBatch = 20

// Scheduler sends scheduled posts once they are due.
type Scheduler struct {
	repo       storage.ScheduledPostRepository
	dispatcher Dispatcher
	interval   time.Duration
	now        func() time.Time
}

// NewScheduler polls repo every interval.
func NewScheduler(repo storage.ScheduledPostRepository, dispatcher Dispatcher, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scheduler{repo: repo, dispatcher: dispatcher, interval: interval, now: time.Now}
}

// Run polls until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("scheduler started, polling every %v", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.RunOnce(ctx); err != nil {
			log.Printf("scheduler: %v", err)
		}
		select {
		case <-ctx.Done():
			log.Println("scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce dispatches every due post and returns how many were sent. A post
// whose destinations all failed stays for the next run; a sent post is
// deleted.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	due, err := s.repo.ListDue(ctx, s.now(), schedulerBatch)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, post := range due {
		payload, err := post.Payload()
		if err != nil {
			log.Printf("scheduled post %s has a broken payload, skipping: %v", post.IDString(), err)
			continue
		}
		result := s.dispatcher.Dispatch(ctx, *payload)
		if result.AllFailed() {
			log.Printf("scheduled post %s: %s Retrying later.", post.IDString(), result.Message())
			continue
		}
		log.Printf("scheduled post %s: %s", post.IDString(), result.Message())
		if err := s.repo.Delete(ctx, post.ID); err != nil {
			// keep it from being sent twice
			log.Printf("delete scheduled post %d failed: %v", post.ID, err)
			if err := s.repo.MarkPosted(ctx, post.ID); err != nil {
				log.Printf("mark scheduled post %d as posted failed: %v", post.ID, err)
			}
			continue
		}
		sent++
	}
	return sent, nil
}

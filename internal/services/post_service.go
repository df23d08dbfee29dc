package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"crosspost/internal/models"
	"crosspost/internal/storage"
)

// SubmitResult describes what happened to a submitted post.
type SubmitResult struct {
	Scheduled   bool
	ScheduledAt time.Time
	PostID      uint
	Dispatch    DispatchResult
}

// Message is the flash text shown after the redirect.
func (r *SubmitResult) Message() string {
	if r.Scheduled {
		return "Post has been scheduled!"
	}
	return r.Dispatch.Message()
}

// PostService publishes or schedules composed posts.
type PostService interface {
	Submit(ctx context.Context, payload models.PostPayload, scheduledAt *time.Time) (*SubmitResult, error)
}

type postService struct {
	repo       storage.ScheduledPostRepository
	dispatcher Dispatcher
}

// NewPostService creates a PostService.
func NewPostService(repo storage.ScheduledPostRepository, dispatcher Dispatcher) PostService {
	return &postService{repo: repo, dispatcher: dispatcher}
}

// Submit dispatches the post now, or stores it when scheduledAt is set.
func (s *postService) Submit(ctx context.Context, payload models.PostPayload, scheduledAt *time.Time) (*SubmitResult, error) {
	if scheduledAt == nil {
		log.Printf("posting immediately to %v", payload.Destinations)
		return &SubmitResult{Dispatch: s.dispatcher.Dispatch(ctx, payload)}, nil
	}

	post := &models.ScheduledPost{
		Text:        payload.Text,
		ScheduledAt: scheduledAt.UTC(),
	}
	if err := post.SetPayload(payload); err != nil {
		return nil, fmt.Errorf("encode post payload: %w", err)
	}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("save scheduled post: %w", err)
	}
	log.Printf("post %d scheduled for %s", post.ID, post.ScheduledAt.Format(time.RFC3339))
	return &SubmitResult{Scheduled: true, ScheduledAt: post.ScheduledAt, PostID: post.ID}, nil
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"crosspost/internal/kafka"
	"crosspost/internal/models"
)

// DestinationMessage is published once per destination of a post. Platform
// workers consume it and do the actual upload.
type DestinationMessage struct {
	Destination string             `json:"destination"`
	Subject     string             `json:"subject"`
	Text        string             `json:"text"`
	TextHTML    string             `json:"textHtml"`
	Images      []models.PostImage `json:"images,omitempty"`
	TextOnly    bool               `json:"textOnly"`
	QueuedAt    time.Time          `json:"queuedAt"`
}

// DispatchResult lists the destinations a post was handed to.
type DispatchResult struct {
	Succeeded []string
	Failed    []string
}

// AllFailed reports whether no destination accepted the post.
func (r DispatchResult) AllFailed() bool {
	return len(r.Failed) > 0 && len(r.Succeeded) == 0
}

// Message is the flash text for the result.
func (r DispatchResult) Message() string {
	var parts []string
	if len(r.Succeeded) > 0 {
		parts = append(parts, "Successfully posted to: "+strings.Join(r.Succeeded, ", ")+".")
	}
	if len(r.Failed) > 0 {
		parts = append(parts, "Failed to post to: "+strings.Join(r.Failed, ", ")+".")
	}
	return strings.Join(parts, " ")
}

// Dispatcher hands a post to each of its destinations.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload models.PostPayload) DispatchResult
}

type kafkaDispatcher struct {
	producer kafka.MessageProducer
	topic    string
	now      func() time.Time
}

// NewKafkaDispatcher publishes destination messages to topic, keyed by the
// destination name.
func NewKafkaDispatcher(producer kafka.MessageProducer, topic string) Dispatcher {
	return &kafkaDispatcher{producer: producer, topic: topic, now: time.Now}
}

func (d *kafkaDispatcher) Dispatch(ctx context.Context, payload models.PostPayload) DispatchResult {
	var result DispatchResult
	for _, dest := range payload.Destinations {
		start := d.now()
		err := d.send(ctx, dest, payload)
		log.Printf("dispatch to %s took %v", dest, d.now().Sub(start))
		if err != nil {
			log.Printf("dispatch to %s failed: %v", dest, err)
			result.Failed = append(result.Failed, dest)
			continue
		}
		result.Succeeded = append(result.Succeeded, dest)
	}
	return result
}

func (d *kafkaDispatcher) send(ctx context.Context, dest string, payload models.PostPayload) error {
	body, err := json.Marshal(DestinationMessage{
		Destination: dest,
		Subject:     payload.Subject,
		Text:        payload.Text,
		TextHTML:    payload.TextHTML,
		Images:      payload.Images,
		TextOnly:    payload.TextOnly,
		QueuedAt:    d.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	headers := map[string]string{"content-type": "application/json"}
	return d.producer.SendMessage(ctx, d.topic, []byte(strings.ToLower(dest)), body, headers)
}

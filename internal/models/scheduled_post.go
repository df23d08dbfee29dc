package models

import (
	"encoding/json"
	"errors"
	"time"
)

// PostImage is one stored attachment of a post, in publishing order.
type PostImage struct {
	FileName string `json:"fileName"`
	URL      string `json:"url"`
	Path     string `json:"path"`
	Alt      string `json:"alt"`
}

// PostPayload is everything needed to publish a post to its destinations.
type PostPayload struct {
	Subject      string      `json:"subject"`
	Text         string      `json:"text"`     // plain text with hashtags and markers
	TextHTML     string      `json:"textHtml"` // sanitised HTML body
	Destinations []string    `json:"destinations"`
	Images       []PostImage `json:"images,omitempty"`
	Folder       string      `json:"folder,omitempty"` // storage folder holding the images
	TextOnly     bool        `json:"textOnly"`
}

// ScheduledPost is a post waiting for its publishing time.
type ScheduledPost struct {
	BaseModel
	Text        string          `gorm:"type:text;not null" json:"text"`
	ScheduledAt time.Time       `gorm:"index;not null" json:"scheduledAt"` // UTC
	PayloadRaw  json.RawMessage `gorm:"type:jsonb;not null" json:"payload"`
	Posted      bool            `gorm:"default:false" json:"posted"`
}

// TableName 指定 ScheduledPost 模型的表名。
func (ScheduledPost) TableName() string {
	return "scheduled_posts"
}

// SetPayload stores the payload as JSON.
func (p *ScheduledPost) SetPayload(payload PostPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	p.PayloadRaw = data
	return nil
}

// Payload decodes the stored payload.
func (p *ScheduledPost) Payload() (*PostPayload, error) {
	if len(p.PayloadRaw) == 0 {
		return nil, errors.New("scheduled post has no payload")
	}
	var payload PostPayload
	if err := json.Unmarshal(p.PayloadRaw, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

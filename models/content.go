package models

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"
)

// ContentType is the format of a content item.
type ContentType string

const (
	ContentVideo   ContentType = "video"
	ContentArticle ContentType = "article"
	ContentGallery ContentType = "gallery"
	ContentEvent   ContentType = "event"
)

// ContentStatus is the publishing state of a content item.
type ContentStatus string

const (
	ContentPublished ContentStatus = "published"
	ContentDraft     ContentStatus = "draft"
	ContentScheduled ContentStatus = "scheduled"
	ContentReview    ContentStatus = "review"
)

// Content is a marketing asset targeted at personas on platforms.
// Engagement counters only ever grow.
type Content struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	Title       string        `gorm:"size:255;not null" json:"title"`
	Description string        `gorm:"type:text;not null" json:"description"`
	Type        ContentType   `gorm:"size:16;not null" json:"type"`
	Status      ContentStatus `gorm:"size:16;not null" json:"status"`
	AuthorID    uint          `gorm:"not null;index" json:"author_id"`
	Author      *User         `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Views       int64         `gorm:"not null;default:0" json:"views"`
	Likes       int64         `gorm:"not null;default:0" json:"likes"`
	Comments    int64         `gorm:"not null;default:0" json:"comments"`
	Shares      int64         `gorm:"not null;default:0" json:"shares"`
	ScheduledAt *time.Time    `json:"scheduled_at"`
	PublishedAt *time.Time    `json:"published_at"`
	Personas    []Persona     `gorm:"many2many:content_personas" json:"personas,omitempty"`
	Platforms   []Platform    `gorm:"many2many:content_platforms" json:"platforms,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (Content) TableName() string { return "content" }

// Validate checks required fields and enum membership.
func (c Content) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&c.Type, validation.Required,
			validation.In(ContentVideo, ContentArticle, ContentGallery, ContentEvent)),
		validation.Field(&c.Status, validation.Required,
			validation.In(ContentPublished, ContentDraft, ContentScheduled, ContentReview)),
		validation.Field(&c.AuthorID, validation.Required),
		validation.Field(&c.ScheduledAt, validation.When(c.Status == ContentScheduled, validation.Required)),
	)
}

// EngagementField names one of the monotonic counters on Content.
type EngagementField string

const (
	EngagementViews    EngagementField = "views"
	EngagementLikes    EngagementField = "likes"
	EngagementComments EngagementField = "comments"
	EngagementShares   EngagementField = "shares"
)

// ParseEngagementField validates a counter name.
func ParseEngagementField(s string) (EngagementField, error) {
	switch f := EngagementField(s); f {
	case EngagementViews, EngagementLikes, EngagementComments, EngagementShares:
		return f, nil
	}
	return "", fmt.Errorf("unknown engagement counter %q", s)
}

// IncrementEngagement adds delta to one counter of a content row. Negative deltas
// are rejected so counters never decrease.
func IncrementEngagement(db *gorm.DB, contentID uint, field EngagementField, delta int64) error {
	if delta < 0 {
		return fmt.Errorf("engagement delta must not be negative, got %d", delta)
	}
	if _, err := ParseEngagementField(string(field)); err != nil {
		return err
	}
	col := string(field)
	res := db.Model(&Content{}).Where("id = ?", contentID).
		UpdateColumn(col, gorm.Expr(col+" + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// InsightCategory groups insights on the dashboard.
type InsightCategory string

const (
	InsightContent    InsightCategory = "Content"
	InsightAudience   InsightCategory = "Audience"
	InsightEngagement InsightCategory = "Engagement"
	InsightConversion InsightCategory = "Conversion"
)

// Insight is an analyst note, optionally flagged as actionable.
type Insight struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Title       string          `gorm:"size:255;not null" json:"title"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Date        time.Time       `gorm:"type:date;not null" json:"date"`
	Category    InsightCategory `gorm:"size:16;not null" json:"category"`
	Actionable  bool            `gorm:"not null" json:"actionable"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Insight) TableName() string { return "insights" }

func (i Insight) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&i.Date, validation.Required),
		validation.Field(&i.Category, validation.Required,
			validation.In(InsightContent, InsightAudience, InsightEngagement, InsightConversion)),
	)
}

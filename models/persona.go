package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Persona is an audience segment targeted by content.
type Persona struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"size:128;not null;index" json:"name"`
	Description string     `gorm:"type:text;not null" json:"description"`
	AgeRange    string     `gorm:"size:32;not null" json:"age_range"`
	Active      bool       `gorm:"not null" json:"active"`
	CompanyID   *uint      `json:"company_id"`
	Company     *Company   `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	Platforms   []Platform `gorm:"many2many:persona_platforms" json:"platforms,omitempty"`
	Interests   []Interest `gorm:"many2many:persona_interests" json:"interests,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Persona) TableName() string { return "personas" }

func (p Persona) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 128)),
		validation.Field(&p.AgeRange, validation.Length(0, 32)),
	)
}

// Company optionally owns personas. Deleting a company detaches its personas.
type Company struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (Company) TableName() string { return "companies" }

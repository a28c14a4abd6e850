package models

// Platform is a distribution channel. The set is closed and seeded once.
type Platform struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:64;not null;uniqueIndex" json:"name"`
}

func (Platform) TableName() string { return "platforms" }

// Interest is an audience interest tag. The set is closed and seeded once.
type Interest struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:64;not null;uniqueIndex" json:"name"`
}

func (Interest) TableName() string { return "interests" }

// Junction rows. Each has a composite primary key of its two foreign keys and
// both keys cascade on delete of either parent.

type PersonaPlatform struct {
	PersonaID  uint `gorm:"primaryKey"`
	PlatformID uint `gorm:"primaryKey"`
}

func (PersonaPlatform) TableName() string { return "persona_platforms" }

type PersonaInterest struct {
	PersonaID  uint `gorm:"primaryKey"`
	InterestID uint `gorm:"primaryKey"`
}

func (PersonaInterest) TableName() string { return "persona_interests" }

type ContentPersona struct {
	ContentID uint `gorm:"primaryKey"`
	PersonaID uint `gorm:"primaryKey"`
}

func (ContentPersona) TableName() string { return "content_personas" }

type ContentPlatform struct {
	ContentID  uint `gorm:"primaryKey"`
	PlatformID uint `gorm:"primaryKey"`
}

func (ContentPlatform) TableName() string { return "content_platforms" }

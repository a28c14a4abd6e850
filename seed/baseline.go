package seed

import (
	"strings"

	"github.com/cppla/audiencehub/config"
	"github.com/cppla/audiencehub/models"
)

// AdminSeed is the bootstrap administrator account.
type AdminSeed struct {
	Email      string
	Password   string
	Name       string
	Department string
}

// PersonaSeed is the sample persona and the reference rows it links to, by name.
type PersonaSeed struct {
	Name        string
	Description string
	AgeRange    string
	Platforms   []string
	Interests   []string
}

// Baseline is the fixed data a fresh installation starts from.
type Baseline struct {
	Admin     AdminSeed
	Platforms []string
	Interests []string
	Persona   PersonaSeed
}

// DefaultPlatforms is the closed platform reference set.
var DefaultPlatforms = []string{"Instagram", "TikTok", "YouTube", "Website", "LinkedIn", "Facebook"}

// DefaultInterests is the closed interest reference set.
var DefaultInterests = []string{"Yoga", "Running", "Fitness", "Mindfulness", "Outdoor", "Wellness", "Sustainability"}

// DefaultBaseline returns the standard baseline with admin credentials from cfg.
func DefaultBaseline(cfg config.AppConfig) Baseline {
	return Baseline{
		Admin: AdminSeed{
			Email:      strings.ToLower(strings.TrimSpace(cfg.SeedAdminEmail)),
			Password:   cfg.SeedAdminPassword,
			Name:       cfg.SeedAdminName,
			Department: "Marketing",
		},
		Platforms: append([]string(nil), DefaultPlatforms...),
		Interests: append([]string(nil), DefaultInterests...),
		Persona: PersonaSeed{
			Name:        "Mindful Millennial",
			Description: "Urban professionals focused on wellbeing, balance and sustainable living.",
			AgeRange:    "25-34",
			Platforms:   []string{"Instagram", "TikTok"},
			Interests:   []string{"Yoga", "Mindfulness", "Sustainability"},
		},
	}
}

func (a AdminSeed) user(hash string) *models.User {
	return &models.User{
		Name:         a.Name,
		Email:        a.Email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Status:       models.StatusActive,
		Department:   a.Department,
	}
}

func (p PersonaSeed) persona() *models.Persona {
	return &models.Persona{
		Name:        p.Name,
		Description: p.Description,
		AgeRange:    p.AgeRange,
		Active:      true,
	}
}

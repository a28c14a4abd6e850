package controllers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/audiencehub/models"
	"github.com/cppla/audiencehub/utils"
)

// StatsController provides dashboard row counts.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

type engagementTotals struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
}

// GetStats returns row counts per collection and per targeting link table.
func (s *StatsController) GetStats(ctx *gin.Context) {
	db := s.db.WithContext(ctx.Request.Context())

	tables := []struct {
		key   string
		model interface{}
	}{
		{"content_count", &models.Content{}},
		{"persona_count", &models.Persona{}},
		{"insight_count", &models.Insight{}},
		{"platform_count", &models.Platform{}},
		{"interest_count", &models.Interest{}},
		{"company_count", &models.Company{}},
		{"content_persona_links", &models.ContentPersona{}},
		{"content_platform_links", &models.ContentPlatform{}},
		{"persona_platform_links", &models.PersonaPlatform{}},
		{"persona_interest_links", &models.PersonaInterest{}},
	}
	out := gin.H{}
	for _, t := range tables {
		var n int64
		if err := db.Model(t.model).Count(&n).Error; err != nil {
			respondDBError(ctx, err, "")
			return
		}
		out[t.key] = n
	}
	utils.Success(ctx, out)
}

// GetContentStats returns the stored engagement counters of one content item
// and how many personas and platforms it targets.
func (s *StatsController) GetContentStats(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	db := s.db.WithContext(ctx.Request.Context())

	var item models.Content
	if err := db.Select("id", "views", "likes", "comments", "shares").First(&item, id).Error; err != nil {
		respondDBError(ctx, err, "content not found")
		return
	}
	var personas, platforms int64
	if err := db.Model(&models.ContentPersona{}).Where("content_id = ?", id).Count(&personas).Error; err != nil {
		respondDBError(ctx, err, "")
		return
	}
	if err := db.Model(&models.ContentPlatform{}).Where("content_id = ?", id).Count(&platforms).Error; err != nil {
		respondDBError(ctx, err, "")
		return
	}

	utils.Success(ctx, gin.H{
		"engagement": engagementTotals{
			Views:    item.Views,
			Likes:    item.Likes,
			Comments: item.Comments,
			Shares:   item.Shares,
		},
		"persona_count":  personas,
		"platform_count": platforms,
	})
}

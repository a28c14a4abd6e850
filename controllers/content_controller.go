package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/audiencehub/models"
	"github.com/cppla/audiencehub/utils"
)

// ContentController manages content items and their persona/platform targeting.
type ContentController struct {
	db *gorm.DB
}

// NewContentController creates a new ContentController instance.
func NewContentController(db *gorm.DB) *ContentController {
	return &ContentController{db: db}
}

type contentRequest struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Type        models.ContentType   `json:"type"`
	Status      models.ContentStatus `json:"status"`
	ScheduledAt *time.Time           `json:"scheduled_at"`
	PublishedAt *time.Time           `json:"published_at"`
	PersonaIDs  []uint               `json:"persona_ids"`
	PlatformIDs []uint               `json:"platform_ids"`
}

func (r contentRequest) apply(c *models.Content) {
	c.Title = utils.SanitizeText(r.Title)
	c.Description = utils.Sanitize(r.Description)
	c.Type = r.Type
	c.Status = r.Status
	if c.Status == "" {
		c.Status = models.ContentDraft
	}
	c.ScheduledAt = r.ScheduledAt
	c.PublishedAt = r.PublishedAt
	if c.Status == models.ContentPublished && c.PublishedAt == nil {
		now := time.Now()
		c.PublishedAt = &now
	}
}

// ListContent returns paginated content, optionally filtered by status, type,
// persona, platform or a title search.
func (cc *ContentController) ListContent(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := cc.db.WithContext(ctx.Request.Context()).Model(&models.Content{})
	if v := strings.TrimSpace(ctx.Query("status")); v != "" {
		query = query.Where("status = ?", v)
	}
	if v := strings.TrimSpace(ctx.Query("type")); v != "" {
		query = query.Where("type = ?", v)
	}
	if v := strings.TrimSpace(ctx.Query("search")); v != "" {
		query = query.Where("title LIKE ?", "%"+v+"%")
	}
	if v := strings.TrimSpace(ctx.Query("persona_id")); v != "" {
		query = query.Where("id IN (?)", cc.db.Model(&models.ContentPersona{}).Select("content_id").Where("persona_id = ?", v))
	}
	if v := strings.TrimSpace(ctx.Query("platform_id")); v != "" {
		query = query.Where("id IN (?)", cc.db.Model(&models.ContentPlatform{}).Select("content_id").Where("platform_id = ?", v))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondDBError(ctx, err, "")
		return
	}

	var items []models.Content
	if err := query.Preload("Author").Preload("Personas").Preload("Platforms").
		Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&items).Error; err != nil {
		respondDBError(ctx, err, "")
		return
	}
	utils.Success(ctx, paginated(items, page, pageSize, total))
}

// GetContent returns one content item with its author and targeting.
func (cc *ContentController) GetContent(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var item models.Content
	if err := cc.db.WithContext(ctx.Request.Context()).
		Preload("Author").Preload("Personas").Preload("Platforms").
		First(&item, id).Error; err != nil {
		respondDBError(ctx, err, "content not found")
		return
	}
	utils.Success(ctx, item)
}

// CreateContent stores a new item authored by the caller. Unknown persona or
// platform ids are rejected by the schema and reported as 422.
func (cc *ContentController) CreateContent(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req contentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(ctx)
		return
	}

	item := models.Content{AuthorID: userID}
	req.apply(&item)
	if err := item.Validate(); err != nil {
		respondValidation(ctx, err)
		return
	}

	err := cc.db.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&item).Error; err != nil {
			return err
		}
		return models.SetContentLinks(tx, item.ID, req.PersonaIDs, req.PlatformIDs)
	})
	if err != nil {
		respondDBError(ctx, err, "content not found")
		return
	}
	cc.respondWithItem(ctx, item.ID)
}

// UpdateContent replaces the editable fields. Omitted persona_ids or
// platform_ids keep the current links.
func (cc *ContentController) UpdateContent(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req contentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(ctx)
		return
	}

	err := cc.db.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var item models.Content
		if err := tx.First(&item, id).Error; err != nil {
			return err
		}
		req.apply(&item)
		if err := item.Validate(); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations, "views", "likes", "comments", "shares", "author_id", "created_at").
			Save(&item).Error; err != nil {
			return err
		}
		return models.SetContentLinks(tx, item.ID, req.PersonaIDs, req.PlatformIDs)
	})
	if err != nil {
		if isValidationError(err) {
			respondValidation(ctx, err)
			return
		}
		respondDBError(ctx, err, "content not found")
		return
	}
	cc.respondWithItem(ctx, id)
}

// DeleteContent removes the item. Its persona and platform links go with it.
func (cc *ContentController) DeleteContent(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	res := cc.db.WithContext(ctx.Request.Context()).Delete(&models.Content{}, id)
	if res.Error != nil {
		respondDBError(ctx, res.Error, "content not found")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, 40401, "content not found")
		return
	}
	utils.Success(ctx, gin.H{"id": id})
}

// RecordEngagement adds to one engagement counter. Counters never decrease.
func (cc *ContentController) RecordEngagement(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Field string `json:"field" binding:"required"`
		Delta int64  `json:"delta"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(ctx)
		return
	}
	if req.Delta == 0 {
		req.Delta = 1
	}
	field, err := models.ParseEngagementField(req.Field)
	if err != nil || req.Delta < 0 {
		utils.Error(ctx, http.StatusUnprocessableEntity, 42203, "field must be views, likes, comments or shares with a positive delta")
		return
	}
	if err := models.IncrementEngagement(cc.db.WithContext(ctx.Request.Context()), id, field, req.Delta); err != nil {
		respondDBError(ctx, err, "content not found")
		return
	}
	cc.respondWithItem(ctx, id)
}

func (cc *ContentController) respondWithItem(ctx *gin.Context, id uint) {
	var item models.Content
	if err := cc.db.WithContext(ctx.Request.Context()).
		Preload("Personas").Preload("Platforms").First(&item, id).Error; err != nil {
		respondDBError(ctx, err, "content not found")
		return
	}
	utils.Success(ctx, item)
}

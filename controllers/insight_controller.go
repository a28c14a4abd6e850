package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/audiencehub/models"
	"github.com/cppla/audiencehub/utils"
)

const dateLayout = "2006-01-02"

// InsightController manages analyst insights.
type InsightController struct {
	db *gorm.DB
}

// NewInsightController creates a new InsightController instance.
func NewInsightController(db *gorm.DB) *InsightController {
	return &InsightController{db: db}
}

type insightRequest struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Date        string                 `json:"date"`
	Category    models.InsightCategory `json:"category"`
	Actionable  bool                   `json:"actionable"`
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Truncate(24 * time.Hour), true
	}
	return time.Time{}, false
}

func (r insightRequest) apply(i *models.Insight) bool {
	date, ok := parseDate(r.Date)
	if !ok {
		return false
	}
	i.Title = utils.SanitizeText(r.Title)
	i.Description = utils.Sanitize(r.Description)
	i.Date = date
	i.Category = r.Category
	i.Actionable = r.Actionable
	return true
}

// ListInsights returns insights newest first, optionally filtered by category
// or actionable flag.
func (ic *InsightController) ListInsights(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := ic.db.WithContext(ctx.Request.Context()).Model(&models.Insight{})
	if v := strings.TrimSpace(ctx.Query("category")); v != "" {
		query = query.Where("category = ?", v)
	}
	if v := strings.TrimSpace(ctx.Query("actionable")); v != "" {
		query = query.Where("actionable = ?", v == "true" || v == "1")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondDBError(ctx, err, "")
		return
	}
	var items []models.Insight
	if err := query.Order("date DESC, id DESC").Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&items).Error; err != nil {
		respondDBError(ctx, err, "")
		return
	}
	utils.Success(ctx, paginated(items, page, pageSize, total))
}

func (ic *InsightController) GetInsight(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var item models.Insight
	if err := ic.db.WithContext(ctx.Request.Context()).First(&item, id).Error; err != nil {
		respondDBError(ctx, err, "insight not found")
		return
	}
	utils.Success(ctx, item)
}

func (ic *InsightController) CreateInsight(ctx *gin.Context) {
	var req insightRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(ctx)
		return
	}
	var item models.Insight
	if !req.apply(&item) {
		utils.Error(ctx, http.StatusUnprocessableEntity, 42201, "date must be YYYY-MM-DD")
		return
	}
	if err := item.Validate(); err != nil {
		respondValidation(ctx, err)
		return
	}
	if err := ic.db.WithContext(ctx.Request.Context()).Create(&item).Error; err != nil {
		respondDBError(ctx, err, "insight not found")
		return
	}
	utils.Success(ctx, item)
}

func (ic *InsightController) UpdateInsight(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req insightRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(ctx)
		return
	}

	db := ic.db.WithContext(ctx.Request.Context())
	var item models.Insight
	if err := db.First(&item, id).Error; err != nil {
		respondDBError(ctx, err, "insight not found")
		return
	}
	if !req.apply(&item) {
		utils.Error(ctx, http.StatusUnprocessableEntity, 42201, "date must be YYYY-MM-DD")
		return
	}
	if err := item.Validate(); err != nil {
		respondValidation(ctx, err)
		return
	}
	if err := db.Omit("created_at").Save(&item).Error; err != nil {
		respondDBError(ctx, err, "insight not found")
		return
	}
	utils.Success(ctx, item)
}

func (ic *InsightController) DeleteInsight(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	res := ic.db.WithContext(ctx.Request.Context()).Delete(&models.Insight{}, id)
	if res.Error != nil {
		respondDBError(ctx, res.Error, "insight not found")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, 40401, "insight not found")
		return
	}
	utils.Success(ctx, gin.H{"id": id})
}

package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"

	"github.com/cppla/audiencehub/models"
	"github.com/cppla/audiencehub/utils"
)

const companiesCacheKey = "ref:companies"

// CompanyController manages the companies personas may belong to.
type CompanyController struct {
	db *gorm.DB
}

// NewCompanyController creates a new CompanyController instance.
func NewCompanyController(db *gorm.DB) *CompanyController {
	return &CompanyController{db: db}
}

func (cc *CompanyController) ListCompanies(ctx *gin.Context) {
	var items []models.Company
	if utils.CacheGetJSON(ctx.Request.Context(), companiesCacheKey, &items) {
		utils.Success(ctx, items)
		return
	}
	if err := cc.db.WithContext(ctx.Request.Context()).Order("name ASC").Find(&items).Error; err != nil {
		respondDBError(ctx, err, "")
		return
	}
	utils.CacheSetJSON(ctx.Request.Context(), companiesCacheKey, items, referenceCacheTTL)
	utils.Success(ctx, items)
}

func (cc *CompanyController) CreateCompany(ctx *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(ctx)
		return
	}
	item := models.Company{Name: utils.SanitizeText(req.Name)}
	if err := validation.Validate(item.Name, validation.Required, validation.Length(1, 128)); err != nil {
		respondValidation(ctx, validation.Errors{"name": err})
		return
	}
	if err := cc.db.WithContext(ctx.Request.Context()).Create(&item).Error; err != nil {
		respondDBError(ctx, err, "company not found")
		return
	}
	invalidateReference(ctx)
	utils.Success(ctx, item)
}

// DeleteCompany removes the company. Its personas remain, without a company.
func (cc *CompanyController) DeleteCompany(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	res := cc.db.WithContext(ctx.Request.Context()).Delete(&models.Company{}, id)
	if res.Error != nil {
		respondDBError(ctx, res.Error, "company not found")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, 40401, "company not found")
		return
	}
	invalidateReference(ctx)
	utils.Success(ctx, gin.H{"id": id})
}

package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/audiencehub/models"
	"github.com/cppla/audiencehub/utils"
)

// PersonaController manages audience personas and their platform and interest links.
type PersonaController struct {
	db *gorm.DB
}

// NewPersonaController creates a new PersonaController instance.
func NewPersonaController(db *gorm.DB) *PersonaController {
	return &PersonaController{db: db}
}

type personaRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	AgeRange    string `json:"age_range"`
	Active      *bool  `json:"active"`
	CompanyID   *uint  `json:"company_id"`
	PlatformIDs []uint `json:"platform_ids"`
	InterestIDs []uint `json:"interest_ids"`
}

func (r personaRequest) apply(p *models.Persona) {
	p.Name = utils.SanitizeText(r.Name)
	p.Description = utils.Sanitize(r.Description)
	p.AgeRange = strings.TrimSpace(r.AgeRange)
	if r.Active != nil {
		p.Active = *r.Active
	}
	p.CompanyID = r.CompanyID
}

// ListPersonas returns paginated personas with their links.
func (pc *PersonaController) ListPersonas(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := pc.db.WithContext(ctx.Request.Context()).Model(&models.Persona{})
	if v := strings.TrimSpace(ctx.Query("active")); v != "" {
		query = query.Where("active = ?", v == "true" || v == "1")
	}
	if v := strings.TrimSpace(ctx.Query("company_id")); v != "" {
		query = query.Where("company_id = ?", v)
	}
	if v := strings.TrimSpace(ctx.Query("search")); v != "" {
		query = query.Where("name LIKE ?", "%"+v+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondDBError(ctx, err, "")
		return
	}

	var items []models.Persona
	if err := query.Preload("Company").Preload("Platforms").Preload("Interests").
		Order("name ASC").Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&items).Error; err != nil {
		respondDBError(ctx, err, "")
		return
	}
	utils.Success(ctx, paginated(items, page, pageSize, total))
}

// GetPersona returns a single persona.
func (pc *PersonaController) GetPersona(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	pc.respondWithPersona(ctx, id)
}

// CreatePersona stores a persona and its links in one transaction. New
// personas are active unless the request says otherwise.
func (pc *PersonaController) CreatePersona(ctx *gin.Context) {
	var req personaRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(ctx)
		return
	}

	p := models.Persona{Active: true}
	req.apply(&p)
	if err := p.Validate(); err != nil {
		respondValidation(ctx, err)
		return
	}

	err := pc.db.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&p).Error; err != nil {
			return models.ClassifyDBError(err)
		}
		return models.SetPersonaLinks(tx, p.ID, req.PlatformIDs, req.InterestIDs)
	})
	if err != nil {
		respondDBError(ctx, err, "persona not found")
		return
	}
	pc.respondWithPersona(ctx, p.ID)
}

// UpdatePersona replaces the editable fields. Omitted id lists keep the
// current links.
func (pc *PersonaController) UpdatePersona(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req personaRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(ctx)
		return
	}

	err := pc.db.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var p models.Persona
		if err := tx.First(&p, id).Error; err != nil {
			return err
		}
		req.apply(&p)
		if err := p.Validate(); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations, "created_at").Save(&p).Error; err != nil {
			return models.ClassifyDBError(err)
		}
		return models.SetPersonaLinks(tx, p.ID, req.PlatformIDs, req.InterestIDs)
	})
	if err != nil {
		if isValidationError(err) {
			respondValidation(ctx, err)
			return
		}
		respondDBError(ctx, err, "persona not found")
		return
	}
	pc.respondWithPersona(ctx, id)
}

// DeletePersona removes the persona. Its platform, interest and content links
// are removed with it; the linked rows themselves stay.
func (pc *PersonaController) DeletePersona(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	res := pc.db.WithContext(ctx.Request.Context()).Delete(&models.Persona{}, id)
	if res.Error != nil {
		respondDBError(ctx, res.Error, "persona not found")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, 40401, "persona not found")
		return
	}
	utils.Success(ctx, gin.H{"id": id})
}

func (pc *PersonaController) respondWithPersona(ctx *gin.Context, id uint) {
	var p models.Persona
	if err := pc.db.WithContext(ctx.Request.Context()).
		Preload("Company").Preload("Platforms").Preload("Interests").
		First(&p, id).Error; err != nil {
		respondDBError(ctx, err, "persona not found")
		return
	}
	utils.Success(ctx, p)
}

package controllers

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/audiencehub/auth"
	"github.com/cppla/audiencehub/middleware"
	"github.com/cppla/audiencehub/models"
	"github.com/cppla/audiencehub/utils"
)

const (
	platformsCacheKey = "ref:platforms"
	interestsCacheKey = "ref:interests"
	referenceCacheTTL = time.Hour
)

// ReferenceController serves the closed platform and interest sets and the
// navigation guard for client-side pages.
type ReferenceController struct {
	db    *gorm.DB
	pages map[string]auth.Requirement
}

// NewReferenceController creates a ReferenceController. pages maps client
// route prefixes to their requirement.
func NewReferenceController(db *gorm.DB, pages map[string]auth.Requirement) *ReferenceController {
	return &ReferenceController{db: db, pages: pages}
}

// ListPlatforms returns every platform ordered by name.
func (rc *ReferenceController) ListPlatforms(ctx *gin.Context) {
	var items []models.Platform
	if utils.CacheGetJSON(ctx.Request.Context(), platformsCacheKey, &items) {
		utils.Success(ctx, items)
		return
	}
	if err := rc.db.WithContext(ctx.Request.Context()).Order("name ASC").Find(&items).Error; err != nil {
		respondDBError(ctx, err, "")
		return
	}
	utils.CacheSetJSON(ctx.Request.Context(), platformsCacheKey, items, referenceCacheTTL)
	utils.Success(ctx, items)
}

// ListInterests returns every interest ordered by name.
func (rc *ReferenceController) ListInterests(ctx *gin.Context) {
	var items []models.Interest
	if utils.CacheGetJSON(ctx.Request.Context(), interestsCacheKey, &items) {
		utils.Success(ctx, items)
		return
	}
	if err := rc.db.WithContext(ctx.Request.Context()).Order("name ASC").Find(&items).Error; err != nil {
		respondDBError(ctx, err, "")
		return
	}
	utils.CacheSetJSON(ctx.Request.Context(), interestsCacheKey, items, referenceCacheTTL)
	utils.Success(ctx, items)
}

// Navigate evaluates the guard for the client route in ?path= against the
// caller's session. It always answers 200; the decision is in the body.
func (rc *ReferenceController) Navigate(ctx *gin.Context) {
	path := strings.TrimSpace(ctx.Query("path"))
	if path == "" || !strings.HasPrefix(path, "/") {
		utils.Error(ctx, http.StatusBadRequest, 40011, "path must start with /")
		return
	}
	req := rc.requirementFor(path)

	var decision auth.Decision
	if s := middleware.CurrentSession(ctx); s != nil {
		decision = s.Decide(req)
	} else {
		decision = auth.Decide(nil, req)
	}
	utils.Success(ctx, decision)
}

// requirementFor picks the longest matching page prefix. Unknown pages need a
// signed-in user of any role.
func (rc *ReferenceController) requirementFor(path string) auth.Requirement {
	if req, ok := rc.pages[path]; ok {
		return req
	}
	prefixes := make([]string, 0, len(rc.pages))
	for p := range rc.pages {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })
	for _, p := range prefixes {
		if p != "/" && strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return rc.pages[p]
		}
	}
	return auth.Requirement{}
}

// invalidateReference drops cached reference sets after a write.
func invalidateReference(ctx *gin.Context) {
	utils.InvalidateByPrefix(ctx.Request.Context(), "ref:")
}

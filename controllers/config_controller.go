package controllers

import (
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/cppla/audiencehub/auth"
	"github.com/cppla/audiencehub/models"
	"github.com/cppla/audiencehub/utils"
)

// ConfigController serves the configuration the dashboard UI needs before sign-in.
type ConfigController struct {
	oauth OAuthSettings
	pages map[string]auth.Requirement
}

func NewConfigController(oauth OAuthSettings, pages map[string]auth.Requirement) *ConfigController {
	return &ConfigController{oauth: oauth, pages: pages}
}

type pageRule struct {
	Path     string      `json:"path"`
	Role     models.Role `json:"role,omitempty"`
	AuthOnly bool        `json:"auth_only,omitempty"`
}

// GetConfig returns the enabled sign-in providers, the landing pages and the
// page table the guard evaluates.
func (c *ConfigController) GetConfig(ctx *gin.Context) {
	providers := []string{}
	if c.oauth.GitHubClientID != "" && c.oauth.GitHubClientSecret != "" {
		providers = append(providers, "github")
	}
	if c.oauth.GoogleClientID != "" && c.oauth.GoogleClientSecret != "" {
		providers = append(providers, "google")
	}

	pages := make([]pageRule, 0, len(c.pages))
	for path, req := range c.pages {
		pages = append(pages, pageRule{Path: path, Role: req.Role, AuthOnly: req.AuthOnly})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Path < pages[j].Path })

	utils.Success(ctx, gin.H{
		"oauth_providers": providers,
		"login_path":      auth.LoginPath,
		"landing": gin.H{
			string(models.RoleAdmin):  auth.DefaultLanding(models.RoleAdmin),
			string(models.RoleEditor): auth.DefaultLanding(models.RoleEditor),
			string(models.RoleViewer): auth.DefaultLanding(models.RoleViewer),
		},
		"pages": pages,
	})
}

package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/audiencehub/auth"
	"github.com/cppla/audiencehub/config"
	"github.com/cppla/audiencehub/controllers"
	"github.com/cppla/audiencehub/middleware"
	"github.com/cppla/audiencehub/models"
	"github.com/cppla/audiencehub/utils"
)

// PageRequirements is the client route table evaluated by /api/v1/navigate.
// Nested pages inherit the requirement of their longest listed prefix.
var PageRequirements = map[string]auth.Requirement{
	auth.LoginPath:      {AuthOnly: true},
	auth.ContentLanding: {Role: models.RoleViewer},
	"/content/new":      {Role: models.RoleEditor},
	"/personas":         {Role: models.RoleViewer},
	"/personas/new":     {Role: models.RoleEditor},
	"/insights":         {Role: models.RoleViewer},
	"/profile":          {},
	auth.AdminLanding:   {Role: models.RoleAdmin},
	"/admin/users":      {Role: models.RoleAdmin},
	"/admin/companies":  {Role: models.RoleAdmin},
}

// SetupRouter wires routes, middlewares, and controllers. throttle may be nil;
// a nil limiter is replaced by an unswept one built from cfg.
func SetupRouter(db *gorm.DB, cfg config.AppConfig, authenticator *auth.Authenticator, throttle *utils.LoginThrottle, limiter *middleware.RateLimiter) *gin.Engine {
	if limiter == nil {
		limiter = middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	}
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log goes to its own rolling file; without a path it shares the app logger.
	gl := utils.Logger
	if cfg.GinPath != "" {
		if l, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress); err == nil {
			gl = l
		} else {
			utils.Sugar.Warnw("gin logger unavailable, using app logger", "err", err)
		}
	}
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, false))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Use(middleware.Session(middleware.SessionConfig{
		Auth:       authenticator,
		CookieName: cfg.CookieName,
		Secure:     cfg.IsProduction(),
		MaxAge:     authenticator.Tokens.TTL(),
	}))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	oauth := controllers.OAuthSettings{
		GitHubClientID:     cfg.GitHubClientID,
		GitHubClientSecret: cfg.GitHubClientSecret,
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		RedirectBase:       cfg.OAuthRedirectBase,
	}
	authController := controllers.NewAuthController(db, authenticator, oauth).WithLoginThrottle(throttle)
	configController := controllers.NewConfigController(oauth, PageRequirements)
	statsController := controllers.NewStatsController(db)
	contentController := controllers.NewContentController(db)
	personaController := controllers.NewPersonaController(db)
	insightController := controllers.NewInsightController(db)
	referenceController := controllers.NewReferenceController(db, PageRequirements)
	userController := controllers.NewUserController(db)
	companyController := controllers.NewCompanyController(db)

	viewer := middleware.RequireRole(models.RoleViewer)
	editor := middleware.RequireRole(models.RoleEditor)
	admin := middleware.RequireRole(models.RoleAdmin)

	api := r.Group("/api/v1")
	api.GET("/navigate", referenceController.Navigate)
	api.GET("/config", configController.GetConfig)
	api.GET("/stats", viewer, statsController.GetStats)

	authGroup := api.Group("/auth")
	authGroup.Use(limiter.Handler())
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", authController.Logout)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.GET("/me", viewer, authController.Me)
	authGroup.PATCH("/profile", viewer, authController.UpdateProfile)
	authGroup.POST("/password", viewer, authController.ChangePassword)

	content := api.Group("/content")
	content.GET("", viewer, contentController.ListContent)
	content.GET("/:id", viewer, contentController.GetContent)
	content.POST("", editor, contentController.CreateContent)
	content.PUT("/:id", editor, contentController.UpdateContent)
	content.DELETE("/:id", editor, contentController.DeleteContent)
	content.POST("/:id/engagement", editor, contentController.RecordEngagement)
	content.GET("/:id/stats", viewer, statsController.GetContentStats)

	personas := api.Group("/personas")
	personas.GET("", viewer, personaController.ListPersonas)
	personas.GET("/:id", viewer, personaController.GetPersona)
	personas.POST("", editor, personaController.CreatePersona)
	personas.PUT("/:id", editor, personaController.UpdatePersona)
	personas.DELETE("/:id", editor, personaController.DeletePersona)

	insights := api.Group("/insights")
	insights.GET("", viewer, insightController.ListInsights)
	insights.GET("/:id", viewer, insightController.GetInsight)
	insights.POST("", editor, insightController.CreateInsight)
	insights.PUT("/:id", editor, insightController.UpdateInsight)
	insights.DELETE("/:id", editor, insightController.DeleteInsight)

	api.GET("/platforms", viewer, referenceController.ListPlatforms)
	api.GET("/interests", viewer, referenceController.ListInterests)

	users := api.Group("/users", admin)
	users.GET("", userController.ListUsers)
	users.POST("", userController.CreateUser)
	users.PUT("/:id", userController.UpdateUser)
	users.DELETE("/:id", userController.DeactivateUser)

	companies := api.Group("/companies", admin)
	companies.GET("", companyController.ListCompanies)
	companies.POST("", companyController.CreateCompany)
	companies.DELETE("/:id", companyController.DeleteCompany)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}

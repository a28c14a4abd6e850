package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/audiencehub/auth"
	"github.com/cppla/audiencehub/models"
	"github.com/cppla/audiencehub/utils"
)

// Guard enforces req on every request. Denials are redirects: page requests get
// a 302, API requests a 401 (login needed) or 403 (wrong role) whose data
// carries the redirect target.
func Guard(req auth.Requirement) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var d auth.Decision
		if s := CurrentSession(ctx); s != nil {
			d = s.Decide(req)
		} else {
			d = auth.Decide(nil, req)
		}
		if d.Kind == auth.Allow {
			ctx.Next()
			return
		}

		if !wantsJSON(ctx) {
			ctx.Redirect(http.StatusFound, d.Location)
			ctx.Abort()
			return
		}
		status, code, msg := http.StatusForbidden, 40301, "insufficient role"
		if d.Kind == auth.RedirectLogin {
			status, code, msg = http.StatusUnauthorized, 40101, "authentication required"
		}
		utils.Abort(ctx, status, code, msg, gin.H{"redirect": d.Location})
	}
}

// RequireRole is Guard for a minimum role.
func RequireRole(role models.Role) gin.HandlerFunc {
	return Guard(auth.Requirement{Role: role})
}

// RequireAuth admits any signed-in user.
func RequireAuth() gin.HandlerFunc {
	return Guard(auth.Requirement{})
}

func wantsJSON(ctx *gin.Context) bool {
	if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(ctx.GetHeader("Accept"), "application/json")
}

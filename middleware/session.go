package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/audiencehub/auth"
	"github.com/cppla/audiencehub/session"
	"github.com/cppla/audiencehub/utils"
)

// ContextSessionKey stores the request's *session.Context inside Gin context.
const ContextSessionKey = "session"

// CookieStore keeps the session token in a single cookie. A bearer token in the
// Authorization header is accepted as well for API clients.
type CookieStore struct {
	ctx     *gin.Context
	name    string
	secure  bool
	maxAge  int
	removed bool
}

// NewCookieStore returns a credential store bound to one request.
func NewCookieStore(ctx *gin.Context, name string, secure bool, maxAge time.Duration) *CookieStore {
	return &CookieStore{ctx: ctx, name: name, secure: secure, maxAge: int(maxAge / time.Second)}
}

func (s *CookieStore) Token() (string, bool) {
	if s.removed {
		return "", false
	}
	if v, err := s.ctx.Cookie(s.name); err == nil && v != "" {
		return v, true
	}
	if token := bearerToken(s.ctx); token != "" {
		return token, true
	}
	return "", false
}

func (s *CookieStore) Store(token string) error {
	s.removed = false
	s.ctx.SetSameSite(http.SameSiteStrictMode)
	s.ctx.SetCookie(s.name, token, s.maxAge, "/", "", s.secure, true)
	return nil
}

func (s *CookieStore) Remove() error {
	s.removed = true
	s.ctx.SetSameSite(http.SameSiteStrictMode)
	s.ctx.SetCookie(s.name, "", -1, "/", "", s.secure, true)
	return nil
}

func bearerToken(ctx *gin.Context) string {
	parts := strings.SplitN(ctx.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// SessionConfig configures the Session middleware.
type SessionConfig struct {
	Auth       *auth.Authenticator
	CookieName string
	Secure     bool
	MaxAge     time.Duration
}

// Session loads the caller's session on every request. Invalid or revoked
// credentials leave an anonymous session and an expired cookie; they never fail
// the request by themselves.
func Session(cfg SessionConfig) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		store := NewCookieStore(ctx, cfg.CookieName, cfg.Secure, cfg.MaxAge)
		s := session.New(store, cfg.Auth, cfg.Auth)
		s.Load(ctx.Request.Context())

		ctx.Set(ContextSessionKey, s)
		if id, ok := s.Identity(); ok {
			ctx.Set(utils.ContextUserIDKey, id.UserID)
		}
		ctx.Next()
	}
}

// CurrentSession returns the session set by Session, or nil.
func CurrentSession(ctx *gin.Context) *session.Context {
	if v, ok := ctx.Get(ContextSessionKey); ok {
		if s, ok := v.(*session.Context); ok {
			return s
		}
	}
	return nil
}

// CurrentIdentity returns the verified identity of the caller.
func CurrentIdentity(ctx *gin.Context) (*auth.Identity, bool) {
	if s := CurrentSession(ctx); s != nil {
		return s.Identity()
	}
	return nil, false
}

package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cppla/audiencehub/auth"
	"github.com/cppla/audiencehub/middleware"
	"github.com/cppla/audiencehub/mocks"
	"github.com/cppla/audiencehub/models"
	"github.com/cppla/audiencehub/utils"
)

const cookieName = "auth_token"

var testUsers = map[uint]*models.User{
	1: {ID: 1, Name: "Admin", Role: models.RoleAdmin, Status: models.StatusActive},
	2: {ID: 2, Name: "Viewer", Role: models.RoleViewer, Status: models.StatusActive},
	3: {ID: 3, Name: "Left", Role: models.RoleEditor, Status: models.StatusInactive},
}

type harness struct {
	router *gin.Engine
	auth   *auth.Authenticator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := new(mocks.UserStore)
	for id, u := range testUsers {
		users.On("FindByID", mock.Anything, id).Return(u, nil)
	}
	a := auth.NewAuthenticator(users, auth.NewTokenService("middleware-test-secret", time.Hour), utils.NewTokenBlacklist(nil))

	r := gin.New()
	r.Use(middleware.Session(middleware.SessionConfig{Auth: a, CookieName: cookieName, MaxAge: time.Hour}))
	ok := func(ctx *gin.Context) {
		id, _ := middleware.CurrentIdentity(ctx)
		var uid uint
		if id != nil {
			uid = id.UserID
		}
		utils.Success(ctx, gin.H{"user_id": uid})
	}
	r.GET("/api/v1/admin", middleware.RequireRole(models.RoleAdmin), ok)
	r.GET("/api/v1/viewer", middleware.RequireRole(models.RoleViewer), ok)
	r.GET("/api/v1/any", middleware.RequireAuth(), ok)
	r.GET("/login", middleware.Guard(auth.Requirement{AuthOnly: true}), ok)
	r.GET("/admin", middleware.RequireRole(models.RoleAdmin), ok)
	return &harness{router: r, auth: a}
}

func (h *harness) token(t *testing.T, id uint) string {
	t.Helper()
	token, _, err := h.auth.Tokens.Issue(testUsers[id])
	require.NoError(t, err)
	return token
}

func (h *harness) do(method, path string, setup func(*http.Request)) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if setup != nil {
		setup(req)
	}
	h.router.ServeHTTP(w, req)
	return w
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func cookie(token string) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: cookieName, Value: token}) }
}

type body struct {
	Code int `json:"code"`
	Data struct {
		Redirect string `json:"redirect"`
		UserID   uint   `json:"user_id"`
	} `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) body {
	t.Helper()
	var b body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	return b
}

func TestGuardAPIResponses(t *testing.T) {
	h := newHarness(t)
	admin, viewer := h.token(t, 1), h.token(t, 2)

	tests := []struct {
		name     string
		path     string
		setup    func(*http.Request)
		status   int
		code     int
		redirect string
	}{
		{"anonymous", "/api/v1/viewer", nil, http.StatusUnauthorized, 40101, "/login"},
		{"viewer on admin route", "/api/v1/admin", bearer(viewer), http.StatusForbidden, 40301, "/content"},
		{"viewer on viewer route", "/api/v1/viewer", bearer(viewer), http.StatusOK, 0, ""},
		{"admin on viewer route", "/api/v1/viewer", bearer(admin), http.StatusOK, 0, ""},
		{"admin via cookie", "/api/v1/admin", cookie(admin), http.StatusOK, 0, ""},
		{"any signed-in user", "/api/v1/any", bearer(viewer), http.StatusOK, 0, ""},
		{"forged token", "/api/v1/any", bearer("not-a-token"), http.StatusUnauthorized, 40101, "/login"},
		{"inactive account", "/api/v1/any", bearer(h.token(t, 3)), http.StatusUnauthorized, 40101, "/login"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(http.MethodGet, tt.path, tt.setup)
			assert.Equal(t, tt.status, w.Code)
			b := decode(t, w)
			assert.Equal(t, tt.code, b.Code)
			assert.Equal(t, tt.redirect, b.Data.Redirect)
		})
	}
}

func TestGuardPageRedirects(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/admin", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = h.do(http.MethodGet, "/admin", cookie(h.token(t, 2)))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/content", w.Header().Get("Location"))

	w = h.do(http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodGet, "/login", cookie(h.token(t, 1)))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin", w.Header().Get("Location"))

	w = h.do(http.MethodGet, "/admin", func(r *http.Request) { r.Header.Set("Accept", "application/json") })
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionSetsUserID(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/api/v1/any", bearer(h.token(t, 2)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint(2), decode(t, w).Data.UserID)
}

func TestRejectedCookieIsExpired(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/api/v1/any", cookie("garbage"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	setCookie := w.Header().Get("Set-Cookie")
	assert.True(t, strings.HasPrefix(setCookie, cookieName+"=;"), setCookie)
	assert.Contains(t, setCookie, "Max-Age=0")
	assert.Contains(t, setCookie, "HttpOnly")
	assert.Contains(t, setCookie, "SameSite=Strict")
}

func TestRevokedTokenIsAnonymous(t *testing.T) {
	h := newHarness(t)
	token, id, err := h.auth.Tokens.Issue(testUsers[1])
	require.NoError(t, err)

	w := h.do(http.MethodGet, "/api/v1/admin", bearer(token))
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, h.auth.Logout(httptest.NewRequest(http.MethodGet, "/", nil).Context(), id))
	w = h.do(http.MethodGet, "/api/v1/admin", bearer(token))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RateLimitMiddleware(2))
	r.GET("/", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Contains(t, codes, http.StatusTooManyRequests)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "buckets are per client")
}

func TestRateLimiterSweepDropsIdleBuckets(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := middleware.NewRateLimiter(60).WithClock(func() time.Time { return now })
	r := gin.New()
	r.Use(l.Handler())
	r.GET("/", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	hit := func(addr string) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}
	hit("10.0.0.1:1")
	hit("10.0.0.2:1")
	require.Equal(t, 2, l.Len())

	// Requests alone never evict.
	now = now.Add(10 * time.Minute)
	hit("10.0.0.2:1")
	assert.Equal(t, 2, l.Len())

	l.Sweep()
	assert.Equal(t, 1, l.Len(), "only the bucket touched within the idle window survives")

	now = now.Add(10 * time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	utils.StartSweeper(ctx, 5*time.Millisecond, l)
	assert.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 5*time.Millisecond)
}

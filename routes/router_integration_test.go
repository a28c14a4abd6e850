//go:build integration

package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/audiencehub/auth"
	"github.com/cppla/audiencehub/config"
	"github.com/cppla/audiencehub/internal/testdb"
	"github.com/cppla/audiencehub/routes"
	"github.com/cppla/audiencehub/seed"
	"github.com/cppla/audiencehub/stores"
	"github.com/cppla/audiencehub/utils"
)

type api struct {
	t *testing.T
	r *gin.Engine
}

type reply struct {
	Status int
	Code   int             `json:"code"`
	Data   json.RawMessage `json:"data"`
}

func (a api) call(method, path, token string, body any) reply {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)

	var rep reply
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &rep), w.Body.String())
	rep.Status = w.Code
	return rep
}

func (a api) login(email, password string) string {
	a.t.Helper()
	rep := a.call(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, rep.Status)
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(rep.Data, &out))
	return out.Token
}

func decodeInto(t *testing.T, rep reply, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rep.Data, v))
}

func TestDashboardFlow(t *testing.T) {
	db, _ := testdb.Postgres(t)
	ctx := context.Background()

	cfg := config.AppConfig{
		GinMode:            "test",
		CookieName:         "auth_token",
		RateLimitPerMinute: 1000,
		AllowedOrigins:     []string{"*"},
		SeedAdminEmail:     "admin@audiencehub.local",
		SeedAdminPassword:  "admin-password",
		SeedAdminName:      "Administrator",
	}
	_, err := seed.RunOnConnection(ctx, db, 99, seed.DefaultBaseline(cfg))
	require.NoError(t, err)

	authenticator := auth.NewAuthenticator(stores.NewUserStore(db),
		auth.NewTokenService("integration-secret", time.Hour), utils.NewTokenBlacklist(nil))
	a := api{t: t, r: routes.SetupRouter(db, cfg, authenticator, utils.NewLoginThrottle(nil, 5, time.Minute), nil)}

	adminToken := a.login("admin@audiencehub.local", "admin-password")

	// Administrators provision accounts.
	for _, u := range []map[string]string{
		{"name": "Ed", "email": "ed@example.com", "password": "editor-pass", "role": "editor"},
		{"name": "Vi", "email": "vi@example.com", "password": "viewer-pass"},
	} {
		rep := a.call(http.MethodPost, "/users", adminToken, u)
		require.Equal(t, http.StatusOK, rep.Status)
	}
	rep := a.call(http.MethodPost, "/users", adminToken, map[string]string{"name": "Ed", "email": "ed@example.com", "password": "another-pass"})
	assert.Equal(t, http.StatusConflict, rep.Status)

	editorToken := a.login("ed@example.com", "editor-pass")
	viewerToken := a.login("vi@example.com", "viewer-pass")

	var platforms []struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	}
	decodeInto(t, a.call(http.MethodGet, "/platforms", viewerToken, nil), &platforms)
	require.Len(t, platforms, 6)

	var personas struct {
		Items []struct {
			ID   uint   `json:"id"`
			Name string `json:"name"`
		} `json:"items"`
	}
	decodeInto(t, a.call(http.MethodGet, "/personas", viewerToken, nil), &personas)
	require.Len(t, personas.Items, 1)
	personaID := personas.Items[0].ID

	// Viewers cannot write.
	newContent := map[string]any{
		"title":        "Spring launch",
		"type":         "article",
		"status":       "draft",
		"persona_ids":  []uint{personaID},
		"platform_ids": []uint{platforms[0].ID},
	}
	rep = a.call(http.MethodPost, "/content", viewerToken, newContent)
	assert.Equal(t, http.StatusForbidden, rep.Status)

	rep = a.call(http.MethodPost, "/content", editorToken, newContent)
	require.Equal(t, http.StatusOK, rep.Status)
	var created struct {
		ID uint `json:"id"`
	}
	decodeInto(t, rep, &created)

	// Links to missing rows are refused.
	bad := map[string]any{"title": "Ghost", "type": "article", "persona_ids": []uint{999999}}
	rep = a.call(http.MethodPost, "/content", editorToken, bad)
	assert.Equal(t, http.StatusUnprocessableEntity, rep.Status)
	assert.Equal(t, 42202, rep.Code)

	for i := 0; i < 3; i++ {
		rep = a.call(http.MethodPost, fmt.Sprintf("/content/%d/engagement", created.ID), editorToken,
			map[string]any{"field": "views", "delta": 5})
		require.Equal(t, http.StatusOK, rep.Status)
	}
	rep = a.call(http.MethodPost, fmt.Sprintf("/content/%d/engagement", created.ID), editorToken,
		map[string]any{"field": "views", "delta": -1})
	assert.Equal(t, http.StatusUnprocessableEntity, rep.Status)

	var stats struct {
		Engagement struct {
			Views int64 `json:"views"`
		} `json:"engagement"`
		PersonaCount  int64 `json:"persona_count"`
		PlatformCount int64 `json:"platform_count"`
	}
	decodeInto(t, a.call(http.MethodGet, fmt.Sprintf("/content/%d/stats", created.ID), viewerToken, nil), &stats)
	assert.Equal(t, int64(15), stats.Engagement.Views)
	assert.Equal(t, int64(1), stats.PersonaCount)
	assert.Equal(t, int64(1), stats.PlatformCount)

	// Deleting the persona removes its targeting links, not the content.
	rep = a.call(http.MethodDelete, fmt.Sprintf("/personas/%d", personaID), editorToken, nil)
	require.Equal(t, http.StatusOK, rep.Status)
	decodeInto(t, a.call(http.MethodGet, fmt.Sprintf("/content/%d/stats", created.ID), viewerToken, nil), &stats)
	assert.Equal(t, int64(0), stats.PersonaCount)
	assert.Equal(t, int64(1), stats.PlatformCount)

	var totals struct {
		ContentCount int64 `json:"content_count"`
		PersonaCount int64 `json:"persona_count"`
	}
	decodeInto(t, a.call(http.MethodGet, "/stats", viewerToken, nil), &totals)
	assert.Equal(t, int64(1), totals.ContentCount)
	assert.Equal(t, int64(0), totals.PersonaCount)

	// Deactivated accounts lose their sessions.
	var users struct {
		Items []struct {
			ID    uint   `json:"id"`
			Email string `json:"email"`
		} `json:"items"`
	}
	decodeInto(t, a.call(http.MethodGet, "/users?search=ed@", adminToken, nil), &users)
	require.Len(t, users.Items, 1)
	rep = a.call(http.MethodDelete, fmt.Sprintf("/users/%d", users.Items[0].ID), adminToken, nil)
	require.Equal(t, http.StatusOK, rep.Status)
	rep = a.call(http.MethodGet, "/auth/me", editorToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rep.Status)

	// Administrators cannot deactivate themselves.
	var me struct {
		ID uint `json:"id"`
	}
	decodeInto(t, a.call(http.MethodGet, "/auth/me", adminToken, nil), &me)
	rep = a.call(http.MethodDelete, fmt.Sprintf("/users/%d", me.ID), adminToken, nil)
	assert.Equal(t, 42204, rep.Code)

	// Logging out revokes the token.
	require.Equal(t, http.StatusOK, a.call(http.MethodPost, "/auth/logout", viewerToken, nil).Status)
	assert.Equal(t, http.StatusUnauthorized, a.call(http.MethodGet, "/auth/me", viewerToken, nil).Status)
}

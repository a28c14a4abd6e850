package auth_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/audiencehub/auth"
	"github.com/cppla/audiencehub/models"
)

var allRoles = []models.Role{models.RoleViewer, models.RoleEditor, models.RoleAdmin}

func identity(role models.Role) *auth.Identity {
	return &auth.Identity{UserID: 1, Role: role}
}

func TestDecideAnonymous(t *testing.T) {
	for _, req := range []models.Role{"", models.RoleViewer, models.RoleEditor, models.RoleAdmin} {
		t.Run(fmt.Sprintf("requires %q", req), func(t *testing.T) {
			d := auth.Decide(nil, auth.Requirement{Role: req})
			assert.Equal(t, auth.Decision{Kind: auth.RedirectLogin, Location: auth.LoginPath}, d)

			d = auth.Decide(nil, auth.Requirement{Role: req, AuthOnly: true})
			assert.Equal(t, auth.Decision{Kind: auth.Allow}, d)
		})
	}
}

func TestDecideAuthOnlyRedirectsSignedInUsers(t *testing.T) {
	for _, role := range allRoles {
		d := auth.Decide(identity(role), auth.Requirement{AuthOnly: true})
		assert.Equal(t, auth.RedirectDefault, d.Kind, role)
		assert.Equal(t, auth.DefaultLanding(role), d.Location, role)
	}
}

// Every pair of roles: a higher or equal role is admitted, a lower one is
// sent to its landing page.
func TestDecideRoleHierarchy(t *testing.T) {
	for _, have := range allRoles {
		for _, want := range allRoles {
			t.Run(fmt.Sprintf("%s needs %s", have, want), func(t *testing.T) {
				d := auth.Decide(identity(have), auth.Requirement{Role: want})
				if have.Rank() >= want.Rank() {
					assert.Equal(t, auth.Decision{Kind: auth.Allow}, d)
					return
				}
				assert.Equal(t, auth.Decision{Kind: auth.RedirectDefault, Location: auth.DefaultLanding(have)}, d)
			})
		}
		d := auth.Decide(identity(have), auth.Requirement{})
		assert.Equal(t, auth.Allow, d.Kind, "no role requirement admits %s", have)
	}
}

func TestDecideTreatsUnknownRoleAsAnonymous(t *testing.T) {
	d := auth.Decide(identity("owner"), auth.Requirement{Role: models.RoleViewer})
	assert.Equal(t, auth.RedirectLogin, d.Kind)

	d = auth.Decide(identity(""), auth.Requirement{AuthOnly: true})
	assert.Equal(t, auth.Allow, d.Kind)
}

func TestDecideUnknownRequirementAdmitsNobody(t *testing.T) {
	for _, have := range allRoles {
		d := auth.Decide(identity(have), auth.Requirement{Role: "superadmin"})
		assert.Equal(t, auth.Decision{Kind: auth.RedirectDefault, Location: auth.DefaultLanding(have)}, d, string(have))
	}
	assert.False(t, models.RoleAdmin.AtLeast("superadmin"))
	assert.True(t, models.RoleViewer.AtLeast(""))
}

func TestDecideIsDeterministic(t *testing.T) {
	id := identity(models.RoleEditor)
	req := auth.Requirement{Role: models.RoleAdmin}
	first := auth.Decide(id, req)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, auth.Decide(id, req))
	}
	assert.Equal(t, models.RoleEditor, id.Role)
}

func TestDefaultLanding(t *testing.T) {
	assert.Equal(t, "/admin", auth.DefaultLanding(models.RoleAdmin))
	assert.Equal(t, "/content", auth.DefaultLanding(models.RoleEditor))
	assert.Equal(t, "/content", auth.DefaultLanding(models.RoleViewer))
}

func TestDecisionJSON(t *testing.T) {
	b, err := json.Marshal(auth.Decision{Kind: auth.RedirectDefault, Location: "/admin"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"redirect_default","location":"/admin"}`, string(b))

	b, err = json.Marshal(auth.Decision{Kind: auth.Allow})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"allow"}`, string(b))
}

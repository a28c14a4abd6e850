package auth

import "github.com/cppla/audiencehub/models"

const (
	// LoginPath is where anonymous users are sent.
	LoginPath = "/login"
	// AdminLanding is the default page for administrators.
	AdminLanding = "/admin"
	// ContentLanding is the default page for everyone else.
	ContentLanding = "/content"
)

// Requirement describes who may enter a route.
type Requirement struct {
	// Role is the minimum role. Empty means any authenticated user.
	Role models.Role
	// AuthOnly marks pages such as the login screen that only anonymous users see.
	AuthOnly bool
}

// DecisionKind is the outcome of a guard evaluation.
type DecisionKind int

const (
	Allow DecisionKind = iota
	RedirectLogin
	RedirectDefault
)

func (k DecisionKind) String() string {
	switch k {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectDefault:
		return "redirect_default"
	default:
		return "unknown"
	}
}

// Decision is what to do with a navigation. Location is empty for Allow.
type Decision struct {
	Kind     DecisionKind `json:"kind"`
	Location string       `json:"location,omitempty"`
}

// MarshalText renders the kind by name.
func (k DecisionKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// DefaultLanding returns the landing page for role.
func DefaultLanding(role models.Role) string {
	if role == models.RoleAdmin {
		return AdminLanding
	}
	return ContentLanding
}

// Decide evaluates a requirement against the current identity; nil means anonymous.
// Denied users are redirected, never shown an error.
func Decide(identity *Identity, req Requirement) Decision {
	if identity == nil || !identity.Role.Valid() {
		if req.AuthOnly {
			return Decision{Kind: Allow}
		}
		return Decision{Kind: RedirectLogin, Location: LoginPath}
	}

	landing := Decision{Kind: RedirectDefault, Location: DefaultLanding(identity.Role)}
	if req.AuthOnly {
		return landing
	}
	if !identity.Role.AtLeast(req.Role) {
		return landing
	}
	return Decision{Kind: Allow}
}

// Package session holds the per-client view of who is signed in.
//
// A Context moves through Unloaded, Loading, Authenticated or Anonymous, and
// back to Anonymous through Cleared. Verification and profile fetches run
// without holding the lock; results that arrive after a clear are dropped.
package session

import (
	"context"
	"sync"

	"github.com/cppla/audiencehub/auth"
	"github.com/cppla/audiencehub/models"
	"github.com/cppla/audiencehub/utils"
)

// State is a session lifecycle state.
type State int

const (
	Unloaded State = iota
	Loading
	Authenticated
	Anonymous
	Cleared
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	case Cleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// CredentialStore persists the raw session token on the client side.
type CredentialStore interface {
	Token() (string, bool)
	Store(token string) error
	Remove() error
}

// Verifier turns a token into an identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (auth.Identity, error)
}

// ProfileFetcher loads the account behind a verified identity.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, id auth.Identity) (*models.User, error)
}

// Context is the session state of one client. It is safe for concurrent use.
type Context struct {
	creds    CredentialStore
	verifier Verifier
	profiles ProfileFetcher

	// OnChange, when set, is called after every state transition, outside the lock.
	OnChange func(State)

	mu       sync.RWMutex
	state    State
	identity *auth.Identity
	profile  *models.User
	epoch    uint64
}

// New returns an Unloaded session.
func New(creds CredentialStore, verifier Verifier, profiles ProfileFetcher) *Context {
	return &Context{creds: creds, verifier: verifier, profiles: profiles}
}

// State returns the current state.
func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Identity returns a copy of the verified identity when authenticated.
func (c *Context) Identity() (*auth.Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != Authenticated || c.identity == nil {
		return nil, false
	}
	id := *c.identity
	return &id, true
}

// Profile returns the profile loaded with the identity.
func (c *Context) Profile() (*models.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != Authenticated || c.profile == nil {
		return nil, false
	}
	return c.profile, true
}

// Epoch identifies the current authentication generation. It changes on every
// clear and every new sign-in.
func (c *Context) Epoch() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch
}

// Current reports whether epoch is still the live generation. Callers capture
// Epoch before a request and drop the result when Current turns false.
func (c *Context) Current(epoch uint64) bool {
	return c.Epoch() == epoch
}

// Decide evaluates req against the current identity.
func (c *Context) Decide(req auth.Requirement) auth.Decision {
	id, _ := c.Identity()
	return auth.Decide(id, req)
}

// Load resolves the stored credential. It only acts on an Unloaded session and
// returns the resulting state. A credential that fails verification or whose
// profile cannot be fetched is discarded; there is no retry.
func (c *Context) Load(ctx context.Context) State {
	c.mu.Lock()
	if c.state != Unloaded {
		st := c.state
		c.mu.Unlock()
		return st
	}
	token, ok := c.creds.Token()
	if !ok || token == "" {
		c.state = Anonymous
		c.mu.Unlock()
		c.notify(Anonymous)
		return Anonymous
	}
	c.state = Loading
	epoch := c.epoch
	c.mu.Unlock()
	c.notify(Loading)

	id, err := c.verifier.Verify(ctx, token)
	var profile *models.User
	if err == nil {
		profile, err = c.profiles.FetchProfile(ctx, id)
	}
	if err == nil && profile.Role != id.Role {
		// Role changed since the token was issued.
		err = auth.ErrTokenInvalid
	}

	c.mu.Lock()
	if c.epoch != epoch || c.state != Loading {
		// Cleared or restarted while verifying.
		st := c.state
		c.mu.Unlock()
		return st
	}
	if err != nil {
		utils.Sugar.Debugw("session credential rejected", "err", err)
		c.removeCredentialLocked()
		c.state = Anonymous
		c.mu.Unlock()
		c.notify(Anonymous)
		return Anonymous
	}
	c.identity = &id
	c.profile = profile
	c.state = Authenticated
	c.mu.Unlock()
	c.notify(Authenticated)
	return Authenticated
}

// Begin stores a freshly issued token and loads it, replacing any previous session.
func (c *Context) Begin(ctx context.Context, token string) (State, error) {
	c.mu.Lock()
	if err := c.creds.Store(token); err != nil {
		c.mu.Unlock()
		return c.State(), err
	}
	c.epoch++
	c.identity = nil
	c.profile = nil
	c.state = Unloaded
	c.mu.Unlock()
	return c.Load(ctx), nil
}

// Clear signs the session out. The stored credential is removed and the state
// becomes Anonymous before Clear returns. Clearing an already anonymous session
// is a no-op.
func (c *Context) Clear() {
	c.mu.Lock()
	if c.state == Anonymous && c.identity == nil {
		c.removeCredentialLocked()
		c.mu.Unlock()
		return
	}
	c.epoch++
	c.identity = nil
	c.profile = nil
	c.removeCredentialLocked()
	c.state = Anonymous
	c.mu.Unlock()
	c.notify(Cleared, Anonymous)
}

// Invalidate clears the session when err shows the credential is no longer
// accepted. Other errors leave the session alone. It reports whether it cleared.
func (c *Context) Invalidate(err error) bool {
	if err == nil || !auth.IsUnauthenticated(err) {
		return false
	}
	c.Clear()
	return true
}

func (c *Context) removeCredentialLocked() {
	if err := c.creds.Remove(); err != nil {
		utils.Sugar.Warnw("failed to remove stored credential", "err", err)
	}
}

func (c *Context) notify(states ...State) {
	if c.OnChange == nil {
		return
	}
	for _, s := range states {
		c.OnChange(s)
	}
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cppla/audiencehub/models"
	"github.com/cppla/audiencehub/utils"
)

// UserStore is the user lookup the authenticator depends on.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uint) (*models.User, error)
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
}

// Revoker keeps revoked token ids until they expire.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) bool
}

// Authenticator ties credential checks, token issuance and revocation together.
type Authenticator struct {
	Users   UserStore
	Tokens  *TokenService
	Revoker Revoker
}

// NewAuthenticator wires an Authenticator. revoker may be nil when logout
// revocation is not needed.
func NewAuthenticator(users UserStore, tokens *TokenService, revoker Revoker) *Authenticator {
	return &Authenticator{Users: users, Tokens: tokens, Revoker: revoker}
}

// Login checks email and password and issues a token for an active account.
func (a *Authenticator) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	user, err := a.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			utils.CheckPassword("", password)
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}
	if !utils.CheckPassword(user.PasswordHash, password) || !user.Active() {
		return "", nil, ErrInvalidCredentials
	}

	token, err := a.IssueFor(ctx, user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// IssueFor issues a token for an already authenticated user and records the login.
// Used by password login and by OAuth sign-in.
func (a *Authenticator) IssueFor(ctx context.Context, user *models.User) (string, error) {
	if !user.Active() {
		return "", ErrInvalidCredentials
	}
	token, id, err := a.Tokens.Issue(user)
	if err != nil {
		return "", err
	}

	now := time.Now()
	if err := a.Users.TouchLastLogin(ctx, user.ID, now); err != nil {
		utils.Sugar.Warnw("failed to record last login", "user_id", user.ID, "err", err)
	} else {
		user.LastLogin = &now
	}
	utils.Sugar.Infow("user signed in", "user_id", user.ID, "role", id.Role, "jti", id.TokenID)
	return token, nil
}

// Verify checks the token and the revocation list.
func (a *Authenticator) Verify(ctx context.Context, token string) (Identity, error) {
	id, err := a.Tokens.Verify(token)
	if err != nil {
		return Identity{}, err
	}
	if a.Revoker != nil && a.Revoker.IsRevoked(ctx, id.TokenID) {
		return Identity{}, ErrTokenRevoked
	}
	return id, nil
}

// FetchProfile loads the account behind id. Accounts that were deactivated or
// given another role after the token was issued are rejected.
func (a *Authenticator) FetchProfile(ctx context.Context, id Identity) (*models.User, error) {
	user, err := a.Users.FindByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrInactiveAccount
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if !user.Active() {
		return nil, ErrInactiveAccount
	}
	if user.Role != id.Role {
		return nil, ErrTokenInvalid
	}
	return user, nil
}

// Logout revokes the token until its natural expiry. Revoking twice is harmless.
func (a *Authenticator) Logout(ctx context.Context, id Identity) error {
	if a.Revoker == nil || id.TokenID == "" {
		return nil
	}
	return a.Revoker.Revoke(ctx, id.TokenID, id.ExpiresAt)
}

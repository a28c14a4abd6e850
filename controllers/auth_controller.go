package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/cppla/audiencehub/auth"
	"github.com/cppla/audiencehub/middleware"
	"github.com/cppla/audiencehub/models"
	"github.com/cppla/audiencehub/utils"
)

// OAuthSettings holds provider credentials. Providers without an id are disabled.
type OAuthSettings struct {
	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	RedirectBase       string
}

// AuthController handles sign-in, sign-out and the caller's own profile.
// Accounts are provisioned by administrators; there is no self-registration.
type AuthController struct {
	db       *gorm.DB
	auth     *auth.Authenticator
	oauth    OAuthSettings
	throttle *utils.LoginThrottle
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB, authenticator *auth.Authenticator, oauth OAuthSettings) *AuthController {
	return &AuthController{db: db, auth: authenticator, oauth: oauth}
}

// WithLoginThrottle locks password sign-in after repeated failures.
func (a *AuthController) WithLoginThrottle(t *utils.LoginThrottle) *AuthController {
	a.throttle = t
	return a
}

// Login verifies email and password, issues a token and sets the session cookie.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	reqCtx := ctx.Request.Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))
	ip := ctx.ClientIP()
	if a.throttle.Locked(reqCtx, email, ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42902, "too many failed sign-ins, try again later")
		return
	}

	token, user, err := a.auth.Login(reqCtx, email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			if a.throttle.Fail(reqCtx, email, ip) {
				utils.Sugar.Warnw("sign-in locked", "email", email, "ip", ip)
			}
			utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid email or password")
			return
		}
		utils.Sugar.Errorw("login failed", "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to sign in")
		return
	}
	a.throttle.Reset(reqCtx, email, ip)

	a.beginSession(ctx, token)
	utils.Success(ctx, gin.H{"token": token, "user": user})
}

// Logout revokes the current token and clears the cookie. Calling it without a
// session, or twice, still succeeds.
func (a *AuthController) Logout(ctx *gin.Context) {
	s := middleware.CurrentSession(ctx)
	if s == nil {
		utils.Success(ctx, gin.H{"message": "logged out"})
		return
	}
	if id, ok := s.Identity(); ok {
		if err := a.auth.Logout(ctx.Request.Context(), *id); err != nil {
			utils.Sugar.Warnw("failed to revoke token", "user_id", id.UserID, "err", err)
		}
	}
	s.Clear()
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	s := middleware.CurrentSession(ctx)
	if s != nil {
		if user, ok := s.Profile(); ok {
			utils.Success(ctx, user)
			return
		}
	}
	utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
}

// UpdateProfile allows the authenticated user to update name and department.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var req struct {
		Name       *string `json:"name"`
		Department *string `json:"department"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.WithContext(ctx.Request.Context()).First(&user, userID).Error; err != nil {
		respondDBError(ctx, err, "user not found")
		return
	}
	if req.Name != nil {
		user.Name = utils.SanitizeText(*req.Name)
	}
	if req.Department != nil {
		user.Department = utils.SanitizeText(*req.Department)
	}
	if err := user.Validate(); err != nil {
		respondValidation(ctx, err)
		return
	}

	if err := a.db.WithContext(ctx.Request.Context()).Model(&user).
		Select("name", "department", "updated_at").Updates(&user).Error; err != nil {
		respondDBError(ctx, err, "user not found")
		return
	}
	utils.Success(ctx, user)
}

// ChangePassword replaces the caller's password after checking the current one.
func (a *AuthController) ChangePassword(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var req struct {
		Current string `json:"current_password" binding:"required"`
		New     string `json:"new_password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(ctx)
		return
	}
	if err := utils.ValidatePassword(req.New); err != nil {
		respondValidation(ctx, validation.Errors{"new_password": err})
		return
	}

	var user models.User
	if err := a.db.WithContext(ctx.Request.Context()).First(&user, userID).Error; err != nil {
		respondDBError(ctx, err, "user not found")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Current) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "current password is incorrect")
		return
	}

	hash, err := utils.HashPassword(req.New)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}
	if err := a.db.WithContext(ctx.Request.Context()).Model(&user).
		Updates(map[string]interface{}{"password_hash": hash, "updated_at": time.Now()}).Error; err != nil {
		respondDBError(ctx, err, "user not found")
		return
	}
	utils.Success(ctx, gin.H{"message": "password updated"})
}

// OAuthRedirect generates a provider-specific authorization URL.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	provider := ctx.Param("provider")
	cfg, err := a.oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	state := uuid.NewString()
	utils.SaveState(ctx.Request.Context(), state, 10*time.Minute)

	url := cfg.AuthCodeURL(state)
	utils.Success(ctx, gin.H{"authorization_url": url, "state": state})
}

// OAuthCallback exchanges the authorization code and signs in the provisioned
// account with the same verified email.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := ctx.Param("provider")
	code := ctx.Query("code")
	state := ctx.Query("state")

	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	if !utils.ConsumeState(ctx.Request.Context(), state) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}

	cfg, err := a.oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	reqCtx := ctx.Request.Context()
	token, err := cfg.Exchange(reqCtx, code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}

	email, err := fetchOAuthEmail(reqCtx, provider, cfg.Client(reqCtx, token))
	if err != nil {
		utils.Sugar.Warnw("oauth profile lookup failed", "provider", provider, "err", err)
		utils.Error(ctx, http.StatusBadGateway, 50205, "failed to read provider profile")
		return
	}

	user, err := a.auth.Users.FindByEmail(reqCtx, email)
	if err != nil || !user.Active() {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "no active account for this email")
		return
	}

	jwtToken, err := a.auth.IssueFor(reqCtx, user)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	a.beginSession(ctx, jwtToken)
	utils.Success(ctx, gin.H{"token": jwtToken, "user": user})
}

func (a *AuthController) beginSession(ctx *gin.Context, token string) {
	s := middleware.CurrentSession(ctx)
	if s == nil {
		return
	}
	if _, err := s.Begin(ctx.Request.Context(), token); err != nil {
		utils.Sugar.Warnw("failed to store session credential", "err", err)
		return
	}
	if id, ok := s.Identity(); ok {
		ctx.Set(utils.ContextUserIDKey, id.UserID)
	}
}

func (a *AuthController) oauthConfig(provider string) (*oauth2.Config, error) {
	switch strings.ToLower(provider) {
	case "github":
		if a.oauth.GitHubClientID == "" || a.oauth.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     a.oauth.GitHubClientID,
			ClientSecret: a.oauth.GitHubClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/github/callback", a.oauth.RedirectBase),
			Scopes:       []string{"user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if a.oauth.GoogleClientID == "" || a.oauth.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     a.oauth.GoogleClientID,
			ClientSecret: a.oauth.GoogleClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/google/callback", a.oauth.RedirectBase),
			Scopes:       []string{"openid", "email"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// fetchOAuthEmail returns the provider's verified primary email, lower-cased.
func fetchOAuthEmail(ctx context.Context, provider string, client *http.Client) (string, error) {
	var email string
	var err error
	switch strings.ToLower(provider) {
	case "github":
		email, err = fetchGitHubEmail(ctx, client)
	case "google":
		email, err = fetchGoogleEmail(ctx, client)
	default:
		return "", fmt.Errorf("unsupported provider: %s", provider)
	}
	if err != nil {
		return "", err
	}
	if email == "" {
		return "", errors.New("provider returned no verified email")
	}
	return strings.ToLower(strings.TrimSpace(email)), nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func fetchGitHubEmail(ctx context.Context, client *http.Client) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, "https://api.github.com/user/emails", &emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

func fetchGoogleEmail(ctx context.Context, client *http.Client) (string, error) {
	var payload struct {
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	if err := getJSON(ctx, client, "https://www.googleapis.com/oauth2/v2/userinfo", &payload); err != nil {
		return "", err
	}
	if !payload.VerifiedEmail {
		return "", nil
	}
	return payload.Email, nil
}

package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"

	"github.com/cppla/audiencehub/models"
	"github.com/cppla/audiencehub/utils"
)

// UserController is the administrator's account management. Accounts are
// never deleted, only deactivated.
type UserController struct {
	db *gorm.DB
}

// NewUserController creates a new UserController instance.
func NewUserController(db *gorm.DB) *UserController {
	return &UserController{db: db}
}

// ListUsers returns paginated accounts, optionally filtered by role, status or search.
func (uc *UserController) ListUsers(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := uc.db.WithContext(ctx.Request.Context()).Model(&models.User{})
	if v := strings.TrimSpace(ctx.Query("role")); v != "" {
		query = query.Where("role = ?", strings.ToLower(v))
	}
	if v := strings.TrimSpace(ctx.Query("status")); v != "" {
		query = query.Where("status = ?", strings.ToLower(v))
	}
	if v := strings.TrimSpace(ctx.Query("search")); v != "" {
		like := "%" + v + "%"
		query = query.Where("name LIKE ? OR email LIKE ?", like, strings.ToLower(like))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondDBError(ctx, err, "")
		return
	}
	var users []models.User
	if err := query.Order("id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
		respondDBError(ctx, err, "")
		return
	}
	utils.Success(ctx, paginated(users, page, pageSize, total))
}

// CreateUser provisions an account with an initial password.
func (uc *UserController) CreateUser(ctx *gin.Context) {
	var req struct {
		Name       string `json:"name"`
		Email      string `json:"email"`
		Password   string `json:"password"`
		Role       string `json:"role"`
		Status     string `json:"status"`
		Department string `json:"department"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(ctx)
		return
	}

	user := models.User{
		Name:       utils.SanitizeText(req.Name),
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		Role:       models.Role(strings.ToLower(strings.TrimSpace(req.Role))),
		Status:     models.UserStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		Department: utils.SanitizeText(req.Department),
	}
	if user.Role == "" {
		user.Role = models.RoleViewer
	}
	if user.Status == "" {
		user.Status = models.StatusActive
	}
	if err := user.Validate(); err != nil {
		respondValidation(ctx, err)
		return
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		respondValidation(ctx, validation.Errors{"password": err})
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}
	user.PasswordHash = hash

	if err := uc.db.WithContext(ctx.Request.Context()).Create(&user).Error; err != nil {
		respondDBError(ctx, err, "user not found")
		return
	}
	utils.Success(ctx, user)
}

// UpdateUser changes name, role, status or department. Email and password are
// not editable here.
func (uc *UserController) UpdateUser(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Name       *string `json:"name"`
		Role       *string `json:"role"`
		Status     *string `json:"status"`
		Department *string `json:"department"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(ctx)
		return
	}

	db := uc.db.WithContext(ctx.Request.Context())
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		respondDBError(ctx, err, "user not found")
		return
	}
	if req.Name != nil {
		user.Name = utils.SanitizeText(*req.Name)
	}
	if req.Role != nil {
		user.Role = models.Role(strings.ToLower(strings.TrimSpace(*req.Role)))
	}
	if req.Status != nil {
		user.Status = models.UserStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
	}
	if req.Department != nil {
		user.Department = utils.SanitizeText(*req.Department)
	}
	if err := user.Validate(); err != nil {
		respondValidation(ctx, err)
		return
	}

	if err := db.Model(&user).Select("name", "role", "status", "department", "updated_at").
		Updates(&user).Error; err != nil {
		respondDBError(ctx, err, "user not found")
		return
	}
	utils.Success(ctx, user)
}

// DeactivateUser marks the account inactive. Its existing tokens stop working
// at the next profile fetch; authored content is kept.
func (uc *UserController) DeactivateUser(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if self, ok := getUserID(ctx); ok && self == id {
		utils.Error(ctx, http.StatusUnprocessableEntity, 42204, "cannot deactivate your own account")
		return
	}
	res := uc.db.WithContext(ctx.Request.Context()).Model(&models.User{}).
		Where("id = ?", id).Update("status", models.StatusInactive)
	if res.Error != nil {
		respondDBError(ctx, res.Error, "user not found")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	utils.Success(ctx, gin.H{"id": id, "status": models.StatusInactive})
}

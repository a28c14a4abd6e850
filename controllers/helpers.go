package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/cppla/audiencehub/middleware"
	"github.com/cppla/audiencehub/models"
	"github.com/cppla/audiencehub/utils"
)

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func paginated(items interface{}, page, pageSize int, total int64) gin.H {
	return gin.H{
		"items": items,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
}

// parseID reads a positive numeric path parameter.
func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func getUserID(ctx *gin.Context) (uint, bool) {
	id, ok := middleware.CurrentIdentity(ctx)
	if !ok {
		return 0, false
	}
	return id.UserID, true
}

func isValidationError(err error) bool {
	var verrs validation.Errors
	return errors.As(err, &verrs)
}

// respondValidation writes ozzo validation errors as a field map.
func respondValidation(ctx *gin.Context, err error) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		utils.Respond(ctx, http.StatusUnprocessableEntity, 42201, "validation failed", verrs)
		return
	}
	utils.Error(ctx, http.StatusUnprocessableEntity, 42201, err.Error())
}

// respondDBError maps storage failures onto HTTP statuses. A missing parent
// is a validation error for the caller, not a server fault.
func respondDBError(ctx *gin.Context, err error, notFoundMsg string) {
	err = models.ClassifyDBError(err)
	switch {
	case errors.Is(err, models.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, notFoundMsg)
	case errors.Is(err, models.ErrReferentialViolation):
		utils.Error(ctx, http.StatusUnprocessableEntity, 42202, "referenced record does not exist")
	case errors.Is(err, models.ErrDuplicate):
		utils.Error(ctx, http.StatusConflict, 40901, "record already exists")
	default:
		utils.Sugar.Errorw("database error", "path", ctx.FullPath(), "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	}
}

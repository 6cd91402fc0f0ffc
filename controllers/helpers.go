package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/leyuan/points-mall/middleware"
	"github.com/leyuan/points-mall/services"
	"github.com/leyuan/points-mall/utils"
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

func paginationPayload(page, pageSize int, total int64) gin.H {
	return gin.H{
		"page":        page,
		"page_size":   pageSize,
		"total":       total,
		"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
	}
}

func contextUint(ctx *gin.Context, key string) (uint, bool) {
	value, exists := ctx.Get(key)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

func getUserID(ctx *gin.Context) (uint, bool) {
	return contextUint(ctx, middleware.ContextUserIDKey)
}

func getAdminID(ctx *gin.Context) (uint, bool) {
	return contextUint(ctx, middleware.ContextAdminIDKey)
}

func adminRole(ctx *gin.Context) string {
	if v, ok := ctx.Get(middleware.ContextAdminRoleKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// respondServiceError maps service layer sentinels onto the response envelope.
// Unknown errors become a 500 with the fallback message.
func respondServiceError(ctx *gin.Context, err error, fallbackCode int, fallbackMsg string) {
	switch {
	case errors.Is(err, services.ErrValidationFailed):
		utils.Error(ctx, http.StatusBadRequest, 40001, err.Error())
	case errors.Is(err, services.ErrNotEligible):
		utils.Error(ctx, http.StatusBadRequest, 40020, err.Error())
	case errors.Is(err, services.ErrInsufficientBalance):
		utils.Error(ctx, http.StatusBadRequest, 40030, "积分不足")
	case errors.Is(err, services.ErrOutOfStock):
		utils.Error(ctx, http.StatusBadRequest, 40031, "商品库存不足")
	case errors.Is(err, services.ErrAlreadyAudited):
		utils.Error(ctx, http.StatusConflict, 40901, "submission already audited")
	case errors.Is(err, services.ErrConflict):
		utils.Error(ctx, http.StatusConflict, 40900, "concurrent update conflict")
	case errors.Is(err, services.ErrAllocationExhausted):
		utils.Error(ctx, http.StatusInternalServerError, 50040, "invite code allocation exhausted")
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40400, "record not found")
	default:
		utils.Error(ctx, http.StatusInternalServerError, fallbackCode, fallbackMsg)
	}
}

func parseUintParam(ctx *gin.Context, name string) (uint, bool) {
	raw := ctx.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/leyuan/points-mall/models"
	"github.com/leyuan/points-mall/utils"
)

// UserController serves the caller's own records: points history, orders,
// submissions, and invite stats.
type UserController struct {
	db *gorm.DB
}

// NewUserController creates a new controller instance.
func NewUserController(db *gorm.DB) *UserController {
	return &UserController{db: db}
}

// PointsLogs returns the caller's ledger entries, newest first. An optional
// type filter narrows by movement kind.
func (u *UserController) PointsLogs(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := u.db.Model(&models.PointsLog{}).Where("user_id = ?", userID)
	if kind := ctx.Query("type"); kind != "" {
		query = query.Where("type = ?", kind)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to count points logs")
		return
	}

	var logs []models.PointsLog
	if err := query.Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&logs).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to list points logs")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      logs,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// Orders returns the caller's redemption orders, newest first.
func (u *UserController) Orders(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := u.db.Model(&models.Order{}).Where("user_id = ?", userID)
	if status := ctx.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to count orders")
		return
	}

	var orders []models.Order
	if err := query.Preload("Product").Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&orders).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to list orders")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      orders,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// Submissions returns the caller's activity submissions, newest first.
func (u *UserController) Submissions(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := u.db.Model(&models.Submission{}).Where("user_id = ?", userID)
	if status := ctx.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to count submissions")
		return
	}

	var submissions []models.Submission
	if err := query.Preload("Activity").Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&submissions).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50045, "failed to list submissions")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      submissions,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// InviteStats returns the caller's invite code and referral summary.
func (u *UserController) InviteStats(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var user models.User
	if err := u.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50046, "failed to load user")
		return
	}

	var invitedCount int64
	if err := u.db.Model(&models.User{}).Where("referrer_id = ?", userID).Count(&invitedCount).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50047, "failed to count invitees")
		return
	}

	var rewardTotal int64
	if err := u.db.Model(&models.PointsLog{}).
		Where("user_id = ? AND source = ?", userID, models.SourceInvite).
		Select("COALESCE(SUM(points),0)").
		Scan(&rewardTotal).Error; err != nil {
		rewardTotal = 0
	}

	utils.Success(ctx, gin.H{
		"invite_code":   user.InviteCode,
		"invited_count": invitedCount,
		"reward_points": rewardTotal,
	})
}

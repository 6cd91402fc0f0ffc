package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/leyuan/points-mall/config"
	"github.com/leyuan/points-mall/models"
	"github.com/leyuan/points-mall/services"
	"github.com/leyuan/points-mall/utils"
)

const activityCachePrefix = "cache:activity:"

// ActivityController serves the public activity catalog and submissions.
type ActivityController struct {
	db *gorm.DB
}

// NewActivityController creates a new controller instance.
func NewActivityController(db *gorm.DB) *ActivityController {
	return &ActivityController{db: db}
}

func activityCacheTTL() time.Duration {
	return time.Duration(config.Get().ActivityCacheTTLSec) * time.Second
}

// ListActivities returns active activities, newest first. The listing is
// cached per page; admin edits invalidate the prefix.
func (c *ActivityController) ListActivities(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	cacheKey := activityCachePrefix + "list:" + ctx.Query("page") + ":" + ctx.Query("page_size")
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var total int64
	if err := c.db.Model(&models.Activity{}).
		Where("status = ?", models.ActivityStatusActive).
		Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to count activities")
		return
	}

	var activities []models.Activity
	if err := c.db.Where("status = ?", models.ActivityStatusActive).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&activities).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to list activities")
		return
	}

	payload := gin.H{
		"items":      activities,
		"pagination": paginationPayload(page, pageSize, total),
	}
	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
	utils.CacheSetJSON(cacheKey, wrapper, activityCacheTTL())
	utils.Success(ctx, payload)
}

// GetActivity returns one activity's full detail including the form schema.
// The detail is cached read-through; eligibility is never derived from it.
func (c *ActivityController) GetActivity(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	cacheKey := activityCachePrefix + "detail:" + ctx.Param("id")
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var activity models.Activity
	if err := c.db.First(&activity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "activity not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to load activity")
		return
	}
	if activity.Status == models.ActivityStatusDraft {
		utils.Error(ctx, http.StatusNotFound, 40420, "activity not found")
		return
	}

	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: activity}
	utils.CacheSetJSON(cacheKey, wrapper, activityCacheTTL())
	utils.Success(ctx, activity)
}

// GetEligibility adjudicates whether the caller may submit to the activity.
func (c *ActivityController) GetEligibility(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	var activity models.Activity
	if err := c.db.First(&activity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "activity not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to load activity")
		return
	}

	now := time.Now()
	participation, err := services.LoadParticipation(c.db, userID, id, now)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load participation")
		return
	}

	utils.Success(ctx, services.Evaluate(&activity, participation, now))
}

type submitRequest struct {
	Answers models.StringMap `json:"answers" binding:"required"`
}

// Submit records the caller's participation in an activity.
func (c *ActivityController) Submit(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	var req submitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	submission, err := services.CreateSubmission(c.db, userID, id, req.Answers, time.Now())
	if err != nil {
		respondServiceError(ctx, err, 50024, "failed to submit")
		return
	}

	utils.Success(ctx, gin.H{
		"submission_id":  submission.ID,
		"status":         submission.Status,
		"granted_points": submission.GrantedPoints,
	})
}

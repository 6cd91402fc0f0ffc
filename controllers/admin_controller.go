package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/leyuan/points-mall/models"
	"github.com/leyuan/points-mall/services"
	"github.com/leyuan/points-mall/utils"
)

// AdminController handles the management console: auditing, catalog and
// activity maintenance, orders, and user administration.
type AdminController struct {
	db *gorm.DB
}

// NewAdminController creates a new controller instance.
func NewAdminController(db *gorm.DB) *AdminController {
	return &AdminController{db: db}
}

type adminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates an admin with username and password.
func (a *AdminController) Login(ctx *gin.Context) {
	var req adminLoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	var admin models.Admin
	if err := a.db.Where("username = ?", strings.TrimSpace(req.Username)).First(&admin).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "用户名或密码错误")
		return
	}
	if !admin.IsActive || !utils.CheckPassword(admin.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "用户名或密码错误")
		return
	}

	token, err := utils.GenerateToken(admin.ID, utils.ActorAdmin, admin.Role, 24*time.Hour)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"token": token,
		"admin": gin.H{"id": admin.ID, "username": admin.Username, "role": admin.Role},
	})
}

// Stats returns aggregate platform statistics.
func (a *AdminController) Stats(ctx *gin.Context) {
	var userCount, pendingSubmissions, pendingOrders int64
	var pointsIssued, pointsSpent int64

	if err := a.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		userCount = 0
	}
	if err := a.db.Model(&models.Submission{}).
		Where("status = ?", models.SubmissionStatusPending).
		Count(&pendingSubmissions).Error; err != nil {
		pendingSubmissions = 0
	}
	if err := a.db.Model(&models.Order{}).
		Where("status = ?", models.OrderStatusPending).
		Count(&pendingOrders).Error; err != nil {
		pendingOrders = 0
	}
	if err := a.db.Model(&models.PointsLog{}).
		Where("points > 0").
		Select("COALESCE(SUM(points),0)").
		Scan(&pointsIssued).Error; err != nil {
		pointsIssued = 0
	}
	if err := a.db.Model(&models.PointsLog{}).
		Where("points < 0").
		Select("COALESCE(SUM(-points),0)").
		Scan(&pointsSpent).Error; err != nil {
		pointsSpent = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":          userCount,
		"pending_submissions": pendingSubmissions,
		"pending_orders":      pendingOrders,
		"points_issued":       pointsIssued,
		"points_spent":        pointsSpent,
	})
}

type activityRequest struct {
	Title             string            `json:"title" binding:"required"`
	Description       string            `json:"description"`
	CoverImage        string            `json:"cover_image"`
	Status            string            `json:"status"`
	AuditType         string            `json:"audit_type"`
	FrequencyType     string            `json:"frequency_type"`
	MaxParticipations int               `json:"max_participations"`
	FormSchema        models.FormSchema `json:"form_schema" binding:"required"`
	RewardPoints      int               `json:"reward_points"`
	StartTime         *time.Time        `json:"start_time"`
	EndTime           *time.Time        `json:"end_time"`
}

func (r *activityRequest) validate() string {
	switch r.Status {
	case "", models.ActivityStatusDraft, models.ActivityStatusActive, models.ActivityStatusEnded:
	default:
		return "invalid status"
	}
	switch r.AuditType {
	case "", models.AuditTypeAuto, models.AuditTypeManual:
	default:
		return "invalid audit_type"
	}
	switch r.FrequencyType {
	case "", models.FrequencyOnce, models.FrequencyDaily, models.FrequencyUnlimited:
	default:
		return "invalid frequency_type"
	}
	if r.RewardPoints < 0 {
		return "reward_points must not be negative"
	}
	if len(r.FormSchema) == 0 {
		return "form_schema must not be empty"
	}
	seen := map[string]bool{}
	for _, f := range r.FormSchema {
		if strings.TrimSpace(f.Key) == "" {
			return "form_schema field key must not be empty"
		}
		if seen[f.Key] {
			return "duplicate form_schema field key: " + f.Key
		}
		seen[f.Key] = true
	}
	if r.StartTime != nil && r.EndTime != nil && r.EndTime.Before(*r.StartTime) {
		return "end_time must not precede start_time"
	}
	return ""
}

// ListActivities returns all activities regardless of status.
func (a *AdminController) ListActivities(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := a.db.Model(&models.Activity{})
	if status := ctx.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to count activities")
		return
	}

	var activities []models.Activity
	if err := query.Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&activities).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to list activities")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      activities,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// CreateActivity creates a new activity.
func (a *AdminController) CreateActivity(ctx *gin.Context) {
	var req activityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	if msg := req.validate(); msg != "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, msg)
		return
	}

	activity := models.Activity{
		Title:             strings.TrimSpace(req.Title),
		Description:       utils.Sanitize(req.Description),
		CoverImage:        req.CoverImage,
		Status:            orDefault(req.Status, models.ActivityStatusDraft),
		AuditType:         orDefault(req.AuditType, models.AuditTypeManual),
		FrequencyType:     orDefault(req.FrequencyType, models.FrequencyOnce),
		MaxParticipations: req.MaxParticipations,
		FormSchema:        req.FormSchema,
		RewardPoints:      req.RewardPoints,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
	}
	if err := a.db.Create(&activity).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to create activity")
		return
	}

	utils.InvalidateByPrefix(activityCachePrefix)
	utils.Success(ctx, activity)
}

// UpdateActivity edits an activity. Already graded submissions are never
// touched; new grades use the updated reward.
func (a *AdminController) UpdateActivity(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	var req activityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	if msg := req.validate(); msg != "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, msg)
		return
	}

	var activity models.Activity
	if err := a.db.First(&activity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "activity not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to load activity")
		return
	}

	updates := map[string]interface{}{
		"title":              strings.TrimSpace(req.Title),
		"description":        utils.Sanitize(req.Description),
		"cover_image":        req.CoverImage,
		"max_participations": req.MaxParticipations,
		"form_schema":        req.FormSchema,
		"reward_points":      req.RewardPoints,
		"start_time":         req.StartTime,
		"end_time":           req.EndTime,
	}
	if req.Status != "" {
		updates["status"] = req.Status
	}
	if req.AuditType != "" {
		updates["audit_type"] = req.AuditType
	}
	if req.FrequencyType != "" {
		updates["frequency_type"] = req.FrequencyType
	}

	if err := a.db.Model(&activity).Updates(updates).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to update activity")
		return
	}

	utils.InvalidateByPrefix(activityCachePrefix)
	utils.Success(ctx, activity)
}

// ListSubmissions returns submissions for auditing, oldest pending first.
func (a *AdminController) ListSubmissions(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := a.db.Model(&models.Submission{})
	if status := ctx.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if activityID := ctx.Query("activity_id"); activityID != "" {
		query = query.Where("activity_id = ?", activityID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50055, "failed to count submissions")
		return
	}

	var submissions []models.Submission
	if err := query.Preload("User").Preload("Activity").
		Order("id ASC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&submissions).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50056, "failed to list submissions")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      submissions,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

type auditRequest struct {
	Approve        bool   `json:"approve"`
	PointsOverride *int   `json:"points_override"`
	Remark         string `json:"remark"`
}

// AuditSubmission applies a verdict to a pending submission.
func (a *AdminController) AuditSubmission(ctx *gin.Context) {
	adminID, ok := getAdminID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	var req auditRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	submission, err := services.AuditSubmission(a.db, adminID, id, services.AuditDecision{
		Approve:        req.Approve,
		PointsOverride: req.PointsOverride,
		Remark:         strings.TrimSpace(req.Remark),
	}, time.Now())
	if err != nil {
		respondServiceError(ctx, err, 50057, "failed to audit submission")
		return
	}

	utils.Success(ctx, gin.H{
		"submission_id":  submission.ID,
		"status":         submission.Status,
		"granted_points": submission.GrantedPoints,
	})
}

// ListOrders returns redemption orders for fulfillment.
func (a *AdminController) ListOrders(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := a.db.Model(&models.Order{})
	if status := ctx.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50058, "failed to count orders")
		return
	}

	var orders []models.Order
	if err := query.Preload("User").Preload("Product").
		Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&orders).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50059, "failed to list orders")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      orders,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

type deliverRequest struct {
	ShippingInfo models.StringMap `json:"shipping_info"`
	Complete     bool             `json:"complete"`
}

// DeliverOrder moves a pending order to shipped (or straight to completed
// for virtual goods).
func (a *AdminController) DeliverOrder(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	var req deliverRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	next := models.OrderStatusShipped
	if req.Complete {
		next = models.OrderStatusCompleted
	}

	updates := map[string]interface{}{"status": next}
	if len(req.ShippingInfo) > 0 {
		updates["shipping_info"] = req.ShippingInfo
	}

	res := a.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, models.OrderStatusPending).
		Updates(updates)
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to deliver order")
		return
	}
	if res.RowsAffected == 0 {
		var exists models.Order
		if err := a.db.First(&exists, id).Error; err != nil {
			utils.Error(ctx, http.StatusNotFound, 40440, "order not found")
			return
		}
		utils.Error(ctx, http.StatusConflict, 40900, "order is not pending")
		return
	}

	utils.Success(ctx, gin.H{"order_id": id, "status": next})
}

// CancelOrder cancels a pending order, restoring stock and refunding points.
func (a *AdminController) CancelOrder(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	order, err := services.CancelOrder(a.db, id)
	if err != nil {
		respondServiceError(ctx, err, 50061, "failed to cancel order")
		return
	}

	utils.Success(ctx, gin.H{"order_id": order.ID, "status": models.OrderStatusCancelled})
}

// ListUsers returns registered users.
func (a *AdminController) ListUsers(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := a.db.Model(&models.User{})
	if phone := ctx.Query("phone"); phone != "" {
		query = query.Where("phone = ?", phone)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to count users")
		return
	}

	var users []models.User
	if err := query.Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&users).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50063, "failed to list users")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      users,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

type adjustPointsRequest struct {
	Points int    `json:"points" binding:"required"`
	Remark string `json:"remark"`
}

// AdjustPoints applies a manual points correction to a user. Negative
// adjustments cannot take the balance below zero.
func (a *AdminController) AdjustPoints(ctx *gin.Context) {
	if role := adminRole(ctx); role != models.RoleSuperAdmin && role != models.RoleAdmin {
		utils.Error(ctx, http.StatusForbidden, 40320, "insufficient privileges")
		return
	}
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	var req adjustPointsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	remark := strings.TrimSpace(req.Remark)
	if remark == "" {
		remark = "管理员调整"
	}

	log, err := services.Append(a.db, services.LedgerEntry{
		UserID: id,
		Points: req.Points,
		Kind:   models.LedgerKindAdjust,
		Source: models.SourceAdminAdjust,
		Remark: remark,
	})
	if err != nil {
		respondServiceError(ctx, err, 50064, "failed to adjust points")
		return
	}

	utils.Success(ctx, gin.H{
		"user_id":       id,
		"points":        log.Points,
		"balance_after": log.BalanceAfter,
	})
}

// ToggleUser enables or disables a user account.
func (a *AdminController) ToggleUser(ctx *gin.Context) {
	if role := adminRole(ctx); role != models.RoleSuperAdmin && role != models.RoleAdmin {
		utils.Error(ctx, http.StatusForbidden, 40320, "insufficient privileges")
		return
	}
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	var user models.User
	if err := a.db.First(&user, id).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}

	if err := a.db.Model(&user).Update("is_active", !user.IsActive).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50065, "failed to toggle user")
		return
	}

	utils.Success(ctx, gin.H{"user_id": user.ID, "is_active": !user.IsActive})
}

type productRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Type        string `json:"type"`
	PricePoints int    `json:"price_points" binding:"required"`
	Stock       int    `json:"stock"`
	ImageURL    string `json:"image_url"`
	IsActive    *bool  `json:"is_active"`
	SortOrder   int    `json:"sort_order"`
}

func (r *productRequest) validate() string {
	switch r.Type {
	case "", models.ProductTypeVirtual, models.ProductTypePhysical:
	default:
		return "invalid product type"
	}
	if r.PricePoints <= 0 {
		return "price_points must be positive"
	}
	if r.Stock < 0 {
		return "stock must not be negative"
	}
	return ""
}

// CreateProduct adds a product to the catalog.
func (a *AdminController) CreateProduct(ctx *gin.Context) {
	var req productRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	if msg := req.validate(); msg != "" {
		utils.Error(ctx, http.StatusBadRequest, 40022, msg)
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	product := models.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: utils.Sanitize(req.Description),
		Type:        orDefault(req.Type, models.ProductTypeVirtual),
		PricePoints: req.PricePoints,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		IsActive:    active,
		SortOrder:   req.SortOrder,
	}
	if err := a.db.Create(&product).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50066, "failed to create product")
		return
	}

	utils.Success(ctx, product)
}

// UpdateProduct edits a catalog product. Existing orders keep the points
// cost captured at redemption time.
func (a *AdminController) UpdateProduct(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	var req productRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	if msg := req.validate(); msg != "" {
		utils.Error(ctx, http.StatusBadRequest, 40022, msg)
		return
	}

	var product models.Product
	if err := a.db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40430, "product not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50067, "failed to load product")
		return
	}

	updates := map[string]interface{}{
		"name":         strings.TrimSpace(req.Name),
		"description":  utils.Sanitize(req.Description),
		"price_points": req.PricePoints,
		"stock":        req.Stock,
		"image_url":    req.ImageURL,
		"sort_order":   req.SortOrder,
	}
	if req.Type != "" {
		updates["type"] = req.Type
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if err := a.db.Model(&product).Updates(updates).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50068, "failed to update product")
		return
	}

	utils.Success(ctx, product)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/leyuan/points-mall/models"
	"github.com/leyuan/points-mall/services"
	"github.com/leyuan/points-mall/utils"
)

// MallController serves the redeemable product catalog and redemption.
type MallController struct {
	db *gorm.DB
}

// NewMallController creates a new controller instance.
func NewMallController(db *gorm.DB) *MallController {
	return &MallController{db: db}
}

// ListProducts returns active products ordered by sort weight.
func (m *MallController) ListProducts(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var total int64
	if err := m.db.Model(&models.Product{}).
		Where("is_active = ?", true).
		Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to count products")
		return
	}

	var products []models.Product
	if err := m.db.Where("is_active = ?", true).
		Order("sort_order DESC, id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&products).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to list products")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      products,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// GetProduct returns one product's detail.
func (m *MallController) GetProduct(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	var product models.Product
	if err := m.db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40430, "product not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to load product")
		return
	}
	if !product.IsActive {
		utils.Error(ctx, http.StatusNotFound, 40430, "product not found")
		return
	}

	utils.Success(ctx, product)
}

type redeemRequest struct {
	ProductID    uint             `json:"product_id" binding:"required"`
	Quantity     int              `json:"quantity"`
	DeliveryInfo models.StringMap `json:"delivery_info"`
}

// Redeem exchanges the caller's points for a product.
func (m *MallController) Redeem(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req redeemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	order, err := services.Redeem(m.db, userID, req.ProductID, req.Quantity, req.DeliveryInfo)
	if err != nil {
		respondServiceError(ctx, err, 50033, "兑换失败")
		return
	}

	utils.Success(ctx, gin.H{
		"order_id":    order.ID,
		"order_no":    order.OrderNo,
		"points_cost": order.PointsCost,
		"status":      order.Status,
	})
}

package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/leyuan/points-mall/models"
)

// Redeem exchanges points for a product. The whole exchange is one
// transaction: the stock decrement is a single conditional UPDATE guarded by
// `stock >= quantity`, so concurrent redemptions of the last unit resolve at
// the database and the loser sees ErrOutOfStock with no balance change. The
// points debit reuses the ledger and fails with ErrInsufficientBalance when
// the balance cannot cover the cost.
func Redeem(db *gorm.DB, userID, productID uint, quantity int, deliveryInfo models.StringMap) (*models.Order, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidationFailed)
	}

	var order models.Order
	err := db.Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !product.IsActive {
			return ErrNotFound
		}
		if product.Type == models.ProductTypePhysical && len(deliveryInfo) == 0 {
			return fmt.Errorf("%w: delivery info is required for physical products", ErrValidationFailed)
		}

		res := tx.Model(&models.Product{}).
			Where("id = ? AND stock >= ?", productID, quantity).
			Update("stock", gorm.Expr("stock - ?", quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOutOfStock
		}

		cost := product.PricePoints * quantity
		order = models.Order{
			OrderNo:      NewOrderNo(),
			UserID:       userID,
			ProductID:    productID,
			Quantity:     quantity,
			PointsCost:   cost,
			Status:       models.OrderStatusPending,
			DeliveryInfo: deliveryInfo,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		refID := order.ID
		_, err := AppendLedger(tx, LedgerEntry{
			UserID:      userID,
			Points:      -cost,
			Kind:        models.LedgerKindSpend,
			Source:      models.SourceRedeem,
			ReferenceID: &refID,
			Remark:      fmt.Sprintf("兑换商品: %s", product.Name),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder cancels a pending order, restores the product stock, and
// refunds the points in one transaction. Shipped or completed orders cannot
// be cancelled.
func CancelOrder(db *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, models.OrderStatusPending).
			Update("status", models.OrderStatusCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var exists models.Order
			if err := tx.First(&exists, orderID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return err
			}
			return ErrConflict
		}

		if err := tx.First(&order, orderID).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Product{}).
			Where("id = ?", order.ProductID).
			Update("stock", gorm.Expr("stock + ?", order.Quantity)).Error; err != nil {
			return err
		}

		refID := order.ID
		_, err := AppendLedger(tx, LedgerEntry{
			UserID:      order.UserID,
			Points:      order.PointsCost,
			Kind:        models.LedgerKindRefund,
			Source:      models.SourceRedeem,
			ReferenceID: &refID,
			Remark:      fmt.Sprintf("订单取消退款: %s", order.OrderNo),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

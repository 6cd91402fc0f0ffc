package services

import (
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leyuan/points-mall/models"
)

func productRows(id uint, productType string, price, stock int, active bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "type", "price_points", "stock", "is_active"}).
		AddRow(id, "保温杯", productType, price, stock, active)
}

func TestRedeemSuccess(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `products`").
		WillReturnRows(productRows(3, models.ProductTypeVirtual, 100, 5, true))
	mock.ExpectExec("UPDATE `products` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `orders`").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(1, 500))
	mock.ExpectExec("UPDATE `users` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `points_logs`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	order, err := Redeem(db, 1, 3, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, order.PointsCost)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.True(t, strings.HasPrefix(order.OrderNo, "ORD"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemOutOfStock(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `products`").
		WillReturnRows(productRows(3, models.ProductTypeVirtual, 100, 1, true))
	// conditional decrement loses the race: zero rows affected
	mock.ExpectExec("UPDATE `products` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := Redeem(db, 1, 3, 2, nil)
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemInsufficientBalanceRollsBack(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `products`").
		WillReturnRows(productRows(3, models.ProductTypeVirtual, 100, 5, true))
	mock.ExpectExec("UPDATE `products` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `orders`").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(1, 50))
	mock.ExpectRollback()

	_, err := Redeem(db, 1, 3, 1, nil)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemInactiveProduct(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `products`").
		WillReturnRows(productRows(3, models.ProductTypeVirtual, 100, 5, false))
	mock.ExpectRollback()

	_, err := Redeem(db, 1, 3, 1, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemPhysicalNeedsDelivery(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `products`").
		WillReturnRows(productRows(3, models.ProductTypePhysical, 100, 5, true))
	mock.ExpectRollback()

	_, err := Redeem(db, 1, 3, 1, nil)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemRejectsBadQuantity(t *testing.T) {
	db, _ := setupTestDB(t)

	_, err := Redeem(db, 1, 3, 0, nil)
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = Redeem(db, 1, 3, -2, nil)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func orderRow(id uint, userID, productID uint, quantity, cost int, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "order_no", "user_id", "product_id", "quantity", "points_cost", "status"}).
		AddRow(id, "ORD20250615120000123456", userID, productID, quantity, cost, status)
}

func TestCancelOrderRefunds(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `orders` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM `orders`").
		WillReturnRows(orderRow(11, 1, 3, 1, 100, models.OrderStatusCancelled))
	mock.ExpectExec("UPDATE `products` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(1, 400))
	mock.ExpectExec("UPDATE `users` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `points_logs`").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	order, err := CancelOrder(db, 11)
	require.NoError(t, err)
	assert.Equal(t, uint(11), order.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelOrderNotPending(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `orders` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM `orders`").
		WillReturnRows(orderRow(11, 1, 3, 1, 100, models.OrderStatusShipped))
	mock.ExpectRollback()

	_, err := CancelOrder(db, 11)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leyuan/points-mall/models"
)

func userRows(id uint, balance int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "nickname", "points_balance", "invite_code", "is_active", "created_at", "updated_at"}).
		AddRow(id, "测试用户", balance, "ABCD2345", true, time.Now(), time.Now())
}

func TestAppendCredit(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(1, 100))
	mock.ExpectExec("UPDATE `users` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `points_logs`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	log, err := Append(db, LedgerEntry{
		UserID: 1,
		Points: 50,
		Kind:   models.LedgerKindEarn,
		Source: models.SourceActivity,
		Remark: "参与活动: 每日签到",
	})
	require.NoError(t, err)
	assert.Equal(t, 50, log.Points)
	assert.Equal(t, 150, log.BalanceAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendDebitToZero(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(1, 100))
	mock.ExpectExec("UPDATE `users` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `points_logs`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	log, err := Append(db, LedgerEntry{
		UserID: 1,
		Points: -100,
		Kind:   models.LedgerKindSpend,
		Source: models.SourceRedeem,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, log.BalanceAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendInsufficientBalance(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(1, 30))
	mock.ExpectRollback()

	_, err := Append(db, LedgerEntry{
		UserID: 1,
		Points: -31,
		Kind:   models.LedgerKindSpend,
		Source: models.SourceRedeem,
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendUnknownUser(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := Append(db, LedgerEntry{
		UserID: 42,
		Points: 10,
		Kind:   models.LedgerKindEarn,
		Source: models.SourceActivity,
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRejectsZeroAndUntagged(t *testing.T) {
	db, _ := setupTestDB(t)

	_, err := AppendLedger(db, LedgerEntry{UserID: 1, Points: 0, Kind: models.LedgerKindEarn, Source: models.SourceActivity})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = AppendLedger(db, LedgerEntry{UserID: 1, Points: 5})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

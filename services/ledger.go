package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/leyuan/points-mall/models"
)

// LedgerEntry describes one points movement to append.
type LedgerEntry struct {
	UserID      uint
	Points      int // signed: positive credits, negative debits
	Kind        string
	Source      string
	ReferenceID *uint
	Remark      string
}

// AppendLedger applies one balance change and its log row inside tx. The user
// row is locked FOR UPDATE so the balance mutation and the log insert are
// serialized per user; BalanceAfter on the log always matches the stored
// balance. A debit that would take the balance below zero fails with
// ErrInsufficientBalance and leaves both tables untouched.
func AppendLedger(tx *gorm.DB, entry LedgerEntry) (*models.PointsLog, error) {
	if entry.Points == 0 {
		return nil, fmt.Errorf("%w: points must be non-zero", ErrValidationFailed)
	}
	if entry.Kind == "" || entry.Source == "" {
		return nil, fmt.Errorf("%w: kind and source are required", ErrValidationFailed)
	}

	var user models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, entry.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	newBalance := user.PointsBalance + entry.Points
	if newBalance < 0 {
		return nil, ErrInsufficientBalance
	}

	if err := tx.Model(&models.User{}).Where("id = ?", user.ID).
		Update("points_balance", newBalance).Error; err != nil {
		return nil, err
	}

	log := models.PointsLog{
		UserID:       entry.UserID,
		Points:       entry.Points,
		BalanceAfter: newBalance,
		Kind:         entry.Kind,
		Source:       entry.Source,
		ReferenceID:  entry.ReferenceID,
		Remark:       entry.Remark,
	}
	if err := tx.Create(&log).Error; err != nil {
		return nil, err
	}
	return &log, nil
}

// Append runs AppendLedger inside its own transaction. Use it for standalone
// movements such as admin adjustments or invite rewards.
func Append(db *gorm.DB, entry LedgerEntry) (*models.PointsLog, error) {
	var log *models.PointsLog
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		log, txErr = AppendLedger(tx, entry)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

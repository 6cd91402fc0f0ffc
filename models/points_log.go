package models

import "time"

// Ledger movement kinds. Every balance change is exactly one of these.
const (
	LedgerKindEarn   = "earn"
	LedgerKindSpend  = "spend"
	LedgerKindRefund = "refund"
	LedgerKindAdjust = "adjust"
)

// Ledger source tags (free-form provenance).
const (
	SourceActivity      = "activity"
	SourceActivityAudit = "activity_audit"
	SourceRedeem        = "redeem"
	SourceAdminAdjust   = "admin_adjust"
	SourceInvite        = "invite"
)

// PointsLog is one immutable points movement. Rows are only ever inserted;
// the user's balance must always equal the running sum of Points and the
// latest row's BalanceAfter.
type PointsLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"index;not null" json:"user_id"`
	Points       int       `gorm:"not null" json:"points"`
	BalanceAfter int       `gorm:"not null" json:"balance_after"`
	Kind         string    `gorm:"column:type;size:16;not null" json:"type"`
	Source       string    `gorm:"size:50;not null" json:"source"`
	ReferenceID  *uint     `json:"reference_id"`
	Remark       string    `gorm:"size:255" json:"remark"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName keeps the original schema's table name.
func (PointsLog) TableName() string {
	return "points_logs"
}

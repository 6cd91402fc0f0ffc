package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an end user of the points mall. PointsBalance is never
// written directly: every change goes through the points ledger so that a
// PointsLog row exists for each movement.
type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Phone         *string    `gorm:"size:20;uniqueIndex" json:"phone"`
	WxOpenID      *string    `gorm:"size:64;uniqueIndex" json:"-"`
	Nickname      string     `gorm:"size:64" json:"nickname"`
	AvatarURL     string     `gorm:"size:512" json:"avatar_url"`
	PointsBalance int        `gorm:"default:0" json:"points_balance"`
	// ReferrerID is a weak back-link: no association, no cascade. A removed
	// referrer simply leaves the field dangling.
	ReferrerID *uint     `gorm:"index" json:"referrer_id"`
	InviteCode string    `gorm:"size:20;uniqueIndex;not null" json:"invite_code"`
	IsActive   bool      `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// MaskedPhone returns the phone with the middle digits hidden, e.g. 138****5678.
func (u *User) MaskedPhone() string {
	if u.Phone == nil || len(*u.Phone) < 7 {
		return ""
	}
	p := *u.Phone
	return p[:3] + "****" + p[len(p)-4:]
}

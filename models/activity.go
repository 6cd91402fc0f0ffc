package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Activity lifecycle status.
const (
	ActivityStatusDraft  = "draft"
	ActivityStatusActive = "active"
	ActivityStatusEnded  = "ended"
)

// Audit modes.
const (
	AuditTypeAuto   = "auto"
	AuditTypeManual = "manual"
)

// Frequency policies.
const (
	FrequencyOnce      = "once"
	FrequencyDaily     = "daily"
	FrequencyUnlimited = "unlimited"
)

// FormField describes one entry of an activity's declarative form schema.
type FormField struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Type     string `json:"type"`
}

// FormSchema is the ordered field list stored as a JSON column.
type FormSchema []FormField

// Value implements driver.Valuer.
func (s FormSchema) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal(FormSchema{})
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *FormSchema) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("unsupported type for FormSchema")
	}
}

// Activity is a sponsor-defined task users complete to earn points.
// Admin edits never retroactively alter already graded submissions.
type Activity struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Title             string     `gorm:"size:200;not null" json:"title"`
	Description       string     `gorm:"type:text" json:"description"`
	CoverImage        string     `gorm:"size:500" json:"cover_image"`
	Status            string     `gorm:"size:16;default:'draft';index" json:"status"`
	AuditType         string     `gorm:"size:16;default:'manual'" json:"audit_type"`
	FrequencyType     string     `gorm:"size:16;default:'once'" json:"frequency_type"`
	MaxParticipations int        `gorm:"default:1" json:"max_participations"`
	FormSchema        FormSchema `gorm:"type:json;not null" json:"form_schema"`
	RewardPoints      int        `gorm:"default:0" json:"reward_points"`
	StartTime         *time.Time `json:"start_time"`
	EndTime           *time.Time `json:"end_time"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// InWindow reports whether now falls inside the optional start/end window.
func (a *Activity) InWindow(now time.Time) bool {
	if a.StartTime != nil && now.Before(*a.StartTime) {
		return false
	}
	if a.EndTime != nil && now.After(*a.EndTime) {
		return false
	}
	return true
}

package models

import "time"

// Submission status. pending is initial; approved/rejected are terminal and
// a terminal submission is never modified again.
const (
	SubmissionStatusPending  = "pending"
	SubmissionStatusApproved = "approved"
	SubmissionStatusRejected = "rejected"
)

// Submission is one user answer set for an activity.
type Submission struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"index;not null" json:"user_id"`
	ActivityID    uint       `gorm:"index;not null" json:"activity_id"`
	Answers       StringMap  `gorm:"type:json;not null" json:"answers"`
	Status        string     `gorm:"size:16;default:'pending';index" json:"status"`
	GrantedPoints int        `gorm:"default:0" json:"granted_points"`
	AuditRemark   string     `gorm:"size:500" json:"audit_remark"`
	// AuditorID is NULL for auto-audited submissions.
	AuditorID *uint      `json:"auditor_id"`
	AuditedAt *time.Time `json:"audited_at"`
	CreatedAt time.Time  `json:"created_at"`
	User      User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user,omitempty"`
	Activity  Activity   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"activity,omitempty"`
}

package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/leyuan/points-mall/models"
)

// ValidateAnswers checks a submitted answer set against the activity's form
// schema. Required fields must be present and non-blank; keys not declared in
// the schema are rejected.
func ValidateAnswers(schema models.FormSchema, answers models.StringMap) error {
	known := make(map[string]bool, len(schema))
	for _, field := range schema {
		known[field.Key] = true
		if field.Required {
			if v, ok := answers[field.Key]; !ok || strings.TrimSpace(v) == "" {
				label := field.Label
				if label == "" {
					label = field.Key
				}
				return fmt.Errorf("%w: field %q is required", ErrValidationFailed, label)
			}
		}
	}
	for key := range answers {
		if !known[key] {
			return fmt.Errorf("%w: unknown field %q", ErrValidationFailed, key)
		}
	}
	return nil
}

// CreateSubmission records one participation attempt. Eligibility is
// re-adjudicated inside the transaction while holding the user's row lock, so
// two concurrent submits from the same user cannot both pass a "once" or
// daily limit. Auto-audit activities are approved and credited in the same
// transaction; a failed credit rolls the submission back.
func CreateSubmission(db *gorm.DB, userID, activityID uint, answers models.StringMap, now time.Time) (*models.Submission, error) {
	var submission models.Submission

	err := db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var activity models.Activity
		if err := tx.First(&activity, activityID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := ValidateAnswers(activity.FormSchema, answers); err != nil {
			return err
		}

		participation, err := LoadParticipation(tx, userID, activityID, now)
		if err != nil {
			return err
		}

		result := Evaluate(&activity, participation, now)
		if !result.Eligible {
			return fmt.Errorf("%w: %s", ErrNotEligible, result.Status)
		}

		submission = models.Submission{
			UserID:     userID,
			ActivityID: activityID,
			Answers:    answers,
			Status:     models.SubmissionStatusPending,
			CreatedAt:  now,
		}
		if err := tx.Create(&submission).Error; err != nil {
			return err
		}

		if activity.AuditType == models.AuditTypeAuto {
			return approveInTx(tx, &submission, &activity, nil, activity.RewardPoints, "", now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

// LoadParticipation counts the caller's prior submissions for an activity,
// using the same day bounds Evaluate assumes. Rejected submissions are
// excluded from the all-time total but still spend a slot in today's count.
func LoadParticipation(tx *gorm.DB, userID, activityID uint, now time.Time) (Participation, error) {
	var p Participation
	base := tx.Model(&models.Submission{}).
		Where("user_id = ? AND activity_id = ?", userID, activityID)

	var total, today, pending int64
	if err := base.Session(&gorm.Session{}).
		Where("status <> ?", models.SubmissionStatusRejected).
		Count(&total).Error; err != nil {
		return p, err
	}
	dayStart, dayEnd := DayBounds(now)
	if err := base.Session(&gorm.Session{}).
		Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
		Count(&today).Error; err != nil {
		return p, err
	}
	if err := base.Session(&gorm.Session{}).
		Where("status = ?", models.SubmissionStatusPending).
		Count(&pending).Error; err != nil {
		return p, err
	}

	p.Total = int(total)
	p.Today = int(today)
	p.HasPending = pending > 0
	return p, nil
}

// AuditDecision is a reviewer's verdict on a pending submission.
type AuditDecision struct {
	Approve bool
	// PointsOverride, when set, replaces the activity's reward for this
	// submission only.
	PointsOverride *int
	Remark         string
}

// AuditSubmission applies a terminal verdict to a pending submission. The
// submission row is locked FOR UPDATE so two reviewers racing on the same
// submission resolve to exactly one winner; the loser gets ErrAlreadyAudited.
func AuditSubmission(db *gorm.DB, auditorID uint, submissionID uint, decision AuditDecision, now time.Time) (*models.Submission, error) {
	var submission models.Submission

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&submission, submissionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if submission.Status != models.SubmissionStatusPending {
			return ErrAlreadyAudited
		}

		if !decision.Approve {
			audited := now
			return tx.Model(&submission).Updates(map[string]interface{}{
				"status":       models.SubmissionStatusRejected,
				"audit_remark": decision.Remark,
				"auditor_id":   auditorID,
				"audited_at":   audited,
			}).Error
		}

		var activity models.Activity
		if err := tx.First(&activity, submission.ActivityID).Error; err != nil {
			return err
		}

		points := activity.RewardPoints
		if decision.PointsOverride != nil {
			points = *decision.PointsOverride
		}
		if points < 0 {
			return fmt.Errorf("%w: granted points must not be negative", ErrValidationFailed)
		}
		return approveInTx(tx, &submission, &activity, &auditorID, points, decision.Remark, now)
	})
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

// approveInTx flips a submission to approved and credits the reward in the
// same transaction. auditorID is nil for auto-audited submissions.
func approveInTx(tx *gorm.DB, submission *models.Submission, activity *models.Activity, auditorID *uint, points int, remark string, now time.Time) error {
	audited := now
	updates := map[string]interface{}{
		"status":         models.SubmissionStatusApproved,
		"granted_points": points,
		"audit_remark":   remark,
		"audited_at":     audited,
	}
	if auditorID != nil {
		updates["auditor_id"] = *auditorID
	}
	if err := tx.Model(submission).Updates(updates).Error; err != nil {
		return err
	}

	if points == 0 {
		return nil
	}

	source := models.SourceActivity
	if auditorID != nil {
		source = models.SourceActivityAudit
	}
	refID := submission.ID
	_, err := AppendLedger(tx, LedgerEntry{
		UserID:      submission.UserID,
		Points:      points,
		Kind:        models.LedgerKindEarn,
		Source:      source,
		ReferenceID: &refID,
		Remark:      fmt.Sprintf("参与活动: %s", activity.Title),
	})
	return err
}

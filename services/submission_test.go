package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leyuan/points-mall/models"
)

const surveySchema = `[{"key":"name","label":"姓名","required":true,"type":"text"},{"key":"feedback","label":"反馈","required":false,"type":"textarea"}]`

func activityRows(auditType, frequency string, reward int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title", "status", "audit_type", "frequency_type",
		"max_participations", "form_schema", "reward_points",
	}).AddRow(1, "问卷调查", models.ActivityStatusActive, auditType, frequency, 1, []byte(surveySchema), reward)
}

func submissionRows(id uint, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "activity_id", "answers", "status", "granted_points"}).
		AddRow(id, 1, 1, []byte(`{"name":"张三"}`), status, 0)
}

func countRows(n int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count(*)"}).AddRow(n)
}

func TestValidateAnswers(t *testing.T) {
	schema := models.FormSchema{
		{Key: "name", Label: "姓名", Required: true, Type: "text"},
		{Key: "feedback", Label: "反馈", Required: false, Type: "textarea"},
	}

	tests := []struct {
		name    string
		answers models.StringMap
		wantErr bool
	}{
		{"all fields", models.StringMap{"name": "张三", "feedback": "不错"}, false},
		{"optional omitted", models.StringMap{"name": "张三"}, false},
		{"required missing", models.StringMap{"feedback": "不错"}, true},
		{"required blank", models.StringMap{"name": "   "}, true},
		{"unknown key", models.StringMap{"name": "张三", "extra": "x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAnswers(schema, tt.answers)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidationFailed)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateSubmissionManualAudit(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(1, 0))
	mock.ExpectQuery("SELECT (.+) FROM `activities`").
		WillReturnRows(activityRows(models.AuditTypeManual, models.FrequencyOnce, 10))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `submissions`").
		WillReturnRows(countRows(0))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `submissions`").
		WillReturnRows(countRows(0))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `submissions`").
		WillReturnRows(countRows(0))
	mock.ExpectExec("INSERT INTO `submissions`").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	submission, err := CreateSubmission(db, 1, 1, models.StringMap{"name": "张三"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusPending, submission.Status)
	assert.Equal(t, 0, submission.GrantedPoints)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSubmissionAutoAuditCreditsInSameTx(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(1, 0))
	mock.ExpectQuery("SELECT (.+) FROM `activities`").
		WillReturnRows(activityRows(models.AuditTypeAuto, models.FrequencyUnlimited, 10))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `submissions`").
		WillReturnRows(countRows(0))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `submissions`").
		WillReturnRows(countRows(0))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `submissions`").
		WillReturnRows(countRows(0))
	mock.ExpectExec("INSERT INTO `submissions`").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("UPDATE `submissions` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(1, 0))
	mock.ExpectExec("UPDATE `users` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `points_logs`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	submission, err := CreateSubmission(db, 1, 1, models.StringMap{"name": "张三"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusApproved, submission.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSubmissionNotEligible(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(1, 0))
	mock.ExpectQuery("SELECT (.+) FROM `activities`").
		WillReturnRows(activityRows(models.AuditTypeManual, models.FrequencyOnce, 10))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `submissions`").
		WillReturnRows(countRows(1))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `submissions`").
		WillReturnRows(countRows(0))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `submissions`").
		WillReturnRows(countRows(0))
	mock.ExpectRollback()

	_, err := CreateSubmission(db, 1, 1, models.StringMap{"name": "张三"}, time.Now())
	assert.ErrorIs(t, err, ErrNotEligible)
	assert.Contains(t, err.Error(), EligibilityCompleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSubmissionRejectsBadAnswers(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(1, 0))
	mock.ExpectQuery("SELECT (.+) FROM `activities`").
		WillReturnRows(activityRows(models.AuditTypeManual, models.FrequencyOnce, 10))
	mock.ExpectRollback()

	_, err := CreateSubmission(db, 1, 1, models.StringMap{"feedback": "缺少必填项"}, time.Now())
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadParticipationDailyCountIncludesRejected(t *testing.T) {
	db, mock := setupTestDB(t)

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)
	dayStart, dayEnd := DayBounds(now)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `submissions`").
		WithArgs(1, 1, models.SubmissionStatusRejected).
		WillReturnRows(countRows(0))
	// today's count carries no status filter: a rejected attempt still
	// spends the day's slot
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `submissions`").
		WithArgs(1, 1, dayStart, dayEnd).
		WillReturnRows(countRows(1))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `submissions`").
		WithArgs(1, 1, models.SubmissionStatusPending).
		WillReturnRows(countRows(0))

	p, err := LoadParticipation(db, 1, 1, now)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Total)
	assert.Equal(t, 1, p.Today)
	assert.False(t, p.HasPending)

	result := Evaluate(activeActivity(models.FrequencyDaily, 1), p, now)
	assert.False(t, result.Eligible)
	assert.Equal(t, EligibilityLimitReached, result.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditSubmissionApproveWithOverride(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `submissions`(.+)FOR UPDATE").
		WillReturnRows(submissionRows(7, models.SubmissionStatusPending))
	mock.ExpectQuery("SELECT (.+) FROM `activities`").
		WillReturnRows(activityRows(models.AuditTypeManual, models.FrequencyOnce, 10))
	mock.ExpectExec("UPDATE `submissions` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM `users`(.+)FOR UPDATE").
		WillReturnRows(userRows(1, 0))
	mock.ExpectExec("UPDATE `users` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `points_logs`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	override := 25
	submission, err := AuditSubmission(db, 9, 7, AuditDecision{
		Approve:        true,
		PointsOverride: &override,
		Remark:         "质量不错",
	}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusApproved, submission.Status)
	assert.Equal(t, 25, submission.GrantedPoints)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditSubmissionReject(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `submissions`(.+)FOR UPDATE").
		WillReturnRows(submissionRows(7, models.SubmissionStatusPending))
	mock.ExpectExec("UPDATE `submissions` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	submission, err := AuditSubmission(db, 9, 7, AuditDecision{Remark: "不符合要求"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusRejected, submission.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditSubmissionAlreadyAudited(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `submissions`(.+)FOR UPDATE").
		WillReturnRows(submissionRows(7, models.SubmissionStatusApproved))
	mock.ExpectRollback()

	_, err := AuditSubmission(db, 9, 7, AuditDecision{Approve: true}, time.Now())
	assert.ErrorIs(t, err, ErrAlreadyAudited)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditSubmissionNegativeOverride(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `submissions`(.+)FOR UPDATE").
		WillReturnRows(submissionRows(7, models.SubmissionStatusPending))
	mock.ExpectQuery("SELECT (.+) FROM `activities`").
		WillReturnRows(activityRows(models.AuditTypeManual, models.FrequencyOnce, 10))
	mock.ExpectRollback()

	bad := -5
	_, err := AuditSubmission(db, 9, 7, AuditDecision{Approve: true, PointsOverride: &bad}, time.Now())
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

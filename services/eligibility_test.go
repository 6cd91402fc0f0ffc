package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/leyuan/points-mall/models"
)

func activeActivity(frequency string, maxParticipations int) *models.Activity {
	return &models.Activity{
		ID:                1,
		Title:             "每日签到",
		Status:            models.ActivityStatusActive,
		AuditType:         models.AuditTypeAuto,
		FrequencyType:     frequency,
		MaxParticipations: maxParticipations,
		RewardPoints:      10,
	}
}

func TestEvaluate(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)

	tests := []struct {
		name          string
		activity      *models.Activity
		participation Participation
		wantEligible  bool
		wantStatus    string
	}{
		{
			name:         "fresh user on once activity",
			activity:     activeActivity(models.FrequencyOnce, 1),
			wantEligible: true,
			wantStatus:   EligibilityAvailable,
		},
		{
			name:          "once activity already completed",
			activity:      activeActivity(models.FrequencyOnce, 1),
			participation: Participation{Total: 1},
			wantStatus:    EligibilityCompleted,
		},
		{
			name:          "pending submission blocks everything",
			activity:      activeActivity(models.FrequencyUnlimited, 0),
			participation: Participation{Total: 3, HasPending: true},
			wantStatus:    EligibilityPending,
		},
		{
			name:          "daily under limit",
			activity:      activeActivity(models.FrequencyDaily, 3),
			participation: Participation{Total: 10, Today: 2},
			wantEligible:  true,
			wantStatus:    EligibilityAvailable,
		},
		{
			name:          "daily limit reached",
			activity:      activeActivity(models.FrequencyDaily, 3),
			participation: Participation{Total: 10, Today: 3},
			wantStatus:    EligibilityLimitReached,
		},
		{
			name:          "daily defaults to one per day",
			activity:      activeActivity(models.FrequencyDaily, 0),
			participation: Participation{Today: 1},
			wantStatus:    EligibilityLimitReached,
		},
		{
			name:          "unlimited with no cap",
			activity:      activeActivity(models.FrequencyUnlimited, 0),
			participation: Participation{Total: 99},
			wantEligible:  true,
			wantStatus:    EligibilityAvailable,
		},
		{
			// max_participations defaults to 1 in the schema; unlimited
			// activities must ignore it
			name:          "unlimited ignores max participations",
			activity:      activeActivity(models.FrequencyUnlimited, 1),
			participation: Participation{Total: 5},
			wantEligible:  true,
			wantStatus:    EligibilityAvailable,
		},
		{
			name: "draft activity is not adjudicated",
			activity: &models.Activity{
				Status:        models.ActivityStatusDraft,
				FrequencyType: models.FrequencyOnce,
			},
			wantStatus: EligibilityInactive,
		},
		{
			name: "not started yet",
			activity: func() *models.Activity {
				a := activeActivity(models.FrequencyOnce, 1)
				a.StartTime = &future
				return a
			}(),
			wantStatus: EligibilityNotStarted,
		},
		{
			name: "already ended",
			activity: func() *models.Activity {
				a := activeActivity(models.FrequencyOnce, 1)
				a.EndTime = &past
				return a
			}(),
			wantStatus: EligibilityEnded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.activity, tt.participation, now)
			assert.Equal(t, tt.wantEligible, got.Eligible)
			assert.Equal(t, tt.wantStatus, got.Status)
		})
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	a := activeActivity(models.FrequencyDaily, 2)
	p := Participation{Total: 5, Today: 1}
	now := time.Date(2025, 6, 15, 23, 59, 0, 0, time.Local)

	first := Evaluate(a, p, now)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Evaluate(a, p, now))
	}
}

func TestDayBounds(t *testing.T) {
	now := time.Date(2025, 6, 15, 23, 59, 59, 0, time.Local)
	start, end := DayBounds(now)

	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.Local), start)
	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.Local), end)
	assert.True(t, now.After(start) && now.Before(end))

	// midnight belongs to the day it opens
	sameStart, _ := DayBounds(start)
	assert.Equal(t, start, sameStart)
}

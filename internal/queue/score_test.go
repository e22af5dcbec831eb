package queue

import (
	"testing"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/config"
	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestTimeToDueScore_Tiers(t *testing.T) {
	tuning := &config.DefaultTuning().Priority

	tests := []struct {
		name string
		due  time.Time
		want float64
	}{
		{"no due time", time.Time{}, 10},
		{"overdue 30 minutes", testNow.Add(-30 * time.Minute), 115},
		{"overdue bonus capped", testNow.Add(-200 * time.Minute), 150},
		{"due now", testNow, 95},
		{"due in 30 minutes", testNow.Add(30 * time.Minute), 90},
		{"due in one hour", testNow.Add(time.Hour), 85},
		{"due in 12 hours", testNow.Add(12 * time.Hour), 50},
		{"due in two days", testNow.Add(48 * time.Hour), 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TimeToDueScore(tt.due, testNow, tuning), 0.001)
		})
	}
}

func TestTimeToDueScore_SeparatesMinutesFromHours(t *testing.T) {
	tuning := &config.DefaultTuning().Priority
	twoMinutes := TimeToDueScore(testNow.Add(2*time.Minute), testNow, tuning)
	twoHours := TimeToDueScore(testNow.Add(2*time.Hour), testNow, tuning)
	assert.Greater(t, twoMinutes-twoHours, 30.0)
}

func TestScore_Examples(t *testing.T) {
	tuning := &config.DefaultTuning().Priority

	urgent := &models.QueueItem{
		Type:      models.ItemTypeAlert,
		Severity:  models.SeverityUrgent,
		DueAt:     testNow,
		RiskLevel: models.RiskMedium,
	}
	assert.Equal(t, 81, Score(urgent, testNow, tuning))

	low := &models.QueueItem{
		Type:      models.ItemTypeTask,
		Severity:  models.SeverityLow,
		DueAt:     testNow.Add(7 * 24 * time.Hour),
		RiskLevel: models.RiskMedium,
	}
	assert.Equal(t, 31, Score(low, testNow, tuning))
}

func TestScore_ClampedTo100(t *testing.T) {
	tuning := &config.DefaultTuning().Priority
	item := &models.QueueItem{
		Type:            models.ItemTypeAlert,
		Severity:        models.SeverityUrgent,
		DueAt:           testNow.Add(-5 * time.Hour),
		RiskLevel:       models.RiskHigh,
		EscalationCount: 10,
	}
	assert.Equal(t, 100, Score(item, testNow, tuning))
}

func TestScore_UnknownRiskIsMedium(t *testing.T) {
	tuning := &config.DefaultTuning().Priority
	a := &models.QueueItem{Type: models.ItemTypeTask, Severity: models.SeverityHigh, RiskLevel: "unknown"}
	b := &models.QueueItem{Type: models.ItemTypeTask, Severity: models.SeverityHigh, RiskLevel: models.RiskMedium}
	assert.Equal(t, Score(b, testNow, tuning), Score(a, testNow, tuning))
}

func TestScore_Monotonic(t *testing.T) {
	tuning := &config.DefaultTuning().Priority
	severities := []models.Severity{models.SeverityUrgent, models.SeverityHigh, models.SeverityMedium, models.SeverityLow}
	offsets := []time.Duration{
		-3 * time.Hour, -time.Hour, -time.Minute, 0, 2 * time.Minute, 30 * time.Minute,
		59 * time.Minute, 2 * time.Hour, 20 * time.Hour, 7 * 24 * time.Hour,
	}

	build := func(s models.Severity, off time.Duration) *models.QueueItem {
		return &models.QueueItem{
			Type:      models.ItemTypeTask,
			Severity:  s,
			DueAt:     testNow.Add(off),
			RiskLevel: models.RiskLow,
		}
	}

	for _, s := range severities {
		for i := 1; i < len(offsets); i++ {
			earlier := Score(build(s, offsets[i-1]), testNow, tuning)
			later := Score(build(s, offsets[i]), testNow, tuning)
			assert.GreaterOrEqual(t, earlier, later, "severity %s offsets %v vs %v", s, offsets[i-1], offsets[i])
		}
	}
	for _, off := range offsets {
		for i := 1; i < len(severities); i++ {
			higher := Score(build(severities[i-1], off), testNow, tuning)
			lower := Score(build(severities[i], off), testNow, tuning)
			assert.GreaterOrEqual(t, higher, lower, "offset %v severities %s vs %s", off, severities[i-1], severities[i])
		}
	}
}

func TestComputeFactors(t *testing.T) {
	tuning := &config.DefaultTuning().Priority
	item := &models.QueueItem{
		Type:            models.ItemTypeMedication,
		Severity:        models.SeverityHigh,
		AssigneeID:      "m1",
		RiskLevel:       models.RiskHigh,
		EscalationCount: 2,
	}
	f := ComputeFactors(item, testNow, tuning)
	assert.Equal(t, 75.0, f.Severity)
	assert.Equal(t, 100.0, f.Risk)
	assert.Equal(t, 0.0, f.Unassigned)
	assert.Equal(t, 50.0, f.Escalation)
	assert.Equal(t, 80.0, f.Type)
	assert.Equal(t, 10.0, f.TimeToDue)
}

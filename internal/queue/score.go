package queue

import (
	"math"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/config"
	"github.com/samalpartha/CareCircle-sub001/internal/models"
)

var severityScores = map[models.Severity]float64{
	models.SeverityUrgent: 100,
	models.SeverityHigh:   75,
	models.SeverityMedium: 50,
	models.SeverityLow:    25,
}

var riskScores = map[models.RiskLevel]float64{
	models.RiskHigh:   100,
	models.RiskMedium: 50,
	models.RiskLow:    20,
}

var typeScores = map[models.ItemType]float64{
	models.ItemTypeAlert:      100,
	models.ItemTypeMedication: 80,
	models.ItemTypeFollowUp:   60,
	models.ItemTypeTask:       50,
	models.ItemTypeCheckIn:    30,
}

// Factors is the unweighted per-factor breakdown of a priority score
type Factors struct {
	Severity   float64
	TimeToDue  float64
	Risk       float64
	Unassigned float64
	Escalation float64
	Type       float64
}

// ComputeFactors scores each input of the priority formula on its own scale
func ComputeFactors(item *models.QueueItem, now time.Time, t *config.PriorityTuning) Factors {
	f := Factors{
		Severity:  severityScores[item.Severity],
		TimeToDue: TimeToDueScore(item.DueAt, now, t),
		Type:      typeScores[item.Type],
	}

	risk, ok := riskScores[item.RiskLevel]
	if !ok {
		risk = riskScores[models.RiskMedium]
	}
	f.Risk = risk

	if !item.IsAssigned() {
		f.Unassigned = 100
	}
	f.Escalation = math.Min(float64(item.EscalationCount)*t.EscalationStepPoints, 100)
	return f
}

// Score is the pure 0..100 priority of item at now
func Score(item *models.QueueItem, now time.Time, t *config.PriorityTuning) int {
	f := ComputeFactors(item, now, t)
	w := t.Weights
	total := f.Severity*w.Severity +
		f.TimeToDue*w.TimeToDue +
		f.Risk*w.Risk +
		f.Unassigned*w.Unassigned +
		f.Escalation*w.Escalation +
		f.Type*w.Type

	score := int(math.Round(total))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// TimeToDueScore is tiered: overdue > within an hour > within a day > later.
// Overdue items score above 100.
func TimeToDueScore(due, now time.Time, t *config.PriorityTuning) float64 {
	if due.IsZero() {
		return t.LaterScore
	}
	minutes := due.Sub(now).Minutes()
	switch {
	case minutes < 0:
		bonus := math.Min(-minutes*t.OverdueBonusPerMin, t.OverdueBonusCap)
		return t.OverdueBase + bonus
	case minutes <= 60:
		return t.WithinHourBase + t.WithinHourSpread*(1-minutes/60)
	case minutes <= 24*60:
		return t.WithinDayBase + t.WithinDaySpread*(1-minutes/(24*60))
	default:
		return t.LaterScore
	}
}
